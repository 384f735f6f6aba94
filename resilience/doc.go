// Package resilience provides the circuit breaker used around downstream
// calls.
//
//	breakers := resilience.NewBreakers(cfg.Downstream.CircuitBreaker)
//	err := breakers.Get(address).Execute(func() error {
//	    return call(ctx, address)
//	})
//
// A call rejected by an open breaker returns ErrCircuitOpen, which the
// caller reports like any other downstream failure. There is no retry.
package resilience
