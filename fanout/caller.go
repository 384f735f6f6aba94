package fanout

import (
	"context"
	stderrors "errors"

	"github.com/kbukum/microcosm/errors"
	"github.com/kbukum/microcosm/httpclient"
	"github.com/kbukum/microcosm/resilience"
	"github.com/kbukum/microcosm/tracing"
	"github.com/kbukum/microcosm/tree"
)

// Caller fetches the Result Tree of the node at address, sending token in
// the propagation header.
type Caller interface {
	Call(ctx context.Context, address, token string) (*tree.Tree, error)
}

// HTTPCaller is a Caller over GET requests.
type HTTPCaller struct {
	client   *httpclient.Client
	breakers *resilience.Breakers
}

// NewHTTPCaller creates a caller on client. A non-nil breakers set guards
// each target address with its own circuit breaker.
func NewHTTPCaller(client *httpclient.Client, breakers *resilience.Breakers) *HTTPCaller {
	return &HTTPCaller{client: client, breakers: breakers}
}

// Call returns the decoded downstream tree. Timeouts, connection errors,
// non-2xx statuses, open breakers and bodies that are not a result tree are
// all returned as DOWNSTREAM_FAILURE.
func (c *HTTPCaller) Call(ctx context.Context, address, token string) (*tree.Tree, error) {
	var result *tree.Tree
	call := func() error {
		headers := map[string]string{}
		if token != "" {
			headers[tracing.Header] = token
		}
		resp, err := c.client.Get(ctx, address, headers)
		if err != nil {
			return err
		}
		t, err := tree.Decode(resp.Body)
		if err != nil {
			return err
		}
		result = t
		return nil
	}

	var err error
	if c.breakers != nil {
		err = c.breakers.Get(address).Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		return nil, errors.DownstreamFailure(address, classify(err, address))
	}
	return result, nil
}

func classify(err error, address string) error {
	var httpErr *httpclient.Error
	if stderrors.As(err, &httpErr) {
		return httpclient.ToAppError(err, address)
	}
	return err
}
