// Package observability wires OpenTelemetry tracing and metrics for a node.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, cfg.Tracing)
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, cfg.Metrics)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(mp.Meter("microcosm"))
//	metrics.RecordInteraction(ctx, "B[1.0]", "finished", d)
//
// With the prometheus exporter, mp.Handler() serves the scrape endpoint.
package observability
