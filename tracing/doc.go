// Package tracing joins, carries and brackets the causal context of a
// request as it moves through a tree of microcosm nodes.
//
// A Tracer joins the context carried in the X-Microcosm-Context header and
// returns a Session for the inbound request. Each outbound dependency call
// is bracketed by an Interaction, which ends exactly once as finished or
// failed. Session log lines carry the trace and span ids of the request so
// the lines from every node of one request can be correlated.
//
// The header carries a W3C traceparent value and spans are produced by the
// OpenTelemetry SDK, so any OTLP or stdout exporter configured through the
// observability package sees the same tree the nodes log.
package tracing
