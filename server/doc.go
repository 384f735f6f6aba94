// Package server provides the node's HTTP server: Gin routes behind a
// net/http middleware chain, with h2c so HTTP/2 clients work without TLS.
//
// Middleware (server/middleware): Recovery, RequestID, RequestLogger.
//
// Endpoints (server/endpoint):
//
//   - /health: component health aggregation
//   - /version: build version information
//   - /metrics: Prometheus exposition, when a handler is supplied
package server
