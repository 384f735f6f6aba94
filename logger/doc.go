// Package logger provides structured logging for microcosm nodes using
// zerolog.
//
// It supports JSON and console output, level configuration, and loggers
// scoped to a component or to the OpenTelemetry span of a request.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.New(&cfg, "A")
//	log.WithSpan(ctx).Info("resolved", logger.Fields("service", "B"))
package logger
