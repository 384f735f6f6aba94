// Package errors provides the structured error type used across the node.
//
// An AppError carries a machine-readable code, an HTTP status and a
// retryable flag. The node's failure taxonomy maps onto four codes:
// CONFIGURATION_ERROR (fatal at startup), RESOLUTION_FAILED and
// DOWNSTREAM_FAILURE (recovered per dependency call) and HANDLER_FAILURE
// (recovered at the request boundary).
package errors
