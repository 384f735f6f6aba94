// Package component defines the lifecycle interface shared by the parts of
// a node that start and stop with the process.
//
// A Registry starts components in registration order and stops them in
// reverse, so the HTTP server stops serving before the node deregisters
// from discovery.
package component
