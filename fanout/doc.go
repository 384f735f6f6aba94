// Package fanout calls a node's declared dependencies for one request and
// assembles their answers into a Result Tree.
//
// Each dependency is resolved to an address, called with the session's
// propagation token and bracketed by a tracing interaction. Calls run with
// bounded concurrency and their own deadline; a failing dependency becomes
// an error leaf at its declaration index and never affects its siblings.
package fanout
