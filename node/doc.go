// Package node holds the fixed facts about a running microcosm node: its
// identity, its parsed dependency declaration, and the YAML document both
// are built from.
//
// Values in this package are constructed once at startup and only read
// afterwards, so they are safe to share across request goroutines.
package node
