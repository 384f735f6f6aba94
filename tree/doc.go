// Package tree holds the Result Tree a node returns: its own id, the
// request id it handled, and one entry per declared dependency, each either
// the dependency's own tree or an error leaf.
//
// The JSON form is
//
//	{"node_id": "...", "request_id": "...", "requests": [ {...} | "ERROR(...)" ]}
//
// and the text form puts one node per line, indented two spaces per level.
package tree
