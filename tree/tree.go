package tree

import "strings"

// Tree is the aggregated outcome of one request at one node.
type Tree struct {
	NodeID    string
	RequestID string
	Requests  []Entry
}

// Entry is one element of Tree.Requests: a nested tree when Node is set,
// otherwise the Leaf string.
type Entry struct {
	Node *Tree
	Leaf string
}

// New returns a tree with n empty request slots, to be filled with Set.
func New(nodeID, requestID string, n int) *Tree {
	return &Tree{NodeID: nodeID, RequestID: requestID, Requests: make([]Entry, n)}
}

// Set stores e at position i.
func (t *Tree) Set(i int, e Entry) {
	t.Requests[i] = e
}

// NodeEntry wraps a nested tree.
func NodeEntry(t *Tree) Entry { return Entry{Node: t} }

// LeafEntry wraps a plain string.
func LeafEntry(s string) Entry { return Entry{Leaf: s} }

// ErrorLeaf is the entry recorded for a dependency that could not be
// called: "ERROR(<descriptor>)".
func ErrorLeaf(descriptor string) Entry {
	return Entry{Leaf: "ERROR(" + descriptor + ")"}
}

// IsLeaf reports whether e is a string entry.
func (e Entry) IsLeaf() bool { return e.Node == nil }

// IsError reports whether e is an error leaf.
func (e Entry) IsError() bool {
	return e.IsLeaf() && strings.HasPrefix(e.Leaf, "ERROR(") && strings.HasSuffix(e.Leaf, ")")
}

// Text renders t as its node id followed by each child's rendering, children
// separated by a newline and every line of them indented two spaces. A leaf
// renders verbatim with a trailing newline. The result is not trimmed, so
// siblings below a leaf are separated by an indentation-only line.
func Text(t *Tree) string {
	children := make([]string, len(t.Requests))
	for i, child := range t.Requests {
		children[i] = entryText(child)
	}
	return t.NodeID + "\n" + indent + strings.ReplaceAll(strings.Join(children, "\n"), "\n", "\n"+indent)
}

const indent = "  "

func entryText(e Entry) string {
	if e.IsLeaf() {
		return e.Leaf + "\n"
	}
	return Text(e.Node)
}
