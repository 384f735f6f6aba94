package tree

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// ErrMalformed is returned by Decode for a body that is not a result tree.
var ErrMalformed = errors.New("malformed result tree")

// The standard-library compatible sonic config keeps output byte-stable.
var codec = sonic.ConfigStd

type wireTree struct {
	NodeID    string `json:"node_id"`
	RequestID string `json:"request_id"`
	Requests  []any  `json:"requests"`
}

func toWire(t *Tree) *wireTree {
	w := &wireTree{NodeID: t.NodeID, RequestID: t.RequestID, Requests: make([]any, len(t.Requests))}
	for i, e := range t.Requests {
		if e.IsLeaf() {
			w.Requests[i] = e.Leaf
		} else {
			w.Requests[i] = toWire(e.Node)
		}
	}
	return w
}

// Marshal encodes t as JSON. Requests is always an array, never null.
func Marshal(t *Tree) ([]byte, error) {
	return codec.Marshal(toWire(t))
}

// Decode parses a result tree returned by a downstream node. Unknown keys
// are ignored. An absent or null "requests" decodes as empty.
func Decode(data []byte) (*Tree, error) {
	var raw any
	if err := codec.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return decodeNode(raw, "$")
}

func decodeNode(raw any, path string) (*Tree, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be an object, got %T", ErrMalformed, path, raw)
	}
	nodeID, ok := obj["node_id"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s.node_id must be a string", ErrMalformed, path)
	}
	requestID, ok := obj["request_id"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s.request_id must be a string", ErrMalformed, path)
	}

	var items []any
	switch r := obj["requests"].(type) {
	case nil:
	case []any:
		items = r
	default:
		return nil, fmt.Errorf("%w: %s.requests must be an array, got %T", ErrMalformed, path, r)
	}

	t := New(nodeID, requestID, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case string:
			t.Set(i, LeafEntry(v))
		case map[string]any:
			child, err := decodeNode(v, fmt.Sprintf("%s.requests[%d]", path, i))
			if err != nil {
				return nil, err
			}
			t.Set(i, NodeEntry(child))
		default:
			return nil, fmt.Errorf("%w: %s.requests[%d] must be a string or an object, got %T", ErrMalformed, path, i, item)
		}
	}
	return t, nil
}
