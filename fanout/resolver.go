package fanout

import (
	"context"
	stderrors "errors"

	"github.com/kbukum/microcosm/discovery"
	"github.com/kbukum/microcosm/errors"
	"github.com/kbukum/microcosm/node"
)

// Resolver maps a declared dependency to the identity of a node serving it.
type Resolver interface {
	Resolve(ctx context.Context, service, version string) (node.Identity, error)
}

// ClientSource yields a discovery client once discovery has started.
// *discovery.Component satisfies it.
type ClientSource interface {
	Client() *discovery.Client
}

var errDiscoveryNotStarted = stderrors.New("discovery not started")

// DiscoveryResolver resolves dependencies through a discovery client.
type DiscoveryResolver struct {
	source ClientSource
}

// NewDiscoveryResolver creates a resolver reading its client from source
// on every call.
func NewDiscoveryResolver(source ClientSource) *DiscoveryResolver {
	return &DiscoveryResolver{source: source}
}

// Resolve returns the identity of a compatible instance. Every failure is
// a RESOLUTION_FAILED error.
func (r *DiscoveryResolver) Resolve(ctx context.Context, service, version string) (node.Identity, error) {
	client := r.source.Client()
	if client == nil {
		return node.Identity{}, errors.ResolutionFailed(service, version, errDiscoveryNotStarted)
	}
	inst, err := client.Resolve(ctx, service, version)
	if err != nil {
		return node.Identity{}, errors.ResolutionFailed(service, version, err)
	}
	return node.Identity{Service: inst.Name, Version: inst.Version, Address: inst.URL()}, nil
}

type staticSource struct{ client *discovery.Client }

func (s staticSource) Client() *discovery.Client { return s.client }

// ClientResolver resolves through a client that already exists.
func ClientResolver(client *discovery.Client) *DiscoveryResolver {
	return NewDiscoveryResolver(staticSource{client: client})
}
