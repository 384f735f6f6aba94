package static

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/kbukum/microcosm/discovery"
	"github.com/kbukum/microcosm/logger"
)

// Provider implements discovery.Registry and discovery.Discovery using an
// in-memory list of endpoints. Self-registration lands in the same list, so
// a node with the static provider can resolve itself.
type Provider struct {
	mu        sync.RWMutex
	instances map[string][]discovery.ServiceInstance // keyed by service name
	owned     map[string]bool                        // IDs registered through Register
}

func init() {
	discovery.RegisterProviderFactory(discovery.ProviderStatic, func(cfg discovery.Config, _ any, _ *logger.Logger) (discovery.Registry, discovery.Discovery, error) {
		p := NewProvider(cfg.StaticEndpoints)
		return p, p, nil
	})
}

// NewProvider creates a Provider pre-populated from static config.
func NewProvider(endpoints []discovery.StaticEndpoint) *Provider {
	sp := &Provider{
		instances: make(map[string][]discovery.ServiceInstance),
		owned:     make(map[string]bool),
	}
	now := time.Now()
	for _, ep := range endpoints {
		info := discovery.ServiceInfo{
			ID:      ep.Name + "-" + ep.Address + "-" + strconv.Itoa(ep.Port),
			Name:    ep.Name,
			Version: ep.Version,
			Address: ep.Address,
			Port:    ep.Port,
			Scheme:  ep.Scheme,
		}
		sp.instances[ep.Name] = append(sp.instances[ep.Name], info.Instance(now))
	}
	return sp
}

// --- Registry implementation ---

// Register adds the registration to the in-memory store so the process
// can resolve itself.
func (s *Provider) Register(_ context.Context, svc *discovery.ServiceInfo) error {
	if err := svc.Validate(); err != nil {
		return fmt.Errorf("static register: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[svc.Name] = append(s.instances[svc.Name], svc.Instance(time.Now()))
	s.owned[svc.ID] = true
	return nil
}

// Deregister removes a service instance by ID.
func (s *Provider) Deregister(_ context.Context, serviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.owned, serviceID)
	for name, list := range s.instances {
		s.instances[name] = slices.DeleteFunc(list, func(inst discovery.ServiceInstance) bool {
			return inst.ID == serviceID
		})
	}
	return nil
}

// Stats counts the registrations made through Register.
func (s *Provider) Stats() discovery.RegistryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return discovery.RegistryStats{RegisteredServices: len(s.owned)}
}

// --- Discovery implementation ---

// Discover returns the currently registered instances for the named service.
func (s *Provider) Discover(_ context.Context, serviceName string) ([]discovery.ServiceInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instances := s.instances[serviceName]
	if len(instances) == 0 {
		return nil, fmt.Errorf("%w: %s", discovery.ErrServiceNotFound, serviceName)
	}

	out := make([]discovery.ServiceInstance, len(instances))
	now := time.Now()
	for i, inst := range instances {
		inst.LastSeen = now
		out[i] = inst
	}
	return out, nil
}

// Close is a no-op for the static provider.
func (s *Provider) Close() error {
	return nil
}

// Compile-time checks.
var (
	_ discovery.Registry  = (*Provider)(nil)
	_ discovery.Discovery = (*Provider)(nil)
)
