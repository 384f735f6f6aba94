package discovery

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/microcosm/component"
	"github.com/kbukum/microcosm/logger"
)

// ProviderFactory creates a Registry and Discovery pair from a Config.
// providerCfg holds provider-specific configuration (e.g., consul.Config).
// Providers should type-assert providerCfg to their own config type.
type ProviderFactory func(cfg Config, providerCfg any, log *logger.Logger) (Registry, Discovery, error)

var (
	factoriesMu       sync.RWMutex
	providerFactories = make(map[string]ProviderFactory)
)

// RegisterProviderFactory registers a discovery backend factory for the given
// provider name. Implementation packages call this in an init function.
func RegisterProviderFactory(name string, f ProviderFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	providerFactories[name] = f
}

func lookupFactory(name string) (ProviderFactory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := providerFactories[name]
	return f, ok
}

// Component owns the node's registration: Start registers self with the
// configured backend, Stop deregisters. Deregistration is best effort.
type Component struct {
	registry    Registry
	discovery   Discovery
	client      *Client
	cfg         Config
	providerCfg any
	self        *ServiceInfo
	log         *logger.Logger
}

// NewComponent creates a discovery Component. self is the registration for
// this node; nil skips registration.
func NewComponent(cfg Config, providerCfg any, self *ServiceInfo, log *logger.Logger) *Component {
	return &Component{
		cfg:         cfg,
		providerCfg: providerCfg,
		self:        self,
		log:         log.WithComponent("discovery"),
	}
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Name returns the component name.
func (c *Component) Name() string { return "discovery" }

// Registry returns the underlying Registry, or nil if not started.
func (c *Component) Registry() Registry { return c.registry }

// Client returns the resolving Client, or nil if not started.
func (c *Component) Client() *Client { return c.client }

// Start initialises the provider and registers the local service.
func (c *Component) Start(ctx context.Context) error {
	c.cfg.ApplyDefaults()
	if err := c.cfg.Validate(); err != nil {
		return fmt.Errorf("discovery config: %w", err)
	}

	f, ok := lookupFactory(c.cfg.Provider)
	if !ok {
		return fmt.Errorf("unsupported discovery provider %q (not registered)", c.cfg.Provider)
	}

	reg, disc, err := f(c.cfg, c.providerCfg, c.log)
	if err != nil {
		return fmt.Errorf("discovery start: %w", err)
	}
	c.registry = reg
	c.discovery = disc

	if c.self != nil {
		if err := c.registry.Register(ctx, c.self); err != nil {
			return fmt.Errorf("discovery: register self: %w", err)
		}
	}

	c.client = NewClient(c.discovery, ClientConfig{CacheTTL: c.cfg.CacheTTL, Strategy: c.cfg.Strategy}, c.log)

	c.log.Info("discovery started", logger.Fields("provider", c.cfg.Provider))
	return nil
}

// Stop deregisters the local service and releases resources.
func (c *Component) Stop(ctx context.Context) error {
	if c.registry != nil && c.self != nil {
		if err := c.registry.Deregister(ctx, c.self.ID); err != nil {
			c.log.Warn("failed to deregister on stop", logger.Fields(logger.FieldError, err.Error()))
		}
	}

	var err error
	if c.client != nil {
		err = c.client.Close()
	} else if c.discovery != nil {
		err = c.discovery.Close()
	}
	if c.registry != nil {
		if rerr := c.registry.Close(); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}

// Health reports healthy once this node's registration is held.
func (c *Component) Health(ctx context.Context) component.Health {
	if c.registry == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "discovery not initialized",
		}
	}
	if c.self == nil || c.registry.Stats().RegisteredServices > 0 {
		return component.Health{Name: c.Name(), Status: component.StatusHealthy}
	}
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusDegraded,
		Message: "no services registered",
	}
}

// Describe returns the startup log line for discovery.
func (c *Component) Describe() component.Description {
	details := "provider=" + c.cfg.Provider
	port := 0
	if c.self != nil {
		details += fmt.Sprintf(" service=%s[%s]", c.self.Name, c.self.Version)
		port = c.self.Port
	}
	return component.Description{
		Name:    "Discovery",
		Type:    "discovery",
		Details: details,
		Port:    port,
	}
}
