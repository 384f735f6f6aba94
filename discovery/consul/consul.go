package consul

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/consul/api"

	"github.com/kbukum/microcosm/discovery"
	"github.com/kbukum/microcosm/logger"
)

const versionTagPrefix = "version:"

// Provider implements both discovery.Registry and discovery.Discovery using HashiCorp Consul.
type Provider struct {
	mu     sync.RWMutex
	client *api.Client
	cfg    discovery.Config
	log    *logger.Logger
	stats  discovery.RegistryStats
}

func init() {
	discovery.RegisterProviderFactory(discovery.ProviderConsul, func(cfg discovery.Config, providerCfg any, log *logger.Logger) (discovery.Registry, discovery.Discovery, error) {
		var consulCfg Config
		switch pc := providerCfg.(type) {
		case Config:
			consulCfg = pc
		case *Config:
			if pc != nil {
				consulCfg = *pc
			}
		case nil:
		default:
			return nil, nil, fmt.Errorf("consul: unexpected provider config %T", providerCfg)
		}
		p, err := NewProvider(cfg, consulCfg, log)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	})
}

// NewProvider creates a Provider talking to the agent described by consulCfg.
func NewProvider(cfg discovery.Config, consulCfg Config, log *logger.Logger) (*Provider, error) {
	consulCfg.ApplyDefaults()
	if err := consulCfg.Validate(); err != nil {
		return nil, err
	}

	apiCfg := api.DefaultConfig()
	apiCfg.Address = consulCfg.Address
	apiCfg.Scheme = consulCfg.Scheme
	apiCfg.Token = consulCfg.Token
	if consulCfg.Datacenter != "" {
		apiCfg.Datacenter = consulCfg.Datacenter
	}
	if tls := consulCfg.TLS; tls != nil && tls.Enabled {
		apiCfg.TLSConfig = api.TLSConfig{
			Address:            tls.ServerName,
			CAFile:             tls.CACert,
			CertFile:           tls.ClientCert,
			KeyFile:            tls.ClientKey,
			InsecureSkipVerify: tls.InsecureSkipVerify,
		}
	}

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("consul client: %w", err)
	}

	return &Provider{
		client: client,
		cfg:    cfg,
		log:    log,
	}, nil
}

// --- Registry implementation ---

// Register registers a service instance with the Consul agent. The version
// travels both as metadata and as a "version:<v>" tag, and an HTTP check
// polls HealthCheckPath on the instance.
func (c *Provider) Register(ctx context.Context, service *discovery.ServiceInfo) error {
	if err := service.Validate(); err != nil {
		return fmt.Errorf("consul register: %w", err)
	}
	inst := service.Instance(time.Now())
	scheme := inst.Scheme

	meta := make(map[string]string, len(service.Metadata)+3)
	for k, v := range service.Metadata {
		meta[k] = v
	}
	meta[discovery.MetaVersion] = service.Version
	meta[discovery.MetaScheme] = scheme
	meta[discovery.MetaAddress] = inst.URL()

	tags := append([]string{versionTagPrefix + service.Version}, service.Tags...)
	tags = append(tags, c.cfg.Tags...)

	reg := &api.AgentServiceRegistration{
		ID:      service.ID,
		Name:    service.Name,
		Address: service.Address,
		Port:    service.Port,
		Tags:    tags,
		Meta:    meta,
	}

	if c.cfg.HealthCheckPath != "" {
		reg.Check = &api.AgentServiceCheck{
			HTTP:                           inst.URL() + c.cfg.HealthCheckPath,
			Interval:                       c.cfg.HealthCheckInterval.String(),
			Timeout:                        c.cfg.HealthCheckTimeout.String(),
			DeregisterCriticalServiceAfter: c.cfg.DeregisterAfter.String(),
		}
	}

	if err := c.client.Agent().ServiceRegister(reg); err != nil {
		c.log.Error("failed to register service", logger.Fields(
			"service_id", service.ID,
			logger.FieldError, err.Error(),
		))
		return fmt.Errorf("consul register %q: %w", service.Name, err)
	}

	c.mu.Lock()
	c.stats.RegisteredServices++
	c.stats.LastHeartbeat = time.Now()
	c.mu.Unlock()

	c.log.Info("service registered", logger.Fields(
		"service_id", service.ID,
		logger.FieldAddress, inst.URL(),
	))
	return nil
}

// Deregister removes a service instance from Consul.
func (c *Provider) Deregister(ctx context.Context, serviceID string) error {
	if err := c.client.Agent().ServiceDeregister(serviceID); err != nil {
		return fmt.Errorf("consul deregister %q: %w", serviceID, err)
	}

	c.mu.Lock()
	if c.stats.RegisteredServices > 0 {
		c.stats.RegisteredServices--
	}
	c.mu.Unlock()

	c.log.Info("service deregistered", logger.Fields("service_id", serviceID))
	return nil
}

// Stats returns current registry statistics.
func (c *Provider) Stats() discovery.RegistryStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// --- Discovery implementation ---

// Discover queries Consul for instances of the named service whose checks
// all pass.
func (c *Provider) Discover(ctx context.Context, serviceName string) ([]discovery.ServiceInstance, error) {
	opts := (&api.QueryOptions{}).WithContext(ctx)
	entries, _, err := c.client.Health().Service(serviceName, "", true, opts)
	if err != nil {
		return nil, fmt.Errorf("consul discover %q: %w", serviceName, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", discovery.ErrServiceNotFound, serviceName)
	}

	now := time.Now()
	instances := make([]discovery.ServiceInstance, 0, len(entries))
	for _, e := range entries {
		instances = append(instances, serviceEntryToInstance(e, now))
	}
	return instances, nil
}

// Close is a no-op; the HTTP client does not require explicit closing.
func (c *Provider) Close() error {
	return nil
}

func serviceEntryToInstance(e *api.ServiceEntry, now time.Time) discovery.ServiceInstance {
	health := discovery.HealthHealthy
	for _, chk := range e.Checks {
		if chk.Status != api.HealthPassing {
			health = discovery.HealthUnhealthy
			break
		}
	}

	address := e.Service.Address
	if address == "" && e.Node != nil {
		address = e.Node.Address
	}

	version := e.Service.Meta[discovery.MetaVersion]
	if version == "" {
		for _, tag := range e.Service.Tags {
			if v, ok := strings.CutPrefix(tag, versionTagPrefix); ok {
				version = v
				break
			}
		}
	}

	return discovery.ServiceInstance{
		ID:       e.Service.ID,
		Name:     e.Service.Service,
		Version:  version,
		Address:  address,
		Port:     e.Service.Port,
		Scheme:   e.Service.Meta[discovery.MetaScheme],
		Tags:     e.Service.Tags,
		Metadata: e.Service.Meta,
		Health:   health,
		LastSeen: now,
	}
}

// Compile-time checks.
var (
	_ discovery.Registry  = (*Provider)(nil)
	_ discovery.Discovery = (*Provider)(nil)
)
