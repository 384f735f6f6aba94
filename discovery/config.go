package discovery

import (
	"fmt"
	"time"
)

const (
	ProviderStatic = "static"
	ProviderConsul = "consul"
)

// Config holds service discovery and registration configuration.
// Provider-specific settings (e.g. consul.Config) travel separately.
type Config struct {
	// Provider selects the discovery backend: "static" or "consul".
	Provider string `yaml:"provider" mapstructure:"provider"`

	// AdvertiseAddress is the host other nodes use to reach this one.
	// Defaults to the HTTP bind address.
	AdvertiseAddress string `yaml:"advertise_address" mapstructure:"advertise_address"`

	// HealthCheckPath is the HTTP path the backend polls.
	HealthCheckPath string `yaml:"health_check_path" mapstructure:"health_check_path"`

	// HealthCheckInterval controls how often health is polled.
	HealthCheckInterval time.Duration `yaml:"health_check_interval" mapstructure:"health_check_interval"`

	// HealthCheckTimeout is the timeout for a single health check.
	HealthCheckTimeout time.Duration `yaml:"health_check_timeout" mapstructure:"health_check_timeout"`

	// DeregisterAfter removes the service after being critical for this duration.
	DeregisterAfter time.Duration `yaml:"deregister_after" mapstructure:"deregister_after"`

	// CacheTTL is how long discovered instances are reused. Negative disables.
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`

	// Strategy picks among compatible instances: "round_robin" or "random".
	Strategy LoadBalancingStrategy `yaml:"strategy" mapstructure:"strategy"`

	// Tags are extra tags attached to the registration.
	Tags []string `yaml:"tags" mapstructure:"tags"`

	// StaticEndpoints provides endpoints for the static provider.
	StaticEndpoints []StaticEndpoint `yaml:"static_endpoints" mapstructure:"static_endpoints"`
}

// StaticEndpoint describes a statically configured service endpoint.
type StaticEndpoint struct {
	Name    string `yaml:"name" mapstructure:"name" validate:"required"`
	Version string `yaml:"version" mapstructure:"version" validate:"required"`
	Address string `yaml:"address" mapstructure:"address" validate:"required"`
	Port    int    `yaml:"port" mapstructure:"port" validate:"gt=0,lte=65535"`
	Scheme  string `yaml:"scheme" mapstructure:"scheme"`
}

// ApplyDefaults fills zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderStatic
	}
	if c.HealthCheckPath == "" {
		c.HealthCheckPath = "/health"
	}
	if c.HealthCheckInterval == 0 {
		c.HealthCheckInterval = 10 * time.Second
	}
	if c.HealthCheckTimeout == 0 {
		c.HealthCheckTimeout = 5 * time.Second
	}
	if c.DeregisterAfter == 0 {
		c.DeregisterAfter = time.Minute
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Second
	}
	if c.Strategy == "" {
		c.Strategy = StrategyRoundRobin
	}
}

// Validate checks that required fields are present and consistent.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderStatic, ProviderConsul:
	default:
		return fmt.Errorf("unsupported discovery provider %q", c.Provider)
	}
	switch c.Strategy {
	case StrategyRoundRobin, StrategyRandom:
	default:
		return fmt.Errorf("unsupported discovery strategy %q", c.Strategy)
	}
	if c.HealthCheckInterval < 0 || c.HealthCheckTimeout < 0 {
		return fmt.Errorf("health check durations must be non-negative")
	}
	return nil
}
