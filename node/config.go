package node

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	cfgpkg "github.com/kbukum/microcosm/config"
	"github.com/kbukum/microcosm/discovery"
	"github.com/kbukum/microcosm/discovery/consul"
	"github.com/kbukum/microcosm/errors"
	"github.com/kbukum/microcosm/observability"
	"github.com/kbukum/microcosm/resilience"
	"github.com/kbukum/microcosm/server"
	"github.com/kbukum/microcosm/validation"
)

// Config is the YAML document a node is started from.
//
//	service: A
//	version: "1.0"
//	dependencies: "B:1.0, C"
//	http_server: {address: 0.0.0.0, port: 5000}
type Config struct {
	cfgpkg.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	// RawDependencies is the declaration as loaded: either a comma separated string or a list of strings.
	RawDependencies any `yaml:"dependencies" mapstructure:"dependencies"`

	HTTPServer server.Config              `yaml:"http_server" mapstructure:"http_server"`
	Downstream DownstreamConfig           `yaml:"downstream" mapstructure:"downstream"`
	Tracing    observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics    observability.MeterConfig  `yaml:"metrics" mapstructure:"metrics"`
	Discovery  DiscoveryConfig            `yaml:"discovery" mapstructure:"discovery"`

	deps []Dependency
}

// DownstreamConfig bounds the calls a node makes to its dependencies.
type DownstreamConfig struct {
	// Timeout applies to each dependency call on its own.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	// MaxConcurrency is how many dependency calls run at once. 1 is sequential.
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency" validate:"gte=1,lte=64"`
	// MaxBodyBytes caps a downstream response body.
	MaxBodyBytes int64 `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gt=0"`

	CircuitBreaker resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
}

// DiscoveryConfig is the discovery section: provider-neutral settings at
// the top level and the consul agent settings under "consul".
type DiscoveryConfig struct {
	discovery.Config `yaml:",inline" mapstructure:",squash"`

	Consul consul.Config `yaml:"consul" mapstructure:"consul"`
}

// ProviderConfig returns the provider-specific settings for the selected provider.
func (c *DiscoveryConfig) ProviderConfig() any {
	if c.Provider == discovery.ProviderConsul {
		return c.Consul
	}
	return nil
}

// ApplyDefaults fills unset fields across all sections.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.HTTPServer.ApplyDefaults()

	if c.Downstream.Timeout == 0 {
		c.Downstream.Timeout = 3 * time.Second
	}
	if c.Downstream.MaxConcurrency == 0 {
		c.Downstream.MaxConcurrency = 4
	}
	if c.Downstream.MaxBodyBytes == 0 {
		c.Downstream.MaxBodyBytes = 4 << 20
	}
	c.Downstream.CircuitBreaker.ApplyDefaults()

	c.Tracing.ApplyDefaults()
	c.Tracing.ServiceName = c.Service
	c.Tracing.ServiceVersion = c.Version
	c.Tracing.Environment = c.Environment

	c.Metrics.ApplyDefaults()
	c.Metrics.ServiceName = c.Service
	c.Metrics.ServiceVersion = c.Version
	c.Metrics.Environment = c.Environment

	c.Discovery.ApplyDefaults()
	if c.Discovery.Provider == discovery.ProviderConsul {
		c.Discovery.Consul.ApplyDefaults()
	}
}

// Validate checks every section and parses the dependency declaration.
// All failures are CONFIGURATION_ERRORs.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return errors.Configuration("", err.Error()).WithCause(err)
	}
	if err := validation.Validate(c); err != nil {
		return errors.Configuration("", err.Error()).WithCause(err)
	}

	sections := []section{
		{"http_server", c.HTTPServer.Validate},
		{"tracing", c.Tracing.Validate},
		{"metrics", c.Metrics.Validate},
		{"discovery", c.Discovery.Validate},
	}
	if c.Discovery.Provider == discovery.ProviderConsul {
		sections = append(sections, section{"discovery.consul", c.Discovery.Consul.Validate})
	}
	for _, s := range sections {
		if err := s.validate(); err != nil {
			return errors.Configuration(s.name, err.Error()).WithCause(err)
		}
	}

	deps, err := ParseDependencies(c.RawDependencies)
	if err != nil {
		return err
	}
	c.deps = deps
	return nil
}

type section struct {
	name     string
	validate func() error
}

// Dependencies returns the parsed declaration. It is empty until Validate succeeds.
func (c *Config) Dependencies() []Dependency {
	return slices.Clone(c.deps)
}

// Foundational reports whether the node has no dependencies.
func (c *Config) Foundational() bool {
	return len(c.deps) == 0
}

// AdvertiseHost is the host other nodes use to reach this one.
func (c *Config) AdvertiseHost() string {
	if c.Discovery.AdvertiseAddress != "" {
		return c.Discovery.AdvertiseAddress
	}
	return c.HTTPServer.Address
}

// Identity returns the node identity built from service, version and the
// advertised HTTP address.
func (c *Config) Identity() Identity {
	return NewIdentity(c.Service, c.Version, c.AdvertiseHost(), c.HTTPServer.Port)
}

// Registration describes this node to the discovery backend. Each call
// yields a fresh instance ID.
func (c *Config) Registration() *discovery.ServiceInfo {
	return &discovery.ServiceInfo{
		ID:      fmt.Sprintf("%s-%s", c.Service, uuid.NewString()),
		Name:    c.Service,
		Version: c.Version,
		Address: c.AdvertiseHost(),
		Port:    c.HTTPServer.Port,
		Scheme:  "http",
		Metadata: map[string]string{
			"environment": c.Environment,
		},
	}
}
