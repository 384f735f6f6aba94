package node

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/microcosm/discovery"
	"github.com/kbukum/microcosm/errors"
)

func TestIdentityID(t *testing.T) {
	id := NewIdentity("A", "1.0", "h", 5000)
	assert.Equal(t, "http://h:5000", id.Address)
	assert.Equal(t, "A[1.0, http://h:5000]", id.ID())
	assert.Equal(t, id.ID(), id.String())

	v6 := NewIdentity("B", "2", "::1", 80)
	assert.Equal(t, "B[2, http://[::1]:80]", v6.ID())
}

func TestParseDependencies(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want []Dependency
	}{
		{"nil", nil, []Dependency{}},
		{"empty string", "", []Dependency{}},
		{"blank string", "   ", []Dependency{}},
		{"comma separated", "B:1.0, C:2.1", []Dependency{{"B", "1.0"}, {"C", "2.1"}}},
		{"default version", "B", []Dependency{{"B", DefaultDependencyVersion}}},
		{"string list", []string{"B:1.0", " C "}, []Dependency{{"B", "1.0"}, {"C", "1.0"}}},
		{"yaml list", []any{"A:1.0", "C"}, []Dependency{{"A", "1.0"}, {"C", "1.0"}}},
		{"empty list", []any{}, []Dependency{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDependencies(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseDependenciesPreservesOrder(t *testing.T) {
	got, err := ParseDependencies("C, A, B")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "C", got[0].Service)
	assert.Equal(t, "A", got[1].Service)
	assert.Equal(t, "B", got[2].Service)
}

func TestParseDependenciesInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"number", 42},
		{"float", 1.5},
		{"map", map[string]any{"B": "1.0"}},
		{"non-string entry", []any{"B", 3}},
		{"empty token", "B,,C"},
		{"trailing comma", "B,"},
		{"no service", ":1.0"},
		{"empty version", "B:"},
		{"too many colons", "B:1:2"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDependencies(tc.raw)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeConfiguration), "got %v", err)
			assert.True(t, errors.IsFatal(err))
		})
	}
}

func TestParseDependenciesNamesType(t *testing.T) {
	_, err := ParseDependencies(42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "int")
}

func TestDependencyFormatting(t *testing.T) {
	deps := []Dependency{{"B", "1.0"}, {"C", "2.1"}}
	assert.Equal(t, "B:1.0", deps[0].String())
	assert.Equal(t, "B[1.0]", deps[0].Descriptor())
	assert.Equal(t, "B:1.0, C:2.1", FormatDependencies(deps))
	assert.Equal(t, "", FormatDependencies(nil))
}

func validConfig() *Config {
	cfg := &Config{}
	cfg.Service = "A"
	cfg.Version = "1.0"
	return cfg
}

func TestConfigDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	assert.Equal(t, "0.0.0.0", cfg.HTTPServer.Address)
	assert.Equal(t, 5000, cfg.HTTPServer.Port)
	assert.Equal(t, 3*time.Second, cfg.Downstream.Timeout)
	assert.Equal(t, 4, cfg.Downstream.MaxConcurrency)
	assert.Equal(t, discovery.ProviderStatic, cfg.Discovery.Provider)
	assert.Equal(t, "none", cfg.Tracing.Exporter)
	assert.Equal(t, "prometheus", cfg.Metrics.Exporter)
	assert.Equal(t, "A", cfg.Tracing.ServiceName)
	assert.Nil(t, cfg.Discovery.ProviderConfig())
}

func TestConfigValidateParsesDependencies(t *testing.T) {
	cfg := validConfig()
	cfg.RawDependencies = "B:1.0, C"
	cfg.ApplyDefaults()

	assert.Empty(t, cfg.Dependencies())
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []Dependency{{"B", "1.0"}, {"C", "1.0"}}, cfg.Dependencies())
	assert.False(t, cfg.Foundational())

	deps := cfg.Dependencies()
	deps[0].Service = "Z"
	assert.Equal(t, "B", cfg.Dependencies()[0].Service, "declaration must not be mutable through the accessor")
}

func TestConfigValidateFoundational(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Foundational())
}

func TestConfigValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing service", func(c *Config) { c.Service = "" }},
		{"bad dependencies", func(c *Config) { c.RawDependencies = 7 }},
		{"bad port", func(c *Config) { c.HTTPServer.Port = 70000 }},
		{"bad concurrency", func(c *Config) { c.Downstream.MaxConcurrency = -1 }},
		{"bad tracing exporter", func(c *Config) { c.Tracing.Exporter = "zipkin" }},
		{"bad provider", func(c *Config) { c.Discovery.Provider = "etcd" }},
		{"bad consul scheme", func(c *Config) {
			c.Discovery.Provider = discovery.ProviderConsul
			c.Discovery.Consul.Scheme = "ftp"
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.ApplyDefaults()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeConfiguration), "got %v", err)
		})
	}
}

func TestConfigIdentityAndRegistration(t *testing.T) {
	cfg := validConfig()
	cfg.HTTPServer.Address = "127.0.0.1"
	cfg.HTTPServer.Port = 5001
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "A[1.0, http://127.0.0.1:5001]", cfg.Identity().ID())

	cfg.Discovery.AdvertiseAddress = "a.internal"
	assert.Equal(t, "A[1.0, http://a.internal:5001]", cfg.Identity().ID())

	reg := cfg.Registration()
	assert.Equal(t, "A", reg.Name)
	assert.Equal(t, "1.0", reg.Version)
	assert.Equal(t, "a.internal", reg.Address)
	assert.Equal(t, 5001, reg.Port)
	assert.Contains(t, reg.ID, "A-")
	assert.NotEqual(t, reg.ID, cfg.Registration().ID)
}

func TestConsulProviderConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Discovery.Provider = discovery.ProviderConsul
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost:8500", cfg.Discovery.Consul.Address)
	assert.NotNil(t, cfg.Discovery.ProviderConfig())
}
