package consul

import "fmt"

// Config holds Consul agent connection settings. It is the discovery.consul
// section of a node document.
type Config struct {
	// Address is the Consul agent address (default: localhost:8500).
	Address string `yaml:"address" mapstructure:"address"`

	// Scheme is the URI scheme (http/https).
	Scheme string `yaml:"scheme" mapstructure:"scheme"`

	// Datacenter to use. Empty means the agent's own datacenter.
	Datacenter string `yaml:"datacenter" mapstructure:"datacenter"`

	// Token is the ACL token for authentication.
	Token string `yaml:"token" mapstructure:"token"`

	// TLS configuration.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// TLSConfig holds TLS configuration for Consul connections.
type TLSConfig struct {
	Enabled            bool   `yaml:"enabled" mapstructure:"enabled"`
	CACert             string `yaml:"ca_cert" mapstructure:"ca_cert"`
	ClientCert         string `yaml:"client_cert" mapstructure:"client_cert"`
	ClientKey          string `yaml:"client_key" mapstructure:"client_key"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
	ServerName         string `yaml:"server_name" mapstructure:"server_name"`
}

// ApplyDefaults sets sensible defaults for Config.
func (c *Config) ApplyDefaults() {
	if c.Address == "" {
		c.Address = "localhost:8500"
	}
	if c.Scheme == "" {
		c.Scheme = "http"
	}
}

// Validate checks if the Consul configuration is valid.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("consul address is required")
	}
	if c.Scheme != "http" && c.Scheme != "https" {
		return fmt.Errorf("consul scheme must be 'http' or 'https', got '%s'", c.Scheme)
	}
	if c.TLS != nil && c.TLS.Enabled && c.Scheme != "https" {
		return fmt.Errorf("TLS enabled but scheme is not https")
	}
	return nil
}
