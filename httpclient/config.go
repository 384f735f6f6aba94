package httpclient

import (
	"fmt"
	"time"
)

const (
	defaultTimeout      = 3 * time.Second
	defaultMaxBodyBytes = 4 << 20
)

// Config configures the HTTP client.
type Config struct {
	// Timeout bounds each request end to end. Defaults to 3s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// MaxBodyBytes caps how much of a response body is read. Defaults to 4 MiB.
	MaxBodyBytes int64 `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = defaultMaxBodyBytes
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("httpclient: max_body_bytes must be positive")
	}
	return nil
}
