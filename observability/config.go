package observability

import (
	"fmt"
	"slices"
	"time"
)

// Exporter names accepted by TracerConfig and MeterConfig.
const (
	ExporterNone       = "none"
	ExporterStdout     = "stdout"
	ExporterOTLP       = "otlp"
	ExporterPrometheus = "prometheus"
)

// TracerConfig configures the OpenTelemetry tracer.
type TracerConfig struct {
	// Exporter selects where spans go: none, stdout or otlp.
	Exporter string `yaml:"exporter" mapstructure:"exporter"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// Insecure allows insecure connections (for development).
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// SampleRate is the sampling rate (0.0 to 1.0).
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`

	ServiceName    string `yaml:"-" mapstructure:"-"`
	ServiceVersion string `yaml:"-" mapstructure:"-"`
	Environment    string `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults applies default values to tracer configuration.
func (c *TracerConfig) ApplyDefaults() {
	if c.Exporter == "" {
		c.Exporter = ExporterNone
	}
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
}

// Validate validates tracer configuration.
func (c *TracerConfig) Validate() error {
	valid := []string{ExporterNone, ExporterStdout, ExporterOTLP}
	if !slices.Contains(valid, c.Exporter) {
		return fmt.Errorf("tracing.exporter must be one of %v (got: %s)", valid, c.Exporter)
	}
	return nil
}

// DefaultTracerConfig returns sensible defaults for development.
func DefaultTracerConfig(serviceName string) TracerConfig {
	c := TracerConfig{ServiceName: serviceName, Insecure: true}
	c.ApplyDefaults()
	return c
}

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// Exporter selects the reader: prometheus (pull via /metrics), otlp (push) or none.
	Exporter string `yaml:"exporter" mapstructure:"exporter"`
	// Endpoint is the OTLP HTTP endpoint host:port, used by the otlp exporter.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// Insecure allows insecure connections (for development).
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the otlp export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	ServiceName    string `yaml:"-" mapstructure:"-"`
	ServiceVersion string `yaml:"-" mapstructure:"-"`
	Environment    string `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults applies default values to meter configuration.
func (c *MeterConfig) ApplyDefaults() {
	if c.Exporter == "" {
		c.Exporter = ExporterPrometheus
	}
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.Interval == 0 {
		c.Interval = 15 * time.Second
	}
}

// Validate validates meter configuration.
func (c *MeterConfig) Validate() error {
	valid := []string{ExporterNone, ExporterPrometheus, ExporterOTLP}
	if !slices.Contains(valid, c.Exporter) {
		return fmt.Errorf("metrics.exporter must be one of %v (got: %s)", valid, c.Exporter)
	}
	if c.Interval < 0 {
		return fmt.Errorf("metrics.interval must not be negative")
	}
	return nil
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	c := MeterConfig{ServiceName: serviceName, Insecure: true}
	c.ApplyDefaults()
	return c
}
