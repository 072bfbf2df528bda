package telemetry

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultServiceName identifies this process in exported telemetry
	DefaultServiceName = "osb-git-store"

	// DefaultEndpoint is the OTLP/HTTP collector address
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling samples every trace; a store command produces only a few spans
	DefaultSampling = 1.0

	// DefaultExportInterval is how often metrics are pushed while the process runs.
	// Pending metrics are always flushed on Shutdown.
	DefaultExportInterval = 30 * time.Second
)

// Config controls export of traces and metrics to an OTLP collector
type Config struct {
	// Enabled turns telemetry on. When false every provider is a no-op.
	Enabled bool `yaml:"enabled"`

	// ServiceName overrides DefaultServiceName
	ServiceName string `yaml:"serviceName,omitempty"`

	// Endpoint is the collector address as host:port
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure sends telemetry over plain HTTP
	Insecure bool `yaml:"insecure,omitempty"`

	Tracing *TracingConfig `yaml:"tracing,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig controls trace export
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampling is the ratio of traces kept, between 0 and 1. Zero selects DefaultSampling.
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig controls metric export
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// ExportInterval overrides DefaultExportInterval
	ExportInterval time.Duration `yaml:"exportInterval,omitempty"`
}

func (c *Config) serviceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

func (c *Config) endpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

func (c *Config) tracingEnabled() bool {
	return c != nil && c.Enabled && c.Tracing != nil && c.Tracing.Enabled
}

func (c *Config) metricsEnabled() bool {
	return c != nil && c.Enabled && c.Metrics != nil && c.Metrics.Enabled
}

func (c *TracingConfig) sampling() float64 {
	if c.Sampling == 0 {
		return DefaultSampling
	}
	return c.Sampling
}

func (c *MetricsConfig) exportInterval() time.Duration {
	if c.ExportInterval <= 0 {
		return DefaultExportInterval
	}
	return c.ExportInterval
}

// Validate checks the telemetry configuration. A nil or disabled config is valid.
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	if c.Tracing != nil && (c.Tracing.Sampling < 0 || c.Tracing.Sampling > 1) {
		errs = append(errs, fmt.Errorf("tracing.sampling must be between 0.0 and 1.0, got %f", c.Tracing.Sampling))
	}
	if c.Metrics != nil && c.Metrics.ExportInterval < 0 {
		errs = append(errs, fmt.Errorf("metrics.exportInterval must not be negative, got %s", c.Metrics.ExportInterval))
	}
	return errors.Join(errs...)
}
