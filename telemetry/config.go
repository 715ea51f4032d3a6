/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package telemetry

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error, disabled).
	Level string `yaml:"level" env:"LEVEL" validate:"omitempty,oneof=trace debug info warn error disabled"`

	// Format specifies the log format (console, json).
	Format string `yaml:"format" env:"FORMAT" validate:"omitempty,oneof=console json"`

	// Output specifies where logs are written (stdout, stderr, file path).
	Output string `yaml:"output" env:"OUTPUT"`

	// EnableCaller adds file:line caller information to logs.
	EnableCaller bool `yaml:"enableCaller" env:"ENABLE_CALLER"`
}

// MetricsConfig configures metrics collection.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// Namespace is the metrics namespace prefix.
	Namespace string `yaml:"namespace" env:"NAMESPACE"`

	// DefaultHistogramBuckets are the default latency buckets in seconds.
	DefaultHistogramBuckets []float64 `yaml:"buckets" env:"BUCKETS"`
}

// DefaultLoggingConfig returns the logging defaults of the command line tools.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  "info",
		Format: "console",
		Output: "stderr",
	}
}

// DefaultMetricsConfig returns metrics disabled under the "persistence" namespace.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "persistence",
	}
}
