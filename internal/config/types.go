// internal/config/types.go

// Package config provides configuration types and loading for assertion
// suites: which browser settings to run with, where check results are
// reported, and how the monitoring surface is exposed.
package config

import (
	"time"

	"github.com/valpere/PageXpect/pkg/browser"
)

// SuiteConfig is the top-level configuration for one assertion suite.
type SuiteConfig struct {
	// Name identifies this suite
	Name string `yaml:"name" json:"name"`

	// Version of the configuration format
	Version string `yaml:"version,omitempty" json:"version,omitempty"`

	// Description provides human-readable information about this suite
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// BaseURL is the page URL the suite runs against
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	// AllowedHosts restricts navigation targets when non-empty.
	// Entries support the "*.example.com" wildcard form.
	AllowedHosts []string `yaml:"allowed_hosts,omitempty" json:"allowed_hosts,omitempty"`

	// Browser holds driver settings; nil means offline-only use
	Browser *browser.Config `yaml:"browser,omitempty" json:"browser,omitempty"`

	// Report configures where check outcomes are written
	Report ReportConfig `yaml:"report" json:"report"`

	// Monitoring configures metrics and the dashboard endpoint
	Monitoring MonitoringConfig `yaml:"monitoring,omitempty" json:"monitoring,omitempty"`

	// LogLevel controls logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// ReportConfig defines the report sink for check outcomes.
type ReportConfig struct {
	// Format selects the sink: json, csv, yaml, xml, sqlite, postgres,
	// mysql, mongodb or excel
	Format string `yaml:"format" json:"format"`

	// Path is the output file for file-based sinks
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// DSN is the connection string for database sinks
	DSN string `yaml:"dsn,omitempty" json:"dsn,omitempty"`

	// Table is the table name for SQL sinks
	Table string `yaml:"table,omitempty" json:"table,omitempty"`

	// Database and Collection address MongoDB sinks
	Database   string `yaml:"database,omitempty" json:"database,omitempty"`
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`

	// OnConflict selects the SQL conflict strategy: error, ignore or
	// replace
	OnConflict string `yaml:"on_conflict,omitempty" json:"on_conflict,omitempty"`

	// BufferSize batches records before a write
	BufferSize int `yaml:"buffer_size,omitempty" json:"buffer_size,omitempty"`

	// Retry controls sink write retries
	Retry RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty"`
}

// RetryConfig defines retry behavior for report sink writes.
type RetryConfig struct {
	// Attempts is the maximum number of tries, first included
	Attempts int `yaml:"attempts" json:"attempts"`

	// Delay between tries
	Delay time.Duration `yaml:"delay" json:"delay"`

	// Backoff strategy (linear, exponential)
	Backoff string `yaml:"backoff" json:"backoff"`
}

// MonitoringConfig defines metrics and dashboard settings.
type MonitoringConfig struct {
	// Enabled turns on metrics collection
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Listen is the dashboard bind address, e.g. ":9090"
	Listen string `yaml:"listen,omitempty" json:"listen,omitempty"`

	// Namespace prefixes metric names
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}
