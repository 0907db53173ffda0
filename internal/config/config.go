// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/valpere/PageXpect/internal/utils"
	"github.com/valpere/PageXpect/pkg/browser"
)

// LoadFromFile loads a suite configuration from a YAML file
func LoadFromFile(filename string) (*SuiteConfig, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, utils.NewError(utils.ErrCodeMissingConfig,
			fmt.Sprintf("configuration file not found: %s", filename)).WithoutStackTrace().Build()
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %v", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads a suite configuration from YAML bytes
func LoadFromBytes(data []byte) (*SuiteConfig, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	// Substitute environment variables
	expandedData := expandEnvironmentVariables(string(data))

	var config SuiteConfig
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeConfigSyntax, "failed to parse YAML configuration")
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}

	return &config, nil
}

// LoadFromReader loads a suite configuration from an io.Reader
func LoadFromReader(reader io.Reader) (*SuiteConfig, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %v", err)
	}

	return LoadFromBytes(data)
}

// SaveToFile saves a suite configuration to a YAML file
func SaveToFile(config *SuiteConfig, filename string) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %v", err)
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %v", err)
	}

	return nil
}

// SaveToWriter saves a suite configuration to an io.Writer
func SaveToWriter(config *SuiteConfig, writer io.Writer) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if writer == nil {
		return fmt.Errorf("writer cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %v", err)
	}

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write configuration: %v", err)
	}

	return nil
}

// MergeConfigs merges multiple configurations, with later configs
// overriding earlier ones
func MergeConfigs(configs ...*SuiteConfig) (*SuiteConfig, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("at least one configuration is required")
	}

	if configs[0] == nil {
		return nil, fmt.Errorf("base configuration cannot be nil")
	}

	merged := *configs[0]

	for i := 1; i < len(configs); i++ {
		if configs[i] == nil {
			continue
		}

		mergeConfig(&merged, configs[i])
	}

	applyDefaults(&merged)

	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("merged configuration is invalid: %v", err)
	}

	return &merged, nil
}

// GenerateTemplate generates a template configuration for the specified
// type
func GenerateTemplate(templateType string) SuiteConfig {
	switch strings.ToLower(templateType) {
	case "monitored":
		return generateMonitoredTemplate()
	case "database":
		return generateDatabaseTemplate()
	case "basic":
		return generateBasicTemplate()
	default:
		return generateBasicTemplate()
	}
}

// Helper functions

// expandEnvironmentVariables substitutes environment variables in the
// configuration
func expandEnvironmentVariables(content string) string {
	return os.ExpandEnv(content)
}

// applyDefaults applies default values to the configuration
func applyDefaults(config *SuiteConfig) {
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	if config.Report.Format == "" {
		config.Report.Format = "json"
	}

	if config.Report.BufferSize == 0 {
		config.Report.BufferSize = 100
	}

	if config.Report.Table == "" {
		config.Report.Table = "check_results"
	}

	if config.Report.OnConflict == "" {
		config.Report.OnConflict = "error"
	}

	if config.Report.Retry.Attempts == 0 {
		config.Report.Retry.Attempts = 3
	}

	if config.Report.Retry.Delay == 0 {
		config.Report.Retry.Delay = 1 * time.Second
	}

	if config.Report.Retry.Backoff == "" {
		config.Report.Retry.Backoff = "exponential"
	}

	if config.Monitoring.Enabled {
		if config.Monitoring.Listen == "" {
			config.Monitoring.Listen = ":9090"
		}
		if config.Monitoring.Namespace == "" {
			config.Monitoring.Namespace = "pagexpect"
		}
	}

	if config.Browser != nil {
		if config.Browser.Timeout == 0 {
			config.Browser.Timeout = 30 * time.Second
		}
		if config.Browser.ViewportWidth == 0 {
			config.Browser.ViewportWidth = 1920
		}
		if config.Browser.ViewportHeight == 0 {
			config.Browser.ViewportHeight = 1080
		}
		if config.Browser.PoolSize == 0 {
			config.Browser.PoolSize = 1
		}
	}
}

// mergeConfig merges source configuration into target
func mergeConfig(target, source *SuiteConfig) {
	if source.Name != "" {
		target.Name = source.Name
	}
	if source.Version != "" {
		target.Version = source.Version
	}
	if source.Description != "" {
		target.Description = source.Description
	}
	if source.BaseURL != "" {
		target.BaseURL = source.BaseURL
	}
	if len(source.AllowedHosts) > 0 {
		target.AllowedHosts = source.AllowedHosts
	}
	if source.Browser != nil {
		target.Browser = source.Browser
	}
	if source.Report.Format != "" {
		target.Report = source.Report
	}
	if source.Monitoring.Enabled {
		target.Monitoring = source.Monitoring
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
}

// Template generation functions

func generateBasicTemplate() SuiteConfig {
	return SuiteConfig{
		Name:    "basic_suite",
		BaseURL: "https://example.com",
		Browser: &browser.Config{
			Enabled:  true,
			Headless: true,
		},
		Report: ReportConfig{
			Format: "json",
			Path:   "results.json",
		},
		LogLevel: "info",
	}
}

func generateMonitoredTemplate() SuiteConfig {
	config := generateBasicTemplate()
	config.Name = "monitored_suite"
	config.Monitoring = MonitoringConfig{
		Enabled:   true,
		Listen:    ":9090",
		Namespace: "pagexpect",
	}
	return config
}

func generateDatabaseTemplate() SuiteConfig {
	config := generateBasicTemplate()
	config.Name = "database_suite"
	config.Report = ReportConfig{
		Format: "sqlite",
		Path:   "results.db",
		Table:  "check_results",
	}
	return config
}
