// internal/config/validation.go
package config

import (
	"fmt"
	"strings"

	"github.com/valpere/PageXpect/internal/utils"
)

// Validate checks the configuration and returns a combined error when
// anything is wrong.
func (sc *SuiteConfig) Validate() error {
	result := sc.ValidateWithDetails()
	if result.HasErrors() {
		return formatValidationError(result)
	}
	return nil
}

// ValidateWithDetails runs every check and returns the full result, one
// entry per problem.
func (sc *SuiteConfig) ValidateWithDetails() *utils.ValidationResult {
	result := &utils.ValidationResult{Valid: true}

	sc.validateBasicFields(result)
	sc.validateURL(result)
	sc.validateReport(result)
	sc.validateBrowser(result)

	result.Valid = !result.HasErrors()
	return result
}

// validateBasicFields checks required top-level fields
func (sc *SuiteConfig) validateBasicFields(result *utils.ValidationResult) {
	nameValidator := &utils.StringValidator{Required: true, MaxLength: 128}
	if err := nameValidator.Validate(sc.Name); err != nil {
		msg := "suite name " + err.Message
		if err.Code == "REQUIRED" {
			msg = "suite name is required"
		}
		result.AddError("name", sc.Name, msg, err.Code)
	}

	if sc.LogLevel != "" {
		levelValidator := &utils.StringValidator{
			AllowedValues: []string{"debug", "info", "warn", "error"},
		}
		if err := levelValidator.Validate(strings.ToLower(sc.LogLevel)); err != nil {
			result.AddError("log_level", sc.LogLevel, err.Message, err.Code)
		}
	}
}

// validateURL checks the base URL and host allow-list
func (sc *SuiteConfig) validateURL(result *utils.ValidationResult) {
	if sc.BaseURL == "" {
		return
	}

	urlValidator := &utils.URLValidator{
		Required:       true,
		AllowedSchemes: []string{"http", "https"},
		AllowedHosts:   sc.AllowedHosts,
	}
	if err := urlValidator.Validate(sc.BaseURL); err != nil {
		result.AddError("base_url", sc.BaseURL, err.Message, err.Code)
	}
}

// validateReport checks the report sink configuration
func (sc *SuiteConfig) validateReport(result *utils.ValidationResult) {
	if sc.Report.Format == "" {
		result.AddError("report.format", "", "report format is required", "REQUIRED")
		return
	}

	if !utils.ValidReportFormat(sc.Report.Format) {
		result.AddError("report.format", sc.Report.Format,
			"unsupported report format", "INVALID_VALUE")
		return
	}

	// File formats fall back to stdout when no path is set; sqlite
	// needs a database file and the server sinks need a DSN.
	switch strings.ToLower(sc.Report.Format) {
	case "sqlite":
		if sc.Report.Path == "" {
			result.AddError("report.path", "",
				"database file path is required for sqlite reports", "REQUIRED")
		}
	case "postgres", "mysql", "mongodb":
		if sc.Report.DSN == "" {
			result.AddError("report.dsn", "",
				fmt.Sprintf("connection string is required for %s reports", sc.Report.Format),
				"REQUIRED")
		}
	}

	if sc.Report.OnConflict != "" {
		conflictValidator := &utils.StringValidator{
			AllowedValues: []string{"error", "ignore", "replace"},
		}
		if err := conflictValidator.Validate(sc.Report.OnConflict); err != nil {
			result.AddError("report.on_conflict", sc.Report.OnConflict, err.Message, err.Code)
		}
	}

	if sc.Report.Retry.Attempts < 0 {
		result.AddError("report.retry.attempts",
			fmt.Sprintf("%d", sc.Report.Retry.Attempts),
			"retry attempts cannot be negative", "INVALID_VALUE")
	}
}

// validateBrowser checks driver settings when a browser is configured
func (sc *SuiteConfig) validateBrowser(result *utils.ValidationResult) {
	if sc.Browser == nil {
		return
	}

	if sc.Browser.Timeout < 0 {
		result.AddError("browser.timeout", sc.Browser.Timeout.String(),
			"timeout cannot be negative", "INVALID_VALUE")
	}

	if sc.Browser.ViewportWidth < 0 || sc.Browser.ViewportHeight < 0 {
		result.AddError("browser.viewport",
			fmt.Sprintf("%dx%d", sc.Browser.ViewportWidth, sc.Browser.ViewportHeight),
			"viewport dimensions cannot be negative", "INVALID_VALUE")
	}

	if sc.Browser.WaitForSelector != "" {
		selectorValidator := &utils.SelectorValidator{Required: true}
		if err := selectorValidator.Validate(sc.Browser.WaitForSelector); err != nil {
			result.AddError("browser.wait_for_selector", sc.Browser.WaitForSelector,
				err.Message, err.Code)
		}
	}

	if sc.Browser.RateLimit < 0 {
		result.AddError("browser.rate_limit",
			fmt.Sprintf("%g", sc.Browser.RateLimit),
			"rate limit cannot be negative", "INVALID_VALUE")
	}

	if sc.Browser.PoolSize < 0 {
		result.AddError("browser.pool_size",
			fmt.Sprintf("%d", sc.Browser.PoolSize),
			"pool size cannot be negative", "INVALID_VALUE")
	}
}

// formatValidationError creates a comprehensive error message
func formatValidationError(result *utils.ValidationResult) error {
	var errorMsg strings.Builder

	errorMsg.WriteString("configuration validation failed:\n")

	for i, err := range result.Errors {
		errorMsg.WriteString(fmt.Sprintf("  %d. %s", i+1, err.Message))
		if err.Field != "" {
			errorMsg.WriteString(fmt.Sprintf(" (field: %s)", err.Field))
		}
		if err.Value != "" {
			errorMsg.WriteString(fmt.Sprintf(" (value: %s)", err.Value))
		}
		errorMsg.WriteString("\n")
	}

	// Validation failures are caller mistakes, not library bugs, so no
	// stack trace.
	return utils.NewError(utils.ErrCodeInvalidConfig, strings.TrimRight(errorMsg.String(), "\n")).
		WithoutStackTrace().
		Build()
}
