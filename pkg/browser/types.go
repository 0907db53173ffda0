// pkg/browser/types.go
package browser

import (
	"errors"
	"time"
)

// Config defines browser session configuration
type Config struct {
	Enabled         bool          `yaml:"enabled" json:"enabled"`
	Headless        bool          `yaml:"headless" json:"headless"`
	UserDataDir     string        `yaml:"user_data_dir,omitempty" json:"user_data_dir,omitempty"`
	UserAgent       string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
	ViewportWidth   int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight  int           `yaml:"viewport_height" json:"viewport_height"`
	WaitForSelector string        `yaml:"wait_for_selector,omitempty" json:"wait_for_selector,omitempty"`
	WaitDelay       time.Duration `yaml:"wait_delay,omitempty" json:"wait_delay,omitempty"`
	DisableImages   bool          `yaml:"disable_images" json:"disable_images"`
	PoolSize        int           `yaml:"pool_size,omitempty" json:"pool_size,omitempty"`

	// RateLimit paces queued operations in operations per second.
	// Zero disables pacing.
	RateLimit float64 `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
	RateBurst int     `yaml:"rate_burst,omitempty" json:"rate_burst,omitempty"`
}

// DefaultConfig returns default browser session configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled:        false,
		Headless:       true,
		Timeout:        30 * time.Second,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		DisableImages:  true, // Faster loading
		PoolSize:       1,
	}
}

// Stats contains session statistics
type Stats struct {
	PagesLoaded      int           `json:"pages_loaded"`
	AverageLoadTime  time.Duration `json:"average_load_time"`
	NavigationErrors int           `json:"navigation_errors"`
	Fetches          int64         `json:"fetches"`
	FetchErrors      int64         `json:"fetch_errors"`
}

// Observer receives a callback for every element fetch the session runs.
// internal/monitoring provides a Prometheus-backed implementation.
type Observer interface {
	ObserveFetch(kind string, duration time.Duration, err error)
}

// Sentinel errors returned through fetch promises.
var (
	// ErrSessionClosed is returned for operations submitted after Close.
	ErrSessionClosed = errors.New("session is closed")

	// ErrNoSuchElement is returned when a selector matches no element.
	ErrNoSuchElement = errors.New("no element matches selector")

	// ErrNotNavigated is returned for fetches that run before a page
	// has been loaded successfully.
	ErrNotNavigated = errors.New("navigation has not completed successfully")

	// ErrInvalidSelector is returned for selectors that fail validation.
	ErrInvalidSelector = errors.New("invalid selector")
)
