package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// NormalizeURL normalizes a URL for consistent comparison
func NormalizeURL(rawURL string) (string, error) {
	// Parse the URL
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	// Convert to lowercase host
	u.Host = strings.ToLower(u.Host)

	// Remove default ports
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = strings.TrimSuffix(u.Host, ":80")
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	// Sort query parameters for consistency
	if u.RawQuery != "" {
		values := u.Query()
		u.RawQuery = values.Encode()
	}

	// Remove trailing slash from path
	u.Path = strings.TrimSuffix(u.Path, "/")
	if u.Path == "" {
		u.Path = "/"
	}

	// Remove fragment
	u.Fragment = ""

	return u.String(), nil
}

// HashURL creates a hash of a URL, used to build stable run identifiers
func HashURL(url string) string {
	h := sha256.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}

// CleanFileName removes invalid characters from a filename
func CleanFileName(name string) string {
	// Remove or replace invalid filename characters
	re := regexp.MustCompile(`[<>:"/\\|?*]`)
	cleaned := re.ReplaceAllString(name, "_")

	// Trim spaces and dots
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.Trim(cleaned, ".")

	// Limit length
	if len(cleaned) > 200 {
		cleaned = cleaned[:200]
	}

	// Default if empty
	if cleaned == "" {
		cleaned = "report"
	}

	return cleaned
}

// TruncateString truncates a string to a maximum length
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

// GenerateReportFileName generates a filename based on suite name and timestamp
func GenerateReportFileName(suite string, format string) string {
	name := CleanFileName(suite)
	timestamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("%s_%s.%s", name, timestamp, format)
}

// SanitizeSelector cleans a CSS selector
func SanitizeSelector(selector string) string {
	// Remove excessive whitespace
	selector = strings.TrimSpace(selector)
	selector = regexp.MustCompile(`\s+`).ReplaceAllString(selector, " ")

	return selector
}
