// internal/config/edge_case_test.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromBytesEdgeCases(t *testing.T) {
	tests := []struct {
		name        string
		content     []byte
		expectError bool
		errorMsg    string
	}{
		{
			name:        "empty bytes",
			content:     []byte{},
			expectError: true,
			errorMsg:    "cannot be empty",
		},
		{
			name:        "nil bytes",
			content:     nil,
			expectError: true,
			errorMsg:    "cannot be empty",
		},
		{
			name:        "invalid yaml",
			content:     []byte("name: [unclosed"),
			expectError: true,
			errorMsg:    "yaml",
		},
		{
			name: "minimal valid config",
			content: []byte(`
name: minimal
`),
			expectError: false,
		},
		{
			name: "config with special characters",
			content: []byte(`
name: "special-chars_suite.123"
base_url: "https://example.com/path?param=value&other=123"
report:
  format: json
  path: "output-file.json"
`),
			expectError: false,
		},
		{
			name: "config with unicode characters",
			content: []byte(`
name: "люкс_测试_テスト"
base_url: "https://example.com"
report:
  format: json
  path: "出力.json"
`),
			expectError: false,
		},
		{
			name: "name exceeding length limit",
			content: []byte(`
name: "` + strings.Repeat("a", 200) + `"
`),
			expectError: true,
			errorMsg:    "suite name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadFromBytes(tt.content)

			if tt.expectError {
				if err == nil {
					t.Error("expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(strings.ToLower(err.Error()), strings.ToLower(tt.errorMsg)) {
					t.Errorf("expected error to contain %q, got: %v", tt.errorMsg, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			} else if config == nil {
				t.Error("config should not be nil when no error")
			}
		})
	}
}

func TestLoadFromFileEdgeCases(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		setupFile   func() string
		expectError bool
		errorMsg    string
	}{
		{
			name: "non-existent file",
			setupFile: func() string {
				return filepath.Join(tempDir, "non_existent.yaml")
			},
			expectError: true,
			errorMsg:    "not found",
		},
		{
			name: "empty file",
			setupFile: func() string {
				filePath := filepath.Join(tempDir, "empty.yaml")
				os.WriteFile(filePath, []byte{}, 0644)
				return filePath
			},
			expectError: true,
			errorMsg:    "cannot be empty",
		},
		{
			name: "directory instead of file",
			setupFile: func() string {
				dirPath := filepath.Join(tempDir, "directory")
				os.Mkdir(dirPath, 0755)
				return dirPath
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filePath := tt.setupFile()

			config, err := LoadFromFile(filePath)

			if tt.expectError {
				if err == nil {
					t.Error("expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(strings.ToLower(err.Error()), strings.ToLower(tt.errorMsg)) {
					t.Errorf("expected error to contain %q, got: %v", tt.errorMsg, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			} else if config == nil {
				t.Error("config should not be nil when no error")
			}
		})
	}
}

func TestConfigConcurrencyEdgeCases(t *testing.T) {
	configYAML := `
name: concurrent_test
base_url: https://example.com
report:
  format: json
`

	numGoroutines := 10
	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			config, err := LoadFromBytes([]byte(configYAML))
			if err != nil {
				results <- err
				return
			}
			if config == nil {
				results <- fmt.Errorf("config is nil")
				return
			}
			if config.Name != "concurrent_test" {
				results <- fmt.Errorf("unexpected config name: %s", config.Name)
				return
			}
			results <- nil
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		if err := <-results; err != nil {
			t.Errorf("goroutine %d failed: %v", i, err)
		}
	}
}

func TestEnvironmentVariableEdgeCases(t *testing.T) {
	tests := []struct {
		name        string
		envVars     map[string]string
		configYAML  string
		expectedVal string
	}{
		{
			name:    "undefined variable expands to empty",
			envVars: map[string]string{},
			configYAML: `
name: test
description: "host=${PAGEXPECT_UNDEFINED_VAR}"
`,
			expectedVal: "host=",
		},
		{
			name: "variable with special characters",
			envVars: map[string]string{
				"PAGEXPECT_SPECIAL_VAR": "https://example.com/path?param=value&other=123#fragment",
			},
			configYAML: `
name: test
description: "${PAGEXPECT_SPECIAL_VAR}"
`,
			expectedVal: "https://example.com/path?param=value&other=123#fragment",
		},
		{
			name: "multiple variables in one value",
			envVars: map[string]string{
				"PAGEXPECT_HOST":     "example.com",
				"PAGEXPECT_PORT":     "8080",
				"PAGEXPECT_PROTOCOL": "https",
			},
			configYAML: `
name: test
description: "${PAGEXPECT_PROTOCOL}://${PAGEXPECT_HOST}:${PAGEXPECT_PORT}"
`,
			expectedVal: "https://example.com:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				os.Setenv(key, value)
			}
			defer func() {
				for key := range tt.envVars {
					os.Unsetenv(key)
				}
			}()

			config, err := LoadFromBytes([]byte(tt.configYAML))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if config.Description != tt.expectedVal {
				t.Errorf("expected description %q, got %q", tt.expectedVal, config.Description)
			}
		})
	}
}
