// internal/report/yaml.go

package report

import (
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// YAMLWriter writes each batch of records as one YAML document holding
// a sequence of record mappings.
type YAMLWriter struct {
	mu      sync.Mutex
	file    *os.File
	encoder *yaml.Encoder
	closed  bool
}

// NewYAMLWriter creates a YAML writer that writes to the given file.
func NewYAMLWriter(path string) (*YAMLWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	return &YAMLWriter{
		file:    file,
		encoder: encoder,
	}, nil
}

// NewYAMLWriterTo creates a YAML writer that writes to w. The caller
// keeps ownership of w.
func NewYAMLWriterTo(w io.Writer) *YAMLWriter {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	return &YAMLWriter{
		encoder: encoder,
	}
}

// Write encodes records as one YAML document.
func (w *YAMLWriter) Write(records []Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	if len(records) == 0 {
		return nil
	}

	views := make([]recordView, 0, len(records))
	for _, record := range records {
		views = append(views, record.view())
	}

	if err := w.encoder.Encode(views); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return nil
}

// Close flushes the encoder and closes the underlying file.
func (w *YAMLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.encoder.Close(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return fmt.Errorf("failed to close output file: %w", err)
		}
	}
	return nil
}
