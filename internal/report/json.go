// internal/report/json.go

package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// JSONWriter streams records as one JSON array. The array is opened on
// the first record and closed by Close, so batches from successive
// Write calls land in a single document.
type JSONWriter struct {
	mu      sync.Mutex
	file    *os.File
	buf     *bufio.Writer
	started bool
	closed  bool
}

// NewJSONWriter creates a JSON writer that writes to the given file.
func NewJSONWriter(path string) (*JSONWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &JSONWriter{
		file: file,
		buf:  bufio.NewWriter(file),
	}, nil
}

// NewJSONWriterTo creates a JSON writer that writes to w. The caller
// keeps ownership of w.
func NewJSONWriterTo(w io.Writer) *JSONWriter {
	return &JSONWriter{
		buf: bufio.NewWriter(w),
	}
}

// Write appends records to the JSON array.
func (w *JSONWriter) Write(records []Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	for _, record := range records {
		data, err := json.MarshalIndent(record.view(), "  ", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}

		if !w.started {
			if _, err := w.buf.WriteString("[\n  "); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			w.started = true
		} else {
			if _, err := w.buf.WriteString(",\n  "); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}

		if _, err := w.buf.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	return nil
}

// Close terminates the JSON array and flushes the underlying file.
func (w *JSONWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	terminator := "[]\n"
	if w.started {
		terminator = "\n]\n"
	}
	if _, err := w.buf.WriteString(terminator); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return fmt.Errorf("failed to close output file: %w", err)
		}
	}
	return nil
}
