// internal/report/csv.go

package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"
)

// CSVWriter writes records as comma-separated rows with a fixed header.
type CSVWriter struct {
	mu          sync.Mutex
	file        *os.File
	csv         *csv.Writer
	wroteHeader bool
	closed      bool
}

// NewCSVWriter creates a CSV writer that writes to the given file.
func NewCSVWriter(path string) (*CSVWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &CSVWriter{
		file: file,
		csv:  csv.NewWriter(file),
	}, nil
}

// NewCSVWriterTo creates a CSV writer that writes to w. The caller
// keeps ownership of w.
func NewCSVWriterTo(w io.Writer) *CSVWriter {
	return &CSVWriter{
		csv: csv.NewWriter(w),
	}
}

// Write appends records, emitting the header row before the first one.
func (w *CSVWriter) Write(records []Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	if !w.wroteHeader && len(records) > 0 {
		if err := w.csv.Write(recordColumns); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		w.wroteHeader = true
	}

	for _, record := range records {
		if err := w.csv.Write(record.fieldStrings()); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	return nil
}

// Close flushes buffered rows and closes the underlying file.
func (w *CSVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return fmt.Errorf("failed to close output file: %w", err)
		}
	}
	return nil
}
