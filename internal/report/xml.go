// internal/report/xml.go

package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// xmlRecord mirrors recordView with XML element names.
type xmlRecord struct {
	XMLName    xml.Name `xml:"record"`
	Suite      string   `xml:"suite"`
	Page       string   `xml:"page,omitempty"`
	Element    string   `xml:"element,omitempty"`
	Check      string   `xml:"check"`
	Status     string   `xml:"status"`
	Message    string   `xml:"message,omitempty"`
	DurationMS float64  `xml:"duration_ms"`
	Timestamp  string   `xml:"timestamp"`
}

// XMLWriter writes records as children of a single report element. The
// declaration and root start tag go out when the writer is created, the
// end tag when it is closed.
type XMLWriter struct {
	mu      sync.Mutex
	file    *os.File
	encoder *xml.Encoder
	closed  bool
}

// NewXMLWriter creates an XML writer that writes to the given file.
func NewXMLWriter(path string) (*XMLWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	w, err := newXMLWriter(file, file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

// NewXMLWriterTo creates an XML writer that writes to out. The caller
// keeps ownership of out.
func NewXMLWriterTo(out io.Writer) (*XMLWriter, error) {
	return newXMLWriter(out, nil)
}

func newXMLWriter(out io.Writer, file *os.File) (*XMLWriter, error) {
	if _, err := io.WriteString(out, xml.Header); err != nil {
		return nil, fmt.Errorf("failed to write XML declaration: %w", err)
	}

	encoder := xml.NewEncoder(out)
	encoder.Indent("", "  ")

	root := xml.StartElement{
		Name: xml.Name{Local: "report"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "generated"}, Value: time.Now().Format(time.RFC3339)},
		},
	}
	if err := encoder.EncodeToken(root); err != nil {
		return nil, fmt.Errorf("failed to write root element: %w", err)
	}

	return &XMLWriter{
		file:    file,
		encoder: encoder,
	}, nil
}

// Write encodes records as record elements under the open root.
func (w *XMLWriter) Write(records []Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	for _, record := range records {
		view := record.view()
		if err := w.encoder.Encode(xmlRecord{
			Suite:      view.Suite,
			Page:       view.Page,
			Element:    view.Element,
			Check:      view.Check,
			Status:     view.Status,
			Message:    view.Message,
			DurationMS: view.DurationMS,
			Timestamp:  view.Timestamp,
		}); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	return nil
}

// Close terminates the root element and flushes the underlying file.
func (w *XMLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.encoder.EncodeToken(xml.EndElement{Name: xml.Name{Local: "report"}}); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := w.encoder.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	if w.file != nil {
		if _, err := w.file.WriteString("\n"); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if err := w.file.Close(); err != nil {
			return fmt.Errorf("failed to close output file: %w", err)
		}
	}
	return nil
}
