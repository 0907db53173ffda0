// internal/report/excel.go

package report

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/xuri/excelize/v2"
)

// ExcelOptions configures the Excel sink.
type ExcelOptions struct {
	// Path is the .xlsx file written on Close.
	Path string

	// Sheet receives the records. Defaults to "Checks".
	Sheet string
}

// excelColumnWidths aligns with recordColumns.
var excelColumnWidths = []float64{20, 30, 25, 20, 10, 50, 12, 22}

// ExcelWriter collects records into a worksheet and saves the workbook
// when closed.
type ExcelWriter struct {
	mu     sync.Mutex
	file   *excelize.File
	path   string
	sheet  string
	row    int
	closed bool
}

// NewExcelWriter creates a workbook with a styled header row. Nothing
// touches the filesystem until Close.
func NewExcelWriter(options ExcelOptions) (*ExcelWriter, error) {
	if options.Path == "" {
		return nil, fmt.Errorf("Excel file path is required")
	}
	if options.Sheet == "" {
		options.Sheet = "Checks"
	}

	file := excelize.NewFile()
	if defaultSheet := file.GetSheetName(0); defaultSheet != options.Sheet {
		if err := file.SetSheetName(defaultSheet, options.Sheet); err != nil {
			return nil, fmt.Errorf("failed to rename sheet: %w", err)
		}
	}

	w := &ExcelWriter{
		file:  file,
		path:  options.Path,
		sheet: options.Sheet,
		row:   1,
	}

	if err := w.writeHeader(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *ExcelWriter) writeHeader() error {
	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 12,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E0E0E0"},
			Pattern: 1,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range recordColumns {
		cell := excelColumnName(col+1) + strconv.Itoa(w.row)
		if err := w.file.SetCellValue(w.sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		if err := w.file.SetCellStyle(w.sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	w.row++
	return nil
}

// Write appends one worksheet row per record.
func (w *ExcelWriter) Write(records []Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	for _, record := range records {
		view := record.view()
		values := []interface{}{
			view.Suite,
			view.Page,
			view.Element,
			view.Check,
			view.Status,
			view.Message,
			view.DurationMS,
			view.Timestamp,
		}
		for col, value := range values {
			cell := excelColumnName(col+1) + strconv.Itoa(w.row)
			if err := w.file.SetCellValue(w.sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write record: %w", err)
			}
		}
		w.row++
	}

	return nil
}

// Close applies the final formatting and saves the workbook.
func (w *ExcelWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	for col := range recordColumns {
		name := excelColumnName(col + 1)
		if err := w.file.SetColWidth(w.sheet, name, name, excelColumnWidths[col]); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	if w.row > 2 {
		lastCell := excelColumnName(len(recordColumns)) + strconv.Itoa(w.row-1)
		if err := w.file.AutoFilter(w.sheet, "A1:"+lastCell, nil); err != nil {
			return fmt.Errorf("failed to apply auto filter: %w", err)
		}
	}

	if err := w.file.SetPanes(w.sheet, &excelize.Panes{
		Freeze: true,
		YSplit: 1,
	}); err != nil {
		return fmt.Errorf("failed to freeze header row: %w", err)
	}

	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func excelColumnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}
