package aggregate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const SheetName = "anomaly_flag"

var ErrUnsupportedFormat = errors.New("unsupported output format")

// Write saves the table as CSV or XLSX depending on the file extension
func Write(path string, t *Table) error {
	var write func(io.Writer) error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		write = t.WriteCSV
	case ".xlsx":
		write = t.WriteXLSX
	default:
		return fmt.Errorf("%q, %w", ext, ErrUnsupportedFormat)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("unable to create output directory, %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create output, %w", err)
	}
	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("unable to write %s, %w", path, err)
	}
	return file.Close()
}

// WriteCSV writes booleans as True/False and dates as YYYY-MM-DD
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}
	record := make([]string, len(t.Variables)+2)
	for _, r := range t.Rows {
		record[0] = r.BasinID
		record[1] = r.Date.Format(time.DateOnly)
		for i, f := range r.Flags {
			record[i+2] = formatBool(f)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// WriteXLSX writes the table to a single sheet workbook
func (t *Table) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("unable to name sheet, %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("unable to create sheet writer, %w", err)
	}

	cols := t.Columns()
	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	for i, r := range t.Rows {
		row := make([]interface{}, 0, len(cols))
		row = append(row, r.BasinID, r.Date.Format(time.DateOnly))
		for _, flag := range r.Flags {
			row = append(row, flag)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("unable to write row %d, %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("unable to flush sheet, %w", err)
	}
	return f.Write(w)
}
