package observation

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var dateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	time.RFC3339,
	"2006/01/02",
	"2006-01-02T15:04:05",
}

// Load reads the observations of the given variables from a CSV or XLSX file, picked by the
// file extension
func Load(path string, variables []string) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv", ".xlsx":
	default:
		return nil, fmt.Errorf("%q, %w", ext, ErrUnsupportedFormat)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open observations, %w", err)
	}
	defer file.Close()

	start := time.Now()
	var tbl *Table
	if ext == ".csv" {
		tbl, err = ReadCSV(file, variables)
	} else {
		tbl, err = ReadXLSX(file, variables)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read %s, %w", path, err)
	}
	slog.Info("loaded observations",
		"path", path,
		"basins", len(tbl.Basins),
		"records", tbl.Len(),
		"elapsed", time.Since(start),
	)
	return tbl, nil
}

// ReadCSV parses a CSV with a header row naming basin_id, gauge_name, date and every variable
func ReadCSV(r io.Reader, variables []string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to read csv, %w", err)
	}
	return FromRows(rows, variables, parseDate)
}

// ReadXLSX parses the first sheet of a workbook laid out like the CSV input. Dates may be
// text or Excel date serials.
func ReadXLSX(r io.Reader, variables []string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("unable to open workbook, %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoRows
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %q, %w", sheets[0], err)
	}
	return FromRows(rows, variables, parseExcelDate)
}

// FromRows builds a table from a header row followed by data rows. Row numbers in errors are
// 1 based and count the header.
func FromRows(rows [][]string, variables []string, dateParser func(string) (time.Time, error)) (*Table, error) {
	if len(rows) < 2 {
		return nil, ErrNoRows
	}
	builder, err := NewBuilder(variables)
	if err != nil {
		return nil, err
	}

	colIdx := make(map[string]int, len(rows[0]))
	for i, header := range rows[0] {
		colIdx[strings.TrimSpace(header)] = i
	}
	required := append([]string{ColBasinID, ColGaugeName, ColDate}, variables...)
	for _, col := range required {
		if _, exists := colIdx[col]; !exists {
			return nil, fmt.Errorf("%q, %w", col, ErrMissingColumn)
		}
	}

	for i, row := range rows[1:] {
		line := i + 2
		if isBlank(row) {
			continue
		}
		cell := func(col string) string {
			idx := colIdx[col]
			if idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		basinID := cell(ColBasinID)
		if basinID == "" {
			return nil, fmt.Errorf("row %d has no basin id, %w", line, ErrMalformedRow)
		}
		date, err := dateParser(cell(ColDate))
		if err != nil {
			return nil, fmt.Errorf("row %d date %q, %w", line, cell(ColDate), ErrMalformedRow)
		}

		values := make([]float64, len(variables))
		for j, v := range variables {
			val, err := parseValue(cell(v))
			if err != nil {
				return nil, fmt.Errorf("row %d %s %q, %w", line, v, cell(v), ErrMalformedRow)
			}
			values[j] = val
		}

		if err := builder.Add(Record{
			BasinID:   basinID,
			GaugeName: cell(ColGaugeName),
			Date:      date,
			Values:    values,
		}); err != nil {
			return nil, fmt.Errorf("row %d, %w", line, err)
		}
	}
	return builder.Table(), nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseValue treats empty cells and NaN spellings as missing and rejects infinities
func parseValue(s string) (float64, error) {
	switch strings.ToLower(s) {
	case "", "nan", "na", "null":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) {
		return 0, ErrNonFinite
	}
	return v, nil
}

func parseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		t, err = time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func parseExcelDate(s string) (time.Time, error) {
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return excelize.ExcelDateToTime(serial, false)
	}
	return parseDate(s)
}
