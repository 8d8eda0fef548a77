// Package observation holds the daily basin records loaded from a CSV file, an XLSX workbook or
// a database, grouped per basin and split into per variable series.
package observation

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

const (
	ColBasinID   = "basin_id"
	ColGaugeName = "gauge_name"
	ColDate      = "date"
)

// DefaultVariables are the hydrological variables flagged when none are configured
var DefaultVariables = []string{"flux", "precip", "temp_max"}

var (
	ErrMissingColumn      = errors.New("missing required column")
	ErrMalformedRow       = errors.New("malformed row")
	ErrNonFinite          = errors.New("value is not finite")
	ErrUnsupportedFormat  = errors.New("unsupported input format")
	ErrNoRows             = errors.New("no data rows")
	ErrUnknownVariable    = errors.New("unknown variable")
	ErrNoVariables        = errors.New("no variables configured")
	ErrValueLenMismatch   = errors.New("number of values does not match number of variables")
	ErrDuplicateVariables = errors.New("variable configured more than once")
)

// Record is a single daily observation of a basin. Values are in the order of the table
// variables and missing values are NaN.
type Record struct {
	BasinID   string
	GaugeName string
	Date      time.Time
	Values    []float64
}

// Basin holds every observation of a basin sorted by date
type Basin struct {
	ID        string
	GaugeName string
	Dates     []time.Time
	Values    map[string][]float64
}

// Len returns the number of observed dates
func (b *Basin) Len() int {
	return len(b.Dates)
}

// Series returns a private copy of the dates and values of one variable
func (b *Basin) Series(variable string) (*Series, error) {
	vals, exists := b.Values[variable]
	if !exists {
		return nil, fmt.Errorf("%q for basin %s, %w", variable, b.ID, ErrUnknownVariable)
	}
	t := make([]time.Time, len(b.Dates))
	y := make([]float64, len(vals))
	copy(t, b.Dates)
	copy(y, vals)
	return &Series{
		BasinID:   b.ID,
		GaugeName: b.GaugeName,
		Variable:  variable,
		T:         t,
		Y:         y,
	}, nil
}

// Series is the daily history of one variable of one basin
type Series struct {
	BasinID   string
	GaugeName string
	Variable  string
	T         []time.Time
	Y         []float64
}

// Table is the full set of loaded observations. Basins are kept in order of first appearance.
type Table struct {
	Variables []string
	Basins    []*Basin
}

// Len returns the number of records across all basins
func (t *Table) Len() int {
	var n int
	for _, b := range t.Basins {
		n += b.Len()
	}
	return n
}

// Basin returns the basin with the given id
func (t *Table) Basin(id string) (*Basin, bool) {
	for _, b := range t.Basins {
		if b.ID == id {
			return b, true
		}
	}
	return nil, false
}

// Builder accumulates records into a Table
type Builder struct {
	variables []string
	order     []string
	basins    map[string]*basinRecords
}

type basinRecords struct {
	gaugeName string
	seen      map[time.Time]struct{}
	records   []Record
}

func NewBuilder(variables []string) (*Builder, error) {
	if len(variables) == 0 {
		return nil, ErrNoVariables
	}
	seen := make(map[string]struct{}, len(variables))
	for _, v := range variables {
		if _, exists := seen[v]; exists {
			return nil, fmt.Errorf("%q, %w", v, ErrDuplicateVariables)
		}
		seen[v] = struct{}{}
	}
	vars := make([]string, len(variables))
	copy(vars, variables)
	return &Builder{
		variables: vars,
		basins:    make(map[string]*basinRecords),
	}, nil
}

// Add appends a record. A repeated date for a basin keeps the first record and logs a warning.
func (b *Builder) Add(r Record) error {
	if len(r.Values) != len(b.variables) {
		return fmt.Errorf("got %d values for %d variables, %w", len(r.Values), len(b.variables), ErrValueLenMismatch)
	}
	r.Date = truncateDay(r.Date)

	br, exists := b.basins[r.BasinID]
	if !exists {
		br = &basinRecords{
			gaugeName: r.GaugeName,
			seen:      make(map[time.Time]struct{}),
		}
		b.basins[r.BasinID] = br
		b.order = append(b.order, r.BasinID)
	}
	if _, dup := br.seen[r.Date]; dup {
		slog.Warn("dropping duplicate observation", "basin_id", r.BasinID, "date", r.Date.Format(time.DateOnly))
		return nil
	}
	br.seen[r.Date] = struct{}{}
	br.records = append(br.records, r)
	return nil
}

// Table sorts every basin by date and returns the accumulated table
func (b *Builder) Table() *Table {
	tbl := &Table{
		Variables: b.variables,
		Basins:    make([]*Basin, 0, len(b.order)),
	}
	for _, id := range b.order {
		br := b.basins[id]
		sort.SliceStable(br.records, func(i, j int) bool {
			return br.records[i].Date.Before(br.records[j].Date)
		})

		basin := &Basin{
			ID:        id,
			GaugeName: br.gaugeName,
			Dates:     make([]time.Time, 0, len(br.records)),
			Values:    make(map[string][]float64, len(b.variables)),
		}
		for _, v := range b.variables {
			basin.Values[v] = make([]float64, 0, len(br.records))
		}
		for _, r := range br.records {
			basin.Dates = append(basin.Dates, r.Date)
			for i, v := range b.variables {
				basin.Values[v] = append(basin.Values[v], r.Values[i])
			}
		}
		tbl.Basins = append(tbl.Basins, basin)
	}
	return tbl
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
