// Package aggregate joins the per variable backtest flags of every basin into a single wide
// table with one row per basin and date.
package aggregate

import (
	"log/slog"
	"sort"
	"time"

	"github.com/aouyang1/basinflag/backtest"
)

const (
	ColBasinID = "basin_id"
	ColDateTs  = "date_ts"
)

// Row holds the flags of a basin on a date in the order of the table variables
type Row struct {
	BasinID string
	Date    time.Time
	Flags   []bool
}

type Table struct {
	Variables []string
	Rows      []Row
}

// Columns returns the output header
func (t *Table) Columns() []string {
	cols := make([]string, 0, len(t.Variables)+2)
	cols = append(cols, ColBasinID, ColDateTs)
	for _, v := range t.Variables {
		cols = append(cols, backtest.FlagColumn(v))
	}
	return cols
}

// Basins returns the distinct basin ids in row order
func (t *Table) Basins() []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, r := range t.Rows {
		if _, exists := seen[r.BasinID]; exists {
			continue
		}
		seen[r.BasinID] = struct{}{}
		ids = append(ids, r.BasinID)
	}
	return ids
}

// Merge keeps the basins with a result for every variable and inner joins their flags on date.
// Basins are ordered by first appearance in the results and rows by date.
func Merge(results []*backtest.Result, variables []string) *Table {
	var order []string
	byBasin := make(map[string]map[string]*backtest.Result)
	for _, res := range results {
		if res == nil {
			continue
		}
		vars, exists := byBasin[res.BasinID]
		if !exists {
			vars = make(map[string]*backtest.Result)
			byBasin[res.BasinID] = vars
			order = append(order, res.BasinID)
		}
		if _, dup := vars[res.Variable]; dup {
			slog.Warn("ignoring repeated result", "basin", res.BasinID, "variable", res.Variable)
			continue
		}
		vars[res.Variable] = res
	}

	tbl := &Table{Variables: variables}
	for _, id := range order {
		vars := byBasin[id]
		if missing := missingVariables(vars, variables); len(missing) > 0 {
			slog.Info("dropping incomplete basin", "basin", id, "missing", missing)
			continue
		}
		tbl.Rows = append(tbl.Rows, joinBasin(id, vars, variables)...)
	}
	return tbl
}

func missingVariables(vars map[string]*backtest.Result, variables []string) []string {
	var missing []string
	for _, v := range variables {
		if _, exists := vars[v]; !exists {
			missing = append(missing, v)
		}
	}
	return missing
}

func joinBasin(id string, vars map[string]*backtest.Result, variables []string) []Row {
	flags := make(map[int64][]bool)
	counts := make(map[int64]int)
	for i, v := range variables {
		for _, f := range vars[v].Flags() {
			key := f.Date.Unix()
			row, exists := flags[key]
			if !exists {
				row = make([]bool, len(variables))
				flags[key] = row
			}
			row[i] = f.Extreme
			counts[key]++
		}
	}

	rows := make([]Row, 0, len(flags))
	for key, row := range flags {
		if counts[key] != len(variables) {
			continue
		}
		rows = append(rows, Row{
			BasinID: id,
			Date:    time.Unix(key, 0).UTC(),
			Flags:   row,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
	return rows
}
