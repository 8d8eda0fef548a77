package main

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aouyang1/basinflag/aggregate"
	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const yearSec = 365.25 * 86400.0

// writeObservations writes a 10 year basin with a single flux spike and a basin too short to
// backtest
func writeObservations(t *testing.T, path string) {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("basin_id,gauge_name,date,flux,precip,temp_max\n")

	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3652; i++ {
		d := start.AddDate(0, 0, i)
		sec := float64(d.Unix())
		ripple := math.Sin(2 * math.Pi * sec / (3 * 86400))
		seasonal := math.Sin(2 * math.Pi * sec / yearSec)
		flux := 100 + 20*seasonal + ripple
		if i == 2000 {
			flux *= 10
		}
		precip := 50 + 10*seasonal + ripple
		temp := 20 + 8*seasonal + ripple
		fmt.Fprintf(&sb, "1001,Rio Claro,%s,%g,%g,%g\n", d.Format(time.DateOnly), flux, precip, temp)
	}
	for i := 0; i < 400; i++ {
		d := start.AddDate(0, 0, i)
		fmt.Fprintf(&sb, "2002,Rio Maipo,%s,1,,2\n", d.Format(time.DateOnly))
	}
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "flux.csv")
	writeObservations(t, input)

	cli := &CLI{
		Input:         input,
		Source:        SourceFile,
		Variables:     []string{"flux", "precip", "temp_max"},
		DBDriver:      "sqlite",
		DBDSN:         filepath.Join(dir, "basinflag.db"),
		TrainYears:    3,
		TestYears:     3,
		IntervalWidth: 0.99,
		Parallelism:   2,
		PlotDir:       filepath.Join(dir, "anomaly_plots"),
		HTML:          true,
		Output:        filepath.Join(dir, "anomaly_flag.csv"),
		Report:        filepath.Join(dir, "report.json"),
		MetricsFile:   filepath.Join(dir, "basinflag.prom"),
		ModelDir:      filepath.Join(dir, "models"),
	}
	require.NoError(t, run(context.Background(), cli))

	out, err := os.ReadFile(cli.Output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 1+2*1095)
	assert.Equal(t, "basin_id,date_ts,flux_extreme,precip_extreme,temp_max_extreme", lines[0])
	assert.Equal(t, "1001,2005-06-23,True,False,False", lines[2000-1461])
	assert.Equal(t, 1, strings.Count(string(out), "True"))

	for _, name := range []string{"flux_1001.png", "precip_1001.html", "temp_max_1001.png"} {
		_, err := os.Stat(filepath.Join(cli.PlotDir, name))
		assert.NoError(t, err, name)
	}

	data, err := os.ReadFile(cli.Report)
	require.NoError(t, err)
	var rep struct {
		RunID     string         `json:"run_id"`
		Basins    int            `json:"basins"`
		Anomalies int            `json:"anomalies"`
		Status    map[string]int `json:"status"`
		Jobs      []struct {
			BasinID  string `json:"basin_id"`
			Variable string `json:"variable"`
			Equation string `json:"equation"`
		} `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(data, &rep))
	var equations int
	for _, j := range rep.Jobs {
		if j.BasinID == "1001" {
			assert.Contains(t, j.Equation, "growth_linear", j.Variable)
			equations++
			continue
		}
		assert.Empty(t, j.Equation, j.Variable)
	}
	assert.Equal(t, 3, equations)
	assert.Equal(t, 2, rep.Basins)
	assert.Equal(t, 1, rep.Anomalies)
	assert.Equal(t, map[string]int{"ok": 3, "skipped": 3}, rep.Status)

	prom, err := os.ReadFile(cli.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `basinflag_anomalies_total{variable="flux"} 1`)

	db, err := sqlx.Connect("sqlite", cli.DBDSN)
	require.NoError(t, err)
	defer db.Close()
	var total, extreme int
	require.NoError(t, db.Get(&total, `SELECT COUNT(*) FROM anomaly_flags WHERE run_id = ?`, rep.RunID))
	require.NoError(t, db.Get(&extreme, `SELECT COUNT(*) FROM anomaly_flags WHERE extreme`))
	assert.Equal(t, 3*2*1095, total)
	assert.Equal(t, 1, extreme)

	var stored int
	require.NoError(t, db.Get(&stored, `SELECT COUNT(*) FROM observations`))
	assert.Equal(t, 3652+400, stored)

	for _, name := range []string{"flux_1001.json", "flux_1001.txt", "temp_max_1001.json"} {
		_, err := os.Stat(filepath.Join(cli.ModelDir, name))
		assert.NoError(t, err, name)
	}

	// the second run reads the stored observations and flags the same spike
	cli.Source = SourceDB
	cli.Input = filepath.Join(dir, "missing.csv")
	cli.Output = filepath.Join(dir, "anomaly_flag.xlsx")
	require.NoError(t, run(context.Background(), cli))

	f, err := excelize.OpenFile(cli.Output)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(aggregate.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1+2*1095)
	assert.Equal(t, []string{"1001", "2005-06-23", "TRUE", "FALSE", "FALSE"}, rows[2000-1461])

	require.NoError(t, db.Get(&extreme, `SELECT COUNT(*) FROM anomaly_flags WHERE extreme`))
	assert.Equal(t, 2, extreme)
}

func TestRunMissingDSN(t *testing.T) {
	err := run(context.Background(), &CLI{Source: SourceDB})
	assert.ErrorIs(t, err, ErrMissingDSN)
}

func TestNewLogger(t *testing.T) {
	testData := map[string]struct {
		format   string
		level    string
		contains string
		err      bool
	}{
		"text":       {format: "text", level: "info", contains: "msg=hello"},
		"json":       {format: "json", level: "debug", contains: `"msg":"hello"`},
		"bad level":  {format: "text", level: "loud", err: true},
		"bad format": {format: "xml", level: "info", err: true},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := newLogger(&buf, td.format, td.level)
			if td.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			logger.Info("hello")
			assert.Contains(t, buf.String(), td.contains)
		})
	}
}
