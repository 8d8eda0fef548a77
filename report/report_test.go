package report

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aouyang1/basinflag/backtest"
	"github.com/aouyang1/basinflag/forecast"
	"github.com/aouyang1/basinflag/forecaster"
	"github.com/aouyang1/basinflag/metrics"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobFromResult(t *testing.T) {
	testData := map[string]struct {
		records  []backtest.Record
		expected *Exceedance
	}{
		"no anomalies": {
			records: []backtest.Record{
				{Actual: 1, Upper: 2},
				{Actual: 0, Upper: 2},
			},
		},
		"anomalies": {
			records: []backtest.Record{
				{Actual: 5, Upper: 2, Flag: true},
				{Actual: 1, Upper: 2},
				{Actual: 12, Upper: 2, Flag: true},
				{Actual: 3, Upper: 2, Flag: true},
			},
			expected: &Exceedance{Mean: 14.0 / 3.0, Median: 3, Max: 10},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := &backtest.Result{
				BasinID:   "1001",
				GaugeName: "Rio Claro",
				Variable:  "flux",
				Records:   td.records,
				Folds:     []backtest.Fold{{}, {}},
			}
			job, err := JobFromResult(res)
			require.NoError(t, err)
			assert.Equal(t, metrics.StatusOK, job.Status)
			assert.Equal(t, 2, job.Folds)
			assert.Equal(t, len(td.records), job.Records)
			assert.Empty(t, job.Equation)
			assert.Nil(t, job.Scores)
			if td.expected == nil {
				assert.Nil(t, job.Exceedance)
				assert.Zero(t, job.Anomalies)
				return
			}
			assert.Equal(t, 3, job.Anomalies)
			require.NotNil(t, job.Exceedance)
			assert.InDelta(t, td.expected.Mean, job.Exceedance.Mean, 1e-9)
			assert.Equal(t, td.expected.Median, job.Exceedance.Median)
			assert.Equal(t, td.expected.Max, job.Exceedance.Max)
		})
	}
}

func TestJobFromResultLastFit(t *testing.T) {
	res := &backtest.Result{
		BasinID:  "1001",
		Variable: "flux",
		LastFit: &forecaster.Description{
			Equation: "y ~ 3.10+0.20*growth_linear",
			Scores:   forecast.Scores{MSE: 0.5, MAPE: 0.1, R2: 0.9},
		},
	}
	job, err := JobFromResult(res)
	require.NoError(t, err)
	assert.Equal(t, "y ~ 3.10+0.20*growth_linear", job.Equation)
	assert.Equal(t, &forecast.Scores{MSE: 0.5, MAPE: 0.1, R2: 0.9}, job.Scores)

	out, err := json.Marshal(job)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"equation":"y ~ 3.10+0.20*growth_linear"`)
	assert.Contains(t, string(out), `"r_squared":0.9`)
}

func TestReport(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := New([]string{"flux", "precip"}, start)
	_, err := uuid.Parse(r.RunID)
	require.NoError(t, err)

	r.AddJob(Job{BasinID: "1", Variable: "flux", Status: metrics.StatusOK, Anomalies: 4})
	r.AddJob(JobFromError("1", "a", "precip", metrics.StatusFailed, errors.New("singular matrix")))
	r.AddJob(JobFromError("2", "b", "flux", metrics.StatusSkipped, nil))
	r.Finish(start.Add(90 * time.Second))

	assert.Equal(t, 90.0, r.ElapsedSeconds)
	assert.Equal(t, 2, r.Basins)
	assert.Equal(t, 4, r.Anomalies)
	assert.Equal(t, map[string]int{"ok": 1, "failed": 1, "skipped": 1}, r.Status)
	assert.Equal(t, "singular matrix", r.Jobs[1].Error)

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, r.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var loaded Report
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, r.RunID, loaded.RunID)
	assert.Len(t, loaded.Jobs, 3)
	assert.Empty(t, loaded.Jobs[2].Error)
	assert.True(t, start.Equal(loaded.StartedAt))
}
