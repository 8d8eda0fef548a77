package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aouyang1/basinflag/backtest"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobFinished(t *testing.T) {
	m := New()
	m.JobFinished("flux", StatusOK)
	m.JobFinished("flux", StatusOK)
	m.JobFinished("precip", StatusFailed)

	testData := map[string]struct {
		variable string
		status   string
		expected float64
	}{
		"ok":      {variable: "flux", status: StatusOK, expected: 2},
		"failed":  {variable: "precip", status: StatusFailed, expected: 1},
		"skipped": {variable: "flux", status: StatusSkipped, expected: 0},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			c := m.JobsTotal.WithLabelValues(td.variable, td.status)
			assert.Equal(t, td.expected, testutil.ToFloat64(c))
		})
	}
}

func TestObserveResult(t *testing.T) {
	m := New()
	res := &backtest.Result{
		Variable: "flux",
		Records: []backtest.Record{
			{Flag: true}, {Flag: false}, {Flag: true},
		},
		Folds: []backtest.Fold{
			{Elapsed: 10 * time.Millisecond},
			{Elapsed: 20 * time.Millisecond},
		},
	}
	m.ObserveResult(res)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnomaliesTotal.WithLabelValues("flux")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.FoldSeconds))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "basinflag_fold_seconds" {
			continue
		}
		h := mf.GetMetric()[0].GetHistogram()
		assert.Equal(t, uint64(2), h.GetSampleCount())
		assert.InDelta(t, 0.03, h.GetSampleSum(), 1e-9)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.JobFinished("temp_max", StatusSkipped)

	path := filepath.Join(t.TempDir(), "basinflag.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `basinflag_jobs_total{status="skipped",variable="temp_max"} 1`)

	err = m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "basinflag.prom"))
	assert.Error(t, err)
}
