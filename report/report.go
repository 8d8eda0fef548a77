// Package report builds the JSON summary of a run: every job outcome with its fold and
// anomaly counts and how far flagged observations exceeded their upper bound.
package report

import (
	"fmt"
	"os"
	"time"

	"github.com/aouyang1/basinflag/backtest"
	"github.com/aouyang1/basinflag/forecast"
	"github.com/aouyang1/basinflag/metrics"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
)

type Report struct {
	RunID          string         `json:"run_id"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
	ElapsedSeconds float64        `json:"elapsed_seconds"`
	Variables      []string       `json:"variables"`
	Basins         int            `json:"basins"`
	Status         map[string]int `json:"status"`
	Anomalies      int            `json:"anomalies"`
	Jobs           []Job          `json:"jobs"`
}

// Job is the outcome of the backtest of one basin variable
type Job struct {
	BasinID    string      `json:"basin_id"`
	GaugeName  string      `json:"gauge_name"`
	Variable   string      `json:"variable"`
	Status     string      `json:"status"`
	Error      string      `json:"error,omitempty"`
	Folds      int         `json:"folds"`
	Records    int         `json:"records"`
	Anomalies  int         `json:"anomalies"`
	Exceedance *Exceedance `json:"exceedance,omitempty"`

	// Equation and Scores describe the series model of the last fold
	Equation string           `json:"equation,omitempty"`
	Scores   *forecast.Scores `json:"scores,omitempty"`
}

// Exceedance summarizes actual minus upper over the flagged records
type Exceedance struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// New starts a report with a random run id
func New(variables []string, start time.Time) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		StartedAt: start,
		Variables: variables,
		Status:    make(map[string]int),
	}
}

// JobFromResult describes a successful job
func JobFromResult(res *backtest.Result) (Job, error) {
	job := Job{
		BasinID:   res.BasinID,
		GaugeName: res.GaugeName,
		Variable:  res.Variable,
		Status:    metrics.StatusOK,
		Folds:     len(res.Folds),
		Records:   len(res.Records),
		Anomalies: res.NumAnomalies(),
	}
	if res.LastFit != nil {
		scores := res.LastFit.Scores
		job.Equation = res.LastFit.Equation
		job.Scores = &scores
	}
	exceed := res.Exceedances()
	if len(exceed) == 0 {
		return job, nil
	}

	var err error
	summary := &Exceedance{}
	if summary.Mean, err = stats.Mean(exceed); err != nil {
		return job, fmt.Errorf("unable to compute exceedance mean, %w", err)
	}
	if summary.Median, err = stats.Median(exceed); err != nil {
		return job, fmt.Errorf("unable to compute exceedance median, %w", err)
	}
	if summary.Max, err = stats.Max(exceed); err != nil {
		return job, fmt.Errorf("unable to compute exceedance max, %w", err)
	}
	job.Exceedance = summary
	return job, nil
}

// JobFromError describes a skipped or failed job
func JobFromError(basinID, gaugeName, variable, status string, err error) Job {
	job := Job{
		BasinID:   basinID,
		GaugeName: gaugeName,
		Variable:  variable,
		Status:    status,
	}
	if err != nil {
		job.Error = err.Error()
	}
	return job
}

func (r *Report) AddJob(job Job) {
	r.Jobs = append(r.Jobs, job)
	r.Status[job.Status]++
	r.Anomalies += job.Anomalies
}

// Finish stamps the end of the run and the number of distinct basins
func (r *Report) Finish(end time.Time) {
	r.FinishedAt = end
	r.ElapsedSeconds = end.Sub(r.StartedAt).Seconds()

	basins := make(map[string]struct{})
	for _, j := range r.Jobs {
		basins[j.BasinID] = struct{}{}
	}
	r.Basins = len(basins)
}

func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to marshal report, %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("unable to write report, %w", err)
	}
	return nil
}
