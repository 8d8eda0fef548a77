package backtest

import (
	"time"

	"github.com/aouyang1/basinflag/forecaster"
)

const FlagSuffix = "_extreme"

// Record is a tested observation with the bounds of the fold it was tested in
type Record struct {
	Date     time.Time
	Actual   float64
	Forecast float64
	Upper    float64
	Lower    float64
	Flag     bool
}

// Fold summarizes a single cutoff of the backtest
type Fold struct {
	Cutoff      time.Time
	TrainSize   int
	TestSize    int
	NumOutliers int
	Elapsed     time.Duration
}

// Flag is the anomaly flag of a basin variable on a date
type Flag struct {
	BasinID string
	Date    time.Time
	Extreme bool
}

// Result holds every tested record of one basin variable in date order
type Result struct {
	BasinID   string
	GaugeName string
	Variable  string
	Records   []Record
	Folds     []Fold

	// LastFit describes the model of the final fold when the model implements Describer
	LastFit *forecaster.Description
}

// FlagColumn is the output column name of the variable flags
func (r *Result) FlagColumn() string {
	return FlagColumn(r.Variable)
}

func FlagColumn(variable string) string {
	return variable + FlagSuffix
}

func (r *Result) Flags() []Flag {
	flags := make([]Flag, 0, len(r.Records))
	for _, rec := range r.Records {
		flags = append(flags, Flag{
			BasinID: r.BasinID,
			Date:    rec.Date,
			Extreme: rec.Flag,
		})
	}
	return flags
}

// NumAnomalies counts the flagged records
func (r *Result) NumAnomalies() int {
	var n int
	for _, rec := range r.Records {
		if rec.Flag {
			n++
		}
	}
	return n
}

// Exceedances returns actual minus upper for every flagged record
func (r *Result) Exceedances() []float64 {
	var out []float64
	for _, rec := range r.Records {
		if rec.Flag {
			out = append(out, rec.Actual-rec.Upper)
		}
	}
	return out
}
