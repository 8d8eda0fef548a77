// Package timedataset holds validated time/value pairs used to train and evaluate forecasts
package timedataset

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNoTrainingData     = errors.New("no training data")
	ErrNonMontonic        = errors.New("time feature is not monotonic")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
)

// TimeDataset represents a time series storing a slice of time points and values.
// Both must be of the same length.
type TimeDataset struct {
	T []time.Time
	Y []float64
}

// NewUnivariateDataset returns an instance of a TimeDataset given a time and value slice.
// Time must be strictly increasing. The inputs are copied.
func NewUnivariateDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if len(y) == 0 {
		return nil, ErrNoTrainingData
	}
	if len(t) != len(y) {
		return nil, fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}

	for i := 1; i < len(t); i++ {
		if !t[i].After(t[i-1]) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMontonic)
		}
	}

	tSeries := make([]time.Time, len(t))
	ySeries := make([]float64, len(t))
	copy(tSeries, t)
	copy(ySeries, y)
	td := &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}

	return td, nil
}

// Copy returns a deep copy of the dataset
func (td *TimeDataset) Copy() *TimeDataset {
	tSeries := make([]time.Time, len(td.T))
	ySeries := make([]float64, len(td.T))
	copy(tSeries, td.T)
	copy(ySeries, td.Y)
	return &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}
}

// DropNan returns a new dataset without the points whose value is NaN
func (td *TimeDataset) DropNan() *TimeDataset {
	if td == nil {
		return nil
	}

	t := make([]time.Time, 0, len(td.T))
	y := make([]float64, 0, len(td.Y))
	for i := 0; i < len(td.T); i++ {
		if math.IsNaN(td.Y[i]) {
			continue
		}
		t = append(t, td.T[i])
		y = append(y, td.Y[i])
	}
	return &TimeDataset{
		T: t,
		Y: y,
	}
}

// Until returns a copy of all points at or before the end time
func (td *TimeDataset) Until(end time.Time) *TimeDataset {
	if td == nil {
		return nil
	}

	n := 0
	for n < len(td.T) && !td.T[n].After(end) {
		n++
	}
	t := make([]time.Time, n)
	y := make([]float64, n)
	copy(t, td.T[:n])
	copy(y, td.Y[:n])
	return &TimeDataset{
		T: t,
		Y: y,
	}
}

// Window returns a copy of the points in the half open window (start, end]
func (td *TimeDataset) Window(start, end time.Time) *TimeDataset {
	if td == nil {
		return nil
	}

	t := make([]time.Time, 0)
	y := make([]float64, 0)
	for i := 0; i < len(td.T); i++ {
		if td.T[i].After(start) && !td.T[i].After(end) {
			t = append(t, td.T[i])
			y = append(y, td.Y[i])
		}
	}
	return &TimeDataset{
		T: t,
		Y: y,
	}
}
