package backtest

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aouyang1/basinflag/timedataset"
)

var ErrInsufficientHistory = errors.New("insufficient history for backtest")

// GenerateCutoffs walks back from the end of the series in steps of period and returns the
// cutoffs in increasing order. Every cutoff leaves at least initial of history before it and a
// full horizon after it. When a step lands in a gap with no data in the following horizon the
// cutoff is pulled back to the latest observed point before the gap. The times must be sorted.
func GenerateCutoffs(t []time.Time, initial, horizon, period time.Duration) ([]time.Time, error) {
	if len(t) == 0 {
		return nil, ErrInsufficientHistory
	}
	ts := timedataset.TimeSlice(t)
	minT, maxT := ts.StartTime(), ts.EndTime()

	cutoff := maxT.Add(-horizon)
	if cutoff.Before(minT) {
		return nil, fmt.Errorf("series spans %s which is less than a horizon of %s, %w", maxT.Sub(minT), horizon, ErrInsufficientHistory)
	}

	cutoffs := []time.Time{cutoff}
	for !cutoffs[len(cutoffs)-1].Before(minT.Add(initial)) {
		cutoff = cutoff.Add(-period)
		if !hasPointIn(t, cutoff, cutoff.Add(horizon)) && cutoff.After(minT) {
			cutoff = latestAtOrBefore(t, cutoff).Add(-horizon)
		}
		cutoffs = append(cutoffs, cutoff)
	}
	cutoffs = cutoffs[:len(cutoffs)-1]
	if len(cutoffs) == 0 {
		return nil, fmt.Errorf("no cutoff leaves %s of training history, %w", initial, ErrInsufficientHistory)
	}
	slices.Reverse(cutoffs)
	return cutoffs, nil
}

// hasPointIn reports whether any time falls in (start, end]
func hasPointIn(t []time.Time, start, end time.Time) bool {
	for _, tPnt := range t {
		if tPnt.After(start) && !tPnt.After(end) {
			return true
		}
	}
	return false
}

func latestAtOrBefore(t []time.Time, tPnt time.Time) time.Time {
	var latest time.Time
	for _, v := range t {
		if v.After(tPnt) {
			break
		}
		latest = v
	}
	return latest
}
