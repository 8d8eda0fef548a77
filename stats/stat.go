// Package stats holds the small statistical helpers used to turn residuals into uncertainty bands
package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrInvalidIntervalWidth = errors.New("interval width must be between 0 and 1 exclusive")
	ErrInvalidWindow        = errors.New("window must be at least 2")
	ErrInsufficientSamples  = errors.New("fewer samples than the window")
)

// IntervalZscore returns the two sided standard normal z-score covering the given
// interval width, e.g. 0.95 returns ~1.96.
func IntervalZscore(width float64) (float64, error) {
	if !(width > 0 && width < 1) {
		return 0, fmt.Errorf("got %.4f, %w", width, ErrInvalidIntervalWidth)
	}
	return distuv.UnitNormal.Quantile(0.5 + width/2.0), nil
}

// RollingStdDev computes the sample standard deviation of every full window of x. The output
// has len(x)-window+1 values where value i covers x[i:i+window]. NaNs in a window are skipped
// and a window without at least 2 valid samples yields NaN.
func RollingStdDev(x []float64, window int) ([]float64, error) {
	if window < 2 {
		return nil, fmt.Errorf("got %d, %w", window, ErrInvalidWindow)
	}
	if len(x) < window {
		return nil, fmt.Errorf("%d samples for a window of %d, %w", len(x), window, ErrInsufficientSamples)
	}

	res := make([]float64, len(x)-window+1)
	buf := make([]float64, 0, window)
	for i := range res {
		buf = buf[:0]
		for _, v := range x[i : i+window] {
			if math.IsNaN(v) {
				continue
			}
			buf = append(buf, v)
		}
		if len(buf) < 2 {
			res[i] = math.NaN()
			continue
		}
		res[i] = stat.StdDev(buf, nil)
	}
	return res, nil
}
