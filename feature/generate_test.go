package feature

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeGenerate(t *testing.T) {
	tSeries := []time.Time{
		time.Unix(0, 0),
		time.Unix(86400, 500_000_000),
	}
	assert.Equal(t, []float64{0, 86400.5}, NewTime("epoch").Generate(tSeries))
}

func TestSeasonalityGenerate(t *testing.T) {
	period := 4.0
	epoch := []float64{0, 1, 2, 3}

	sin := NewSeasonality("s", FourierCompSin, 1).Generate(epoch, period)
	cos := NewSeasonality("s", FourierCompCos, 1).Generate(epoch, period)
	assert.InDeltaSlice(t, []float64{0, 1, 0, -1}, sin, 1e-9)
	assert.InDeltaSlice(t, []float64{1, 0, -1, 0}, cos, 1e-9)

	sin2 := NewSeasonality("s", FourierCompSin, 2).Generate([]float64{0, 0.5, 1.0}, period)
	assert.InDeltaSlice(t, []float64{0, 1, 0}, sin2, 1e-9)
}

func TestGrowthGenerate(t *testing.T) {
	start := time.Unix(0, 0)
	end := time.Unix(100, 0)
	epoch := []float64{0, 50, 100, 150}

	testData := map[string]struct {
		g        *Growth
		start    time.Time
		end      time.Time
		expected []float64
	}{
		"intercept": {Intercept(), start, end, []float64{1, 1, 1, 1}},
		"linear":    {Linear(), start, end, []float64{0, 0.5, 1, 1.5}},
		"linear without span": {
			Linear(), start, start, []float64{0, 0, 0, 0},
		},
		"unknown": {NewGrowth("logistic"), start, end, []float64{0, 0, 0, 0}},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, td.g.Generate(epoch, td.start, td.end))
		})
	}
}

func TestChangepointGenerate(t *testing.T) {
	tSeries := []time.Time{
		time.Unix(0, 0),
		time.Unix(10, 0),
		time.Unix(20, 0),
		time.Unix(30, 0),
	}
	chpt := time.Unix(10, 0)
	end := time.Unix(30, 0)

	bias := NewChangepoint("c", ChangepointCompBias).Generate(tSeries, chpt, end)
	slope := NewChangepoint("c", ChangepointCompSlope).Generate(tSeries, chpt, end)
	assert.Equal(t, []float64{0, 1, 1, 1}, bias)
	assert.Equal(t, []float64{0, 0, 0.5, 1}, slope)

	degenerate := NewChangepoint("c", ChangepointCompSlope).Generate(tSeries, end, end)
	for _, v := range degenerate {
		assert.False(t, math.IsNaN(v))
	}
}
