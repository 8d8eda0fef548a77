package timedataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestGenerateDailyT(t *testing.T) {
	res := GenerateDailyT(time.Date(2000, 2, 28, 13, 0, 0, 0, time.UTC), 3)
	require.Len(t, res, 3)
	assert.Equal(t, time.Date(2000, 2, 28, 0, 0, 0, 0, time.UTC), res[0])
	assert.Equal(t, time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC), res[1])
	assert.Equal(t, time.Date(2000, 3, 1, 0, 0, 0, 0, time.UTC), res[2])
}

func TestSeries(t *testing.T) {
	n := 5
	tSeries := GenerateDailyT(day(1), n)

	s := GenerateConstY(n, 1).Add(GenerateConstY(n, 2))
	require.Equal(t, Series{3, 3, 3, 3, 3}, s)

	assert.Equal(t, Series{0, 0.5, 1, 1.5, 2}, GenerateLinearY(tSeries, 0.5))
	assert.Equal(t, Series{0, 0, 2, 2.5, 3}, GenerateChange(tSeries, day(3), 2, 0.5))
}

func TestGenerateNoiseRepeatable(t *testing.T) {
	tSeries := GenerateDailyT(day(1), 2000)

	a := GenerateNoise(tSeries, 2.0, 42)
	b := GenerateNoise(tSeries, 2.0, 42)
	assert.Equal(t, a, b)

	_, std := stat.MeanStdDev(a, nil)
	assert.InDelta(t, 2.0, std, 0.2)
}
