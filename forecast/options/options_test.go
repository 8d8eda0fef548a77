package options

import (
	"bytes"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/aouyang1/basinflag/feature"
	"github.com/aouyang1/basinflag/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compareFeatureSet(t *testing.T, expected, res *feature.Set, tol float64) {
	t.Helper()
	require.Equal(t, expected.Labels().Labels(), res.Labels().Labels())

	for _, f := range res.Labels().Labels() {
		expVals, exists := expected.Get(f)
		require.True(t, exists)
		gotVals, exists := res.Get(f)
		require.True(t, exists)
		require.Equal(t, len(expVals), len(gotVals))
		assert.InDeltaSlice(t, expVals, gotVals, tol, fmt.Sprintf("feature: %+v, values: %+v\n", f, gotVals))
	}
}

func TestValidate(t *testing.T) {
	testData := map[string]struct {
		opt *Options
		err error
	}{
		"default":       {opt: NewDefaultOptions()},
		"no growth":     {opt: &Options{}},
		"unknown":       {opt: &Options{GrowthType: "quadratic"}, err: ErrUnknownGrowthType},
		"dup seasonals": {opt: &Options{SeasonalityOptions: SeasonalityOptions{SeasonalityConfigs: []SeasonalityConfig{NewYearlySeasonalityConfig(2), NewYearlySeasonalityConfig(4)}}}},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.LessOrEqual(t, len(td.opt.SeasonalityOptions.SeasonalityConfigs), 1)
		})
	}
}

func TestGenerateTimeFeatures(t *testing.T) {
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	tSeries := timedataset.GenerateDailyT(start, 5)
	epoch := []float64{
		946684800, 946771200, 946857600, 946944000, 947030400,
	}
	ones := []float64{1, 1, 1, 1, 1}

	testData := map[string]struct {
		opt        *Options
		trainStart time.Time
		trainEnd   time.Time
		expected   map[feature.Feature][]float64
		err        error
	}{
		"linear growth": {
			opt:        &Options{GrowthType: feature.GrowthLinear},
			trainStart: tSeries[0],
			trainEnd:   tSeries[4],
			expected: map[feature.Feature][]float64{
				feature.NewTime(LabelTimeEpoch): epoch,
				feature.Intercept():             ones,
				feature.Linear():                {0, 0.25, 0.5, 0.75, 1.0},
			},
		},
		"linear growth extrapolates past training": {
			opt:        &Options{GrowthType: feature.GrowthLinear},
			trainStart: tSeries[0],
			trainEnd:   tSeries[2],
			expected: map[feature.Feature][]float64{
				feature.NewTime(LabelTimeEpoch): epoch,
				feature.Intercept():             ones,
				feature.Linear():                {0, 0.5, 1.0, 1.5, 2.0},
			},
		},
		"no growth": {
			opt:        &Options{},
			trainStart: tSeries[0],
			trainEnd:   tSeries[4],
			expected: map[feature.Feature][]float64{
				feature.NewTime(LabelTimeEpoch): epoch,
				feature.Intercept():             ones,
			},
		},
		"single training point": {
			opt:        &Options{GrowthType: feature.GrowthLinear},
			trainStart: tSeries[0],
			trainEnd:   tSeries[0],
			expected: map[feature.Feature][]float64{
				feature.NewTime(LabelTimeEpoch): epoch,
				feature.Intercept():             ones,
			},
		},
		"unknown growth": {
			opt: &Options{GrowthType: "logistic"},
			err: ErrUnknownGrowthType,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := td.opt.GenerateTimeFeatures(tSeries, td.trainStart, td.trainEnd)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)

			expected := feature.NewSet()
			for f, data := range td.expected {
				require.NoError(t, expected.Set(f, data))
			}
			compareFeatureSet(t, expected, res, 1e-9)
		})
	}
}

func TestGenerateFourierFeatures(t *testing.T) {
	start := time.Unix(0, 0).UTC()
	tSeries := []time.Time{
		start,
		start.Add(6 * time.Hour),
		start.Add(12 * time.Hour),
		start.Add(18 * time.Hour),
	}

	opt := &Options{
		SeasonalityOptions: SeasonalityOptions{
			SeasonalityConfigs: []SeasonalityConfig{
				NewWeeklySeasonalityConfig(7),
				NewDailySeasonalityConfig(1),
			},
		},
	}
	tFeat, err := opt.GenerateTimeFeatures(tSeries, tSeries[0], tSeries[3])
	require.NoError(t, err)

	res, err := opt.GenerateFourierFeatures(tFeat)
	require.NoError(t, err)

	// weekly order 7 repeats the daily order 1 period
	assert.Equal(t, 2+6*2, res.Len())
	_, exists := res.Get(feature.NewSeasonality("epoch_weekly", feature.FourierCompSin, 7))
	assert.False(t, exists)

	daily, exists := res.Get(feature.NewSeasonality("epoch_daily", feature.FourierCompSin, 1))
	require.True(t, exists)
	assert.InDeltaSlice(t, []float64{0, 1, 0, -1}, daily, 1e-9)

	daily, exists = res.Get(feature.NewSeasonality("epoch_daily", feature.FourierCompCos, 1))
	require.True(t, exists)
	assert.InDeltaSlice(t, []float64{1, 0, -1, 0}, daily, 1e-9)

	_, err = opt.GenerateFourierFeatures(feature.NewSet())
	assert.ErrorIs(t, err, ErrUnknownTimeFeature)
}

func TestGenerateFourierFeaturesYearly(t *testing.T) {
	tSeries := timedataset.GenerateDailyT(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), 730)

	opt := NewDefaultOptions()
	tFeat, err := opt.GenerateTimeFeatures(tSeries, tSeries[0], tSeries[len(tSeries)-1])
	require.NoError(t, err)

	res, err := opt.GenerateFourierFeatures(tFeat)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Len())

	for _, f := range res.Labels().Labels() {
		data, _ := res.Get(f)
		for _, v := range data {
			require.False(t, math.IsNaN(v))
			require.LessOrEqual(t, math.Abs(v), 1.0)
		}
	}
}

func TestOptionsTablePrint(t *testing.T) {
	var buf bytes.Buffer
	opt := NewDefaultOptions()
	require.NoError(t, opt.TablePrint(&buf, "", "  ", 0))

	expected := `Growth: linear
Seasonality:
     Name    Period Orders
   yearly 8766h0m0s     10
Changepoints: None
`
	assert.Equal(t, expected, buf.String())
}
