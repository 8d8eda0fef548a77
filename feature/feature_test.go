package feature

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureString(t *testing.T) {
	testData := map[string]struct {
		f        Feature
		expected string
		ft       FeatureType
	}{
		"time":        {NewTime("epoch"), "tfeat_epoch", FeatureTypeTime},
		"seasonality": {NewSeasonality("epoch_yearly", FourierCompSin, 3), "seas_epoch_yearly_03_sin", FeatureTypeSeasonality},
		"growth":      {Linear(), "growth_linear", FeatureTypeGrowth},
		"changepoint": {NewChangepoint("dam", ChangepointCompSlope), "chpnt_dam_slope", FeatureTypeChangepoint},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, td.f.String())
			assert.Equal(t, td.ft, td.f.Type())
		})
	}
}

func TestFeatureGet(t *testing.T) {
	feat := NewSeasonality("epoch_yearly", FourierCompCos, 2)

	testData := map[string]struct {
		label     string
		expVal    string
		expExists bool
	}{
		"unknown":     {label: "unknown"},
		"capitalized": {label: "NAME", expVal: "epoch_yearly", expExists: true},
		"component":   {label: "fourier_component", expVal: "cos", expExists: true},
		"order":       {label: "order", expVal: "2", expExists: true},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			val, exists := feat.Get(td.label)
			assert.Equal(t, td.expExists, exists, "exists")
			assert.Equal(t, td.expVal, val, "value")
		})
	}
}

func TestFromLabels(t *testing.T) {
	testData := map[string]struct {
		f   Feature
		err error
	}{
		"time":        {f: NewTime("epoch")},
		"seasonality": {f: NewSeasonality("epoch_yearly", FourierCompSin, 10)},
		"growth":      {f: Intercept()},
		"changepoint": {f: NewChangepoint("auto_1", ChangepointCompBias)},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			// labels travel through json in serialized models
			out, err := json.Marshal(td.f.Decode())
			require.NoError(t, err)

			var labels map[string]string
			require.NoError(t, json.Unmarshal(out, &labels))

			res, err := FromLabels(td.f.Type(), labels)
			require.NoError(t, err)
			assert.Equal(t, td.f, res)
		})
	}

	_, err := FromLabels(FeatureType("holiday"), nil)
	assert.ErrorIs(t, err, ErrUnknownFeatureType)

	_, err = FromLabels(FeatureTypeSeasonality, map[string]string{"order": "x"})
	assert.Error(t, err)
}
