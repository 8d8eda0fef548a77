package forecaster

import (
	"fmt"

	"github.com/aouyang1/basinflag/feature"
	"github.com/aouyang1/basinflag/forecast/options"
	"github.com/aouyang1/basinflag/stats"
)

const (
	DefaultIntervalWidth  = 0.99
	DefaultResidualWindow = 30
)

// Options configures the series forecast, the forecast of its rolling residual standard
// deviation and the width of the uncertainty interval built from the two.
type Options struct {
	SeriesOptions   *options.Options `json:"series_options"`
	ResidualOptions *options.Options `json:"residual_options"`

	// ResidualWindow is the number of points in each rolling residual standard deviation
	ResidualWindow int `json:"residual_window"`

	// IntervalWidth is the probability mass between the lower and upper bounds, e.g. 0.99
	IntervalWidth float64 `json:"interval_width"`
}

// NewDefaultOptions fits the series with linear growth and yearly seasonality of order 10 and
// the residual with a smoother yearly seasonality of order 4 at a 99% interval
func NewDefaultOptions() *Options {
	residualOpt := &options.Options{
		GrowthType: feature.GrowthLinear,
		SeasonalityOptions: options.SeasonalityOptions{
			SeasonalityConfigs: []options.SeasonalityConfig{
				options.NewYearlySeasonalityConfig(4),
			},
		},
		ChangepointOptions: options.NewDefaultChangepointOptions(),
	}
	return &Options{
		SeriesOptions:   options.NewDefaultOptions(),
		ResidualOptions: residualOpt,
		ResidualWindow:  DefaultResidualWindow,
		IntervalWidth:   DefaultIntervalWidth,
	}
}

// Validate fills in unset options with defaults and checks the interval width
func (o *Options) Validate() error {
	if o.SeriesOptions == nil {
		o.SeriesOptions = options.NewDefaultOptions()
	}
	if o.ResidualOptions == nil {
		o.ResidualOptions = NewDefaultOptions().ResidualOptions
	}
	if o.ResidualWindow == 0 {
		o.ResidualWindow = DefaultResidualWindow
	}
	if o.ResidualWindow < MinResidualWindow {
		return fmt.Errorf("residual window of %d is less than %d, %w", o.ResidualWindow, MinResidualWindow, ErrInvalidResidualWindow)
	}
	if o.IntervalWidth == 0 {
		o.IntervalWidth = DefaultIntervalWidth
	}
	if _, err := stats.IntervalZscore(o.IntervalWidth); err != nil {
		return err
	}
	return nil
}
