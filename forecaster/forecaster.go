// Package forecaster fits a linear forecast of a time series along with a forecast of its
// residual spread, producing a point forecast and upper and lower bounds for any time.
package forecaster

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aouyang1/basinflag/forecast"
	"github.com/aouyang1/basinflag/stats"
	"github.com/aouyang1/basinflag/timedataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrInsufficientResidual  = errors.New("insufficient samples from residual")
	ErrNoOptionsInModel      = errors.New("no options set in model")
	ErrInvalidResidualWindow = errors.New("invalid residual window")
	ErrUntrainedForecaster   = errors.New("forecaster has not been trained yet")
)

const (
	MinResidualWindow       = 2
	MinResidualSize         = 3
	MinResidualWindowFactor = 4

	// MinSpreadFraction of the largest absolute training value bounds the spread from below
	// when the residual has no variance
	MinSpreadFraction = 1e-6
)

// Forecaster fits a forecast model and can be used to generate forecasts
type Forecaster struct {
	opt    *Options
	zscore float64

	seriesForecast   *forecast.Forecast
	residualForecast *forecast.Forecast

	minSpread float64
	trained   bool
}

// New creates a new instance of a Forecaster using the provided options. If no options are provided
// a default is used.
func New(opt *Options) (*Forecaster, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if err := opt.Validate(); err != nil {
		return nil, fmt.Errorf("invalid forecaster options, %w", err)
	}
	z, err := stats.IntervalZscore(opt.IntervalWidth)
	if err != nil {
		return nil, err
	}

	f := &Forecaster{
		opt:    opt,
		zscore: z,
	}

	seriesForecast, err := forecast.New(f.opt.SeriesOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize forecast series, %w", err)
	}
	f.seriesForecast = seriesForecast

	residualForecast, err := forecast.New(f.opt.ResidualOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize forecast residual, %w", err)
	}
	f.residualForecast = residualForecast
	return f, nil
}

// NewFromModel creates a new instance of Forecaster from a pre-existing model. This should be generated
// from a previous forecaster call to Model().
func NewFromModel(model Model) (*Forecaster, error) {
	if model.Options == nil {
		return nil, ErrNoOptionsInModel
	}
	opt := model.Options
	opt.SeriesOptions = model.Series.Options
	opt.ResidualOptions = model.Residual.Options
	if err := opt.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model options, %w", err)
	}
	z, err := stats.IntervalZscore(opt.IntervalWidth)
	if err != nil {
		return nil, err
	}

	seriesForecast, err := forecast.NewFromModel(model.Series)
	if err != nil {
		return nil, fmt.Errorf("unable to load from series model, %w", err)
	}
	residualForecast, err := forecast.NewFromModel(model.Residual)
	if err != nil {
		return nil, fmt.Errorf("unable to load from residual model, %w", err)
	}
	f := &Forecaster{
		opt:              opt,
		zscore:           z,
		seriesForecast:   seriesForecast,
		residualForecast: residualForecast,
		minSpread:        model.MinSpread,
		trained:          true,
	}
	return f, nil
}

// Fit uses the input time dataset and fits the forecast model. NaN values are ignored.
func (f *Forecaster) Fit(t []time.Time, y []float64) error {
	td, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		return fmt.Errorf("unable to create training dataset, %w", err)
	}

	if err := f.seriesForecast.Fit(td.T, td.Y); err != nil {
		return fmt.Errorf("unable to forecast series, %w", err)
	}
	// residual spread is computed over the observed points only
	residualData, err := timedataset.NewUnivariateDataset(td.T, f.seriesForecast.Residuals())
	if err != nil {
		return fmt.Errorf("unable to create residual dataset, %w", err)
	}
	residualData = residualData.DropNan()

	if err := f.fitResidual(residualData.T, residualData.Y); err != nil {
		return err
	}
	f.minSpread = minSpread(residualData.Y, td.Y)
	f.trained = true
	return nil
}

// minSpread is the in-sample residual standard deviation, or a small fraction of the training
// scale when the fit is exact
func minSpread(residual, y []float64) float64 {
	spread := stat.StdDev(residual, nil)
	if math.IsNaN(spread) {
		spread = 0
	}
	var scale float64
	for _, v := range y {
		if math.IsNaN(v) {
			continue
		}
		scale = math.Max(scale, math.Abs(v))
	}
	if scale == 0 {
		scale = 1
	}
	return math.Max(spread, MinSpreadFraction*scale)
}

func (f *Forecaster) fitResidual(t []time.Time, residual []float64) error {
	if len(residual) < MinResidualSize {
		return fmt.Errorf("%d residual samples, %w", len(residual), ErrInsufficientResidual)
	}
	// compute rolling window standard deviation of residual for uncertainty bands
	// the window is not necessarily a block of continuous time but could jump across
	// missing points

	// limit residual window to a quarter of the resulting residual output
	window := f.opt.ResidualWindow
	if len(residual)/MinResidualWindowFactor < window {
		window = len(residual) / MinResidualWindowFactor
	}
	if window < MinResidualWindow {
		window = MinResidualWindow
	}

	stddevSeries, err := stats.RollingStdDev(residual, window)
	if err != nil {
		return fmt.Errorf("unable to compute rolling residual standard deviation, %w", err)
	}

	// shifting by half the residual window since computing the residual series is similar to a
	// finite impulse response filtering having a group delay of window/2.
	start := window / 2
	end := start + len(stddevSeries)

	if err := f.residualForecast.Fit(t[start:end], stddevSeries); err != nil {
		return fmt.Errorf("unable to forecast residual, %w", err)
	}

	return nil
}

// Predict takes in any set of time samples and generates a forecast, upper, lower values per time point
func (f *Forecaster) Predict(t []time.Time) (*Results, error) {
	if !f.trained {
		return nil, ErrUntrainedForecaster
	}

	seriesRes, seriesComp, err := f.seriesForecast.Predict(t)
	if err != nil {
		return nil, fmt.Errorf("unable to predict series forecasts, %w", err)
	}
	residualRes, residualComp, err := f.residualForecast.Predict(t)
	if err != nil {
		return nil, fmt.Errorf("unable to predict residual forecasts, %w", err)
	}

	// the spread forecast never drops below the in-sample residual spread
	for i := 0; i < len(residualRes); i++ {
		residualRes[i] = math.Max(residualRes[i], f.minSpread) * f.zscore
	}

	r := &Results{
		T:                  t,
		Forecast:           seriesRes,
		SeriesComponents:   seriesComp,
		ResidualComponents: residualComp,
	}
	upper := make([]float64, len(seriesRes))
	lower := make([]float64, len(seriesRes))

	floats.AddTo(upper, seriesRes, residualRes)
	floats.SubTo(lower, seriesRes, residualRes)
	r.Upper = upper
	r.Lower = lower
	return r, nil
}

// Model generates a serializeable representation of the fit options, series model, and uncertainty model. This
// can be used to initialize a new Forecaster for immediate predictions skipping the training step.
func (f *Forecaster) Model() (Model, error) {
	seriesModel, err := f.seriesForecast.Model()
	if err != nil {
		return Model{}, fmt.Errorf("unable to fetch series model, %w", err)
	}
	residualModel, err := f.residualForecast.Model()
	if err != nil {
		return Model{}, fmt.Errorf("unable to fetch residual model, %w", err)
	}
	m := Model{
		Options:   f.opt,
		Series:    seriesModel,
		Residual:  residualModel,
		MinSpread: f.minSpread,
	}
	return m, nil
}

// Describe summarizes the fit of the series model along with the serializable model
func (f *Forecaster) Describe() (*Description, error) {
	if !f.trained {
		return nil, ErrUntrainedForecaster
	}
	eq, err := f.seriesForecast.ModelEq()
	if err != nil {
		return nil, fmt.Errorf("unable to build series model equation, %w", err)
	}
	m, err := f.Model()
	if err != nil {
		return nil, err
	}
	return &Description{
		Equation: eq,
		Scores:   f.seriesForecast.Scores(),
		Model:    m,
	}, nil
}
