// Package forecast fits a single linear model of a univariate time series composed of growth,
// changepoint and Fourier seasonality features
package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aouyang1/basinflag/feature"
	"github.com/aouyang1/basinflag/forecast/options"
	"github.com/aouyang1/basinflag/linearmodel"
	"github.com/aouyang1/basinflag/timedataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrUninitializedForecast    = errors.New("uninitialized forecast")
	ErrInsufficientTrainingData = errors.New("insufficient training data after removing Nans")
	ErrNoModelCoefficients      = errors.New("no model coefficients from fit")
	ErrUntrainedForecast        = errors.New("forecast has not been trained yet")
	ErrCoefLenMismatch          = errors.New("number of coefficients does not match number of feature labels")
)

// Forecast represents a single forecast model of a time series. The weights are fit with
// ordinary least squares and the series is decomposed into a trend (intercept, growth and
// changepoints) and seasonal components.
type Forecast struct {
	opt    *options.Options
	scores *Scores // score calculations after training

	// model coefficients
	fLabels *feature.Labels
	coef    []float64

	trainStartTime time.Time
	trainEndTime   time.Time
	residual       []float64

	trained bool
}

// New creates a new forecast instance with the given options. If none are provided, a default
// is used
func New(opt *options.Options) (*Forecast, error) {
	if opt == nil {
		opt = options.NewDefaultOptions()
	}
	if err := opt.Validate(); err != nil {
		return nil, fmt.Errorf("invalid forecast options, %w", err)
	}

	return &Forecast{opt: opt}, nil
}

// NewFromModel creates a new forecast instance given a forecast Model to initialize. This
// instance can be used for inference immediately and does not need to be trained again.
func NewFromModel(model Model) (*Forecast, error) {
	labels, err := model.Weights.FeatureLabels()
	if err != nil {
		return nil, fmt.Errorf("unable to decode model weights, %w", err)
	}
	opt := model.Options
	if opt == nil {
		opt = options.NewDefaultOptions()
	}

	f := &Forecast{
		opt:            opt,
		scores:         model.Scores,
		fLabels:        feature.NewLabels(labels),
		coef:           model.Weights.Coefficients(),
		trainStartTime: model.TrainStartTime,
		trainEndTime:   model.TrainEndTime,
		trained:        true,
	}
	return f, nil
}

// generateFeatures builds every regressor for t. The raw epoch feature is only used to derive
// the others and is excluded from the result.
func (f *Forecast) generateFeatures(t []time.Time) (*feature.Set, error) {
	tFeat, err := f.opt.GenerateTimeFeatures(t, f.trainStartTime, f.trainEndTime)
	if err != nil {
		return nil, fmt.Errorf("unable to generate time features, %w", err)
	}

	seasFeat, err := f.opt.GenerateFourierFeatures(tFeat)
	if err != nil {
		return nil, fmt.Errorf("unable to generate seasonality features, %w", err)
	}

	chptFeat, err := f.opt.ChangepointOptions.GenerateFeatures(t, f.trainEndTime)
	if err != nil {
		return nil, fmt.Errorf("unable to generate changepoint features, %w", err)
	}

	x := tFeat.FilterByType(feature.FeatureTypeGrowth)
	if err := x.Update(seasFeat); err != nil {
		return nil, err
	}
	if err := x.Update(chptFeat); err != nil {
		return nil, err
	}
	return x, nil
}

// Fit takes the input training data and fits a forecast model for the growth, changepoints and
// seasonal components. NaN observations are dropped before fitting.
func (f *Forecast) Fit(t []time.Time, y []float64) error {
	if f == nil {
		return ErrUninitializedForecast
	}

	trainingData, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		return err
	}

	clean := trainingData.DropNan()
	if len(clean.T) <= 1 {
		return ErrInsufficientTrainingData
	}

	f.trainStartTime = clean.T[0]
	f.trainEndTime = clean.T[len(clean.T)-1]
	f.opt.ChangepointOptions.GenerateAutoChangepoints(clean.T)

	x, err := f.generateFeatures(clean.T)
	if err != nil {
		return err
	}
	f.fLabels = x.Labels()

	// intercept is modeled as a growth feature
	model, err := linearmodel.NewOLSRegression(&linearmodel.OLSOptions{FitIntercept: false})
	if err != nil {
		return err
	}
	if err := model.Fit(x.Matrix(), mat.NewDense(len(clean.Y), 1, clean.Y)); err != nil {
		return fmt.Errorf("unable to fit linear model, %w", err)
	}
	f.coef = model.Coef()
	f.trained = true

	// use input training to include NaNs
	predicted, _, err := f.Predict(trainingData.T)
	if err != nil {
		return err
	}

	scores, err := NewScores(predicted, trainingData.Y)
	if err != nil {
		return err
	}
	f.scores = scores

	residual := make([]float64, len(trainingData.Y))
	floats.SubTo(residual, trainingData.Y, predicted)
	f.residual = residual

	return nil
}

// Predict takes a slice of times in any order and produces the predicted value for those
// times given a pre-trained model.
func (f *Forecast) Predict(t []time.Time) ([]float64, Components, error) {
	if f == nil {
		return nil, Components{}, ErrUninitializedForecast
	}

	if !f.trained {
		return nil, Components{}, ErrUntrainedForecast
	}

	x, err := f.generateFeatures(t)
	if err != nil {
		return nil, Components{}, err
	}

	trendFeatureSet := x.FilterByType(feature.FeatureTypeGrowth)
	if err := trendFeatureSet.Update(x.FilterByType(feature.FeatureTypeChangepoint)); err != nil {
		return nil, Components{}, err
	}

	comp := Components{
		Trend:       f.runInference(trendFeatureSet, len(t)),
		Seasonality: f.runInference(x.FilterByType(feature.FeatureTypeSeasonality), len(t)),
	}

	res := make([]float64, len(t))
	floats.Add(res, comp.Trend)
	floats.Add(res, comp.Seasonality)
	return res, comp, nil
}

// runInference sums the weighted features of x. Features without a fit coefficient are ignored.
func (f *Forecast) runInference(x *feature.Set, n int) []float64 {
	res := make([]float64, n)
	for _, feat := range x.Labels().Labels() {
		wIdx, exists := f.fLabels.Index(feat)
		if !exists {
			continue
		}
		data, _ := x.Get(feat)
		floats.AddScaled(res, f.coef[wIdx], data)
	}
	return res
}

// Coefficients returns a forecast model map of coefficients keyed by the string
// representation of each feature label
func (f *Forecast) Coefficients() (map[string]float64, error) {
	if f == nil {
		return nil, ErrUninitializedForecast
	}

	labels := f.fLabels.Labels()
	if len(labels) == 0 || len(f.coef) == 0 {
		return nil, ErrNoModelCoefficients
	}
	if len(labels) != len(f.coef) {
		return nil, fmt.Errorf("%d labels and %d coefficients, %w", len(labels), len(f.coef), ErrCoefLenMismatch)
	}
	coef := make(map[string]float64)
	for i := 0; i < len(f.coef); i++ {
		coef[labels[i].String()] = f.coef[i]
	}
	return coef, nil
}

// Intercept returns the weight of the intercept growth feature
func (f *Forecast) Intercept() float64 {
	if f == nil {
		return 0
	}
	idx, exists := f.fLabels.Index(feature.Intercept())
	if !exists || idx >= len(f.coef) {
		return 0
	}
	return f.coef[idx]
}

// Model returns the serializeable format of the forecast model composing of the
// forecast options, coefficients with their feature labels, and the model fit scores
func (f *Forecast) Model() (Model, error) {
	if f == nil {
		return Model{}, ErrUninitializedForecast
	}
	if !f.trained {
		return Model{}, ErrUntrainedForecast
	}

	labels := f.fLabels.Labels()
	fws := make([]FeatureWeight, 0, len(f.coef))
	for i, c := range f.coef {
		fws = append(fws, NewFeatureWeight(labels[i], c))
	}
	m := Model{
		TrainStartTime: f.trainStartTime,
		TrainEndTime:   f.trainEndTime,
		Options:        f.opt,
		Scores:         f.scores,
		Weights:        Weights{Coef: fws},
	}
	return m, nil
}

// ModelEq returns a string representation of the model linear equation in the format of
// y ~ b + m1x1 + m2x2 + ...
func (f *Forecast) ModelEq() (string, error) {
	if f == nil {
		return "", ErrUninitializedForecast
	}

	coef, err := f.Coefficients()
	if err != nil {
		return "", err
	}

	eq := "y ~ "
	eq += fmt.Sprintf("%.2f", f.Intercept())
	for _, label := range f.fLabels.Labels() {
		if label.String() == feature.Intercept().String() {
			continue
		}
		w := coef[label.String()]
		if w == 0 || math.IsNaN(w) {
			continue
		}
		eq += fmt.Sprintf("+%.2f*%s", w, label)
	}
	return eq, nil
}

// Scores returns the fit scores for evaluating how well the resulting model
// fit the training data
func (f *Forecast) Scores() Scores {
	if f == nil || f.scores == nil {
		return Scores{}
	}
	return *f.scores
}

// Residuals returns a slice of values representing the difference between the
// training data and the fit data. NaN training values have a NaN residual.
func (f *Forecast) Residuals() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.residual))
	copy(res, f.residual)
	return res
}
