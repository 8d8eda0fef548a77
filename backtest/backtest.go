// Package backtest runs a rolling origin backtest of a forecast model over a daily series and
// flags every observation above the upper bound of the fold it was tested in. Flagged values
// are removed from the history of every later fold.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aouyang1/basinflag/forecaster"
	"github.com/aouyang1/basinflag/observation"
	"github.com/aouyang1/basinflag/timedataset"
)

const (
	DaysPerYear      = 365
	DefaultTrainDays = 3 * DaysPerYear
	DefaultTestDays  = 3 * DaysPerYear

	day = 24 * time.Hour
)

var (
	ErrInvalidWindow     = errors.New("train and test windows must be positive")
	ErrNoModelFactory    = errors.New("no model factory")
	ErrMisalignedPredict = errors.New("prediction length does not match requested times")
)

// Model is fit on the training history of a fold and predicts the bounds of its test window.
// NaN values in the training data are expected to be ignored.
type Model interface {
	Fit(t []time.Time, y []float64) error
	Predict(t []time.Time) (*forecaster.Results, error)
}

// Describer is implemented by models that can summarize their fit
type Describer interface {
	Describe() (*forecaster.Description, error)
}

// ModelFactory creates a fresh untrained model for every fold
type ModelFactory func() (Model, error)

// NewForecasterFactory returns a factory of forecasters with linear growth, yearly seasonality
// and no changepoints at the given interval width
func NewForecasterFactory(intervalWidth float64) ModelFactory {
	return func() (Model, error) {
		opt := forecaster.NewDefaultOptions()
		opt.IntervalWidth = intervalWidth
		f, err := forecaster.New(opt)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

// Options sets the length of the initial training window and of every test window in days.
// Training windows expand so later folds train on all history before their cutoff.
type Options struct {
	TrainDays int
	TestDays  int
}

func NewDefaultOptions() Options {
	return Options{
		TrainDays: DefaultTrainDays,
		TestDays:  DefaultTestDays,
	}
}

func (o Options) initial() time.Duration {
	return time.Duration(o.TrainDays) * day
}

func (o Options) horizon() time.Duration {
	return time.Duration(o.TestDays) * day
}

// Backtester runs the rolling backtest with models built by its factory
type Backtester struct {
	opt      Options
	newModel ModelFactory
}

func New(opt Options, newModel ModelFactory) (*Backtester, error) {
	if opt.TrainDays <= 0 || opt.TestDays <= 0 {
		return nil, fmt.Errorf("train %d days, test %d days, %w", opt.TrainDays, opt.TestDays, ErrInvalidWindow)
	}
	if newModel == nil {
		return nil, ErrNoModelFactory
	}
	return &Backtester{
		opt:      opt,
		newModel: newModel,
	}, nil
}

// Run backtests a single series. Series with no more points than the train and test windows
// combined return ErrInsufficientHistory. The input series is not modified.
func (b *Backtester) Run(ctx context.Context, s *observation.Series) (*Result, error) {
	if len(s.T) <= b.opt.TrainDays+b.opt.TestDays {
		return nil, fmt.Errorf("%d points for %d training and %d test days, %w",
			len(s.T), b.opt.TrainDays, b.opt.TestDays, ErrInsufficientHistory)
	}
	working, err := timedataset.NewUnivariateDataset(s.T, s.Y)
	if err != nil {
		return nil, fmt.Errorf("unable to create series dataset, %w", err)
	}
	index := make(map[int64]int, len(working.T))
	for i, tPnt := range working.T {
		index[tPnt.Unix()] = i
	}

	horizon := b.opt.horizon()
	cutoffs, err := GenerateCutoffs(working.T, b.opt.initial(), horizon, horizon)
	if err != nil {
		return nil, err
	}

	res := &Result{
		BasinID:   s.BasinID,
		GaugeName: s.GaugeName,
		Variable:  s.Variable,
	}
	var last Model
	for _, cutoff := range cutoffs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		model, records, trainSize, err := b.runFold(working, cutoff, horizon)
		if err != nil {
			return nil, fmt.Errorf("unable to backtest cutoff %s, %w", cutoff.Format(time.DateOnly), err)
		}

		var numOutliers int
		for _, r := range records {
			if !r.Flag {
				continue
			}
			numOutliers++
			working.Y[index[r.Date.Unix()]] = math.NaN()
		}
		last = model
		res.Records = append(res.Records, records...)
		res.Folds = append(res.Folds, Fold{
			Cutoff:      cutoff,
			TrainSize:   trainSize,
			TestSize:    len(records),
			NumOutliers: numOutliers,
			Elapsed:     time.Since(start),
		})
		slog.Info("backtest fold",
			"basin", s.BasinID,
			"variable", s.Variable,
			"cutoff", cutoff.Format(time.DateOnly),
			"num_outliers", numOutliers,
		)
	}
	res.Records = dropNan(res.Records)

	if d, ok := last.(Describer); ok {
		res.LastFit, err = d.Describe()
		if err != nil {
			return nil, fmt.Errorf("unable to describe last fold model, %w", err)
		}
	}
	return res, nil
}

// runFold fits on every point at or before the cutoff and tests the points in
// (cutoff, cutoff+horizon] that have a forecast
func (b *Backtester) runFold(working *timedataset.TimeDataset, cutoff time.Time, horizon time.Duration) (Model, []Record, int, error) {
	train := working.Until(cutoff)
	if len(train.T) == 0 {
		return nil, nil, 0, ErrInsufficientHistory
	}

	model, err := b.newModel()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("unable to create model, %w", err)
	}
	if err := model.Fit(train.T, train.Y); err != nil {
		return nil, nil, 0, fmt.Errorf("unable to fit model, %w", err)
	}

	lastTrain := timedataset.TimeSlice(train.T).EndTime()
	tFuture := timedataset.DailyAfter(lastTrain, b.opt.TestDays)
	pred, err := model.Predict(tFuture)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("unable to predict test window, %w", err)
	}
	if len(pred.T) != len(pred.Forecast) || len(pred.T) != len(pred.Upper) || len(pred.T) != len(pred.Lower) {
		return nil, nil, 0, ErrMisalignedPredict
	}
	predIdx := make(map[int64]int, len(pred.T))
	for i, tPnt := range pred.T {
		predIdx[tPnt.Unix()] = i
	}

	test := working.Window(cutoff, cutoff.Add(horizon))
	records := make([]Record, 0, len(test.T))
	for i, tPnt := range test.T {
		j, exists := predIdx[tPnt.Unix()]
		if !exists {
			continue
		}
		actual := test.Y[i]
		records = append(records, Record{
			Date:     tPnt,
			Actual:   actual,
			Forecast: pred.Forecast[j],
			Upper:    pred.Upper[j],
			Lower:    pred.Lower[j],
			Flag:     actual > pred.Upper[j],
		})
	}
	return model, records, len(train.T), nil
}

func dropNan(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if math.IsNaN(r.Actual) || math.IsNaN(r.Forecast) || math.IsNaN(r.Upper) || math.IsNaN(r.Lower) {
			continue
		}
		out = append(out, r)
	}
	return out
}
