// Package options contains all forecast options for a linear fit of a univariate time series
package options

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aouyang1/basinflag/feature"
	"github.com/aouyang1/basinflag/forecast/util"
)

const (
	LabelTimeEpoch = "epoch"

	LabelSeasDaily  = "daily"
	LabelSeasWeekly = "weekly"
	LabelSeasYearly = "yearly"
)

var (
	ErrUnknownTimeFeature = errors.New("unknown time feature")
	ErrUnknownGrowthType  = errors.New("unknown growth type")
)

// Options configures a forecast by specifying the growth, changepoints and the seasonal
// components to fit
type Options struct {
	ChangepointOptions ChangepointOptions `json:"changepoint_options"`
	SeasonalityOptions SeasonalityOptions `json:"seasonality_options"`
	GrowthType         string             `json:"growth_type"`
}

// NewDefaultOptions returns a linear growth model with yearly seasonality and no changepoints
func NewDefaultOptions() *Options {
	return &Options{
		ChangepointOptions: NewDefaultChangepointOptions(),
		SeasonalityOptions: NewDefaultSeasonalityOptions(),
		GrowthType:         feature.GrowthLinear,
	}
}

// Validate checks the growth type and drops invalid or duplicate seasonality configs
func (o *Options) Validate() error {
	switch o.GrowthType {
	case "", feature.GrowthLinear:
	default:
		return fmt.Errorf("%q, %w", o.GrowthType, ErrUnknownGrowthType)
	}
	o.SeasonalityOptions.removeDuplicates()
	return nil
}

func (o *Options) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	growth := o.GrowthType
	if growth == "" {
		growth = "None"
	}
	if _, err := fmt.Fprintf(w, "%s%sGrowth: %s\n", prefix, util.IndentExpand(indent, indentGrowth), growth); err != nil {
		return err
	}
	if err := o.SeasonalityOptions.TablePrint(w, prefix, indent, indentGrowth); err != nil {
		return err
	}
	return o.ChangepointOptions.TablePrint(w, prefix, indent, indentGrowth)
}

// GenerateTimeFeatures builds the epoch time feature along with the intercept and growth
// features. The growth features are scaled against the training window.
func (o *Options) GenerateTimeFeatures(t []time.Time, trainStartTime, trainEndTime time.Time) (*feature.Set, error) {
	if o == nil {
		o = NewDefaultOptions()
	}

	tFeat := feature.NewSet()

	epochFeat := feature.NewTime(LabelTimeEpoch)
	epoch := epochFeat.Generate(t)
	if err := tFeat.Set(epochFeat, epoch); err != nil {
		return nil, err
	}

	interceptFeat := feature.Intercept()
	if err := tFeat.Set(interceptFeat, interceptFeat.Generate(epoch, trainStartTime, trainEndTime)); err != nil {
		return nil, err
	}

	switch o.GrowthType {
	case "":
	case feature.GrowthLinear:
		// a single training point has no span to scale a slope against
		if trainEndTime.Equal(trainStartTime) {
			break
		}
		linearFeat := feature.Linear()
		if err := tFeat.Set(linearFeat, linearFeat.Generate(epoch, trainStartTime, trainEndTime)); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%q, %w", o.GrowthType, ErrUnknownGrowthType)
	}
	return tFeat, nil
}

// GenerateFourierFeatures builds the sine and cosine terms of every seasonality config from
// the epoch feature. Orders that repeat the period of a shorter config are skipped.
func (o *Options) GenerateFourierFeatures(tFeat *feature.Set) (*feature.Set, error) {
	if o == nil {
		o = NewDefaultOptions()
	}

	epoch, exists := tFeat.Get(feature.NewTime(LabelTimeEpoch))
	if !exists {
		return nil, ErrUnknownTimeFeature
	}

	o.SeasonalityOptions.removeDuplicates()
	colinear := o.SeasonalityOptions.colinearPeriods()

	x := feature.NewSet()
	for _, seasCfg := range o.SeasonalityOptions.SeasonalityConfigs {
		period := seasCfg.Period.Seconds()
		for order := 1; order <= seasCfg.Orders; order++ {
			if seasCfg.isColinear(order, colinear) {
				continue
			}
			sinFeat := feature.NewSeasonality(LabelTimeEpoch+"_"+seasCfg.Name, feature.FourierCompSin, order)
			cosFeat := feature.NewSeasonality(LabelTimeEpoch+"_"+seasCfg.Name, feature.FourierCompCos, order)
			if err := x.Set(sinFeat, sinFeat.Generate(epoch, period)); err != nil {
				return nil, fmt.Errorf("unable to generate seasonality features for %q, %w", seasCfg.Name, err)
			}
			if err := x.Set(cosFeat, cosFeat.Generate(epoch, period)); err != nil {
				return nil, fmt.Errorf("unable to generate seasonality features for %q, %w", seasCfg.Name, err)
			}
		}
	}
	return x, nil
}
