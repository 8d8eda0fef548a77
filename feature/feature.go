// Package feature describes the typed regressors used to build a forecast design matrix. Each
// feature has a stable string representation used to key its data and its model coefficient.
package feature

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrUnknownFeatureType = errors.New("unknown feature type")

type FeatureType string

const (
	FeatureTypeChangepoint FeatureType = "changepoint"
	FeatureTypeSeasonality FeatureType = "seasonality"
	FeatureTypeTime        FeatureType = "time"
	FeatureTypeGrowth      FeatureType = "growth"
)

// Feature is the common interface of every regressor label
type Feature interface {
	String() string
	Get(string) (string, bool)
	Type() FeatureType
	Decode() map[string]string
}

// FromLabels rebuilds a feature from its type and decoded labels
func FromLabels(ft FeatureType, labels map[string]string) (Feature, error) {
	switch ft {
	case FeatureTypeChangepoint:
		return NewChangepoint(labels["name"], ChangepointComp(labels["changepoint_component"])), nil
	case FeatureTypeSeasonality:
		order, err := strconv.Atoi(labels["order"])
		if err != nil {
			return nil, fmt.Errorf("invalid seasonality order %q, %w", labels["order"], err)
		}
		return NewSeasonality(labels["name"], FourierComp(labels["fourier_component"]), order), nil
	case FeatureTypeTime:
		return NewTime(labels["name"]), nil
	case FeatureTypeGrowth:
		return NewGrowth(labels["name"]), nil
	}
	return nil, fmt.Errorf("%q, %w", ft, ErrUnknownFeatureType)
}
