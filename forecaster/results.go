package forecaster

import (
	"time"

	"github.com/aouyang1/basinflag/forecast"
)

// Results holds the point forecast and the interval bounds for every requested time
type Results struct {
	T                  []time.Time         `json:"time"`
	Forecast           []float64           `json:"forecast"`
	Upper              []float64           `json:"upper"`
	Lower              []float64           `json:"lower"`
	SeriesComponents   forecast.Components `json:"series_components"`
	ResidualComponents forecast.Components `json:"residual_components"`
}
