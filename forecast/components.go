package forecast

// Components splits a prediction into its trend (growth and changepoints) and seasonal parts
type Components struct {
	Trend       []float64 `json:"trend"`
	Seasonality []float64 `json:"seasonality"`
}
