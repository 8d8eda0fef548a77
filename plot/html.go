package plot

import (
	"io"
	"math"
	"time"

	"github.com/aouyang1/basinflag/backtest"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteHTML renders an interactive echarts page with the anomaly chart and the forecast residual
func WriteHTML(w io.Writer, res *backtest.Result) error {
	if len(res.Records) == 0 {
		return ErrNoRecords
	}

	t := make([]time.Time, len(res.Records))
	residual := make([]float64, len(res.Records))
	for i, r := range res.Records {
		t[i] = r.Date
		residual[i] = r.Actual - r.Forecast
	}

	page := components.NewPage()
	page.SetPageTitle(Title(res))
	page.AddCharts(
		LineAnomaly(res),
		LineTSeries("Forecast Residual", []string{"Residual"}, t, [][]float64{residual}),
	)
	return page.Render(w)
}

func dateAxis(t []time.Time) []string {
	x := make([]string, len(t))
	for i, tPnt := range t {
		x[i] = tPnt.Format(time.DateOnly)
	}
	return x
}

// LineTSeries generates an echart multi-line chart for some arbitrary time/value combination. Every
// series in y must have the same length as t. NaN values are left as gaps.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	line = line.SetXAxis(dateAxis(t))
	for i, series := range seriesName {
		lineData := make([]opts.LineData, 0, len(y[i]))
		for _, v := range y[i] {
			lineData = append(lineData, lineValue(v))
		}
		line = line.AddSeries(series, lineData)
	}
	return line
}

func lineValue(v float64) opts.LineData {
	if math.IsNaN(v) {
		return opts.LineData{Value: "-"}
	}
	return opts.LineData{Value: v}
}

// LineAnomaly plots the observed values with the forecast, its bounds and the flagged points
func LineAnomaly(res *backtest.Result) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: Title(res),
			},
		),
		charts.WithInitializationOpts(opts.Initialization{Width: "1400px", Height: "800px"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	n := len(res.Records)
	t := make([]time.Time, 0, n)
	lineDataActual := make([]opts.LineData, 0, n)
	lineDataForecast := make([]opts.LineData, 0, n)
	lineDataUpper := make([]opts.LineData, 0, n)
	lineDataLower := make([]opts.LineData, 0, n)
	lineDataAnomaly := make([]opts.LineData, 0, n)

	for _, r := range res.Records {
		t = append(t, r.Date)
		lineDataActual = append(lineDataActual, lineValue(r.Actual))
		lineDataForecast = append(lineDataForecast, lineValue(r.Forecast))
		lineDataUpper = append(lineDataUpper, lineValue(r.Upper))
		lineDataLower = append(lineDataLower, lineValue(r.Lower))
		if r.Flag {
			lineDataAnomaly = append(lineDataAnomaly, opts.LineData{Value: r.Actual})
		} else {
			lineDataAnomaly = append(lineDataAnomaly, opts.LineData{Value: "-"})
		}
	}

	bound := charts.WithLineStyleOpts(opts.LineStyle{Color: "gray", Type: "dashed"})
	line.SetXAxis(dateAxis(t)).
		AddSeries("Actual", lineDataActual,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		).
		AddSeries("Forecast", lineDataForecast,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		).
		AddSeries("Upper", lineDataUpper, bound,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		).
		AddSeries("Lower", lineDataLower, bound,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		).
		AddSeries("Anomaly", lineDataAnomaly,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true), SymbolSize: 8}),
			charts.WithLineStyleOpts(opts.LineStyle{Opacity: opts.Float(0)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "red"}),
		)
	return line
}
