package plot

import (
	"fmt"
	"image/color"
	"io"
	"sync"

	"github.com/aouyang1/basinflag/backtest"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	Width  = 1400
	Height = 800

	// one point per pixel
	dpi = 72

	typeface = "Go"
)

var (
	colorLine    = color.RGBA{31, 119, 180, 255}
	colorBand    = color.NRGBA{128, 128, 128, 77}
	colorAnomaly = color.RGBA{214, 39, 40, 255}
)

var (
	fontOnce sync.Once
	fontErr  error
)

// registerFont makes the Go regular face the default of every chart
func registerFont() error {
	fontOnce.Do(func() {
		fnt, err := opentype.Parse(goregular.TTF)
		if err != nil {
			fontErr = fmt.Errorf("unable to parse font, %w", err)
			return
		}
		font.DefaultCache.Add(font.Collection{
			{Font: font.Font{Typeface: typeface}, Face: fnt},
		})
		gplot.DefaultFont = font.Font{Typeface: typeface}
		plotter.DefaultFont = font.Font{Typeface: typeface}
	})
	return fontErr
}

// WritePNG renders the observed series, the shaded bounds and red anomaly markers
func WritePNG(w io.Writer, res *backtest.Result) error {
	if len(res.Records) == 0 {
		return ErrNoRecords
	}
	if err := registerFont(); err != nil {
		return err
	}

	p := gplot.New()
	p.Title.Text = Title(res)
	p.Title.TextStyle.Font.Size = vg.Points(18)
	p.X.Label.Text = "date"
	p.X.Tick.Marker = gplot.TimeTicks{Format: "2006-01"}
	p.Y.Label.Text = res.Variable
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	observed := make(plotter.XYs, 0, len(res.Records))
	bounds := make(plotter.XYs, 0, 2*len(res.Records))
	var anomalies plotter.XYs
	for _, r := range res.Records {
		x := float64(r.Date.Unix())
		observed = append(observed, plotter.XY{X: x, Y: r.Actual})
		bounds = append(bounds, plotter.XY{X: x, Y: r.Upper})
		if r.Flag {
			anomalies = append(anomalies, plotter.XY{X: x, Y: r.Actual})
		}
	}
	for i := len(res.Records) - 1; i >= 0; i-- {
		r := res.Records[i]
		bounds = append(bounds, plotter.XY{X: float64(r.Date.Unix()), Y: r.Lower})
	}

	band, err := plotter.NewPolygon(bounds)
	if err != nil {
		return fmt.Errorf("unable to create bounds, %w", err)
	}
	band.Color = colorBand
	band.LineStyle.Width = 0

	line, err := plotter.NewLine(observed)
	if err != nil {
		return fmt.Errorf("unable to create observed line, %w", err)
	}
	line.LineStyle.Color = colorLine
	line.LineStyle.Width = vg.Points(1.5)

	p.Add(band, line)
	p.Legend.Add("observed", line)
	p.Legend.Add("forecast bounds", band)

	if len(anomalies) > 0 {
		marks, err := plotter.NewScatter(anomalies)
		if err != nil {
			return fmt.Errorf("unable to create anomaly markers, %w", err)
		}
		marks.GlyphStyle.Color = colorAnomaly
		marks.GlyphStyle.Radius = vg.Points(4)
		marks.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(marks)
		p.Legend.Add("anomaly", marks)
	}

	c := vgimg.NewWith(
		vgimg.UseWH(Width, Height),
		vgimg.UseDPI(dpi),
		vgimg.UseBackgroundColor(color.White),
	)
	p.Draw(draw.New(c))
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return fmt.Errorf("unable to encode png, %w", err)
	}
	return nil
}
