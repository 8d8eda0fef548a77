// Package plot renders the diagnostic chart of a backtest result: the observed series, the
// forecast bounds of the fold each point was tested in and the flagged anomalies.
package plot

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aouyang1/basinflag/backtest"
)

const DefaultDir = "anomaly_plots"

var ErrNoRecords = errors.New("no records to plot")

// Title of every chart
func Title(res *backtest.Result) string {
	return fmt.Sprintf("Anomaly Flag, gauge_name = '%s' [id=%s], var = %s", res.GaugeName, res.BasinID, res.Variable)
}

// FileName is {variable}_{basin_id} with the given extension
func FileName(res *backtest.Result, ext string) string {
	return fmt.Sprintf("%s_%s%s", res.Variable, res.BasinID, ext)
}

type renderFunc func(io.Writer, *backtest.Result) error

type renderer struct {
	ext    string
	render renderFunc
}

// Plotter writes a PNG and optionally an HTML chart per result into a directory
type Plotter struct {
	Dir  string
	HTML bool
}

func NewPlotter(dir string, html bool) (*Plotter, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create plot directory, %w", err)
	}
	return &Plotter{Dir: dir, HTML: html}, nil
}

// Plot renders every enabled chart of the result and returns the written paths
func (p *Plotter) Plot(res *backtest.Result) ([]string, error) {
	renderers := []renderer{{ext: ".png", render: WritePNG}}
	if p.HTML {
		renderers = append(renderers, renderer{ext: ".html", render: WriteHTML})
	}

	var paths []string
	for _, r := range renderers {
		path := filepath.Join(p.Dir, FileName(res, r.ext))
		if err := writeFile(path, res, r.render); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	slog.Debug("wrote plots", "basin", res.BasinID, "variable", res.Variable, "paths", paths)
	return paths, nil
}

func writeFile(path string, res *backtest.Result, write renderFunc) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create plot, %w", err)
	}
	if err := write(file, res); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("unable to render %s, %w", path, err)
	}
	return file.Close()
}
