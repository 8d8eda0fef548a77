package forecaster

import (
	"fmt"
	"io"
	"os"

	"github.com/aouyang1/basinflag/forecast"
	"github.com/goccy/go-json"
)

// Model is a serializeable representation of a fit Forecaster
type Model struct {
	Options  *Options       `json:"options"`
	Series   forecast.Model `json:"series_model"`
	Residual forecast.Model `json:"residual_model"`

	// MinSpread is the smallest residual spread used for the bounds
	MinSpread float64 `json:"min_spread"`
}

// Description of a fit Forecaster
type Description struct {
	Equation string
	Scores   forecast.Scores
	Model    Model
}

// WriteFiles writes the model as JSON to <base>.json and its table summary to <base>.txt
func (m Model) WriteFiles(base string) error {
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to marshal model, %w", err)
	}
	if err := os.WriteFile(base+".json", out, 0o644); err != nil {
		return fmt.Errorf("unable to write model, %w", err)
	}

	file, err := os.Create(base + ".txt")
	if err != nil {
		return fmt.Errorf("unable to create model summary, %w", err)
	}
	if err := m.TablePrint(file); err != nil {
		file.Close()
		return fmt.Errorf("unable to write model summary, %w", err)
	}
	return file.Close()
}

// TablePrint writes a human readable summary of the series and residual models
func (m Model) TablePrint(w io.Writer) error {
	if m.Options != nil {
		if _, err := fmt.Fprintf(w, "Interval Width: %.3f    Residual Window: %d    Min Spread: %.4g\n\n",
			m.Options.IntervalWidth, m.Options.ResidualWindow, m.MinSpread); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w, "Series:"); err != nil {
		return err
	}
	if err := m.Series.TablePrint(w, "  ", "  "); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "\nResidual:"); err != nil {
		return err
	}
	if err := m.Residual.TablePrint(w, "  ", "  "); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}
