package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aouyang1/basinflag/aggregate"
	"github.com/aouyang1/basinflag/backtest"
	"github.com/aouyang1/basinflag/metrics"
	"github.com/aouyang1/basinflag/observation"
	"github.com/aouyang1/basinflag/pipeline"
	"github.com/aouyang1/basinflag/plot"
	"github.com/aouyang1/basinflag/report"
	"github.com/aouyang1/basinflag/store"
	"github.com/pkg/profile"
)

const (
	SourceFile = "file"
	SourceDB   = "db"
)

var (
	ErrMissingDSN       = errors.New("a database dsn is required")
	ErrUnknownLogFormat = errors.New("unknown log format")
)

// CLI is the command configuration. Every flag can also be set from its environment variable.
type CLI struct {
	Input     string   `help:"Observation file, .csv or .xlsx." default:"challenge_watershed/flux.csv" env:"BASINFLAG_INPUT"`
	Source    string   `help:"Read observations from a file or the database." enum:"file,db" default:"file" env:"BASINFLAG_SOURCE"`
	Variables []string `help:"Variables to backtest." default:"flux,precip,temp_max" env:"BASINFLAG_VARIABLES"`

	DBDriver string `name:"db-driver" help:"Database driver." enum:"sqlite,postgres" default:"sqlite" env:"BASINFLAG_DB_DRIVER"`
	DBDSN    string `name:"db-dsn" help:"Database connection string. Flags are saved to the database when set." env:"BASINFLAG_DB_DSN"`

	TrainYears    int     `name:"train-years" help:"Years of history before the first cutoff." default:"3" env:"BASINFLAG_TRAIN_YEARS"`
	TestYears     int     `name:"test-years" help:"Years in every test window." default:"3" env:"BASINFLAG_TEST_YEARS"`
	IntervalWidth float64 `name:"interval-width" help:"Probability mass between the forecast bounds." default:"0.99" env:"BASINFLAG_INTERVAL_WIDTH"`
	Parallelism   int     `help:"Number of concurrent backtests." default:"8" env:"BASINFLAG_PARALLELISM"`

	PlotDir     string `name:"plot-dir" help:"Directory of the diagnostic plots." default:"anomaly_plots" env:"BASINFLAG_PLOT_DIR"`
	HTML        bool   `name:"html" help:"Also write an interactive html plot." env:"BASINFLAG_HTML"`
	Output      string `help:"Flag table, .csv or .xlsx." default:"anomaly_flag.csv" env:"BASINFLAG_OUTPUT"`
	Report      string `help:"Write a json run report to this path." env:"BASINFLAG_REPORT"`
	ModelDir    string `name:"model-dir" help:"Write the final fold model of every backtest as json and text into this directory." env:"BASINFLAG_MODEL_DIR"`
	MetricsFile string `name:"metrics-file" help:"Write prometheus metrics in textfile format to this path." env:"BASINFLAG_METRICS_FILE"`
	Profile     string `help:"Write a cpu profile into this directory." env:"BASINFLAG_PROFILE"`

	LogFormat string `name:"log-format" help:"Log format." enum:"text,json" default:"text" env:"BASINFLAG_LOG_FORMAT"`
	LogLevel  string `name:"log-level" help:"Log level." enum:"debug,info,warn,error" default:"info" env:"BASINFLAG_LOG_LEVEL"`
}

func run(ctx context.Context, cli *CLI) error {
	start := time.Now()
	if cli.Profile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(cli.Profile), profile.NoShutdownHook).Stop()
	}
	if cli.Source == SourceDB && cli.DBDSN == "" {
		return ErrMissingDSN
	}

	var st *store.Store
	if cli.DBDSN != "" {
		var err error
		st, err = store.Open(ctx, cli.DBDriver, cli.DBDSN)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return fmt.Errorf("unable to migrate database, %w", err)
		}
	}

	tbl, err := loadObservations(ctx, cli, st)
	if err != nil {
		return err
	}
	if st != nil && cli.Source == SourceFile {
		if err := storeObservations(ctx, st, tbl); err != nil {
			return err
		}
	}

	newModel := backtest.NewForecasterFactory(cli.IntervalWidth)
	if _, err := newModel(); err != nil {
		return fmt.Errorf("invalid forecaster configuration, %w", err)
	}
	bt, err := backtest.New(
		backtest.Options{
			TrainDays: cli.TrainYears * backtest.DaysPerYear,
			TestDays:  cli.TestYears * backtest.DaysPerYear,
		},
		newModel,
	)
	if err != nil {
		return fmt.Errorf("unable to create backtester, %w", err)
	}

	plotter, err := plot.NewPlotter(cli.PlotDir, cli.HTML)
	if err != nil {
		return err
	}
	m := metrics.New()
	runner, err := pipeline.New(bt, pipeline.Options{
		Parallelism: cli.Parallelism,
		Plotter:     plotter,
		Metrics:     m,
		ModelDir:    cli.ModelDir,
	})
	if err != nil {
		return err
	}

	outcomes, err := runner.Run(ctx, tbl)
	if err != nil {
		return fmt.Errorf("backtests interrupted, %w", err)
	}

	flags := aggregate.Merge(pipeline.Results(outcomes), tbl.Variables)
	if err := aggregate.Write(cli.Output, flags); err != nil {
		return err
	}

	rep, err := buildReport(outcomes, tbl.Variables, start)
	if err != nil {
		return err
	}
	if st != nil {
		if err := st.SaveFlags(ctx, rep.RunID, flags); err != nil {
			return fmt.Errorf("unable to save flags, %w", err)
		}
	}
	if cli.Report != "" {
		if err := rep.WriteFile(cli.Report); err != nil {
			return err
		}
	}
	if cli.MetricsFile != "" {
		if err := m.WriteTextfile(cli.MetricsFile); err != nil {
			return err
		}
	}

	slog.Info("finished",
		"run_id", rep.RunID,
		"output", cli.Output,
		"basins", len(flags.Basins()),
		"rows", len(flags.Rows),
		"anomalies", rep.Anomalies,
		"status", rep.Status,
		"elapsed", time.Since(start),
	)
	return nil
}

func loadObservations(ctx context.Context, cli *CLI, st *store.Store) (*observation.Table, error) {
	if cli.Source == SourceDB {
		tbl, err := st.LoadObservations(ctx, cli.Variables)
		if err != nil {
			return nil, fmt.Errorf("unable to load observations from database, %w", err)
		}
		return tbl, nil
	}
	return observation.Load(cli.Input, cli.Variables)
}

// storeObservations upserts the file observations so later runs can read them from the database
func storeObservations(ctx context.Context, st *store.Store, tbl *observation.Table) error {
	err := st.InsertObservations(ctx, tbl)
	if errors.Is(err, store.ErrUnknownVariable) {
		slog.Warn("observations not stored", "reason", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("unable to store observations, %w", err)
	}
	slog.Info("stored observations", "basins", len(tbl.Basins), "rows", tbl.Len())
	return nil
}

func buildReport(outcomes []pipeline.Outcome, variables []string, start time.Time) (*report.Report, error) {
	rep := report.New(variables, start)
	for _, o := range outcomes {
		if o.Result == nil {
			rep.AddJob(report.JobFromError(o.BasinID, o.GaugeName, o.Variable, o.Status, o.Err))
			continue
		}
		job, err := report.JobFromResult(o.Result)
		if err != nil {
			return nil, err
		}
		rep.AddJob(job)
	}
	rep.Finish(time.Now())
	return rep, nil
}
