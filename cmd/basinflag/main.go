// Command basinflag backtests a forecast of every basin variable in a set of daily hydrological
// observations, flags the observations above the forecast upper bound and writes the flags of
// every complete basin to a single table along with a diagnostic plot per basin variable.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

const envFile = ".env"

func main() {
	if err := loadEnv(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "unable to load %s, %v\n", envFile, err)
		os.Exit(1)
	}

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("basinflag"),
		kong.Description("Flag anomalous daily basin observations with a rolling forecast backtest."),
		kong.UsageOnError(),
	)

	logger, err := newLogger(os.Stderr, cli.LogFormat, cli.LogLevel)
	kctx.FatalIfErrorf(err)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &cli); err != nil {
		slog.Error("run failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// loadEnv loads the env file when present. Variables already set take precedence.
func loadEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q, %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("%q, %w", format, ErrUnknownLogFormat)
}
