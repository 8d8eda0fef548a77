package store

import (
	"context"
	"fmt"
	"log/slog"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS observations (
    basin_id TEXT NOT NULL,
    gauge_name TEXT,
    date TEXT NOT NULL,
    flux DOUBLE PRECISION,
    precip DOUBLE PRECISION,
    temp_max DOUBLE PRECISION,
    PRIMARY KEY (basin_id, date)
);

CREATE TABLE IF NOT EXISTS anomaly_flags (
    run_id TEXT NOT NULL,
    basin_id TEXT NOT NULL,
    date_ts TEXT NOT NULL,
    variable TEXT NOT NULL,
    extreme BOOLEAN NOT NULL,
    PRIMARY KEY (run_id, basin_id, date_ts, variable)
);

CREATE INDEX IF NOT EXISTS idx_anomaly_flags_basin ON anomaly_flags(basin_id, date_ts);
`,
	},
}

// Migrate applies every migration newer than the recorded schema version
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY, description TEXT)`); err != nil {
		return fmt.Errorf("unable to create migrations table, %w", err)
	}

	var current int
	if err := s.db.GetContext(ctx, &current, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`); err != nil {
		return fmt.Errorf("unable to read schema version, %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("unable to begin migration %d, %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("unable to apply migration %d, %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`), m.Version, m.Description); err != nil {
			tx.Rollback()
			return fmt.Errorf("unable to record migration %d, %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("unable to commit migration %d, %w", m.Version, err)
		}
		slog.Info("applied migration", "version", m.Version, "description", m.Description)
	}
	return nil
}
