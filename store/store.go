// Package store reads observations from and writes anomaly flags to a SQL database through
// sqlx. SQLite and PostgreSQL are supported.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/aouyang1/basinflag/aggregate"
	"github.com/aouyang1/basinflag/observation"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrInvalidIdentifier = errors.New("invalid sql identifier")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
	ErrUnknownVariable   = errors.New("variable has no observations column")
)

// ObservationColumns are the variable columns of the observations table
var ObservationColumns = []string{"flux", "precip", "temp_max"}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Open connects to the database. SQLite is limited to a single connection so in memory
// databases are shared by every query.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("%q, %w", driver, ErrUnsupportedDriver)
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to %s, %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return New(db), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func validateIdentifiers(names []string) error {
	for _, n := range names {
		if !identifier.MatchString(n) {
			return fmt.Errorf("%q, %w", n, ErrInvalidIdentifier)
		}
	}
	return nil
}

// LoadObservations reads the basin id, gauge name, date and the variable columns of every
// observation. NULL values are NaN.
func (s *Store) LoadObservations(ctx context.Context, variables []string) (*observation.Table, error) {
	if err := validateIdentifiers(variables); err != nil {
		return nil, err
	}
	builder, err := observation.NewBuilder(variables)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		`SELECT basin_id, COALESCE(gauge_name, ''), date, %s FROM observations ORDER BY basin_id, date`,
		strings.Join(variables, ", "),
	)
	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("unable to query observations, %w", err)
	}
	defer rows.Close()

	var n int
	for rows.Next() {
		var basinID, gaugeName, date string
		vals := make([]sql.NullFloat64, len(variables))
		dest := []any{&basinID, &gaugeName, &date}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("unable to scan observation, %w", err)
		}

		t, err := time.Parse(time.DateOnly, date)
		if err != nil {
			return nil, fmt.Errorf("basin %s date %q, %w", basinID, date, observation.ErrMalformedRow)
		}
		values := make([]float64, len(variables))
		for i, v := range vals {
			values[i] = math.NaN()
			if v.Valid {
				values[i] = v.Float64
			}
		}
		if err := builder.Add(observation.Record{
			BasinID:   basinID,
			GaugeName: gaugeName,
			Date:      t,
			Values:    values,
		}); err != nil {
			return nil, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to read observations, %w", err)
	}
	if n == 0 {
		return nil, observation.ErrNoRows
	}
	return builder.Table(), nil
}

// InsertObservations upserts every record of the table in a single transaction
func (s *Store) InsertObservations(ctx context.Context, tbl *observation.Table) error {
	for _, v := range tbl.Variables {
		if !slices.Contains(ObservationColumns, v) {
			return fmt.Errorf("%q, %w", v, ErrUnknownVariable)
		}
	}
	cols := append([]string{"basin_id", "gauge_name", "date"}, tbl.Variables...)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	updates := make([]string, 0, len(cols)-2)
	for _, c := range cols[3:] {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	updates = append(updates, "gauge_name = excluded.gauge_name")
	query := fmt.Sprintf(
		`INSERT INTO observations (%s) VALUES (%s) ON CONFLICT (basin_id, date) DO UPDATE SET %s`,
		strings.Join(cols, ", "), placeholders, strings.Join(updates, ", "),
	)

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(query))
		if err != nil {
			return fmt.Errorf("unable to prepare observation insert, %w", err)
		}
		defer stmt.Close()

		args := make([]any, len(cols))
		for _, b := range tbl.Basins {
			for i, d := range b.Dates {
				args[0], args[1], args[2] = b.ID, b.GaugeName, d.Format(time.DateOnly)
				for j, v := range tbl.Variables {
					args[j+3] = nullable(b.Values[v][i])
				}
				if _, err := stmt.ExecContext(ctx, args...); err != nil {
					return fmt.Errorf("unable to insert basin %s on %s, %w", b.ID, d.Format(time.DateOnly), err)
				}
			}
		}
		return nil
	})
}

func nullable(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

// SaveFlags writes one row per basin, date and variable of the aggregated table under the run
// id in a single transaction
func (s *Store) SaveFlags(ctx context.Context, runID string, tbl *aggregate.Table) error {
	query := `INSERT INTO anomaly_flags (run_id, basin_id, date_ts, variable, extreme) VALUES (?, ?, ?, ?, ?)`
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(query))
		if err != nil {
			return fmt.Errorf("unable to prepare flag insert, %w", err)
		}
		defer stmt.Close()

		for _, r := range tbl.Rows {
			date := r.Date.Format(time.DateOnly)
			for i, v := range tbl.Variables {
				if _, err := stmt.ExecContext(ctx, runID, r.BasinID, date, v, r.Flags[i]); err != nil {
					return fmt.Errorf("unable to insert flag of basin %s on %s, %w", r.BasinID, date, err)
				}
			}
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin transaction, %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("unable to commit transaction, %w", err)
	}
	return nil
}
