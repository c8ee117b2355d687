// Package dataset creates and fills synthetic observation and location-map
// tables for demos and tests.
package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/whhaicheng/PenguinBM/internal/domain/query"
)

// ErrUnsupportedDialect is returned for data sources seeding cannot write to.
var ErrUnsupportedDialect = errors.New("seeding is not supported for this data source")

// Seeding needs CREATE TABLE IF NOT EXISTS and case-insensitive column names.
var seedDialects = map[string]bool{
	query.DialectSQLite: true,
	query.DialectMySQL:  true,
}

const batchSize = 300

// Options describe the synthetic grid.
type Options struct {
	Tables query.Tables

	// Rows and Cols size the location grid; IDs run row-major from 1.
	Rows int
	Cols int

	StartYear int
	Years     int

	// DayStep samples every n-th day of each year.
	DayStep int

	// MinBT and MaxBT bound the generated brightness temperatures.
	MinBT int
	MaxBT int

	// Seed makes the generated values reproducible.
	Seed uint64

	// Replace drops existing tables first.
	Replace bool
}

// DefaultOptions returns a small grid suitable for the web demo.
func DefaultOptions(tables query.Tables) Options {
	return Options{
		Tables:    tables,
		Rows:      32,
		Cols:      33,
		StartYear: 1990,
		Years:     3,
		DayStep:   30,
		MinBT:     100,
		MaxBT:     300,
		Seed:      1990,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if err := o.Tables.Validate(); err != nil {
		return err
	}
	switch {
	case o.Rows < 1 || o.Cols < 1:
		return errors.New("rows and cols must be positive")
	case o.StartYear < 1 || o.Years < 1:
		return errors.New("start year and years must be positive")
	case o.DayStep < 1:
		return errors.New("day step must be positive")
	case o.MinBT >= o.MaxBT:
		return errors.New("min bt must be below max bt")
	}
	return nil
}

// Stats reports how much was written.
type Stats struct {
	Locations    int           `json:"locations"`
	Observations int           `json:"observations"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Seed creates both tables and fills them inside one transaction.
func Seed(ctx context.Context, db *sql.DB, dialect string, opts Options, log *slog.Logger) (Stats, error) {
	if !seedDialects[dialect] {
		return Stats{}, fmt.Errorf("%w: %q", ErrUnsupportedDialect, dialect)
	}
	if err := opts.Validate(); err != nil {
		return Stats{}, fmt.Errorf("seed options: %w", err)
	}
	start := time.Now()
	d := goqu.Dialect(dialect)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	if opts.Replace {
		for _, name := range []string{opts.Tables.Observation, opts.Tables.LocationMap} {
			if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
				return Stats{}, fmt.Errorf("drop %s: %w", name, err)
			}
		}
	}
	for _, ddl := range schema(opts.Tables, dialect) {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return Stats{}, fmt.Errorf("create tables: %w", err)
		}
	}

	var stats Stats

	locs := make([]any, 0, batchSize)
	flushLocs := func() error {
		if len(locs) == 0 {
			return nil
		}
		if err := insert(ctx, tx, d, opts.Tables.LocationMap, locs); err != nil {
			return err
		}
		stats.Locations += len(locs)
		locs = locs[:0]
		return nil
	}
	for r := 0; r < opts.Rows; r++ {
		for c := 0; c < opts.Cols; c++ {
			locs = append(locs, goqu.Record{"ID": r*opts.Cols + c + 1, "ROW": r, "COL": c})
			if len(locs) == batchSize {
				if err := flushLocs(); err != nil {
					return Stats{}, err
				}
			}
		}
	}
	if err := flushLocs(); err != nil {
		return Stats{}, err
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	span := opts.MaxBT - opts.MinBT
	nLoc := opts.Rows * opts.Cols

	obs := make([]any, 0, batchSize)
	for y := opts.StartYear; y < opts.StartYear+opts.Years; y++ {
		for day := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC); day.Year() == y; day = day.AddDate(0, 0, opts.DayStep) {
			date := day.Format(query.DateLayout)
			for id := 1; id <= nLoc; id++ {
				obs = append(obs, goqu.Record{"DATE": date, "LOCID": id, "BT": opts.MinBT + rng.IntN(span+1)})
				if len(obs) == batchSize {
					if err := insert(ctx, tx, d, opts.Tables.Observation, obs); err != nil {
						return Stats{}, err
					}
					stats.Observations += len(obs)
					obs = obs[:0]
				}
			}
		}
	}
	if len(obs) > 0 {
		if err := insert(ctx, tx, d, opts.Tables.Observation, obs); err != nil {
			return Stats{}, err
		}
		stats.Observations += len(obs)
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed: %w", err)
	}
	stats.Elapsed = time.Since(start)

	log.Info("dataset seeded",
		slog.String("observation", opts.Tables.Observation),
		slog.String("location_map", opts.Tables.LocationMap),
		slog.Int("locations", stats.Locations),
		slog.Int("observations", stats.Observations),
		slog.Duration("elapsed", stats.Elapsed))
	return stats, nil
}

// schema mirrors the channel and location-map layout: the map is keyed by
// ID, each channel table by (DATE, LOCID). Column names are quoted since
// ROW is reserved in MySQL.
func schema(t query.Tables, dialect string) []string {
	q := func(name string) string { return `"` + name + `"` }
	if dialect == query.DialectMySQL {
		q = func(name string) string { return "`" + name + "`" }
	}
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s INT PRIMARY KEY, %s SMALLINT NOT NULL, %s SMALLINT NOT NULL)",
			t.LocationMap, q("ID"), q("ROW"), q("COL")),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s DATE NOT NULL, %s INT NOT NULL, %s SMALLINT, PRIMARY KEY (%s, %s))",
			t.Observation, q("DATE"), q("LOCID"), q("BT"), q("DATE"), q("LOCID")),
	}
}

func insert(ctx context.Context, tx *sql.Tx, d goqu.DialectWrapper, table string, rows []any) error {
	stmt, args, err := d.Insert(table).Rows(rows...).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build insert into %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}
