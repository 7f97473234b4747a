package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

var (
	dbInstance *DB
	once       sync.Once
)

// NewDB creates a new database connection pool
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	var err error
	once.Do(func() {
		connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

		var db *sqlx.DB
		db, err = sqlx.Connect("postgres", connStr)
		if err != nil {
			return
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		// Initialize with a semaphore to limit concurrent operations
		dbInstance = &DB{
			DB:  db,
			sem: semaphore.NewWeighted(10), // Limit to 10 concurrent operations
		}
	})

	return dbInstance, err
}

// NewDBFromURL connects using a single connection string. CLIs that take
// a -db-url flag use this with the pgx stdlib driver; the caller is
// responsible for importing the driver.
func NewDBFromURL(driverName, dbURL string) (*DB, error) {
	db, err := sqlx.Connect(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &DB{
		DB:  db,
		sem: semaphore.NewWeighted(10),
	}, nil
}

// WithTx executes a function within a transaction
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	// Acquire semaphore
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx.Tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// schemaStatements holds the full schema. Statements are idempotent so
// EnsureSchema can run on every seed or importer start.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS forecast_runs (
		id BIGSERIAL PRIMARY KEY,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		horizon_days INT NOT NULL,
		safety_factor DOUBLE PRECISION NOT NULL,
		seed BIGINT,
		source INT NOT NULL DEFAULT 0,
		series_name TEXT,
		mean_absolute_error DOUBLE PRECISION NOT NULL DEFAULT 0,
		root_mean_squared_error DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS run_records (
		id BIGSERIAL PRIMARY KEY,
		run_id BIGINT NOT NULL REFERENCES forecast_runs(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		date DATE NOT NULL,
		actual_sales INT,
		predicted_sales INT,
		lower_bound INT,
		upper_bound INT,
		trend_component DOUBLE PRECISION,
		yearly_component DOUBLE PRECISION,
		weekly_component DOUBLE PRECISION,
		recommended_stock INT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_run_records_run_kind_date ON run_records (run_id, kind, date)`,
	`CREATE TABLE IF NOT EXISTS sales_series (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS sales_series_points (
		series_id BIGINT NOT NULL REFERENCES sales_series(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		units INT NOT NULL,
		PRIMARY KEY (series_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS import_runs (
		id BIGSERIAL PRIMARY KEY,
		pipeline_name TEXT NOT NULL,
		snapshot_date DATE NOT NULL,
		status TEXT NOT NULL,
		total_files INT NOT NULL DEFAULT 0,
		processed_files INT NOT NULL DEFAULT 0,
		failed_files INT NOT NULL DEFAULT 0,
		started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at TIMESTAMPTZ,
		UNIQUE (pipeline_name, snapshot_date)
	)`,
	`CREATE TABLE IF NOT EXISTS import_files (
		id BIGSERIAL PRIMARY KEY,
		import_run_id BIGINT NOT NULL REFERENCES import_runs(id) ON DELETE CASCADE,
		file_name TEXT NOT NULL,
		status TEXT NOT NULL,
		error_message TEXT,
		rows_ingested INT NOT NULL DEFAULT 0,
		retry_count INT NOT NULL DEFAULT 0,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		UNIQUE (import_run_id, file_name)
	)`,
}

// EnsureSchema creates the tables the services depend on when they do
// not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("could not apply schema statement: %w", err)
		}
	}
	return nil
}
