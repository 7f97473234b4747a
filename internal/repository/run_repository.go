// backend-go/internal/repository/run_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/repository/postgres"
)

// ErrRunNotFound is returned when a forecast run id does not exist.
var ErrRunNotFound = errors.New("forecast run not found")

type RunRepository interface {
	CreateRun(ctx context.Context, run *domain.ForecastRun, records []domain.RunRecord) error
	GetRun(ctx context.Context, id int64) (*domain.ForecastRun, error)
	GetRunRecords(ctx context.Context, runID int64, kind string) ([]domain.RunRecord, error)
	ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.ForecastRun, int, error)
}

type runRepository struct {
	db *postgres.DB
}

func NewRunRepository(db *postgres.DB) RunRepository {
	return &runRepository{db: db}
}

// CreateRun persists the run header and all of its per-day records in a
// single transaction, filling run.ID and run.CreatedAt on success.
func (r *runRepository) CreateRun(ctx context.Context, run *domain.ForecastRun, records []domain.RunRecord) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO forecast_runs (
				start_date, end_date, horizon_days, safety_factor, seed,
				source, series_name, mean_absolute_error, root_mean_squared_error
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at
		`,
			run.StartDate, run.EndDate, run.HorizonDays, run.SafetyFactor, run.Seed,
			run.Source, run.SeriesName, run.MeanAbsoluteError, run.RootMeanSquaredError,
		).Scan(&run.ID, &run.CreatedAt)
		if err != nil {
			return fmt.Errorf("error inserting forecast run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO run_records (
				run_id, kind, date, actual_sales, predicted_sales,
				lower_bound, upper_bound, trend_component, yearly_component,
				weekly_component, recommended_stock
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`)
		if err != nil {
			return fmt.Errorf("error preparing record insert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range records {
			if _, err := stmt.ExecContext(ctx,
				run.ID, rec.Kind, rec.Date, rec.ActualSales, rec.PredictedSales,
				rec.LowerBound, rec.UpperBound, rec.TrendComponent, rec.YearlyComponent,
				rec.WeeklyComponent, rec.RecommendedStock,
			); err != nil {
				return fmt.Errorf("error inserting run record for %s: %w", rec.Date, err)
			}
		}

		return nil
	})
}

func (r *runRepository) GetRun(ctx context.Context, id int64) (*domain.ForecastRun, error) {
	query := `
		SELECT id, start_date, end_date, horizon_days, safety_factor, seed,
		       source, series_name, mean_absolute_error, root_mean_squared_error, created_at
		FROM forecast_runs
		WHERE id = $1
	`

	var run domain.ForecastRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("error getting forecast run %d: %w", id, err)
	}
	run.SourceLabel = domain.RunSourceLabel(run.Source)

	return &run, nil
}

func (r *runRepository) GetRunRecords(ctx context.Context, runID int64, kind string) ([]domain.RunRecord, error) {
	query := `
		SELECT id, run_id, kind, date, actual_sales, predicted_sales,
		       lower_bound, upper_bound, trend_component, yearly_component,
		       weekly_component, recommended_stock
		FROM run_records
		WHERE run_id = $1 AND kind = $2
		ORDER BY date
	`

	var records []domain.RunRecord
	if err := r.db.SelectContext(ctx, &records, query, runID, kind); err != nil {
		return nil, fmt.Errorf("error getting %s records for run %d: %w", kind, runID, err)
	}

	return records, nil
}

func (r *runRepository) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.ForecastRun, int, error) {
	countQuery := `
        SELECT COUNT(*)
        FROM forecast_runs
        WHERE 1=1
    `

	query := `
        SELECT id, start_date, end_date, horizon_days, safety_factor, seed,
               source, series_name, mean_absolute_error, root_mean_squared_error, created_at
        FROM forecast_runs
        WHERE 1=1
    `

	var args []interface{}
	var conditions []string
	argCounter := 1

	if filter.Source != nil {
		conditions = append(conditions, fmt.Sprintf("source = $%d", argCounter))
		args = append(args, *filter.Source)
		argCounter++
	}

	if filter.Series != "" {
		conditions = append(conditions, fmt.Sprintf("series_name = $%d", argCounter))
		args = append(args, filter.Series)
		argCounter++
	}

	if len(conditions) > 0 {
		whereClause := " AND " + strings.Join(conditions, " AND ")
		query += whereClause
		countQuery += whereClause
	}

	// Get total count
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("error counting forecast runs: %w", err)
	}

	query += " ORDER BY created_at DESC, id DESC"

	// Add pagination
	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCounter, argCounter+1)
		args = append(args, filter.PageSize, offset)
	}

	var runs []domain.ForecastRun
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("error listing forecast runs: %w", err)
	}
	for i := range runs {
		runs[i].SourceLabel = domain.RunSourceLabel(runs[i].Source)
	}

	return runs, total, nil
}
