// backend-go/internal/repository/series_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/demandcast/backend-go/internal/simulation"
)

// ErrSeriesNotFound is returned when a named actuals series does not exist.
var ErrSeriesNotFound = errors.New("sales series not found")

type SeriesRepository interface {
	UpsertSeries(ctx context.Context, name string) (int64, error)
	UpsertPoints(ctx context.Context, seriesID int64, points []domain.SeriesPoint) error
	GetSeriesByName(ctx context.Context, name string) (*domain.SalesSeries, error)
	ListSeries(ctx context.Context) ([]domain.SalesSeries, error)
	GetPoints(ctx context.Context, seriesID int64, start, end simulation.DateKey) ([]simulation.SalesRecord, error)
}

type seriesRepository struct {
	db *postgres.DB
}

func NewSeriesRepository(db *postgres.DB) SeriesRepository {
	return &seriesRepository{db: db}
}

// UpsertSeries creates the named series if needed and returns its id.
func (r *seriesRepository) UpsertSeries(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sales_series (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET updated_at = now()
		RETURNING id
	`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error upserting series %q: %w", name, err)
	}

	return id, nil
}

// UpsertPoints writes the day-level points for a series in one
// transaction. Re-imported days overwrite the previous value.
func (r *seriesRepository) UpsertPoints(ctx context.Context, seriesID int64, points []domain.SeriesPoint) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO sales_series_points (series_id, date, units)
			VALUES ($1, $2, $3)
			ON CONFLICT (series_id, date) DO UPDATE SET units = EXCLUDED.units
		`)
		if err != nil {
			return fmt.Errorf("error preparing point insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range points {
			if _, err := stmt.ExecContext(ctx, seriesID, p.Date, p.Units); err != nil {
				return fmt.Errorf("error inserting point %s: %w", p.Date, err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE sales_series SET updated_at = now() WHERE id = $1`, seriesID); err != nil {
			return fmt.Errorf("error touching series %d: %w", seriesID, err)
		}

		return nil
	})
}

func (r *seriesRepository) GetSeriesByName(ctx context.Context, name string) (*domain.SalesSeries, error) {
	query := `
		SELECT s.id, s.name, s.created_at, s.updated_at,
		       COUNT(p.date) AS point_count,
		       COALESCE(MIN(p.date), '0001-01-01') AS first_date,
		       COALESCE(MAX(p.date), '0001-01-01') AS last_date
		FROM sales_series s
		LEFT JOIN sales_series_points p ON p.series_id = s.id
		WHERE s.name = $1
		GROUP BY s.id
	`

	var series domain.SalesSeries
	if err := r.db.GetContext(ctx, &series, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeriesNotFound
		}
		return nil, fmt.Errorf("error getting series %q: %w", name, err)
	}

	return &series, nil
}

func (r *seriesRepository) ListSeries(ctx context.Context) ([]domain.SalesSeries, error) {
	query := `
		SELECT s.id, s.name, s.created_at, s.updated_at,
		       COUNT(p.date) AS point_count,
		       COALESCE(MIN(p.date), '0001-01-01') AS first_date,
		       COALESCE(MAX(p.date), '0001-01-01') AS last_date
		FROM sales_series s
		LEFT JOIN sales_series_points p ON p.series_id = s.id
		GROUP BY s.id
		ORDER BY s.name
	`

	var series []domain.SalesSeries
	if err := r.db.SelectContext(ctx, &series, query); err != nil {
		return nil, fmt.Errorf("error listing series: %w", err)
	}

	return series, nil
}

// GetPoints returns the stored days inside [start, end] as SalesRecords,
// ready to feed the forecast pipeline as history.
func (r *seriesRepository) GetPoints(ctx context.Context, seriesID int64, start, end simulation.DateKey) ([]simulation.SalesRecord, error) {
	query := `
		SELECT date, units AS actual_sales
		FROM sales_series_points
		WHERE series_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date
	`

	var records []simulation.SalesRecord
	if err := r.db.SelectContext(ctx, &records, query, seriesID, start, end); err != nil {
		return nil, fmt.Errorf("error getting points for series %d: %w", seriesID, err)
	}

	return records, nil
}
