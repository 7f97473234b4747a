// backend-go/internal/service/run_service.go
package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/repository"
	"github.com/andresuchdata/demandcast/backend-go/internal/simulation"
	"github.com/andresuchdata/demandcast/backend-go/internal/storage"
	"github.com/rs/zerolog/log"
)

// RunService persists pipeline executions and serves them back,
// including the tabular CSV export with optional object-storage
// archiving.
type RunService struct {
	forecast  *ForecastService
	repo      repository.RunRepository
	archive   storage.ObjectStorage // nil when archiving is disabled
	exportDir string
}

func NewRunService(forecast *ForecastService, repo repository.RunRepository, archive storage.ObjectStorage, exportDir string) *RunService {
	return &RunService{
		forecast:  forecast,
		repo:      repo,
		archive:   archive,
		exportDir: exportDir,
	}
}

// ExecuteRun computes a fresh dashboard (never from cache) and persists
// the run header plus every record of all four sequences.
func (s *RunService) ExecuteRun(ctx context.Context, params domain.RunParams) (*domain.RunDetail, error) {
	dashboard, err := s.forecast.Compute(ctx, params)
	if err != nil {
		return nil, err
	}

	run := &domain.ForecastRun{
		StartDate:            params.StartDate,
		EndDate:              params.EndDate,
		HorizonDays:          params.HorizonDays,
		SafetyFactor:         params.SafetyFactor,
		Seed:                 params.Seed,
		Source:               s.forecast.SourceOf(params),
		MeanAbsoluteError:    dashboard.Evaluation.MeanAbsoluteError,
		RootMeanSquaredError: dashboard.Evaluation.RootMeanSquaredError,
	}
	if params.Series != "" {
		name := params.Series
		run.SeriesName = &name
	}

	records := make([]domain.RunRecord, 0,
		len(dashboard.History)+len(dashboard.Backtest)+len(dashboard.Forecast)+len(dashboard.Inventory))
	records = append(records, recordsFromHistory(dashboard.History)...)
	records = append(records, recordsFromForecast(domain.RecordKindBacktest, dashboard.Backtest)...)
	records = append(records, recordsFromForecast(domain.RecordKindForecast, dashboard.Forecast)...)
	records = append(records, recordsFromInventory(dashboard.Inventory)...)

	if err := s.repo.CreateRun(ctx, run, records); err != nil {
		return nil, err
	}
	run.SourceLabel = domain.RunSourceLabel(run.Source)

	log.Info().
		Int64("run_id", run.ID).
		Str("start", run.StartDate.String()).
		Str("end", run.EndDate.String()).
		Int("horizon_days", run.HorizonDays).
		Float64("mae", run.MeanAbsoluteError).
		Float64("rmse", run.RootMeanSquaredError).
		Msg("forecast run persisted")

	return &domain.RunDetail{
		Run:        *run,
		History:    dashboard.History,
		Backtest:   dashboard.Backtest,
		Evaluation: dashboard.Evaluation,
		Forecast:   dashboard.Forecast,
		Inventory:  dashboard.Inventory,
	}, nil
}

// GetRun re-assembles a stored run with all of its record sequences.
func (s *RunService) GetRun(ctx context.Context, id int64) (*domain.RunDetail, error) {
	run, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}

	historyRows, err := s.repo.GetRunRecords(ctx, id, domain.RecordKindHistory)
	if err != nil {
		return nil, err
	}
	backtestRows, err := s.repo.GetRunRecords(ctx, id, domain.RecordKindBacktest)
	if err != nil {
		return nil, err
	}
	forecastRows, err := s.repo.GetRunRecords(ctx, id, domain.RecordKindForecast)
	if err != nil {
		return nil, err
	}
	inventoryRows, err := s.repo.GetRunRecords(ctx, id, domain.RecordKindInventory)
	if err != nil {
		return nil, err
	}

	return &domain.RunDetail{
		Run:      *run,
		History:  historyFromRecords(historyRows),
		Backtest: forecastFromRecords(backtestRows),
		Evaluation: simulation.EvaluationResult{
			MeanAbsoluteError:    run.MeanAbsoluteError,
			RootMeanSquaredError: run.RootMeanSquaredError,
		},
		Forecast:  forecastFromRecords(forecastRows),
		Inventory: inventoryFromRecords(inventoryRows),
	}, nil
}

// ListRuns returns one page of stored runs.
func (s *RunService) ListRuns(ctx context.Context, filter domain.RunFilter) (*domain.RunListResponse, error) {
	runs, total, err := s.repo.ListRuns(ctx, filter)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = make([]domain.ForecastRun, 0)
	}

	totalPages := 0
	if filter.PageSize > 0 {
		totalPages = (total + filter.PageSize - 1) / filter.PageSize
	}

	return &domain.RunListResponse{
		Runs:       runs,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}, nil
}

// ExportRunCSV writes the run's full record set to a CSV under the
// export directory and returns the file path. With upload set, the file
// is also archived to object storage.
func (s *RunService) ExportRunCSV(ctx context.Context, id int64, upload bool) (string, error) {
	detail, err := s.GetRun(ctx, id)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.exportDir, fmt.Sprintf("forecast_run_%d.csv", id))
	if err := writeRunCSV(path, detail); err != nil {
		return "", fmt.Errorf("failed to export run %d: %w", id, err)
	}

	if upload {
		if s.archive == nil {
			return "", fmt.Errorf("export archive is not configured")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read export for upload: %w", err)
		}
		key := fmt.Sprintf("exports/%s/forecast_run_%d.csv", time.Now().UTC().Format("2006-01-02"), id)
		if err := s.archive.UploadObject(ctx, key, data); err != nil {
			return "", err
		}
		log.Info().Str("key", key).Int64("run_id", id).Msg("run export archived")
	}

	return path, nil
}

func writeRunCSV(path string, detail *domain.RunDetail) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"kind", "date", "actual_sales", "predicted_sales", "lower_bound",
		"upper_bound", "trend_component", "yearly_component", "weekly_component",
		"recommended_stock",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	rows := make([]domain.RunRecord, 0,
		len(detail.History)+len(detail.Backtest)+len(detail.Forecast)+len(detail.Inventory))
	rows = append(rows, recordsFromHistory(detail.History)...)
	rows = append(rows, recordsFromForecast(domain.RecordKindBacktest, detail.Backtest)...)
	rows = append(rows, recordsFromForecast(domain.RecordKindForecast, detail.Forecast)...)
	rows = append(rows, recordsFromInventory(detail.Inventory)...)

	// Write data
	for _, row := range rows {
		record := []string{
			row.Kind,
			row.Date.String(),
			csvInt(row.ActualSales),
			csvInt(row.PredictedSales),
			csvInt(row.LowerBound),
			csvInt(row.UpperBound),
			csvFloat(row.TrendComponent),
			csvFloat(row.YearlyComponent),
			csvFloat(row.WeeklyComponent),
			csvInt(row.RecommendedStock),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}

func csvInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func csvFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.4f", *v)
}

func recordsFromHistory(history []simulation.SalesRecord) []domain.RunRecord {
	records := make([]domain.RunRecord, 0, len(history))
	for _, h := range history {
		actual := h.ActualSales
		records = append(records, domain.RunRecord{
			Kind:        domain.RecordKindHistory,
			Date:        h.Date,
			ActualSales: &actual,
		})
	}
	return records
}

func recordsFromForecast(kind string, forecast []simulation.ForecastRecord) []domain.RunRecord {
	records := make([]domain.RunRecord, 0, len(forecast))
	for _, f := range forecast {
		predicted := f.PredictedSales
		lower := f.LowerBound
		upper := f.UpperBound
		trend := f.TrendComponent
		yearly := f.YearlyComponent
		weekly := f.WeeklyComponent
		records = append(records, domain.RunRecord{
			Kind:            kind,
			Date:            f.Date,
			PredictedSales:  &predicted,
			LowerBound:      &lower,
			UpperBound:      &upper,
			TrendComponent:  &trend,
			YearlyComponent: &yearly,
			WeeklyComponent: &weekly,
		})
	}
	return records
}

func recordsFromInventory(inventory []simulation.InventoryRecommendation) []domain.RunRecord {
	records := make([]domain.RunRecord, 0, len(inventory))
	for _, rec := range inventory {
		predicted := rec.PredictedSales
		stock := rec.RecommendedStock
		records = append(records, domain.RunRecord{
			Kind:             domain.RecordKindInventory,
			Date:             rec.Date,
			PredictedSales:   &predicted,
			RecommendedStock: &stock,
		})
	}
	return records
}

func historyFromRecords(rows []domain.RunRecord) []simulation.SalesRecord {
	history := make([]simulation.SalesRecord, 0, len(rows))
	for _, row := range rows {
		history = append(history, simulation.SalesRecord{
			Date:        row.Date,
			ActualSales: derefInt(row.ActualSales),
		})
	}
	return history
}

func forecastFromRecords(rows []domain.RunRecord) []simulation.ForecastRecord {
	forecast := make([]simulation.ForecastRecord, 0, len(rows))
	for _, row := range rows {
		forecast = append(forecast, simulation.ForecastRecord{
			Date:            row.Date,
			PredictedSales:  derefInt(row.PredictedSales),
			LowerBound:      derefInt(row.LowerBound),
			UpperBound:      derefInt(row.UpperBound),
			TrendComponent:  derefFloat(row.TrendComponent),
			YearlyComponent: derefFloat(row.YearlyComponent),
			WeeklyComponent: derefFloat(row.WeeklyComponent),
		})
	}
	return forecast
}

func inventoryFromRecords(rows []domain.RunRecord) []simulation.InventoryRecommendation {
	inventory := make([]simulation.InventoryRecommendation, 0, len(rows))
	for _, row := range rows {
		inventory = append(inventory, simulation.InventoryRecommendation{
			Date:             row.Date,
			PredictedSales:   derefInt(row.PredictedSales),
			RecommendedStock: derefInt(row.RecommendedStock),
		})
	}
	return inventory
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
