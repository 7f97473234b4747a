// backend-go/internal/service/forecast_service.go
package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/cache"
	"github.com/andresuchdata/demandcast/backend-go/internal/config"
	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/repository"
	"github.com/andresuchdata/demandcast/backend-go/internal/simulation"
	"github.com/rs/zerolog/log"
)

// ForecastService composes the four pipeline stages: series generation
// (or an imported series), the back-test, evaluation, the future
// forecast and the inventory plan. The stages themselves are stateless;
// each run builds its own random source, so concurrent runs never share
// state.
type ForecastService struct {
	simulator  *simulation.ForecastSimulator
	evaluator  *simulation.Evaluator
	planner    *simulation.InventoryPlanner
	seriesRepo repository.SeriesRepository
	cache      cache.DashboardCache
	cfg        config.ForecastConfig
}

func NewForecastService(seriesRepo repository.SeriesRepository, cacheImpl cache.DashboardCache, cfg config.ForecastConfig) *ForecastService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopDashboardCache()
	}
	return &ForecastService{
		simulator:  simulation.NewForecastSimulator(),
		evaluator:  simulation.NewEvaluator(),
		planner:    simulation.NewInventoryPlanner(),
		seriesRepo: seriesRepo,
		cache:      cacheImpl,
		cfg:        cfg,
	}
}

// NormalizeParams fills unset parameters from the configured defaults
// and enforces the guard rails. Range and factor violations are left to
// the pipeline stages, which own those errors.
func (s *ForecastService) NormalizeParams(params domain.RunParams) (domain.RunParams, error) {
	if params.EndDate.IsZero() {
		params.EndDate = simulation.NewDateKey(time.Now())
	}
	if params.StartDate.IsZero() {
		params.StartDate = params.EndDate.AddDays(-(s.cfg.DefaultRangeDays - 1))
	}
	if params.HorizonDays == 0 {
		params.HorizonDays = s.cfg.DefaultHorizonDays
	}
	if params.SafetyFactor == 0 {
		params.SafetyFactor = s.cfg.DefaultSafetyFactor
	}

	if err := params.Validate(); err != nil {
		return domain.RunParams{}, err
	}

	if s.cfg.MaxRangeDays > 0 {
		if days := params.StartDate.DaysUntil(params.EndDate) + 1; days > s.cfg.MaxRangeDays {
			return domain.RunParams{}, fmt.Errorf("date range spans %d days, maximum is %d", days, s.cfg.MaxRangeDays)
		}
	}
	if s.cfg.MaxHorizonDays > 0 && params.HorizonDays > s.cfg.MaxHorizonDays {
		return domain.RunParams{}, fmt.Errorf("horizon_days is %d, maximum is %d", params.HorizonDays, s.cfg.MaxHorizonDays)
	}

	return params, nil
}

// GetDashboard is the cache-aside read path used by the HTTP handlers.
func (s *ForecastService) GetDashboard(ctx context.Context, params domain.RunParams) (*domain.ForecastDashboard, error) {
	if dashboard, ok, err := s.cache.GetDashboard(ctx, params); err == nil && ok {
		return dashboard, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("forecast: cache get dashboard failed")
	}

	dashboard, err := s.Compute(ctx, params)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetDashboard(ctx, params, dashboard); err != nil {
		log.Warn().Err(err).Msg("forecast: cache set dashboard failed")
	}

	return dashboard, nil
}

// Compute runs the whole pipeline fresh, bypassing the cache. Callers
// that persist runs use this directly so every stored run is a new
// computation.
func (s *ForecastService) Compute(ctx context.Context, params domain.RunParams) (*domain.ForecastDashboard, error) {
	history, err := s.ResolveHistory(ctx, params)
	if err != nil {
		return nil, err
	}

	backtest := s.Backtest(history)
	evaluation := s.evaluator.Evaluate(history, backtest)

	forecast, err := s.simulator.Simulate(history, params.HorizonDays)
	if err != nil {
		return nil, err
	}

	inventory, err := s.planner.Plan(forecast, params.SafetyFactor)
	if err != nil {
		return nil, err
	}

	return &domain.ForecastDashboard{
		Params:     params,
		History:    history,
		Backtest:   backtest,
		Evaluation: evaluation,
		Forecast:   forecast,
		Inventory:  inventory,
	}, nil
}

// ResolveHistory returns the historical series for the requested params:
// the stored points of a named imported series, or a synthetic series
// from a run-local generator. A nil seed means fresh randomness; a set
// seed makes the series reproducible.
func (s *ForecastService) ResolveHistory(ctx context.Context, params domain.RunParams) ([]simulation.SalesRecord, error) {
	if params.Series != "" {
		series, err := s.seriesRepo.GetSeriesByName(ctx, params.Series)
		if err != nil {
			return nil, err
		}
		history, err := s.seriesRepo.GetPoints(ctx, series.ID, params.StartDate, params.EndDate)
		if err != nil {
			return nil, err
		}
		if len(history) == 0 {
			return nil, fmt.Errorf("series %q has no data between %s and %s",
				params.Series, params.StartDate, params.EndDate)
		}
		return history, nil
	}

	seed := time.Now().UnixNano()
	if params.Seed != nil {
		seed = *params.Seed
	}
	generator := simulation.NewSeriesGenerator(rand.New(rand.NewSource(seed)))

	return generator.Generate(params.StartDate, params.EndDate)
}

// Backtest runs the simulator over the historical span itself: it
// anchors one day before the first historical record, at the first
// observed level, so the produced records line up date-for-date with
// the history the evaluator scores them against.
func (s *ForecastService) Backtest(history []simulation.SalesRecord) []simulation.ForecastRecord {
	if len(history) == 0 {
		return []simulation.ForecastRecord{}
	}

	anchor := []simulation.SalesRecord{{
		Date:        history[0].Date.AddDays(-1),
		ActualSales: history[0].ActualSales,
	}}

	records, err := s.simulator.Simulate(anchor, len(history))
	if err != nil {
		// Unreachable: the anchor is never empty and the horizon is positive.
		log.Error().Err(err).Msg("forecast: backtest simulation failed")
		return []simulation.ForecastRecord{}
	}

	return records
}

// SourceOf reports how the history for the given params is produced.
func (s *ForecastService) SourceOf(params domain.RunParams) int {
	if params.Series != "" {
		return domain.RunSourceImported
	}
	return domain.RunSourceSynthetic
}

// ListSeries returns the imported series available to dashboard queries.
func (s *ForecastService) ListSeries(ctx context.Context) (*domain.SeriesListResponse, error) {
	series, err := s.seriesRepo.ListSeries(ctx)
	if err != nil {
		return nil, err
	}
	if series == nil {
		series = make([]domain.SalesSeries, 0)
	}
	return &domain.SeriesListResponse{Series: series, Total: len(series)}, nil
}
