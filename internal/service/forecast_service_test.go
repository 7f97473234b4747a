package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/config"
	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/repository"
	"github.com/andresuchdata/demandcast/backend-go/internal/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, value string) simulation.DateKey {
	t.Helper()
	d, err := simulation.ParseDateKey(value)
	if err != nil {
		t.Fatalf("ParseDateKey(%q): %v", value, err)
	}
	return d
}

func int64Ptr(v int64) *int64 {
	return &v
}

type fakeSeriesRepo struct {
	series map[string]*domain.SalesSeries
	points map[int64][]simulation.SalesRecord
}

func newFakeSeriesRepo() *fakeSeriesRepo {
	return &fakeSeriesRepo{
		series: make(map[string]*domain.SalesSeries),
		points: make(map[int64][]simulation.SalesRecord),
	}
}

func (r *fakeSeriesRepo) addSeries(id int64, name string, records []simulation.SalesRecord) {
	r.series[name] = &domain.SalesSeries{ID: id, Name: name, PointCount: len(records)}
	r.points[id] = records
}

func (r *fakeSeriesRepo) UpsertSeries(_ context.Context, name string) (int64, error) {
	if s, ok := r.series[name]; ok {
		return s.ID, nil
	}
	id := int64(len(r.series) + 1)
	r.series[name] = &domain.SalesSeries{ID: id, Name: name}
	return id, nil
}

func (r *fakeSeriesRepo) UpsertPoints(_ context.Context, seriesID int64, points []domain.SeriesPoint) error {
	for _, p := range points {
		r.points[seriesID] = append(r.points[seriesID], simulation.SalesRecord{Date: p.Date, ActualSales: p.Units})
	}
	return nil
}

func (r *fakeSeriesRepo) GetSeriesByName(_ context.Context, name string) (*domain.SalesSeries, error) {
	s, ok := r.series[name]
	if !ok {
		return nil, repository.ErrSeriesNotFound
	}
	return s, nil
}

func (r *fakeSeriesRepo) ListSeries(_ context.Context) ([]domain.SalesSeries, error) {
	out := make([]domain.SalesSeries, 0, len(r.series))
	for _, s := range r.series {
		out = append(out, *s)
	}
	return out, nil
}

func (r *fakeSeriesRepo) GetPoints(_ context.Context, seriesID int64, start, end simulation.DateKey) ([]simulation.SalesRecord, error) {
	var out []simulation.SalesRecord
	for _, p := range r.points[seriesID] {
		if p.Date.Before(start.Time) || p.Date.After(end.Time) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type recordingCache struct {
	dashboard *domain.ForecastDashboard
	gets      int
	sets      int
	failGet   bool
	failSet   bool
}

func (c *recordingCache) GetDashboard(_ context.Context, _ domain.RunParams) (*domain.ForecastDashboard, bool, error) {
	c.gets++
	if c.failGet {
		return nil, false, errors.New("cache get failed")
	}
	if c.dashboard == nil {
		return nil, false, nil
	}
	return c.dashboard, true, nil
}

func (c *recordingCache) SetDashboard(_ context.Context, _ domain.RunParams, dashboard *domain.ForecastDashboard) error {
	c.sets++
	if c.failSet {
		return errors.New("cache set failed")
	}
	c.dashboard = dashboard
	return nil
}

func (c *recordingCache) InvalidateAll(_ context.Context) error {
	c.dashboard = nil
	return nil
}

func testForecastConfig() config.ForecastConfig {
	return config.ForecastConfig{
		DefaultRangeDays:    365,
		DefaultHorizonDays:  30,
		DefaultSafetyFactor: 0.2,
		MaxRangeDays:        3660,
		MaxHorizonDays:      365,
	}
}

func newTestForecastService(repo repository.SeriesRepository, cacheImpl *recordingCache) *ForecastService {
	if cacheImpl == nil {
		return NewForecastService(repo, nil, testForecastConfig())
	}
	return NewForecastService(repo, cacheImpl, testForecastConfig())
}

func syntheticParams(t *testing.T, seed int64) domain.RunParams {
	t.Helper()
	return domain.RunParams{
		StartDate:    mustDate(t, "2024-01-01"),
		EndDate:      mustDate(t, "2024-01-30"),
		HorizonDays:  7,
		SafetyFactor: 0.2,
		Seed:         int64Ptr(seed),
	}
}

func TestNormalizeParamsAppliesDefaults(t *testing.T) {
	svc := newTestForecastService(newFakeSeriesRepo(), nil)

	params, err := svc.NormalizeParams(domain.RunParams{})
	require.NoError(t, err)

	assert.False(t, params.EndDate.IsZero())
	assert.False(t, params.StartDate.IsZero())
	assert.Equal(t, 364, params.StartDate.DaysUntil(params.EndDate))
	assert.Equal(t, 30, params.HorizonDays)
	assert.Equal(t, 0.2, params.SafetyFactor)
}

func TestNormalizeParamsKeepsExplicitValues(t *testing.T) {
	svc := newTestForecastService(newFakeSeriesRepo(), nil)

	in := syntheticParams(t, 7)
	in.HorizonDays = 14
	in.SafetyFactor = 0.5

	params, err := svc.NormalizeParams(in)
	require.NoError(t, err)

	assert.Equal(t, in.StartDate, params.StartDate)
	assert.Equal(t, in.EndDate, params.EndDate)
	assert.Equal(t, 14, params.HorizonDays)
	assert.Equal(t, 0.5, params.SafetyFactor)
}

func TestNormalizeParamsRejectsOversizedRange(t *testing.T) {
	svc := newTestForecastService(newFakeSeriesRepo(), nil)

	params := domain.RunParams{
		StartDate:   mustDate(t, "2000-01-01"),
		EndDate:     mustDate(t, "2024-01-01"),
		HorizonDays: 7,
	}
	_, err := svc.NormalizeParams(params)
	assert.Error(t, err)
}

func TestNormalizeParamsRejectsOversizedHorizon(t *testing.T) {
	svc := newTestForecastService(newFakeSeriesRepo(), nil)

	params := syntheticParams(t, 1)
	params.HorizonDays = 10000
	_, err := svc.NormalizeParams(params)
	assert.Error(t, err)
}

func TestComputeDashboardShape(t *testing.T) {
	svc := newTestForecastService(newFakeSeriesRepo(), nil)
	params := syntheticParams(t, 42)

	dashboard, err := svc.Compute(context.Background(), params)
	require.NoError(t, err)

	require.Len(t, dashboard.History, 30)
	require.Len(t, dashboard.Backtest, 30)
	require.Len(t, dashboard.Forecast, 7)
	require.Len(t, dashboard.Inventory, 7)

	// Back-test records cover the historical span date for date.
	for i, rec := range dashboard.Backtest {
		assert.Equal(t, dashboard.History[i].Date, rec.Date, "backtest date %d", i)
	}

	// Forecast starts the day after the last historical date.
	wantDate := params.EndDate.AddDays(1)
	for i, rec := range dashboard.Forecast {
		assert.Equal(t, wantDate, rec.Date, "forecast date %d", i)
		assert.LessOrEqual(t, rec.LowerBound, rec.PredictedSales)
		assert.LessOrEqual(t, rec.PredictedSales, rec.UpperBound)
		wantDate = wantDate.AddDays(1)
	}

	for i, rec := range dashboard.Inventory {
		assert.Equal(t, dashboard.Forecast[i].Date, rec.Date)
		assert.Equal(t, dashboard.Forecast[i].PredictedSales, rec.PredictedSales)
		assert.GreaterOrEqual(t, rec.RecommendedStock, rec.PredictedSales)
	}

	assert.GreaterOrEqual(t, dashboard.Evaluation.MeanAbsoluteError, 0.0)
	assert.GreaterOrEqual(t, dashboard.Evaluation.RootMeanSquaredError, dashboard.Evaluation.MeanAbsoluteError)
}

func TestComputeSeededReproducible(t *testing.T) {
	svc := newTestForecastService(newFakeSeriesRepo(), nil)
	params := syntheticParams(t, 42)

	first, err := svc.Compute(context.Background(), params)
	require.NoError(t, err)
	second, err := svc.Compute(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, first.History, second.History)
	assert.Equal(t, first.Forecast, second.Forecast)
	assert.Equal(t, first.Evaluation, second.Evaluation)

	other, err := svc.Compute(context.Background(), syntheticParams(t, 43))
	require.NoError(t, err)
	assert.NotEqual(t, first.History, other.History)
}

func TestComputeImportedSeries(t *testing.T) {
	repo := newFakeSeriesRepo()
	points := []simulation.SalesRecord{
		{Date: mustDate(t, "2024-01-01"), ActualSales: 100},
		{Date: mustDate(t, "2024-01-02"), ActualSales: 110},
		{Date: mustDate(t, "2024-01-03"), ActualSales: 120},
	}
	repo.addSeries(1, "store-a", points)

	svc := newTestForecastService(repo, nil)
	params := domain.RunParams{
		StartDate:    mustDate(t, "2024-01-01"),
		EndDate:      mustDate(t, "2024-01-03"),
		HorizonDays:  2,
		SafetyFactor: 0.1,
		Series:       "store-a",
	}

	dashboard, err := svc.Compute(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, points, dashboard.History)
	assert.Len(t, dashboard.Forecast, 2)
	assert.Equal(t, domain.RunSourceImported, svc.SourceOf(params))
}

func TestComputeUnknownSeries(t *testing.T) {
	svc := newTestForecastService(newFakeSeriesRepo(), nil)
	params := syntheticParams(t, 1)
	params.Series = "missing"

	_, err := svc.Compute(context.Background(), params)
	assert.ErrorIs(t, err, repository.ErrSeriesNotFound)
}

func TestComputeInvalidRange(t *testing.T) {
	svc := newTestForecastService(newFakeSeriesRepo(), nil)
	params := domain.RunParams{
		StartDate:   mustDate(t, "2024-02-01"),
		EndDate:     mustDate(t, "2024-01-01"),
		HorizonDays: 7,
	}

	_, err := svc.Compute(context.Background(), params)
	assert.ErrorIs(t, err, simulation.ErrInvalidRange)
}

func TestGetDashboardCachesResult(t *testing.T) {
	cache := &recordingCache{}
	svc := newTestForecastService(newFakeSeriesRepo(), cache)
	params := syntheticParams(t, 42)

	first, err := svc.GetDashboard(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.gets)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.GetDashboard(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.gets)
	assert.Equal(t, 1, cache.sets, "hit must not re-store")
	assert.Same(t, first, second)
}

func TestGetDashboardSurvivesCacheFailures(t *testing.T) {
	cache := &recordingCache{failGet: true, failSet: true}
	svc := newTestForecastService(newFakeSeriesRepo(), cache)

	dashboard, err := svc.GetDashboard(context.Background(), syntheticParams(t, 42))
	require.NoError(t, err)
	assert.Len(t, dashboard.History, 30)
}

func TestBacktestEmptyHistory(t *testing.T) {
	svc := newTestForecastService(newFakeSeriesRepo(), nil)
	records := svc.Backtest(nil)
	assert.Empty(t, records)
}

func TestBacktestTracksSeasonality(t *testing.T) {
	svc := newTestForecastService(newFakeSeriesRepo(), nil)

	history := []simulation.SalesRecord{
		{Date: mustDate(t, "2024-01-05"), ActualSales: 100}, // Friday
		{Date: mustDate(t, "2024-01-06"), ActualSales: 115}, // Saturday
		{Date: mustDate(t, "2024-01-07"), ActualSales: 115}, // Sunday
	}
	records := svc.Backtest(history)
	require.Len(t, records, 3)

	for i, rec := range records {
		assert.Equal(t, history[i].Date, rec.Date)
	}
	assert.Equal(t, 0.0, records[0].WeeklyComponent)
	assert.Equal(t, 15.0, records[1].WeeklyComponent)
	assert.Equal(t, 15.0, records[2].WeeklyComponent)
}

func TestSeedIndependentOfWallClock(t *testing.T) {
	svc := newTestForecastService(newFakeSeriesRepo(), nil)
	params := syntheticParams(t, 99)

	first, err := svc.ResolveHistory(context.Background(), params)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := svc.ResolveHistory(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
