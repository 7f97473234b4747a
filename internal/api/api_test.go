package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/config"
	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/repository"
	"github.com/andresuchdata/demandcast/backend-go/internal/service"
	"github.com/andresuchdata/demandcast/backend-go/internal/simulation"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memSeriesRepo struct {
	series map[string]*domain.SalesSeries
	points map[int64][]simulation.SalesRecord
}

func newMemSeriesRepo() *memSeriesRepo {
	return &memSeriesRepo{
		series: make(map[string]*domain.SalesSeries),
		points: make(map[int64][]simulation.SalesRecord),
	}
}

func (r *memSeriesRepo) UpsertSeries(_ context.Context, name string) (int64, error) {
	if s, ok := r.series[name]; ok {
		return s.ID, nil
	}
	id := int64(len(r.series) + 1)
	r.series[name] = &domain.SalesSeries{ID: id, Name: name}
	return id, nil
}

func (r *memSeriesRepo) UpsertPoints(_ context.Context, seriesID int64, points []domain.SeriesPoint) error {
	for _, p := range points {
		r.points[seriesID] = append(r.points[seriesID], simulation.SalesRecord{Date: p.Date, ActualSales: p.Units})
	}
	return nil
}

func (r *memSeriesRepo) GetSeriesByName(_ context.Context, name string) (*domain.SalesSeries, error) {
	s, ok := r.series[name]
	if !ok {
		return nil, repository.ErrSeriesNotFound
	}
	return s, nil
}

func (r *memSeriesRepo) ListSeries(_ context.Context) ([]domain.SalesSeries, error) {
	out := make([]domain.SalesSeries, 0, len(r.series))
	for _, s := range r.series {
		out = append(out, *s)
	}
	return out, nil
}

func (r *memSeriesRepo) GetPoints(_ context.Context, seriesID int64, start, end simulation.DateKey) ([]simulation.SalesRecord, error) {
	var out []simulation.SalesRecord
	for _, p := range r.points[seriesID] {
		if p.Date.Before(start.Time) || p.Date.After(end.Time) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type memRunRepo struct {
	nextID  int64
	runs    map[int64]domain.ForecastRun
	records map[int64][]domain.RunRecord
}

func newMemRunRepo() *memRunRepo {
	return &memRunRepo{
		runs:    make(map[int64]domain.ForecastRun),
		records: make(map[int64][]domain.RunRecord),
	}
}

func (r *memRunRepo) CreateRun(_ context.Context, run *domain.ForecastRun, records []domain.RunRecord) error {
	r.nextID++
	run.ID = r.nextID
	run.CreatedAt = time.Now().UTC()
	r.runs[run.ID] = *run
	r.records[run.ID] = records
	return nil
}

func (r *memRunRepo) GetRun(_ context.Context, id int64) (*domain.ForecastRun, error) {
	run, ok := r.runs[id]
	if !ok {
		return nil, repository.ErrRunNotFound
	}
	run.SourceLabel = domain.RunSourceLabel(run.Source)
	return &run, nil
}

func (r *memRunRepo) GetRunRecords(_ context.Context, runID int64, kind string) ([]domain.RunRecord, error) {
	var out []domain.RunRecord
	for _, rec := range r.records[runID] {
		if rec.Kind == kind {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memRunRepo) ListRuns(_ context.Context, _ domain.RunFilter) ([]domain.ForecastRun, int, error) {
	runs := make([]domain.ForecastRun, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, run)
	}
	return runs, len(r.runs), nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	cfg := config.ForecastConfig{
		DefaultRangeDays:    365,
		DefaultHorizonDays:  30,
		DefaultSafetyFactor: 0.2,
		MaxRangeDays:        3660,
		MaxHorizonDays:      365,
	}
	forecastService := service.NewForecastService(newMemSeriesRepo(), nil, cfg)
	runService := service.NewRunService(forecastService, newMemRunRepo(), nil, t.TempDir())

	return NewRouter(&Services{
		ForecastService: forecastService,
		RunService:      runService,
	}, nil)
}

func performRequest(router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)
	w := performRequest(router, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestDashboardEndpoint(t *testing.T) {
	router := newTestRouter(t)
	w := performRequest(router, http.MethodGet,
		"/api/v1/forecast/dashboard?start_date=2024-01-01&end_date=2024-01-30&horizon_days=7&safety_factor=0.2&seed=42", "")

	require.Equal(t, http.StatusOK, w.Code)

	var dashboard domain.ForecastDashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dashboard))

	assert.Len(t, dashboard.History, 30)
	assert.Len(t, dashboard.Backtest, 30)
	assert.Len(t, dashboard.Forecast, 7)
	assert.Len(t, dashboard.Inventory, 7)
	assert.Equal(t, 7, dashboard.Params.HorizonDays)
	assert.Equal(t, "2024-01-01", dashboard.History[0].Date.String())
}

func TestDashboardDefaultsWithoutParams(t *testing.T) {
	router := newTestRouter(t)
	w := performRequest(router, http.MethodGet, "/api/v1/forecast/dashboard", "")

	require.Equal(t, http.StatusOK, w.Code)

	var dashboard domain.ForecastDashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dashboard))

	assert.Len(t, dashboard.History, 365)
	assert.Len(t, dashboard.Forecast, 30)
}

func TestDashboardRejectsMalformedDate(t *testing.T) {
	router := newTestRouter(t)
	w := performRequest(router, http.MethodGet, "/api/v1/forecast/dashboard?start_date=notadate", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "start_date")
}

func TestDashboardRejectsReversedRange(t *testing.T) {
	router := newTestRouter(t)
	w := performRequest(router, http.MethodGet,
		"/api/v1/forecast/dashboard?start_date=2024-02-01&end_date=2024-01-01", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboardRejectsNegativeFactor(t *testing.T) {
	router := newTestRouter(t)
	w := performRequest(router, http.MethodGet,
		"/api/v1/forecast/dashboard?start_date=2024-01-01&end_date=2024-01-30&safety_factor=-0.5", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboardUnknownSeries(t *testing.T) {
	router := newTestRouter(t)
	w := performRequest(router, http.MethodGet,
		"/api/v1/forecast/dashboard?start_date=2024-01-01&end_date=2024-01-30&series=nope", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistoryEndpointShape(t *testing.T) {
	router := newTestRouter(t)
	w := performRequest(router, http.MethodGet,
		"/api/v1/forecast/history?start_date=2024-01-01&end_date=2024-01-10&seed=1", "")

	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))

	assert.Contains(t, payload, "history")
	assert.Contains(t, payload, "params")
	assert.NotContains(t, payload, "forecast")
}

func TestEvaluationEndpoint(t *testing.T) {
	router := newTestRouter(t)
	w := performRequest(router, http.MethodGet,
		"/api/v1/forecast/evaluation?start_date=2024-01-01&end_date=2024-01-30&seed=42", "")

	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Evaluation simulation.EvaluationResult `json:"evaluation"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.GreaterOrEqual(t, payload.Evaluation.MeanAbsoluteError, 0.0)
}

func TestSeriesCatalogEmpty(t *testing.T) {
	router := newTestRouter(t)
	w := performRequest(router, http.MethodGet, "/api/v1/series", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"series":[],"total":0}`, w.Body.String())
}

func TestRunLifecycle(t *testing.T) {
	router := newTestRouter(t)

	body := `{"start_date":"2024-01-01","end_date":"2024-01-30","horizon_days":7,"safety_factor":0.2,"seed":42}`
	w := performRequest(router, http.MethodPost, "/api/v1/runs", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var created domain.RunDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, int64(1), created.Run.ID)
	assert.Equal(t, "Synthetic", created.Run.SourceLabel)
	assert.Len(t, created.History, 30)
	assert.Len(t, created.Forecast, 7)

	w = performRequest(router, http.MethodGet, "/api/v1/runs?page=1&page_size=10", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list domain.RunListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 1, list.TotalPages)
	require.Len(t, list.Runs, 1)

	w = performRequest(router, http.MethodGet, "/api/v1/runs/1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var detail domain.RunDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, created.Run.ID, detail.Run.ID)
	assert.Len(t, detail.Backtest, 30)
	assert.Len(t, detail.Inventory, 7)
}

func TestExportRunEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body := `{"start_date":"2024-01-01","end_date":"2024-01-10","horizon_days":3,"safety_factor":0.2,"seed":7}`
	w := performRequest(router, http.MethodPost, "/api/v1/runs", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = performRequest(router, http.MethodGet, "/api/v1/runs/1/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "forecast_run_1.csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "kind,date,"))
}

func TestGetRunNotFoundStatus(t *testing.T) {
	router := newTestRouter(t)
	w := performRequest(router, http.MethodGet, "/api/v1/runs/99", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRunInvalidID(t *testing.T) {
	router := newTestRouter(t)
	w := performRequest(router, http.MethodGet, "/api/v1/runs/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRunInvalidBody(t *testing.T) {
	router := newTestRouter(t)
	w := performRequest(router, http.MethodPost, "/api/v1/runs", `{"start_date": 123}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
