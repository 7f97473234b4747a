// backend-go/internal/api/handlers/forecast_handler.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/repository"
	"github.com/andresuchdata/demandcast/backend-go/internal/service"
	"github.com/andresuchdata/demandcast/backend-go/internal/simulation"
	"github.com/gin-gonic/gin"
)

type ForecastHandler struct {
	forecastService *service.ForecastService
}

func NewForecastHandler(forecastService *service.ForecastService) *ForecastHandler {
	return &ForecastHandler{forecastService: forecastService}
}

// parseParams reads the pipeline parameters from the query string.
// Missing values stay zero so the service can fill configured defaults.
func (h *ForecastHandler) parseParams(c *gin.Context) (domain.RunParams, error) {
	var params domain.RunParams

	if raw := strings.TrimSpace(c.Query("start_date")); raw != "" {
		date, err := simulation.ParseDateKey(raw)
		if err != nil {
			return params, fmt.Errorf("invalid start_date: expected YYYY-MM-DD")
		}
		params.StartDate = date
	}

	if raw := strings.TrimSpace(c.Query("end_date")); raw != "" {
		date, err := simulation.ParseDateKey(raw)
		if err != nil {
			return params, fmt.Errorf("invalid end_date: expected YYYY-MM-DD")
		}
		params.EndDate = date
	}

	if raw := strings.TrimSpace(c.Query("horizon_days")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return params, fmt.Errorf("invalid horizon_days: expected a non-negative integer")
		}
		params.HorizonDays = v
	}

	if raw := strings.TrimSpace(c.Query("safety_factor")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return params, fmt.Errorf("invalid safety_factor: expected a number")
		}
		params.SafetyFactor = v
	}

	if raw := strings.TrimSpace(c.Query("seed")); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return params, fmt.Errorf("invalid seed: expected an integer")
		}
		params.Seed = &v
	}

	params.Series = strings.TrimSpace(c.Query("series"))

	return params, nil
}

// dashboard resolves the full cached dashboard for the request params.
func (h *ForecastHandler) dashboard(c *gin.Context) (*domain.ForecastDashboard, bool) {
	params, err := h.parseParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	params, err = h.forecastService.NormalizeParams(params)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	dashboard, err := h.forecastService.GetDashboard(c.Request.Context(), params)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return nil, false
	}

	return dashboard, true
}

// GetDashboard runs the full pipeline and returns every section at once
func (h *ForecastHandler) GetDashboard(c *gin.Context) {
	dashboard, ok := h.dashboard(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// GetHistory returns the historical sales series only
func (h *ForecastHandler) GetHistory(c *gin.Context) {
	dashboard, ok := h.dashboard(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"params":  dashboard.Params,
		"history": dashboard.History,
	})
}

// GetForecast returns the future forecast records only
func (h *ForecastHandler) GetForecast(c *gin.Context) {
	dashboard, ok := h.dashboard(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"params":   dashboard.Params,
		"forecast": dashboard.Forecast,
	})
}

// GetEvaluation returns the back-test accuracy metrics only
func (h *ForecastHandler) GetEvaluation(c *gin.Context) {
	dashboard, ok := h.dashboard(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"params":     dashboard.Params,
		"evaluation": dashboard.Evaluation,
	})
}

// GetInventory returns the inventory recommendations only
func (h *ForecastHandler) GetInventory(c *gin.Context) {
	dashboard, ok := h.dashboard(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"params":    dashboard.Params,
		"inventory": dashboard.Inventory,
	})
}

// ListSeries returns the catalog of imported series
func (h *ForecastHandler) ListSeries(c *gin.Context) {
	response, err := h.forecastService.ListSeries(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch series"})
		return
	}
	c.JSON(http.StatusOK, response)
}

// statusForError maps pipeline and lookup failures onto HTTP statuses:
// parameter violations are the caller's fault, missing rows are 404s,
// everything else is a server error.
func statusForError(err error) int {
	switch {
	case errors.Is(err, simulation.ErrInvalidRange),
		errors.Is(err, simulation.ErrEmptyHistory),
		errors.Is(err, simulation.ErrInvalidFactor):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrSeriesNotFound),
		errors.Is(err, repository.ErrRunNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
