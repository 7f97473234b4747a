// backend-go/internal/api/handlers/run_handler.go
package handlers

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/service"
	"github.com/gin-gonic/gin"
)

type RunHandler struct {
	runService      *service.RunService
	forecastService *service.ForecastService
}

func NewRunHandler(runService *service.RunService, forecastService *service.ForecastService) *RunHandler {
	return &RunHandler{
		runService:      runService,
		forecastService: forecastService,
	}
}

// CreateRun executes a forecast pipeline run and persists it
func (h *RunHandler) CreateRun(c *gin.Context) {
	var params domain.RunParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	params, err := h.forecastService.NormalizeParams(params)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	detail, err := h.runService.ExecuteRun(c.Request.Context(), params)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, detail)
}

// ListRuns returns stored runs, newest first, with pagination
func (h *RunHandler) ListRuns(c *gin.Context) {
	filter := domain.RunFilter{
		Page:     parsePositiveIntWithDefault(c.Query("page"), 1),
		PageSize: parsePositiveIntWithDefault(c.Query("page_size"), 20),
		Series:   strings.TrimSpace(c.Query("series")),
	}

	if source := strings.TrimSpace(c.Query("source")); source != "" {
		code, ok := domain.ParseRunSource(source)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid source value"})
			return
		}
		filter.Source = &code
	}

	response, err := h.runService.ListRuns(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch runs"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetRun returns a stored run with all of its record sequences
func (h *RunHandler) GetRun(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}

	detail, err := h.runService.GetRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, detail)
}

// ExportRun streams the run's records as a CSV attachment; with
// upload=true the file is also archived to object storage.
func (h *RunHandler) ExportRun(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}

	upload := strings.EqualFold(c.Query("upload"), "true")

	path, err := h.runService.ExportRunCSV(c.Request.Context(), id, upload)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.FileAttachment(path, filepath.Base(path))
}

func parseRunID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return 0, false
	}
	return id, true
}

func parsePositiveIntWithDefault(value string, fallback int) int {
	if fallback <= 0 {
		fallback = 50
	}
	if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && v > 0 {
		return v
	}
	return fallback
}
