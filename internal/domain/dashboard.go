package domain

import "github.com/andresuchdata/demandcast/backend-go/internal/simulation"

// ForecastDashboard aggregates everything the dashboard page renders for
// one parameter set: the generated (or imported) history, the back-test
// forecast over the historical span, its evaluation, the future forecast
// and the inventory plan derived from it.
type ForecastDashboard struct {
	Params     RunParams                            `json:"params"`
	History    []simulation.SalesRecord             `json:"history"`
	Backtest   []simulation.ForecastRecord          `json:"backtest"`
	Evaluation simulation.EvaluationResult          `json:"evaluation"`
	Forecast   []simulation.ForecastRecord          `json:"forecast"`
	Inventory  []simulation.InventoryRecommendation `json:"inventory"`
}

// RunListResponse represents the paginated response for run listings
type RunListResponse struct {
	Runs       []ForecastRun `json:"runs"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

// RunDetail is a persisted run re-assembled with its record sequences
type RunDetail struct {
	Run        ForecastRun                          `json:"run"`
	History    []simulation.SalesRecord             `json:"history"`
	Backtest   []simulation.ForecastRecord          `json:"backtest"`
	Evaluation simulation.EvaluationResult          `json:"evaluation"`
	Forecast   []simulation.ForecastRecord          `json:"forecast"`
	Inventory  []simulation.InventoryRecommendation `json:"inventory"`
}

// SeriesListResponse wraps the imported series catalog
type SeriesListResponse struct {
	Series []SalesSeries `json:"series"`
	Total  int           `json:"total"`
}
