package simulation

import "errors"

// Input validation failures. All are deterministic given their inputs,
// so callers should not retry them.
var (
	// ErrInvalidRange is returned when a requested date range is inverted.
	ErrInvalidRange = errors.New("invalid date range: start date is after end date")
	// ErrEmptyHistory is returned when a forecast is requested without any
	// historical record to anchor it.
	ErrEmptyHistory = errors.New("empty history: at least one historical record is required")
	// ErrInvalidFactor is returned when a safety stock factor is negative.
	ErrInvalidFactor = errors.New("invalid safety factor: must be >= 0")
)

// SalesRecord is one day of sales history, synthetic or imported.
type SalesRecord struct {
	Date        DateKey `json:"date" db:"date"`
	ActualSales int     `json:"actual_sales" db:"actual_sales"`
}

// ForecastRecord is one forecasted day, decomposed into its trend,
// yearly and weekly parts plus a fixed-width uncertainty band.
// LowerBound <= PredictedSales <= UpperBound.
type ForecastRecord struct {
	Date            DateKey `json:"date" db:"date"`
	PredictedSales  int     `json:"predicted_sales" db:"predicted_sales"`
	LowerBound      int     `json:"lower_bound" db:"lower_bound"`
	UpperBound      int     `json:"upper_bound" db:"upper_bound"`
	TrendComponent  float64 `json:"trend_component" db:"trend_component"`
	YearlyComponent float64 `json:"yearly_component" db:"yearly_component"`
	WeeklyComponent float64 `json:"weekly_component" db:"weekly_component"`
}

// EvaluationResult aggregates forecast error against held-out actuals.
// Recomputed per run, never persisted on its own.
type EvaluationResult struct {
	MeanAbsoluteError    float64 `json:"mean_absolute_error" db:"mean_absolute_error"`
	RootMeanSquaredError float64 `json:"root_mean_squared_error" db:"root_mean_squared_error"`
}

// InventoryRecommendation maps one forecasted day to a stock level with
// the safety buffer applied. RecommendedStock >= PredictedSales whenever
// the safety factor is non-negative.
type InventoryRecommendation struct {
	Date             DateKey `json:"date" db:"date"`
	PredictedSales   int     `json:"predicted_sales" db:"predicted_sales"`
	RecommendedStock int     `json:"recommended_stock" db:"recommended_stock"`
}
