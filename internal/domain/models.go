// backend-go/internal/domain/models.go
package domain

import (
	"fmt"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/simulation"
)

// RunParams is the inbound configuration for one forecast pipeline run.
// Seed is optional; when set the synthetic series is reproducible across
// runs. Series selects an imported actuals series instead of the
// synthetic generator.
type RunParams struct {
	StartDate    simulation.DateKey `json:"start_date"`
	EndDate      simulation.DateKey `json:"end_date"`
	HorizonDays  int                `json:"horizon_days"`
	SafetyFactor float64            `json:"safety_factor"`
	Seed         *int64             `json:"seed,omitempty"`
	Series       string             `json:"series,omitempty"`
}

// Validate rejects parameter shapes the pipeline itself cannot see.
// Range and factor violations are left to the pipeline so the error
// taxonomy has a single home.
func (p RunParams) Validate() error {
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return fmt.Errorf("start_date and end_date are required")
	}
	if p.HorizonDays < 0 {
		return fmt.Errorf("horizon_days must be >= 0")
	}
	return nil
}

// ForecastRun represents one persisted execution of the forecast pipeline
type ForecastRun struct {
	ID                   int64              `json:"id" db:"id"`
	StartDate            simulation.DateKey `json:"start_date" db:"start_date"`
	EndDate              simulation.DateKey `json:"end_date" db:"end_date"`
	HorizonDays          int                `json:"horizon_days" db:"horizon_days"`
	SafetyFactor         float64            `json:"safety_factor" db:"safety_factor"`
	Seed                 *int64             `json:"seed,omitempty" db:"seed"`
	Source               int                `json:"-" db:"source"`
	SourceLabel          string             `json:"source" db:"-"`
	SeriesName           *string            `json:"series,omitempty" db:"series_name"`
	MeanAbsoluteError    float64            `json:"mean_absolute_error" db:"mean_absolute_error"`
	RootMeanSquaredError float64            `json:"root_mean_squared_error" db:"root_mean_squared_error"`
	CreatedAt            time.Time          `json:"created_at" db:"created_at"`
}

// RunRecord is a single persisted day of a forecast run. Kind selects
// which of the nullable columns are populated.
type RunRecord struct {
	ID               int64              `json:"-" db:"id"`
	RunID            int64              `json:"-" db:"run_id"`
	Kind             string             `json:"kind" db:"kind"`
	Date             simulation.DateKey `json:"date" db:"date"`
	ActualSales      *int               `json:"actual_sales,omitempty" db:"actual_sales"`
	PredictedSales   *int               `json:"predicted_sales,omitempty" db:"predicted_sales"`
	LowerBound       *int               `json:"lower_bound,omitempty" db:"lower_bound"`
	UpperBound       *int               `json:"upper_bound,omitempty" db:"upper_bound"`
	TrendComponent   *float64           `json:"trend_component,omitempty" db:"trend_component"`
	YearlyComponent  *float64           `json:"yearly_component,omitempty" db:"yearly_component"`
	WeeklyComponent  *float64           `json:"weekly_component,omitempty" db:"weekly_component"`
	RecommendedStock *int               `json:"recommended_stock,omitempty" db:"recommended_stock"`
}

// RunFilter represents filters for run listing queries
type RunFilter struct {
	Source   *int   `json:"source"`
	Series   string `json:"series"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// SalesSeries represents an imported actuals series
type SalesSeries struct {
	ID         int64              `json:"id" db:"id"`
	Name       string             `json:"name" db:"name"`
	PointCount int                `json:"point_count" db:"point_count"`
	FirstDate  simulation.DateKey `json:"first_date" db:"first_date"`
	LastDate   simulation.DateKey `json:"last_date" db:"last_date"`
	CreatedAt  time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at" db:"updated_at"`
}

// SeriesPoint is one day of an imported actuals series
type SeriesPoint struct {
	SeriesID int64              `json:"-" db:"series_id"`
	Date     simulation.DateKey `json:"date" db:"date"`
	Units    int                `json:"units" db:"units"`
}
