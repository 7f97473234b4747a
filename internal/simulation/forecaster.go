package simulation

import "math"

// Fixed simulation constants. The damping keeps a steep historical slope
// from running away over long horizons; the band half-width is flat
// because nothing here is fitted to residuals. Both are deliberately not
// tunable.
const (
	trendDamping  = 0.1
	bandHalfWidth = 5.0
)

// ForecastSimulator extrapolates a sales history into per-day forecast
// records over a future horizon. It is deterministic given its inputs:
// the only randomness in the pipeline lives in SeriesGenerator.
type ForecastSimulator struct{}

// NewForecastSimulator creates a forecast simulator.
func NewForecastSimulator() *ForecastSimulator {
	return &ForecastSimulator{}
}

// Simulate produces one ForecastRecord for each of the horizonDays
// calendar days immediately following the last record in history.
// A zero horizon yields an empty sequence; an empty history with a
// positive horizon returns ErrEmptyHistory.
func (s *ForecastSimulator) Simulate(history []SalesRecord, horizonDays int) ([]ForecastRecord, error) {
	if horizonDays <= 0 {
		return []ForecastRecord{}, nil
	}
	if len(history) == 0 {
		return nil, ErrEmptyHistory
	}

	first := history[0]
	last := history[len(history)-1]
	lastValue := float64(last.ActualSales)

	// slope = (lastValue - firstValue) / historyLength, the average
	// daily trend over the whole history; zero when there is only one
	// record to anchor on.
	slope := 0.0
	if len(history) > 1 {
		slope = (lastValue - float64(first.ActualSales)) / float64(len(history))
	}

	records := make([]ForecastRecord, 0, horizonDays)
	for k := 1; k <= horizonDays; k++ {
		date := last.Date.AddDays(k)

		// simulatedTrend(k) = lastValue + k * slope * 0.1
		trend := lastValue + float64(k)*slope*trendDamping
		yearly := yearlyComponent(date)
		weekly := weeklyComponent(date)
		raw := trend + yearly + weekly

		records = append(records, ForecastRecord{
			Date:            date,
			PredictedSales:  roundNonNegative(raw),
			LowerBound:      roundNonNegative(raw - bandHalfWidth),
			UpperBound:      int(math.Round(raw + bandHalfWidth)),
			TrendComponent:  trend,
			YearlyComponent: yearly,
			WeeklyComponent: weekly,
		})
	}

	return records, nil
}
