package simulation

import "math/rand"

// Shape of the synthetic demand signal.
const (
	baseDemand     = 100.0 // flat demand floor every day starts from
	trendRise      = 50.0  // total linear ramp across the generated span
	noiseHalfWidth = 5.0   // uniform noise drawn from [-5, 5)
)

// SeriesGenerator produces a synthetic daily sales history. All
// randomness comes from the injected rng, so a caller that seeds it
// gets a reproducible series; nothing reads the global rand source.
type SeriesGenerator struct {
	rng *rand.Rand
}

// NewSeriesGenerator creates a generator drawing noise from rng.
func NewSeriesGenerator(rng *rand.Rand) *SeriesGenerator {
	return &SeriesGenerator{rng: rng}
}

// Generate returns one SalesRecord per calendar day from start to end,
// inclusive of both endpoints, in ascending date order. It returns
// ErrInvalidRange when start is after end.
func (g *SeriesGenerator) Generate(start, end DateKey) ([]SalesRecord, error) {
	if start.Time.After(end.Time) {
		return nil, ErrInvalidRange
	}

	n := start.DaysUntil(end) + 1
	records := make([]SalesRecord, 0, n)
	for i := 0; i < n; i++ {
		date := start.AddDays(i)

		// trend(i) = (i / N) * 50, a linear ramp over the whole span
		trend := float64(i) / float64(n) * trendRise

		// noise(i) drawn uniformly from [-5, 5), one draw per day
		noise := -noiseHalfWidth + g.rng.Float64()*(2*noiseHalfWidth)

		level := baseDemand + trend + yearlyComponent(date) + weeklyComponent(date) + noise
		records = append(records, SalesRecord{
			Date:        date,
			ActualSales: roundNonNegative(level),
		})
	}

	return records, nil
}
