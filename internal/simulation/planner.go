package simulation

import "math"

// InventoryPlanner converts forecast records into recommended stock
// levels with a fractional safety buffer on top of predicted sales.
type InventoryPlanner struct{}

// NewInventoryPlanner creates an inventory planner.
func NewInventoryPlanner() *InventoryPlanner {
	return &InventoryPlanner{}
}

// Plan returns one recommendation per forecast record, order-preserving:
// recommendedStock = round(predictedSales * (1 + safetyFactor)). It
// returns ErrInvalidFactor when safetyFactor is negative; a factor of 0
// degenerates to recommendedStock == predictedSales.
func (p *InventoryPlanner) Plan(forecast []ForecastRecord, safetyFactor float64) ([]InventoryRecommendation, error) {
	if safetyFactor < 0 {
		return nil, ErrInvalidFactor
	}

	recommendations := make([]InventoryRecommendation, 0, len(forecast))
	for _, f := range forecast {
		recommendations = append(recommendations, InventoryRecommendation{
			Date:             f.Date,
			PredictedSales:   f.PredictedSales,
			RecommendedStock: int(math.Round(float64(f.PredictedSales) * (1 + safetyFactor))),
		})
	}

	return recommendations, nil
}
