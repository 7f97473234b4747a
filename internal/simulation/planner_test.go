package simulation

import (
	"errors"
	"testing"
)

func TestPlanAppliesSafetyFactor(t *testing.T) {
	forecast := []ForecastRecord{forecastOn(t, "2024-01-01", 100)}

	recommendations, err := NewInventoryPlanner().Plan(forecast, 0.2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recommendations) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recommendations))
	}
	r := recommendations[0]
	if r.RecommendedStock != 120 {
		t.Fatalf("expected recommended stock 120, got %d", r.RecommendedStock)
	}
	if r.PredictedSales != 100 || r.Date != mustDate(t, "2024-01-01") {
		t.Fatalf("prediction fields should carry over, got %+v", r)
	}
}

func TestPlanZeroFactor(t *testing.T) {
	forecast := []ForecastRecord{
		forecastOn(t, "2024-01-01", 80),
		forecastOn(t, "2024-01-02", 115),
		forecastOn(t, "2024-01-03", 0),
	}
	recommendations, err := NewInventoryPlanner().Plan(forecast, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, r := range recommendations {
		if r.RecommendedStock != forecast[i].PredictedSales {
			t.Fatalf("record %d: expected stock == predicted %d, got %d",
				i, forecast[i].PredictedSales, r.RecommendedStock)
		}
	}
}

func TestPlanNegativeFactor(t *testing.T) {
	_, err := NewInventoryPlanner().Plan([]ForecastRecord{forecastOn(t, "2024-01-01", 100)}, -0.1)
	if !errors.Is(err, ErrInvalidFactor) {
		t.Fatalf("expected ErrInvalidFactor, got %v", err)
	}
}

func TestPlanMonotonicInFactor(t *testing.T) {
	history, err := newTestGenerator(21).Generate(mustDate(t, "2024-01-01"), mustDate(t, "2024-02-15"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	forecast, err := NewForecastSimulator().Simulate(history, 21)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}

	planner := NewInventoryPlanner()
	factors := []float64{0, 0.1, 0.25, 0.5, 1.0}
	var previous []InventoryRecommendation
	for _, factor := range factors {
		current, err := planner.Plan(forecast, factor)
		if err != nil {
			t.Fatalf("plan factor %v: %v", factor, err)
		}
		if len(current) != len(forecast) {
			t.Fatalf("factor %v: expected %d recommendations, got %d",
				factor, len(forecast), len(current))
		}
		for i, r := range current {
			if r.RecommendedStock < r.PredictedSales {
				t.Fatalf("factor %v record %d: stock %d below prediction %d",
					factor, i, r.RecommendedStock, r.PredictedSales)
			}
			if previous != nil && r.RecommendedStock < previous[i].RecommendedStock {
				t.Fatalf("factor %v record %d: stock %d decreased from %d",
					factor, i, r.RecommendedStock, previous[i].RecommendedStock)
			}
		}
		previous = current
	}
}

func TestPlanPreservesOrder(t *testing.T) {
	forecast := []ForecastRecord{
		forecastOn(t, "2024-01-03", 100),
		forecastOn(t, "2024-01-01", 90),
		forecastOn(t, "2024-01-02", 95),
	}
	recommendations, err := NewInventoryPlanner().Plan(forecast, 0.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range forecast {
		if recommendations[i].Date != forecast[i].Date {
			t.Fatalf("record %d: expected date %s, got %s",
				i, forecast[i].Date, recommendations[i].Date)
		}
	}
}
