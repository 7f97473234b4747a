// cmd/backtest/main.go
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/config"
	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/service"
	"github.com/andresuchdata/demandcast/backend-go/internal/simulation"
)

func main() {
	// Parse command line flags
	startStr := flag.String("start", "", "History start date in YYYY-MM-DD format")
	endStr := flag.String("end", "", "History end date in YYYY-MM-DD format (defaults to today)")
	days := flag.Int("days", 365, "History length in days, used when -start is omitted")
	horizon := flag.Int("horizon", 30, "Forecast horizon in days")
	factor := flag.Float64("safety-factor", 0.2, "Inventory safety factor")
	seed := flag.Int64("seed", 0, "RNG seed for the synthetic series (0 uses the clock)")
	outPath := flag.String("out", "", "Optional CSV path for the scored back-test rows")
	flag.Parse()

	end := simulation.NewDateKey(time.Now())
	if *endStr != "" {
		parsed, err := simulation.ParseDateKey(*endStr)
		if err != nil {
			log.Fatalf("Invalid -end date: %v", err)
		}
		end = parsed
	}

	start := end.AddDays(-(*days - 1))
	if *startStr != "" {
		parsed, err := simulation.ParseDateKey(*startStr)
		if err != nil {
			log.Fatalf("Invalid -start date: %v", err)
		}
		start = parsed
	}

	params := domain.RunParams{
		StartDate:    start,
		EndDate:      end,
		HorizonDays:  *horizon,
		SafetyFactor: *factor,
	}
	if *seed != 0 {
		params.Seed = seed
	}

	// No series repo and no cache: this tool only scores synthetic runs.
	svc := service.NewForecastService(nil, nil, config.ForecastConfig{})

	began := time.Now()
	dashboard, err := svc.Compute(context.Background(), params)
	if err != nil {
		log.Fatalf("Back-test failed: %v", err)
	}

	fmt.Printf("History:  %d records (%s .. %s)\n", len(dashboard.History), params.StartDate, params.EndDate)
	fmt.Printf("Backtest: %d records\n", len(dashboard.Backtest))
	fmt.Printf("Forecast: %d records\n", len(dashboard.Forecast))
	fmt.Printf("MAE:      %.4f\n", dashboard.Evaluation.MeanAbsoluteError)
	fmt.Printf("RMSE:     %.4f\n", dashboard.Evaluation.RootMeanSquaredError)
	fmt.Printf("Elapsed:  %v\n", time.Since(began))

	if *outPath != "" {
		if err := writeBacktestCSV(*outPath, dashboard); err != nil {
			log.Fatalf("Failed to write %s: %v", *outPath, err)
		}
		fmt.Printf("Wrote scored rows to %s\n", *outPath)
	}
}

// writeBacktestCSV writes the back-test records joined with their actuals,
// one row per historical day.
func writeBacktestCSV(path string, dashboard *domain.ForecastDashboard) error {
	actuals := make(map[simulation.DateKey]int, len(dashboard.History))
	for _, h := range dashboard.History {
		actuals[h.Date] = h.ActualSales
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"date", "actual_sales", "predicted_sales", "lower_bound", "upper_bound", "abs_error"}); err != nil {
		return err
	}

	for _, rec := range dashboard.Backtest {
		actual, ok := actuals[rec.Date]
		if !ok {
			continue
		}
		absErr := actual - rec.PredictedSales
		if absErr < 0 {
			absErr = -absErr
		}
		row := []string{
			rec.Date.String(),
			strconv.Itoa(actual),
			strconv.Itoa(rec.PredictedSales),
			strconv.Itoa(rec.LowerBound),
			strconv.Itoa(rec.UpperBound),
			strconv.Itoa(absErr),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
