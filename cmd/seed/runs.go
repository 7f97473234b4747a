package main

import (
	"fmt"
	"log"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/demandcast/backend-go/internal/config"
	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/repository"
	"github.com/andresuchdata/demandcast/backend-go/internal/service"
	"github.com/andresuchdata/demandcast/backend-go/internal/simulation"
)

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "count",
			Usage: "Number of demo runs to seed",
			Value: 10,
		},
		&cli.IntFlag{
			Name:  "days",
			Usage: "History length in days for each run",
			Value: 365,
		},
		&cli.IntFlag{
			Name:  "horizon",
			Usage: "Forecast horizon in days for each run",
			Value: 30,
		},
		&cli.Float64Flag{
			Name:  "safety-factor",
			Usage: "Inventory safety factor for each run",
			Value: 0.2,
		},
		&cli.Int64Flag{
			Name:  "base-seed",
			Usage: "RNG seed for the first run; run i uses base-seed+i",
			Value: 42,
		},
		&cli.IntFlag{
			Name:  "seed-workers",
			Usage: "Number of runs to execute concurrently",
			Value: 4,
		},
	}
}

// SeedDemoRuns persists a batch of demo forecast runs. Runs execute
// concurrently and each builds its own seeded random source, so the
// batch comes out the same regardless of scheduling order.
func SeedDemoRuns(c *cli.Context) error {
	db, err := dbFromContext(c.Context)
	if err != nil {
		return err
	}

	count := c.Int("count")
	if count < 1 {
		return fmt.Errorf("count must be at least 1")
	}
	workers := c.Int("seed-workers")
	if workers < 1 {
		workers = 1
	}

	end := simulation.NewDateKey(time.Now())
	start := end.AddDays(-(c.Int("days") - 1))
	horizon := c.Int("horizon")
	factor := c.Float64("safety-factor")
	baseSeed := c.Int64("base-seed")

	seriesRepo := repository.NewSeriesRepository(db)
	runRepo := repository.NewRunRepository(db)
	forecastService := service.NewForecastService(seriesRepo, nil, config.ForecastConfig{})
	runService := service.NewRunService(forecastService, runRepo, nil, "")

	log.Printf("Seeding %d demo run(s) over %s .. %s with %d worker(s)...", count, start, end, workers)

	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(workers)

	for i := 0; i < count; i++ {
		seed := baseSeed + int64(i)
		g.Go(func() error {
			params := domain.RunParams{
				StartDate:    start,
				EndDate:      end,
				HorizonDays:  horizon,
				SafetyFactor: factor,
				Seed:         &seed,
			}

			detail, err := runService.ExecuteRun(ctx, params)
			if err != nil {
				return fmt.Errorf("run with seed %d failed: %w", seed, err)
			}

			log.Printf("Seeded run %d (seed %d, MAE %.2f, RMSE %.2f)",
				detail.Run.ID, seed, detail.Run.MeanAbsoluteError, detail.Run.RootMeanSquaredError)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.Printf("Successfully seeded %d demo run(s)", count)
	return nil
}
