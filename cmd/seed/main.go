package main

import (
	"context"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/demandcast/backend-go/internal/repository/postgres"
)

type contextKey string

const dbContextKey contextKey = "seed-db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	db, err := postgres.NewDBFromURL("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.EnsureSchema(c.Context); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	// Store the database connection in the context
	c.Context = context.WithValue(c.Context, dbContextKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	// Close the database connection when done
	if db, ok := c.Context.Value(dbContextKey).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFromContext(ctx context.Context) (*postgres.DB, error) {
	db, ok := ctx.Value(dbContextKey).(*postgres.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("database connection not found in context")
	}
	return db, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Seed the database with demo forecast runs and actuals series",
		Commands: []*cli.Command{
			{
				Name:   "runs",
				Usage:  "Seed a batch of demo forecast runs",
				Flags:  append([]cli.Flag{newDBURLFlag()}, runFlags()...),
				Before: initDB,
				After:  closeDB,
				Action: SeedDemoRuns,
			},
			{
				Name:   "series",
				Usage:  "Import a directory of actuals CSVs as named series",
				Flags:  append([]cli.Flag{newDBURLFlag()}, seriesFlags()...),
				Before: initDB,
				After:  closeDB,
				Action: SeedSeriesData,
			},
			{
				Name:   "all",
				Usage:  "Import actuals series, then seed demo runs",
				Flags:  append(append([]cli.Flag{newDBURLFlag()}, seriesFlags()...), runFlags()...),
				Before: initDB,
				After:  closeDB,
				Action: func(c *cli.Context) error {
					// Series first so demo runs can reference them later
					if err := SeedSeriesData(c); err != nil {
						return fmt.Errorf("error importing series: %w", err)
					}
					if err := SeedDemoRuns(c); err != nil {
						return fmt.Errorf("error seeding runs: %w", err)
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
