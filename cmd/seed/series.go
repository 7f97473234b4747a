package main

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/demandcast/backend-go/internal/pipeline"
	"github.com/andresuchdata/demandcast/backend-go/internal/pipeline/sales"
	"github.com/andresuchdata/demandcast/backend-go/internal/repository"
)

func seriesFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "series-dir",
			Usage:   "Directory containing actuals CSV files (YYYYMMDD_<series>.csv)",
			Value:   "./data/seeds/series",
			EnvVars: []string{"SERIES_SEED_DIR"},
		},
		&cli.IntFlag{
			Name:  "import-workers",
			Usage: "Concurrent import workers",
			Value: 4,
		},
		&cli.StringFlag{
			Name:    "archive-endpoint",
			Usage:   "S3-compatible endpoint to pull seed CSVs from first (optional)",
			EnvVars: []string{"STORAGE_ENDPOINT"},
		},
		&cli.StringFlag{
			Name:    "archive-access-key",
			Usage:   "Archive access key",
			EnvVars: []string{"STORAGE_ACCESS_KEY"},
		},
		&cli.StringFlag{
			Name:    "archive-secret-key",
			Usage:   "Archive secret key",
			EnvVars: []string{"STORAGE_SECRET_KEY"},
		},
		&cli.StringFlag{
			Name:    "archive-bucket",
			Usage:   "Archive bucket name",
			EnvVars: []string{"STORAGE_BUCKET"},
		},
		&cli.StringFlag{
			Name:  "archive-prefix",
			Usage: "Key prefix of the raw CSVs in the bucket",
			Value: "raw/",
		},
		&cli.BoolFlag{
			Name:  "archive-use-ssl",
			Usage: "Use TLS when talking to the archive",
			Value: true,
		},
	}
}

// SeedSeriesData imports a directory of actuals CSVs as named series,
// optionally pulling them down from the raw-file archive first.
func SeedSeriesData(c *cli.Context) error {
	db, err := dbFromContext(c.Context)
	if err != nil {
		return err
	}

	seriesDir := c.String("series-dir")

	if c.String("archive-endpoint") != "" {
		downloader, err := newArchiveDownloader(c, seriesDir)
		if err != nil {
			return err
		}
		downloaded, err := downloader.download(c.Context, c.String("archive-prefix"))
		if err != nil {
			return err
		}
		log.Printf("Pulled %d file(s) from the archive into %s", len(downloaded), seriesDir)
	}

	if _, err := os.Stat(seriesDir); os.IsNotExist(err) {
		log.Printf("Series directory %s does not exist, skipping", seriesDir)
		return nil
	}

	files, err := collectCSVFiles(seriesDir)
	if err != nil {
		return fmt.Errorf("error walking series directory: %w", err)
	}
	if len(files) == 0 {
		log.Printf("No series CSV files found in %s", seriesDir)
		return nil
	}

	workers := c.Int("import-workers")
	if workers < 1 {
		workers = 1
	}

	salesPipeline := sales.NewSalesPipeline(sales.Config{})
	cfg := pipeline.DefaultConfig(salesPipeline.Name())
	cfg.WorkerCount = workers

	orchestrator := pipeline.NewOrchestrator(db.DB.DB, repository.NewSeriesRepository(db), cfg)

	log.Printf("Importing %d series file(s) with %d worker(s)...", len(files), workers)
	if err := orchestrator.Run(c.Context, salesPipeline, files); err != nil {
		return err
	}

	log.Println("Series import completed successfully")
	return nil
}

func collectCSVFiles(root string) ([]string, error) {
	files := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) == ".csv" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
