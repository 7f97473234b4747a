package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/andresuchdata/demandcast/backend-go/internal/config"
	"github.com/andresuchdata/demandcast/backend-go/internal/drive"
	"github.com/andresuchdata/demandcast/backend-go/internal/pipeline"
	"github.com/andresuchdata/demandcast/backend-go/internal/pipeline/sales"
	"github.com/andresuchdata/demandcast/backend-go/internal/repository"
	"github.com/andresuchdata/demandcast/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/demandcast/backend-go/internal/storage"
)

func main() {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Initialize Google Drive service
	driveService, err := drive.NewService(os.Getenv("GOOGLE_DRIVE_CREDENTIALS_JSON"))
	if err != nil {
		log.Fatalf("Failed to initialize Google Drive service: %v", err)
	}

	// Initialize Database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureSchema(initCtx); err != nil {
		cancel()
		log.Fatalf("Failed to apply schema: %v", err)
	}
	cancel()

	// Optional raw-file archive
	var archive storage.ObjectStorage
	if cfg.Storage.Enabled {
		client, err := storage.NewMinioClient(storage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			log.Fatalf("Failed to initialize raw-file archive: %v", err)
		}
		archive = client
	}

	// Initialize the sales pipeline and its orchestration
	seriesRepo := repository.NewSeriesRepository(db)
	salesPipeline := sales.NewSalesPipeline(sales.Config{})
	orchestrator := pipeline.NewOrchestrator(db.DB.DB, seriesRepo, pipeline.DefaultConfig(salesPipeline.Name()))
	pipelineRepo := pipeline.NewRepository(db.DB.DB)

	// Initialize Services
	ingestService := drive.NewIngestService(
		driveService,
		orchestrator,
		salesPipeline,
		pipelineRepo,
		archive,
		drive.DownloadOptions{
			FolderID:    cfg.Importer.DriveFolder,
			DownloadDir: cfg.Importer.DownloadDir,
		},
	)

	// Background poll of the Drive folder when configured
	if cfg.Importer.PollMinutes > 0 && cfg.Importer.DriveFolder != "" {
		go pollDrive(ingestService, time.Duration(cfg.Importer.PollMinutes)*time.Minute)
	}

	// Create router and register routes
	r := mux.NewRouter()
	driveHandler := drive.NewHandler(driveService, ingestService)
	driveHandler.RegisterRoutes(r)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Importer.Port)
	log.Printf("Importer listening on %s\n", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

// pollDrive ingests the configured folder on a fixed interval, then replays
// any failed files that still have retry budget.
func pollDrive(svc *drive.IngestService, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), every)
		if _, err := svc.IngestFolder(ctx); err != nil {
			log.Printf("scheduled ingest failed: %v", err)
		}
		if err := svc.RetryFailed(ctx); err != nil {
			log.Printf("scheduled retry pass failed: %v", err)
		}
		cancel()
	}
}
