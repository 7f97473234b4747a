package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

// Worker processes files for a specific pipeline: each file is
// validated, transformed into a series batch and upserted, with every
// step tracked in the import bookkeeping tables.
type Worker struct {
	pipeline Pipeline
	config   Config
	repo     *Repository
	series   repository.SeriesRepository
}

// NewWorker creates a new pipeline worker
func NewWorker(pipeline Pipeline, config Config, db *sql.DB, series repository.SeriesRepository) *Worker {
	return &Worker{
		pipeline: pipeline,
		config:   config,
		repo:     NewRepository(db),
		series:   series,
	}
}

// ProcessBatch processes a batch of files for a specific snapshot date
func (w *Worker) ProcessBatch(ctx context.Context, date time.Time, files []string) error {
	log.Info().
		Str("pipeline", w.pipeline.Name()).
		Str("snapshot_date", date.Format("2006-01-02")).
		Int("files", len(files)).
		Msg("starting import batch")

	// Create or get import run
	run, err := w.getOrCreateImportRun(ctx, date, len(files))
	if err != nil {
		return fmt.Errorf("failed to create import run: %w", err)
	}

	// Create file records
	jobs := make([]*ImportFile, len(files))
	for i, file := range files {
		job := &ImportFile{
			ImportRunID: run.ID,
			FileName:    file,
			Status:      FileStatusQueued,
		}
		if err := w.repo.CreateImportFile(ctx, job); err != nil {
			return fmt.Errorf("failed to create import file record: %w", err)
		}
		jobs[i] = job
	}

	// Update run status to processing
	run.Status = StatusProcessing
	if err := w.repo.UpdateImportRun(ctx, run); err != nil {
		return fmt.Errorf("failed to update import run: %w", err)
	}

	// Process files concurrently
	if err := w.processFilesParallel(ctx, run, jobs); err != nil {
		run.Status = StatusFailed
		now := time.Now()
		run.CompletedAt = &now
		if updateErr := w.repo.UpdateImportRun(ctx, run); updateErr != nil {
			log.Error().Err(updateErr).Str("pipeline", w.pipeline.Name()).Msg("failed to mark import run failed")
		}
		return err
	}

	// Mark run as completed
	run.Status = StatusCompleted
	now := time.Now()
	run.CompletedAt = &now
	if err := w.repo.UpdateImportRun(ctx, run); err != nil {
		return fmt.Errorf("failed to complete import run: %w", err)
	}

	log.Info().
		Str("pipeline", w.pipeline.Name()).
		Int("processed_files", run.ProcessedFiles).
		Int("failed_files", run.FailedFiles).
		Msg("import batch completed")

	return nil
}

// processFilesParallel processes files using a worker pool
func (w *Worker) processFilesParallel(ctx context.Context, run *ImportRun, jobs []*ImportFile) error {
	workerCount := w.config.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}

	jobChan := make(chan *ImportFile, len(jobs))
	errChan := make(chan error, workerCount)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobChan {
				if err := w.processFile(ctx, run, job); err != nil {
					log.Error().
						Err(err).
						Str("pipeline", w.pipeline.Name()).
						Int("worker", workerID).
						Str("file", job.FileName).
						Msg("file ingestion failed")
					select {
					case errChan <- err:
					default:
					}
				}
			}
		}(i)
	}

	// Enqueue jobs
	for _, job := range jobs {
		select {
		case <-ctx.Done():
			close(jobChan)
			return ctx.Err()
		case jobChan <- job:
		}
	}
	close(jobChan)

	// Wait for all workers
	wg.Wait()
	close(errChan)

	// Check for errors
	if err := <-errChan; err != nil {
		return err
	}

	return nil
}

// processFile validates, transforms and ingests a single file
func (w *Worker) processFile(ctx context.Context, run *ImportRun, job *ImportFile) error {
	startTime := time.Now()

	job.Status = FileStatusProcessing
	job.StartedAt = &startTime
	if err := w.repo.UpdateImportFile(ctx, job); err != nil {
		return err
	}

	log.Info().Str("pipeline", w.pipeline.Name()).Str("file", job.FileName).Msg("processing file")

	// Validate file
	if err := w.pipeline.Validate(job.FileName); err != nil {
		return w.markJobFailed(ctx, run, job, fmt.Errorf("validation failed: %w", err))
	}

	// Transform file into a series batch
	batch, err := w.pipeline.Transform(ctx, job.FileName)
	if err != nil {
		return w.markJobFailed(ctx, run, job, fmt.Errorf("transformation failed: %w", err))
	}

	// Upsert the series and its points
	seriesID, err := w.series.UpsertSeries(ctx, batch.Series)
	if err != nil {
		return w.markJobFailed(ctx, run, job, fmt.Errorf("series upsert failed: %w", err))
	}
	if err := w.series.UpsertPoints(ctx, seriesID, batch.Points); err != nil {
		return w.markJobFailed(ctx, run, job, fmt.Errorf("points upsert failed: %w", err))
	}

	// Mark job as completed
	job.Status = FileStatusCompleted
	job.RowsIngested = len(batch.Points)
	job.ErrorMessage = ""
	now := time.Now()
	job.CompletedAt = &now
	if err := w.repo.UpdateImportFile(ctx, job); err != nil {
		return err
	}

	// Update run statistics
	if err := w.repo.IncrementProcessedFiles(ctx, run.ID); err != nil {
		log.Warn().Err(err).Str("pipeline", w.pipeline.Name()).Msg("failed to increment processed files")
	}
	run.ProcessedFiles++

	log.Info().
		Str("pipeline", w.pipeline.Name()).
		Str("file", job.FileName).
		Str("series", batch.Series).
		Int("rows", len(batch.Points)).
		Dur("duration", time.Since(startTime)).
		Msg("file ingested")

	return nil
}

// markJobFailed marks a job as failed and records the retry budget
func (w *Worker) markJobFailed(ctx context.Context, run *ImportRun, job *ImportFile, err error) error {
	job.Status = FileStatusFailed
	job.ErrorMessage = err.Error()
	job.RetryCount++

	if updateErr := w.repo.UpdateImportFile(ctx, job); updateErr != nil {
		log.Error().Err(updateErr).Str("pipeline", w.pipeline.Name()).Msg("failed to update file status")
	}
	if incErr := w.repo.IncrementFailedFiles(ctx, run.ID); incErr != nil {
		log.Warn().Err(incErr).Str("pipeline", w.pipeline.Name()).Msg("failed to increment failed files")
	}
	run.FailedFiles++

	if job.RetryCount < w.config.RetryAttempts {
		log.Info().
			Str("pipeline", w.pipeline.Name()).
			Str("file", job.FileName).
			Int("attempt", job.RetryCount).
			Int("max_attempts", w.config.RetryAttempts).
			Msg("file eligible for retry")
	}

	return err
}

// getOrCreateImportRun gets or creates an import run for the snapshot date
func (w *Worker) getOrCreateImportRun(ctx context.Context, date time.Time, totalFiles int) (*ImportRun, error) {
	run, err := w.repo.GetImportRunBySnapshot(ctx, w.pipeline.Name(), date)
	if err != nil {
		return nil, err
	}

	if run != nil {
		if run.TotalFiles != totalFiles {
			run.TotalFiles = totalFiles
			if err := w.repo.UpdateImportRun(ctx, run); err != nil {
				return nil, err
			}
		}
		return run, nil
	}

	run = &ImportRun{
		PipelineName: w.pipeline.Name(),
		SnapshotDate: date,
		Status:       StatusPending,
		TotalFiles:   totalFiles,
		StartedAt:    time.Now(),
	}

	if err := w.repo.CreateImportRun(ctx, run); err != nil {
		return nil, err
	}

	return run, nil
}

// RetryFailed retries all failed files for this pipeline that still
// have retry budget left.
func (w *Worker) RetryFailed(ctx context.Context) error {
	jobs, err := w.repo.GetFailedImportFiles(ctx, w.pipeline.Name(), w.config.RetryAttempts)
	if err != nil {
		return fmt.Errorf("failed to get failed files: %w", err)
	}

	if len(jobs) == 0 {
		log.Info().Str("pipeline", w.pipeline.Name()).Msg("no failed files to retry")
		return nil
	}

	log.Info().Str("pipeline", w.pipeline.Name()).Int("files", len(jobs)).Msg("retrying failed files")

	if w.config.RetryBackoff > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.config.RetryBackoff):
		}
	}

	// Group files by run ID
	jobsByRun := make(map[int64][]*ImportFile)
	for _, job := range jobs {
		jobsByRun[job.ImportRunID] = append(jobsByRun[job.ImportRunID], job)
	}

	for runID, runJobs := range jobsByRun {
		run, err := w.repo.GetImportRun(ctx, runID)
		if err != nil {
			log.Error().Err(err).Str("pipeline", w.pipeline.Name()).Int64("run_id", runID).Msg("failed to load import run")
			continue
		}

		if err := w.processFilesParallel(ctx, run, runJobs); err != nil {
			log.Error().Err(err).Str("pipeline", w.pipeline.Name()).Int64("run_id", runID).Msg("retry pass failed")
			continue
		}

		// Close out the run once every file made it through
		if run.ProcessedFiles >= run.TotalFiles {
			run.Status = StatusCompleted
			now := time.Now()
			run.CompletedAt = &now
			if err := w.repo.UpdateImportRun(ctx, run); err != nil {
				log.Error().Err(err).Str("pipeline", w.pipeline.Name()).Int64("run_id", runID).Msg("failed to close import run")
			}
		}
	}

	return nil
}
