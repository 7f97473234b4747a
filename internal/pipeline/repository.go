package pipeline

import (
	"context"
	"database/sql"
	"time"
)

// Repository handles database bookkeeping for import runs and files
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new import bookkeeping repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateImportRun creates a new import run record
func (r *Repository) CreateImportRun(ctx context.Context, run *ImportRun) error {
	query := `
		INSERT INTO import_runs (
			pipeline_name, snapshot_date, status, total_files,
			processed_files, failed_files, started_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx, query,
		run.PipelineName, run.SnapshotDate, run.Status, run.TotalFiles,
		run.ProcessedFiles, run.FailedFiles, run.StartedAt,
	).Scan(&run.ID)

	return err
}

// UpdateImportRun updates an existing import run
func (r *Repository) UpdateImportRun(ctx context.Context, run *ImportRun) error {
	query := `
		UPDATE import_runs
		SET status = $1, total_files = $2, processed_files = $3,
		    failed_files = $4, completed_at = $5
		WHERE id = $6
	`

	_, err := r.db.ExecContext(
		ctx, query,
		run.Status, run.TotalFiles, run.ProcessedFiles,
		run.FailedFiles, run.CompletedAt, run.ID,
	)

	return err
}

// GetImportRun retrieves an import run by ID
func (r *Repository) GetImportRun(ctx context.Context, id int64) (*ImportRun, error) {
	query := `
		SELECT id, pipeline_name, snapshot_date, status, total_files,
		       processed_files, failed_files, started_at, completed_at
		FROM import_runs
		WHERE id = $1
	`

	run := &ImportRun{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.PipelineName, &run.SnapshotDate, &run.Status,
		&run.TotalFiles, &run.ProcessedFiles, &run.FailedFiles,
		&run.StartedAt, &run.CompletedAt,
	)

	if err != nil {
		return nil, err
	}

	return run, nil
}

// GetImportRunBySnapshot retrieves the import run for a pipeline and
// snapshot date; (nil, nil) when no run exists yet.
func (r *Repository) GetImportRunBySnapshot(ctx context.Context, pipelineName string, date time.Time) (*ImportRun, error) {
	query := `
		SELECT id, pipeline_name, snapshot_date, status, total_files,
		       processed_files, failed_files, started_at, completed_at
		FROM import_runs
		WHERE pipeline_name = $1 AND snapshot_date = $2
	`

	run := &ImportRun{}
	err := r.db.QueryRowContext(ctx, query, pipelineName, date).Scan(
		&run.ID, &run.PipelineName, &run.SnapshotDate, &run.Status,
		&run.TotalFiles, &run.ProcessedFiles, &run.FailedFiles,
		&run.StartedAt, &run.CompletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return run, nil
}

// CreateImportFile creates a new file ingestion record
func (r *Repository) CreateImportFile(ctx context.Context, file *ImportFile) error {
	query := `
		INSERT INTO import_files (
			import_run_id, file_name, status, error_message
		) VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx, query,
		file.ImportRunID, file.FileName, file.Status, file.ErrorMessage,
	).Scan(&file.ID)

	return err
}

// UpdateImportFile updates an existing file ingestion record
func (r *Repository) UpdateImportFile(ctx context.Context, file *ImportFile) error {
	query := `
		UPDATE import_files
		SET status = $1, error_message = $2, rows_ingested = $3,
		    retry_count = $4, started_at = $5, completed_at = $6
		WHERE id = $7
	`

	_, err := r.db.ExecContext(
		ctx, query,
		file.Status, file.ErrorMessage, file.RowsIngested,
		file.RetryCount, file.StartedAt, file.CompletedAt, file.ID,
	)

	return err
}

// GetFilesByRunID retrieves all file records for an import run
func (r *Repository) GetFilesByRunID(ctx context.Context, runID int64) ([]*ImportFile, error) {
	query := `
		SELECT id, import_run_id, file_name, status,
		       COALESCE(error_message, ''), rows_ingested, retry_count,
		       started_at, completed_at
		FROM import_files
		WHERE import_run_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*ImportFile
	for rows.Next() {
		file := &ImportFile{}
		err := rows.Scan(
			&file.ID, &file.ImportRunID, &file.FileName, &file.Status,
			&file.ErrorMessage, &file.RowsIngested, &file.RetryCount,
			&file.StartedAt, &file.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	return files, rows.Err()
}

// GetFailedImportFiles retrieves failed files still eligible for retry
func (r *Repository) GetFailedImportFiles(ctx context.Context, pipelineName string, maxRetries int) ([]*ImportFile, error) {
	query := `
		SELECT f.id, f.import_run_id, f.file_name, f.status,
		       COALESCE(f.error_message, ''), f.rows_ingested, f.retry_count,
		       f.started_at, f.completed_at
		FROM import_files f
		JOIN import_runs r ON f.import_run_id = r.id
		WHERE r.pipeline_name = $1
		  AND f.status = $2
		  AND f.retry_count < $3
		ORDER BY f.id
	`

	rows, err := r.db.QueryContext(ctx, query, pipelineName, FileStatusFailed, maxRetries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*ImportFile
	for rows.Next() {
		file := &ImportFile{}
		err := rows.Scan(
			&file.ID, &file.ImportRunID, &file.FileName, &file.Status,
			&file.ErrorMessage, &file.RowsIngested, &file.RetryCount,
			&file.StartedAt, &file.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	return files, rows.Err()
}

// GetImportStats retrieves aggregate figures for a pipeline since a point in time
func (r *Repository) GetImportStats(ctx context.Context, pipelineName string, since time.Time) (*ImportMetrics, error) {
	runQuery := `
		SELECT
			COUNT(CASE WHEN status = $2 THEN 1 END) AS runs_completed,
			COUNT(CASE WHEN status = $3 THEN 1 END) AS runs_failed,
			COALESCE(SUM(processed_files), 0) AS files_processed,
			MAX(completed_at) AS last_completed_at
		FROM import_runs
		WHERE pipeline_name = $1 AND started_at >= $4
	`

	metrics := &ImportMetrics{}
	var lastCompleted sql.NullTime
	err := r.db.QueryRowContext(
		ctx, runQuery,
		pipelineName, StatusCompleted, StatusFailed, since,
	).Scan(
		&metrics.RunsCompleted,
		&metrics.RunsFailed,
		&metrics.FilesProcessed,
		&lastCompleted,
	)
	if err != nil {
		return nil, err
	}
	if lastCompleted.Valid {
		metrics.LastCompletedAt = lastCompleted.Time
	}

	rowQuery := `
		SELECT COALESCE(SUM(f.rows_ingested), 0)
		FROM import_files f
		JOIN import_runs r ON f.import_run_id = r.id
		WHERE r.pipeline_name = $1 AND r.started_at >= $2 AND f.status = $3
	`

	err = r.db.QueryRowContext(ctx, rowQuery, pipelineName, since, FileStatusCompleted).
		Scan(&metrics.RowsIngested)
	if err != nil {
		return nil, err
	}

	return metrics, nil
}

// IncrementProcessedFiles atomically increments the processed file count
func (r *Repository) IncrementProcessedFiles(ctx context.Context, runID int64) error {
	query := `
		UPDATE import_runs
		SET processed_files = processed_files + 1
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, runID)
	return err
}

// IncrementFailedFiles atomically increments the failed file count
func (r *Repository) IncrementFailedFiles(ctx context.Context, runID int64) error {
	query := `
		UPDATE import_runs
		SET failed_files = failed_files + 1
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, runID)
	return err
}

// GetTodaysImportRuns retrieves all import runs for today's snapshot date
func (r *Repository) GetTodaysImportRuns(ctx context.Context) ([]*ImportRun, error) {
	query := `
		SELECT id, pipeline_name, snapshot_date, status, total_files,
		       processed_files, failed_files, started_at, completed_at
		FROM import_runs
		WHERE snapshot_date = CURRENT_DATE
		ORDER BY pipeline_name, started_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*ImportRun
	for rows.Next() {
		run := &ImportRun{}
		err := rows.Scan(
			&run.ID, &run.PipelineName, &run.SnapshotDate, &run.Status,
			&run.TotalFiles, &run.ProcessedFiles, &run.FailedFiles,
			&run.StartedAt, &run.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
