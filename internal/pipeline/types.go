package pipeline

import (
	"context"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
)

// Pipeline defines the interface that all import pipelines must implement
type Pipeline interface {
	// Name returns the unique identifier for this pipeline
	Name() string

	// Transform parses a single input file into a named series batch
	Transform(ctx context.Context, inputFile string) (*SeriesBatch, error)

	// SnapshotDate extracts the date from the filename
	SnapshotDate(filename string) (time.Time, error)

	// Validate checks if the input file is valid for this pipeline
	Validate(inputFile string) error
}

// SeriesBatch is the parsed content of one import file: the target
// series name and its daily points.
type SeriesBatch struct {
	Series string
	Points []domain.SeriesPoint
}

// Config holds configuration for a pipeline instance
type Config struct {
	Name          string
	WorkerCount   int           // Number of concurrent workers
	RetryAttempts int           // Number of retries on failure
	RetryBackoff  time.Duration // Pause before a retry pass
}

// DefaultConfig returns sensible defaults
func DefaultConfig(name string) Config {
	return Config{
		Name:          name,
		WorkerCount:   4,
		RetryAttempts: 3,
		RetryBackoff:  30 * time.Second,
	}
}

// RunStatus represents the current state of an import run
type RunStatus string

const (
	StatusPending    RunStatus = "pending"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// FileStatus represents the state of a single file ingestion job
type FileStatus string

const (
	FileStatusQueued     FileStatus = "queued"
	FileStatusProcessing FileStatus = "processing"
	FileStatusCompleted  FileStatus = "completed"
	FileStatusFailed     FileStatus = "failed"
)

// ImportRun tracks a single execution of a pipeline for a snapshot date
type ImportRun struct {
	ID             int64
	PipelineName   string
	SnapshotDate   time.Time
	Status         RunStatus
	TotalFiles     int
	ProcessedFiles int
	FailedFiles    int
	StartedAt      time.Time
	CompletedAt    *time.Time
}

// ImportFile tracks the ingestion of a single file
type ImportFile struct {
	ID           int64
	ImportRunID  int64
	FileName     string
	Status       FileStatus
	ErrorMessage string
	RowsIngested int
	RetryCount   int
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// ImportMetrics holds aggregate figures for monitoring
type ImportMetrics struct {
	RunsCompleted   int64
	RunsFailed      int64
	FilesProcessed  int64
	RowsIngested    int64
	LastCompletedAt time.Time
}
