package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/demandcast/backend-go/internal/pipeline"
	"github.com/andresuchdata/demandcast/backend-go/internal/storage"
)

// IngestService pulls actuals files out of Google Drive and feeds them
// through the sales import pipeline. Files are staged under the local
// download dir; when an object store is configured the raw copies are
// archived there as well.
type IngestService struct {
	driveService *Service
	downloader   *Downloader
	orch         *pipeline.Orchestrator
	pipe         pipeline.Pipeline
	repo         *pipeline.Repository
	archive      storage.ObjectStorage
	opts         DownloadOptions
}

func NewIngestService(
	driveService *Service,
	orch *pipeline.Orchestrator,
	pipe pipeline.Pipeline,
	repo *pipeline.Repository,
	archive storage.ObjectStorage,
	opts DownloadOptions,
) *IngestService {
	return &IngestService{
		driveService: driveService,
		downloader:   NewDownloader(driveService),
		orch:         orch,
		pipe:         pipe,
		repo:         repo,
		archive:      archive,
		opts:         opts,
	}
}

// IngestSummary reports what a single ingest call pulled in.
type IngestSummary struct {
	Downloaded int      `json:"downloaded"`
	Files      []string `json:"files"`
}

// IngestFolder downloads every CSV/XLSX file in the configured Drive folder
// and runs the import pipeline over the local copies. Per-file outcomes are
// recorded in import_runs/import_files by the pipeline worker.
func (s *IngestService) IngestFolder(ctx context.Context) (*IngestSummary, error) {
	// 1. Stage the folder contents locally
	paths, err := s.downloader.DownloadFolderCSV(ctx, s.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to download drive folder: %w", err)
	}
	if len(paths) == 0 {
		log.Info().Str("folder_id", s.opts.FolderID).Msg("drive folder has no ingestable files")
		return &IngestSummary{Files: []string{}}, nil
	}

	// 2. Archive raw copies when an object store is configured
	s.archiveRaw(ctx, paths)

	// 3. Run the pipeline
	if err := s.orch.Run(ctx, s.pipe, paths); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}

	return &IngestSummary{Downloaded: len(paths), Files: names}, nil
}

// IngestFile downloads a single Drive file by ID and runs it through the
// import pipeline. XLSX files are converted to CSV before processing.
func (s *IngestService) IngestFile(ctx context.Context, fileID string) error {
	meta, err := s.driveService.GetFile(fileID)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(meta.Name))
	if ext != ".csv" && ext != ".xlsx" {
		return fmt.Errorf("unsupported file type %q: expected .csv or .xlsx", meta.Name)
	}

	if err := os.MkdirAll(s.opts.DownloadDir, 0755); err != nil {
		return fmt.Errorf("failed to create download dir: %w", err)
	}

	localPath := filepath.Join(s.opts.DownloadDir, meta.Name)
	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	if err := s.driveService.DownloadFile(fileID, out); err != nil {
		out.Close()
		return fmt.Errorf("failed to download %s: %w", meta.Name, err)
	}
	out.Close()

	if ext == ".xlsx" {
		csvPath := strings.TrimSuffix(localPath, filepath.Ext(localPath)) + ".csv"
		if err := convertXLSXToCSV(localPath, csvPath); err != nil {
			return fmt.Errorf("failed to convert %s to csv: %w", meta.Name, err)
		}
		_ = os.Remove(localPath)
		localPath = csvPath
	}

	s.archiveRaw(ctx, []string{localPath})

	return s.orch.Run(ctx, s.pipe, []string{localPath})
}

// RunStatus pairs an import run with its per-file detail.
type RunStatus struct {
	Run   *pipeline.ImportRun    `json:"run"`
	Files []*pipeline.ImportFile `json:"files"`
}

// Status reports today's import runs with their per-file outcomes.
func (s *IngestService) Status(ctx context.Context) ([]*RunStatus, error) {
	runs, err := s.repo.GetTodaysImportRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load import runs: %w", err)
	}

	statuses := make([]*RunStatus, 0, len(runs))
	for _, run := range runs {
		files, err := s.repo.GetFilesByRunID(ctx, run.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load files for run %d: %w", run.ID, err)
		}
		statuses = append(statuses, &RunStatus{Run: run, Files: files})
	}

	return statuses, nil
}

// Stats aggregates pipeline figures since the given point in time.
func (s *IngestService) Stats(ctx context.Context, since time.Time) (*pipeline.ImportMetrics, error) {
	return s.repo.GetImportStats(ctx, s.pipe.Name(), since)
}

// RetryFailed replays files that failed with retry budget remaining.
func (s *IngestService) RetryFailed(ctx context.Context) error {
	return s.orch.RetryFailed(ctx, s.pipe)
}

// archiveRaw copies staged files to the object store under raw/<date>/.
// Archive failures are logged and skipped: the local copy still feeds the pipeline.
func (s *IngestService) archiveRaw(ctx context.Context, paths []string) {
	if s.archive == nil {
		return
	}

	prefix := fmt.Sprintf("raw/%s", time.Now().UTC().Format("2006-01-02"))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			log.Warn().Err(err).Str("file", p).Msg("failed to read file for archiving")
			continue
		}
		key := fmt.Sprintf("%s/%s", prefix, filepath.Base(p))
		if err := s.archive.UploadObject(ctx, key, data); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to archive raw file")
		}
	}
}
