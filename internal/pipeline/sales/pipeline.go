package sales

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/pipeline"
	"github.com/andresuchdata/demandcast/backend-go/internal/simulation"
)

// Config holds the sales pipeline settings.
type Config struct {
	// InputDateFormat is the layout of the date prefix in file names,
	// e.g. 20060102 for 20240301_store-a.csv.
	InputDateFormat string
}

// SalesPipeline implements the generic pipeline.Pipeline interface for
// daily sales actuals files. Each file carries one named series as
// date,units rows; the file name is expected to start with the snapshot
// date prefix the Drive watcher adds, followed by the series name.
type SalesPipeline struct {
	config Config
}

// NewSalesPipeline creates a new sales actuals pipeline instance.
func NewSalesPipeline(cfg Config) *SalesPipeline {
	if cfg.InputDateFormat == "" {
		cfg.InputDateFormat = "20060102"
	}
	return &SalesPipeline{config: cfg}
}

// Name returns the unique identifier of this pipeline.
func (p *SalesPipeline) Name() string {
	return "sales_actuals"
}

// SnapshotDate extracts the snapshot date from the filename using the configured format.
func (p *SalesPipeline) SnapshotDate(filename string) (time.Time, error) {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	layout := p.config.InputDateFormat
	if len(base) < len(layout) {
		return time.Time{}, fmt.Errorf("filename %s does not contain date with layout %s", filename, layout)
	}

	return time.Parse(layout, base[:len(layout)])
}

// SeriesName derives the target series name from the filename: the
// date prefix and extension are stripped and the remainder lowercased.
func (p *SalesPipeline) SeriesName(filename string) (string, error) {
	base := filepath.Base(filename)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	layout := p.config.InputDateFormat
	if len(name) > len(layout)+1 && name[len(layout)] == '_' {
		if _, err := time.Parse(layout, name[:len(layout)]); err == nil {
			name = name[len(layout)+1:]
		}
	}

	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.Join(strings.Fields(name), "-")
	if name == "" {
		return "", fmt.Errorf("filename %s does not contain a series name", filename)
	}

	return name, nil
}

// Validate performs basic validation on the input file.
func (p *SalesPipeline) Validate(inputFile string) error {
	info, err := os.Stat(inputFile)
	if err != nil {
		return fmt.Errorf("cannot stat input file %s: %w", inputFile, err)
	}
	if info.IsDir() {
		return fmt.Errorf("input path %s is a directory, expected file", inputFile)
	}
	ext := strings.ToLower(filepath.Ext(inputFile))
	if ext != ".csv" {
		return fmt.Errorf("unsupported file extension %s for %s (only CSV supported)", ext, inputFile)
	}
	return nil
}

// Transform parses a single sales actuals file into a series batch.
func (p *SalesPipeline) Transform(ctx context.Context, inputFile string) (*pipeline.SeriesBatch, error) {
	// 1) Derive the target series from the filename
	series, err := p.SeriesName(inputFile)
	if err != nil {
		return nil, err
	}

	// 2) Read and parse date,units rows
	points, err := p.readPoints(inputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", inputFile, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("file %s contains no data rows", inputFile)
	}

	return &pipeline.SeriesBatch{
		Series: series,
		Points: points,
	}, nil
}

func (p *SalesPipeline) readPoints(path string) ([]domain.SeriesPoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, err
	}

	colIndex := func(names ...string) int {
		targets := make(map[string]struct{}, len(names))
		for _, name := range names {
			targets[normalizeColumnName(name)] = struct{}{}
		}
		for i, h := range header {
			if _, ok := targets[normalizeColumnName(h)]; ok {
				return i
			}
		}
		return -1
	}

	idxDate := colIndex("date", "tanggal", "day")
	idxUnits := colIndex("units", "qty", "quantity", "sales", "jumlah")
	if idxDate < 0 || idxUnits < 0 {
		return nil, fmt.Errorf("header %v is missing date or units column", header)
	}

	points := make([]domain.SeriesPoint, 0)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		get := func(idx int) string {
			if idx < 0 || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		rawDate := get(idxDate)
		rawUnits := get(idxUnits)
		if rawDate == "" && rawUnits == "" {
			continue
		}

		date, err := simulation.ParseDateKey(rawDate)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date %q", line, rawDate)
		}

		// Units may carry thousand separators or a decimal part
		rawUnits = strings.ReplaceAll(rawUnits, ",", "")
		value, err := strconv.ParseFloat(rawUnits, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid units %q", line, rawUnits)
		}
		if value < 0 {
			return nil, fmt.Errorf("line %d: negative units %q", line, rawUnits)
		}

		points = append(points, domain.SeriesPoint{
			Date:  date,
			Units: int(math.Round(value)),
		})
	}

	return points, nil
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}
