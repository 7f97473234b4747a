package sales

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestSnapshotDate(t *testing.T) {
	p := NewSalesPipeline(Config{})

	date, err := p.SnapshotDate("20240301_store-a.csv")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", date.Format("2006-01-02"))

	_, err = p.SnapshotDate("daily.csv")
	assert.Error(t, err, "filename without a date prefix")

	_, err = p.SnapshotDate("20241399_store-a.csv")
	assert.Error(t, err, "impossible calendar date")
}

func TestSeriesName(t *testing.T) {
	p := NewSalesPipeline(Config{})

	tests := []struct {
		filename string
		want     string
	}{
		{"20240301_store-a.csv", "store-a"},
		{"20240301_Store A.csv", "store-a"},
		{"20240301_Miss Glam Padang.csv", "miss-glam-padang"},
		{"store-b.csv", "store-b"},
	}
	for _, tt := range tests {
		got, err := p.SeriesName(tt.filename)
		require.NoError(t, err, tt.filename)
		assert.Equal(t, tt.want, got, tt.filename)
	}

	_, err := p.SeriesName(".csv")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	p := NewSalesPipeline(Config{})
	dir := t.TempDir()

	ok := writeFile(t, dir, "20240301_store-a.csv", "date,units\n")
	assert.NoError(t, p.Validate(ok))

	assert.Error(t, p.Validate(filepath.Join(dir, "missing.csv")))
	assert.Error(t, p.Validate(dir), "directories are rejected")

	txt := writeFile(t, dir, "20240301_store-a.txt", "date,units\n")
	assert.Error(t, p.Validate(txt), "non-CSV extensions are rejected")
}

func TestTransform(t *testing.T) {
	p := NewSalesPipeline(Config{})
	path := writeFile(t, t.TempDir(), "20240301_store-a.csv",
		"date,units\n2024-03-01,120\n2024-03-02,95\n2024-03-03,101\n")

	batch, err := p.Transform(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "store-a", batch.Series)
	require.Len(t, batch.Points, 3)
	assert.Equal(t, "2024-03-01", batch.Points[0].Date.String())
	assert.Equal(t, 120, batch.Points[0].Units)
	assert.Equal(t, 95, batch.Points[1].Units)
}

func TestTransformAcceptsHeaderAliases(t *testing.T) {
	p := NewSalesPipeline(Config{})
	path := writeFile(t, t.TempDir(), "20240301_toko-padang.csv",
		"Tanggal,Qty\n2024-03-01,42\n")

	batch, err := p.Transform(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "toko-padang", batch.Series)
	require.Len(t, batch.Points, 1)
	assert.Equal(t, 42, batch.Points[0].Units)
}

func TestTransformNumericForms(t *testing.T) {
	p := NewSalesPipeline(Config{})
	path := writeFile(t, t.TempDir(), "20240301_store-a.csv",
		"date,units\n2024-03-01,\"1,234\"\n2024-03-02,95.4\n")

	batch, err := p.Transform(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, batch.Points, 2)
	assert.Equal(t, 1234, batch.Points[0].Units)
	assert.Equal(t, 95, batch.Points[1].Units)
}

func TestTransformSkipsBlankRows(t *testing.T) {
	p := NewSalesPipeline(Config{})
	path := writeFile(t, t.TempDir(), "20240301_store-a.csv",
		"date,units\n2024-03-01,10\n,\n2024-03-02,11\n")

	batch, err := p.Transform(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, batch.Points, 2)
}

func TestTransformRejectsMalformedRows(t *testing.T) {
	p := NewSalesPipeline(Config{})
	dir := t.TempDir()

	badDate := writeFile(t, dir, "20240301_a.csv", "date,units\nnot-a-date,10\n")
	_, err := p.Transform(context.Background(), badDate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	badUnits := writeFile(t, dir, "20240301_b.csv", "date,units\n2024-03-01,many\n")
	_, err = p.Transform(context.Background(), badUnits)
	assert.Error(t, err)

	negative := writeFile(t, dir, "20240301_c.csv", "date,units\n2024-03-01,-5\n")
	_, err = p.Transform(context.Background(), negative)
	assert.Error(t, err)
}

func TestTransformRejectsUnusableFiles(t *testing.T) {
	p := NewSalesPipeline(Config{})
	dir := t.TempDir()

	headerOnly := writeFile(t, dir, "20240301_a.csv", "date,units\n")
	_, err := p.Transform(context.Background(), headerOnly)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data rows")

	wrongHeader := writeFile(t, dir, "20240301_b.csv", "foo,bar\n1,2\n")
	_, err = p.Transform(context.Background(), wrongHeader)
	assert.Error(t, err)
}
