package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/demandcast/backend-go/internal/storage"
)

// archiveDownloader pulls raw actuals CSVs out of the S3-compatible
// archive into a local directory so the import pipeline can process them.
type archiveDownloader struct {
	client  storage.ObjectStorage
	destDir string
}

func newArchiveDownloader(c *cli.Context, destDir string) (*archiveDownloader, error) {
	client, err := storage.NewMinioClient(storage.Config{
		Endpoint:  c.String("archive-endpoint"),
		AccessKey: c.String("archive-access-key"),
		SecretKey: c.String("archive-secret-key"),
		Bucket:    c.String("archive-bucket"),
		UseSSL:    c.Bool("archive-use-ssl"),
	})
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure download dir %s: %w", destDir, err)
	}

	return &archiveDownloader{client: client, destDir: destDir}, nil
}

// download fetches every CSV under the prefix. Keys are flattened to their
// base name: the date-stamped filename is what the pipeline parses.
func (d *archiveDownloader) download(ctx context.Context, prefix string) ([]string, error) {
	objects, err := d.client.ListObjects(ctx, strings.TrimSpace(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list archive objects for prefix %s: %w", prefix, err)
	}

	var keys []string
	for _, obj := range objects {
		if strings.HasSuffix(strings.ToLower(obj.Key), ".csv") {
			keys = append(keys, obj.Key)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no CSV files found for prefix %s", prefix)
	}

	localPaths := make([]string, 0, len(keys))
	for _, key := range keys {
		localPath := filepath.Join(d.destDir, filepath.Base(key))
		if err := d.client.DownloadObject(ctx, key, localPath); err != nil {
			return nil, err
		}
		localPaths = append(localPaths, localPath)
	}

	sort.Strings(localPaths)
	return localPaths, nil
}
