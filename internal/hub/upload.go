package hub

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/Caia-Tech/darija-corpus/internal/loader"
	"github.com/Caia-Tech/darija-corpus/pkg/logging"
)

// Uploader streams local files into blob storage under a prefix
type Uploader struct {
	store   loader.BlobStore
	dir     string
	prefix  string
	pattern string
}

// NewUploader uploads files of dir matching pattern (default *.parquet)
func NewUploader(store loader.BlobStore, dir, prefix, pattern string) *Uploader {
	if pattern == "" {
		pattern = "*.parquet"
	}
	return &Uploader{store: store, dir: dir, prefix: prefix, pattern: pattern}
}

// Name implements Module
func (u *Uploader) Name() string { return "upload" }

// Run uploads every matching file and returns the first failure
func (u *Uploader) Run(ctx context.Context) error {
	_, err := u.Upload(ctx)
	return err
}

// Upload returns the blob names written
func (u *Uploader) Upload(ctx context.Context) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(u.dir, u.pattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no files matching %s in %s", u.pattern, u.dir)
	}

	logger := logging.GetStorageLogger("upload", "azblob")
	var names []string
	for _, f := range files {
		name := path.Join(u.prefix, filepath.Base(f))
		if err := u.uploadFile(ctx, f, name); err != nil {
			return names, err
		}
		logger.Info().Str("file", f).Str("blob", name).Msg("File uploaded")
		names = append(names, name)
	}
	return names, nil
}

func (u *Uploader) uploadFile(ctx context.Context, local, name string) error {
	file, err := os.Open(local)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := u.store.Upload(ctx, name, file); err != nil {
		return fmt.Errorf("failed to upload %s: %w", local, err)
	}
	return nil
}
