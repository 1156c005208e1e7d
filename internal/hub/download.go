package hub

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Caia-Tech/darija-corpus/internal/export"
	"github.com/Caia-Tech/darija-corpus/internal/loader"
	"github.com/Caia-Tech/darija-corpus/pkg/logging"
	"github.com/Caia-Tech/darija-corpus/pkg/pipeline"
	"github.com/Caia-Tech/darija-corpus/pkg/ratelimit"
	"github.com/go-resty/resty/v2"
)

// Downloader fetches dataset parquet files and converts them to CSV
type Downloader struct {
	http       *resty.Client
	datasetID  string
	files      []string
	parquetDir string
	csvDir     string
	// KeepParquet leaves the downloaded parquet next to the CSV
	KeepParquet bool
	limiter     *ratelimit.ServiceRateLimiter
}

// NewDownloader creates a downloader for the configured dataset files
func NewDownloader(config *pipeline.HuggingFaceConfig, parquetDir, csvDir string, limiter *ratelimit.ServiceRateLimiter) *Downloader {
	return &Downloader{
		http:       newHTTPClient(config),
		datasetID:  config.DatasetID,
		files:      config.Files,
		parquetDir: parquetDir,
		csvDir:     csvDir,
		limiter:    limiter,
	}
}

// Download saves one repository file under parquetDir, keeping its relative path
func (d *Downloader) Download(ctx context.Context, file string) (string, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx, ratelimit.ServiceHuggingFace); err != nil {
			return "", err
		}
	}

	local := filepath.Join(d.parquetDir, filepath.FromSlash(file))
	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return "", err
	}

	resp, err := d.http.R().
		SetContext(ctx).
		SetRawPathParam("id", d.datasetID).
		SetOutput(local).
		Get("/datasets/{id}/resolve/main/" + strings.TrimLeft(file, "/"))
	if err != nil {
		if d.limiter != nil {
			d.limiter.RecordError(ratelimit.ServiceHuggingFace, err)
		}
		return "", fmt.Errorf("failed to download %s: %w", file, err)
	}
	if resp.IsError() {
		os.Remove(local)
		return "", fmt.Errorf("failed to download %s: %s", file, resp.Status())
	}
	if d.limiter != nil {
		d.limiter.RecordSuccess(ratelimit.ServiceHuggingFace)
	}
	return local, nil
}

// ConvertToCSV writes the flattened rows of a parquet file to csvDir/<stem>.csv
func (d *Downloader) ConvertToCSV(ctx context.Context, parquetPath string) (string, error) {
	rows, err := loader.NewParquetSource(parquetPath).Rows(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", parquetPath, err)
	}

	stem := strings.TrimSuffix(filepath.Base(parquetPath), filepath.Ext(parquetPath))
	csvPath := filepath.Join(d.csvDir, stem+".csv")
	if err := export.WriteRowsCSV(csvPath, rows); err != nil {
		return "", err
	}

	if !d.KeepParquet {
		if err := os.Remove(parquetPath); err != nil {
			logger := logging.GetLogger("hub")
			logger.Warn().Err(err).Str("path", parquetPath).Msg("Temporary parquet not removed")
		}
	}
	return csvPath, nil
}

// Name implements Module
func (d *Downloader) Name() string { return "téléchargement" }

// Run downloads and converts every configured file, stopping at the first failure
func (d *Downloader) Run(ctx context.Context) error {
	logger := logging.GetLogger("hub")
	for _, file := range d.files {
		local, err := d.Download(ctx, file)
		if err != nil {
			return err
		}
		csvPath, err := d.ConvertToCSV(ctx, local)
		if err != nil {
			return err
		}
		logger.Info().Str("file", file).Str("csv", csvPath).Msg("File converted")
	}
	logger.Info().Int("files", len(d.files)).Msg("Conversion completed")
	return nil
}
