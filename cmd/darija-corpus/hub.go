package main

import (
	"fmt"

	"github.com/Caia-Tech/darija-corpus/internal/hub"
	"github.com/Caia-Tech/darija-corpus/internal/loader"
	"github.com/Caia-Tech/darija-corpus/pkg/logging"
	"github.com/Caia-Tech/darija-corpus/pkg/pipeline"
	"github.com/Caia-Tech/darija-corpus/pkg/ratelimit"
	"github.com/spf13/cobra"
)

var hubFlags struct {
	dataset     string
	keepParquet bool
	upload      bool
	uploadDir   string
	prefix      string
	pattern     string
}

var hubCmd = &cobra.Command{
	Use:   "hub",
	Short: "Work with the source dataset on the Hugging Face hub",
}

var hubStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Fetch dataset metadata and write a JSON and Markdown report",
	RunE:  runHubStats,
}

var hubDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the dataset parquet files and convert them to CSV",
	RunE:  runHubDownload,
}

var hubUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload local files to the configured blob container",
	RunE:  runHubUpload,
}

var hubRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run statistics then download, optionally uploading the parquet files",
	RunE:  runHubPipeline,
}

func init() {
	pf := hubCmd.PersistentFlags()
	pf.StringVar(&hubFlags.dataset, "dataset", "", "dataset id (default from configuration)")

	hubDownloadCmd.Flags().BoolVar(&hubFlags.keepParquet, "keep-parquet", false, "keep parquet files after conversion")
	hubRunCmd.Flags().BoolVar(&hubFlags.keepParquet, "keep-parquet", false, "keep parquet files after conversion")
	hubRunCmd.Flags().BoolVar(&hubFlags.upload, "upload", false, "upload the kept parquet files to blob storage")

	for _, c := range []*cobra.Command{hubUploadCmd, hubRunCmd} {
		c.Flags().StringVar(&hubFlags.uploadDir, "dir", "", "directory to upload (default: the parquet directory)")
		c.Flags().StringVar(&hubFlags.prefix, "prefix", "", "blob prefix (default from configuration)")
		c.Flags().StringVar(&hubFlags.pattern, "pattern", "*.parquet", "file name pattern to upload")
	}

	hubCmd.AddCommand(hubStatsCmd, hubDownloadCmd, hubUploadCmd, hubRunCmd)
}

func hubConfig() *pipeline.HuggingFaceConfig {
	config := *cfg.HuggingFace
	if hubFlags.dataset != "" {
		config.DatasetID = hubFlags.dataset
	}
	return &config
}

func newStatsModule(limiter *ratelimit.ServiceRateLimiter) *hub.StatsModule {
	return &hub.StatsModule{
		Client: hub.NewStatsClient(hubConfig(), limiter),
		Dir:    cfg.DataPaths.StatsDir,
	}
}

func newDownloader(limiter *ratelimit.ServiceRateLimiter) *hub.Downloader {
	d := hub.NewDownloader(hubConfig(), cfg.DataPaths.ParquetDir, cfg.DataPaths.CSVDir, limiter)
	d.KeepParquet = hubFlags.keepParquet
	return d
}

func newUploader() (*hub.Uploader, error) {
	if err := pipeline.RequireAzure(cfg); err != nil {
		logger := logging.GetLogger("cmd")
		logger.Fatal().Err(err).Msg("Azure configuration incomplete")
	}
	store, err := loader.NewAzureBlobStore(cfg.Azure)
	if err != nil {
		return nil, err
	}
	dir := hubFlags.uploadDir
	if dir == "" {
		dir = cfg.DataPaths.ParquetDir
	}
	prefix := hubFlags.prefix
	if prefix == "" {
		prefix = cfg.Azure.ParquetPrefix
	}
	return hub.NewUploader(store, dir, prefix, hubFlags.pattern), nil
}

func runHubStats(cmd *cobra.Command, _ []string) error {
	fmt.Println("📊 DATASET STATISTICS")
	module := newStatsModule(ratelimit.NewServiceRateLimiter())
	if err := module.Run(cmd.Context()); err != nil {
		return err
	}
	fmt.Printf("✅ Report saved to %s\n", module.Dir)
	return nil
}

func runHubDownload(cmd *cobra.Command, _ []string) error {
	fmt.Println("📥 DATASET DOWNLOAD")
	if err := newDownloader(ratelimit.NewServiceRateLimiter()).Run(cmd.Context()); err != nil {
		return err
	}
	fmt.Printf("✅ CSV files saved to %s\n", cfg.DataPaths.CSVDir)
	return nil
}

func runHubUpload(cmd *cobra.Command, _ []string) error {
	fmt.Println("📤 BLOB UPLOAD")
	uploader, err := newUploader()
	if err != nil {
		return err
	}
	names, err := uploader.Upload(cmd.Context())
	for _, n := range names {
		fmt.Printf("   ✅ %s\n", n)
	}
	if err != nil {
		return err
	}
	fmt.Printf("✅ %d files uploaded to %s\n", len(names), cfg.Azure.Container)
	return nil
}

func runHubPipeline(cmd *cobra.Command, _ []string) error {
	limiter := ratelimit.NewServiceRateLimiter()
	modules := []hub.Module{newStatsModule(limiter), newDownloader(limiter)}
	if hubFlags.upload {
		if !hubFlags.keepParquet {
			return fmt.Errorf("--upload needs --keep-parquet")
		}
		uploader, err := newUploader()
		if err != nil {
			return err
		}
		modules = append(modules, uploader)
	}

	fmt.Println("🚀 HUB PIPELINE")
	fmt.Println("==============")
	timings, err := hub.NewPipeline(modules...).Run(cmd.Context())
	for _, t := range timings {
		status := "✅"
		if t.Err != nil {
			status = "❌"
		}
		fmt.Printf("   %s %-16s %s\n", status, t.Name, t.Duration)
	}
	return err
}
