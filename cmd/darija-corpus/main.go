// Package main provides the darija-corpus command line
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Caia-Tech/darija-corpus/pkg/logging"
	"github.com/Caia-Tech/darija-corpus/pkg/pipeline"
	"github.com/spf13/cobra"
)

var rootFlags struct {
	envFiles  []string
	profile   string
	logLevel  string
	logFormat string
	logFile   string
}

// cfg is resolved once per invocation by the root PersistentPreRunE
var cfg *pipeline.CorpusConfig

var rootCmd = &cobra.Command{
	Use:   "darija-corpus",
	Short: "Build a Darija translation corpus from conversational datasets",
	Long: `Build a Darija translation corpus from conversational datasets.

Pipeline:
  darija-corpus hub run           fetch dataset statistics and parquet shards
  darija-corpus clean             extract translation pairs from the shards
  darija-corpus enrich            tag pairs and add inverse entries
  darija-corpus migrate           load enriched pairs into the database
  darija-corpus serve             expose the database over HTTP`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringSliceVar(&rootFlags.envFiles, "env", []string{".env"}, ".env files to load (missing files are skipped)")
	f.StringVar(&rootFlags.profile, "profile", "default", `configuration preset: "default", "development" or "production"`)
	f.StringVar(&rootFlags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.StringVar(&rootFlags.logFormat, "log-format", "", `log format: "pretty" or "json"`)
	f.StringVar(&rootFlags.logFile, "log-file", "", "log file path (overrides the data directory default)")

	rootCmd.AddCommand(cleanCmd, structureCmd, enrichCmd, questionsCmd, scrapeCmd,
		hubCmd, migrateCmd, snapshotCmd, serveCmd)
}

func setup(_ *cobra.Command, _ []string) error {
	if err := pipeline.LoadEnv(rootFlags.envFiles...); err != nil {
		return err
	}

	switch rootFlags.profile {
	case "development":
		cfg = pipeline.DevelopmentCorpusConfig()
	case "production":
		cfg = pipeline.ProductionCorpusConfig()
	case "default", "":
		cfg = pipeline.DefaultCorpusConfig()
	default:
		return fmt.Errorf("unknown profile %q", rootFlags.profile)
	}
	pipeline.ApplyEnv(cfg)

	if rootFlags.logLevel != "" {
		cfg.Logging.Level = rootFlags.logLevel
	}
	if rootFlags.logFormat != "" {
		cfg.Logging.Format = rootFlags.logFormat
	}
	if rootFlags.logFile != "" {
		cfg.Logging.OutputFile = rootFlags.logFile
	}

	if err := logging.SetupLogger(cfg.Logging); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return pipeline.SetupDirectories(cfg)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Printf("❌ %v\n", err)
		stop()
		os.Exit(1)
	}
}
