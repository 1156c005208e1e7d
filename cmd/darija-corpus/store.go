package main

import (
	"fmt"
	"path/filepath"

	"github.com/Caia-Tech/darija-corpus/internal/api"
	"github.com/Caia-Tech/darija-corpus/internal/cleaning"
	"github.com/Caia-Tech/darija-corpus/internal/enrichment"
	"github.com/Caia-Tech/darija-corpus/internal/storage"
	"github.com/Caia-Tech/darija-corpus/pkg/logging"
	"github.com/Caia-Tech/darija-corpus/pkg/pipeline"
	"github.com/spf13/cobra"
)

var migrateFlags struct {
	input     string
	batchSize int
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Load enriched translations and their tags into the database",
	RunE:  runMigrate,
}

var snapshotFlags struct {
	repo    string
	message string
	history int
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [file...]",
	Short: "Commit output files to the dataset git repository",
	Long: `Copy output files into the dataset repository and commit them.
Without arguments the cleaning outputs of the configured output directory are used.`,
	RunE: runSnapshot,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the translation database over HTTP",
	RunE:  runServe,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateFlags.input, "input", "", "enriched translations file (default: translations_with_tags.json in the data root)")
	migrateCmd.Flags().IntVar(&migrateFlags.batchSize, "batch-size", 0, "records per transaction (default from configuration)")

	snapshotCmd.Flags().StringVar(&snapshotFlags.repo, "repo", "", "dataset repository path (default from configuration)")
	snapshotCmd.Flags().StringVarP(&snapshotFlags.message, "message", "m", "Dataset snapshot", "commit message")
	snapshotCmd.Flags().IntVar(&snapshotFlags.history, "history", 0, "list the last N snapshots instead of committing")
}

func openStore(metrics *storage.SimpleMetricsCollector) *storage.SQLStore {
	logger := logging.GetLogger("cmd")
	if err := pipeline.RequireDatabase(cfg); err != nil {
		logger.Fatal().Err(err).Msg("Database configuration incomplete")
	}
	store, err := storage.OpenSQLStore(cfg.Database.Driver, cfg.Database.URL, metrics)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to open database")
	}
	return store
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	input := migrateFlags.input
	if input == "" {
		input = filepath.Join(cfg.DataPaths.DataRoot, "translations_with_tags.json")
	}
	batchSize := migrateFlags.batchSize
	if batchSize <= 0 {
		batchSize = cfg.Processing.MigrateBatchSize
	}

	entries, err := enrichment.LoadResults(input)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no translations found in %s", input)
	}

	store := openStore(storage.NewSimpleMetricsCollector())
	defer store.Close()

	fmt.Println("🗄️  DATABASE MIGRATION")
	fmt.Println("=====================")
	if err := store.CreateTables(ctx); err != nil {
		return err
	}
	fmt.Println("✅ Tables ready")

	stats, err := store.Migrate(ctx, entries, batchSize)
	if stats != nil {
		fmt.Printf("   📄 Entries read:     %d\n", stats.Total)
		fmt.Printf("   ✅ Inserted:         %d\n", stats.Inserted)
		fmt.Printf("   ⚪ Duplicates:       %d\n", stats.Duplicates)
		fmt.Printf("   🏷️  Tag links:        %d\n", stats.TagLinks)
		fmt.Printf("   💾 Commits:          %d\n", stats.Commits)
	}
	return err
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	repoPath := snapshotFlags.repo
	if repoPath == "" {
		repoPath = cfg.DataPaths.SnapshotDir
	}

	if snapshotFlags.history > 0 {
		repo, err := storage.OpenDatasetRepo(repoPath, nil)
		if err != nil {
			return err
		}
		history, err := repo.History(cmd.Context(), snapshotFlags.history)
		if err != nil {
			return err
		}
		for _, s := range history {
			fmt.Printf("%s  %s  %s\n", s.Hash[:12], s.When.Format("2006-01-02 15:04"), s.Message)
		}
		return nil
	}

	files := args
	if len(files) == 0 {
		for _, name := range []string{
			cleaning.CleanedFile, cleaning.InvalidFile, cleaning.StructuredFile,
			cleaning.QualityFile, cleaning.UnmatchedFile,
				cleaning.RawCSVFile, cleaning.RecordsCSVFile,
		} {
			files = append(files, filepath.Join(cfg.DataPaths.OutputDir, filepath.FromSlash(name)))
		}
	}
	return snapshotFiles(cmd, repoPath, files, snapshotFlags.message)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := logging.GetLogger("server")

	metrics := storage.NewSimpleMetricsCollector()
	store := openStore(metrics)
	defer store.Close()

	if err := store.Health(cmd.Context()); err != nil {
		logger.Warn().Err(err).Msg("Database health check failed, serving anyway")
	}

	app := api.NewApp(cfg.Server, store, metrics)

	go func() {
		<-cmd.Context().Done()
		logger.Info().Msg("Shutting down server...")
		if err := app.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("🚀 Darija Corpus API listening on %s\n", addr)
	fmt.Println("📋 Endpoints:")
	fmt.Println("   GET    /health")
	fmt.Println("   GET    /api/v1/translations")
	fmt.Println("   GET    /api/v1/translations/:id")
	fmt.Println("   GET    /api/v1/tags")
	fmt.Println("   GET    /api/v1/stats")
	fmt.Println("   GET    /api/v1/storage/metrics")
	return app.Listen(addr)
}
