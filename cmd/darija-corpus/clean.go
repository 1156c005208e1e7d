package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Caia-Tech/darija-corpus/internal/cleaning"
	"github.com/Caia-Tech/darija-corpus/internal/loader"
	"github.com/Caia-Tech/darija-corpus/internal/storage"
	"github.com/Caia-Tech/darija-corpus/pkg/logging"
	"github.com/Caia-Tech/darija-corpus/pkg/pipeline"
	"github.com/Caia-Tech/darija-corpus/pkg/translation"
	"github.com/spf13/cobra"
)

var cleanFlags struct {
	source    string
	inputs    []string
	prefix    string
	output    string
	patterns  string
	snapshot  bool
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Extract translation pairs from conversation shards",
	Long: `Load conversation rows, extract one translation pair per matched
instruction, annotate quality issues and write the run's output files.
The loaded rows are mirrored to csv_files/translations.csv in the output
directory.

Sources:
  local   parquet files or directories (default: the parquet data directory)
  azure   every *.parquet blob under --prefix in the configured container
  csv     the CSV mirror written by a previous run

Examples:
  darija-corpus clean
  darija-corpus clean --source azure --prefix data/
  darija-corpus clean --source csv --input data/agregation/csv_files/translations.csv --snapshot`,
	RunE: runClean,
}

func init() {
	f := cleanCmd.Flags()
	f.StringVar(&cleanFlags.source, "source", "local", `row source: "local", "azure" or "csv"`)
	f.StringSliceVar(&cleanFlags.inputs, "input", nil, "parquet files/directories, or the CSV mirror for --source csv")
	f.StringVar(&cleanFlags.prefix, "prefix", "", "blob prefix for --source azure (default from configuration)")
	f.StringVar(&cleanFlags.output, "output", "", "output directory (default from configuration)")
	f.StringVar(&cleanFlags.patterns, "patterns", "", "YAML pattern table overriding the built-in one")
	f.BoolVar(&cleanFlags.snapshot, "snapshot", false, "commit the output files to the dataset repository")
}

func newSource() (loader.Source, error) {
	switch cleanFlags.source {
	case "local":
		inputs := cleanFlags.inputs
		if len(inputs) == 0 {
			inputs = []string{cfg.DataPaths.ParquetDir}
		}
		return loader.NewParquetSource(inputs...), nil
	case "azure":
		if err := pipeline.RequireAzure(cfg); err != nil {
			logger := logging.GetLogger("cmd")
			logger.Fatal().Err(err).Msg("Azure configuration incomplete")
		}
		store, err := loader.NewAzureBlobStore(cfg.Azure)
		if err != nil {
			return nil, err
		}
		prefix := cleanFlags.prefix
		if prefix == "" {
			prefix = cfg.Azure.ParquetPrefix
		}
		return loader.NewBlobSource(store, prefix), nil
	case "csv":
		if len(cleanFlags.inputs) != 1 {
			return nil, fmt.Errorf("--source csv needs exactly one --input file")
		}
		return &loader.CSVSource{Path: cleanFlags.inputs[0]}, nil
	default:
		return nil, fmt.Errorf("unknown source %q", cleanFlags.source)
	}
}

func newCleaner() (*cleaning.Cleaner, error) {
	config := cleaning.DefaultCleanerConfig()
	config.MinTextLength = cfg.Processing.MinTextLength
	config.MinLengthRatio = cfg.Processing.MinLengthRatio

	patternFile := cleanFlags.patterns
	if patternFile == "" {
		patternFile = cfg.Processing.PatternFile
	}
	if patternFile != "" {
		table, err := cleaning.LoadPatternTable(patternFile)
		if err != nil {
			return nil, err
		}
		config.Patterns = table
	}
	return cleaning.NewCleaner(config)
}

func runClean(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := logging.GetPipelineLogger("clean", "run")

	fmt.Println("🧹 DARIJA CORPUS CLEANING")
	fmt.Println("========================")

	source, err := newSource()
	if err != nil {
		return err
	}
	rows, err := loader.Load(ctx, source, cfg.Processing.Directions)
	if err != nil {
		return fmt.Errorf("failed to load rows: %w", err)
	}
	fmt.Printf("📥 Loaded %d rows\n", len(rows))
	for _, dc := range loader.CountDirections(rows) {
		fmt.Printf("   %-6s %d\n", dc.Direction, dc.Count)
	}

	cleaner, err := newCleaner()
	if err != nil {
		return err
	}
	result, err := cleaner.Clean(ctx, rows)
	if err != nil {
		logger.Warn().Err(err).Msg("Cleaning interrupted, writing partial results")
	}

	outDir := cleanFlags.output
	if outDir == "" {
		outDir = cfg.DataPaths.OutputDir
	}
	paths, writeErr := cleaning.WriteOutputs(outDir, rows, result)
	if writeErr != nil {
		return fmt.Errorf("failed to write outputs: %w", writeErr)
	}

	printCleanSummary(result, paths)

	if cleanFlags.snapshot {
		if err := snapshotFiles(cmd, cfg.DataPaths.SnapshotDir, paths.All(),
			fmt.Sprintf("Clean run %s: %d valid pairs", result.RunID, len(result.Valid))); err != nil {
			return err
		}
	}
	return err
}

func printCleanSummary(result *cleaning.Result, paths cleaning.OutputPaths) {
	fmt.Println()
	fmt.Println("📊 RESULTS")
	fmt.Printf("   ✅ Valid pairs:        %d\n", len(result.Valid))
	fmt.Printf("   ❌ Invalid rows:       %d\n", len(result.Invalid))
	fmt.Printf("   🔍 Unmatched rows:     %d\n", len(result.Unmatched))
	fmt.Printf("   ⚠️  Quality issues:     %d\n", len(result.QualityIssues))
	fmt.Printf("   💥 Processing errors:  %d\n", result.ProcessingErrors)
	fmt.Printf("   ⏱️  Duration:           %s\n", result.ProcessingTime)

	fmt.Println()
	fmt.Println("💬 CONVERSATIONS")
	fmt.Printf("   Conversations:        %d\n", result.Stats.Conversations)
	fmt.Printf("   Multi-turn:           %d\n", result.Stats.MultiTurnConversations)
	fmt.Printf("   Total turns:          %d\n", result.Stats.TotalTurns)
	fmt.Printf("   Max turns:            %d\n", result.Stats.MaxTurns)

	fmt.Println()
	fmt.Println("🧭 PATTERN MATCHES")
	fmt.Printf("   matched=%d unmatched=%d\n", result.Telemetry.Matched, result.Telemetry.Unmatched)
	for _, line := range directionLines(result.Telemetry) {
		fmt.Println(line)
	}

	fmt.Println()
	fmt.Println("📁 FILES")
	for _, p := range paths.All() {
		fmt.Printf("   %s\n", p)
	}
}

// directionLines renders per-direction match counts in canonical direction order
func directionLines(snap cleaning.TelemetrySnapshot) []string {
	lines := make([]string, 0, len(translation.Directions()))
	for _, d := range translation.Directions() {
		lines = append(lines, fmt.Sprintf("   %-6s %d", d, snap.ByDirection[string(d)]))
	}
	return lines
}

func snapshotFiles(cmd *cobra.Command, repoPath string, files []string, message string) error {
	repo, err := storage.OpenDatasetRepo(repoPath, storage.NewSimpleMetricsCollector())
	if err != nil {
		return err
	}
	hash, err := repo.Snapshot(cmd.Context(), files, message)
	if err != nil {
		if errors.Is(err, storage.ErrNoChanges) {
			fmt.Println("📸 Dataset unchanged, no snapshot created")
			return nil
		}
		return err
	}
	fmt.Printf("📸 Snapshot %s committed to %s\n", hash[:12], repoPath)
	return nil
}

var structureFlags struct {
	output string
}

var structureCmd = &cobra.Command{
	Use:   "structure <input.json>",
	Short: "Convert a translations file to the source/target schema",
	Args:  cobra.ExactArgs(1),
	RunE:  runStructure,
}

func init() {
	structureCmd.Flags().StringVar(&structureFlags.output, "output", "", "output path (default: <input>_structured.json)")
}

func runStructure(_ *cobra.Command, args []string) error {
	in := args[0]
	out := structureFlags.output
	if out == "" {
		out = strings.TrimSuffix(in, filepath.Ext(in)) + "_structured.json"
	}

	written, skipped, err := cleaning.StructureFile(in, out)
	if err != nil {
		return err
	}
	fmt.Printf("✅ %d translations structured into %s\n", written, out)
	if skipped > 0 {
		fmt.Printf("⚠️  %d items skipped\n", skipped)
	}
	return nil
}
