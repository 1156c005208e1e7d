package main

import (
	"fmt"
	"path/filepath"

	"github.com/Caia-Tech/darija-corpus/internal/enrichment"
	"github.com/Caia-Tech/darija-corpus/internal/llm"
	"github.com/Caia-Tech/darija-corpus/pkg/logging"
	"github.com/Caia-Tech/darija-corpus/pkg/pipeline"
	"github.com/Caia-Tech/darija-corpus/pkg/ratelimit"
	"github.com/Caia-Tech/darija-corpus/pkg/translation"
	"github.com/spf13/cobra"
)

var enrichFlags struct {
	input      string
	format     string
	output     string
	checkpoint int
}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Tag translation pairs with an LLM and add inverse entries",
	Long: `Annotate every translation pair with thematic tags and a short context,
writing the pair and its inverse. Runs resume after the last pair already
present in the output file.

Input formats:
  structured   {"translations": [{"source_lang", "source", "target_lang", "target"}]}
  processed    [{"direction": "fr_dr", "pairs": [{"texte_cible", "traduction"}]}]`,
	RunE: runEnrich,
}

func init() {
	f := enrichCmd.Flags()
	f.StringVar(&enrichFlags.input, "input", "", "input file (default: structured_translations.json in the output directory)")
	f.StringVar(&enrichFlags.format, "format", "structured", `input format: "structured" or "processed"`)
	f.StringVar(&enrichFlags.output, "output", "", "output file (default: translations_with_tags.json in the data root)")
	f.IntVar(&enrichFlags.checkpoint, "checkpoint", 0, "save every N pairs (default from configuration)")
}

func runEnrich(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if err := pipeline.RequireOpenAI(cfg); err != nil {
		logger := logging.GetLogger("cmd")
		logger.Fatal().Err(err).Msg("OpenAI configuration incomplete")
	}

	input := enrichFlags.input
	if input == "" {
		input = filepath.Join(cfg.DataPaths.OutputDir, "structured_translations.json")
	}
	output := enrichFlags.output
	if output == "" {
		output = filepath.Join(cfg.DataPaths.DataRoot, "translations_with_tags.json")
	}
	checkpoint := enrichFlags.checkpoint
	if checkpoint <= 0 {
		checkpoint = cfg.Processing.CheckpointEvery
	}

	var (
		pairs []translation.Pair
		err   error
	)
	switch enrichFlags.format {
	case "structured":
		pairs, err = enrichment.LoadStructuredPairs(input)
	case "processed":
		pairs, err = enrichment.LoadProcessedPairs(input)
	default:
		return fmt.Errorf("unknown input format %q", enrichFlags.format)
	}
	if err != nil {
		return fmt.Errorf("failed to load pairs: %w", err)
	}

	fmt.Println("🏷️  DARIJA CORPUS ENRICHMENT")
	fmt.Println("===========================")
	fmt.Printf("📥 %d pairs loaded from %s\n", len(pairs), input)

	limiter := ratelimit.NewServiceRateLimiter()
	client := llm.NewOpenAIClient(cfg.OpenAI, limiter)
	enricher := enrichment.NewEnricher(enrichment.NewLLMAnnotator(client), output, checkpoint)

	stats, err := enricher.Run(ctx, pairs)
	if stats != nil {
		fmt.Println()
		fmt.Println("📊 RESULTS")
		fmt.Printf("   ⏭️  Resumed after pair: %d\n", stats.ResumedAfter)
		fmt.Printf("   ✅ Pairs processed:    %d\n", stats.Processed)
		fmt.Printf("   ⚪ Pairs skipped:      %d\n", stats.Skipped)
		fmt.Printf("   ⚠️  Annotation errors:  %d\n", stats.AnnotationErrors)
		fmt.Printf("   📄 Entries written:    %d\n", stats.Entries)
		fmt.Printf("   ⏱️  Duration:           %s\n", stats.Duration)
		fmt.Printf("📁 %s\n", output)
	}
	return err
}
