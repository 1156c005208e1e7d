package main

import (
	"fmt"
	"path/filepath"

	"github.com/Caia-Tech/darija-corpus/internal/llm"
	"github.com/Caia-Tech/darija-corpus/internal/questions"
	"github.com/Caia-Tech/darija-corpus/pkg/logging"
	"github.com/Caia-Tech/darija-corpus/pkg/pipeline"
	"github.com/Caia-Tech/darija-corpus/pkg/ratelimit"
	"github.com/spf13/cobra"
)

var questionsFlags struct {
	count     int
	langs     []string
	outputDir string
}

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Generate tourist questions and statements as XLSX sheets",
	RunE:  runQuestions,
}

func init() {
	f := questionsCmd.Flags()
	f.IntVar(&questionsFlags.count, "count", 0, "lines per language (default from configuration)")
	f.StringSliceVar(&questionsFlags.langs, "lang", questions.Languages(), "languages to generate")
	f.StringVar(&questionsFlags.outputDir, "output-dir", "", "directory for the XLSX files (default: the data root)")
}

func runQuestions(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := logging.GetPipelineLogger("questions", "run")

	if err := pipeline.RequireOpenAI(cfg); err != nil {
		logger := logging.GetLogger("cmd")
		logger.Fatal().Err(err).Msg("OpenAI configuration incomplete")
	}

	count := questionsFlags.count
	if count <= 0 {
		count = cfg.Processing.QuestionsPerLang
	}
	outDir := questionsFlags.outputDir
	if outDir == "" {
		outDir = cfg.DataPaths.DataRoot
	}

	client := llm.NewOpenAIClient(cfg.OpenAI, ratelimit.NewServiceRateLimiter())
	generator := questions.NewGenerator(client, cfg.Processing.QuestionBatchSize)

	fmt.Println("❓ TOURIST QUESTION GENERATION")
	fmt.Println("=============================")

	for _, lang := range questionsFlags.langs {
		fmt.Printf("🔄 Generating %d lines (%s)...\n", count, lang)
		lines, err := generator.Generate(ctx, lang, count)
		if err != nil {
			return err
		}

		rows := questions.BuildRows(lines, lang)
		path := filepath.Join(outDir, questions.FileName(lang))
		if err := questions.SaveXLSX(path, rows); err != nil {
			return err
		}

		var asked int
		for _, r := range rows {
			if r.Kind == questions.KindQuestion {
				asked++
			}
		}
		logger.Info().Str("lang", lang).Int("rows", len(rows)).Int("questions", asked).Str("path", path).Msg("Sheet saved")
		fmt.Printf("✅ %d lines (%d questions, %d statements) saved to %s\n", len(rows), asked, len(rows)-asked, path)
	}
	return nil
}
