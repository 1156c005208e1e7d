package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Caia-Tech/darija-corpus/internal/questions"
	"github.com/Caia-Tech/darija-corpus/internal/scraping"
	"github.com/Caia-Tech/darija-corpus/pkg/ratelimit"
	"github.com/spf13/cobra"
)

var scrapeFlags struct {
	file        string
	output      string
	headful     bool
	screenshots string
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [phrase...]",
	Short: "Translate French phrases to Darija through the online translator",
	Long: `Translate French phrases with a headless browser and append each result
to a {"translations": [...]} file.

Phrases come from the arguments or from --file: a questions XLSX sheet
produced by the questions command, or a text file with one phrase per line.`,
	RunE: runScrape,
}

func init() {
	f := scrapeCmd.Flags()
	f.StringVar(&scrapeFlags.file, "file", "", "XLSX sheet or text file of phrases")
	f.StringVar(&scrapeFlags.output, "output", "", "output file (default: translations.json in the data root)")
	f.BoolVar(&scrapeFlags.headful, "headful", false, "show the browser window")
	f.StringVar(&scrapeFlags.screenshots, "screenshots", "", "directory for before/after screenshots")
}

func readPhrases(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err := questions.ReadXLSX(path)
		if err != nil {
			return nil, err
		}
		phrases := make([]string, 0, len(rows))
		for _, r := range rows {
			phrases = append(phrases, r.Text)
		}
		return phrases, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var phrases []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			phrases = append(phrases, line)
		}
	}
	return phrases, scanner.Err()
}

func runScrape(cmd *cobra.Command, args []string) error {
	phrases := args
	if scrapeFlags.file != "" {
		fromFile, err := readPhrases(scrapeFlags.file)
		if err != nil {
			return fmt.Errorf("failed to read phrases: %w", err)
		}
		phrases = append(phrases, fromFile...)
	}
	if len(phrases) == 0 {
		return fmt.Errorf("no phrases given")
	}

	output := scrapeFlags.output
	if output == "" {
		output = filepath.Join(cfg.DataPaths.DataRoot, "translations.json")
	}

	opts := scraping.DefaultBrowserOptions()
	opts.Headless = !scrapeFlags.headful
	opts.ScreenshotDir = scrapeFlags.screenshots

	fmt.Println("🌐 TRANSLATOR SCRAPING")
	fmt.Println("=====================")
	fmt.Printf("🔄 Translating %d phrases...\n", len(phrases))

	translator, err := scraping.NewBrowserTranslator(opts)
	if err != nil {
		return err
	}
	defer translator.Close()

	stats, err := scraping.TranslateAll(cmd.Context(), translator, ratelimit.NewServiceRateLimiter(), phrases, output)
	if stats != nil {
		fmt.Printf("✅ %d saved, ❌ %d failed of %d attempted\n", stats.Saved, stats.Failed, stats.Attempted)
		fmt.Printf("📁 %s\n", output)
	}
	return err
}
