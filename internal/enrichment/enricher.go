package enrichment

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Caia-Tech/darija-corpus/internal/export"
	"github.com/Caia-Tech/darija-corpus/pkg/logging"
	"github.com/Caia-Tech/darija-corpus/pkg/translation"
	"github.com/rs/zerolog"
)

// RunStats summarizes an enrichment run
type RunStats struct {
	TotalPairs       int           `json:"total_pairs"`
	ResumedAfter     int           `json:"resumed_after"`
	Processed        int           `json:"processed"`
	Skipped          int           `json:"skipped"`
	AnnotationErrors int           `json:"annotation_errors"`
	Entries          int           `json:"entries"`
	Duration         time.Duration `json:"duration"`
}

// Enricher annotates pairs and writes each with its inverse to a resumable output file
type Enricher struct {
	annotator       Annotator
	outputPath      string
	checkpointEvery int
	logger          zerolog.Logger
}

// NewEnricher creates an enricher writing to outputPath
func NewEnricher(annotator Annotator, outputPath string, checkpointEvery int) *Enricher {
	if checkpointEvery <= 0 {
		checkpointEvery = 50
	}
	return &Enricher{
		annotator:       annotator,
		outputPath:      outputPath,
		checkpointEvery: checkpointEvery,
		logger:          logging.GetPipelineLogger("enrich", "annotate"),
	}
}

// LastProcessedIndex returns the highest numeric id suffix among entries, or 0
func LastProcessedIndex(entries []translation.Enriched) int {
	last := 0
	for _, e := range entries {
		idx := strings.LastIndexByte(e.ID, '_')
		if idx < 0 {
			continue
		}
		n, err := strconv.Atoi(e.ID[idx+1:])
		if err != nil {
			continue
		}
		if n > last {
			last = n
		}
	}
	return last
}

// Run enriches pairs (1-based) after the last index already present in the output
func (e *Enricher) Run(ctx context.Context, pairs []translation.Pair) (*RunStats, error) {
	start := time.Now()
	stats := &RunStats{TotalPairs: len(pairs)}

	results, err := LoadResults(e.outputPath)
	if err != nil {
		e.logger.Warn().Err(err).Str("path", e.outputPath).Msg("Existing results unreadable, starting over")
		results = nil
	}
	if results == nil {
		results = make([]translation.Enriched, 0, len(pairs)*2)
	}

	stats.ResumedAfter = LastProcessedIndex(results)
	e.logger.Info().
		Int("existing_entries", len(results)).
		Int("resume_after", stats.ResumedAfter).
		Int("total_pairs", len(pairs)).
		Msg("Enrichment started")

	for i := stats.ResumedAfter + 1; i <= len(pairs); i++ {
		if err := ctx.Err(); err != nil {
			stats.Entries = len(results)
			if saveErr := e.save(results); saveErr != nil {
				return stats, saveErr
			}
			return stats, err
		}

		pair := pairs[i-1]
		if pair.SourceText == "" || pair.TargetText == "" {
			stats.Skipped++
			e.logger.Debug().Int("pair", i).Msg("Pair skipped: empty source or target")
			continue
		}

		ann, err := e.annotator.Annotate(ctx, pair.SourceText, pair.TargetText)
		if err != nil {
			stats.AnnotationErrors++
			e.logger.Warn().Err(err).Int("pair", i).Msg("Annotation failed, keeping empty tags")
		}
		if ann.Tags == nil {
			ann.Tags = []string{}
		}

		results = append(results,
			translation.Enriched{
				ID:         fmt.Sprintf("pair_%d", i),
				SourceLang: pair.SourceLang,
				TargetLang: pair.TargetLang,
				SourceText: pair.SourceText,
				TargetText: pair.TargetText,
				Tags:       ann.Tags,
				Context:    ann.Context,
			},
			translation.Enriched{
				ID:         fmt.Sprintf("pair_inverse_%d", i),
				SourceLang: pair.TargetLang,
				TargetLang: pair.SourceLang,
				SourceText: pair.TargetText,
				TargetText: pair.SourceText,
				Tags:       ann.Tags,
				Context:    ann.Context,
			},
		)
		stats.Processed++

		if i%e.checkpointEvery == 0 {
			if err := e.save(results); err != nil {
				e.logger.Warn().Err(err).Int("pair", i).Msg("Checkpoint save failed")
			} else {
				e.logger.Info().Int("pair", i).Msg("Checkpoint saved")
			}
		}
	}

	stats.Entries = len(results)
	stats.Duration = time.Since(start)
	if err := e.save(results); err != nil {
		return stats, err
	}

	e.logger.Info().
		Int("processed", stats.Processed).
		Int("skipped", stats.Skipped).
		Int("annotation_errors", stats.AnnotationErrors).
		Int("entries", stats.Entries).
		Dur("duration", stats.Duration).
		Msg("Enrichment completed")
	return stats, nil
}

func (e *Enricher) save(results []translation.Enriched) error {
	if err := export.WriteJSON(e.outputPath, results); err != nil {
		return fmt.Errorf("failed to save enrichment results: %w", err)
	}
	return nil
}
