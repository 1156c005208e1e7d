package scraping

import (
	"context"
	"fmt"

	"github.com/Caia-Tech/darija-corpus/internal/export"
	"github.com/Caia-Tech/darija-corpus/pkg/logging"
	"github.com/Caia-Tech/darija-corpus/pkg/ratelimit"
	"github.com/Caia-Tech/darija-corpus/pkg/translation"
)

// AppendTranslation adds a fr→darija entry to a {"translations": [...]} file.
// A missing or unreadable file is replaced by a fresh one.
func AppendTranslation(path, phrase string, res Result) error {
	var file translation.StructuredFile
	if err := export.ReadJSON(path, &file); err != nil {
		logger := logging.GetLogger("scrape")
		logger.Debug().Err(err).Str("path", path).Msg("Starting a new translations file")
		file = translation.StructuredFile{}
	}
	if file.Translations == nil {
		file.Translations = []translation.Structured{}
	}

	file.Translations = append(file.Translations, translation.Structured{
		SourceLang: string(translation.LangFrench),
		Source:     phrase,
		TargetLang: string(translation.LangDarija),
		Target:     res.Target(),
	})

	if err := export.WriteJSON(path, file); err != nil {
		return fmt.Errorf("failed to save translation: %w", err)
	}
	return nil
}

// BatchStats counts a scrape run
type BatchStats struct {
	Attempted int `json:"attempted"`
	Saved     int `json:"saved"`
	Failed    int `json:"failed"`
}

// TranslateAll translates phrases one at a time, pacing requests through the limiter,
// and appends every success to path. A failed phrase is logged and skipped.
func TranslateAll(ctx context.Context, t Translator, limiter *ratelimit.ServiceRateLimiter, phrases []string, path string) (*BatchStats, error) {
	logger := logging.GetPipelineLogger("scrape", "batch")
	stats := &BatchStats{}

	for _, phrase := range phrases {
		if limiter != nil {
			if err := limiter.Wait(ctx, ratelimit.ServiceTranslator); err != nil {
				return stats, err
			}
		}
		stats.Attempted++

		res, err := t.Translate(ctx, phrase)
		if err != nil {
			stats.Failed++
			if limiter != nil {
				limiter.RecordError(ratelimit.ServiceTranslator, err)
			}
			logger.Warn().Err(err).Str("phrase", phrase).Msg("Translation failed")
			continue
		}
		if limiter != nil {
			limiter.RecordSuccess(ratelimit.ServiceTranslator)
		}

		if err := AppendTranslation(path, phrase, res); err != nil {
			return stats, err
		}
		stats.Saved++
	}

	logger.Info().Int("attempted", stats.Attempted).Int("saved", stats.Saved).Int("failed", stats.Failed).Msg("Scrape completed")
	return stats, nil
}
