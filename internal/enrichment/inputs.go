package enrichment

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Caia-Tech/darija-corpus/internal/export"
	"github.com/Caia-Tech/darija-corpus/pkg/translation"
)

type processedGroup struct {
	Direction string `json:"direction"`
	Pairs     []struct {
		Text        string `json:"texte_cible"`
		Translation string `json:"traduction"`
	} `json:"pairs"`
}

// LoadProcessedPairs reads the direction-grouped file
// [{"direction": "fr_dr", "pairs": [{"texte_cible": ..., "traduction": ...}]}].
// A missing file yields no pairs.
func LoadProcessedPairs(path string) ([]translation.Pair, error) {
	var groups []processedGroup
	if err := export.ReadJSON(path, &groups); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var pairs []translation.Pair
	for _, g := range groups {
		sourceLang, targetLang := "unknown", "unknown"
		if src, tgt, ok := strings.Cut(g.Direction, "_"); ok {
			sourceLang, targetLang = src, tgt
		}
		for _, p := range g.Pairs {
			if p.Text == "" && p.Translation == "" {
				continue
			}
			pairs = append(pairs, translation.Pair{
				SourceLang: sourceLang,
				TargetLang: targetLang,
				SourceText: p.Text,
				TargetText: p.Translation,
			})
		}
	}
	return pairs, nil
}

// LoadStructuredPairs reads a {"translations": [...]} file in the external schema.
// Darija is normalized to "dr". A missing file yields no pairs.
func LoadStructuredPairs(path string) ([]translation.Pair, error) {
	var file translation.StructuredFile
	if err := export.ReadJSON(path, &file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var pairs []translation.Pair
	for _, t := range file.Translations {
		if t.Source == "" && t.Target == "" {
			continue
		}
		pairs = append(pairs, translation.Pair{
			SourceLang: translation.NormalizeLang(t.SourceLang),
			TargetLang: translation.NormalizeLang(t.TargetLang),
			SourceText: t.Source,
			TargetText: t.Target,
		})
	}
	return pairs, nil
}

// LoadResults reads a previous enrichment output. A missing file yields no entries.
func LoadResults(path string) ([]translation.Enriched, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var results []translation.Enriched
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return results, nil
}
