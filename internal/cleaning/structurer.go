package cleaning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Caia-Tech/darija-corpus/pkg/translation"
)

// ConversationStats summarizes turn counts across conversations
type ConversationStats struct {
	Conversations          int `json:"conversations"`
	MultiTurnConversations int `json:"multi_turn_conversations"`
	TotalTurns             int `json:"total_turns"`
	MaxTurns               int `json:"max_turns"`
}

// ComputeStats derives conversation statistics from records. Records sharing a
// dataset and source id form one conversation. Records without a source id fall
// back to their first-turn record carrying the total.
func ComputeStats(records []translation.Record) ConversationStats {
	var stats ConversationStats
	seen := make(map[string]bool)
	for _, r := range records {
		if r.SourceID != "" {
			key := r.Dataset + "/" + r.SourceID
			if seen[key] {
				continue
			}
			seen[key] = true
		} else if r.Turn != 1 {
			continue
		}
		stats.Conversations++
		stats.TotalTurns += r.TotalTurns
		if r.TotalTurns > 1 {
			stats.MultiTurnConversations++
		}
		if r.TotalTurns > stats.MaxTurns {
			stats.MaxTurns = r.TotalTurns
		}
	}
	return stats
}

// Flatten projects a record onto the external schema
func Flatten(record translation.Record) translation.Structured {
	return translation.Structured{
		SourceLang: record.SourceLang,
		Source:     record.SourceText,
		TargetLang: record.TargetLang,
		Target:     record.TargetText,
	}
}

// StructureRecords flattens every record
func StructureRecords(records []translation.Record) []translation.Structured {
	out := make([]translation.Structured, 0, len(records))
	for _, r := range records {
		out = append(out, Flatten(r))
	}
	return out
}

// looseItem accepts the three item shapes found in translation files
type looseItem struct {
	SourceLang string          `json:"source_lang"`
	TargetLang string          `json:"target_lang"`
	SourceText string          `json:"source_text"`
	TargetText string          `json:"target_text"`
	Source     string          `json:"source"`
	Target     string          `json:"target"`
	Input      json.RawMessage `json:"input"`
}

// StructureItems converts raw items into the external schema. Items already in
// that schema pass through unchanged, so the conversion is idempotent.
// Items that cannot be interpreted are skipped and counted.
func StructureItems(items []json.RawMessage) ([]translation.Structured, int) {
	out := make([]translation.Structured, 0, len(items))
	skipped := 0

	for _, raw := range items {
		var item looseItem
		if err := json.Unmarshal(raw, &item); err != nil {
			skipped++
			continue
		}

		if len(item.Input) > 0 {
			s, err := structureLegacyInput(item.Input)
			if err != nil {
				skipped++
				continue
			}
			out = append(out, s)
			continue
		}

		s := translation.Structured{
			SourceLang: item.SourceLang,
			Source:     item.Source,
			TargetLang: item.TargetLang,
			Target:     item.Target,
		}
		if item.SourceText != "" || item.TargetText != "" {
			s.Source = item.SourceText
			s.Target = item.TargetText
		}
		if s.Source == "" && s.Target == "" {
			skipped++
			continue
		}
		out = append(out, s)
	}

	return out, skipped
}

// structureLegacyInput reads an {"<lang>": text, "<lang>": text} object in key order
func structureLegacyInput(data json.RawMessage) (translation.Structured, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	if tok, err := decoder.Token(); err != nil || tok != json.Delim('{') {
		return translation.Structured{}, fmt.Errorf("legacy input is not an object")
	}

	var keys, values []string
	for decoder.More() {
		tok, err := decoder.Token()
		if err != nil {
			return translation.Structured{}, err
		}
		key, _ := tok.(string)

		var value string
		if err := decoder.Decode(&value); err != nil {
			return translation.Structured{}, fmt.Errorf("legacy input value for %q: %w", key, err)
		}
		keys = append(keys, key)
		values = append(values, value)
	}
	if _, err := decoder.Token(); err != nil && err != io.EOF {
		return translation.Structured{}, err
	}

	if len(keys) != 2 {
		return translation.Structured{}, fmt.Errorf("legacy input has %d keys, want 2", len(keys))
	}
	return translation.Structured{
		SourceLang: keys[0],
		Source:     values[0],
		TargetLang: keys[1],
		Target:     values[1],
	}, nil
}

// ReadStructuredItems decodes a {"translations": [...]} document into raw items
func ReadStructuredItems(r io.Reader) ([]json.RawMessage, error) {
	var envelope struct {
		Translations []json.RawMessage `json:"translations"`
	}
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode translations: %w", err)
	}
	return envelope.Translations, nil
}
