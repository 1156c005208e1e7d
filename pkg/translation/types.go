package translation

import (
	"errors"
	"fmt"
	"strings"
)

// Direction labels a source→target language pairing of the corpus
type Direction string

const (
	FrenchToDarija  Direction = "fr_dr"
	DarijaToFrench  Direction = "dr_fr"
	EnglishToDarija Direction = "en_dr"
	DarijaToEnglish Direction = "dr_en"
)

// Language codes used in records
const (
	LangFrench  = "fr"
	LangEnglish = "en"
	LangDarija  = "darija"
	// LangDarijaShort is the code used by the enrichment and database layers
	LangDarijaShort = "dr"
)

// ErrUnknownDirection is returned for direction labels outside the fixed table
var ErrUnknownDirection = errors.New("unknown direction")

var directionLanguages = map[Direction][2]string{
	EnglishToDarija: {LangEnglish, LangDarija},
	FrenchToDarija:  {LangFrench, LangDarija},
	DarijaToFrench:  {LangDarija, LangFrench},
	DarijaToEnglish: {LangDarija, LangEnglish},
}

// Directions returns the known directions in a stable order
func Directions() []Direction {
	return []Direction{FrenchToDarija, DarijaToFrench, EnglishToDarija, DarijaToEnglish}
}

// ParseDirection validates a raw direction label
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.TrimSpace(s))
	if _, ok := directionLanguages[d]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
	return d, nil
}

// Valid reports whether d is one of the four known directions
func (d Direction) Valid() bool {
	_, ok := directionLanguages[d]
	return ok
}

// Languages returns the (source, target) language pair of the direction
func (d Direction) Languages() (source, target string) {
	pair, ok := directionLanguages[d]
	if !ok {
		return "", ""
	}
	return pair[0], pair[1]
}

// TargetsDarija reports whether translations in this direction are written in Darija
func (d Direction) TargetsDarija() bool {
	_, target := d.Languages()
	return target == LangDarija
}

func (d Direction) String() string {
	return string(d)
}

// NormalizeLang maps long language names onto the short codes used downstream
func NormalizeLang(lang string) string {
	l := strings.ToLower(strings.TrimSpace(lang))
	switch l {
	case LangDarija, LangDarijaShort:
		return LangDarijaShort
	case "french", "français", "francais":
		return LangFrench
	case "english", "anglais":
		return LangEnglish
	}
	return l
}

// Message is a single conversational turn of a source conversation.
// A nil Content marks a turn whose content column was null.
type Message struct {
	Role    string  `json:"role"`
	Content *string `json:"content,omitempty"`
}

// RawRow is one flattened row of the columnar source table
type RawRow struct {
	Dataset      string `json:"dataset"`
	ID           string `json:"id"`
	MessagesJSON string `json:"messages_json"`
	Direction    string `json:"direction"`
}

// Record is a normalized translation pair extracted from a conversation
type Record struct {
	SourceLang    string    `json:"source_lang"`
	TargetLang    string    `json:"target_lang"`
	SourceText    string    `json:"source_text"`
	TargetText    string    `json:"target_text"`
	Direction     Direction `json:"direction"`
	QualityChecks []string  `json:"quality_checks"`
	Turn          int       `json:"turn"`
	TotalTurns    int       `json:"total_turns"`
	Dataset       string    `json:"dataset,omitempty"`
	SourceID      string    `json:"source_id,omitempty"`
}

// Validate checks the record invariants
func (r *Record) Validate() error {
	if strings.TrimSpace(r.SourceText) == "" {
		return fmt.Errorf("record source text cannot be empty")
	}
	if strings.TrimSpace(r.TargetText) == "" {
		return fmt.Errorf("record target text cannot be empty")
	}
	if r.Turn < 1 || r.Turn > r.TotalTurns {
		return fmt.Errorf("record turn %d out of range 1..%d", r.Turn, r.TotalTurns)
	}
	return nil
}

// HasQualityIssues reports whether any quality check flagged the record
func (r *Record) HasQualityIssues() bool {
	return len(r.QualityChecks) > 0
}

// Structured is the flattened external schema shared by the cleaner, the scraper and enrichment
type Structured struct {
	SourceLang string `json:"source_lang"`
	Source     string `json:"source"`
	TargetLang string `json:"target_lang"`
	Target     string `json:"target"`
}

// StructuredFile is the on-disk envelope for structured translations
type StructuredFile struct {
	Translations []Structured `json:"translations"`
}

// Enriched is a translation pair annotated with tags and a usage context
type Enriched struct {
	ID         string   `json:"id"`
	SourceLang string   `json:"source_lang"`
	TargetLang string   `json:"target_lang"`
	SourceText string   `json:"source_text"`
	TargetText string   `json:"target_text"`
	Tags       []string `json:"tags"`
	Context    string   `json:"context"`
}

// Pair is a direction-agnostic translation pair used as enrichment input
type Pair struct {
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	SourceText string `json:"source_text"`
	TargetText string `json:"target_text"`
}
