package storage

import (
	"context"
	"errors"

	"github.com/Caia-Tech/darija-corpus/pkg/translation"
)

// ErrNotFound is returned when a translation id does not exist
var ErrNotFound = errors.New("translation not found")

// TranslationStore is the read side served by the API
type TranslationStore interface {
	List(ctx context.Context, filter ListFilter) ([]translation.Enriched, error)
	Get(ctx context.Context, id string) (*translation.Enriched, error)
	Tags(ctx context.Context) ([]TagCount, error)
	Stats(ctx context.Context) (*CorpusStats, error)
	Health(ctx context.Context) error
}

// ListFilter narrows a translation listing. Zero values mean no constraint.
type ListFilter struct {
	SourceLang string
	TargetLang string
	Tag        string
	Limit      uint64
	Offset     uint64
}

// TagCount is a tag and the number of translations carrying it
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// LangPairCount counts translations per language pair
type LangPairCount struct {
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	Count      int    `json:"count"`
}

// CorpusStats summarizes the database content
type CorpusStats struct {
	Translations int             `json:"translations"`
	Tags         int             `json:"tags"`
	ByLangPair   []LangPairCount `json:"by_lang_pair"`
}

// StorageMetrics provides telemetry for storage operations
type StorageMetrics struct {
	OperationType string
	Duration      int64 // nanoseconds
	Success       bool
	Backend       string
	Error         error
}

// MetricsCollector receives storage operation metrics
type MetricsCollector interface {
	RecordMetric(metric StorageMetrics)
}
