package cleaning

import (
	"context"
	"fmt"
	"time"

	"github.com/Caia-Tech/darija-corpus/pkg/logging"
	"github.com/Caia-Tech/darija-corpus/pkg/translation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Invalid entry reasons
const (
	ReasonInvalidFormat    = "Invalid message format"
	ReasonUnknownDirection = "Unknown direction value"
	ReasonMissingContent   = "Missing 'content'"
	ReasonEmptyText        = "Empty source or target text"
)

// InvalidEntry records a structurally unusable row or turn pair
type InvalidEntry struct {
	Index     int         `json:"index"`
	Dataset   string      `json:"dataset,omitempty"`
	ID        string      `json:"id,omitempty"`
	Direction string      `json:"direction,omitempty"`
	Reason    string      `json:"reason"`
	Messages  interface{} `json:"messages"`
}

// UnmatchedEntry records a conversation no pattern matched, with diagnostics
type UnmatchedEntry struct {
	Index     int    `json:"index"`
	Dataset   string `json:"dataset,omitempty"`
	ID        string `json:"id,omitempty"`
	Direction string `json:"direction"`
	Diagnostics
	Messages string `json:"messages"`
}

// Result is the outcome of a cleaning run
type Result struct {
	RunID            string               `json:"run_id"`
	Valid            []translation.Record `json:"valid"`
	Invalid          []InvalidEntry       `json:"invalid"`
	Unmatched        []UnmatchedEntry     `json:"unmatched"`
	QualityIssues    []translation.Record `json:"quality_issues"`
	ProcessingErrors int                  `json:"processing_errors"`
	Stats            ConversationStats    `json:"stats"`
	Telemetry        TelemetrySnapshot    `json:"telemetry"`
	ProcessingTime   time.Duration        `json:"processing_time"`
}

// Cleaner turns raw conversation rows into translation records
type Cleaner struct {
	parser *Parser
	filter *QualityFilter
	logger zerolog.Logger
}

// CleanerConfig configures a Cleaner
type CleanerConfig struct {
	Patterns       *PatternTable
	MinTextLength  int
	MinLengthRatio float64
}

// DefaultCleanerConfig returns the built-in patterns and thresholds
func DefaultCleanerConfig() *CleanerConfig {
	return &CleanerConfig{
		Patterns:       DefaultPatternTable(),
		MinTextLength:  2,
		MinLengthRatio: 0.3,
	}
}

// NewCleaner creates a cleaner. A nil config selects the defaults.
func NewCleaner(config *CleanerConfig) (*Cleaner, error) {
	if config == nil {
		config = DefaultCleanerConfig()
	}
	parser, err := NewParser(config.Patterns)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}
	return &Cleaner{
		parser: parser,
		filter: NewQualityFilter(config.MinTextLength, config.MinLengthRatio),
		logger: logging.GetPipelineLogger("clean", "extract"),
	}, nil
}

// Parser returns the underlying parser
func (c *Cleaner) Parser() *Parser {
	return c.parser
}

// Filter returns the quality filter so callers can toggle checks
func (c *Cleaner) Filter() *QualityFilter {
	return c.filter
}

// Clean processes every row. It stops early only when ctx is cancelled,
// returning the partial result alongside the context error.
func (c *Cleaner) Clean(ctx context.Context, rows []translation.RawRow) (*Result, error) {
	start := time.Now()
	result := &Result{
		RunID:         uuid.New().String(),
		Valid:         make([]translation.Record, 0),
		Invalid:       make([]InvalidEntry, 0),
		Unmatched:     make([]UnmatchedEntry, 0),
		QualityIssues: make([]translation.Record, 0),
	}

	logger := c.logger.With().Str("run_id", result.RunID).Logger()
	logger.Info().Int("rows", len(rows)).Msg("Cleaning started")

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			c.finish(result, start, logger)
			return result, err
		}
		if err := c.cleanRowSafely(i, row, result); err != nil {
			result.ProcessingErrors++
			logger.Warn().
				Err(err).
				Int("index", i).
				Str("id", row.ID).
				Msg("Row processing failed, skipping")
		}
	}

	c.finish(result, start, logger)
	return result, nil
}

func (c *Cleaner) finish(result *Result, start time.Time, logger zerolog.Logger) {
	result.Stats = ComputeStats(result.Valid)
	result.Telemetry = c.parser.Telemetry().Snapshot()
	result.ProcessingTime = time.Since(start)

	logger.Info().
		Int("valid", len(result.Valid)).
		Int("invalid", len(result.Invalid)).
		Int("unmatched", len(result.Unmatched)).
		Int("quality_issues", len(result.QualityIssues)).
		Int("processing_errors", result.ProcessingErrors).
		Dur("processing_time", result.ProcessingTime).
		Msg("Cleaning completed")
	c.parser.Telemetry().Log(logger)
}

func (c *Cleaner) cleanRowSafely(index int, row translation.RawRow, result *Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.cleanRow(index, row, result)
}

func (c *Cleaner) cleanRow(index int, row translation.RawRow, result *Result) error {
	msgs, err := parseMessages(row.MessagesJSON)
	if err != nil || len(msgs) < 2 || len(msgs)%2 != 0 {
		result.Invalid = append(result.Invalid, InvalidEntry{
			Index:     index,
			Dataset:   row.Dataset,
			ID:        row.ID,
			Direction: row.Direction,
			Reason:    ReasonInvalidFormat,
			Messages:  row.MessagesJSON,
		})
		return nil
	}

	direction, err := translation.ParseDirection(row.Direction)
	if err != nil {
		result.Invalid = append(result.Invalid, InvalidEntry{
			Index:     index,
			Dataset:   row.Dataset,
			ID:        row.ID,
			Direction: row.Direction,
			Reason:    ReasonUnknownDirection,
			Messages:  msgs,
		})
		return nil
	}

	for p := 0; p+1 < len(msgs); p += 2 {
		if msgs[p].Content == nil || msgs[p+1].Content == nil {
			result.Invalid = append(result.Invalid, InvalidEntry{
				Index:     index,
				Dataset:   row.Dataset,
				ID:        row.ID,
				Direction: row.Direction,
				Reason:    ReasonMissingContent,
				Messages:  msgs[p : p+2],
			})
		}
	}

	blob, pairs, err := canonicalConversation(msgs)
	if err != nil {
		return fmt.Errorf("failed to serialize messages: %w", err)
	}

	parsed := c.parser.Parse(blob, direction)
	if !parsed.Matched() {
		entry := UnmatchedEntry{
			Index:       index,
			Dataset:     row.Dataset,
			ID:          row.ID,
			Direction:   row.Direction,
			Diagnostics: parsed.Diagnostics,
			Messages:    blob,
		}
		result.Unmatched = append(result.Unmatched, entry)
		c.logger.Debug().
			Int("index", index).
			Str("direction", row.Direction).
			Bool("missing_content", entry.MissingContent).
			Bool("missing_keyword", entry.MissingKeyword).
			Bool("missing_newline", entry.MissingNewline).
			Msg("No pattern matched")
		return nil
	}

	sourceLang, targetLang := direction.Languages()
	total := len(msgs) / 2
	for _, ex := range parsed.Extractions {
		record := translation.Record{
			SourceLang: sourceLang,
			TargetLang: targetLang,
			SourceText: ex.Source,
			TargetText: ex.Target,
			Direction:  direction,
			Turn:       pairAt(pairs, ex.Offset),
			TotalTurns: total,
			Dataset:    row.Dataset,
			SourceID:   row.ID,
		}

		if err := record.Validate(); err != nil {
			result.Invalid = append(result.Invalid, InvalidEntry{
				Index:     index,
				Dataset:   row.Dataset,
				ID:        row.ID,
				Direction: row.Direction,
				Reason:    ReasonEmptyText,
				Messages:  record,
			})
			continue
		}

		c.filter.Annotate(&record)
		if ex.Direction != direction {
			record.QualityChecks = append(record.QualityChecks, LabelDirectionMismatch)
		}

		result.Valid = append(result.Valid, record)
		if record.HasQualityIssues() {
			result.QualityIssues = append(result.QualityIssues, record)
		}
	}

	return nil
}
