package cleaning

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/Caia-Tech/darija-corpus/pkg/translation"
)

// Extraction is one (source, target) pair captured from a conversation
type Extraction struct {
	// Direction of the pattern that matched, which may differ from the row label
	Direction translation.Direction
	Source    string
	Target    string
	Offset    int
}

// Diagnostics explains why a conversation produced no match
type Diagnostics struct {
	MissingContent bool `json:"missing_content"`
	MissingKeyword bool `json:"missing_translation_keyword"`
	MissingNewline bool `json:"missing_newline"`
}

// ParseResult is the outcome of parsing one serialized conversation
type ParseResult struct {
	Extractions []Extraction
	Diagnostics Diagnostics
}

// Matched reports whether any pattern produced a pair
func (r *ParseResult) Matched() bool {
	return len(r.Extractions) > 0
}

// Parser extracts translation pairs from serialized conversations
type Parser struct {
	table      *compiledTable
	normalizer *TextNormalizer
	telemetry  *Telemetry
}

// NewParser compiles a pattern table. A nil table selects the defaults.
func NewParser(table *PatternTable) (*Parser, error) {
	if table == nil {
		table = DefaultPatternTable()
	}
	ct, err := table.compile()
	if err != nil {
		return nil, err
	}
	return &Parser{
		table:      ct,
		normalizer: NewTextNormalizer(ct.markup),
		telemetry:  NewTelemetry(),
	}, nil
}

// Telemetry exposes the parser's match counters
func (p *Parser) Telemetry() *Telemetry {
	return p.telemetry
}

// Normalizer exposes the text rule chain so callers can toggle rules
func (p *Parser) Normalizer() *TextNormalizer {
	return p.normalizer
}

// Parse runs every direction pattern over blob. Inline instructions count
// for the labeled direction.
func (p *Parser) Parse(blob string, labeled translation.Direction) *ParseResult {
	result := &ParseResult{}

	for _, cp := range p.table.patterns {
		result.Extractions = append(result.Extractions, p.extract(cp.re, blob, cp.direction)...)
	}
	if p.table.inline != nil && labeled.Valid() {
		result.Extractions = append(result.Extractions, p.extract(p.table.inline, blob, labeled)...)
	}

	if len(result.Extractions) == 0 {
		result.Diagnostics = p.diagnose(blob)
		p.telemetry.RecordUnmatched()
		return result
	}

	// Different patterns may not claim the same instruction twice.
	sort.SliceStable(result.Extractions, func(i, j int) bool {
		return result.Extractions[i].Offset < result.Extractions[j].Offset
	})
	deduped := result.Extractions[:0]
	lastOffset := -1
	for _, ex := range result.Extractions {
		if ex.Offset == lastOffset {
			continue
		}
		lastOffset = ex.Offset
		deduped = append(deduped, ex)
	}
	result.Extractions = deduped

	p.telemetry.RecordMatched()
	for _, ex := range result.Extractions {
		p.telemetry.RecordDirection(ex.Direction)
	}

	return result
}

func (p *Parser) extract(re *regexp.Regexp, blob string, direction translation.Direction) []Extraction {
	src, tgt := re.SubexpIndex("source"), re.SubexpIndex("target")
	var out []Extraction
	for _, loc := range re.FindAllStringSubmatchIndex(blob, -1) {
		if loc[2*src] < 0 || loc[2*tgt] < 0 {
			continue
		}
		out = append(out, Extraction{
			Direction: direction,
			Source:    p.normalizer.Normalize(unescapeJSON(blob[loc[2*src]:loc[2*src+1]])),
			Target:    p.normalizer.Normalize(unescapeJSON(blob[loc[2*tgt]:loc[2*tgt+1]])),
			Offset:    loc[0],
		})
	}
	return out
}

func (p *Parser) diagnose(blob string) Diagnostics {
	return Diagnostics{
		MissingContent: !strings.Contains(blob, `"content"`),
		MissingKeyword: !p.table.keyword.MatchString(blob),
		MissingNewline: !strings.Contains(blob, `\n`) && !strings.Contains(blob, "\n"),
	}
}

// unescapeJSON decodes the body of a JSON string literal
func unescapeJSON(body string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+body+`"`), &out); err == nil {
		return out
	}
	return strings.NewReplacer(
		`\n`, "\n",
		`\r`, "\r",
		`\t`, "\t",
		`\"`, `"`,
		`\/`, "/",
		`\\`, `\`,
	).Replace(body)
}
