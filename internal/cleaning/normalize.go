package cleaning

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// TextRule is a single normalization step applied to extracted texts
type TextRule interface {
	Name() string
	Description() string
	Apply(text string) string
}

// TextNormalizer applies its enabled rules in order
type TextNormalizer struct {
	rules        []TextRule
	enabledRules map[string]bool
}

// NewTextNormalizer creates a normalizer with the default rule chain
func NewTextNormalizer(markup *strings.Replacer) *TextNormalizer {
	tn := &TextNormalizer{
		rules:        make([]TextRule, 0),
		enabledRules: make(map[string]bool),
	}

	tn.AddRule(&MarkupTokenRule{replacer: markup})
	tn.AddRule(&EncodingNormalizationRule{})
	tn.AddRule(&UnicodeCompositionRule{})
	tn.AddRule(&WhitespaceNormalizationRule{})
	tn.AddRule(&WrappingQuoteRule{})

	return tn
}

// AddRule appends a rule and enables it
func (tn *TextNormalizer) AddRule(rule TextRule) {
	tn.rules = append(tn.rules, rule)
	tn.enabledRules[rule.Name()] = true
}

// EnableRule enables a specific rule by name
func (tn *TextNormalizer) EnableRule(name string) {
	tn.enabledRules[name] = true
}

// DisableRule disables a specific rule by name
func (tn *TextNormalizer) DisableRule(name string) {
	tn.enabledRules[name] = false
}

// Normalize runs every enabled rule over text
func (tn *TextNormalizer) Normalize(text string) string {
	for _, rule := range tn.rules {
		if !tn.enabledRules[rule.Name()] {
			continue
		}
		text = rule.Apply(text)
	}
	return text
}

// GetEnabledRules returns the names of the enabled rules in application order
func (tn *TextNormalizer) GetEnabledRules() []string {
	enabled := make([]string, 0, len(tn.rules))
	for _, rule := range tn.rules {
		if tn.enabledRules[rule.Name()] {
			enabled = append(enabled, rule.Name())
		}
	}
	return enabled
}

var chatTemplateToken = regexp.MustCompile(`<\|[A-Za-z_]+\|>`)

// MarkupTokenRule strips chat-template markup left in the conversations
type MarkupTokenRule struct {
	replacer *strings.Replacer
}

func (r *MarkupTokenRule) Name() string {
	return "markup_token_removal"
}

func (r *MarkupTokenRule) Description() string {
	return "Removes model chat-template tokens such as <s>, [INST] and <|im_end|>"
}

func (r *MarkupTokenRule) Apply(text string) string {
	if r.replacer != nil {
		text = r.replacer.Replace(text)
	}
	return chatTemplateToken.ReplaceAllString(text, "")
}

// EncodingNormalizationRule removes invisible and broken-encoding characters
type EncodingNormalizationRule struct{}

func (r *EncodingNormalizationRule) Name() string {
	return "encoding_normalization"
}

func (r *EncodingNormalizationRule) Description() string {
	return "Removes BOMs, zero-width spaces and control characters, fixes common mojibake"
}

func (r *EncodingNormalizationRule) Apply(text string) string {
	text = strings.ReplaceAll(text, "\u00e2\u20ac\u2122", "'")
	text = strings.ReplaceAll(text, "\u00c2\u00a0", " ")
	text = strings.ReplaceAll(text, "\ufeff", "")
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = strings.ReplaceAll(text, "\u200b", "")

	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return -1
		}
		return r
	}, text)
}

// UnicodeCompositionRule normalizes to NFC so Arabic and accented Latin compare byte-equal
type UnicodeCompositionRule struct{}

func (r *UnicodeCompositionRule) Name() string {
	return "unicode_nfc"
}

func (r *UnicodeCompositionRule) Description() string {
	return "Normalizes text to Unicode canonical composition (NFC)"
}

func (r *UnicodeCompositionRule) Apply(text string) string {
	return norm.NFC.String(text)
}

// WhitespaceNormalizationRule collapses whitespace runs and trims
type WhitespaceNormalizationRule struct{}

func (r *WhitespaceNormalizationRule) Name() string {
	return "whitespace_normalization"
}

func (r *WhitespaceNormalizationRule) Description() string {
	return "Collapses runs of whitespace into single spaces and trims the ends"
}

func (r *WhitespaceNormalizationRule) Apply(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

var wrappingQuotes = [][2]string{
	{`"`, `"`},
	{"«", "»"},
	{"“", "”"},
	{"'", "'"},
}

// WrappingQuoteRule removes one pair of quotes enclosing the whole text
type WrappingQuoteRule struct{}

func (r *WrappingQuoteRule) Name() string {
	return "wrapping_quote_removal"
}

func (r *WrappingQuoteRule) Description() string {
	return "Removes a single pair of quotation marks enclosing the entire text"
}

func (r *WrappingQuoteRule) Apply(text string) string {
	for _, q := range wrappingQuotes {
		if len(text) > len(q[0])+len(q[1]) && strings.HasPrefix(text, q[0]) && strings.HasSuffix(text, q[1]) {
			inner := text[len(q[0]) : len(text)-len(q[1])]
			if strings.Contains(inner, q[0]) || strings.Contains(inner, q[1]) {
				return text
			}
			return strings.TrimSpace(inner)
		}
	}
	return text
}
