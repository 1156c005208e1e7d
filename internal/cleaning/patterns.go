package cleaning

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/Caia-Tech/darija-corpus/pkg/translation"
	"gopkg.in/yaml.v3"
)

// Fragments of the serialized-conversation grammar. Captures are JSON string bodies,
// so escaped quotes never terminate a capture. Instruction phrasings may carry their
// own groups; extraction goes through the named source and target groups.
const (
	sourceCapture          = `(?P<source>(?:[^"\\]|\\.)+)`
	targetCapture          = `(?P<target>(?:[^"\\]|\\.)*)`
	contentOpen            = `"content"\s*:\s*"(?:\s|\\[nrt]|<[^<>"\\]{1,20}>|\[/?INST\])*`
	instructionSeparator   = `\s*[.!]?\s*(?::|\\n)(?:\s|\\[nrt]|:)*`
	inlineSeparator        = `(?:\s|\\[nrt])*`
	turnBridge             = `"[^{}]*\}\s*,\s*\{[^{}]*?"content"\s*:\s*"`
)

// PatternSpec is the configuration form of one direction's instruction phrasings
type PatternSpec struct {
	Direction    string   `yaml:"direction"`
	Instructions []string `yaml:"instructions"`
}

// PatternTable is the configuration driving the message parser
type PatternTable struct {
	Patterns           []PatternSpec `yaml:"patterns"`
	InlineInstructions []string      `yaml:"inline_instructions"`
	MarkupTokens       []string      `yaml:"markup_tokens"`
	TranslationKeyword string        `yaml:"translation_keyword"`
}

type languageWords struct {
	english string
	french  string
	arabic  string
}

var patternLanguages = map[string]languageWords{
	translation.LangFrench: {
		english: `french`,
		french:  `(?:l'|d')?fran[cç]ais`,
		arabic:  `(?:ال)?فرنسي(?:ة)?`,
	},
	translation.LangEnglish: {
		english: `english`,
		french:  `(?:l'|d')?anglais`,
		arabic:  `(?:ال)?[إا]نجليزي(?:ة)?`,
	},
	translation.LangDarija: {
		english: `(?:moroccan\s+)?(?:darija|arabic)|moroccan`,
		french:  `darija|arabe\s+marocain|marocain`,
		arabic:  `(?:ال|ل)?دارج(?:ة)?`,
	},
}

// DefaultPatternTable builds the built-in table: four directions, each accepting
// English, French and Arabic instruction phrasings.
func DefaultPatternTable() *PatternTable {
	table := &PatternTable{
		InlineInstructions: []string{`ترجم\s*:`},
		MarkupTokens: []string{
			"<s>", "</s>", "[INST]", "[/INST]", "<<SYS>>", "<</SYS>>",
			"<|im_start|>", "<|im_end|>", "<|endoftext|>", "<|user|>", "<|assistant|>",
			"<start_of_turn>", "<end_of_turn>", "<bos>", "<eos>",
		},
		TranslationKeyword: `(?i)translat|tradu|ترجم`,
	}

	for _, d := range translation.Directions() {
		srcLang, tgtLang := d.Languages()
		src, tgt := patternLanguages[srcLang], patternLanguages[tgtLang]

		table.Patterns = append(table.Patterns, PatternSpec{
			Direction: string(d),
			Instructions: []string{
				`translat[^\s"\\]*\s+(?:[^\s"\\]+\s+){0,4}?from\s+(?:the\s+)?(?:` + src.english + `)\s+(?:in)?to\s+(?:the\s+)?(?:` + tgt.english + `)`,
				`translat[^\s"\\]*\s+(?:[^\s"\\]+\s+){0,3}?(?:` + src.english + `)\s+(?:[^\s"\\]+\s+){0,2}?(?:in)?to\s+(?:the\s+)?(?:` + tgt.english + `)`,
				`tradu[^\s"\\]*\s+(?:[^\s"\\]+\s+){0,4}?(?:` + src.french + `)\s+(?:en|vers)\s+(?:l[ae]\s+|l')?(?:` + tgt.french + `)`,
				`ترجم[^\s"\\]*\s+(?:[^\s"\\]+\s+){0,3}?(?:من\s+)?(?:` + src.arabic + `)\s+(?:(?:إلى|الى)\s+)?(?:` + tgt.arabic + `)`,
			},
		})
	}

	return table
}

// LoadPatternTable reads a YAML pattern table. Sections left empty fall back to the defaults.
func LoadPatternTable(path string) (*PatternTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern table: %w", err)
	}

	var table PatternTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse pattern table: %w", err)
	}

	defaults := DefaultPatternTable()
	if len(table.Patterns) == 0 {
		table.Patterns = defaults.Patterns
	}
	if table.InlineInstructions == nil {
		table.InlineInstructions = defaults.InlineInstructions
	}
	if table.MarkupTokens == nil {
		table.MarkupTokens = defaults.MarkupTokens
	}
	if table.TranslationKeyword == "" {
		table.TranslationKeyword = defaults.TranslationKeyword
	}

	if _, err := table.compile(); err != nil {
		return nil, err
	}
	return &table, nil
}

// compiledPattern is one direction's ready-to-run expression
type compiledPattern struct {
	direction translation.Direction
	re        *regexp.Regexp
}

type compiledTable struct {
	patterns []compiledPattern
	inline   *regexp.Regexp
	keyword  *regexp.Regexp
	markup   *strings.Replacer
}

func (t *PatternTable) compile() (*compiledTable, error) {
	ct := &compiledTable{}

	for _, spec := range t.Patterns {
		d, err := translation.ParseDirection(spec.Direction)
		if err != nil {
			return nil, fmt.Errorf("pattern table: %w", err)
		}
		if len(spec.Instructions) == 0 {
			return nil, fmt.Errorf("pattern table: direction %s has no instructions", d)
		}

		expr := contentOpen + `(?i:` + strings.Join(spec.Instructions, "|") + `)` +
			instructionSeparator + sourceCapture + turnBridge + targetCapture + `"`
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("pattern table: direction %s: %w", d, err)
		}
		ct.patterns = append(ct.patterns, compiledPattern{direction: d, re: re})
	}

	if len(t.InlineInstructions) > 0 {
		expr := contentOpen + `(?:` + strings.Join(t.InlineInstructions, "|") + `)` +
			inlineSeparator + sourceCapture + turnBridge + targetCapture + `"`
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("pattern table: inline instructions: %w", err)
		}
		ct.inline = re
	}

	keyword := t.TranslationKeyword
	if keyword == "" {
		keyword = `(?i)translat|tradu|ترجم`
	}
	re, err := regexp.Compile(keyword)
	if err != nil {
		return nil, fmt.Errorf("pattern table: translation keyword: %w", err)
	}
	ct.keyword = re

	pairs := make([]string, 0, len(t.MarkupTokens)*2)
	for _, tok := range t.MarkupTokens {
		if tok != "" {
			pairs = append(pairs, tok, "")
		}
	}
	ct.markup = strings.NewReplacer(pairs...)

	return ct, nil
}
