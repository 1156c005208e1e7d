package cleaning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Caia-Tech/darija-corpus/pkg/translation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conversation(turns ...string) string {
	msgs := make([]conversationMessage, 0, len(turns))
	for i, content := range turns {
		c := content
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		msgs = append(msgs, conversationMessage{Role: role, Content: &c})
	}
	blob, err := canonicalJSON(msgs)
	if err != nil {
		panic(err)
	}
	return blob
}

func TestParserAllDirections(t *testing.T) {
	parser, err := NewParser(nil)
	require.NoError(t, err)

	tests := []struct {
		name      string
		direction translation.Direction
		user      string
		assistant string
		source    string
		target    string
	}{
		{
			name:      "french to darija",
			direction: translation.FrenchToDarija,
			user:      "translate from French to Darija: Bonjour",
			assistant: "سلام",
			source:    "Bonjour",
			target:    "سلام",
		},
		{
			name:      "darija to french",
			direction: translation.DarijaToFrench,
			user:      "Translate from Darija to French:\nشنو سميتك؟",
			assistant: "Comment tu t'appelles ?",
			source:    "شنو سميتك؟",
			target:    "Comment tu t'appelles ?",
		},
		{
			name:      "english to darija",
			direction: translation.EnglishToDarija,
			user:      "Translate the following sentence from English to Moroccan Arabic:\nWhere is the station?",
			assistant: "فين كاينة لاڭار؟",
			source:    "Where is the station?",
			target:    "فين كاينة لاڭار؟",
		},
		{
			name:      "darija to english",
			direction: translation.DarijaToEnglish,
			user:      "Translate from Darija to English:\nبغيت نمشي",
			assistant: "I want to go",
			source:    "بغيت نمشي",
			target:    "I want to go",
		},
		{
			name:      "french phrasing",
			direction: translation.FrenchToDarija,
			user:      "Traduis du français en darija :\nMerci beaucoup",
			assistant: "شكرا بزاف",
			source:    "Merci beaucoup",
			target:    "شكرا بزاف",
		},
		{
			name:      "arabic phrasing",
			direction: translation.FrenchToDarija,
			user:      "ترجم من الفرنسية إلى الدارجة:\nBonsoir",
			assistant: "مسا الخير",
			source:    "Bonsoir",
			target:    "مسا الخير",
		},
		{
			name:      "short arabic instruction",
			direction: translation.DarijaToEnglish,
			user:      "ترجم: واش نتا مزيان؟",
			assistant: "Are you well?",
			source:    "واش نتا مزيان؟",
			target:    "Are you well?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parser.Parse(conversation(tt.user, tt.assistant), tt.direction)

			require.True(t, result.Matched())
			require.Len(t, result.Extractions, 1)
			ex := result.Extractions[0]
			assert.Equal(t, tt.direction, ex.Direction)
			assert.Equal(t, tt.source, ex.Source)
			assert.Equal(t, tt.target, ex.Target)
		})
	}
}

func TestParserMultiTurn(t *testing.T) {
	parser, err := NewParser(nil)
	require.NoError(t, err)

	blob := conversation(
		"Translate from French to Darija:\nBonjour", "سلام",
		"Translate from French to Darija:\nMerci", "شكرا",
		"Translate from French to Darija:\nAu revoir", "بسلامة",
	)
	result := parser.Parse(blob, translation.FrenchToDarija)

	require.Len(t, result.Extractions, 3)
	assert.Equal(t, "Bonjour", result.Extractions[0].Source)
	assert.Equal(t, "شكرا", result.Extractions[1].Target)
	assert.Equal(t, "Au revoir", result.Extractions[2].Source)
	assert.Less(t, result.Extractions[0].Offset, result.Extractions[1].Offset)
}

func TestParserReportsPatternDirection(t *testing.T) {
	parser, err := NewParser(nil)
	require.NoError(t, err)

	result := parser.Parse(conversation("Translate from French to Darija:\nBonjour", "سلام"), translation.DarijaToFrench)

	require.Len(t, result.Extractions, 1)
	assert.Equal(t, translation.FrenchToDarija, result.Extractions[0].Direction)
}

func TestParserStripsMarkupAndUnescapes(t *testing.T) {
	parser, err := NewParser(nil)
	require.NoError(t, err)

	blob := conversation(
		"<s>[INST] Translate from French to Darija:\nIl a dit \"salut\" [/INST]",
		"<|im_start|>قال \"سلام\"<|im_end|></s>",
	)
	result := parser.Parse(blob, translation.FrenchToDarija)

	require.Len(t, result.Extractions, 1)
	assert.Equal(t, `Il a dit "salut"`, result.Extractions[0].Source)
	assert.Equal(t, `قال "سلام"`, result.Extractions[0].Target)
}

func TestParserUnmatchedDiagnostics(t *testing.T) {
	parser, err := NewParser(nil)
	require.NoError(t, err)

	tests := []struct {
		name     string
		blob     string
		expected Diagnostics
	}{
		{
			name:     "chit chat",
			blob:     conversation("Hello there", "Hi"),
			expected: Diagnostics{MissingKeyword: true, MissingNewline: true},
		},
		{
			name:     "keyword without text",
			blob:     conversation("Can you translate something for me?", "Sure"),
			expected: Diagnostics{MissingNewline: true},
		},
		{
			name:     "no content field",
			blob:     `[{"role":"user","text":"Translate"},{"role":"assistant","text":"ok"}]`,
			expected: Diagnostics{MissingContent: true, MissingNewline: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parser.Parse(tt.blob, translation.FrenchToDarija)
			assert.False(t, result.Matched())
			assert.Equal(t, tt.expected, result.Diagnostics)
		})
	}
}

func TestParserTelemetry(t *testing.T) {
	parser, err := NewParser(nil)
	require.NoError(t, err)

	parser.Parse(conversation("Translate from French to Darija:\nBonjour", "سلام"), translation.FrenchToDarija)
	parser.Parse(conversation("Translate from English to Darija:\nHello", "سلام"), translation.EnglishToDarija)
	parser.Parse(conversation("Translate from English to Darija:\nThanks", "شكرا"), translation.EnglishToDarija)
	parser.Parse(conversation("nothing here", "rien"), translation.FrenchToDarija)

	snap := parser.Telemetry().Snapshot()
	assert.Equal(t, int64(3), snap.Matched)
	assert.Equal(t, int64(1), snap.Unmatched)
	assert.Equal(t, int64(1), snap.ByDirection["fr_dr"])
	assert.Equal(t, int64(2), snap.ByDirection["en_dr"])
	assert.Zero(t, snap.ByDirection["dr_fr"])

	parser.Telemetry().Reset()
	assert.Zero(t, parser.Telemetry().Snapshot().Matched)
}

func TestLoadPatternTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
patterns:
  - direction: fr_dr
    instructions:
      - 'darija\s+please'
inline_instructions: []
`), 0644))

	table, err := LoadPatternTable(path)
	require.NoError(t, err)
	assert.Len(t, table.Patterns, 1)
	assert.Empty(t, table.InlineInstructions)
	assert.NotEmpty(t, table.MarkupTokens)

	parser, err := NewParser(table)
	require.NoError(t, err)

	result := parser.Parse(conversation("Darija please:\nBonjour", "سلام"), translation.FrenchToDarija)
	require.Len(t, result.Extractions, 1)
	assert.Equal(t, "Bonjour", result.Extractions[0].Source)

	result = parser.Parse(conversation("ترجم: Bonjour", "سلام"), translation.FrenchToDarija)
	assert.False(t, result.Matched())
}

func TestLoadPatternTableRejectsBadEntries(t *testing.T) {
	dir := t.TempDir()

	badDirection := filepath.Join(dir, "direction.yaml")
	require.NoError(t, os.WriteFile(badDirection, []byte("patterns:\n  - direction: xx_yy\n    instructions: ['x']\n"), 0644))
	_, err := LoadPatternTable(badDirection)
	assert.ErrorIs(t, err, translation.ErrUnknownDirection)

	badRegex := filepath.Join(dir, "regex.yaml")
	require.NoError(t, os.WriteFile(badRegex, []byte("patterns:\n  - direction: fr_dr\n    instructions: ['(unclosed']\n"), 0644))
	_, err = LoadPatternTable(badRegex)
	assert.Error(t, err)

	_, err = LoadPatternTable(filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}

func TestUnescapeJSON(t *testing.T) {
	assert.Equal(t, "a\nb \"c\"", unescapeJSON(`a\nb \"c\"`))
	assert.Equal(t, "é", unescapeJSON(`é`))
	// invalid escape falls back to the replacer
	assert.Equal(t, "a\\qb\nc", unescapeJSON(`a\qb\nc`))
}

func TestParseMessages(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		count   int
		wantErr bool
	}{
		{name: "json", raw: `[{"role":"user","content":"a"},{"role":"assistant","content":"b"}]`, count: 2},
		{name: "newline separated", raw: "[{\"role\":\"user\",\"content\":\"a\"}\n {\"role\":\"assistant\",\"content\":\"b\"}]", count: 2},
		{name: "python literal", raw: "[{'content': 'Translate from French to Darija:\\nC\\'est', 'role': 'user'}\n {'content': \"سلام\", 'role': 'assistant'}]", count: 2},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "garbage", raw: "not a conversation", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := parseMessages(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMessages)
				return
			}
			require.NoError(t, err)
			assert.Len(t, msgs, tt.count)
		})
	}

	msgs, err := parseMessages("[{'content': 'Translate from French to Darija:\\nC\\'est', 'role': 'user'}\n {'content': None, 'role': 'assistant'}]")
	require.NoError(t, err)
	require.NotNil(t, msgs[0].Content)
	assert.Equal(t, "Translate from French to Darija:\nC'est", *msgs[0].Content)
	assert.Nil(t, msgs[1].Content)
}

func TestTextNormalizer(t *testing.T) {
	table, err := DefaultPatternTable().compile()
	require.NoError(t, err)
	tn := NewTextNormalizer(table.markup)

	assert.Equal(t, "Bonjour le monde", tn.Normalize("  <s>Bonjour   le\tmonde</s> "))
	assert.Equal(t, "سلام", tn.Normalize("«سلام»"))
	assert.Equal(t, "é", tn.Normalize("é"))
	assert.Equal(t, `"a" et "b"`, tn.Normalize(`"a" et "b"`))

	tn.DisableRule("wrapping_quote_removal")
	assert.Equal(t, `"salut"`, tn.Normalize(`"salut"`))
	assert.NotContains(t, tn.GetEnabledRules(), "wrapping_quote_removal")
}
