package questions

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Caia-Tech/darija-corpus/internal/llm"
	"github.com/Caia-Tech/darija-corpus/pkg/logging"
)

// Kind classifies a generated line
type Kind string

const (
	KindQuestion    Kind = "Question"
	KindAffirmation Kind = "Affirmation"
)

const systemPrompt = "Vous êtes un expert en tourisme au Maroc."

var prompts = map[string]string{
	"fr": `Génère %d questions ou affirmations différentes qu'un touriste français pourrait poser/dire au Maroc.
Les questions/affirmations doivent :
1. Être naturelles et à l'oral
2. Couvrir divers aspects (culture, transport, nourriture, logement, prix, directions, etc.)
3. Être variées dans leur formulation
4. Inclure des expressions courantes
5. Être courtes et directes

Format : Renvoie uniquement une liste de questions/affirmations, une par ligne.
`,
	"en": `Generate %d different questions or statements that an English-speaking tourist might ask/say in Morocco.
The questions/statements should:
1. Be natural and conversational
2. Cover various aspects (culture, transportation, food, accommodation, prices, directions, etc.)
3. Vary in their formulation
4. Include common expressions
5. Be short and direct

Format: Return only a list of questions/statements, one per line.
`,
}

// Languages lists the languages a prompt exists for
func Languages() []string {
	return []string{"fr", "en"}
}

var interrogatives = []string{
	"comment", "pourquoi", "quand", "où", "qui", "quel", "quelle", "quels", "quelles",
	"combien", "est-ce", "what", "why", "when", "where", "who", "which", "how", "can", "could",
}

// listMarker matches "1.", "12)", "- ", "* " and "• " prefixes
var listMarker = regexp.MustCompile(`^\s*(?:\d+\s*[.)]|[-*•])\s*`)

// Generator asks a chat model for tourist questions and statements
type Generator struct {
	completer llm.Completer
	batchSize int
}

// NewGenerator creates a generator. batchSize defaults to 20.
func NewGenerator(completer llm.Completer, batchSize int) *Generator {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Generator{completer: completer, batchSize: batchSize}
}

// Generate returns up to count lines in lang. Failed batches are logged and skipped.
func (g *Generator) Generate(ctx context.Context, lang string, count int) ([]string, error) {
	prompt, ok := prompts[lang]
	if !ok {
		return nil, fmt.Errorf("unsupported language %q", lang)
	}

	logger := logging.GetPipelineLogger("questions", "generate")
	batches := (count + g.batchSize - 1) / g.batchSize
	lines := make([]string, 0, count)

	for b := 0; b < batches; b++ {
		if err := ctx.Err(); err != nil {
			return lines, err
		}

		want := min(g.batchSize, count-len(lines))
		if want <= 0 {
			break
		}
		out, err := g.completer.Complete(ctx, llm.Request{
			System:      systemPrompt,
			User:        fmt.Sprintf(prompt, want),
			MaxTokens:   2000,
			Temperature: 0.8,
		})
		if err != nil {
			logger.Warn().Err(err).Int("batch", b+1).Int("batches", batches).Msg("Batch generation failed")
			continue
		}

		batch := SplitLines(out)
		lines = append(lines, batch...)
		logger.Info().Int("batch", b+1).Int("batches", batches).Int("lines", len(batch)).Msg("Batch generated")
	}

	if len(lines) > count {
		lines = lines[:count]
	}
	return lines, nil
}

// SplitLines splits a model answer into trimmed, non-empty lines without list markers
func SplitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// DetermineType uses punctuation and interrogative words
func DetermineType(text string) Kind {
	if strings.Contains(text, "?") {
		return KindQuestion
	}
	lower := strings.ToLower(text)
	for _, w := range interrogatives {
		if strings.HasPrefix(lower, w) || strings.Contains(lower, " "+w+" ") {
			return KindQuestion
		}
	}
	return KindAffirmation
}
