package enrichment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Caia-Tech/darija-corpus/internal/export"
	"github.com/Caia-Tech/darija-corpus/internal/llm"
	"github.com/Caia-Tech/darija-corpus/pkg/translation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnnotator struct {
	calls  []string
	failOn string
}

func (f *fakeAnnotator) Annotate(ctx context.Context, sourceText, targetText string) (Annotation, error) {
	f.calls = append(f.calls, sourceText)
	if sourceText == f.failOn {
		return emptyAnnotation(), errors.New("rate limited")
	}
	return Annotation{Tags: []string{"salutation", "informel"}, Context: "Conversation quotidienne."}, nil
}

type fakeCompleter struct {
	answer string
	err    error
	last   llm.Request
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.last = req
	return f.answer, f.err
}

func samplePairs() []translation.Pair {
	return []translation.Pair{
		{SourceLang: "fr", TargetLang: "dr", SourceText: "Bonjour", TargetText: "سلام"},
		{SourceLang: "fr", TargetLang: "dr", SourceText: "", TargetText: "شكرا"},
		{SourceLang: "en", TargetLang: "dr", SourceText: "Thanks", TargetText: "شكرا"},
	}
}

func TestEnricherWritesPairsAndInverses(t *testing.T) {
	out := filepath.Join(t.TempDir(), "translations_with_tags.json")
	annotator := &fakeAnnotator{}

	stats, err := NewEnricher(annotator, out, 50).Run(context.Background(), samplePairs())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 4, stats.Entries)

	results, err := LoadResults(out)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "pair_1", results[0].ID)
	assert.Equal(t, "pair_inverse_1", results[1].ID)
	assert.Equal(t, "dr", results[1].SourceLang)
	assert.Equal(t, "سلام", results[1].SourceText)
	assert.Equal(t, "Bonjour", results[1].TargetText)
	assert.Equal(t, results[0].Tags, results[1].Tags)
	assert.Equal(t, results[0].Context, results[1].Context)
	assert.Equal(t, "pair_3", results[2].ID)
}

func TestEnricherResumes(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.json")
	existing := []translation.Enriched{
		{ID: "pair_1", Tags: []string{}},
		{ID: "pair_inverse_1", Tags: []string{}},
		{ID: "pair_2", Tags: []string{}},
		{ID: "pair_inverse_2", Tags: []string{}},
	}
	require.NoError(t, export.WriteJSON(out, existing))

	pairs := append(samplePairs(), translation.Pair{SourceLang: "fr", TargetLang: "dr", SourceText: "Merci", TargetText: "شكرا"})
	annotator := &fakeAnnotator{}

	stats, err := NewEnricher(annotator, out, 50).Run(context.Background(), pairs)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.ResumedAfter)
	assert.Equal(t, []string{"Thanks", "Merci"}, annotator.calls)

	results, err := LoadResults(out)
	require.NoError(t, err)
	require.Len(t, results, 8)
	assert.Equal(t, "pair_inverse_4", results[7].ID)
}

func TestEnricherKeepsPairOnAnnotationError(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.json")
	annotator := &fakeAnnotator{failOn: "Bonjour"}

	stats, err := NewEnricher(annotator, out, 1).Run(context.Background(), samplePairs())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.AnnotationErrors)

	results, err := LoadResults(out)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, []string{}, results[0].Tags)
	assert.Empty(t, results[0].Context)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tags": []`)
}

func TestEnricherCorruptOutputStartsOver(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, os.WriteFile(out, []byte("{broken"), 0644))

	stats, err := NewEnricher(&fakeAnnotator{}, out, 50).Run(context.Background(), samplePairs())
	require.NoError(t, err)
	assert.Zero(t, stats.ResumedAfter)
	assert.Equal(t, 4, stats.Entries)
}

func TestEnricherCancelledSavesProgress(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.json")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEnricher(&fakeAnnotator{}, out, 50).Run(ctx, samplePairs())
	assert.ErrorIs(t, err, context.Canceled)
	assert.FileExists(t, out)
}

func TestLastProcessedIndex(t *testing.T) {
	entries := []translation.Enriched{
		{ID: "pair_9"}, {ID: "pair_inverse_12"}, {ID: "pair_x"}, {ID: "nounderscore"},
	}
	assert.Equal(t, 12, LastProcessedIndex(entries))
	assert.Zero(t, LastProcessedIndex(nil))
}

func TestLoadInputs(t *testing.T) {
	dir := t.TempDir()

	processed := filepath.Join(dir, "traductions_processed.json")
	require.NoError(t, os.WriteFile(processed, []byte(`[
		{"direction": "fr_dr", "pairs": [
			{"texte_cible": "Que penses-tu des pommes de terre?", "traduction": "أشنو رأيك ف لبطاطا?"},
			{"texte_cible": "", "traduction": ""}
		]},
		{"direction": "weird", "pairs": [{"texte_cible": "a", "traduction": "b"}]}
	]`), 0644))

	pairs, err := LoadProcessedPairs(processed)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "fr", pairs[0].SourceLang)
	assert.Equal(t, "dr", pairs[0].TargetLang)
	assert.Equal(t, "unknown", pairs[1].SourceLang)

	scraped := filepath.Join(dir, "translations.json")
	require.NoError(t, export.WriteJSON(scraped, translation.StructuredFile{Translations: []translation.Structured{
		{SourceLang: "fr", Source: "Tu connais un bon restaurant ?", TargetLang: "darija", Target: "تعرف شي مطعم مزيان؟"},
	}}))

	pairs, err = LoadStructuredPairs(scraped)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "dr", pairs[0].TargetLang)

	pairs, err = LoadStructuredPairs(filepath.Join(dir, "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestLLMAnnotator(t *testing.T) {
	completer := &fakeCompleter{answer: "```json\n{\"tags\": [\"gastronomie\", \"question\"], \"context\": \"Au restaurant.\"}\n```"}
	annotator := NewLLMAnnotator(completer)

	ann, err := annotator.Annotate(context.Background(), "Tu as faim ?", "واش جيعان؟")
	require.NoError(t, err)
	assert.Equal(t, []string{"gastronomie", "question"}, ann.Tags)
	assert.Equal(t, "Au restaurant.", ann.Context)
	assert.Equal(t, 200, completer.last.MaxTokens)
	assert.True(t, strings.Contains(completer.last.User, `Texte cible: "واش جيعان؟"`))

	completer.answer = "Voici les tags : salutation"
	ann, err = annotator.Annotate(context.Background(), "a", "b")
	assert.ErrorIs(t, err, ErrMalformedAnnotation)
	assert.Equal(t, []string{}, ann.Tags)

	completer.err = errors.New("timeout")
	_, err = annotator.Annotate(context.Background(), "a", "b")
	assert.EqualError(t, err, "timeout")
}
