package scraping

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Caia-Tech/darija-corpus/internal/export"
	"github.com/Caia-Tech/darija-corpus/pkg/ratelimit"
	"github.com/Caia-Tech/darija-corpus/pkg/translation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const renderedPage = `<html><body>
<div>
  <div>header</div>
  <div>
    <div>menu</div>
    <div>input</div>
    <div>toggle</div>
    <div>
      <p> كيداير اليوم؟ </p>
      <p>kidayr lyoum?</p>
    </div>
  </div>
</div>
</body></html>`

func TestParseResultHTML(t *testing.T) {
	res, err := ParseResultHTML(renderedPage)
	require.NoError(t, err)
	assert.Equal(t, "كيداير اليوم؟", res.Arabic)
	assert.Equal(t, "kidayr lyoum?", res.Latin)
	assert.Equal(t, res.Arabic, res.Target())
}

func TestParseResultHTMLEmpty(t *testing.T) {
	_, err := ParseResultHTML("<html><body><div><div></div></div></body></html>")
	assert.ErrorIs(t, err, ErrNoTranslation)
}

func TestResultTargetFallsBackToLatin(t *testing.T) {
	assert.Equal(t, "labas", Result{Latin: "labas"}.Target())
}

func TestAppendTranslation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "translations.json")

	require.NoError(t, AppendTranslation(path, "Comment ça va aujourd'hui ?", Result{Latin: "kidayr lyoum?", Arabic: "كيداير اليوم؟"}))
	require.NoError(t, AppendTranslation(path, "Merci", Result{Latin: "choukran"}))

	var file translation.StructuredFile
	require.NoError(t, export.ReadJSON(path, &file))
	require.Len(t, file.Translations, 2)
	assert.Equal(t, translation.Structured{
		SourceLang: "fr", Source: "Comment ça va aujourd'hui ?", TargetLang: "darija", Target: "كيداير اليوم؟",
	}, file.Translations[0])
	assert.Equal(t, "choukran", file.Translations[1].Target)
}

func TestAppendTranslationRecoversCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "translations.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"translations": [`), 0644))

	require.NoError(t, AppendTranslation(path, "Salut", Result{Arabic: "سلام"}))

	var file translation.StructuredFile
	require.NoError(t, export.ReadJSON(path, &file))
	require.Len(t, file.Translations, 1)
	assert.Equal(t, "سلام", file.Translations[0].Target)
}

type mapTranslator map[string]Result

func (m mapTranslator) Translate(ctx context.Context, phrase string) (Result, error) {
	if res, ok := m[phrase]; ok {
		return res, nil
	}
	return Result{}, errors.New("timeout waiting for result")
}

func TestTranslateAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "translations.json")
	limiter := ratelimit.NewServiceRateLimiter()
	limiter.SetInterval(ratelimit.ServiceTranslator, 0)

	translator := mapTranslator{
		"Bonjour": {Arabic: "صباح الخير"},
		"Merci":   {Latin: "choukran"},
	}

	stats, err := TranslateAll(context.Background(), translator, limiter, []string{"Bonjour", "Inconnu", "Merci"}, path)
	require.NoError(t, err)
	assert.Equal(t, &BatchStats{Attempted: 3, Saved: 2, Failed: 1}, stats)

	var file translation.StructuredFile
	require.NoError(t, export.ReadJSON(path, &file))
	assert.Len(t, file.Translations, 2)

	svc := limiter.GetStats()[ratelimit.ServiceTranslator]
	assert.EqualValues(t, 3, svc.RequestCount)
	assert.Zero(t, svc.ErrorCount)
}
