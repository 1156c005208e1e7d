package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Caia-Tech/darija-corpus/internal/cleaning"
	"github.com/Caia-Tech/darija-corpus/internal/export"
	"github.com/Caia-Tech/darija-corpus/internal/questions"
	"github.com/Caia-Tech/darija-corpus/pkg/translation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPhrasesText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrases.txt")
	require.NoError(t, os.WriteFile(path, []byte("Bonjour\n\n  Merci beaucoup  \n"), 0644))

	phrases, err := readPhrases(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bonjour", "Merci beaucoup"}, phrases)
}

func TestReadPhrasesXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), questions.FileName("fr"))
	rows := questions.BuildRows([]string{"Où est la gare ?", "Je voudrais un thé."}, "fr")
	require.NoError(t, questions.SaveXLSX(path, rows))

	phrases, err := readPhrases(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Où est la gare ?", "Je voudrais un thé."}, phrases)
}

func TestRunStructure(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "cleaned.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"translations": [
		{"source_lang": "fr", "target_lang": "darija", "source_text": "Bonjour", "target_text": "سلام"}
	]}`), 0644))

	structureFlags.output = ""
	require.NoError(t, runStructure(structureCmd, []string{in}))

	var out translation.StructuredFile
	require.NoError(t, export.ReadJSON(filepath.Join(dir, "cleaned_structured.json"), &out))
	require.Len(t, out.Translations, 1)
	assert.Equal(t, translation.Structured{SourceLang: "fr", Source: "Bonjour", TargetLang: "darija", Target: "سلام"}, out.Translations[0])
}

func TestDirectionLinesFollowDirectionOrder(t *testing.T) {
	snap := cleaning.TelemetrySnapshot{ByDirection: map[string]int64{"dr_en": 4, "fr_dr": 7}}

	for i := 0; i < 5; i++ {
		assert.Equal(t, []string{
			"   fr_dr  7",
			"   dr_fr  0",
			"   en_dr  0",
			"   dr_en  4",
		}, directionLines(snap))
	}
}

func TestRootRegistersSubcommands(t *testing.T) {
	for _, path := range [][]string{
		{"clean"}, {"structure"}, {"enrich"}, {"questions"}, {"scrape"},
		{"hub", "stats"}, {"hub", "download"}, {"hub", "upload"}, {"hub", "run"},
		{"migrate"}, {"snapshot"}, {"serve"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
