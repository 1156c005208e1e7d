package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Caia-Tech/darija-corpus/pkg/translation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*SQLStore, *SimpleMetricsCollector) {
	t.Helper()
	metrics := NewSimpleMetricsCollector()
	store, err := OpenSQLStore(DriverSQLite, ":memory:", metrics)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.CreateTables(context.Background()))
	return store, metrics
}

func sampleEntries() []translation.Enriched {
	return []translation.Enriched{
		{ID: "pair_1", SourceLang: "fr", TargetLang: "dr", SourceText: "Bonjour", TargetText: "سلام", Tags: []string{"salutation", "informel"}, Context: "Accueil."},
		{ID: "pair_inverse_1", SourceLang: "dr", TargetLang: "fr", SourceText: "سلام", TargetText: "Bonjour", Tags: []string{"salutation", "informel"}, Context: "Accueil."},
		{ID: "pair_2", SourceLang: "en", TargetLang: "dr", SourceText: "How much is it?", TargetText: "بشحال هادي؟", Tags: []string{"question", "commerce"}},
		{ID: "pair_3", SourceLang: "fr", TargetLang: "dr", SourceText: "Bonjour", TargetText: "سلام", Tags: []string{"salutation"}},
		{ID: "pair_1", SourceLang: "fr", TargetLang: "dr", SourceText: "Autre", TargetText: "آخر"},
	}
}

func TestMigrate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	stats, err := store.Migrate(ctx, sampleEntries(), 2)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 3, stats.Inserted)
	assert.Equal(t, 2, stats.Duplicates)
	assert.Equal(t, 6, stats.TagLinks)
	assert.Equal(t, 3, stats.Commits)

	again, err := store.Migrate(ctx, sampleEntries(), 100)
	require.NoError(t, err)
	assert.Zero(t, again.Inserted)
	assert.Equal(t, 5, again.Duplicates)
}

func TestMigrateAssignsMissingIDs(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Migrate(ctx, []translation.Enriched{{SourceLang: "fr", TargetLang: "dr", SourceText: "Merci", TargetText: "شكرا"}}, 100)
	require.NoError(t, err)

	list, err := store.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotEmpty(t, list[0].ID)
}

func TestListAndGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	_, err := store.Migrate(ctx, sampleEntries(), 100)
	require.NoError(t, err)

	all, err := store.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "pair_1", all[0].ID)
	assert.Equal(t, []string{"salutation", "informel"}, all[0].Tags)

	fr, err := store.List(ctx, ListFilter{SourceLang: "fr"})
	require.NoError(t, err)
	require.Len(t, fr, 1)

	tagged, err := store.List(ctx, ListFilter{Tag: "question"})
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, "pair_2", tagged[0].ID)

	page, err := store.List(ctx, ListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "pair_2", page[0].ID)

	got, err := store.Get(ctx, "pair_2")
	require.NoError(t, err)
	assert.Equal(t, "بشحال هادي؟", got.TargetText)
	assert.Empty(t, got.Context)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTagsAndStats(t *testing.T) {
	store, metrics := newTestStore(t)
	ctx := context.Background()
	_, err := store.Migrate(ctx, sampleEntries(), 100)
	require.NoError(t, err)

	tags, err := store.Tags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 4)
	assert.Equal(t, TagCount{Name: "informel", Count: 2}, tags[0])
	assert.Equal(t, TagCount{Name: "salutation", Count: 2}, tags[1])

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Translations)
	assert.Equal(t, 4, stats.Tags)
	assert.Len(t, stats.ByLangPair, 3)

	require.NoError(t, store.Health(ctx))

	summary := metrics.GetMetricsSummary()
	ops := summary.ByBackend[DriverSQLite]
	require.NotNil(t, ops)
	assert.Equal(t, 1, ops["migrate"].Count)
	assert.Equal(t, 100.0, ops["tags"].GetSuccessRate())
}

func TestOpenSQLStoreRejectsDriver(t *testing.T) {
	_, err := OpenSQLStore("mysql", "x", nil)
	assert.Error(t, err)
}

func TestMetricsCollector(t *testing.T) {
	c := NewSimpleMetricsCollector()
	c.RecordMetric(StorageMetrics{OperationType: "get", Backend: "git", Duration: 10, Success: true})
	c.RecordMetric(StorageMetrics{OperationType: "get", Backend: "git", Duration: 30, Success: false, Error: errors.New("boom")})

	summary := c.GetMetricsSummary()
	stats := summary.ByBackend["git"]["get"]
	assert.Equal(t, 2, summary.TotalOperations)
	assert.Equal(t, int64(10), stats.MinDuration)
	assert.Equal(t, int64(30), stats.MaxDuration)
	assert.Equal(t, int64(20), stats.AvgDuration)
	assert.Equal(t, 50.0, stats.GetSuccessRate())

	c.ClearMetrics()
	assert.Empty(t, c.GetMetrics())
}

func TestDatasetSnapshot(t *testing.T) {
	ctx := context.Background()
	outDir := t.TempDir()
	cleaned := filepath.Join(outDir, "cleaned_translations.json")
	require.NoError(t, os.WriteFile(cleaned, []byte(`{"translations": []}`), 0644))

	repo, err := OpenDatasetRepo(filepath.Join(t.TempDir(), "dataset-repo"), NewSimpleMetricsCollector())
	require.NoError(t, err)

	hash, err := repo.Snapshot(ctx, []string{cleaned}, "Clean run 1")
	require.NoError(t, err)
	assert.Len(t, hash, 40)
	require.NoError(t, repo.Health(ctx))

	_, err = repo.Snapshot(ctx, []string{cleaned}, "Clean run 2")
	assert.ErrorIs(t, err, ErrNoChanges)

	require.NoError(t, os.WriteFile(cleaned, []byte(`{"translations": [{"source": "Bonjour"}]}`), 0644))
	second, err := repo.Snapshot(ctx, []string{cleaned}, "Clean run 3")
	require.NoError(t, err)

	history, err := repo.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second, history[0].Hash)
	assert.Equal(t, "Clean run 1", history[1].Message)
}

func TestDatasetSnapshotMissingFile(t *testing.T) {
	repo, err := OpenDatasetRepo(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = repo.Snapshot(context.Background(), []string{"/nonexistent/file.json"}, "x")
	assert.Error(t, err)
}
