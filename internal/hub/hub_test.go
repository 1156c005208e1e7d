package hub

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Caia-Tech/darija-corpus/internal/loader"
	"github.com/Caia-Tech/darija-corpus/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const datasetID = "MBZUAI-Paris/Darija-SFT-Mixture"

func text(s string) *string { return &s }

func fixtureParquet(t *testing.T) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.parquet")
	require.NoError(t, loader.WriteParquet(path, []loader.ParquetRow{
		{
			Dataset: "darija-translation",
			ID:      "r1",
			Messages: []loader.ParquetMessage{
				{Role: "user", Content: text("Translate from French to Darija: Bonjour")},
				{Role: "assistant", Content: text("سلام")},
			},
			Direction: "fr_dr",
		},
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func newHubServer(t *testing.T, parquetData []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/datasets/"+datasetID, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "MBZUAI-Paris/Darija-SFT-Mixture",
			"author": "MBZUAI-Paris",
			"lastModified": "2024-09-20T10:00:00.000Z",
			"downloads": 1234,
			"likes": 56,
			"cardData": {"license": "odc-by", "task_categories": ["text-generation"], "size_categories": ["100K<n<1M"]}
		}`)
	})
	mux.HandleFunc("/api/datasets/"+datasetID+"/parquet", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"default": {"train": ["https://hf.co/a.parquet", "https://hf.co/b.parquet"]}}`)
	})
	mux.HandleFunc("/datasets/"+datasetID+"/resolve/main/data/train-00000-of-00001.parquet", func(w http.ResponseWriter, r *http.Request) {
		w.Write(parquetData)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func hubConfig(url string) *pipeline.HuggingFaceConfig {
	return &pipeline.HuggingFaceConfig{
		Token:     "hf_test",
		DatasetID: datasetID,
		BaseURL:   url,
		Files:     []string{"data/train-00000-of-00001.parquet"},
	}
}

func TestStatsModule(t *testing.T) {
	srv := newHubServer(t, nil)
	dir := t.TempDir()

	module := &StatsModule{Client: NewStatsClient(hubConfig(srv.URL), nil), Dir: dir}
	require.NoError(t, module.Run(context.Background()))

	report, err := os.ReadFile(filepath.Join(dir, ReportFileName))
	require.NoError(t, err)
	assert.Contains(t, string(report), "# Dataset MBZUAI-Paris/Darija-SFT-Mixture")
	assert.Contains(t, string(report), "- 1234 téléchargements")
	assert.Contains(t, string(report), "## Fichiers (2)")
	assert.Contains(t, string(report), "- **Licence :** odc-by")

	raw, err := os.ReadFile(filepath.Join(dir, StatsFileName))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"téléchargements": 1234`)
}

func TestGetDatasetInfoError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewStatsClient(hubConfig(srv.URL), nil).GetDatasetInfo(context.Background())
	assert.Error(t, err)
}

func TestFlattenFileList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, flattenFileList([]byte(`["a", "b"]`)))
	assert.Equal(t, []string{"x", "y", "z"}, flattenFileList([]byte(`{"b": {"test": ["z"]}, "a": {"train": ["x", "y"]}}`)))
	assert.Equal(t, []string{}, flattenFileList([]byte(`"oops"`)))
}

func TestPrepareStatsEmpty(t *testing.T) {
	stats := PrepareStats(&DatasetInfo{ID: "x"})
	assert.Equal(t, 0, stats.Content.Files.Count)
	assert.NotNil(t, stats.Content.Tasks)
	assert.Contains(t, CreateReport(stats), "## Fichiers (0)")
}

func TestDownloaderConvertsToCSV(t *testing.T) {
	srv := newHubServer(t, fixtureParquet(t))
	parquetDir, csvDir := t.TempDir(), t.TempDir()

	d := NewDownloader(hubConfig(srv.URL), parquetDir, csvDir, nil)
	require.NoError(t, d.Run(context.Background()))

	csvPath := filepath.Join(csvDir, "train-00000-of-00001.csv")
	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"dataset", "id", "messages", "direction"}, records[0])
	assert.Equal(t, "fr_dr", records[1][3])
	assert.Contains(t, records[1][2], "سلام")

	assert.NoFileExists(t, filepath.Join(parquetDir, "data", "train-00000-of-00001.parquet"))
}

func TestDownloaderMissingFile(t *testing.T) {
	srv := newHubServer(t, nil)
	config := hubConfig(srv.URL)
	config.Files = []string{"data/absent.parquet"}

	err := NewDownloader(config, t.TempDir(), t.TempDir(), nil).Run(context.Background())
	assert.Error(t, err)
}

type memoryStore struct {
	uploaded map[string][]byte
}

func (m *memoryStore) List(ctx context.Context, prefix string) ([]string, error) { return nil, nil }

func (m *memoryStore) Download(ctx context.Context, name string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (m *memoryStore) Upload(ctx context.Context, name string, r io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	if m.uploaded == nil {
		m.uploaded = map[string][]byte{}
	}
	m.uploaded[name] = buf.Bytes()
	return nil
}

func TestUploader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.parquet"), []byte("B"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.parquet"), []byte("A"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644))

	store := &memoryStore{}
	names, err := NewUploader(store, dir, "data", "").Upload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"data/a.parquet", "data/b.parquet"}, names)
	assert.Equal(t, []byte("A"), store.uploaded["data/a.parquet"])

	_, err = NewUploader(store, t.TempDir(), "data", "").Upload(context.Background())
	assert.Error(t, err)
}

type stepModule struct {
	name string
	err  error
	ran  *[]string
}

func (s stepModule) Name() string { return s.name }

func (s stepModule) Run(ctx context.Context) error {
	*s.ran = append(*s.ran, s.name)
	return s.err
}

func TestPipelineStopsOnFailure(t *testing.T) {
	var ran []string
	p := NewPipeline(
		stepModule{name: "statistiques", ran: &ran},
		stepModule{name: "téléchargement", err: errors.New("network down"), ran: &ran},
		stepModule{name: "upload", ran: &ran},
	)

	timings, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "téléchargement")
	assert.Equal(t, []string{"statistiques", "téléchargement"}, ran)
	require.Len(t, timings, 2)
	assert.NoError(t, timings[0].Err)
	assert.Error(t, timings[1].Err)
}
