package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Caia-Tech/darija-corpus/internal/export"
	"github.com/Caia-Tech/darija-corpus/pkg/logging"
	"github.com/Caia-Tech/darija-corpus/pkg/pipeline"
	"github.com/Caia-Tech/darija-corpus/pkg/ratelimit"
	"github.com/go-resty/resty/v2"
)

// Output file names written by SaveResults
const (
	StatsFileName  = "dataset_stats.json"
	ReportFileName = "dataset_report.md"
)

// DatasetInfo is the subset of the hub dataset API response the report uses
type DatasetInfo struct {
	ID           string   `json:"id"`
	Author       string   `json:"author"`
	LastModified string   `json:"lastModified"`
	Downloads    int      `json:"downloads"`
	Likes        int      `json:"likes"`
	CardData     CardData `json:"cardData"`
	Files        []string `json:"-"`
}

// CardData holds dataset card metadata
type CardData struct {
	License        string   `json:"license"`
	TaskCategories []string `json:"task_categories"`
	SizeCategories []string `json:"size_categories"`
}

// Stats is the organized report model
type Stats struct {
	Dataset DatasetSummary `json:"dataset"`
	Content ContentSummary `json:"contenu"`
}

// DatasetSummary describes the dataset
type DatasetSummary struct {
	Name       string     `json:"nom"`
	Author     string     `json:"auteur"`
	License    string     `json:"licence"`
	UpdatedAt  string     `json:"mis_à_jour"`
	Popularity Popularity `json:"popularité"`
}

// Popularity counters
type Popularity struct {
	Downloads int `json:"téléchargements"`
	Likes     int `json:"likes"`
}

// ContentSummary describes what the dataset contains
type ContentSummary struct {
	Tasks  []string     `json:"tâches"`
	Sizes  []string     `json:"taille"`
	Format string       `json:"format"`
	Files  FilesSummary `json:"fichiers"`
}

// FilesSummary lists the parquet files
type FilesSummary struct {
	Count int      `json:"nombre"`
	List  []string `json:"liste"`
}

// StatsClient queries the hub dataset API
type StatsClient struct {
	http      *resty.Client
	datasetID string
	limiter   *ratelimit.ServiceRateLimiter
}

// NewStatsClient creates a client from configuration. A nil limiter disables pacing.
func NewStatsClient(config *pipeline.HuggingFaceConfig, limiter *ratelimit.ServiceRateLimiter) *StatsClient {
	return &StatsClient{
		http:      newHTTPClient(config),
		datasetID: config.DatasetID,
		limiter:   limiter,
	}
}

func newHTTPClient(config *pipeline.HuggingFaceConfig) *resty.Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetTimeout(60*time.Second).
		SetHeader("Accept", "application/json")
	if config.Token != "" {
		c.SetAuthToken(config.Token)
	}
	return c
}

func (c *StatsClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx, ratelimit.ServiceHuggingFace)
}

// GetDatasetInfo fetches dataset metadata and its parquet file list.
// A failing file listing leaves Files empty.
func (c *StatsClient) GetDatasetInfo(ctx context.Context) (*DatasetInfo, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var info DatasetInfo
	resp, err := c.http.R().
		SetContext(ctx).
		SetRawPathParam("id", c.datasetID).
		SetResult(&info).
		Get("/api/datasets/{id}")
	if err != nil {
		return nil, fmt.Errorf("dataset info request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("dataset info request failed: %s", resp.Status())
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	files, err := c.http.R().
		SetContext(ctx).
		SetRawPathParam("id", c.datasetID).
		Get("/api/datasets/{id}/parquet")
	info.Files = []string{}
	if err == nil && files.StatusCode() == 200 {
		info.Files = flattenFileList(files.Body())
	} else {
		logger := logging.GetLogger("hub")
		event := logger.Warn().Err(err)
		if files != nil {
			event = event.Int("status", files.StatusCode())
		}
		event.Msg("Parquet file list unavailable")
	}
	return &info, nil
}

// flattenFileList accepts either a plain list or the config → split → urls mapping
func flattenFileList(body []byte) []string {
	var list []string
	if err := json.Unmarshal(body, &list); err == nil {
		return list
	}

	var nested map[string]json.RawMessage
	if err := json.Unmarshal(body, &nested); err != nil {
		return []string{}
	}
	keys := make([]string, 0, len(nested))
	for k := range nested {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []string{}
	for _, k := range keys {
		out = append(out, flattenFileList(nested[k])...)
	}
	return out
}

// PrepareStats organizes raw dataset metadata
func PrepareStats(info *DatasetInfo) *Stats {
	files := info.Files
	if files == nil {
		files = []string{}
	}
	return &Stats{
		Dataset: DatasetSummary{
			Name:      info.ID,
			Author:    info.Author,
			License:   info.CardData.License,
			UpdatedAt: info.LastModified,
			Popularity: Popularity{
				Downloads: info.Downloads,
				Likes:     info.Likes,
			},
		},
		Content: ContentSummary{
			Tasks:  nonNil(info.CardData.TaskCategories),
			Sizes:  nonNil(info.CardData.SizeCategories),
			Format: "Parquet",
			Files:  FilesSummary{Count: len(files), List: files},
		},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// CreateReport renders stats as Markdown
func CreateReport(stats *Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Dataset %s\n\n", stats.Dataset.Name)
	b.WriteString("## À propos\n")
	fmt.Fprintf(&b, "- **Auteur :** %s\n", stats.Dataset.Author)
	fmt.Fprintf(&b, "- **Licence :** %s\n", stats.Dataset.License)
	fmt.Fprintf(&b, "- **Dernière mise à jour :** %s\n\n", stats.Dataset.UpdatedAt)
	b.WriteString("## Popularité\n")
	fmt.Fprintf(&b, "- %d téléchargements\n", stats.Dataset.Popularity.Downloads)
	fmt.Fprintf(&b, "- %d likes\n\n", stats.Dataset.Popularity.Likes)
	b.WriteString("## Contenu\n")
	fmt.Fprintf(&b, "- **Tâches :** %s\n", strings.Join(stats.Content.Tasks, ", "))
	fmt.Fprintf(&b, "- **Taille :** %s\n", strings.Join(stats.Content.Sizes, ", "))
	fmt.Fprintf(&b, "- **Format :** %s\n\n", stats.Content.Format)
	fmt.Fprintf(&b, "## Fichiers (%d)\n", stats.Content.Files.Count)
	for _, f := range stats.Content.Files.List {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	return b.String()
}

// SaveResults writes the stats JSON and the Markdown report into dir
func SaveResults(dir string, stats *Stats, report string) error {
	if err := export.WriteJSON(filepath.Join(dir, StatsFileName), stats); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, ReportFileName), []byte(report), 0644); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// StatsModule fetches, reports and saves dataset statistics
type StatsModule struct {
	Client *StatsClient
	Dir    string
}

// Name implements Module
func (m *StatsModule) Name() string { return "statistiques" }

// Run implements Module
func (m *StatsModule) Run(ctx context.Context) error {
	info, err := m.Client.GetDatasetInfo(ctx)
	if err != nil {
		return err
	}
	stats := PrepareStats(info)
	if err := SaveResults(m.Dir, stats, CreateReport(stats)); err != nil {
		return err
	}
	logger := logging.GetLogger("hub")
	logger.Info().Str("dir", m.Dir).Int("files", stats.Content.Files.Count).Msg("Dataset statistics saved")
	return nil
}
