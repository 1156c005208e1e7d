package pipeline

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Caia-Tech/darija-corpus/pkg/logging"
	"github.com/joho/godotenv"
)

// ErrMissingConfig is returned when required environment values are absent
var ErrMissingConfig = errors.New("missing required configuration")

// CorpusConfig holds complete pipeline configuration
type CorpusConfig struct {
	Logging     *logging.LogConfig `json:"logging"`
	Azure       *AzureConfig       `json:"azure"`
	OpenAI      *OpenAIConfig      `json:"openai"`
	HuggingFace *HuggingFaceConfig `json:"huggingface"`
	Database    *DatabaseConfig    `json:"database"`
	Processing  *ProcessingConfig  `json:"processing"`
	Server      *ServerConfig      `json:"server"`
	DataPaths   *DataPathsConfig   `json:"data_paths"`
}

// AzureConfig holds blob storage credentials
type AzureConfig struct {
	AccountName      string `json:"account_name"`
	AccountKey       string `json:"-"`
	ConnectionString string `json:"-"`
	Container        string `json:"container"`
	ParquetPrefix    string `json:"parquet_prefix"`
}

// OpenAIConfig holds chat-completion settings
type OpenAIConfig struct {
	APIKey      string        `json:"-"`
	BaseURL     string        `json:"base_url,omitempty"`
	Model       string        `json:"model"`
	MinInterval time.Duration `json:"min_interval"`
}

// HuggingFaceConfig holds hub access settings
type HuggingFaceConfig struct {
	Token     string   `json:"-"`
	DatasetID string   `json:"dataset_id"`
	BaseURL   string   `json:"base_url"`
	Files     []string `json:"files"`
}

// DatabaseConfig selects the relational sink
type DatabaseConfig struct {
	Driver string `json:"driver"` // pgx or sqlite
	URL    string `json:"-"`
}

// ProcessingConfig holds cleaning and enrichment settings
type ProcessingConfig struct {
	Directions        []string `json:"directions"`
	PatternFile       string   `json:"pattern_file,omitempty"`
	MinTextLength     int      `json:"min_text_length"`
	MinLengthRatio    float64  `json:"min_length_ratio"`
	CheckpointEvery   int      `json:"checkpoint_every"`
	MigrateBatchSize  int      `json:"migrate_batch_size"`
	QuestionsPerLang  int      `json:"questions_per_lang"`
	QuestionBatchSize int      `json:"question_batch_size"`
}

// ServerConfig holds read API settings
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	CORSOrigins  string        `json:"cors_origins"`
}

// DataPathsConfig holds all data directory paths
type DataPathsConfig struct {
	DataRoot    string `json:"data_root"`
	OutputDir   string `json:"output_dir"`
	CSVDir      string `json:"csv_dir"`
	ParquetDir  string `json:"parquet_dir"`
	StatsDir    string `json:"stats_dir"`
	LogDir      string `json:"log_dir"`
	SnapshotDir string `json:"snapshot_dir"`
}

// DefaultCorpusConfig returns a complete default configuration
func DefaultCorpusConfig() *CorpusConfig {
	return &CorpusConfig{
		Logging: logging.DefaultLogConfig(),

		Azure: &AzureConfig{
			ParquetPrefix: "data/",
		},

		OpenAI: &OpenAIConfig{
			Model:       "gpt-4o-mini",
			MinInterval: 1 * time.Second,
		},

		HuggingFace: &HuggingFaceConfig{
			DatasetID: "MBZUAI-Paris/Darija-SFT-Mixture",
			BaseURL:   "https://huggingface.co",
			Files: []string{
				"data/train-00000-of-00002.parquet",
				"data/train-00001-of-00002.parquet",
			},
		},

		Database: &DatabaseConfig{
			Driver: "sqlite",
			URL:    "data/translations.db",
		},

		Processing: &ProcessingConfig{
			Directions:        []string{"dr_fr", "fr_dr", "en_dr", "dr_en"},
			MinTextLength:     2,
			MinLengthRatio:    0.3,
			CheckpointEvery:   50,
			MigrateBatchSize:  100,
			QuestionsPerLang:  300,
			QuestionBatchSize: 20,
		},

		Server: &ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			CORSOrigins:  "*",
		},

		DataPaths: &DataPathsConfig{
			DataRoot:    "./data",
			OutputDir:   "./data/agregation",
			CSVDir:      "./data/csv_files",
			ParquetDir:  "./data/parquet_files",
			StatsDir:    "./data/dataset_statistics",
			LogDir:      "./data/execution_logs",
			SnapshotDir: "./data/dataset-repo",
		},
	}
}

// ProductionCorpusConfig returns production-ready configuration
func ProductionCorpusConfig() *CorpusConfig {
	config := DefaultCorpusConfig()

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.Console = false

	config.Database.Driver = "pgx"
	config.Database.URL = ""

	return config
}

// DevelopmentCorpusConfig returns development configuration
func DevelopmentCorpusConfig() *CorpusConfig {
	config := DefaultCorpusConfig()

	config.Logging.Level = "debug"
	config.Logging.Format = "pretty"
	config.Logging.Console = true

	config.OpenAI.MinInterval = 0

	return config
}

// LoadEnv loads .env files into the process environment. Missing files are skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment variables onto the configuration
func ApplyEnv(config *CorpusConfig) {
	setString(&config.Azure.AccountName, "AZURE_STORAGE_ACCOUNT_NAME")
	setString(&config.Azure.AccountKey, "AZURE_STORAGE_ACCOUNT_KEY")
	setString(&config.Azure.ConnectionString, "AZURE_STORAGE_CONNECTION_STRING")
	setString(&config.Azure.Container, "AZURE_CONTAINER_NAME")

	setString(&config.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&config.OpenAI.Model, "OPENAI_MODEL")
	setString(&config.OpenAI.BaseURL, "OPENAI_BASE_URL")

	setString(&config.HuggingFace.Token, "HUGGINGFACE_TOKEN")

	setString(&config.Logging.Level, "LOG_LEVEL")
	setString(&config.Processing.PatternFile, "DARIJA_PATTERN_FILE")

	if url := os.Getenv("DATABASE_URL"); url != "" {
		config.Database.URL = url
		config.Database.Driver = driverForURL(url)
	} else if host := os.Getenv("POSTGRES_HOST"); host != "" {
		config.Database.Driver = "pgx"
		config.Database.URL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
			os.Getenv("POSTGRES_USER"),
			os.Getenv("POSTGRES_PASSWORD"),
			host,
			getEnv("POSTGRES_PORT", "5432"),
			os.Getenv("POSTGRES_DB"),
		)
	}

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
}

// RequireAzure checks blob storage credentials
func RequireAzure(config *CorpusConfig) error {
	if config.Azure.ConnectionString != "" && config.Azure.Container != "" {
		return nil
	}
	return requireVars(map[string]string{
		"AZURE_STORAGE_ACCOUNT_NAME": config.Azure.AccountName,
		"AZURE_STORAGE_ACCOUNT_KEY":  config.Azure.AccountKey,
		"AZURE_CONTAINER_NAME":       config.Azure.Container,
	})
}

// RequireOpenAI checks the API key
func RequireOpenAI(config *CorpusConfig) error {
	return requireVars(map[string]string{"OPENAI_API_KEY": config.OpenAI.APIKey})
}

// RequireDatabase checks the database URL
func RequireDatabase(config *CorpusConfig) error {
	return requireVars(map[string]string{"DATABASE_URL": config.Database.URL})
}

// SetupDirectories creates every data directory
func SetupDirectories(config *CorpusConfig) error {
	dirs := []string{
		config.DataPaths.DataRoot,
		config.DataPaths.OutputDir,
		config.DataPaths.CSVDir,
		config.DataPaths.ParquetDir,
		config.DataPaths.StatsDir,
		config.DataPaths.LogDir,
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func requireVars(vars map[string]string) error {
	var missing []string
	for name, value := range vars {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
}

func driverForURL(url string) string {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return "pgx"
	}
	return "sqlite"
}

func setString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

// getEnv retrieves an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
