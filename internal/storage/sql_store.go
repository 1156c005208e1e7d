package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Caia-Tech/darija-corpus/pkg/logging"
	"github.com/Caia-Tech/darija-corpus/pkg/translation"
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported database drivers
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// SQLStore persists enriched translations with their tags
type SQLStore struct {
	db      *sql.DB
	driver  string
	builder sq.StatementBuilderType
	metrics MetricsCollector
}

// OpenSQLStore opens a postgres (pgx) or sqlite database
func OpenSQLStore(driver, url string, metrics MetricsCollector) (*SQLStore, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// one connection so in-memory databases are shared
		db.SetMaxOpenConns(1)
	}
	return NewSQLStore(db, driver, metrics), nil
}

// NewSQLStore wraps an existing connection pool
func NewSQLStore(db *sql.DB, driver string, metrics MetricsCollector) *SQLStore {
	var format sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		format = sq.Dollar
	}
	return &SQLStore{
		db:      db,
		driver:  driver,
		builder: sq.StatementBuilder.PlaceholderFormat(format),
		metrics: metrics,
	}
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) schema() []string {
	tagID := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		tagID = "id SERIAL PRIMARY KEY"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS translations (
			id VARCHAR(50) PRIMARY KEY,
			source_lang VARCHAR(10) NOT NULL,
			target_lang VARCHAR(10) NOT NULL,
			source_text TEXT NOT NULL,
			target_text TEXT NOT NULL,
			context TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (source_text, target_text)
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			` + tagID + `,
			name VARCHAR(50) UNIQUE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS translation_tags (
			translation_id VARCHAR(50) NOT NULL REFERENCES translations(id),
			tag_id INTEGER NOT NULL REFERENCES tags(id),
			PRIMARY KEY (translation_id, tag_id)
		)`,
	}
}

// CreateTables creates the schema when absent
func (s *SQLStore) CreateTables(ctx context.Context) (err error) {
	defer func(start time.Time) { recordMetric(s.metrics, s.driver, "create_tables", start, err) }(time.Now())

	for _, stmt := range s.schema() {
		if _, err = s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

// MigrateStats counts a migration run
type MigrateStats struct {
	Total      int `json:"total"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	TagLinks   int `json:"tag_links"`
	Commits    int `json:"commits"`
}

// Migrate inserts entries and their tags, committing every batchSize records.
// Entries whose id or text pair already exists are counted as duplicates.
func (s *SQLStore) Migrate(ctx context.Context, entries []translation.Enriched, batchSize int) (stats *MigrateStats, err error) {
	start := time.Now()
	defer func() { recordMetric(s.metrics, s.driver, "migrate", start, err) }()

	if batchSize <= 0 {
		batchSize = 100
	}
	logger := logging.GetStorageLogger("migrate", s.driver)
	stats = &MigrateStats{Total: len(entries)}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	tagIDs := make(map[string]int64)
	for i, entry := range entries {
		inserted, err := s.insertTranslation(ctx, tx, &entry)
		if err != nil {
			return stats, err
		}
		if !inserted {
			stats.Duplicates++
		} else {
			stats.Inserted++
			for _, tag := range entry.Tags {
				id, ok := tagIDs[tag]
				if !ok {
					if id, err = s.upsertTag(ctx, tx, tag); err != nil {
						return stats, err
					}
					tagIDs[tag] = id
				}
				if err := s.linkTag(ctx, tx, entry.ID, id); err != nil {
					return stats, err
				}
				stats.TagLinks++
			}
		}

		if (i+1)%batchSize == 0 {
			if err := tx.Commit(); err != nil {
				tx = nil
				return stats, fmt.Errorf("failed to commit batch: %w", err)
			}
			stats.Commits++
			logger.Info().Int("migrated", i+1).Int("total", len(entries)).Msg("Batch committed")
			if tx, err = s.db.BeginTx(ctx, nil); err != nil {
				tx = nil
				return stats, fmt.Errorf("failed to begin transaction: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		tx = nil
		return stats, fmt.Errorf("failed to commit: %w", err)
	}
	tx = nil
	stats.Commits++

	logger.Info().
		Int("inserted", stats.Inserted).
		Int("duplicates", stats.Duplicates).
		Int("tag_links", stats.TagLinks).
		Msg("Migration completed")
	return stats, nil
}

func (s *SQLStore) insertTranslation(ctx context.Context, tx *sql.Tx, entry *translation.Enriched) (bool, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	res, err := s.builder.Insert("translations").
		Columns("id", "source_lang", "target_lang", "source_text", "target_text", "context").
		Values(entry.ID, entry.SourceLang, entry.TargetLang, entry.SourceText, entry.TargetText, entry.Context).
		Suffix("ON CONFLICT DO NOTHING").
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to insert translation %s: %w", entry.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLStore) upsertTag(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	_, err := s.builder.Insert("tags").
		Columns("name").
		Values(name).
		Suffix("ON CONFLICT (name) DO NOTHING").
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to insert tag %q: %w", name, err)
	}

	var id int64
	err = s.builder.Select("id").From("tags").Where(sq.Eq{"name": name}).
		RunWith(tx).QueryRowContext(ctx).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to read tag %q: %w", name, err)
	}
	return id, nil
}

func (s *SQLStore) linkTag(ctx context.Context, tx *sql.Tx, translationID string, tagID int64) error {
	_, err := s.builder.Insert("translation_tags").
		Columns("translation_id", "tag_id").
		Values(translationID, tagID).
		Suffix("ON CONFLICT DO NOTHING").
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to link tag: %w", err)
	}
	return nil
}

// List returns translations ordered by id, each with its tags
func (s *SQLStore) List(ctx context.Context, filter ListFilter) (result []translation.Enriched, err error) {
	defer func(start time.Time) { recordMetric(s.metrics, s.driver, "list", start, err) }(time.Now())

	query := s.builder.
		Select("t.id", "t.source_lang", "t.target_lang", "t.source_text", "t.target_text", "COALESCE(t.context, '')").
		From("translations t").
		OrderBy("t.id")
	if filter.SourceLang != "" {
		query = query.Where(sq.Eq{"t.source_lang": filter.SourceLang})
	}
	if filter.TargetLang != "" {
		query = query.Where(sq.Eq{"t.target_lang": filter.TargetLang})
	}
	if filter.Tag != "" {
		query = query.
			Join("translation_tags tt ON tt.translation_id = t.id").
			Join("tags g ON g.id = tt.tag_id").
			Where(sq.Eq{"g.name": filter.Tag})
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list translations: %w", err)
	}
	defer rows.Close()

	result = []translation.Enriched{}
	index := make(map[string]int)
	for rows.Next() {
		var e translation.Enriched
		if err := rows.Scan(&e.ID, &e.SourceLang, &e.TargetLang, &e.SourceText, &e.TargetText, &e.Context); err != nil {
			return nil, err
		}
		e.Tags = []string{}
		index[e.ID] = len(result)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return result, nil
	}
	ids := make([]string, 0, len(result))
	for _, e := range result {
		ids = append(ids, e.ID)
	}
	tags, err := s.tagsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for id, names := range tags {
		result[index[id]].Tags = names
	}
	return result, nil
}

func (s *SQLStore) tagsFor(ctx context.Context, ids []string) (map[string][]string, error) {
	rows, err := s.builder.
		Select("tt.translation_id", "g.name").
		From("translation_tags tt").
		Join("tags g ON g.id = tt.tag_id").
		Where(sq.Eq{"tt.translation_id": ids}).
		OrderBy("tt.translation_id", "g.id").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = append(out[id], name)
	}
	return out, rows.Err()
}

// Get returns one translation or ErrNotFound
func (s *SQLStore) Get(ctx context.Context, id string) (result *translation.Enriched, err error) {
	defer func(start time.Time) { recordMetric(s.metrics, s.driver, "get", start, err) }(time.Now())

	var e translation.Enriched
	err = s.builder.
		Select("id", "source_lang", "target_lang", "source_text", "target_text", "COALESCE(context, '')").
		From("translations").
		Where(sq.Eq{"id": id}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&e.ID, &e.SourceLang, &e.TargetLang, &e.SourceText, &e.TargetText, &e.Context)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get translation: %w", err)
	}

	tags, err := s.tagsFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	e.Tags = tags[id]
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return &e, nil
}

// Tags returns every tag with its usage count, most used first
func (s *SQLStore) Tags(ctx context.Context) (result []TagCount, err error) {
	defer func(start time.Time) { recordMetric(s.metrics, s.driver, "tags", start, err) }(time.Now())

	rows, err := s.builder.
		Select("g.name", "COUNT(tt.translation_id) AS n").
		From("tags g").
		LeftJoin("translation_tags tt ON tt.tag_id = g.id").
		GroupBy("g.name").
		OrderBy("n DESC", "g.name").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	result = []TagCount{}
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, err
		}
		result = append(result, tc)
	}
	return result, rows.Err()
}

// Stats counts translations, tags and language pairs
func (s *SQLStore) Stats(ctx context.Context) (result *CorpusStats, err error) {
	defer func(start time.Time) { recordMetric(s.metrics, s.driver, "stats", start, err) }(time.Now())

	stats := &CorpusStats{ByLangPair: []LangPairCount{}}
	if err := s.builder.Select("COUNT(*)").From("translations").
		RunWith(s.db).QueryRowContext(ctx).Scan(&stats.Translations); err != nil {
		return nil, fmt.Errorf("failed to count translations: %w", err)
	}
	if err := s.builder.Select("COUNT(*)").From("tags").
		RunWith(s.db).QueryRowContext(ctx).Scan(&stats.Tags); err != nil {
		return nil, fmt.Errorf("failed to count tags: %w", err)
	}

	rows, err := s.builder.
		Select("source_lang", "target_lang", "COUNT(*) AS n").
		From("translations").
		GroupBy("source_lang", "target_lang").
		OrderBy("n DESC", "source_lang", "target_lang").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count language pairs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var lp LangPairCount
		if err := rows.Scan(&lp.SourceLang, &lp.TargetLang, &lp.Count); err != nil {
			return nil, err
		}
		stats.ByLangPair = append(stats.ByLangPair, lp)
	}
	return stats, rows.Err()
}

// Health pings the database
func (s *SQLStore) Health(ctx context.Context) (err error) {
	defer func(start time.Time) { recordMetric(s.metrics, s.driver, "health", start, err) }(time.Now())
	return s.db.PingContext(ctx)
}
