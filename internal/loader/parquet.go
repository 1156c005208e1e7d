package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Caia-Tech/darija-corpus/pkg/logging"
	"github.com/Caia-Tech/darija-corpus/pkg/translation"
	"github.com/parquet-go/parquet-go"
)

// Source yields the flattened rows of the conversation table
type Source interface {
	Rows(ctx context.Context) ([]translation.RawRow, error)
}

// ParquetMessage is one element of the messages list column
type ParquetMessage struct {
	Content *string `parquet:"content,optional"`
	Role    string `parquet:"role,optional"`
}

// ParquetRow mirrors the columns of the source parquet files
type ParquetRow struct {
	Dataset   string           `parquet:"dataset,optional"`
	ID        string           `parquet:"id,optional"`
	Messages  []ParquetMessage `parquet:"messages,list"`
	Direction string           `parquet:"direction,optional"`
}

const readBatchSize = 512

// ReadParquet decodes every row of a parquet file into flattened rows
func ReadParquet(r io.ReaderAt, size int64) (rows []translation.RawRow, err error) {
	file, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	// schema conversion panics on incompatible column types
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("incompatible parquet schema: %v", p)
		}
	}()

	reader := parquet.NewGenericReader[ParquetRow](file)
	defer reader.Close()

	rows = make([]translation.RawRow, 0, reader.NumRows())
	batch := make([]ParquetRow, readBatchSize)
	for {
		n, err := reader.Read(batch)
		for _, pr := range batch[:n] {
			row, convErr := flatten(pr)
			if convErr != nil {
				return rows, convErr
			}
			rows = append(rows, row)
		}
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
}

func flatten(pr ParquetRow) (translation.RawRow, error) {
	msgs := make([]translation.Message, 0, len(pr.Messages))
	for _, m := range pr.Messages {
		msgs = append(msgs, translation.Message{Role: m.Role, Content: m.Content})
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(msgs); err != nil {
		return translation.RawRow{}, fmt.Errorf("failed to serialize messages of row %s: %w", pr.ID, err)
	}

	return translation.RawRow{
		Dataset:      pr.Dataset,
		ID:           pr.ID,
		MessagesJSON: strings.TrimRight(buf.String(), "\n"),
		Direction:    pr.Direction,
	}, nil
}

// ParquetSource reads local parquet files. Directories contribute every *.parquet inside.
type ParquetSource struct {
	Paths []string
}

// NewParquetSource creates a source over files or directories
func NewParquetSource(paths ...string) *ParquetSource {
	return &ParquetSource{Paths: paths}
}

// Files resolves the configured paths into a sorted file list
func (s *ParquetSource) Files() ([]string, error) {
	var files []string
	for _, p := range s.Paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*.parquet"))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// Rows reads every file in order
func (s *ParquetSource) Rows(ctx context.Context) ([]translation.RawRow, error) {
	files, err := s.Files()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve parquet files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no parquet files found in %s", strings.Join(s.Paths, ", "))
	}

	logger := logging.GetLogger("loader")
	var rows []translation.RawRow
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		fileRows, err := readParquetFile(f)
		if err != nil {
			return rows, err
		}
		logger.Info().Str("file", f).Int("rows", len(fileRows)).Msg("Parquet file loaded")
		rows = append(rows, fileRows...)
	}
	return rows, nil
}

func readParquetFile(path string) ([]translation.RawRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	rows, err := ReadParquet(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// WriteParquet writes rows in the source schema. Used to build fixtures and to
// persist filtered tables.
func WriteParquet(path string, rows []ParquetRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return parquet.WriteFile(path, rows)
}
