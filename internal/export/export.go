package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Caia-Tech/darija-corpus/pkg/translation"
)

// WriteJSON writes data as 4-space indented UTF-8 JSON, creating parent directories.
// HTML characters are left unescaped so Arabic and French punctuation stay readable.
func WriteJSON(path string, data interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "    ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}

// ReadJSON decodes a JSON file into v
func ReadJSON(path string, v interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// RawRowHeader is the column order of the flattened CSV mirror
var RawRowHeader = []string{"dataset", "id", "messages", "direction"}

// WriteRowsCSV mirrors the flattened source table to CSV
func WriteRowsCSV(path string, rows []translation.RawRow) error {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{row.Dataset, row.ID, row.MessagesJSON, row.Direction})
	}
	return WriteCSV(path, RawRowHeader, records)
}

// WriteCSV writes a header and records, creating parent directories
func WriteCSV(path string, header []string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if len(header) > 0 {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadRowsCSV reads a CSV mirror written by WriteRowsCSV
func ReadRowsCSV(path string) ([]translation.RawRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	index := make(map[string]int)
	for i, name := range records[0] {
		index[name] = i
	}
	get := func(rec []string, name string) string {
		if i, ok := index[name]; ok && i < len(rec) {
			return rec[i]
		}
		return ""
	}

	rows := make([]translation.RawRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, translation.RawRow{
			Dataset:      get(rec, "dataset"),
			ID:           get(rec, "id"),
			MessagesJSON: get(rec, "messages"),
			Direction:    get(rec, "direction"),
		})
	}
	return rows, nil
}
