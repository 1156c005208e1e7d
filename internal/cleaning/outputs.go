package cleaning

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Caia-Tech/darija-corpus/internal/export"
	"github.com/Caia-Tech/darija-corpus/pkg/translation"
)

// Output file names of a cleaning run
const (
	CleanedFile    = "cleaned_translations.json"
	InvalidFile    = "invalid_translations.json"
	StructuredFile = "structured_translations.json"
	QualityFile    = "quality_issues.json"
	UnmatchedFile  = "unmatched_details.json"
	RawCSVFile     = "csv_files/translations.csv"
	RecordsCSVFile = "csv_files/cleaned_translations.csv"
)

// OutputPaths lists the files written by WriteOutputs
type OutputPaths struct {
	Cleaned    string
	Invalid    string
	Structured string
	Quality    string
	Unmatched  string
	RawCSV     string
	RecordsCSV string
}

// All returns every path in write order
func (o OutputPaths) All() []string {
	return []string{o.Cleaned, o.Invalid, o.Structured, o.Quality, o.Unmatched, o.RawCSV, o.RecordsCSV}
}

// WriteOutputs saves a run's record sets under dir, along with a CSV mirror of
// the loaded rows.
func WriteOutputs(dir string, rows []translation.RawRow, result *Result) (OutputPaths, error) {
	paths := OutputPaths{
		Cleaned:    filepath.Join(dir, CleanedFile),
		Invalid:    filepath.Join(dir, InvalidFile),
		Structured: filepath.Join(dir, StructuredFile),
		Quality:    filepath.Join(dir, QualityFile),
		Unmatched:  filepath.Join(dir, UnmatchedFile),
		RawCSV:     filepath.Join(dir, filepath.FromSlash(RawCSVFile)),
		RecordsCSV: filepath.Join(dir, filepath.FromSlash(RecordsCSVFile)),
	}

	files := []struct {
		path string
		data interface{}
	}{
		{paths.Cleaned, map[string]interface{}{"translations": result.Valid}},
		{paths.Invalid, result.Invalid},
		{paths.Structured, translation.StructuredFile{Translations: StructureRecords(result.Valid)}},
		{paths.Quality, result.QualityIssues},
		{paths.Unmatched, result.Unmatched},
	}

	for _, f := range files {
		if err := export.WriteJSON(f.path, f.data); err != nil {
			return paths, err
		}
	}

	if err := export.WriteRowsCSV(paths.RawCSV, rows); err != nil {
		return paths, err
	}

	records := make([][]string, 0, len(result.Valid))
	for _, r := range result.Valid {
		records = append(records, []string{
			string(r.Direction), r.SourceLang, r.SourceText, r.TargetLang, r.TargetText,
			strings.Join(r.QualityChecks, "|"),
		})
	}
	header := []string{"direction", "source_lang", "source_text", "target_lang", "target_text", "quality_checks"}
	if err := export.WriteCSV(paths.RecordsCSV, header, records); err != nil {
		return paths, err
	}
	return paths, nil
}

// StructureFile converts a translations file of any accepted shape into the
// external schema and writes it to out. It returns the written and skipped counts.
func StructureFile(in, out string) (int, int, error) {
	file, err := os.Open(in)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open %s: %w", in, err)
	}
	defer file.Close()

	items, err := ReadStructuredItems(file)
	if err != nil {
		return 0, 0, err
	}

	structured, skipped := StructureItems(items)
	if err := export.WriteJSON(out, translation.StructuredFile{Translations: structured}); err != nil {
		return 0, skipped, err
	}
	return len(structured), skipped, nil
}
