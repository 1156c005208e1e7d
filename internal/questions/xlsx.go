package questions

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet the questions are written to
const SheetName = "Questions"

// Header of the exported sheet
var Header = []string{"id", "Questions ou Affirmations", "langue"}

// FileName returns the conventional output name for lang
func FileName(lang string) string {
	switch lang {
	case "fr":
		return "questions_fr_maroc.xlsx"
	case "en":
		return "questions_en_morocco.xlsx"
	}
	return fmt.Sprintf("questions_%s.xlsx", lang)
}

// Row is one exported line
type Row struct {
	ID   int
	Text string
	Lang string
	Kind Kind
}

// BuildRows numbers lines from 1 and classifies them
func BuildRows(lines []string, lang string) []Row {
	rows := make([]Row, len(lines))
	for i, line := range lines {
		rows[i] = Row{ID: i + 1, Text: line, Lang: lang, Kind: DetermineType(line)}
	}
	return rows
}

// SaveXLSX writes rows to path with a bold grey header, fixed widths and an auto-filter
func SaveXLSX(path string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &[]interface{}{Header[0], Header[1], Header[2]}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &[]interface{}{r.ID, r.Text, r.Lang}); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r.ID, err)
		}
	}

	widths := map[string]float64{"A": 10, "B": 60, "C": 15}
	for col, w := range widths {
		if err := f.SetColWidth(SheetName, col, col, w); err != nil {
			return err
		}
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", "C1", style); err != nil {
		return err
	}

	if err := f.AutoFilter(SheetName, fmt.Sprintf("A1:C%d", len(rows)+1), nil); err != nil {
		return fmt.Errorf("failed to set auto filter: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// ReadXLSX reads rows back from a sheet written by SaveXLSX
func ReadXLSX(path string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cells, err := f.GetRows(SheetName)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for i, c := range cells {
		if i == 0 || len(c) < 3 {
			continue
		}
		var id int
		if _, err := fmt.Sscanf(c[0], "%d", &id); err != nil {
			return nil, fmt.Errorf("row %d: bad id %q", i+1, c[0])
		}
		rows = append(rows, Row{ID: id, Text: c[1], Lang: c[2], Kind: DetermineType(c[1])})
	}
	return rows, nil
}
