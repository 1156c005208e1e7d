package loader

import (
	"context"

	"github.com/Caia-Tech/darija-corpus/internal/export"
	"github.com/Caia-Tech/darija-corpus/pkg/translation"
)

// CSVSource reads a CSV mirror written by export.WriteRowsCSV
type CSVSource struct {
	Path string
}

// Rows reads the whole mirror
func (s *CSVSource) Rows(ctx context.Context) ([]translation.RawRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return export.ReadRowsCSV(s.Path)
}
