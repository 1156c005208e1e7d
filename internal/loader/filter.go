package loader

import (
	"context"
	"sort"

	"github.com/Caia-Tech/darija-corpus/pkg/logging"
	"github.com/Caia-Tech/darija-corpus/pkg/translation"
)

// FilterDirections keeps rows whose direction is in keep. An empty keep list
// selects the four known directions.
func FilterDirections(rows []translation.RawRow, keep []string) []translation.RawRow {
	allowed := make(map[string]bool)
	if len(keep) == 0 {
		for _, d := range translation.Directions() {
			allowed[string(d)] = true
		}
	}
	for _, d := range keep {
		allowed[d] = true
	}

	out := make([]translation.RawRow, 0, len(rows))
	for _, row := range rows {
		if allowed[row.Direction] {
			out = append(out, row)
		}
	}
	return out
}

// DirectionCount is one entry of a direction distribution
type DirectionCount struct {
	Direction string `json:"direction"`
	Count     int    `json:"count"`
}

// CountDirections returns the direction distribution, most frequent first
func CountDirections(rows []translation.RawRow) []DirectionCount {
	counts := make(map[string]int)
	for _, row := range rows {
		counts[row.Direction]++
	}

	out := make([]DirectionCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, DirectionCount{Direction: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Direction < out[j].Direction
	})
	return out
}

// Load reads the source, keeps the selected directions and logs the distribution
func Load(ctx context.Context, source Source, keep []string) ([]translation.RawRow, error) {
	rows, err := source.Rows(ctx)
	if err != nil {
		return nil, err
	}

	filtered := FilterDirections(rows, keep)
	logger := logging.GetLogger("loader")
	logger.Info().
		Int("rows", len(rows)).
		Int("kept", len(filtered)).
		Msg("Rows loaded")
	for _, dc := range CountDirections(filtered) {
		logger.Info().Str("direction", dc.Direction).Int("count", dc.Count).Msg("Direction distribution")
	}
	return filtered, nil
}
