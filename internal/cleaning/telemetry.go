package cleaning

import (
	"sync"

	"github.com/Caia-Tech/darija-corpus/pkg/translation"
	"github.com/rs/zerolog"
)

// Telemetry counts parser outcomes over a run
type Telemetry struct {
	matched     int64
	unmatched   int64
	byDirection map[translation.Direction]int64
	mutex       sync.RWMutex
}

// TelemetrySnapshot is a point-in-time copy of the counters
type TelemetrySnapshot struct {
	Matched     int64            `json:"matched"`
	Unmatched   int64            `json:"unmatched"`
	ByDirection map[string]int64 `json:"by_direction"`
}

// NewTelemetry creates zeroed counters
func NewTelemetry() *Telemetry {
	return &Telemetry{
		byDirection: make(map[translation.Direction]int64),
	}
}

// RecordMatched counts a conversation that produced at least one pair
func (t *Telemetry) RecordMatched() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.matched++
}

// RecordUnmatched counts a conversation no pattern matched
func (t *Telemetry) RecordUnmatched() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.unmatched++
}

// RecordDirection counts one extracted pair for the matching pattern's direction
func (t *Telemetry) RecordDirection(d translation.Direction) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.byDirection[d]++
}

// Snapshot returns a copy of the counters
func (t *Telemetry) Snapshot() TelemetrySnapshot {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	snap := TelemetrySnapshot{
		Matched:     t.matched,
		Unmatched:   t.unmatched,
		ByDirection: make(map[string]int64, len(t.byDirection)),
	}
	for d, n := range t.byDirection {
		snap.ByDirection[string(d)] = n
	}
	return snap
}

// Reset zeroes every counter
func (t *Telemetry) Reset() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.matched = 0
	t.unmatched = 0
	t.byDirection = make(map[translation.Direction]int64)
}

// Log writes the counters at info level
func (t *Telemetry) Log(logger zerolog.Logger) {
	snap := t.Snapshot()
	event := logger.Info().
		Int64("matched", snap.Matched).
		Int64("unmatched", snap.Unmatched)
	for _, d := range translation.Directions() {
		event = event.Int64(string(d), snap.ByDirection[string(d)])
	}
	event.Msg("Parser telemetry")
}
