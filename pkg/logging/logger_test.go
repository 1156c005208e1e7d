package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggerWritesFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "pipeline.log")

	err := SetupLogger(&LogConfig{
		Level:      "info",
		Format:     "json",
		OutputFile: logFile,
		Console:    false,
	})
	require.NoError(t, err)

	logger := GetPipelineLogger("clean", "test")
	logger.Info().Int("rows", 3).Msg("rows loaded")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"pipeline":"clean"`)
	assert.Contains(t, string(data), `"rows":3`)
}

func TestSetupLoggerRejectsBadLevel(t *testing.T) {
	err := SetupLogger(&LogConfig{Level: "chatty"})
	assert.Error(t, err)
}

func TestSetupLoggerWithoutWriters(t *testing.T) {
	require.NoError(t, SetupLogger(&LogConfig{Level: "debug"}))
	// Nop logger must not panic
	log.Info().Msg("discarded")
	logger := GetLogger("quiet")
	logger.Warn().Msg("discarded")
}
