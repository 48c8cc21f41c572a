package logging_test

import (
	"bytes"
	"testing"

	"github.com/jrsteele09/go-broker-auth/internal/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetupWriterLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	logger := logging.SetupWriter(&buf, "warn", false)

	logger.Info().Msg("hidden")
	logger.Warn().Str("stage", "login").Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"stage":"login"`)
}

func TestSetupWriterUnknownLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	logging.SetupWriter(&buf, "chatty", false)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "***", logging.Redact("abc"))
	assert.Equal(t, "abc123...", logging.Redact("abc123def456"))
}
