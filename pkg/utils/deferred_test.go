package utils

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeferredWriter_FlushThroughConsoleWriter(t *testing.T) {
	var deferred DeferredWriter
	logger := zerolog.New(&deferred)

	logger.Warn().Str("component", "session").Msg("poll failed")
	logger.Info().Msg("session started")

	var out bytes.Buffer
	require.NoError(t, deferred.Flush(zerolog.ConsoleWriter{Out: &out, NoColor: true}))
	assert.Contains(t, out.String(), "poll failed")
	assert.Contains(t, out.String(), "component=session")
	assert.Contains(t, out.String(), "session started")

	out.Reset()
	require.NoError(t, deferred.Flush(&out))
	assert.Empty(t, out.String())
}
