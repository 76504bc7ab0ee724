package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("production writes json at info", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, false)

		logger.Debug().Msg("hidden")
		require.Zero(t, buf.Len())

		logger.Info().Str("org_id", "o-1").Msg("created")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		require.Equal(t, "info", entry["level"])
		require.Equal(t, "o-1", entry["org_id"])
		require.Equal(t, "created", entry["message"])
		require.Contains(t, entry, "time")
		require.Contains(t, entry, "caller")
	})

	t.Run("dev writes console output at debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, true)

		logger.Debug().Msg("visible")
		require.Contains(t, buf.String(), "visible")
		require.False(t, json.Valid(buf.Bytes()))
	})
}

func TestInstall(t *testing.T) {
	previous := log.Logger
	previousCtx := zerolog.DefaultContextLogger
	t.Cleanup(func() {
		log.Logger = previous
		zerolog.DefaultContextLogger = previousCtx
	})

	var buf bytes.Buffer
	Install(New(&buf, false))

	log.Info().Msg("installed")
	require.Contains(t, buf.String(), "installed")
}
