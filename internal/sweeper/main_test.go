package sweeper

import (
	"io"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestMain(m *testing.M) {
	// keep test output readable; individual tests may swap in their own writer
	log.Logger = zerolog.New(io.Discard)
	os.Exit(m.Run())
}
