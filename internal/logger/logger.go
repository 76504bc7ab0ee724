package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup builds a JSON logger on stderr at info level, or a console logger at
// debug level when dev is set.
func Setup(dev bool) zerolog.Logger {
	return New(os.Stderr, dev)
}

// New is Setup writing to w.
func New(w io.Writer, dev bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: w, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

// Install makes logger the package-level logger used through zerolog/log and
// the fallback for zerolog.Ctx.
func Install(logger zerolog.Logger) {
	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger
}
