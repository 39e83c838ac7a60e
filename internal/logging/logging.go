package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger. Levels follow zerolog names; unknown
// values fall back to info. When console is true output is human-readable
// instead of JSON.
func Setup(level string, console bool) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)

	var out io.Writer = os.Stderr
	if console {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// NewRunID returns a fresh identifier for one review run.
func NewRunID() string {
	return uuid.NewString()
}

// ForRun returns a logger tagged with the run id. If logDir is non-empty the
// run's output is also written to its own file there, one file per run.
// File setup failures degrade to the tagged global logger.
func ForRun(runID, logDir string) (zerolog.Logger, func()) {
	base := log.With().Str("run_id", runID).Logger()
	if logDir == "" {
		return base, func() {}
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		base.Warn().Err(err).Str("dir", logDir).Msg("creating run log directory failed")
		return base, func() {}
	}

	name := fmt.Sprintf("review_%s_%s.log", runID, time.Now().Format("20060102_150405"))
	file, err := os.Create(filepath.Join(logDir, name))
	if err != nil {
		base.Warn().Err(err).Str("file", name).Msg("creating run log file failed")
		return base, func() {}
	}

	multi := zerolog.MultiLevelWriter(os.Stderr, file)
	logger := zerolog.New(multi).With().Timestamp().Str("run_id", runID).Logger()
	return logger, func() { _ = file.Close() }
}
