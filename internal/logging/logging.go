// Package logging builds the zerolog loggers used by the CLI and server.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const permission = 0o664

// Options selects where and how logs are written.
type Options struct {
	// Writer receives log lines; defaults to stderr.
	Writer io.Writer
	// Path, when set, appends logs to a file instead of Writer.
	Path string
	// Level is a zerolog level name; defaults to info.
	Level string
	// Pretty renders human-readable console output instead of JSON.
	Pretty bool
}

// Logger is a configured logger and the file it may own.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// New builds a timestamped logger.
func New(opts Options) (*Logger, error) {
	level := zerolog.InfoLevel

	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}

		level = parsed
	}

	out := &Logger{}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	if opts.Path != "" {
		f, err := os.OpenFile(opts.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", opts.Path, err)
		}

		out.file = f
		w = zerolog.SyncWriter(f)
	}

	if opts.Pretty {
		w = zerolog.ConsoleWriter{Out: w, NoColor: opts.Path != "", TimeFormat: "15:04:05"}
	}

	out.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()

	return out, nil
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}

	return l.file.Close()
}
