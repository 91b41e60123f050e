// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// LogFile is the name of the rotating log file in the data directory
const LogFile = "protonctl.log"

// Options controls where and how much is logged
type Options struct {
	Level   string    // zerolog level name; empty means info
	Verbose bool      // Forces debug level
	LogDir  string    // Directory for the rotating JSON log; empty disables it
	Console io.Writer // Human-readable output, usually os.Stderr; nil disables it
}

// Setup replaces the global logger. The returned closer flushes and closes
// the log file.
func Setup(opts Options) (io.Closer, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("parsing log level: %w", err)
		}
		level = parsed
	}
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	var writers []io.Writer
	var file *lumberjack.Logger

	if opts.Console != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        opts.Console,
			TimeFormat: time.Kitchen,
		})
	}

	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0o750); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		file = &lumberjack.Logger{
			Filename:   filepath.Join(opts.LogDir, LogFile),
			MaxSize:    1,
			MaxBackups: 2,
		}
		writers = append(writers, file)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	var out io.Writer = io.Discard
	if len(writers) > 0 {
		out = zerolog.MultiLevelWriter(writers...)
	}
	log.Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()

	if file == nil {
		return nopCloser{}, nil
	}
	return file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
