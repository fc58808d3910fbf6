// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Level string
	// File enables a rotating JSON log file next to console output.
	File string
	// Console defaults to os.Stderr.
	Console io.Writer
}

// New returns a logger writing human readable output to the console and,
// when File is set, JSON to a rotating file. It also becomes the global
// zerolog logger. The returned closer flushes the file.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = l
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	var (
		out    io.Writer = zerolog.ConsoleWriter{Out: console, TimeFormat: time.DateTime}
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, file)
		closer = file
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	zerolog.SetGlobalLevel(level)
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
