// Package logx builds the zerolog logger shared by the commands.
package logx

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Options configures NewLogger.
type Options struct {
	Level   string    // console level (debug, info, warn, error); default info
	File    string    // optional debug log file, appended to
	Console io.Writer // defaults to os.Stdout
}

// NewLogger returns a zerolog logger configured for console output. When
// opts.File is set, every event at debug level and above is also appended to
// that file as JSON. The returned closer closes the file (no-op otherwise).
func NewLogger(opts Options) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		lvl, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("parse log level %q: %w", opts.Level, err)
		}
		level = lvl
	}

	out := opts.Console
	if out == nil {
		out = os.Stdout
	}
	console := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		short := file
		for i := len(file) - 1; i > 0; i-- {
			if file[i] == '/' {
				short = file[i+1:]
				break
			}
		}
		// Pad to 28 characters for alignment
		return fmt.Sprintf("%-28s", fmt.Sprintf("%s:%d", short, line))
	}

	if opts.File == "" {
		logger := zerolog.New(levelWriter{w: console, min: level}).
			Level(level).With().Timestamp().Caller().Logger()
		return logger, nopCloser{}, nil
	}

	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("open log file: %w", err)
	}

	// The file always receives debug; the console keeps the requested level.
	fileLevel := zerolog.DebugLevel
	if level < fileLevel {
		fileLevel = level
	}
	multi := zerolog.MultiLevelWriter(
		levelWriter{w: console, min: level},
		levelWriter{w: f, min: fileLevel},
	)
	logger := zerolog.New(multi).Level(fileLevel).With().Timestamp().Caller().Logger()
	return logger, f, nil
}

// levelWriter drops events below min.
type levelWriter struct {
	w   io.Writer
	min zerolog.Level
}

func (lw levelWriter) Write(p []byte) (int, error) {
	return lw.w.Write(p)
}

func (lw levelWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < lw.min {
		return len(p), nil
	}
	return lw.w.Write(p)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
