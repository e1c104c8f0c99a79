// Package logx builds the application's zerolog loggers.
package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a console-formatted logger writing to w.
func NewLogger(w io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: time.RFC3339,
	}
	zerolog.CallerMarshalFunc = shortCaller
	return zerolog.New(output).With().Timestamp().Caller().Logger()
}

// shortCaller trims the caller to file:line, padded for alignment.
func shortCaller(pc uintptr, file string, line int) string {
	return fmt.Sprintf("%-24s", fmt.Sprintf("%s:%d", filepath.Base(file), line))
}

// Open returns a logger appending to the file at path, and a function that
// closes it. Logging is best effort: if the file cannot be opened the logger
// discards everything.
func Open(path string, level zerolog.Level) (zerolog.Logger, func()) {
	if path == "" {
		return zerolog.Nop(), func() {}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return zerolog.Nop(), func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), func() {}
	}
	return NewLogger(f).Level(level), func() { f.Close() }
}
