// Package logging builds the logrus loggers used across the server. The MCP
// binary must log to stderr because stdout carries the protocol stream.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/birads-report-server/internal/domain"
)

// New constructs a logger from the logging configuration. Unknown levels
// fall back to info; unknown outputs fall back to stdout.
func New(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	switch cfg.Format {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "time",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "msg",
			},
		})
	}

	logger.SetOutput(resolveOutput(cfg.Output))
	return logger
}

// NewStderr constructs a logger that always writes to stderr, regardless of
// the configured output. Used by the MCP binary.
func NewStderr(level, format string) *logrus.Logger {
	logger := New(domain.LoggingConfig{Level: level, Format: format, Output: "stderr"})
	return logger
}

func resolveOutput(output string) io.Writer {
	switch output {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot open log file %s, falling back to stdout: %v\n", output, err)
			return os.Stdout
		}
		return f
	}
}
