package logging

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/birads-report-server/internal/domain"
)

func TestNew_LevelParsing(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected logrus.Level
	}{
		{"debug level", "debug", logrus.DebugLevel},
		{"warn level", "warn", logrus.WarnLevel},
		{"unknown falls back to info", "loud", logrus.InfoLevel},
		{"empty falls back to info", "", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(domain.LoggingConfig{Level: tt.level, Format: "json"})
			assert.Equal(t, tt.expected, logger.GetLevel())
		})
	}
}

func TestNew_Formatters(t *testing.T) {
	jsonLogger := New(domain.LoggingConfig{Level: "info", Format: "json"})
	assert.IsType(t, &logrus.JSONFormatter{}, jsonLogger.Formatter)

	textLogger := New(domain.LoggingConfig{Level: "info", Format: "text"})
	assert.IsType(t, &logrus.TextFormatter{}, textLogger.Formatter)
}

func TestNewStderr(t *testing.T) {
	logger := NewStderr("debug", "json")
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.Equal(t, os.Stderr, logger.Out)
}
