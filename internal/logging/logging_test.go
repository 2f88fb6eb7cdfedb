package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger(Config{Level: "warn", Format: "json"})
	if logger.GetLevel() != zerolog.WarnLevel {
		t.Errorf("expected warn level, got %s", logger.GetLevel())
	}

	// Unknown levels fall back to info rather than failing startup.
	logger = NewLogger(Config{Level: "chatty", Format: "json"})
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("expected info fallback, got %s", logger.GetLevel())
	}
}

func TestWithComponentTagsEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	componentLogger := WithComponent(logger, "var-engine")
	componentLogger.Info().Msg("computed")

	var event map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &event); err != nil {
		t.Fatalf("parse log line: %v", err)
	}
	if event["component"] != "var-engine" {
		t.Errorf("expected component var-engine, got %v", event["component"])
	}
}
