package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "json")

	log.Info().Msg("hidden")
	log.Warn().Str("k", "v").Msg("shown")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected exactly one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "shown" || entry["k"] != "v" || entry["level"] != "warn" {
		t.Errorf("unexpected entry %v", entry)
	}
	if entry["service"] != "hazard-identify" {
		t.Errorf("service field = %v", entry["service"])
	}
}

func TestNewWithWriter_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "loud", "json")
	log.Debug().Msg("debug")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info level, got %q", buf.String())
	}
	log.Info().Msg("info")
	if buf.Len() == 0 {
		t.Fatal("info should be written")
	}
}
