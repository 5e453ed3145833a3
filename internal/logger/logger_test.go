package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithWriterEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "production")
	log.Info().Str("photo_id", "p1").Msg("processing started")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["photo_id"] != "p1" || entry["message"] != "processing started" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["service"] != "clientgallery" {
		t.Fatalf("service field missing: %v", entry)
	}
}

func TestNewWithWriterFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	_ = NewWithWriter(&buf, "loud", "production")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info level, got %s", zerolog.GlobalLevel())
	}
}
