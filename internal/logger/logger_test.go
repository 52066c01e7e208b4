package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/fd1az/swap-router/internal/logger"
)

func TestLogger_WritesJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.LevelInfo, "swap-router", func(context.Context) string { return "abc123" })

	log.Info(context.Background(), "pool skipped", "pool", "0x01")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not json: %v (%s)", err, buf.String())
	}
	if rec["msg"] != "pool skipped" {
		t.Errorf("msg = %v", rec["msg"])
	}
	if rec["service"] != "swap-router" {
		t.Errorf("service = %v", rec["service"])
	}
	if rec["trace_id"] != "abc123" {
		t.Errorf("trace_id = %v", rec["trace_id"])
	}
	if rec["pool"] != "0x01" {
		t.Errorf("pool = %v", rec["pool"])
	}
}

func TestLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.LevelWarn, "swap-router", nil)

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %s", buf.String())
	}

	log.Warn(context.Background(), "shown")
	if buf.Len() == 0 {
		t.Fatal("expected warn record")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]logger.Level{
		"debug": logger.LevelDebug,
		"info":  logger.LevelInfo,
		"warn":  logger.LevelWarn,
		"error": logger.LevelError,
		"":      logger.LevelInfo,
		"loud":  logger.LevelInfo,
	}
	for in, want := range tests {
		if got := logger.ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
