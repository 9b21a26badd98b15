package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestTeeHandler_DropsNilDestinations(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tee := newTeeHandler(nil, slog.NewJSONHandler(&buf, nil), nil)

	if len(tee.dests) != 1 {
		t.Errorf("expected 1 destination after dropping nils, got %d", len(tee.dests))
	}
}

func TestTeeHandler_EnabledWhenAnyDestinationIs(t *testing.T) {
	t.Parallel()

	var buf1, buf2 bytes.Buffer
	debugDest := slog.NewJSONHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelDebug})
	errorDest := slog.NewJSONHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelError})

	tee := newTeeHandler(debugDest, errorDest)

	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if !tee.Enabled(context.Background(), level) {
			t.Errorf("Enabled(%v) = false, want true", level)
		}
	}
}

func TestTeeHandler_DuplicatesRecords(t *testing.T) {
	t.Parallel()

	var buf1, buf2 bytes.Buffer
	d1 := slog.NewJSONHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo})
	d2 := slog.NewJSONHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelInfo})

	log := slog.New(newTeeHandler(d1, d2))
	log.Info("fan out")

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		var entry map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("destination %d: failed to parse JSON log: %v", i, err)
		}
		if entry["msg"] != "fan out" {
			t.Errorf("destination %d: msg = %v, want 'fan out'", i, entry["msg"])
		}
	}
}

func TestTeeHandler_SkipsDisabledDestinations(t *testing.T) {
	t.Parallel()

	var infoBuf, errorBuf bytes.Buffer
	infoDest := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	errorDest := slog.NewJSONHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError})

	log := slog.New(newTeeHandler(infoDest, errorDest))
	log.Info("info only")

	if infoBuf.Len() == 0 {
		t.Error("expected info destination to receive record")
	}
	if errorBuf.Len() != 0 {
		t.Error("expected error destination to skip info record")
	}
}

func TestTeeHandler_WithAttrsAppliesToAll(t *testing.T) {
	t.Parallel()

	var buf1, buf2 bytes.Buffer
	d1 := slog.NewJSONHandler(&buf1, nil)
	d2 := slog.NewJSONHandler(&buf2, nil)

	log := slog.New(newTeeHandler(d1, d2).WithAttrs([]slog.Attr{slog.String("module", "chat")}))
	log.Info("tagged")

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		var entry map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("destination %d: failed to parse JSON log: %v", i, err)
		}
		if entry["module"] != "chat" {
			t.Errorf("destination %d: module = %v, want 'chat'", i, entry["module"])
		}
	}
}
