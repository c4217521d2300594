package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestRuntimeAdapter(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	rl := Runtime(l).WithField("match_id", "m1")
	rl.Warn("autoDiscard: slot %d short by %d", 2, 1)

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if rec["msg"] != "autoDiscard: slot 2 short by 1" {
		t.Fatalf("msg = %v", rec["msg"])
	}
	if rec["level"] != "WARN" || rec["match_id"] != "m1" {
		t.Fatalf("record = %v", rec)
	}
	if rl.Fields()["match_id"] != "m1" {
		t.Fatalf("fields = %v", rl.Fields())
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "warn", false)
	rl := Runtime(nil)
	rl.Info("hidden")
	rl.Error("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("output = %q", buf.String())
	}
}
