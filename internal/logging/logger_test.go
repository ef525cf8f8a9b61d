package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"truthx/internal/config"
	"truthx/internal/logging"
	"truthx/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg, "truthx-test.log")
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from config")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "truthx-test.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from config") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerRendersComponentAndRequest(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	base, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithRequestID(context.Background(), "0123456789abcdef")
	logger := logging.WithContext(ctx, logging.NewComponentLogger(base, "extractor"))
	logger.Info("probe complete", logging.String("strategy", "structured"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, fragment := range []string{"INFO extractor: probe complete", "[req 01234567]", "strategy=structured"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
}

func TestJSONLoggerFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "ffprobe unavailable", "probe_fallback")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(content, &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("expected warn level, got %v", payload["level"])
	}
	if payload[logging.FieldEventType] != "probe_fallback" {
		t.Fatalf("expected event type, got %v", payload[logging.FieldEventType])
	}
	for _, key := range []string{"ts", "message", logging.FieldErrorHint, logging.FieldImpact} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("expected %q in payload %v", key, payload)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "truthx-old.log")
	newPath := filepath.Join(dir, "truthx-new.log")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{oldPath, newPath, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -10)
	for _, p := range []string{oldPath, other} {
		if err := os.Chtimes(p, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	pruned := logging.CleanupOldLogs(logging.NewNop(), 5, logging.RetentionTarget{Dir: dir, Pattern: "truthx-*.log"})
	if pruned != 1 {
		t.Fatalf("expected 1 pruned file, got %d", pruned)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, p := range []string{newPath, other} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s to remain: %v", p, err)
		}
	}
}
