package obslog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestBuildJSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Build(Options{Level: "debug", Format: "json", Console: true, Writer: &buf})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	logger.Info("game_move", zap.String("from", "e2"), zap.String("to", "e4"))
	_ = logger.Sync()
	out := buf.String()
	if !strings.Contains(out, `"msg":"game_move"`) || !strings.Contains(out, `"from":"e2"`) {
		t.Fatalf("unexpected log output: %s", out)
	}
}

func TestBuildLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Build(Options{Level: "warn", Format: "console", Console: true, Writer: &buf})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	_ = logger.Sync()
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("level filter failed: %s", buf.String())
	}
}

func TestBuildFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "echecs.log")
	logger, err := Build(Options{Format: "legacy", File: path})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	logger.Info("save_write")
	_ = logger.Sync()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), "save_write") {
		t.Fatalf("log file missing entry: %s", raw)
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_TO_FILE", "false")
	t.Setenv("LOG_TO_CONSOLE", "true")
	t.Setenv("LOG_FORMAT", "JSON")
	opts := OptionsFromEnv("logs/x.log")
	if opts.File != "" || opts.Format != "json" || opts.Level != "debug" || !opts.Console {
		t.Fatalf("unexpected options %+v", opts)
	}
}
