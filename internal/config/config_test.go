package config

import "testing"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"HTTP_ADDR", "SERVER_URL", "REDIS_URL", "DATABASE_URL", "SESSION_TTL_SEC",
		"HISTORY_LIMIT", "SAVE_DIR", "HISTORY_FILE", "MESSAGES_DIR", "BOARD_UNICODE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.SessionTTLSec != 86400 || cfg.SaveDir != "saves" || cfg.HistoryFile != "historique.txt" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.BoardUnicode {
		t.Fatalf("unicode should default off")
	}
	if err := cfg.RequireServer(); err == nil {
		t.Fatalf("expected REDIS_URL requirement")
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("SERVER_URL", "http://localhost:9000/")
	t.Setenv("REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("SESSION_TTL_SEC", "60")
	t.Setenv("HISTORY_LIMIT", "nope")
	t.Setenv("BOARD_UNICODE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9000" || cfg.ServerURL != "http://localhost:9000" {
		t.Fatalf("addresses: %+v", cfg)
	}
	if cfg.SessionTTLSec != 60 || cfg.HistoryLimit != 10 || !cfg.BoardUnicode {
		t.Fatalf("numeric/bool overrides: %+v", cfg)
	}
	if err := cfg.RequireServer(); err != nil {
		t.Fatalf("RequireServer: %v", err)
	}
}
