package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	HTTPAddr  string
	ServerURL string

	RedisURL    string
	DatabaseURL string

	SessionTTLSec int
	HistoryLimit  int

	SaveDir      string
	HistoryFile  string
	MessagesDir  string
	BoardUnicode bool
}

// Load reads the environment. Nothing is required here; binaries call
// RequireServer when they need the backing stores.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:      ":8080",
		SessionTTLSec: 86400,
		HistoryLimit:  10,
		SaveDir:       "saves",
		HistoryFile:   "historique.txt",
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.ServerURL = strings.TrimRight(strings.TrimSpace(os.Getenv("SERVER_URL")), "/")

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("SESSION_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("HISTORY_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryLimit = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("SAVE_DIR")); v != "" {
		cfg.SaveDir = v
	}
	if v := strings.TrimSpace(os.Getenv("HISTORY_FILE")); v != "" {
		cfg.HistoryFile = v
	}
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("BOARD_UNICODE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			cfg.BoardUnicode = b
		}
	}

	return cfg, nil
}

// RequireServer checks the settings the HTTP server cannot run without.
func (c *AppConfig) RequireServer() error {
	if c.RedisURL == "" {
		return errors.New("REDIS_URL is required")
	}
	if c.HTTPAddr == "" {
		return errors.New("HTTP_ADDR is required")
	}
	return nil
}
