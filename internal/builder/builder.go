package builder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/park285/echecs/internal/archive"
	"github.com/park285/echecs/internal/config"
	"github.com/park285/echecs/internal/httpapi"
	"github.com/park285/echecs/internal/lobby"
	"github.com/park285/echecs/internal/msgcat"
	"github.com/park285/echecs/internal/obslog"
	"github.com/park285/echecs/internal/render"
	"github.com/park285/echecs/internal/savegame"
	"github.com/park285/echecs/internal/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deps struct {
	Redis    *redis.Client
	Sessions *session.Manager
	Archive  archive.Repository
	Messages *msgcat.Catalog
	Renderer render.BoardRenderer
	Saves    savegame.Store
	Lobbies  *lobby.Manager

	postgres *archive.Postgres
}

// New wires the server dependencies. Redis is required; without
// DATABASE_URL finished games are archived in memory.
func New(cfg *config.AppConfig) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if err := cfg.RequireServer(); err != nil {
		return nil, err
	}

	ropts, err := session.ParseRedisURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(ropts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	deps, err := assemble(ctx, cfg, rdb)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return deps, nil
}

func assemble(ctx context.Context, cfg *config.AppConfig, rdb *redis.Client) (*Deps, error) {
	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	ttl := time.Duration(cfg.SessionTTLSec) * time.Second
	d := &Deps{
		Redis:    rdb,
		Sessions: session.NewManagerWithClient(rdb, session.WithTTL(ttl)),
		Messages: msgs,
		Renderer: render.NewSVGBoardRenderer(),
		Saves:    savegame.NewRedisStore(rdb, 0),
	}
	d.Lobbies = lobby.NewManager(rdb, d.Sessions)

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		pg, err := archive.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		d.postgres = pg
		d.Archive = pg
	} else {
		obslog.L().Info("archive_memory", zap.String("reason", "DATABASE_URL not set"))
		d.Archive = archive.NewMemoryRepository()
	}
	d.Sessions.AttachArchive(d.Archive)
	return d, nil
}

// Server builds the HTTP API over the wired dependencies.
func (d *Deps) Server() *httpapi.Server {
	srv := httpapi.New(d.Sessions, d.Renderer, d.Messages)
	srv.AttachSaves(d.Saves)
	srv.AttachLobbies(d.Lobbies)
	return srv
}

// Close releases Redis and, when opened, Postgres.
func (d *Deps) Close() error {
	var firstErr error
	if d.postgres != nil {
		if err := d.postgres.Close(); err != nil {
			firstErr = err
		}
	}
	if d.Sessions != nil {
		if err := d.Sessions.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
