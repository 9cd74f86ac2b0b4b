package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const Schema = `
CREATE TABLE IF NOT EXISTS echecs_games (
	game_id       TEXT PRIMARY KEY,
	white_id      TEXT NOT NULL,
	black_id      TEXT NOT NULL,
	winner        TEXT NOT NULL,
	result        TEXT NOT NULL,
	moves         JSONB NOT NULL,
	white_seconds DOUBLE PRECISION NOT NULL,
	black_seconds DOUBLE PRECISION NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	ended_at      TIMESTAMPTZ NOT NULL,
	duration_ms   BIGINT NOT NULL
)`

type Postgres struct {
	db *sql.DB
}

// Open connects to databaseURL and pings it.
func Open(databaseURL string) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (r *Postgres) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create echecs_games: %w", err)
	}
	return nil
}

func (r *Postgres) Save(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("nil record")
	}
	moves, err := json.Marshal(rec.Moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}

	const q = `
		INSERT INTO echecs_games (
			game_id, white_id, black_id, winner, result, moves,
			white_seconds, black_seconds, started_at, ended_at, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9, $10, $11)
		ON CONFLICT (game_id) DO UPDATE SET
			white_id=EXCLUDED.white_id,
			black_id=EXCLUDED.black_id,
			winner=EXCLUDED.winner,
			result=EXCLUDED.result,
			moves=EXCLUDED.moves,
			white_seconds=EXCLUDED.white_seconds,
			black_seconds=EXCLUDED.black_seconds,
			started_at=EXCLUDED.started_at,
			ended_at=EXCLUDED.ended_at,
			duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		rec.GameID, rec.WhiteID, rec.BlackID, rec.Winner, rec.Result(), moves,
		rec.WhiteSeconds, rec.BlackSeconds, rec.StartedAt, rec.EndedAt, rec.Duration().Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("upsert echecs game: %w", err)
	}
	return nil
}

const selectColumns = `
		SELECT game_id, white_id, black_id, winner, moves,
			white_seconds, black_seconds, started_at, ended_at
		FROM echecs_games`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var (
		rec   Record
		moves []byte
	)
	if err := s.Scan(&rec.GameID, &rec.WhiteID, &rec.BlackID, &rec.Winner, &moves,
		&rec.WhiteSeconds, &rec.BlackSeconds, &rec.StartedAt, &rec.EndedAt); err != nil {
		return nil, err
	}
	if len(moves) > 0 {
		if err := json.Unmarshal(moves, &rec.Moves); err != nil {
			return nil, fmt.Errorf("decode moves: %w", err)
		}
	}
	return &rec, nil
}

func (r *Postgres) Get(ctx context.Context, gameID string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE game_id = $1`, gameID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select echecs game: %w", err)
	}
	return rec, nil
}

func (r *Postgres) Recent(ctx context.Context, playerID string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		selectColumns+` WHERE white_id = $1 OR black_id = $1 ORDER BY ended_at DESC LIMIT $2`,
		playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("select echecs games: %w", err)
	}
	defer rows.Close()

	out := make([]*Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
