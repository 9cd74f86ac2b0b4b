package archive

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("archived game not found")

// Record is a finished game.
type Record struct {
	GameID       string
	WhiteID      string
	BlackID      string
	Winner       string // "white", "black" or "" while unresolved
	Moves        []string
	WhiteSeconds float64
	BlackSeconds float64
	StartedAt    time.Time
	EndedAt      time.Time
}

// Result is the PGN-style result token.
func (r *Record) Result() string {
	switch r.Winner {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	default:
		return "*"
	}
}

func (r *Record) Duration() time.Duration {
	d := r.EndedAt.Sub(r.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

// Repository stores finished games. Save is an upsert keyed by GameID.
type Repository interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, gameID string) (*Record, error)
	Recent(ctx context.Context, playerID string, limit int) ([]*Record, error)
}
