package session

import (
	"errors"
	"time"

	"github.com/park285/echecs/internal/game"
	"github.com/park285/echecs/internal/history"
	"github.com/park285/echecs/internal/rules"
	"github.com/park285/echecs/internal/savegame"
)

var (
	ErrNotFound    = errors.New("game not found")
	ErrNotYourSeat = errors.New("not your seat")
	ErrConflict    = errors.New("concurrent update")
	ErrGameOver    = errors.New("game is over")
)

type Status string

const (
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// State is one game as stored in Redis.
type State struct {
	ID      string `json:"id"`
	WhiteID string `json:"white_id"`
	BlackID string `json:"black_id"`
	Status  Status `json:"status"`
	Winner  string `json:"winner,omitempty"`

	Position savegame.Snapshot `json:"position"`
	// Moves holds history lines, oldest first.
	Moves []string `json:"moves"`

	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	TurnStartedAt time.Time `json:"turn_started_at"`
}

// Game rebuilds a playable game from the stored position.
func (s *State) Game() (*game.Game, error) {
	g := game.New()
	if err := savegame.Restore(g, s.Position); err != nil {
		return nil, err
	}
	return g, nil
}

// History parses the stored move lines.
func (s *State) History() ([]history.Entry, error) {
	out := make([]history.Entry, 0, len(s.Moves))
	for _, line := range s.Moves {
		e, err := history.ParseLine(line)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Active is the side to move.
func (s *State) Active() rules.Color {
	c, _ := rules.ParseColor(s.Position.ActivePlayer)
	return c
}

// SeatOf returns the color playerID sits at. When one player holds both
// seats the side to move is returned.
func (s *State) SeatOf(playerID string) rules.Color {
	switch {
	case playerID == "":
		return rules.NoColor
	case playerID == s.WhiteID && playerID == s.BlackID:
		return s.Active()
	case playerID == s.WhiteID:
		return rules.White
	case playerID == s.BlackID:
		return rules.Black
	}
	return rules.NoColor
}

// LastMove returns the most recent entry, if any.
func (s *State) LastMove() (history.Entry, bool) {
	if len(s.Moves) == 0 {
		return history.Entry{}, false
	}
	e, err := history.ParseLine(s.Moves[len(s.Moves)-1])
	return e, err == nil
}
