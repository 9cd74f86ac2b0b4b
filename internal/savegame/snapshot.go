package savegame

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/park285/echecs/internal/game"
	"github.com/park285/echecs/internal/rules"
)

var (
	// ErrMalformed is returned for a save with a missing field or a value
	// that does not name a square, a piece or a player.
	ErrMalformed = errors.New("malformed save")
	// ErrNotFound is returned when no save exists under the requested name.
	ErrNotFound = errors.New("save not found")
)

// Snapshot is the persisted form of a game: every occupied square, the side
// to move and both closed-turn clock totals in seconds.
type Snapshot struct {
	Pieces       map[string]string `json:"pieces" yaml:"pieces"`
	ActivePlayer string            `json:"active_player" yaml:"active_player"`
	WhiteSeconds float64           `json:"white_seconds" yaml:"white_seconds"`
	BlackSeconds float64           `json:"black_seconds" yaml:"black_seconds"`
}

// Capture reads the current state of g in one locked read.
func Capture(g *game.Game) Snapshot {
	st := g.State()
	return FromBoard(st.Board, st.Active, st.White, st.Black)
}

// FromBoard builds a snapshot from a position held outside a Game, such as
// a decoded FEN record.
func FromBoard(b *rules.Board, active rules.Color, white, black time.Duration) Snapshot {
	pieces := b.Pieces()
	snap := Snapshot{
		Pieces:       make(map[string]string, len(pieces)),
		ActivePlayer: active.String(),
		WhiteSeconds: white.Seconds(),
		BlackSeconds: black.Seconds(),
	}
	for pos, p := range pieces {
		snap.Pieces[pos] = p.String()
	}
	return snap
}

// Board decodes the piece map. Any bad entry fails the whole snapshot.
func (s Snapshot) Board() (*rules.Board, error) {
	if s.Pieces == nil {
		return nil, fmt.Errorf("%w: pieces missing", ErrMalformed)
	}
	b := rules.NewEmptyBoard()
	for pos, name := range s.Pieces {
		if !rules.PositionIsValid(pos) {
			return nil, fmt.Errorf("%w: square %q", ErrMalformed, pos)
		}
		p, err := rules.ParsePiece(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := b.Place(pos, p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	return b, nil
}

// Restore replaces the state of g with the snapshot. g is untouched when
// the snapshot is rejected.
func Restore(g *game.Game, s Snapshot) error {
	board, err := s.Board()
	if err != nil {
		return err
	}
	active, err := rules.ParseColor(s.ActivePlayer)
	if err != nil || active == rules.NoColor {
		return fmt.Errorf("%w: active player %q", ErrMalformed, s.ActivePlayer)
	}
	white, err := seconds(s.WhiteSeconds)
	if err != nil {
		return err
	}
	black, err := seconds(s.BlackSeconds)
	if err != nil {
		return err
	}
	return g.Restore(board, active, white, black)
}

func seconds(v float64) (time.Duration, error) {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: clock %v", ErrMalformed, v)
	}
	return time.Duration(v * float64(time.Second)), nil
}
