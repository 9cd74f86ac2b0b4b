package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/park285/echecs/internal/obslog"
	"github.com/park285/echecs/internal/rules"
	"go.uber.org/zap"
)

// Game owns one board, the side to move and both players' clocks.
// Termination is a query: Game keeps accepting moves after a king falls.
type Game struct {
	mu sync.Mutex

	board  *rules.Board
	active rules.Color
	white  Clock
	black  Clock

	now func() time.Time
}

type Option func(*Game)

// WithClock replaces the wall clock, for tests and replays.
func WithClock(now func() time.Time) Option {
	return func(g *Game) { g.now = now }
}

// New starts a game from the standard layout with white to move.
func New(opts ...Option) *Game {
	g := &Game{
		board:  rules.NewBoard(),
		active: rules.White,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Board returns a copy of the current board. Changes go through
// RequestMove, Rewind or Restore.
func (g *Game) Board() *rules.Board {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.board.Clone()
}

// State is a consistent read of a game: a board copy, the side to move and
// both closed-turn clock totals.
type State struct {
	Board  *rules.Board
	Active rules.Color
	White  time.Duration
	Black  time.Duration
}

// State reads the board, the turn and the totals under one lock.
func (g *Game) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return State{
		Board:  g.board.Clone(),
		Active: g.active,
		White:  g.white.Total,
		Black:  g.black.Total,
	}
}

func (g *Game) ActivePlayer() rules.Color {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

func (g *Game) PieceAt(pos string) rules.Piece {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.board.PieceAt(pos)
}

func (g *Game) ColorAt(pos string) rules.Color {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.board.ColorAt(pos)
}

// Winner returns Black when the white king is gone, White when the black
// king is gone, otherwise NoColor. White's king is checked first.
func (g *Game) Winner() rules.Color {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.board.KingOfColorPresent(rules.White) {
		return rules.Black
	}
	if !g.board.KingOfColorPresent(rules.Black) {
		return rules.White
	}
	return rules.NoColor
}

func (g *Game) IsOver() bool { return g.Winner() != rules.NoColor }

// RequestMove is the single entry point for play. It fails with
// rules.ErrNoPiece, rules.ErrWrongColor or rules.ErrMoveRejected, leaving
// the game unchanged, or applies the move and passes the turn.
func (g *Game) RequestMove(source, target string) (rules.Move, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	piece := g.board.PieceAt(source)
	if piece.IsZero() {
		return rules.Move{}, fmt.Errorf("%w: %s", rules.ErrNoPiece, source)
	}
	if piece.Color != g.active {
		return rules.Move{}, fmt.Errorf("%w: %s on %s", rules.ErrWrongColor, piece, source)
	}
	mv, err := g.board.ApplyMove(source, target)
	if err != nil {
		obslog.L().Debug("game_move_rejected",
			zap.String("from", source),
			zap.String("to", target),
			zap.String("piece", piece.String()),
		)
		return rules.Move{}, err
	}
	g.advanceTurn()

	obslog.L().Info("game_move",
		zap.String("piece", mv.Piece.String()),
		zap.String("from", mv.From),
		zap.String("to", mv.To),
		zap.String("captured", mv.Captured.String()),
		zap.String("next", g.active.String()),
	)
	if mv.Captured.Kind == rules.King {
		obslog.L().Info("game_over", zap.String("winner", mv.Piece.Color.String()))
	}
	return mv, nil
}

// AdvanceTurn passes the move to the other player and switches clocks.
func (g *Game) AdvanceTurn() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.advanceTurn()
}

func (g *Game) advanceTurn() {
	now := g.now()
	outgoing, incoming := g.clock(g.active), g.clock(g.active.Opponent())
	outgoing.Suspend(now)
	incoming.Resume(now)
	g.active = g.active.Opponent()
}

// Reset starts over: standard layout, white to move, clocks zeroed.
func (g *Game) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.board.ResetToStart()
	g.active = rules.White
	g.white = Clock{}
	g.black = Clock{}
}

// Elapsed returns the accumulated time of c, including an open turn.
func (g *Game) Elapsed(c rules.Color) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cl := g.clock(c); cl != nil {
		return cl.Elapsed(g.now())
	}
	return 0
}

// Totals returns both players' closed-turn totals, as persisted in saves.
func (g *Game) Totals() (white, black time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.white.Total, g.black.Total
}

// Restore replaces the whole game state. Clocks come back idle with the
// given totals. The board is adopted, not copied.
func (g *Game) Restore(board *rules.Board, active rules.Color, white, black time.Duration) error {
	if board == nil {
		return fmt.Errorf("restore: nil board")
	}
	if active != rules.White && active != rules.Black {
		return fmt.Errorf("restore: invalid active player %q", active)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.board = board
	g.active = active
	g.white.Restore(white)
	g.black.Restore(black)
	return nil
}

// Rewind runs fn on the board under the game lock and, if it succeeds,
// hands the move back to the previous player. The open turn is dropped
// without being charged and the previous player's clock restarts.
// Undo is built on it; fn must leave the board unchanged when it fails.
func (g *Game) Rewind(fn func(b *rules.Board) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := fn(g.board); err != nil {
		return err
	}
	now := g.now()
	g.clock(g.active).Cancel()
	g.clock(g.active.Opponent()).Resume(now)
	g.active = g.active.Opponent()
	return nil
}

func (g *Game) clock(c rules.Color) *Clock {
	switch c {
	case rules.White:
		return &g.white
	case rules.Black:
		return &g.black
	}
	return nil
}
