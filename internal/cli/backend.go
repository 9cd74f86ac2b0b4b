package cli

import (
	"context"
	"time"

	"github.com/park285/echecs/internal/fen"
	"github.com/park285/echecs/internal/game"
	"github.com/park285/echecs/internal/history"
	"github.com/park285/echecs/internal/rules"
	"github.com/park285/echecs/internal/savegame"
	"github.com/park285/echecs/internal/session"
)

// View is what the prompt shows between commands.
type View struct {
	Board        *rules.Board
	Active       rules.Color
	Winner       rules.Color
	White, Black time.Duration
}

// Backend runs the commands against a local game or a remote server.
type Backend interface {
	View(ctx context.Context) (View, error)
	Move(ctx context.Context, from, to string) (history.Entry, error)
	Undo(ctx context.Context) (history.Entry, error)
	History(ctx context.Context, limit int) ([]string, error)
	Save(ctx context.Context, name string) error
	Load(ctx context.Context, name string) error
	LoadFEN(ctx context.Context, record string) error
	New(ctx context.Context) error
}

// Local plays on an in-process game with a file-backed history.
type Local struct {
	g     *game.Game
	log   *history.Log
	saves savegame.Store
}

func NewLocal(g *game.Game, log *history.Log, saves savegame.Store) *Local {
	if g == nil {
		g = game.New()
	}
	if log == nil {
		log = history.NewLog(nil)
	}
	return &Local{g: g, log: log, saves: saves}
}

func (l *Local) View(context.Context) (View, error) {
	st := l.g.State()
	return View{
		Board:  st.Board,
		Active: st.Active,
		Winner: l.g.Winner(),
		White:  l.g.Elapsed(rules.White),
		Black:  l.g.Elapsed(rules.Black),
	}, nil
}

func (l *Local) Move(_ context.Context, from, to string) (history.Entry, error) {
	if l.g.IsOver() {
		return history.Entry{}, session.ErrGameOver
	}
	mv, err := l.g.RequestMove(from, to)
	if err != nil {
		return history.Entry{}, err
	}
	// the move stands even when the history file cannot be written
	_ = l.log.Record(mv)
	return history.FromMove(mv), nil
}

func (l *Local) Undo(context.Context) (history.Entry, error) {
	return l.log.Undo(l.g)
}

func (l *Local) History(_ context.Context, limit int) ([]string, error) {
	return l.log.Recent(limit), nil
}

func (l *Local) Save(ctx context.Context, name string) error {
	return l.saves.Save(ctx, name, savegame.Capture(l.g))
}

func (l *Local) Load(ctx context.Context, name string) error {
	snap, err := l.saves.Load(ctx, name)
	if err != nil {
		return err
	}
	if err := savegame.Restore(l.g, snap); err != nil {
		return err
	}
	return l.log.Clear()
}

// LoadFEN sets up the position of a FEN record with both clocks at zero.
func (l *Local) LoadFEN(_ context.Context, record string) error {
	board, active, err := fen.Decode(record)
	if err != nil {
		return err
	}
	if err := l.g.Restore(board, active, 0, 0); err != nil {
		return err
	}
	return l.log.Clear()
}

func (l *Local) New(context.Context) error {
	l.g.Reset()
	return l.log.Clear()
}
