package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/park285/echecs/internal/client"
	"github.com/park285/echecs/internal/history"
	"github.com/park285/echecs/internal/rules"
	"github.com/park285/echecs/internal/savegame"
	"github.com/park285/echecs/pkg/echecsdto"
)

// Remote plays one server-side game. The same player holds both seats, so
// every move is accepted as long as it is legal.
type Remote struct {
	c      *client.Client
	gameID string
	player string
}

// NewRemote joins gameID, or creates a game when gameID is empty.
func NewRemote(ctx context.Context, c *client.Client, gameID, player string) (*Remote, error) {
	player = strings.TrimSpace(player)
	if player == "" {
		return nil, fmt.Errorf("player id is required")
	}
	if strings.TrimSpace(gameID) == "" {
		st, err := c.CreateGame(ctx, player, player)
		if err != nil {
			return nil, err
		}
		gameID = st.ID
	} else if _, err := c.Game(ctx, gameID); err != nil {
		return nil, err
	}
	return &Remote{c: c, gameID: gameID, player: player}, nil
}

func (r *Remote) GameID() string { return r.gameID }

func (r *Remote) View(ctx context.Context) (View, error) {
	st, err := r.c.Game(ctx, r.gameID)
	if err != nil {
		return View{}, err
	}
	return viewOf(st)
}

func viewOf(st *echecsdto.GameState) (View, error) {
	snap := savegame.Snapshot{
		Pieces:       st.Pieces,
		ActivePlayer: st.ActivePlayer,
		WhiteSeconds: st.Clocks.WhiteSeconds,
		BlackSeconds: st.Clocks.BlackSeconds,
	}
	board, err := snap.Board()
	if err != nil {
		return View{}, err
	}
	active, err := rules.ParseColor(st.ActivePlayer)
	if err != nil {
		return View{}, err
	}
	winner, err := rules.ParseColor(st.Winner)
	if err != nil {
		return View{}, err
	}
	return View{
		Board:  board,
		Active: active,
		Winner: winner,
		White:  seconds(st.Clocks.WhiteSeconds),
		Black:  seconds(st.Clocks.BlackSeconds),
	}, nil
}

func seconds(v float64) time.Duration { return time.Duration(v * float64(time.Second)) }

func (r *Remote) Move(ctx context.Context, from, to string) (history.Entry, error) {
	resp, err := r.c.Move(ctx, r.gameID, r.player, from, to)
	if err != nil {
		return history.Entry{}, err
	}
	return history.ParseLine(resp.Line)
}

func (r *Remote) Undo(ctx context.Context) (history.Entry, error) {
	resp, err := r.c.Undo(ctx, r.gameID, r.player)
	if err != nil {
		return history.Entry{}, err
	}
	return history.ParseLine(resp.Undone)
}

func (r *Remote) History(ctx context.Context, limit int) ([]string, error) {
	lines, err := r.c.History(ctx, r.gameID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines, nil
}

func (r *Remote) Save(ctx context.Context, name string) error {
	return r.c.Save(ctx, r.gameID, r.player, name)
}

func (r *Remote) Load(ctx context.Context, name string) error {
	_, err := r.c.Load(ctx, r.gameID, r.player, name)
	return err
}

func (r *Remote) LoadFEN(ctx context.Context, record string) error {
	_, err := r.c.LoadFEN(ctx, r.gameID, r.player, record)
	return err
}

func (r *Remote) New(ctx context.Context) error {
	_, err := r.c.Reset(ctx, r.gameID, r.player)
	return err
}
