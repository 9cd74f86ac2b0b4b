package httpapi

import (
	"time"

	"github.com/park285/echecs/internal/fen"
	"github.com/park285/echecs/internal/game"
	"github.com/park285/echecs/internal/session"
	"github.com/park285/echecs/pkg/echecsdto"
)

// ToDTO renders a stored game for the wire.
func ToDTO(st *session.State) (*echecsdto.GameState, error) {
	board, err := st.Position.Board()
	if err != nil {
		return nil, err
	}
	active := st.Active()
	out := &echecsdto.GameState{
		ID:           st.ID,
		WhiteID:      st.WhiteID,
		BlackID:      st.BlackID,
		Status:       string(st.Status),
		Winner:       st.Winner,
		ActivePlayer: active.String(),
		Pieces:       st.Position.Pieces,
		FEN:          fen.Encode(board, active),
		Board:        board.String(),
		Clocks: echecsdto.Clocks{
			WhiteSeconds: st.Position.WhiteSeconds,
			BlackSeconds: st.Position.BlackSeconds,
			White:        game.FormatElapsed(seconds(st.Position.WhiteSeconds)),
			Black:        game.FormatElapsed(seconds(st.Position.BlackSeconds)),
		},
		MoveCount: len(st.Moves),
		CreatedAt: st.CreatedAt,
		UpdatedAt: st.UpdatedAt,
	}
	if e, ok := st.LastMove(); ok {
		out.LastMove = &echecsdto.LastMove{From: e.From, To: e.To, Line: e.String()}
	}
	return out, nil
}

func seconds(v float64) time.Duration { return time.Duration(v * float64(time.Second)) }
