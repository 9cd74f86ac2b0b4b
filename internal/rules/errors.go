package rules

import "errors"

var (
	ErrInvalidPosition = errors.New("invalid position")
	ErrMoveRejected    = errors.New("move rejected")
	// ErrNoPiece is returned when a move is requested from an empty square.
	ErrNoPiece = errors.New("no piece at source")
	// ErrWrongColor is returned when the piece at source belongs to the waiting player.
	ErrWrongColor = errors.New("piece belongs to the other player")
)
