package msgcat

import (
	"errors"

	"github.com/park285/echecs/internal/fen"
	"github.com/park285/echecs/internal/history"
	"github.com/park285/echecs/internal/lobby"
	"github.com/park285/echecs/internal/rules"
	"github.com/park285/echecs/internal/savegame"
	"github.com/park285/echecs/internal/session"
	"github.com/park285/echecs/pkg/echecsdto"
)

var codes = []struct {
	err  error
	code string
}{
	{fen.ErrInvalid, echecsdto.CodeInvalidFEN},
	{rules.ErrInvalidPosition, echecsdto.CodeInvalidPosition},
	{rules.ErrNoPiece, echecsdto.CodeNoPiece},
	{rules.ErrWrongColor, echecsdto.CodeWrongColor},
	{rules.ErrMoveRejected, echecsdto.CodeMoveRejected},
	{history.ErrNothingToUndo, echecsdto.CodeNothingToUndo},
	{savegame.ErrMalformed, echecsdto.CodeMalformedSave},
	{savegame.ErrNotFound, echecsdto.CodeSaveNotFound},
	{session.ErrNotYourSeat, echecsdto.CodeNotYourSeat},
	{session.ErrConflict, echecsdto.CodeConflict},
	{session.ErrNotFound, echecsdto.CodeNotFound},
	{session.ErrGameOver, echecsdto.CodeGameOver},
	{lobby.ErrNotFound, echecsdto.CodeLobbyNotFound},
	{lobby.ErrStarted, echecsdto.CodeLobbyStarted},
	{lobby.ErrOwnLobby, echecsdto.CodeOwnLobby},
	{lobby.ErrAlreadyHosts, echecsdto.CodeAlreadyHosting},
	{lobby.ErrInvalidArgs, echecsdto.CodeBadRequest},
}

// Code maps err to a DomainError code. A DomainError keeps its own code;
// anything unknown is CodeInternal.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var de echecsdto.DomainError
	if errors.As(err, &de) && de.Code != "" {
		return de.Code
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return echecsdto.CodeInternal
}

// ForError returns the catalog key describing err.
func ForError(err error) string { return "errors." + Code(err) }

// Describe renders the message for err. input is the user text the error
// refers to, such as a square or a save name.
func (c *Catalog) Describe(err error, input string) string {
	key := ForError(err)
	s, rerr := c.Render(key, map[string]any{"Input": input})
	if rerr != nil {
		return err.Error()
	}
	return s
}

// DomainError builds the wire error for err.
func (c *Catalog) DomainError(err error, input string) echecsdto.DomainError {
	code := Code(err)
	return echecsdto.DomainError{
		Code:      code,
		Message:   c.Describe(err, input),
		Retryable: code == echecsdto.CodeConflict,
	}
}
