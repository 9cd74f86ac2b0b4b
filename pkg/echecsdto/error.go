package echecsdto

// Error codes carried by DomainError.
const (
	CodeInvalidPosition = "invalid_position"
	CodeMoveRejected    = "move_rejected"
	CodeNoPiece         = "no_piece"
	CodeWrongColor      = "wrong_color"
	CodeNothingToUndo   = "nothing_to_undo"
	CodeNotYourSeat     = "not_your_seat"
	CodeConflict        = "conflict"
	CodeNotFound        = "not_found"
	CodeGameOver        = "game_over"
	CodeMalformedSave   = "malformed_save"
	CodeInvalidFEN      = "invalid_fen"
	CodeSaveNotFound    = "save_not_found"
	CodeLobbyNotFound   = "lobby_not_found"
	CodeLobbyStarted    = "lobby_started"
	CodeOwnLobby        = "own_lobby"
	CodeAlreadyHosting  = "already_hosting"
	CodeBadRequest      = "bad_request"
	CodeInternal        = "internal"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "echecs service error"
}
