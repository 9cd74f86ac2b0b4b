package echecsdto

import "time"

type CreateGameRequest struct {
	WhiteID string `json:"white_id"`
	BlackID string `json:"black_id"`
}

type MoveRequest struct {
	PlayerID string `json:"player_id"`
	From     string `json:"from"`
	To       string `json:"to"`
}

type MoveResponse struct {
	State    *GameState `json:"state"`
	Line     string     `json:"line"`
	Captured string     `json:"captured,omitempty"`
}

// PlayerRequest is the body of undo and reset.
type PlayerRequest struct {
	PlayerID string `json:"player_id"`
}

type UndoResponse struct {
	State  *GameState `json:"state"`
	Undone string     `json:"undone"`
}

type ErrorResponse struct {
	Error DomainError `json:"error"`
}

// SaveRequest names a snapshot for /games/{id}/save and /games/{id}/load.
type SaveRequest struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

type Saved struct {
	GameID string `json:"game_id"`
	Name   string `json:"name"`
}

type SaveList struct {
	Names []string `json:"names"`
}

// LobbyRequest opens a lobby (color white|black|random) or joins one.
type LobbyRequest struct {
	PlayerID string `json:"player_id"`
	Color    string `json:"color,omitempty"`
}

type Lobby struct {
	Code      string    `json:"code"`
	State     string    `json:"state"`
	CreatorID string    `json:"creator_id"`
	Color     string    `json:"color"`
	WhiteID   string    `json:"white_id,omitempty"`
	BlackID   string    `json:"black_id,omitempty"`
	GameID    string    `json:"game_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
