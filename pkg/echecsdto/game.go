package echecsdto

import "time"

type Clocks struct {
	WhiteSeconds float64 `json:"white_seconds"`
	BlackSeconds float64 `json:"black_seconds"`
	White        string  `json:"white"`
	Black        string  `json:"black"`
}

type LastMove struct {
	From string `json:"from"`
	To   string `json:"to"`
	Line string `json:"line"`
}

// GameState is the public view of a game.
type GameState struct {
	ID           string            `json:"id"`
	WhiteID      string            `json:"white_id"`
	BlackID      string            `json:"black_id"`
	Status       string            `json:"status"`
	Winner       string            `json:"winner,omitempty"`
	ActivePlayer string            `json:"active_player"`
	Pieces       map[string]string `json:"pieces"`
	FEN          string            `json:"fen"`
	Board        string            `json:"board"`
	Clocks       Clocks            `json:"clocks"`
	MoveCount    int               `json:"move_count"`
	LastMove     *LastMove         `json:"last_move,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type History struct {
	GameID string   `json:"game_id"`
	Lines  []string `json:"lines"`
}

type FEN struct {
	GameID string `json:"game_id"`
	FEN    string `json:"fen"`
}

// FENRequest replaces a game's position with a FEN record. Clocks restart
// at zero.
type FENRequest struct {
	PlayerID string `json:"player_id"`
	FEN      string `json:"fen"`
}

type Health struct {
	Status string `json:"status"`
}
