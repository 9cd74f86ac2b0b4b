package lobby

import (
	"errors"
	"time"
)

// State is the lifecycle of a lobby.
type State string

const (
	StateWaiting State = "waiting"
	StateStarted State = "started"
)

// ColorChoice is the creator's seat preference.
type ColorChoice string

const (
	ColorWhite  ColorChoice = "white"
	ColorBlack  ColorChoice = "black"
	ColorRandom ColorChoice = "random"
)

// ParseColorChoice maps "" to random.
func ParseColorChoice(s string) (ColorChoice, error) {
	switch ColorChoice(s) {
	case ColorWhite, ColorBlack, ColorRandom:
		return ColorChoice(s), nil
	case "":
		return ColorRandom, nil
	}
	return "", ErrInvalidArgs
}

// Meta is stored as JSON under echecs:lobby:<code>.
type Meta struct {
	Code      string      `json:"code"`
	State     State       `json:"state"`
	CreatedAt time.Time   `json:"created_at"`
	CreatorID string      `json:"creator_id"`
	Color     ColorChoice `json:"color"`

	WhiteID string `json:"white_id,omitempty"`
	BlackID string `json:"black_id,omitempty"`
	GameID  string `json:"game_id,omitempty"`
}

var (
	ErrInvalidArgs  = errors.New("invalid lobby arguments")
	ErrNotFound     = errors.New("lobby not found or expired")
	ErrStarted      = errors.New("lobby already started")
	ErrOwnLobby     = errors.New("cannot join your own lobby")
	ErrAlreadyHosts = errors.New("player already has an open lobby")
)
