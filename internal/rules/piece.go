package rules

import (
	"fmt"
	"strings"
)

// Color identifies a side. NoColor marks an empty square.
type Color uint8

const (
	NoColor Color = iota
	White
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return ""
	}
}

// Opponent returns the other side; NoColor stays NoColor.
func (c Color) Opponent() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}

func (c Color) MarshalText() ([]byte, error) {
	if c == NoColor {
		return []byte{}, nil
	}
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseColor accepts "white"/"black" in any case, plus the French "blanc"/"noir"
// written by older save files. The empty string parses as NoColor.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w", "blanc":
		return White, nil
	case "black", "b", "noir":
		return Black, nil
	case "":
		return NoColor, nil
	}
	return NoColor, fmt.Errorf("unknown color %q", s)
}

// Kind is the piece tag that selects the movement predicate.
type Kind uint8

const (
	NoKind Kind = iota
	Pawn
	Rook
	Knight
	Bishop
	King
	Queen
)

var kindNames = [...]string{
	NoKind: "",
	Pawn:   "Pawn",
	Rook:   "Rook",
	Knight: "Knight",
	Bishop: "Bishop",
	King:   "King",
	Queen:  "Queen",
}

var kindAliases = map[string]Kind{
	"pawn": Pawn, "rook": Rook, "knight": Knight, "bishop": Bishop, "king": King, "queen": Queen,
	"pion": Pawn, "tour": Rook, "cavalier": Knight, "fou": Bishop, "roi": King, "dame": Queen,
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Letter is the FEN letter of the kind in upper case.
func (k Kind) Letter() byte {
	switch k {
	case Pawn:
		return 'P'
	case Rook:
		return 'R'
	case Knight:
		return 'N'
	case Bishop:
		return 'B'
	case King:
		return 'K'
	case Queen:
		return 'Q'
	}
	return ' '
}

// ParseKind accepts English and French kind names, case-insensitively.
func ParseKind(s string) (Kind, error) {
	if k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return NoKind, fmt.Errorf("unknown piece kind %q", s)
}

// Piece is immutable after construction; two pieces with the same color and
// kind are interchangeable.
type Piece struct {
	Color Color
	Kind  Kind
}

// NoPiece is returned for empty squares.
var NoPiece = Piece{}

func NewPiece(c Color, k Kind) Piece { return Piece{Color: c, Kind: k} }

func (p Piece) IsZero() bool { return p == NoPiece }

// CanJump is true only for knights; jumpers skip the obstruction scan.
func (p Piece) CanJump() bool { return p.Kind == Knight }

// String renders the piece as "Kind Color", e.g. "Pawn White".
func (p Piece) String() string {
	if p.IsZero() {
		return ""
	}
	c := p.Color.String()
	if c != "" {
		c = strings.ToUpper(c[:1]) + c[1:]
	}
	return p.Kind.String() + " " + c
}

// Symbol is the FEN letter: upper case for white, lower case for black.
func (p Piece) Symbol() byte {
	l := p.Kind.Letter()
	if p.Color == Black && l != ' ' {
		return l + ('a' - 'A')
	}
	return l
}

var unicodeGlyphs = map[Piece]string{
	{White, King}: "♔", {White, Queen}: "♕", {White, Rook}: "♖",
	{White, Bishop}: "♗", {White, Knight}: "♘", {White, Pawn}: "♙",
	{Black, King}: "♚", {Black, Queen}: "♛", {Black, Rook}: "♜",
	{Black, Bishop}: "♝", {Black, Knight}: "♞", {Black, Pawn}: "♟",
}

// Glyph returns the Unicode chess symbol of the piece.
func (p Piece) Glyph() string { return unicodeGlyphs[p] }

// ParsePiece reads the "Kind Color" form produced by String.
func ParsePiece(s string) (Piece, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return NoPiece, fmt.Errorf("malformed piece %q", s)
	}
	k, err := ParseKind(parts[0])
	if err != nil {
		return NoPiece, err
	}
	c, err := ParseColor(parts[1])
	if err != nil {
		return NoPiece, err
	}
	if c == NoColor {
		return NoPiece, fmt.Errorf("malformed piece %q", s)
	}
	return NewPiece(c, k), nil
}

// CanMoveTo reports whether the piece's movement rule accepts source -> target.
// Board occupancy is not consulted.
func (p Piece) CanMoveTo(source, target string) bool {
	c, err := Split(source, target)
	if err != nil || source == target {
		return false
	}
	dr, dc := c.DeltaRow(), c.DeltaCol()
	switch p.Kind {
	case Pawn:
		return p.pawnAdvance(c)
	case Rook:
		return straight(dr, dc)
	case Knight:
		return (abs(dr) == 2 && abs(dc) == 1) || (abs(dr) == 1 && abs(dc) == 2)
	case Bishop:
		return diagonal(dr, dc)
	case King:
		return abs(dr) <= 1 && abs(dc) <= 1
	case Queen:
		return straight(dr, dc) || diagonal(dr, dc)
	}
	return false
}

// CanCaptureTo reports whether the piece may take an enemy on target. Only the
// pawn captures differently from how it moves.
func (p Piece) CanCaptureTo(source, target string) bool {
	if p.Kind != Pawn {
		return p.CanMoveTo(source, target)
	}
	c, err := Split(source, target)
	if err != nil {
		return false
	}
	return c.DeltaRow() == p.forward() && abs(c.DeltaCol()) == 1
}

func (p Piece) pawnAdvance(c Coords) bool {
	if c.DeltaCol() != 0 {
		return false
	}
	step := c.DeltaRow() * p.forward()
	if step == 1 {
		return true
	}
	return step == 2 && c.SourceRow == p.startRow()
}

func (p Piece) forward() int {
	if p.Color == Black {
		return -1
	}
	return 1
}

func (p Piece) startRow() int {
	if p.Color == Black {
		return 7
	}
	return 2
}

func straight(dr, dc int) bool {
	return (dr == 0) != (dc == 0)
}

func diagonal(dr, dc int) bool {
	return dr != 0 && abs(dr) == abs(dc)
}
