package rules

import (
	"fmt"
	"sort"
)

// Board maps positions to pieces. A position absent from the map is empty;
// pieces never carry their own position.
type Board struct {
	pieces map[string]Piece
}

// Move records one accepted move. Captured is NoPiece when the target was empty.
type Move struct {
	Piece    Piece
	From     string
	To       string
	Captured Piece
}

// IsCapture reports whether the move took a piece.
func (m Move) IsCapture() bool { return !m.Captured.IsZero() }

// NewBoard returns a board set up with the standard starting layout.
func NewBoard() *Board {
	b := NewEmptyBoard()
	b.ResetToStart()
	return b
}

// NewEmptyBoard returns a board with no pieces, for puzzles, tests and loaders.
func NewEmptyBoard() *Board {
	return &Board{pieces: make(map[string]Piece, 32)}
}

func (b *Board) PositionIsValid(pos string) bool { return PositionIsValid(pos) }

// PieceAt returns the piece on pos, or NoPiece.
func (b *Board) PieceAt(pos string) Piece {
	return b.pieces[pos]
}

// ColorAt returns the color of the piece on pos, or NoColor.
func (b *Board) ColorAt(pos string) Color {
	return b.pieces[pos].Color
}

// Occupied reports whether a piece stands on pos.
func (b *Board) Occupied(pos string) bool {
	_, ok := b.pieces[pos]
	return ok
}

// Len is the number of pieces on the board.
func (b *Board) Len() int { return len(b.pieces) }

// PathIsClear reports whether every square strictly between source and target
// is empty. Only same-file, same-rank and diagonal pairs have a path; any
// other shape is reported as not clear.
func (b *Board) PathIsClear(source, target string) bool {
	c, err := Split(source, target)
	if err != nil {
		return false
	}
	dr, dc := c.DeltaRow(), c.DeltaCol()

	var interior []string
	switch {
	case dc == 0 && dr != 0:
		for _, row := range RowsBetween(source[1], target[1]) {
			interior = append(interior, string([]byte{source[0], row}))
		}
	case dr == 0 && dc != 0:
		for _, col := range ColumnsBetween(source[0], target[0]) {
			interior = append(interior, string([]byte{col, source[1]}))
		}
	case diagonal(dr, dc):
		rows := RowsBetween(source[1], target[1])
		cols := ColumnsBetween(source[0], target[0])
		for i := range cols {
			interior = append(interior, string([]byte{cols[i], rows[i]}))
		}
	default:
		return false
	}

	for _, pos := range interior {
		if b.Occupied(pos) {
			return false
		}
	}
	return true
}

// MoveIsValid checks, in order: a piece stands on source; target is on the
// board; non-jumpers have a clear path; target holds no friendly piece; the
// piece's rule accepts the move (a pawn facing an occupied target must use its
// capture rule).
func (b *Board) MoveIsValid(source, target string) bool {
	piece, ok := b.pieces[source]
	if !ok {
		return false
	}
	if !PositionIsValid(target) {
		return false
	}
	if !piece.CanJump() && !b.PathIsClear(source, target) {
		return false
	}
	if b.ColorAt(source) == b.ColorAt(target) {
		return false
	}
	if piece.Kind == Pawn && b.Occupied(target) {
		return piece.CanCaptureTo(source, target)
	}
	return piece.CanMoveTo(source, target)
}

// ApplyMove validates and performs source -> target. On rejection the board
// is left untouched.
func (b *Board) ApplyMove(source, target string) (Move, error) {
	if !b.MoveIsValid(source, target) {
		return Move{}, fmt.Errorf("%w: %s -> %s", ErrMoveRejected, source, target)
	}
	mv := Move{
		Piece:    b.pieces[source],
		From:     source,
		To:       target,
		Captured: b.pieces[target],
	}
	b.pieces[target] = mv.Piece
	delete(b.pieces, source)
	return mv, nil
}

// KingOfColorPresent reports whether a king of color c is on the board.
func (b *Board) KingOfColorPresent(c Color) bool {
	for _, p := range b.pieces {
		if p.Kind == King && p.Color == c {
			return true
		}
	}
	return false
}

var backRank = [8]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// ResetToStart clears the board and sets up the standard 32-piece layout.
func (b *Board) ResetToStart() {
	b.pieces = make(map[string]Piece, 32)
	for i := 0; i < 8; i++ {
		col := Columns[i]
		b.pieces[string([]byte{col, '1'})] = NewPiece(White, backRank[i])
		b.pieces[string([]byte{col, '2'})] = NewPiece(White, Pawn)
		b.pieces[string([]byte{col, '7'})] = NewPiece(Black, Pawn)
		b.pieces[string([]byte{col, '8'})] = NewPiece(Black, backRank[i])
	}
}

// Clear removes every piece.
func (b *Board) Clear() {
	b.pieces = make(map[string]Piece, 32)
}

// Place puts p on pos without any rule check, replacing what stood there.
// It exists for undo, loaders and setup; regular play goes through ApplyMove.
func (b *Board) Place(pos string, p Piece) error {
	if !PositionIsValid(pos) {
		return fmt.Errorf("%w: %q", ErrInvalidPosition, pos)
	}
	if p.IsZero() {
		delete(b.pieces, pos)
		return nil
	}
	b.pieces[pos] = p
	return nil
}

// Remove empties pos and returns what stood there.
func (b *Board) Remove(pos string) Piece {
	p := b.pieces[pos]
	delete(b.pieces, pos)
	return p
}

// Pieces returns a copy of the position -> piece mapping.
func (b *Board) Pieces() map[string]Piece {
	out := make(map[string]Piece, len(b.pieces))
	for k, v := range b.pieces {
		out[k] = v
	}
	return out
}

// Positions returns the occupied positions in a1, b1 .. h8 order.
func (b *Board) Positions() []string {
	out := make([]string, 0, len(b.pieces))
	for pos := range b.pieces {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][1] != out[j][1] {
			return out[i][1] < out[j][1]
		}
		return out[i][0] < out[j][0]
	})
	return out
}

// Clone returns an independent copy of the board.
func (b *Board) Clone() *Board {
	return &Board{pieces: b.Pieces()}
}

// Equal reports whether both boards have identical occupancy.
func (b *Board) Equal(o *Board) bool {
	if o == nil || len(b.pieces) != len(o.pieces) {
		return false
	}
	for k, v := range b.pieces {
		if o.pieces[k] != v {
			return false
		}
	}
	return true
}
