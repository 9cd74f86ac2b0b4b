// Package fen converts boards to and from Forsyth-Edwards Notation using
// the chess library's board model. Castling rights and en passant do not
// exist in this game and are always written as "-".
package fen

import (
	"errors"
	"fmt"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/echecs/internal/rules"
)

// ErrInvalid is returned by Decode for a record it cannot read.
var ErrInvalid = errors.New("invalid fen")

var kinds = map[rules.Kind]nchess.PieceType{
	rules.King:   nchess.King,
	rules.Queen:  nchess.Queen,
	rules.Rook:   nchess.Rook,
	rules.Bishop: nchess.Bishop,
	rules.Knight: nchess.Knight,
	rules.Pawn:   nchess.Pawn,
}

// Encode renders the board with active to move.
func Encode(b *rules.Board, active rules.Color) string {
	squares := make(map[nchess.Square]nchess.Piece, b.Len())
	for pos, p := range b.Pieces() {
		squares[toSquare(pos)] = toPiece(p)
	}
	turn := "w"
	if active == rules.Black {
		turn = "b"
	}
	return fmt.Sprintf("%s %s - - 0 1", nchess.NewBoard(squares).String(), turn)
}

// Decode reads a full FEN record. Castling, en passant and move counters
// are accepted and ignored.
func Decode(s string) (*rules.Board, rules.Color, error) {
	opt, err := nchess.FEN(s)
	if err != nil {
		return nil, rules.NoColor, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	pos := nchess.NewGame(opt).Position()

	b := rules.NewEmptyBoard()
	for sq, p := range pos.Board().SquareMap() {
		piece, ok := fromPiece(p)
		if !ok {
			continue
		}
		square, err := fromSquare(sq)
		if err != nil {
			return nil, rules.NoColor, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		if err := b.Place(square, piece); err != nil {
			return nil, rules.NoColor, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	active := rules.White
	if pos.Turn() == nchess.Black {
		active = rules.Black
	}
	return b, active, nil
}

func toSquare(pos string) nchess.Square {
	return nchess.NewSquare(nchess.File(pos[0]-'a'), nchess.Rank(pos[1]-'1'))
}

// fromSquare maps the library's zero-based file and rank to a symbol.
func fromSquare(sq nchess.Square) (string, error) {
	pos, ok := rules.Position(int(sq.File()), int(sq.Rank())+1)
	if !ok {
		return "", fmt.Errorf("%w: square %d", rules.ErrInvalidPosition, int(sq))
	}
	return pos, nil
}

func toPiece(p rules.Piece) nchess.Piece {
	c := nchess.White
	if p.Color == rules.Black {
		c = nchess.Black
	}
	return nchess.NewPiece(kinds[p.Kind], c)
}

func fromPiece(p nchess.Piece) (rules.Piece, bool) {
	if p == nchess.NoPiece {
		return rules.NoPiece, false
	}
	for k, t := range kinds {
		if t == p.Type() {
			c := rules.White
			if p.Color() == nchess.Black {
				c = rules.Black
			}
			return rules.NewPiece(c, k), true
		}
	}
	return rules.NoPiece, false
}
