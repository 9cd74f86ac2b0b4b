package fen

import (
	"errors"
	"testing"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/echecs/internal/rules"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w - - 0 1"

func TestEncodeStart(t *testing.T) {
	if got := Encode(rules.NewBoard(), rules.White); got != startFEN {
		t.Fatalf("Encode = %q", got)
	}
}

func TestEncodeAfterMove(t *testing.T) {
	b := rules.NewBoard()
	if _, err := b.ApplyMove("e2", "e4"); err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	want := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b - - 0 1"
	if got := Encode(b, rules.Black); got != want {
		t.Fatalf("Encode = %q, want %q", got, want)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	b, active, err := Decode("rnbqkbnr/pp1ppppp/8/2p5/4P3/8/PPPP1PPP/RNBQKBNR w KQkq c6 0 2")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if active != rules.White {
		t.Fatalf("active = %v", active)
	}
	if b.PieceAt("c5") != rules.NewPiece(rules.Black, rules.Pawn) || b.PieceAt("e4") != rules.NewPiece(rules.White, rules.Pawn) {
		t.Fatalf("pieces misplaced:\n%s", b)
	}
	if b.Len() != 32 {
		t.Fatalf("len = %d", b.Len())
	}
	if got := Encode(b, active); got != "rnbqkbnr/pp1ppppp/8/2p5/4P3/8/PPPP1PPP/RNBQKBNR w - - 0 1" {
		t.Fatalf("re-encode = %q", got)
	}
}

func TestDecodeStartMatchesNewBoard(t *testing.T) {
	b, active, err := Decode(startFEN)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if active != rules.White || !b.Equal(rules.NewBoard()) {
		t.Fatalf("start position mismatch")
	}
}

func TestDecodeEdgeRanks(t *testing.T) {
	b, active, err := Decode("4k3/8/8/8/8/8/8/R3K3 b - - 0 1")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if active != rules.Black {
		t.Fatalf("active = %v", active)
	}
	want := map[string]rules.Piece{
		"e8": rules.NewPiece(rules.Black, rules.King),
		"e1": rules.NewPiece(rules.White, rules.King),
		"a1": rules.NewPiece(rules.White, rules.Rook),
	}
	if b.Len() != len(want) {
		t.Fatalf("len = %d:\n%s", b.Len(), b)
	}
	for pos, p := range want {
		if b.PieceAt(pos) != p {
			t.Fatalf("%s = %v, want %v", pos, b.PieceAt(pos), p)
		}
	}
}

func TestSquareMapping(t *testing.T) {
	tests := []struct {
		sq   nchess.Square
		want string
	}{
		{nchess.A1, "a1"},
		{nchess.E4, "e4"},
		{nchess.H8, "h8"},
	}
	for _, tt := range tests {
		got, err := fromSquare(tt.sq)
		if err != nil || got != tt.want {
			t.Fatalf("fromSquare(%v) = %q, %v; want %q", tt.sq, got, err, tt.want)
		}
		if toSquare(tt.want) != tt.sq {
			t.Fatalf("toSquare(%s) = %v", tt.want, toSquare(tt.want))
		}
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, _, err := Decode("not a fen"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v", err)
	}
}
