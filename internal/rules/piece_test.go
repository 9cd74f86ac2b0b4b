package rules

import "testing"

func TestPieceMovement(t *testing.T) {
	tests := []struct {
		name   string
		piece  Piece
		from   string
		to     string
		move   bool
		attack bool
	}{
		{"white pawn one step", NewPiece(White, Pawn), "e2", "e3", true, false},
		{"white pawn double from start", NewPiece(White, Pawn), "e2", "e4", true, false},
		{"white pawn double off start", NewPiece(White, Pawn), "e3", "e5", false, false},
		{"white pawn triple", NewPiece(White, Pawn), "e2", "e5", false, false},
		{"white pawn backwards", NewPiece(White, Pawn), "e4", "e3", false, false},
		{"white pawn sideways", NewPiece(White, Pawn), "e4", "f4", false, false},
		{"white pawn diagonal", NewPiece(White, Pawn), "e4", "d5", false, true},
		{"white pawn diagonal back", NewPiece(White, Pawn), "e4", "d3", false, false},
		{"black pawn one step", NewPiece(Black, Pawn), "d7", "d6", true, false},
		{"black pawn double from start", NewPiece(Black, Pawn), "d7", "d5", true, false},
		{"black pawn upwards", NewPiece(Black, Pawn), "d6", "d7", false, false},
		{"black pawn diagonal", NewPiece(Black, Pawn), "d5", "e4", false, true},
		{"rook file", NewPiece(White, Rook), "a1", "a8", true, true},
		{"rook rank", NewPiece(Black, Rook), "h8", "b8", true, true},
		{"rook diagonal", NewPiece(White, Rook), "a1", "b2", false, false},
		{"knight up right", NewPiece(White, Knight), "b1", "c3", true, true},
		{"knight flat", NewPiece(White, Knight), "g1", "e2", true, true},
		{"knight down left", NewPiece(Black, Knight), "d4", "c2", true, true},
		{"knight straight", NewPiece(White, Knight), "b1", "b3", false, false},
		{"bishop up right", NewPiece(White, Bishop), "c1", "h6", true, true},
		{"bishop up left", NewPiece(White, Bishop), "f1", "a6", true, true},
		{"bishop down right", NewPiece(Black, Bishop), "c8", "h3", true, true},
		{"bishop down left", NewPiece(Black, Bishop), "f8", "b4", true, true},
		{"bishop uneven", NewPiece(White, Bishop), "c1", "d3", false, false},
		{"king step", NewPiece(White, King), "e1", "f2", true, true},
		{"king two", NewPiece(White, King), "e1", "g1", false, false},
		{"queen file", NewPiece(White, Queen), "d1", "d7", true, true},
		{"queen diagonal", NewPiece(White, Queen), "d1", "h5", true, true},
		{"queen knight hop", NewPiece(White, Queen), "d1", "e3", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.piece.CanMoveTo(tt.from, tt.to); got != tt.move {
				t.Fatalf("CanMoveTo(%s,%s) = %v, want %v", tt.from, tt.to, got, tt.move)
			}
			if got := tt.piece.CanCaptureTo(tt.from, tt.to); got != tt.attack {
				t.Fatalf("CanCaptureTo(%s,%s) = %v, want %v", tt.from, tt.to, got, tt.attack)
			}
		})
	}
}

func TestPieceRejectsSameSquareAndBadInput(t *testing.T) {
	for _, k := range []Kind{Pawn, Rook, Knight, Bishop, King, Queen} {
		p := NewPiece(White, k)
		if p.CanMoveTo("d4", "d4") || p.CanCaptureTo("d4", "d4") {
			t.Fatalf("%s accepted a null move", p)
		}
		if p.CanMoveTo("d4", "d9") || p.CanMoveTo("x4", "d5") {
			t.Fatalf("%s accepted an off-board symbol", p)
		}
	}
}

func TestCanJump(t *testing.T) {
	for _, k := range []Kind{Pawn, Rook, Bishop, King, Queen} {
		if NewPiece(Black, k).CanJump() {
			t.Fatalf("%s should not jump", k)
		}
	}
	if !NewPiece(Black, Knight).CanJump() {
		t.Fatalf("knight should jump")
	}
}

func TestParsePiece(t *testing.T) {
	tests := []struct {
		in   string
		want Piece
		ok   bool
	}{
		{"Pawn White", NewPiece(White, Pawn), true},
		{"queen black", NewPiece(Black, Queen), true},
		{"Cavalier Noir", NewPiece(Black, Knight), true},
		{"Roi Blanc", NewPiece(White, King), true},
		{"Dragon White", NoPiece, false},
		{"Pawn", NoPiece, false},
		{"Pawn Green", NoPiece, false},
	}
	for _, tt := range tests {
		got, err := ParsePiece(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("ParsePiece(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParsePiece(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if s := NewPiece(White, Knight).String(); s != "Knight White" {
		t.Fatalf("String = %q", s)
	}
	if NewPiece(Black, Knight).Symbol() != 'n' || NewPiece(White, Queen).Symbol() != 'Q' {
		t.Fatalf("unexpected FEN symbols")
	}
}
