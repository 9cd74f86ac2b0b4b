package history

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/park285/echecs/internal/rules"
)

// UndoMarker is the log line written when a move is taken back.
const UndoMarker = "MOVE UNDONE"

// Entry is one applied move as it appears in the log.
type Entry struct {
	Piece    rules.Piece
	Captured rules.Piece
	From     string
	To       string
}

func FromMove(mv rules.Move) Entry {
	return Entry{Piece: mv.Piece, Captured: mv.Captured, From: mv.From, To: mv.To}
}

func (e Entry) IsCapture() bool { return !e.Captured.IsZero() }

// String renders "Pawn White from e2 to e4" or
// "Pawn White CAPTURES Pawn Black from e4 to d5".
func (e Entry) String() string {
	if e.IsCapture() {
		return fmt.Sprintf("%s CAPTURES %s from %s to %s", e.Piece, e.Captured, e.From, e.To)
	}
	return fmt.Sprintf("%s from %s to %s", e.Piece, e.From, e.To)
}

// ParseLine reads a line produced by Entry.String.
func ParseLine(line string) (Entry, error) {
	f := strings.Fields(line)
	var e Entry
	var rest []string
	switch {
	case len(f) == 6:
		rest = f[2:]
	case len(f) == 9 && f[2] == "CAPTURES":
		captured, err := rules.ParsePiece(f[3] + " " + f[4])
		if err != nil {
			return Entry{}, fmt.Errorf("history line %q: %w", line, err)
		}
		e.Captured = captured
		rest = f[5:]
	default:
		return Entry{}, fmt.Errorf("history line %q: unrecognised", line)
	}
	p, err := rules.ParsePiece(f[0] + " " + f[1])
	if err != nil {
		return Entry{}, fmt.Errorf("history line %q: %w", line, err)
	}
	if rest[0] != "from" || rest[2] != "to" {
		return Entry{}, fmt.Errorf("history line %q: unrecognised", line)
	}
	if !rules.PositionIsValid(rest[1]) || !rules.PositionIsValid(rest[3]) {
		return Entry{}, fmt.Errorf("history line %q: %w", line, rules.ErrInvalidPosition)
	}
	e.Piece, e.From, e.To = p, rest[1], rest[3]
	return e, nil
}

// Parse rebuilds the move list from a log. Each undo marker cancels the
// entry before it. Blank lines are skipped.
func Parse(r io.Reader) ([]Entry, error) {
	var out []Entry
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case line == UndoMarker:
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			e, err := ParseLine(line)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
