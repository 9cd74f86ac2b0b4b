package rules

import (
	"fmt"
	"strings"
)

const (
	Columns = "abcdefgh"
	Rows    = "12345678"
)

// Coords is the numeric decomposition of a source/target pair. Rows are 1..8,
// columns are zero-based (a=0 .. h=7).
type Coords struct {
	SourceRow int
	TargetRow int
	SourceCol int
	TargetCol int
	Source    string
	Target    string
}

// DeltaRow is TargetRow - SourceRow.
func (c Coords) DeltaRow() int { return c.TargetRow - c.SourceRow }

// DeltaCol is TargetCol - SourceCol.
func (c Coords) DeltaCol() int { return c.TargetCol - c.SourceCol }

// Split decomposes two position symbols. Both symbols must be valid.
func Split(source, target string) (Coords, error) {
	if !PositionIsValid(source) {
		return Coords{}, fmt.Errorf("%w: %q", ErrInvalidPosition, source)
	}
	if !PositionIsValid(target) {
		return Coords{}, fmt.Errorf("%w: %q", ErrInvalidPosition, target)
	}
	return Coords{
		SourceRow: int(source[1]-'1') + 1,
		TargetRow: int(target[1]-'1') + 1,
		SourceCol: int(source[0] - 'a'),
		TargetCol: int(target[0] - 'a'),
		Source:    source,
		Target:    target,
	}, nil
}

// PositionIsValid reports whether pos is a column letter a-h followed by a row digit 1-8.
func PositionIsValid(pos string) bool {
	if len(pos) != 2 {
		return false
	}
	return pos[0] >= 'a' && pos[0] <= 'h' && pos[1] >= '1' && pos[1] <= '8'
}

// Position builds a symbol from a zero-based column and a 1-based row.
// The second result is false when either component falls off the board.
func Position(col, row int) (string, bool) {
	if col < 0 || col > 7 || row < 1 || row > 8 {
		return "", false
	}
	return string([]byte{Columns[col], Rows[row-1]}), true
}

// RowsBetween returns the row symbols strictly between from and to, ordered
// from from towards to. Unknown symbols yield nil.
func RowsBetween(from, to byte) []byte {
	return between(Rows, from, to)
}

// ColumnsBetween is RowsBetween for column letters.
func ColumnsBetween(from, to byte) []byte {
	return between(Columns, from, to)
}

func between(axis string, from, to byte) []byte {
	start, end := strings.IndexByte(axis, from), strings.IndexByte(axis, to)
	if start < 0 || end < 0 {
		return nil
	}
	var out []byte
	switch {
	case start < end:
		for i := start + 1; i < end; i++ {
			out = append(out, axis[i])
		}
	case start > end:
		for i := start - 1; i > end; i-- {
			out = append(out, axis[i])
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
