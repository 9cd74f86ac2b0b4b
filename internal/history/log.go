package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/park285/echecs/internal/game"
	"github.com/park285/echecs/internal/obslog"
	"github.com/park285/echecs/internal/rules"
	"go.uber.org/zap"
)

// ErrNothingToUndo is returned by Undo on an empty log.
var ErrNothingToUndo = errors.New("nothing to undo")

// Sink receives log lines as they are produced.
type Sink interface {
	Append(line string) error
	Truncate() error
}

// FileSink appends lines to a text file.
type FileSink struct {
	Path string
}

func (s FileSink) Append(line string) error {
	if err := ensureDir(s.Path); err != nil {
		return err
	}
	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

func (s FileSink) Truncate() error {
	if err := ensureDir(s.Path); err != nil {
		return err
	}
	return os.WriteFile(s.Path, nil, 0o644)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Log is the in-memory move list of one game, mirrored to an optional sink.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	sink    Sink
}

// NewLog returns an empty log. sink may be nil.
func NewLog(sink Sink) *Log { return &Log{sink: sink} }

// FromEntries seeds a log, e.g. with the result of Parse.
func FromEntries(entries []Entry, sink Sink) *Log {
	return &Log{entries: append([]Entry(nil), entries...), sink: sink}
}

// Record appends the move. The entry is kept even if the sink fails.
func (l *Log) Record(mv rules.Move) error {
	e := FromMove(mv)
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	return l.write(e.String())
}

func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Lines renders every entry, oldest first.
func (l *Log) Lines() []string {
	return l.Recent(0)
}

// Recent renders the last n entries; n <= 0 means all of them.
func (l *Log) Recent(n int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	from := 0
	if n > 0 && len(l.entries) > n {
		from = len(l.entries) - n
	}
	out := make([]string, 0, len(l.entries)-from)
	for _, e := range l.entries[from:] {
		out = append(out, e.String())
	}
	return out
}

// Clear empties the log and truncates the sink, as on a new game.
func (l *Log) Clear() error {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
	if l.sink == nil {
		return nil
	}
	return l.sink.Truncate()
}

// Undo takes back the last recorded move on g: the mover returns to its
// source, a captured piece reappears on the target and the turn goes back.
func (l *Log) Undo(g *game.Game) (Entry, error) {
	l.mu.Lock()
	if len(l.entries) == 0 {
		l.mu.Unlock()
		return Entry{}, ErrNothingToUndo
	}
	last := l.entries[len(l.entries)-1]
	err := g.Rewind(func(b *rules.Board) error {
		return Revert(b, last)
	})
	if err != nil {
		l.mu.Unlock()
		return Entry{}, err
	}
	l.entries = l.entries[:len(l.entries)-1]
	l.mu.Unlock()

	obslog.L().Info("history_undo",
		zap.String("piece", last.Piece.String()),
		zap.String("from", last.From),
		zap.String("to", last.To),
		zap.String("restored", last.Captured.String()),
	)
	return last, l.write(UndoMarker)
}

// Revert puts the board back as it was before e. The board is untouched
// when e does not match it.
func Revert(b *rules.Board, e Entry) error {
	if b.PieceAt(e.To) != e.Piece {
		return fmt.Errorf("undo %s: %s is not on %s", e, e.Piece, e.To)
	}
	if b.Occupied(e.From) {
		return fmt.Errorf("undo %s: %s is occupied", e, e.From)
	}
	b.Remove(e.To)
	if err := b.Place(e.From, e.Piece); err != nil {
		return err
	}
	if e.IsCapture() {
		if err := b.Place(e.To, e.Captured); err != nil {
			return err
		}
	}
	return nil
}

func (l *Log) write(line string) error {
	if l.sink == nil {
		return nil
	}
	if err := l.sink.Append(line); err != nil {
		obslog.L().Warn("history_sink_error", zap.Error(err))
		return err
	}
	return nil
}
