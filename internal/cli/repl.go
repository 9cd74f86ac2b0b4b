package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/park285/echecs/internal/fen"
	"github.com/park285/echecs/internal/game"
	"github.com/park285/echecs/internal/history"
	"github.com/park285/echecs/internal/msgcat"
	"github.com/park285/echecs/internal/obslog"
	"github.com/park285/echecs/internal/rules"
	"github.com/park285/echecs/pkg/echecsdto"
	"go.uber.org/zap"
)

const defaultHistoryLimit = 10

// REPL reads commands line by line and prints the board after each change.
type REPL struct {
	backend Backend
	msgs    *msgcat.Catalog
	out     io.Writer

	unicode      bool
	historyLimit int

	errStyle  *color.Color
	okStyle   *color.Color
	infoStyle *color.Color
}

type Option func(*REPL)

func WithUnicode(on bool) Option { return func(r *REPL) { r.unicode = on } }

// WithColor turns ANSI colors on or off. Colors follow the terminal by
// default.
func WithColor(on bool) Option {
	return func(r *REPL) {
		for _, c := range []*color.Color{r.errStyle, r.okStyle, r.infoStyle} {
			if on {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

func WithHistoryLimit(n int) Option {
	return func(r *REPL) {
		if n > 0 {
			r.historyLimit = n
		}
	}
}

func New(b Backend, msgs *msgcat.Catalog, out io.Writer, opts ...Option) *REPL {
	if msgs == nil {
		msgs = msgcat.MustDefault()
	}
	r := &REPL{
		backend:      b,
		msgs:         msgs,
		out:          out,
		historyLimit: defaultHistoryLimit,
		errStyle:     color.New(color.FgRed),
		okStyle:      color.New(color.FgGreen),
		infoStyle:    color.New(color.FgCyan, color.Bold),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run shows the board and executes commands from in until quit or EOF.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	if err := r.showBoard(ctx); err != nil {
		return err
	}
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(r.out)
			return sc.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.Exec(ctx, sc.Text()) {
			return nil
		}
	}
}

// Exec runs one command line and reports whether the session should end.
func (r *REPL) Exec(ctx context.Context, line string) bool {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprint(r.out, r.msgs.Text("cli.help", nil))
	case "undo":
		r.undo(ctx)
	case "history":
		r.history(ctx)
	case "fen":
		if len(fields) == 1 {
			r.fen(ctx)
			return false
		}
		// FEN is case sensitive: take the record from the raw line
		r.loadFEN(ctx, strings.Join(strings.Fields(line)[1:], " "))
	case "new":
		if err := r.backend.New(ctx); err != nil {
			r.fail(err, "")
			return false
		}
		r.ok(r.msgs.Text("game.new", nil))
		r.report(ctx)
	case "save", "load":
		if len(fields) != 2 {
			r.fail(echecsdto.DomainError{Code: echecsdto.CodeBadRequest}, "")
			return false
		}
		r.saveOrLoad(ctx, fields[0], strings.Fields(line)[1])
	default:
		from, to, ok := parseMove(fields)
		if !ok {
			r.fail(echecsdto.DomainError{Code: echecsdto.CodeBadRequest}, line)
			return false
		}
		r.move(ctx, from, to)
	}
	return false
}

// parseMove accepts "e2 e4" and "e2e4".
func parseMove(fields []string) (string, string, bool) {
	switch len(fields) {
	case 2:
		return fields[0], fields[1], true
	case 1:
		if len(fields[0]) == 4 {
			return fields[0][:2], fields[0][2:], true
		}
	}
	return "", "", false
}

func (r *REPL) move(ctx context.Context, from, to string) {
	e, err := r.backend.Move(ctx, from, to)
	if err != nil {
		input := from
		if rules.PositionIsValid(from) {
			input = to
		}
		obslog.L().Debug("cli_move_rejected", zap.String("from", from), zap.String("to", to), zap.Error(err))
		r.fail(err, input)
		return
	}
	r.ok(r.describe(e))
	r.report(ctx)
}

func (r *REPL) describe(e history.Entry) string {
	if e.IsCapture() {
		return r.msgs.Text("game.captured", map[string]any{
			"Piece": e.Piece.String(), "Captured": e.Captured.String(), "To": e.To,
		})
	}
	return r.msgs.Text("game.moved", map[string]any{
		"Piece": e.Piece.String(), "From": e.From, "To": e.To,
	})
}

func (r *REPL) undo(ctx context.Context) {
	e, err := r.backend.Undo(ctx)
	if err != nil {
		r.fail(err, "")
		return
	}
	r.ok(r.msgs.Text("game.undone", map[string]any{"Entry": e.String()}))
	r.report(ctx)
}

func (r *REPL) history(ctx context.Context) {
	lines, err := r.backend.History(ctx, r.historyLimit)
	if err != nil {
		r.fail(err, "")
		return
	}
	for i, l := range lines {
		fmt.Fprintf(r.out, "%3d. %s\n", i+1, l)
	}
}

func (r *REPL) fen(ctx context.Context) {
	v, err := r.backend.View(ctx)
	if err != nil {
		r.fail(err, "")
		return
	}
	fmt.Fprintln(r.out, fen.Encode(v.Board, v.Active))
}

func (r *REPL) loadFEN(ctx context.Context, record string) {
	if err := r.backend.LoadFEN(ctx, record); err != nil {
		r.fail(err, record)
		return
	}
	r.ok(r.msgs.Text("game.fen_loaded", nil))
	r.report(ctx)
}

func (r *REPL) saveOrLoad(ctx context.Context, cmd, name string) {
	if cmd == "save" {
		if err := r.backend.Save(ctx, name); err != nil {
			r.fail(err, name)
			return
		}
		r.ok(r.msgs.Text("game.saved", map[string]any{"Name": name}))
		return
	}
	if err := r.backend.Load(ctx, name); err != nil {
		r.fail(err, name)
		return
	}
	r.ok(r.msgs.Text("game.loaded", map[string]any{"Name": name}))
	r.report(ctx)
}

func (r *REPL) report(ctx context.Context) {
	if err := r.showBoard(ctx); err != nil {
		r.fail(err, "")
	}
}

// showBoard prints the board followed by the winner, or by the turn and
// clocks.
func (r *REPL) showBoard(ctx context.Context) error {
	v, err := r.backend.View(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(r.out, v.Board.Render(r.unicode))
	if v.Winner != rules.NoColor {
		r.info(r.msgs.Text("game.winner", map[string]any{"Winner": title(v.Winner.String())}))
		return nil
	}
	r.info(r.msgs.Text("game.turn", map[string]any{"Player": title(v.Active.String())}))
	fmt.Fprintln(r.out, r.msgs.Text("game.clock", map[string]any{
		"White": game.FormatElapsed(v.White),
		"Black": game.FormatElapsed(v.Black),
	}))
	return nil
}

func (r *REPL) fail(err error, input string) {
	r.errStyle.Fprintln(r.out, r.msgs.Describe(err, input))
}

func (r *REPL) ok(s string)   { r.okStyle.Fprintln(r.out, s) }
func (r *REPL) info(s string) { r.infoStyle.Fprintln(r.out, s) }

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
