package client

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/echecs/internal/httpapi"
	"github.com/park285/echecs/internal/lobby"
	"github.com/park285/echecs/internal/savegame"
	"github.com/park285/echecs/internal/session"
	"github.com/park285/echecs/pkg/echecsdto"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func serve(t *testing.T, h fasthttp.RequestHandler) *fasthttputil.InmemoryListener {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: h}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })
	return ln
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sessions := session.NewManagerWithClient(rdb)
	srv := httpapi.New(sessions, nil, nil)
	srv.AttachSaves(savegame.NewRedisStore(rdb, 0))
	srv.AttachLobbies(lobby.NewManager(rdb, sessions))
	ln := serve(t, srv.Handler())
	return New("http://echecs.test", WithDial(func(string) (net.Conn, error) { return ln.Dial() }), WithTimeout(5*time.Second))
}

func TestClientGameFlow(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	if err := c.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}
	st, err := c.CreateGame(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if st.ActivePlayer != "white" || st.ID == "" {
		t.Fatalf("unexpected state: %+v", st)
	}

	mv, err := c.Move(ctx, st.ID, "alice", "e2", "e4")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if mv.Line != "Pawn White from e2 to e4" || mv.State.ActivePlayer != "black" {
		t.Fatalf("unexpected move response: %+v", mv)
	}

	got, err := c.Game(ctx, st.ID)
	if err != nil {
		t.Fatalf("Game: %v", err)
	}
	if got.MoveCount != 1 {
		t.Fatalf("move count = %d", got.MoveCount)
	}

	f, err := c.FEN(ctx, st.ID)
	if err != nil || f != "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b - - 0 1" {
		t.Fatalf("FEN = %q, %v", f, err)
	}

	lines, err := c.History(ctx, st.ID)
	if err != nil || len(lines) != 1 {
		t.Fatalf("History = %v, %v", lines, err)
	}

	png, err := c.BoardPNG(ctx, st.ID)
	if err != nil {
		t.Fatalf("BoardPNG: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatalf("not a png")
	}

	games, err := c.PlayerGames(ctx, "bob")
	if err != nil || len(games) != 1 || games[0].ID != st.ID {
		t.Fatalf("PlayerGames = %v, %v", games, err)
	}

	undo, err := c.Undo(ctx, st.ID, "alice")
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if undo.Undone != "Pawn White from e2 to e4" || undo.State.ActivePlayer != "white" {
		t.Fatalf("unexpected undo: %+v", undo)
	}

	if _, err := c.Move(ctx, st.ID, "alice", "d2", "d4"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if err := c.Save(ctx, st.ID, "alice", "queen-pawn"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	names, err := c.Saves(ctx)
	if err != nil || len(names) != 1 || names[0] != "queen-pawn" {
		t.Fatalf("Saves = %v, %v", names, err)
	}

	reset, err := c.Reset(ctx, st.ID, "bob")
	if err != nil || reset.MoveCount != 0 {
		t.Fatalf("Reset = %+v, %v", reset, err)
	}

	loaded, err := c.Load(ctx, st.ID, "bob", "queen-pawn")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Pieces["d4"] != "Pawn White" || loaded.ActivePlayer != "black" {
		t.Fatalf("loaded = %+v", loaded)
	}
	if _, err := c.Load(ctx, st.ID, "bob", "missing"); err == nil {
		t.Fatalf("expected error for missing save")
	}
}

func TestClientDomainErrors(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	st, err := c.CreateGame(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	tests := []struct {
		name   string
		player string
		from   string
		to     string
		code   string
	}{
		{"not your seat", "bob", "e2", "e4", echecsdto.CodeNotYourSeat},
		{"empty square", "alice", "e4", "e5", echecsdto.CodeNoPiece},
		{"illegal", "alice", "e2", "e5", echecsdto.CodeMoveRejected},
		{"off the board", "alice", "z9", "e4", echecsdto.CodeNoPiece},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Move(ctx, st.ID, tt.player, tt.from, tt.to)
			var de echecsdto.DomainError
			if !errors.As(err, &de) {
				t.Fatalf("expected DomainError, got %v", err)
			}
			if de.Code != tt.code {
				t.Fatalf("code = %q, want %q", de.Code, tt.code)
			}
		})
	}

	_, err = c.Game(ctx, "missing")
	var de echecsdto.DomainError
	if !errors.As(err, &de) || de.Code != echecsdto.CodeNotFound {
		t.Fatalf("missing game err = %v", err)
	}
}

func TestClientLobby(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	l, err := c.MakeLobby(ctx, "alice", "black")
	if err != nil {
		t.Fatalf("MakeLobby: %v", err)
	}
	list, err := c.Lobbies(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("Lobbies = %v, %v", list, err)
	}
	joined, err := c.JoinLobby(ctx, l.Code, "bob")
	if err != nil {
		t.Fatalf("JoinLobby: %v", err)
	}
	if joined.WhiteID != "bob" || joined.GameID == "" {
		t.Fatalf("joined = %+v", joined)
	}
	if _, err := c.Move(ctx, joined.GameID, "bob", "e2", "e4"); err != nil {
		t.Fatalf("Move: %v", err)
	}

	_, err = c.JoinLobby(ctx, l.Code, "carol")
	var de echecsdto.DomainError
	if !errors.As(err, &de) || de.Code != echecsdto.CodeLobbyStarted {
		t.Fatalf("late join err = %v", err)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ln := serve(t, func(ctx *fasthttp.RequestCtx) {
		if calls.Add(1) < 2 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			ctx.SetBodyString("busy")
			return
		}
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"status":"ok"}`)
	})
	c := New("http://echecs.test", WithDial(func(string) (net.Conn, error) { return ln.Dial() }), WithRetry(3))

	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestClientDoesNotRetryUndo(t *testing.T) {
	var calls atomic.Int32
	ln := serve(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString("boom")
	})
	c := New("http://echecs.test", WithDial(func(string) (net.Conn, error) { return ln.Dial() }), WithRetry(3))

	_, err := c.Undo(context.Background(), "g", "alice")
	var de echecsdto.DomainError
	if !errors.As(err, &de) || de.Code != echecsdto.CodeInternal || !de.Retryable {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("undo was retried: %d calls", calls.Load())
	}
}

func TestBackoffDuration(t *testing.T) {
	if backoffDuration(1) != 100*time.Millisecond || backoffDuration(3) != 400*time.Millisecond {
		t.Fatalf("unexpected backoff")
	}
	if backoffDuration(10) != backoffDuration(6) {
		t.Fatalf("backoff should cap")
	}
}
