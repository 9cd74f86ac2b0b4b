package savegame

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/echecs/internal/game"
	"github.com/park285/echecs/internal/rules"
	"github.com/redis/go-redis/v9"
)

func playedGame(t *testing.T) *game.Game {
	t.Helper()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := game.New(game.WithClock(func() time.Time { return now }))
	for _, m := range [][2]string{{"e2", "e4"}, {"d7", "d5"}, {"e4", "d5"}} {
		now = now.Add(3 * time.Second)
		if _, err := g.RequestMove(m[0], m[1]); err != nil {
			t.Fatalf("RequestMove %v: %v", m, err)
		}
	}
	return g
}

func TestCaptureRestoreRoundTrip(t *testing.T) {
	g := playedGame(t)
	snap := Capture(g)
	if snap.ActivePlayer != "black" || snap.Pieces["d5"] != "Pawn White" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.WhiteSeconds != 3 || snap.BlackSeconds != 0 {
		t.Fatalf("clock totals = %v/%v", snap.WhiteSeconds, snap.BlackSeconds)
	}

	other := game.New()
	if err := Restore(other, snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !other.Board().Equal(g.Board()) || other.ActivePlayer() != rules.Black {
		t.Fatalf("restored state differs")
	}
	if w, _ := other.Totals(); w != 3*time.Second {
		t.Fatalf("white total = %v", w)
	}
}

func TestCaptureWhileMoving(t *testing.T) {
	g := game.New()
	shuffle := [][2]string{{"g1", "f3"}, {"g8", "f6"}, {"f3", "g1"}, {"f6", "g8"}}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			mv := shuffle[i%len(shuffle)]
			if _, err := g.RequestMove(mv[0], mv[1]); err != nil {
				t.Errorf("RequestMove(%s,%s): %v", mv[0], mv[1], err)
				return
			}
		}
	}()
	for i := 0; i < 200; i++ {
		snap := Capture(g)
		if len(snap.Pieces) != 32 {
			t.Fatalf("captured %d pieces", len(snap.Pieces))
		}
		if snap.ActivePlayer != "white" && snap.ActivePlayer != "black" {
			t.Fatalf("active = %q", snap.ActivePlayer)
		}
	}
	<-done
}

func TestFromBoard(t *testing.T) {
	b := rules.NewEmptyBoard()
	if err := b.Place("e1", rules.NewPiece(rules.White, rules.King)); err != nil {
		t.Fatal(err)
	}
	snap := FromBoard(b, rules.Black, 2*time.Second, 0)
	if snap.ActivePlayer != "black" || snap.Pieces["e1"] != "King White" || snap.WhiteSeconds != 2 {
		t.Fatalf("FromBoard = %+v", snap)
	}
	g := game.New()
	if err := Restore(g, snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if g.Winner() != rules.White {
		t.Fatalf("winner = %v", g.Winner())
	}
}

func TestRestoreRejectsMalformed(t *testing.T) {
	good := Capture(game.New())
	tests := []struct {
		name string
		mod  func(*Snapshot)
	}{
		{"nil pieces", func(s *Snapshot) { s.Pieces = nil }},
		{"bad square", func(s *Snapshot) { s.Pieces["z9"] = "Pawn White" }},
		{"bad kind", func(s *Snapshot) { s.Pieces["e4"] = "Dragon White" }},
		{"bad color", func(s *Snapshot) { s.Pieces["e4"] = "Pawn Green" }},
		{"no player", func(s *Snapshot) { s.ActivePlayer = "" }},
		{"negative clock", func(s *Snapshot) { s.BlackSeconds = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := good
			s.Pieces = make(map[string]string, len(good.Pieces))
			for k, v := range good.Pieces {
				s.Pieces[k] = v
			}
			tt.mod(&s)
			g := playedGame(t)
			before := g.Board().Clone()
			if err := Restore(g, s); !errors.Is(err, ErrMalformed) {
				t.Fatalf("err = %v, want ErrMalformed", err)
			}
			if !g.Board().Equal(before) {
				t.Fatalf("game modified by rejected restore")
			}
		})
	}
}

func TestCodecsDetectMissingFields(t *testing.T) {
	if _, err := (JSONCodec{}).Unmarshal([]byte(`{"pieces":{},"white_seconds":0,"black_seconds":0}`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("json missing active_player: %v", err)
	}
	if _, err := (JSONCodec{}).Unmarshal([]byte(`{"pieces":{},"active_player":"white","white_seconds":0,"black_seconds":0,"extra":1}`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("json unknown field: %v", err)
	}
	if _, err := (YAMLCodec{}).Unmarshal([]byte("pieces: {}\nactive_player: white\n")); !errors.Is(err, ErrMalformed) {
		t.Fatalf("yaml missing clocks: %v", err)
	}
	if _, err := (JSONCodec{}).Unmarshal([]byte(`not json`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("garbage: %v", err)
	}
}

func TestCodecFor(t *testing.T) {
	if _, ok := CodecFor("a/b.yml").(YAMLCodec); !ok {
		t.Fatalf(".yml should use YAML")
	}
	if _, ok := CodecFor("a/b.YAML").(YAMLCodec); !ok {
		t.Fatalf(".YAML should use YAML")
	}
	if _, ok := CodecFor("b.json").(JSONCodec); !ok {
		t.Fatalf(".json should use JSON")
	}
	if _, ok := CodecFor("b").(JSONCodec); !ok {
		t.Fatalf("no extension should use JSON")
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "saves")
	st := NewFileStore(dir)
	snap := Capture(playedGame(t))

	if err := st.Save(ctx, "partie1", snap); err != nil {
		t.Fatalf("Save json: %v", err)
	}
	if err := st.Save(ctx, "partie2.yaml", snap); err != nil {
		t.Fatalf("Save yaml: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "partie2.yaml"))
	if err != nil || !strings.Contains(string(raw), "active_player: black") {
		t.Fatalf("yaml file: %q %v", raw, err)
	}

	for _, name := range []string{"partie1", "partie2.yaml"} {
		got, err := st.Load(ctx, name)
		if err != nil {
			t.Fatalf("Load %s: %v", name, err)
		}
		if got.ActivePlayer != snap.ActivePlayer || len(got.Pieces) != len(snap.Pieces) {
			t.Fatalf("Load %s mismatch: %+v", name, got)
		}
	}

	names, err := st.List(ctx)
	if err != nil || fmt.Sprint(names) != "[partie1 partie2]" {
		t.Fatalf("List = %v, %v", names, err)
	}
	if _, err := st.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
	if err := st.Save(ctx, "../escape", snap); err == nil {
		t.Fatalf("expected invalid name error")
	}
}

type fixedPath string

func (p fixedPath) Path(string) (string, error) { return string(p), nil }

func TestFileStoreWithPathProvider(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chosen.yml")
	st := NewFileStoreWithPaths(filepath.Dir(path), fixedPath(path))
	if err := st.Save(ctx, "ignored", Capture(game.New())); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("provider path not used: %v", err)
	}
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	st := NewRedisStore(rdb, time.Hour)
	snap := Capture(playedGame(t))
	if err := st.Save(ctx, "b", snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := st.Save(ctx, "a", snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ttl := mr.TTL("echecs:save:a"); ttl != time.Hour {
		t.Fatalf("ttl = %v", ttl)
	}
	got, err := st.Load(ctx, "a")
	if err != nil || got.Pieces["d5"] != "Pawn White" {
		t.Fatalf("Load = %+v, %v", got, err)
	}
	names, err := st.List(ctx)
	if err != nil || fmt.Sprint(names) != "[a b]" {
		t.Fatalf("List = %v, %v", names, err)
	}
	if _, err := st.Load(ctx, "zzz"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}

	mr.Set("echecs:save:broken", `{"pieces":{}}`)
	if _, err := st.Load(ctx, "broken"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("broken err = %v", err)
	}
}
