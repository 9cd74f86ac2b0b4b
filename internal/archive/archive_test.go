package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func sampleRecord(id string, ended time.Time) *Record {
	return &Record{
		GameID:       id,
		WhiteID:      "alice",
		BlackID:      "bob",
		Winner:       "white",
		Moves:        []string{"Pawn White from e2 to e4", "Pawn Black from e7 to e5"},
		WhiteSeconds: 12.5,
		BlackSeconds: 9,
		StartedAt:    ended.Add(-time.Minute),
		EndedAt:      ended,
	}
}

func TestRecordResult(t *testing.T) {
	r := &Record{Winner: "black"}
	if r.Result() != "0-1" {
		t.Fatalf("black result = %q", r.Result())
	}
	r.Winner = ""
	if r.Result() != "*" {
		t.Fatalf("open result = %q", r.Result())
	}
	r.StartedAt = time.Now()
	r.EndedAt = r.StartedAt.Add(-time.Second)
	if r.Duration() != 0 {
		t.Fatalf("negative duration not clamped")
	}
}

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := repo.Save(ctx, sampleRecord("g1", base)); err != nil {
		t.Fatalf("Save g1: %v", err)
	}
	if err := repo.Save(ctx, sampleRecord("g2", base.Add(time.Hour))); err != nil {
		t.Fatalf("Save g2: %v", err)
	}
	upd := sampleRecord("g1", base)
	upd.Winner = "black"
	if err := repo.Save(ctx, upd); err != nil {
		t.Fatalf("Save update: %v", err)
	}

	got, err := repo.Get(ctx, "g1")
	if err != nil || got.Winner != "black" {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	got.Moves[0] = "mutated"
	again, _ := repo.Get(ctx, "g1")
	if again.Moves[0] == "mutated" {
		t.Fatalf("Get returned shared slice")
	}

	recent, err := repo.Recent(ctx, "bob", 10)
	if err != nil || len(recent) != 2 || recent[0].GameID != "g2" {
		t.Fatalf("Recent = %v, %v", recent, err)
	}
	if recent, _ := repo.Recent(ctx, "alice", 1); len(recent) != 1 {
		t.Fatalf("limit ignored")
	}
	if _, err := repo.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
	if err := repo.Save(ctx, &Record{}); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func newMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

func TestPostgresSave(t *testing.T) {
	repo, mock := newMock(t)
	rec := sampleRecord("g1", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	mock.ExpectExec(`(?s)INSERT INTO echecs_games .* ON CONFLICT \(game_id\) DO UPDATE`).
		WithArgs("g1", "alice", "bob", "white", "1-0", sqlmock.AnyArg(),
			12.5, 9.0, rec.StartedAt, rec.EndedAt, int64(60000)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresGetAndRecent(t *testing.T) {
	repo, mock := newMock(t)
	ended := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	cols := []string{"game_id", "white_id", "black_id", "winner", "moves",
		"white_seconds", "black_seconds", "started_at", "ended_at"}

	mock.ExpectQuery(`(?s)SELECT .* FROM echecs_games\s+WHERE game_id = \$1`).
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("g1", "alice", "bob", "white", []byte(`["Pawn White from e2 to e4"]`), 1.5, 0.0, ended.Add(-time.Minute), ended))
	mock.ExpectQuery(`(?s)SELECT .* FROM echecs_games\s+WHERE game_id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(cols))
	mock.ExpectQuery(`(?s)SELECT .* FROM echecs_games\s+WHERE white_id = \$1 OR black_id = \$1 ORDER BY ended_at DESC LIMIT \$2`).
		WithArgs("bob", 10).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("g2", "bob", "carol", "", []byte(`[]`), 0.0, 0.0, ended, ended.Add(time.Hour)).
			AddRow("g1", "alice", "bob", "white", []byte(`["x"]`), 1.5, 0.0, ended.Add(-time.Minute), ended))

	ctx := context.Background()
	rec, err := repo.Get(ctx, "g1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Winner != "white" || len(rec.Moves) != 1 || rec.WhiteSeconds != 1.5 {
		t.Fatalf("Get = %+v", rec)
	}
	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
	list, err := repo.Recent(ctx, "bob", 0)
	if err != nil || len(list) != 2 || list[0].GameID != "g2" {
		t.Fatalf("Recent = %v, %v", list, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresEnsureSchema(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS echecs_games`).WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestOpenRequiresURL(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatalf("expected error")
	}
}
