package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/echecs/internal/archive"
	"github.com/park285/echecs/internal/game"
	"github.com/park285/echecs/internal/history"
	"github.com/park285/echecs/internal/obslog"
	"github.com/park285/echecs/internal/rules"
	"github.com/park285/echecs/internal/savegame"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultTTL = 24 * time.Hour

// Manager keeps games in Redis. Writes run inside WATCH on the game key, so
// a concurrent writer makes the losing request fail with ErrConflict.
type Manager struct {
	rdb  *redis.Client
	repo archive.Repository
	ttl  time.Duration
	now  func() time.Time

	// beforeCommit runs between the read and the EXEC; tests use it to race.
	beforeCommit func()
}

type Option func(*Manager)

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager connects to redisURL and pings it.
func NewManager(redisURL string, opts ...Option) (*Manager, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for session manager")
	}
	ropts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(ropts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewManagerWithClient(rdb, opts...), nil
}

func NewManagerWithClient(rdb *redis.Client, opts ...Option) *Manager {
	m := &Manager{rdb: rdb, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Client exposes the Redis connection for stores sharing it.
func (m *Manager) Client() *redis.Client { return m.rdb }

func (m *Manager) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	return m.rdb.Close()
}

// AttachArchive wires a repository that receives finished games.
func (m *Manager) AttachArchive(r archive.Repository) {
	if m != nil {
		m.repo = r
	}
}

// Create starts a game from the standard layout.
func (m *Manager) Create(ctx context.Context, whiteID, blackID string) (*State, error) {
	whiteID, blackID = strings.TrimSpace(whiteID), strings.TrimSpace(blackID)
	if whiteID == "" || blackID == "" {
		return nil, fmt.Errorf("both players are required")
	}
	now := m.now()
	st := &State{
		ID:            uuid.NewString(),
		WhiteID:       whiteID,
		BlackID:       blackID,
		Status:        StatusActive,
		Position:      savegame.Capture(game.New()),
		CreatedAt:     now,
		UpdatedAt:     now,
		TurnStartedAt: now,
	}
	if err := m.save(ctx, st); err != nil {
		return nil, err
	}
	if err := m.indexPlayers(ctx, st); err != nil {
		return nil, err
	}
	obslog.L().Info("session_create",
		zap.String("game_id", st.ID),
		zap.String("white_id", whiteID),
		zap.String("black_id", blackID),
	)
	return st, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*State, error) {
	raw, err := m.rdb.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", id, err)
	}
	return &st, nil
}

// PlayMove applies source -> target for playerID, who must hold the seat of
// the side to move. Rule failures come back as the rules sentinels.
func (m *Manager) PlayMove(ctx context.Context, id, playerID, source, target string) (*State, rules.Move, error) {
	var mv rules.Move
	st, err := m.update(ctx, id, func(st *State, now time.Time) error {
		if st.Status != StatusActive {
			return ErrGameOver
		}
		seat := st.SeatOf(strings.TrimSpace(playerID))
		if seat == rules.NoColor || seat != st.Active() {
			return ErrNotYourSeat
		}
		g, err := st.Game()
		if err != nil {
			return err
		}
		mv, err = g.RequestMove(source, target)
		if err != nil {
			return err
		}

		pos := savegame.Capture(g)
		// each side's first turn is untimed
		if len(st.Moves) >= 2 {
			spent := now.Sub(st.TurnStartedAt).Seconds()
			if spent > 0 {
				if mv.Piece.Color == rules.White {
					pos.WhiteSeconds += spent
				} else {
					pos.BlackSeconds += spent
				}
			}
		}
		st.Position = pos
		st.Moves = append(st.Moves, history.FromMove(mv).String())
		st.TurnStartedAt = now
		if w := g.Winner(); w != rules.NoColor {
			st.Status = StatusFinished
			st.Winner = w.String()
		}
		return nil
	})
	if err != nil {
		return nil, rules.Move{}, err
	}

	obslog.L().Info("session_move",
		zap.String("game_id", st.ID),
		zap.String("player_id", playerID),
		zap.String("move", st.Moves[len(st.Moves)-1]),
		zap.String("status", string(st.Status)),
	)
	if st.Status == StatusFinished {
		_ = m.persistIfFinal(ctx, st)
	}
	return st, mv, nil
}

// Undo takes back the last move. Either player may ask while the game is
// active.
func (m *Manager) Undo(ctx context.Context, id, playerID string) (*State, history.Entry, error) {
	var undone history.Entry
	st, err := m.update(ctx, id, func(st *State, now time.Time) error {
		if st.Status != StatusActive {
			return ErrGameOver
		}
		if st.SeatOf(strings.TrimSpace(playerID)) == rules.NoColor {
			return ErrNotYourSeat
		}
		entries, err := st.History()
		if err != nil {
			return err
		}
		g, err := st.Game()
		if err != nil {
			return err
		}
		undone, err = history.FromEntries(entries, nil).Undo(g)
		if err != nil {
			return err
		}
		pos := savegame.Capture(g)
		pos.WhiteSeconds, pos.BlackSeconds = st.Position.WhiteSeconds, st.Position.BlackSeconds
		st.Position = pos
		st.Moves = st.Moves[:len(st.Moves)-1]
		st.TurnStartedAt = now
		return nil
	})
	if err != nil {
		return nil, history.Entry{}, err
	}
	obslog.L().Info("session_undo", zap.String("game_id", id), zap.String("entry", undone.String()))
	return st, undone, nil
}

// Reset puts the game back to the start: standard layout, white to move,
// clocks and moves cleared.
func (m *Manager) Reset(ctx context.Context, id, playerID string) (*State, error) {
	st, err := m.update(ctx, id, func(st *State, now time.Time) error {
		if st.SeatOf(strings.TrimSpace(playerID)) == rules.NoColor {
			return ErrNotYourSeat
		}
		st.Position = savegame.Capture(game.New())
		st.Moves = nil
		st.Status = StatusActive
		st.Winner = ""
		st.TurnStartedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("session_reset", zap.String("game_id", id))
	return st, nil
}

// Load replaces the position with snap. Moves are dropped since the saved
// position carries no history.
func (m *Manager) Load(ctx context.Context, id, playerID string, snap savegame.Snapshot) (*State, error) {
	g := game.New()
	if err := savegame.Restore(g, snap); err != nil {
		return nil, err
	}
	st, err := m.update(ctx, id, func(st *State, now time.Time) error {
		if st.SeatOf(strings.TrimSpace(playerID)) == rules.NoColor {
			return ErrNotYourSeat
		}
		st.Position = savegame.Capture(g)
		st.Moves = nil
		st.TurnStartedAt = now
		st.Status = StatusActive
		st.Winner = ""
		if w := g.Winner(); w != rules.NoColor {
			st.Status = StatusFinished
			st.Winner = w.String()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("session_load", zap.String("game_id", id), zap.String("active", st.Position.ActivePlayer))
	return st, nil
}

// ActiveByPlayer lists the player's unfinished games, newest first.
func (m *Manager) ActiveByPlayer(ctx context.Context, playerID string) ([]*State, error) {
	ids, err := m.rdb.SMembers(ctx, idxPlayerKey(playerID)).Result()
	if err != nil {
		return nil, err
	}
	var out []*State
	for _, id := range ids {
		st, err := m.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			_ = m.rdb.SRem(ctx, idxPlayerKey(playerID), id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		if st.Status == StatusActive {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// update runs fn on the stored state inside WATCH and writes the result.
func (m *Manager) update(ctx context.Context, id string, fn func(st *State, now time.Time) error) (*State, error) {
	key := gameKey(id)
	var out *State
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var cur State
		if err := json.Unmarshal(raw, &cur); err != nil {
			return fmt.Errorf("decode game %s: %w", id, err)
		}
		now := m.now()
		if err := fn(&cur, now); err != nil {
			return err
		}
		cur.UpdatedAt = now
		newRaw, err := json.Marshal(&cur)
		if err != nil {
			return err
		}
		if m.beforeCommit != nil {
			m.beforeCommit()
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newRaw, m.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		out = &cur
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		obslog.L().Warn("session_conflict", zap.String("game_id", id))
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Manager) save(ctx context.Context, st *State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, gameKey(st.ID), raw, m.ttl).Err()
}

func (m *Manager) indexPlayers(ctx context.Context, st *State) error {
	for _, p := range []string{st.WhiteID, st.BlackID} {
		key := idxPlayerKey(p)
		if err := m.rdb.SAdd(ctx, key, st.ID).Err(); err != nil {
			return err
		}
		_ = m.rdb.Expire(ctx, key, m.ttl).Err()
	}
	return nil
}

func (m *Manager) persistIfFinal(ctx context.Context, st *State) error {
	if m.repo == nil || st.Status != StatusFinished {
		return nil
	}
	rec := &archive.Record{
		GameID:       st.ID,
		WhiteID:      st.WhiteID,
		BlackID:      st.BlackID,
		Winner:       st.Winner,
		Moves:        append([]string(nil), st.Moves...),
		WhiteSeconds: st.Position.WhiteSeconds,
		BlackSeconds: st.Position.BlackSeconds,
		StartedAt:    st.CreatedAt,
		EndedAt:      st.UpdatedAt,
	}
	if err := m.repo.Save(ctx, rec); err != nil {
		obslog.L().Error("session_archive_error", zap.String("game_id", st.ID), zap.Error(err))
		return err
	}
	obslog.L().Info("session_archive", zap.String("game_id", st.ID), zap.String("winner", st.Winner))
	return nil
}

func gameKey(id string) string          { return "echecs:game:" + strings.TrimSpace(id) }
func idxPlayerKey(player string) string { return "echecs:index:player:" + strings.TrimSpace(player) }

// ParseRedisURL reads redis://[:password@]host:port[/db].
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("redis db %q: %w", p, err)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
