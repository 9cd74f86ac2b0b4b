package lobby

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/echecs/internal/obslog"
	"github.com/park285/echecs/internal/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Manager pairs two players through a short join code and starts a
// session game once the second player arrives.
type Manager struct {
	store     *store
	sessions  *session.Manager
	startGame func(ctx context.Context, whiteID, blackID string) (string, error)
	now       func() time.Time
}

type Option func(*Manager)

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.store.ttl = ttl
		}
	}
}

func NewManager(rdb *redis.Client, sessions *session.Manager, opts ...Option) *Manager {
	m := &Manager{store: &store{rdb: rdb, ttl: defaultTTL}, sessions: sessions, now: time.Now}
	m.startGame = func(ctx context.Context, whiteID, blackID string) (string, error) {
		st, err := m.sessions.Create(ctx, whiteID, blackID)
		if err != nil {
			return "", err
		}
		return st.ID, nil
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Make opens a lobby for creatorID. A player hosts at most one open lobby.
func (m *Manager) Make(ctx context.Context, creatorID string, color ColorChoice) (*Meta, error) {
	creatorID = strings.TrimSpace(creatorID)
	if creatorID == "" {
		return nil, ErrInvalidArgs
	}
	color, err := ParseColorChoice(string(color))
	if err != nil {
		return nil, err
	}

	if code, err := m.store.rdb.Get(ctx, keyHost(creatorID)).Result(); err == nil {
		if meta, lerr := m.store.load(ctx, code); lerr == nil && meta.State == StateWaiting {
			return nil, ErrAlreadyHosts
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, err
	}

	for i := 0; i < 5; i++ {
		code, err := newCode()
		if err != nil {
			return nil, err
		}
		ok, err := m.store.rdb.SetNX(ctx, keyMeta(code), "{}", m.store.ttl).Result()
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		meta := &Meta{
			Code:      code,
			State:     StateWaiting,
			CreatedAt: m.now().UTC(),
			CreatorID: creatorID,
			Color:     color,
		}
		if err := m.store.save(ctx, meta); err != nil {
			return nil, err
		}
		pipe := m.store.rdb.TxPipeline()
		pipe.Set(ctx, keyHost(creatorID), code, m.store.ttl)
		pipe.SAdd(ctx, keyWaiting(), code)
		pipe.Expire(ctx, keyWaiting(), m.store.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
		obslog.L().Info("lobby_make", zap.String("code", code), zap.String("creator_id", creatorID), zap.String("color", string(color)))
		return meta, nil
	}
	return nil, fmt.Errorf("failed to allocate lobby code")
}

// Join takes the free seat and starts the game. Of two racing joiners only
// one wins; the other gets ErrStarted.
func (m *Manager) Join(ctx context.Context, code, playerID string) (*Meta, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	playerID = strings.TrimSpace(playerID)
	if code == "" || playerID == "" {
		return nil, ErrInvalidArgs
	}

	key := keyMeta(code)
	var meta *Meta
	err := m.store.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := loadFrom(ctx, tx, code)
		if err != nil {
			return err
		}
		if cur.State != StateWaiting {
			return ErrStarted
		}
		if cur.CreatorID == playerID {
			return ErrOwnLobby
		}
		white, black, err := seats(cur.Color, cur.CreatorID, playerID)
		if err != nil {
			return err
		}
		cur.State = StateStarted
		cur.WhiteID, cur.BlackID = white, black
		raw, err := marshalMeta(cur)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, m.store.ttl)
			pipe.SRem(ctx, keyWaiting(), code)
			pipe.Del(ctx, keyHost(cur.CreatorID))
			return nil
		})
		if err != nil {
			return err
		}
		meta = cur
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return nil, ErrStarted
	}
	if err != nil {
		obslog.L().Warn("lobby_join_error", zap.String("code", code), zap.String("player_id", playerID), zap.Error(err))
		return nil, err
	}

	gameID, err := m.startGame(ctx, meta.WhiteID, meta.BlackID)
	if err == nil {
		meta.GameID = gameID
		err = m.store.save(ctx, meta)
	}
	if err != nil {
		m.reopen(ctx, meta)
		return nil, err
	}
	obslog.L().Info("lobby_start_game",
		zap.String("code", code),
		zap.String("game_id", gameID),
		zap.String("white_id", meta.WhiteID),
		zap.String("black_id", meta.BlackID),
	)
	return meta, nil
}

// reopen puts a lobby whose game could not be started back on the waiting
// list with its host, so it can be joined again.
func (m *Manager) reopen(ctx context.Context, meta *Meta) {
	meta.State = StateWaiting
	meta.WhiteID, meta.BlackID, meta.GameID = "", "", ""
	raw, err := marshalMeta(meta)
	if err == nil {
		_, err = m.store.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, keyMeta(meta.Code), raw, m.store.ttl)
			pipe.Set(ctx, keyHost(meta.CreatorID), meta.Code, m.store.ttl)
			pipe.SAdd(ctx, keyWaiting(), meta.Code)
			pipe.Expire(ctx, keyWaiting(), m.store.ttl)
			return nil
		})
	}
	if err != nil {
		obslog.L().Error("lobby_reopen_failed", zap.String("code", meta.Code), zap.Error(err))
		return
	}
	obslog.L().Warn("lobby_reopened", zap.String("code", meta.Code))
}

func (m *Manager) Get(ctx context.Context, code string) (*Meta, error) {
	return m.store.load(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

// Waiting lists open lobbies, oldest first.
func (m *Manager) Waiting(ctx context.Context) ([]*Meta, error) {
	return m.store.waiting(ctx)
}

func seats(pref ColorChoice, creator, joiner string) (white, black string, err error) {
	switch pref {
	case ColorWhite:
		return creator, joiner, nil
	case ColorBlack:
		return joiner, creator, nil
	}
	heads, err := coinFlip()
	if err != nil {
		return "", "", err
	}
	if heads {
		return creator, joiner, nil
	}
	return joiner, creator, nil
}
