package savegame

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/park285/echecs/internal/obslog"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisPrefix = "echecs:save:"

func saveKey(name string) string { return redisPrefix + strings.TrimSpace(name) }

// RedisStore keeps JSON snapshots in Redis with an expiry.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore uses rdb; ttl <= 0 keeps saves forever.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, name string, snap Snapshot) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("invalid save name %q", name)
	}
	raw, err := JSONCodec{}.Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, saveKey(name), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	obslog.L().Info("save_write", zap.String("key", saveKey(name)), zap.Int("pieces", len(snap.Pieces)))
	return nil
}

func (s *RedisStore) Load(ctx context.Context, name string) (Snapshot, error) {
	raw, err := s.rdb.Get(ctx, saveKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("redis get: %w", err)
	}
	return JSONCodec{}.Unmarshal(raw)
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	var names []string
	iter := s.rdb.Scan(ctx, 0, redisPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), redisPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
