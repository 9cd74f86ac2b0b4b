package lobby

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = time.Hour

type store struct {
	rdb *redis.Client
	ttl time.Duration
}

func keyMeta(code string) string   { return "echecs:lobby:" + strings.TrimSpace(code) }
func keyHost(player string) string { return "echecs:lobby:host:" + strings.TrimSpace(player) }
func keyWaiting() string           { return "echecs:lobby:waiting" }

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func marshalMeta(m *Meta) ([]byte, error) { return json.Marshal(m) }

func (s *store) save(ctx context.Context, m *Meta) error {
	raw, err := marshalMeta(m)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, keyMeta(m.Code), raw, s.ttl).Err()
}

func (s *store) load(ctx context.Context, code string) (*Meta, error) {
	return loadFrom(ctx, s.rdb, code)
}

// loadFrom reads through g, so a WATCH transaction can use its own
// connection.
func loadFrom(ctx context.Context, g getter, code string) (*Meta, error) {
	raw, err := g.Get(ctx, keyMeta(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var m Meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode lobby %s: %w", code, err)
	}
	return &m, nil
}

// waiting lists open lobbies, oldest first. Expired codes are pruned.
func (s *store) waiting(ctx context.Context) ([]*Meta, error) {
	codes, err := s.rdb.SMembers(ctx, keyWaiting()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Meta, 0, len(codes))
	for _, c := range codes {
		m, err := s.load(ctx, c)
		if errors.Is(err, ErrNotFound) {
			_ = s.rdb.SRem(ctx, keyWaiting(), c).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		if m.State == StateWaiting {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// newCode returns "EC-" and six upper-case alphanumerics.
func newCode() (string, error) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return "EC-" + string(b), nil
}

func coinFlip() (bool, error) {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return false, err
	}
	return b[0]&1 == 1, nil
}
