package archive

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// memrepo is used when no database is configured.
type memrepo struct {
	mu     sync.RWMutex
	byID   map[string]*Record
	byUser map[string][]string
}

func NewMemoryRepository() Repository {
	return &memrepo{
		byID:   make(map[string]*Record),
		byUser: make(map[string][]string),
	}
}

func clone(r *Record) *Record {
	c := *r
	c.Moves = append([]string(nil), r.Moves...)
	return &c
}

func (m *memrepo) Save(_ context.Context, rec *Record) error {
	if rec == nil || strings.TrimSpace(rec.GameID) == "" {
		return fmt.Errorf("record without game id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[rec.GameID]; !exists {
		for _, p := range []string{rec.WhiteID, rec.BlackID} {
			m.byUser[p] = append(m.byUser[p], rec.GameID)
		}
	}
	m.byID[rec.GameID] = clone(rec)
	return nil
}

func (m *memrepo) Get(_ context.Context, gameID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byID[gameID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(r), nil
}

func (m *memrepo) Recent(_ context.Context, playerID string, limit int) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	items := make([]*Record, 0, len(m.byUser[playerID]))
	for _, id := range m.byUser[playerID] {
		if seen[id] {
			continue
		}
		seen[id] = true
		items = append(items, clone(m.byID[id]))
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].GameID > items[j].GameID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
