package archive

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// memrepo is used when no database is configured.
type memrepo struct {
	mu    sync.RWMutex
	games map[string]Record
}

func NewMemoryRepository() Recorder {
	return &memrepo{games: make(map[string]Record)}
}

func (m *memrepo) SaveRound(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		if strings.TrimSpace(rec.GameID) == "" {
			continue
		}
		if rec.PGN == "" {
			rec.PGN = BuildPGN(rec)
		}
		m.games[rec.GameID] = rec
	}
	return nil
}

func (m *memrepo) Recent(_ context.Context, limit int) ([]Record, error) {
	limit = normalizeLimit(limit)
	m.mu.RLock()
	items := make([]Record, 0, len(m.games))
	for _, rec := range m.games {
		items = append(items, rec)
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].ObservedAt.Equal(items[j].ObservedAt) {
			return items[i].ObservedAt.After(items[j].ObservedAt)
		}
		return items[i].GameID < items[j].GameID
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
