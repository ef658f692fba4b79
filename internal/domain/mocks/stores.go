package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ersonp/lingo-core/internal/domain/entities"
	"github.com/ersonp/lingo-core/internal/domain/ports"
)

// ConflictStore is a map-backed mock of ports.ConflictStore.
type ConflictStore struct {
	mu sync.Mutex

	Conflicts   map[string]entities.ConflictRecord
	Resolutions map[string]entities.Resolution
	// Err is returned for every call when set.
	Err error

	nextID int
}

// SaveConflict stores the conflict, assigning an id when missing.
func (m *ConflictStore) SaveConflict(ctx context.Context, c *entities.ConflictRecord) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Conflicts == nil {
		m.Conflicts = make(map[string]entities.ConflictRecord)
	}
	if c.ID == "" {
		m.nextID++
		c.ID = fmt.Sprintf("conflict-%d", m.nextID)
	}
	m.Conflicts[c.ID] = *c
	return nil
}

// FindConflict returns the stored conflict or a not-found error.
func (m *ConflictStore) FindConflict(ctx context.Context, id string) (*entities.ConflictRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Conflicts[id]
	if !ok {
		return nil, &entities.RecordNotFoundError{Table: "conflicts", ID: id}
	}
	return &c, nil
}

// ListUnresolved returns conflicts without a resolution, newest first.
func (m *ConflictStore) ListUnresolved(ctx context.Context, limit int) ([]entities.ConflictRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []entities.ConflictRecord
	for id, c := range m.Conflicts {
		if _, resolved := m.Resolutions[id]; !resolved {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DetectedAt.After(out[j].DetectedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SaveResolution stores the resolution, failing when one already exists.
func (m *ConflictStore) SaveResolution(ctx context.Context, r *entities.Resolution) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Resolutions == nil {
		m.Resolutions = make(map[string]entities.Resolution)
	}
	if _, ok := m.Resolutions[r.ConflictID]; ok {
		return &entities.ResolutionError{ConflictID: r.ConflictID, Reason: "already resolved"}
	}
	m.Resolutions[r.ConflictID] = *r
	return nil
}

// FindResolution returns the stored resolution or (nil, nil).
func (m *ConflictStore) FindResolution(ctx context.Context, conflictID string) (*entities.Resolution, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Resolutions[conflictID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// ConflictStats aggregates counts over the stored maps.
func (m *ConflictStore) ConflictStats(ctx context.Context) (ports.ConflictStats, error) {
	if m.Err != nil {
		return ports.ConflictStats{}, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := ports.ConflictStats{
		ByType:     make(map[entities.ConflictType]int),
		ByStrategy: make(map[entities.Strategy]int),
	}
	for id, c := range m.Conflicts {
		stats.ByType[c.Type]++
		if _, ok := m.Resolutions[id]; ok {
			stats.Resolved++
		} else {
			stats.Unresolved++
		}
	}
	for _, r := range m.Resolutions {
		stats.ByStrategy[r.Strategy]++
		if r.Automatic {
			stats.Automatic++
		}
	}
	return stats, nil
}
