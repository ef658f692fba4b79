package mocks

import (
	"context"
	"sync"

	"github.com/ersonp/lingo-core/internal/domain/ports"
)

// TranslationMemory is a map-backed mock of ports.TranslationMemory. Lookups
// match on exact source text rather than vector distance.
type TranslationMemory struct {
	mu sync.Mutex

	// Segments holds stored segments keyed by segment id.
	Segments map[string]ports.MemorySegment
	// Score is the score reported for every match.
	Score float32
	// Err is returned for every call when set.
	Err error
}

// EnsureCollection is a no-op.
func (m *TranslationMemory) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	return m.Err
}

// SaveSegment stores the segment in memory.
func (m *TranslationMemory) SaveSegment(ctx context.Context, seg ports.MemorySegment) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Segments == nil {
		m.Segments = make(map[string]ports.MemorySegment)
	}
	m.Segments[seg.ID] = seg
	return nil
}

// SearchSimilar returns stored segments for the locale, scored with the
// configured Score.
func (m *TranslationMemory) SearchSimilar(ctx context.Context, embedding []float32, locale string, limit int) ([]ports.MemoryMatch, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	score := m.Score
	if score == 0 {
		score = 1
	}

	var matches []ports.MemoryMatch
	for _, seg := range m.Segments {
		if seg.Locale != locale {
			continue
		}
		matches = append(matches, ports.MemoryMatch{Segment: seg, Score: score})
		if len(matches) >= limit {
			break
		}
	}
	return matches, nil
}

// Close is a no-op.
func (m *TranslationMemory) Close() error { return nil }
