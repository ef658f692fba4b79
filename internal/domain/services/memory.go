package services

import (
	"context"
	"fmt"

	"github.com/ersonp/lingo-core/internal/domain/ports"
)

// DefaultMemoryMinScore is the similarity score below which a translation
// memory match is discarded.
const DefaultMemoryMinScore = 0.92

// MemoryService looks up and records translations in the semantic translation
// memory, letting batches reuse past work for near-identical source strings
// instead of calling the provider again.
type MemoryService struct {
	embedder ports.Embedder
	memory   ports.TranslationMemory
	minScore float32
}

// NewMemoryService creates a MemoryService. A non-positive minScore selects
// the default.
func NewMemoryService(embedder ports.Embedder, memory ports.TranslationMemory, minScore float32) *MemoryService {
	if minScore <= 0 {
		minScore = DefaultMemoryMinScore
	}
	return &MemoryService{
		embedder: embedder,
		memory:   memory,
		minScore: minScore,
	}
}

// Lookup searches the memory for a past translation of sourceText into
// locale. Returns (nil, nil) when nothing clears the minimum score.
func (s *MemoryService) Lookup(ctx context.Context, sourceText, locale string) (*ports.MemoryMatch, error) {
	embedding, err := s.embedder.Embed(ctx, sourceText)
	if err != nil {
		return nil, fmt.Errorf("embedding source text: %w", err)
	}

	matches, err := s.memory.SearchSimilar(ctx, embedding, locale, 1)
	if err != nil {
		return nil, fmt.Errorf("searching translation memory: %w", err)
	}
	if len(matches) == 0 || matches[0].Score < s.minScore {
		return nil, nil
	}
	return &matches[0], nil
}

// Remember stores a finished translation so future batches can reuse it.
func (s *MemoryService) Remember(ctx context.Context, unitID, locale, sourceText, translatedText string) error {
	return s.RememberBatch(ctx, []MemoryEntry{{
		UnitID:         unitID,
		Locale:         locale,
		SourceText:     sourceText,
		TranslatedText: translatedText,
	}})
}

// MemoryEntry pairs a finished translation with the unit and locale it
// belongs to, for batch indexing into the memory.
type MemoryEntry struct {
	UnitID         string
	Locale         string
	SourceText     string
	TranslatedText string
}

// RememberBatch stores a set of finished translations, embedding all source
// texts in one provider round trip instead of one call per entry. Used when
// re-indexing a whole locale into the memory.
func (s *MemoryService) RememberBatch(ctx context.Context, entries []MemoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	texts := make([]string, len(entries))
	for i, entry := range entries {
		texts[i] = entry.SourceText
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding source texts: %w", err)
	}
	if len(embeddings) != len(entries) {
		return fmt.Errorf("embedder returned %d vectors for %d entries", len(embeddings), len(entries))
	}

	for i, entry := range entries {
		seg := ports.MemorySegment{
			ID:             entry.UnitID + ":" + entry.Locale,
			UnitID:         entry.UnitID,
			Locale:         entry.Locale,
			SourceText:     entry.SourceText,
			TranslatedText: entry.TranslatedText,
			Embedding:      embeddings[i],
		}
		if err := s.memory.SaveSegment(ctx, seg); err != nil {
			return fmt.Errorf("saving memory segment %s: %w", seg.ID, err)
		}
	}
	return nil
}
