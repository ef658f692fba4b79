package ports

import "context"

// MemorySegment is a previously translated source/target pair stored in the
// translation memory.
type MemorySegment struct {
	ID             string
	UnitID         string
	Locale         string
	SourceText     string
	TranslatedText string
	Embedding      []float32
}

// MemoryMatch is a memory segment scored against a query embedding.
type MemoryMatch struct {
	Segment MemorySegment
	Score   float32
}

// TranslationMemory defines semantic lookup of past translations, letting a
// batch skip provider calls for near-identical source strings.
type TranslationMemory interface {
	EnsureCollection(ctx context.Context, vectorSize uint64) error
	SaveSegment(ctx context.Context, seg MemorySegment) error
	SearchSimilar(ctx context.Context, embedding []float32, locale string, limit int) ([]MemoryMatch, error)
	Close() error
}
