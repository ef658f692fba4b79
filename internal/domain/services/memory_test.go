package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/lingo-core/internal/domain/mocks"
	"github.com/ersonp/lingo-core/internal/domain/ports"
)

func TestMemoryService_Lookup(t *testing.T) {
	memory := &mocks.TranslationMemory{}
	svc := NewMemoryService(&mocks.Embedder{}, memory, 0)
	ctx := context.Background()

	require.NoError(t, svc.Remember(ctx, "u1", "fr", "Hello", "Bonjour"))

	match, err := svc.Lookup(ctx, "Hello", "fr")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "Bonjour", match.Segment.TranslatedText)
	assert.Equal(t, "u1", match.Segment.UnitID)
}

func TestMemoryService_Lookup_NoMatchForOtherLocale(t *testing.T) {
	memory := &mocks.TranslationMemory{}
	svc := NewMemoryService(&mocks.Embedder{}, memory, 0)
	ctx := context.Background()

	require.NoError(t, svc.Remember(ctx, "u1", "fr", "Hello", "Bonjour"))

	match, err := svc.Lookup(ctx, "Hello", "de")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestMemoryService_Lookup_DiscardsLowScores(t *testing.T) {
	memory := &mocks.TranslationMemory{Score: 0.5}
	svc := NewMemoryService(&mocks.Embedder{}, memory, 0.92)
	ctx := context.Background()

	require.NoError(t, svc.Remember(ctx, "u1", "fr", "Hello", "Bonjour"))

	match, err := svc.Lookup(ctx, "Hello", "fr")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestMemoryService_Lookup_EmbedderFailure(t *testing.T) {
	embedder := &mocks.Embedder{Err: errors.New("provider down")}
	svc := NewMemoryService(embedder, &mocks.TranslationMemory{}, 0)

	_, err := svc.Lookup(context.Background(), "Hello", "fr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding source text")
}

func TestMemoryService_RememberBatch(t *testing.T) {
	memory := &mocks.TranslationMemory{}
	svc := NewMemoryService(&mocks.Embedder{}, memory, 0)

	err := svc.RememberBatch(context.Background(), []MemoryEntry{
		{UnitID: "u1", Locale: "fr", SourceText: "Save changes", TranslatedText: "Enregistrer les modifications"},
		{UnitID: "u2", Locale: "fr", SourceText: "Discard changes", TranslatedText: "Annuler les modifications"},
	})
	require.NoError(t, err)
	require.Len(t, memory.Segments, 2)

	seg, ok := memory.Segments["u2:fr"]
	require.True(t, ok)
	assert.Equal(t, "Discard changes", seg.SourceText)
	assert.Equal(t, "Annuler les modifications", seg.TranslatedText)
	// Each segment carries the vector of its own source text.
	assert.Equal(t, []float32{float32(len("Discard changes")), 1, 0}, seg.Embedding)
}

func TestMemoryService_RememberBatch_Empty(t *testing.T) {
	memory := &mocks.TranslationMemory{}
	svc := NewMemoryService(&mocks.Embedder{}, memory, 0)

	require.NoError(t, svc.RememberBatch(context.Background(), nil))
	assert.Empty(t, memory.Segments)
}

func TestMemoryService_RememberBatch_EmbedderFailure(t *testing.T) {
	embedder := &mocks.Embedder{Err: errors.New("provider down")}
	memory := &mocks.TranslationMemory{}
	svc := NewMemoryService(embedder, memory, 0)

	err := svc.RememberBatch(context.Background(), []MemoryEntry{
		{UnitID: "u1", Locale: "fr", SourceText: "Save changes", TranslatedText: "Enregistrer"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding source texts")
	assert.Empty(t, memory.Segments)
}

func TestMemoryService_Remember_SegmentID(t *testing.T) {
	memory := &mocks.TranslationMemory{}
	svc := NewMemoryService(&mocks.Embedder{}, memory, 0)

	require.NoError(t, svc.Remember(context.Background(), "u1", "fr", "Hello", "Bonjour"))

	seg, ok := memory.Segments["u1:fr"]
	require.True(t, ok)
	assert.Equal(t, ports.MemorySegment{
		ID: "u1:fr", UnitID: "u1", Locale: "fr",
		SourceText: "Hello", TranslatedText: "Bonjour",
		Embedding: seg.Embedding,
	}, seg)
	assert.NotEmpty(t, seg.Embedding)
}
