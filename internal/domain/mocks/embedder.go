package mocks

import (
	"context"
)

// Embedder is a mock implementation of ports.Embedder. It returns a fixed
// small vector derived from the text length so distinct texts get distinct
// embeddings without any provider.
type Embedder struct {
	// Err is returned for every call when set.
	Err error
}

// Embed returns a deterministic vector for the text.
func (m *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

// EmbedBatch returns deterministic vectors for the texts.
func (m *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 0}
	}
	return out, nil
}
