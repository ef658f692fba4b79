// Package openai embeds translation source strings with the OpenAI
// embeddings API. The vectors feed the translation memory, which matches
// new source strings against past translations by semantic distance rather
// than exact text.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/ersonp/lingo-core/internal/infrastructure/config"
)

// VectorSize is the dimension of text-embedding-3-small vectors. The memory
// collection is created with this size, so changing the model means
// re-indexing every stored segment.
const VectorSize = 1536

// maxBatchInputs caps how many source strings go into a single embeddings
// request. The API rejects larger arrays, so oversized batches are split.
const maxBatchInputs = 2048

// Embedder turns source strings into memory vectors through OpenAI.
type Embedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewEmbedder creates an Embedder from the embedder config section.
func NewEmbedder(cfg config.EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("embedder API key is required")
	}

	model := openai.SmallEmbedding3
	if cfg.Model != "" {
		model = openai.EmbeddingModel(cfg.Model)
	}

	return &Embedder{
		client: openai.NewClient(cfg.APIKey),
		model:  model,
	}, nil
}

// Embed returns the memory vector for a single source string.
func (e *Embedder) Embed(ctx context.Context, sourceText string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{sourceText})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds source strings in one round trip per API-sized chunk.
// The returned slice is positionally aligned with sourceTexts, which batch
// indexing relies on to pair each vector back with its unit.
func (e *Embedder) EmbedBatch(ctx context.Context, sourceTexts []string) ([][]float32, error) {
	if len(sourceTexts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(sourceTexts))
	for start := 0; start < len(sourceTexts); start += maxBatchInputs {
		end := start + maxBatchInputs
		if end > len(sourceTexts) {
			end = len(sourceTexts)
		}
		chunk := sourceTexts[start:end]

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: e.model,
			Input: chunk,
		})
		if err != nil {
			return nil, fmt.Errorf("embedding %d source strings: %w", len(chunk), err)
		}
		if len(resp.Data) != len(chunk) {
			return nil, fmt.Errorf("embedding response has %d vectors for %d source strings", len(resp.Data), len(chunk))
		}
		for _, data := range resp.Data {
			vectors = append(vectors, data.Embedding)
		}
	}
	return vectors, nil
}
