package domain

import (
	"context"
	"fmt"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single API call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// EmbedAll vectorizes texts in chunks of at most chunk texts, using the native
// batch API when e implements BatchEmbedder and one-by-one calls otherwise.
func EmbedAll(ctx context.Context, e Embedder, texts []string, chunk int) (BatchEmbeddingResult, error) {
	if chunk <= 0 {
		chunk = len(texts)
	}

	out := BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	for offset := 0; offset < len(texts); offset += chunk {
		end := min(offset+chunk, len(texts))

		res, err := embedChunk(ctx, e, texts[offset:end])
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("embed chunk at %d: %w", offset, err)
		}
		if len(res.Embeddings) != end-offset {
			return BatchEmbeddingResult{}, fmt.Errorf("embed chunk at %d: got %d vectors for %d texts",
				offset, len(res.Embeddings), end-offset)
		}

		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}
	return out, nil
}

func embedChunk(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	if be, ok := e.(BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}

	res := BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, text := range texts {
		r, err := e.Embed(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("embed [%d]: %w", i, err)
		}
		res.Embeddings[i] = r.Embedding
		res.PromptTokens += r.PromptTokens
		res.TotalTokens += r.TotalTokens
	}
	return res, nil
}
