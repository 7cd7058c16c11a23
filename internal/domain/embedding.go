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

// HealthChecker verifies embedding provider availability.
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

// BatchFallback calls Embed once per text. Safety net for embedders
// without native batch support.
func BatchFallback(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))
	var totalPrompt, totalTokens int

	for i, text := range texts {
		res, err := e.Embed(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("fallback embed [%d]: %w", i, err)
		}
		embeddings[i] = res.Embedding
		totalPrompt += res.PromptTokens
		totalTokens += res.TotalTokens
	}

	return BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}

// EmbedBatch embeds texts via the native batch path when the embedder
// supports it, falling back to per-text Embed otherwise.
func EmbedBatch(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	if be, ok := e.(BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}
		return res, nil
	}
	return BatchFallback(ctx, e, texts)
}

// InstructionEmbedder is a decorator that prepends a retrieval
// instruction before embedding. The instruction must match the one used
// when the catalog vectors were precomputed, or scores become meaningless.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder creates a decorator that prepends instruction text.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed prepends the instruction and delegates to the inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}

// BatchEmbed prepends the instruction to each text and delegates.
func (e *InstructionEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = e.instruction + t
	}

	res, err := EmbedBatch(ctx, e.inner, prefixed)
	if err != nil {
		return BatchEmbeddingResult{}, fmt.Errorf("instruction batch embed: %w", err)
	}
	return res, nil
}

// NormalizedEmbedder is a decorator that L2-normalizes every vector so
// downstream similarity is a plain dot product. Single and batch paths
// apply identical normalization.
type NormalizedEmbedder struct {
	inner Embedder
}

// NewNormalizedEmbedder creates a unit-norm decorator.
func NewNormalizedEmbedder(inner Embedder) *NormalizedEmbedder {
	return &NormalizedEmbedder{inner: inner}
}

// Embed delegates and normalizes the resulting vector.
func (e *NormalizedEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	res, err := e.inner.Embed(ctx, text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("normalized embed: %w", err)
	}
	res.Embedding = Normalize(res.Embedding)
	return res, nil
}

// BatchEmbed delegates and normalizes every vector in the batch.
func (e *NormalizedEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	res, err := EmbedBatch(ctx, e.inner, texts)
	if err != nil {
		return BatchEmbeddingResult{}, fmt.Errorf("normalized batch embed: %w", err)
	}
	for i, v := range res.Embeddings {
		res.Embeddings[i] = Normalize(v)
	}
	return res, nil
}
