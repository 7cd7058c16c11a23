package domain

import (
	"context"
	"errors"
	"math"
	"testing"
)

// --- Mocks ---

type fakeEmbedder struct {
	lastText   string
	lastTexts  []string
	result     EmbeddingResult
	err        error
	embedCalls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	f.embedCalls++
	f.lastText = text
	return f.result, f.err
}

type fakeBatchEmbedder struct {
	fakeEmbedder
	batchCalls int
}

func (f *fakeBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	f.batchCalls++
	f.lastTexts = texts
	if f.err != nil {
		return BatchEmbeddingResult{}, f.err
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = f.result.Embedding
	}
	return BatchEmbeddingResult{Embeddings: embeddings}, nil
}

// --- Tests ---

func TestInstructionEmbedder_Prefixes(t *testing.T) {
	inner := &fakeEmbedder{result: EmbeddingResult{Embedding: []float32{1}}}
	e := NewInstructionEmbedder(inner, "Represent this sentence for retrieval: ")

	_, err := e.Embed(context.Background(), "I like building things")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Represent this sentence for retrieval: I like building things"
	if inner.lastText != want {
		t.Fatalf("expected %q, got %q", want, inner.lastText)
	}
}

func TestInstructionEmbedder_BatchPrefixesEach(t *testing.T) {
	inner := &fakeBatchEmbedder{}
	inner.result = EmbeddingResult{Embedding: []float32{1}}
	e := NewInstructionEmbedder(inner, "prefix: ")

	_, err := e.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.lastTexts) != 2 || inner.lastTexts[0] != "prefix: a" || inner.lastTexts[1] != "prefix: b" {
		t.Fatalf("unexpected texts: %v", inner.lastTexts)
	}
}

func TestNormalizedEmbedder_UnitNorm(t *testing.T) {
	inner := &fakeEmbedder{result: EmbeddingResult{
		Embedding:   []float32{3, 4},
		TotalTokens: 7,
	}}
	e := NewNormalizedEmbedder(inner)

	res, err := e.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := Norm(res.Embedding); math.Abs(n-1.0) > 1e-6 {
		t.Fatalf("expected unit norm, got %v", n)
	}
	if res.TotalTokens != 7 {
		t.Fatalf("token usage lost: got %d", res.TotalTokens)
	}
}

func TestNormalizedEmbedder_BatchNormalizesAll(t *testing.T) {
	inner := &fakeBatchEmbedder{}
	inner.result = EmbeddingResult{Embedding: []float32{0, 5}}
	e := NewNormalizedEmbedder(inner)

	res, err := e.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range res.Embeddings {
		if n := Norm(v); math.Abs(n-1.0) > 1e-6 {
			t.Fatalf("vector %d not unit norm: %v", i, n)
		}
	}
}

func TestEmbedBatch_UsesNativeBatch(t *testing.T) {
	inner := &fakeBatchEmbedder{}
	inner.result = EmbeddingResult{Embedding: []float32{1}}

	_, err := EmbedBatch(context.Background(), inner, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 1 {
		t.Fatalf("expected 1 batch call, got %d", inner.batchCalls)
	}
	if inner.embedCalls != 0 {
		t.Fatalf("expected no per-text calls, got %d", inner.embedCalls)
	}
}

func TestEmbedBatch_FallsBackPerText(t *testing.T) {
	inner := &fakeEmbedder{result: EmbeddingResult{
		Embedding:   []float32{1},
		TotalTokens: 2,
	}}

	res, err := EmbedBatch(context.Background(), inner, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.embedCalls != 3 {
		t.Fatalf("expected 3 per-text calls, got %d", inner.embedCalls)
	}
	if len(res.Embeddings) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(res.Embeddings))
	}
	if res.TotalTokens != 6 {
		t.Fatalf("expected aggregated tokens 6, got %d", res.TotalTokens)
	}
}

func TestEmbedBatch_FallbackPropagatesError(t *testing.T) {
	inner := &fakeEmbedder{err: errors.New("provider down")}

	_, err := EmbedBatch(context.Background(), inner, []string{"a"})
	if err == nil {
		t.Fatal("expected error")
	}
}
