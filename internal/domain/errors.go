package domain

import "errors"

var (
	// ErrNotReady signals that the model or catalog is not loaded yet.
	ErrNotReady = errors.New("service not ready")
	// ErrEmptyInput signals that the questionnaire contained no usable text.
	ErrEmptyInput = errors.New("empty input")
	// ErrUpstreamUnavailable signals a failed vector store call.
	ErrUpstreamUnavailable = errors.New("vector store unavailable")
	// ErrCatalogMismatch signals that catalog rows and precomputed vectors disagree.
	ErrCatalogMismatch = errors.New("catalog and vector counts do not match")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
