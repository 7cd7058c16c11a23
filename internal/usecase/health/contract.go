package health

import "context"

// Pinger checks vector store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker verifies embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
