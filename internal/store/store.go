// Package store defines the vector store contract shared by the
// in-memory, Redis, and Qdrant backends.
package store

import (
	"context"
	"errors"
)

// Metadata keys carried with every point so a hit can be rendered
// without a second catalog lookup.
const (
	MetaTitle       = "job_title"
	MetaDescription = "description"
	MetaSkills      = "skills"
)

// ErrKeyNotFound signals a cache miss in the key-value store.
var ErrKeyNotFound = errors.New("key not found")

// Point is one catalog entry with its embedding and metadata.
type Point struct {
	ID     string
	Vector []float32
	Meta   map[string]string
}

// Hit is one ranked query result.
type Hit struct {
	ID    string
	Score float64
	Meta  map[string]string
}

// Store is the nearest-neighbor contract. Query never mutates state,
// returns at most k hits in non-increasing score order.
type Store interface {
	Upsert(ctx context.Context, points []Point) error
	Query(ctx context.Context, vector []float32, k int) ([]Hit, error)
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
