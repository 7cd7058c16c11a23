// Package memory implements the vector store over an in-process matrix
// of precomputed catalog vectors.
package memory

import (
	"context"
	"sort"

	"github.com/careersync/careersync/internal/store"
)

// Store holds the full set of catalog points. Reads are lock-free: the
// slice is never mutated after construction, and Upsert is only used by
// the offline precompute path before serving starts.
type Store struct {
	points []store.Point
}

var _ store.Store = (*Store)(nil)

// New creates a store over the given points. The slice is kept by
// reference; callers must not mutate it afterwards.
func New(points []store.Point) *Store {
	return &Store{points: points}
}

// Upsert appends points, replacing any with a matching ID.
func (s *Store) Upsert(_ context.Context, points []store.Point) error {
	for _, p := range points {
		if i, ok := s.indexOf(p.ID); ok {
			s.points[i] = p
			continue
		}
		s.points = append(s.points, p)
	}
	return nil
}

func (s *Store) indexOf(id string) (int, bool) {
	for i, p := range s.points {
		if p.ID == id {
			return i, true
		}
	}
	return 0, false
}

// Query computes the dot product against every point and returns the
// min(k, N) highest scorers. Vectors are unit-normalized upstream, so
// the dot product is cosine similarity. Ties keep catalog order.
func (s *Store) Query(_ context.Context, vector []float32, k int) ([]store.Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	hits := make([]store.Hit, len(s.points))
	for i, p := range s.points {
		hits[i] = store.Hit{
			ID:    p.ID,
			Score: dot(vector, p.Vector),
			Meta:  p.Meta,
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Ping always succeeds: the matrix lives in this process.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

// Len returns the number of stored points.
func (s *Store) Len() int {
	return len(s.points)
}

func dot(a, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
