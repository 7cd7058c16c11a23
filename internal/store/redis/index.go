package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// EnsureIndex creates the KNN index if it does not exist yet. The
// catalog is a few hundred rows, so FLAT keeps recall exact with no
// HNSW tuning to get wrong.
func (s *Store) EnsureIndex(ctx context.Context) error {
	exists, err := s.indexExists(ctx)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	cmd := s.client.B().Arbitrary("FT.CREATE").Args(
		s.index,
		"ON", "HASH",
		"PREFIX", "1", s.prefix,
		"SCHEMA",
		"__vector", "AS", "vector", "VECTOR", "FLAT", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(s.dim),
		"DISTANCE_METRIC", "COSINE",
	).Build()

	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return fmt.Errorf("create index %s: %w", s.index, err)
	}
	return nil
}

func (s *Store) indexExists(ctx context.Context) (bool, error) {
	cmd := s.client.B().Arbitrary("FT.INFO").Args(s.index).Build()
	err := s.client.Do(ctx, cmd).Error()
	if err == nil {
		return true, nil
	}
	if isRedisErr(err, "unknown index") || isRedisErr(err, "no such index") {
		return false, nil
	}
	return false, fmt.Errorf("ft.info %s: %w", s.index, err)
}

// WaitForIndex polls FT.INFO until background indexing finishes or the
// timeout expires. Queries issued against a half-built index silently
// miss documents.
func (s *Store) WaitForIndex(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for index %s: %w", s.index, ctx.Err())
		case <-ticker.C:
			ready, err := s.indexReady(ctx)
			if err == nil && ready {
				return nil
			}
		}
	}
}

// indexReady reports whether FT.INFO shows indexing complete. An index
// without an "indexing" field is treated as ready.
func (s *Store) indexReady(ctx context.Context) (bool, error) {
	cmd := s.client.B().Arbitrary("FT.INFO").Args(s.index).Build()
	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return false, fmt.Errorf("ft.info %s: %w", s.index, err)
	}

	for i := 0; i+1 < len(raw); i += 2 {
		name, err := raw[i].ToString()
		if err != nil || name != "indexing" {
			continue
		}
		indexing, err := raw[i+1].AsInt64()
		if err != nil {
			return false, nil
		}
		return indexing == 0, nil
	}
	return true, nil
}
