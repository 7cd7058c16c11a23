package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/careersync/careersync/internal/domain"
	"github.com/careersync/careersync/internal/store"
)

// Upsert writes points as hashes under the index prefix in one pipeline.
func (s *Store) Upsert(ctx context.Context, points []store.Point) error {
	if len(points) == 0 {
		return nil
	}

	cmds := make(rueidis.Commands, 0, len(points))
	for _, p := range points {
		b := s.client.B().Hset().Key(s.key(p.ID)).FieldValue()
		b = b.FieldValue(store.MetaTitle, p.Meta[store.MetaTitle])
		b = b.FieldValue(store.MetaDescription, p.Meta[store.MetaDescription])
		b = b.FieldValue(store.MetaSkills, p.Meta[store.MetaSkills])
		b = b.FieldValue("__vector", vectorToBytes(p.Vector))
		cmds = append(cmds, b.Build())
	}

	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("upsert points: %w", err)
		}
	}
	return nil
}

// Query runs a KNN vector similarity search via FT.SEARCH.
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]store.Hit, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if k <= 0 {
		return nil, nil
	}

	queryStr := fmt.Sprintf("*=>[KNN %d @vector $BLOB]", k)
	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(
		s.index, queryStr,
		"RETURN", "4", store.MetaTitle, store.MetaDescription, store.MetaSkills, "__vector_score",
		"SORTBY", "__vector_score",
		"LIMIT", "0", strconv.Itoa(k),
		"PARAMS", "2", "BLOB", vectorToBytes(vector),
		"DIALECT", "2",
	).Build()

	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("knn search: %s: %w", err, domain.ErrUpstreamUnavailable)
	}

	return parseKNNResult(raw, s.prefix)
}

// parseKNNResult decodes the RESP2 FT.SEARCH reply:
// [total, key1, fields1, key2, fields2, ...]
func parseKNNResult(raw []rueidis.RedisMessage, prefix string) ([]store.Hit, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	hits := make([]store.Hit, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		meta := parseFieldPairs(fields)

		hit := store.Hit{
			ID:   trimPrefix(key, prefix),
			Meta: meta,
		}

		if scoreStr, ok := meta["__vector_score"]; ok {
			if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				hit.Score = 1.0 - d // cosine distance -> similarity
			}
			delete(meta, "__vector_score")
		}

		hits = append(hits, hit)
	}
	return hits, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

func trimPrefix(key, prefix string) string {
	if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
		return key[len(prefix):]
	}
	return key
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
