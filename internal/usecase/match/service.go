// Package match turns free-text questionnaire answers into a ranked
// list of career matches.
package match

import (
	"context"
	"fmt"
	"sort"

	"github.com/careersync/careersync/internal/domain"
	"github.com/careersync/careersync/internal/store"
)

const defaultTopK = 5

// Service handles career matching.
type Service struct {
	embed   domain.Embedder
	querier Querier
	explain Explainer
	schema  Schema
	topK    int
}

// New creates a match service. embed must be the query-mode embedder
// chain (instruction prefix + unit normalization).
func New(embed domain.Embedder, querier Querier, explain Explainer) *Service {
	return &Service{
		embed:   embed,
		querier: querier,
		explain: explain,
		schema:  DefaultSchema(),
		topK:    defaultTopK,
	}
}

// WithSchema overrides the questionnaire schema.
func (s *Service) WithSchema(schema Schema) *Service {
	if len(schema) > 0 {
		s.schema = schema
	}
	return s
}

// WithTopK overrides how many matches are returned.
func (s *Service) WithTopK(k int) *Service {
	if k > 0 {
		s.topK = k
	}
	return s
}

// Match embeds the composed questionnaire text and returns the top-k
// catalog records by cosine similarity, each with a reasoning sentence.
// A request either yields the full ranked list or an error, never a
// partial one.
func (s *Service) Match(ctx context.Context, answers map[string]string) ([]domain.Match, error) {
	text := s.schema.Compose(answers)
	if text == "" {
		return nil, domain.ErrEmptyInput
	}

	res, err := s.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.querier.Query(ctx, res.Embedding, s.topK)
	if err != nil {
		return nil, fmt.Errorf("query vector store: %w", err)
	}

	// Backends already rank, but the ordering contract is ours: strictly
	// non-increasing score, ties keeping store order.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	matches := make([]domain.Match, len(hits))
	for i, h := range hits {
		m := domain.Match{
			Title:       h.Meta[store.MetaTitle],
			Description: h.Meta[store.MetaDescription],
			Skills:      h.Meta[store.MetaSkills],
			Score:       h.Score,
		}

		reasoning, err := s.explain.Explain(ctx, res.Embedding, m.Title, m.Description, m.Skills)
		if err != nil {
			return nil, fmt.Errorf("explain match %q: %w", m.Title, err)
		}
		m.Reasoning = reasoning
		matches[i] = m
	}

	return matches, nil
}
