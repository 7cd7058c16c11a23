package match

import (
	"context"
	"strings"
	"testing"

	"github.com/careersync/careersync/internal/config"
	"github.com/careersync/careersync/internal/domain"
	"github.com/careersync/careersync/internal/store"
	memstore "github.com/careersync/careersync/internal/store/memory"
	explainuc "github.com/careersync/careersync/internal/usecase/explain"
)

// --- Mocks ---

// keywordEmbedder maps text into a 2-d space by counting domain words:
// axis 0 for software terms, axis 1 for care terms. Texts about the
// same topic land close together, so the full pipeline behaves like a
// real model without one.
type keywordEmbedder struct{}

func (keywordEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	var software, care float32
	for _, w := range strings.Fields(strings.ToLower(text)) {
		switch strings.Trim(w, ".,:") {
		case "coding", "code", "writes", "logic", "puzzles", "software":
			software++
		case "cares", "care", "patients", "empathy", "nursing":
			care++
		}
	}
	return domain.EmbeddingResult{Embedding: []float32{software, care}}, nil
}

// --- Tests ---

// newPipeline wires the keyword embedder through the real decorator
// chains, a memory store holding an embedded two-record catalog, and
// the explain service, mirroring the serving composition.
func newPipeline(t *testing.T) *Service {
	t.Helper()

	base := keywordEmbedder{}
	docEmb := domain.NewInstructionEmbedder(
		domain.NewNormalizedEmbedder(base), config.DefaultInstruction)
	queryEmb := domain.NewInstructionEmbedder(
		domain.NewNormalizedEmbedder(base), config.DefaultInstruction)
	plainEmb := domain.NewNormalizedEmbedder(base)

	records := []struct {
		id, title, description, skills string
	}{
		{"0", "Programmer", "Writes code", "logic puzzles"},
		{"1", "Nurse", "Cares for patients", "empathy nursing"},
	}

	points := make([]store.Point, len(records))
	for i, rec := range records {
		full := rec.title + ". " + rec.description + " " + rec.skills
		res, err := docEmb.Embed(context.Background(), full)
		if err != nil {
			t.Fatalf("embed catalog record %q: %v", rec.title, err)
		}
		points[i] = store.Point{
			ID:     rec.id,
			Vector: res.Embedding,
			Meta: map[string]string{
				store.MetaTitle:       rec.title,
				store.MetaDescription: rec.description,
				store.MetaSkills:      rec.skills,
			},
		}
	}

	return New(queryEmb, memstore.New(points), explainuc.New(plainEmb))
}

func TestMatch_PipelineRanksByTopic(t *testing.T) {
	svc := newPipeline(t)

	matches, err := svc.Match(context.Background(), map[string]string{
		"interests": "coding and logic puzzles",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("expected both catalog records, got %d", len(matches))
	}
	if matches[0].Title != "Programmer" {
		t.Fatalf("expected Programmer first, got %q", matches[0].Title)
	}
	if matches[1].Title != "Nurse" {
		t.Fatalf("expected Nurse second, got %q", matches[1].Title)
	}
	if matches[0].Score <= matches[1].Score {
		t.Fatalf("expected strictly higher score for Programmer, got %f vs %f",
			matches[0].Score, matches[1].Score)
	}

	want := "Programmer matches because it involves Writes code, logic, and puzzles."
	if matches[0].Reasoning != want {
		t.Fatalf("expected %q, got %q", want, matches[0].Reasoning)
	}
}

func TestMatch_PipelineOppositeTopic(t *testing.T) {
	svc := newPipeline(t)

	matches, err := svc.Match(context.Background(), map[string]string{
		"interests": "caring for patients",
		"skills":    "empathy",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(matches) != 2 || matches[0].Title != "Nurse" {
		t.Fatalf("expected Nurse first, got %+v", matches)
	}
}
