// Package explain builds the human-readable reasoning sentence for a
// matched career record.
package explain

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/careersync/careersync/internal/domain"
)

// maxComponents is how many record components a reasoning sentence names.
const maxComponents = 3

// Service ranks a record's components (description plus individual
// skill tokens) against the user's embedding and renders a sentence
// from the best ones. This local ranking never changes which records
// are returned; it only produces the explanation snippet.
type Service struct {
	embed domain.Embedder
}

// New creates an explainer. embed must be the plain normalized chain:
// components are embedded without the retrieval instruction.
func New(embed domain.Embedder) *Service {
	return &Service{embed: embed}
}

// Explain picks the up-to-three components most similar to userVec and
// renders them into one sentence.
func (s *Service) Explain(
	ctx context.Context, userVec []float32, title, description, skills string,
) (string, error) {
	components := collectComponents(description, skills)
	if len(components) == 0 {
		return fmt.Sprintf("%s could be a good fit for you.", title), nil
	}

	res, err := domain.EmbedBatch(ctx, s.embed, components)
	if err != nil {
		return "", fmt.Errorf("embed components: %w", err)
	}

	type scored struct {
		text  string
		score float64
	}
	ranked := make([]scored, len(components))
	for i, c := range components {
		ranked[i] = scored{text: c, score: domain.Dot(userVec, res.Embeddings[i])}
	}

	// Stable: ties keep component order (description first, then skills
	// in their original order).
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	n := maxComponents
	if len(ranked) < n {
		n = len(ranked)
	}
	top := make([]string, n)
	for i := 0; i < n; i++ {
		top[i] = ranked[i].text
	}

	return renderSentence(title, top), nil
}

// collectComponents treats the whole description and each
// whitespace-delimited skill token as independent components, dropping
// blanks.
func collectComponents(description, skills string) []string {
	raw := append([]string{description}, strings.Fields(skills)...)
	components := raw[:0]
	for _, c := range raw {
		if strings.TrimSpace(c) != "" {
			components = append(components, c)
		}
	}
	return components
}

// renderSentence joins the top components with an Oxford comma:
// "A", "A and B", "A, B, and C".
func renderSentence(title string, reasons []string) string {
	switch len(reasons) {
	case 1:
		return fmt.Sprintf("%s matches because it involves %s.", title, reasons[0])
	case 2:
		return fmt.Sprintf("%s matches because it involves %s and %s.", title, reasons[0], reasons[1])
	default:
		head := strings.Join(reasons[:len(reasons)-1], ", ")
		return fmt.Sprintf("%s matches because it involves %s, and %s.", title, head, reasons[len(reasons)-1])
	}
}
