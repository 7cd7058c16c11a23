package match

import (
	"context"

	"github.com/careersync/careersync/internal/store"
)

// Querier is the nearest-neighbor surface the matcher needs.
type Querier interface {
	Query(ctx context.Context, vector []float32, k int) ([]store.Hit, error)
}

// Explainer renders a reasoning sentence for one matched record.
type Explainer interface {
	Explain(ctx context.Context, userVec []float32, title, description, skills string) (string, error)
}
