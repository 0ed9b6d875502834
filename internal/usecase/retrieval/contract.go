package retrieval

import (
	"context"

	"github.com/kailas-cloud/corpintel/internal/domain/document"
	"github.com/kailas-cloud/corpintel/internal/domain/filter"
)

// Corpus is the nearest-neighbor query side of the local corpus.
type Corpus interface {
	Query(ctx context.Context, text string, topK int, f filter.Expression) ([]document.Hit, error)
}
