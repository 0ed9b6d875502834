package analysis

import (
	"context"

	"github.com/kailas-cloud/corpintel/internal/domain/candidate"
	"github.com/kailas-cloud/corpintel/internal/domain/evidence"
	"github.com/kailas-cloud/corpintel/internal/domain/external"
	"github.com/kailas-cloud/corpintel/internal/usecase/augment"
	"github.com/kailas-cloud/corpintel/internal/usecase/retrieval"
)

// Retriever runs the local retrieval strategies.
type Retriever interface {
	Retrieve(ctx context.Context, req retrieval.Request) []candidate.Candidate
}

// Decider decides whether an external search pass runs.
type Decider interface {
	Decide(in augment.Input) evidence.Decision
}

// Searcher queries the external search provider.
type Searcher interface {
	Search(ctx context.Context, q external.Query) ([]external.Result, error)
}

// SearchMemo memoizes external search results per query.
type SearchMemo interface {
	Get(ctx context.Context, q external.Query) ([]external.Result, bool)
	Set(ctx context.Context, q external.Query, results []external.Result)
}
