package chi

import (
	"context"

	"github.com/kailas-cloud/corpintel/internal/usecase/analysis"
	healthuc "github.com/kailas-cloud/corpintel/internal/usecase/health"
	"github.com/kailas-cloud/corpintel/internal/usecase/ingest"
)

// Analyzer runs the analysis pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, sess *analysis.Session, req analysis.Request) (*analysis.Result, error)
	Gather(ctx context.Context, req analysis.Request) (*analysis.Evidence, error)
}

// Ingestor adds records to the corpus.
type Ingestor interface {
	Ingest(ctx context.Context, records []ingest.Record) ingest.Report
}

// CorpusAdmin counts and clears the corpus.
type CorpusAdmin interface {
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
