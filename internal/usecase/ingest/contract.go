package ingest

import (
	"context"

	domdoc "github.com/kailas-cloud/corpintel/internal/domain/document"
)

// Corpus stores documents and returns their IDs in input order.
type Corpus interface {
	Add(ctx context.Context, docs []domdoc.Document) ([]string, error)
}
