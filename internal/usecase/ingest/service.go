// Package ingest validates ingestion records and adds them to the corpus in
// bounded batches with per-record outcomes.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domdoc "github.com/kailas-cloud/corpintel/internal/domain/document"
	"github.com/kailas-cloud/corpintel/internal/logger"
)

// MaxBatchSize is the default number of documents per corpus call.
const MaxBatchSize = 100

// Status is a per-record outcome.
type Status string

const (
	// StatusOK marks a stored record.
	StatusOK Status = "ok"
	// StatusError marks a rejected or failed record.
	StatusError Status = "error"
)

// Result is the outcome for one record.
type Result struct {
	Line   int    `json:"line,omitempty"`
	ID     string `json:"id,omitempty"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

func newError(line int, id string, err error) Result {
	return Result{Line: line, ID: id, Status: StatusError, Error: err.Error()}
}

// Report summarizes an ingestion run.
type Report struct {
	Added   int      `json:"added"`
	Failed  int      `json:"failed"`
	Results []Result `json:"results"`
}

func (r *Report) add(res Result) {
	if res.Status == StatusOK {
		r.Added++
	} else {
		r.Failed++
	}
	r.Results = append(r.Results, res)
}

// Service ingests records into the corpus.
type Service struct {
	corpus       Corpus
	maxBatchSize int
}

// New creates an ingestion service.
func New(corpus Corpus) *Service {
	return &Service{corpus: corpus, maxBatchSize: MaxBatchSize}
}

// WithMaxBatchSize configures the batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Ingest validates every record and stores the valid ones. A failed corpus
// call fails only the records of its batch.
func (s *Service) Ingest(ctx context.Context, records []Record) Report {
	var rep Report
	valid := make([]domdoc.Document, 0, len(records))
	lines := make([]int, 0, len(records))
	for _, rec := range records {
		doc, err := rec.Document()
		if err != nil {
			rep.add(newError(rec.Line, rec.ID, fmt.Errorf("invalid record: %w", err)))
			continue
		}
		valid = append(valid, doc)
		lines = append(lines, rec.Line)
	}

	log := logger.FromContext(ctx)
	for start := 0; start < len(valid); start += s.maxBatchSize {
		end := min(start+s.maxBatchSize, len(valid))
		batch := valid[start:end]

		ids, err := s.corpus.Add(ctx, batch)
		if err != nil {
			log.Warn("Ingest batch failed", zap.Int("offset", start), zap.Int("size", len(batch)), zap.Error(err))
		}
		for i := range batch {
			switch {
			case err != nil:
				rep.add(newError(lines[start+i], batch[i].ID(), fmt.Errorf("add: %w", err)))
			case i < len(ids):
				rep.add(Result{Line: lines[start+i], ID: ids[i], Status: StatusOK})
			default:
				rep.add(Result{Line: lines[start+i], ID: batch[i].ID(), Status: StatusOK})
			}
		}
	}

	log.Info("Ingest completed", zap.Int("added", rep.Added), zap.Int("failed", rep.Failed))
	return rep
}
