// Package retrieval runs the semantic, exact-entity and fuzzy-entity
// strategies against the local corpus.
package retrieval

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/corpintel/internal/domain"
	"github.com/kailas-cloud/corpintel/internal/domain/candidate"
	"github.com/kailas-cloud/corpintel/internal/domain/document"
	"github.com/kailas-cloud/corpintel/internal/domain/filter"
	"github.com/kailas-cloud/corpintel/internal/domain/scenario"
	"github.com/kailas-cloud/corpintel/internal/logger"
	"github.com/kailas-cloud/corpintel/internal/metrics"
	"github.com/kailas-cloud/corpintel/internal/usecase/entity"
)

const (
	exactSimilarity = 0.9
	fuzzyWeight     = 0.7

	// MaxFuzzyVariants bounds corpus queries issued by the fuzzy strategy.
	MaxFuzzyVariants = 8
)

// exactTemplates are the suffixes queried by the exact-entity strategy.
var exactTemplates = []string{"", "公司", "股份"}

// entityFields are the metadata tags naming a document's company, in lookup order.
var entityFields = []string{document.FieldCompanyName, document.FieldEntity}

// Request is one retrieval call.
type Request struct {
	Query  string
	Entity string
	Rule   *scenario.Rule
	TopK   int
}

// outcome is what one strategy produced. A non-nil err means the strategy
// failed and its candidates are discarded.
type outcome struct {
	strategy   candidate.Strategy
	candidates []candidate.Candidate
	err        error
}

// Service runs the retrieval strategies.
type Service struct {
	corpus Corpus
}

// New creates a retrieval service.
func New(corpus Corpus) *Service {
	return &Service{corpus: corpus}
}

// Retrieve runs the strategies concurrently and concatenates their
// candidates in strategy order: semantic, exact, fuzzy. A failed strategy
// contributes nothing; Retrieve itself never fails.
func (s *Service) Retrieve(ctx context.Context, req Request) []candidate.Candidate {
	outcomes := []outcome{
		{strategy: candidate.StrategySemantic},
		{strategy: candidate.StrategyExactEntity},
		{strategy: candidate.StrategyFuzzyEntity},
	}
	run := []func(context.Context, Request) ([]candidate.Candidate, error){
		s.semantic, s.exact, s.fuzzy,
	}

	var g errgroup.Group
	for i := range outcomes {
		g.Go(func() error {
			outcomes[i].candidates, outcomes[i].err = run[i](ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	log := logger.FromContext(ctx)
	var out []candidate.Candidate
	for _, o := range outcomes {
		status := "ok"
		if o.err != nil {
			status = "error"
			log.Warn("Retrieval strategy failed",
				zap.String("strategy", string(o.strategy)),
				zap.Error(domain.NewCollaboratorError("corpus", o.err)),
			)
		} else {
			out = append(out, o.candidates...)
			metrics.RetrievalCandidatesTotal.WithLabelValues(string(o.strategy)).Add(float64(len(o.candidates)))
		}
		metrics.RetrievalStrategyTotal.WithLabelValues(string(o.strategy), status).Inc()
	}

	log.Debug("Retrieval completed",
		zap.Int("candidates", len(out)),
		zap.Bool("entity", req.Entity != ""),
	)
	return out
}

func (s *Service) semantic(ctx context.Context, req Request) ([]candidate.Candidate, error) {
	var f filter.Expression
	if req.Rule != nil {
		f = single(filter.Equal(document.FieldDocumentType, req.Rule.DocumentType))
	}
	hits, err := s.corpus.Query(ctx, req.Query, req.TopK, f)
	if err != nil {
		return nil, err
	}

	out := make([]candidate.Candidate, 0, len(hits))
	for _, h := range hits {
		out = append(out, newCandidate(h, Similarity(h.Distance), candidate.StrategySemantic))
	}
	return out, nil
}

// exact queries each entity field the metadata accepts. A document tagged
// with company_name is returned by the first pass only.
func (s *Service) exact(ctx context.Context, req Request) ([]candidate.Candidate, error) {
	name := strings.TrimSpace(req.Entity)
	if name == "" {
		return nil, nil
	}

	var out []candidate.Candidate
	for _, field := range entityFields {
		f := single(filter.Equal(field, name))
		for _, suffix := range exactTemplates {
			hits, err := s.corpus.Query(ctx, name+suffix, req.TopK, f)
			if err != nil {
				return nil, err
			}
			for _, h := range hits {
				if field != document.FieldCompanyName &&
					h.Document.Metadata().Tag(document.FieldCompanyName) == name {
					continue
				}
				out = append(out, newCandidate(h, exactSimilarity, candidate.StrategyExactEntity))
			}
		}
	}
	return out, nil
}

func (s *Service) fuzzy(ctx context.Context, req Request) ([]candidate.Candidate, error) {
	name := strings.TrimSpace(req.Entity)
	if name == "" {
		return nil, nil
	}

	var out []candidate.Candidate
	for _, v := range longestVariants(entity.Variants(name), MaxFuzzyVariants) {
		hits, err := s.corpus.Query(ctx, v, req.TopK, filter.Expression{})
		if err != nil {
			return nil, err
		}
		lv := strings.ToLower(v)
		for _, h := range hits {
			meta := h.Document.Metadata().Entity()
			if !strings.Contains(strings.ToLower(h.Document.Content()), lv) &&
				!strings.Contains(strings.ToLower(meta), lv) {
				continue
			}
			sim := fuzzyWeight * entity.FuzzyMatch(v, meta)
			out = append(out, newCandidate(h, sim, candidate.StrategyFuzzyEntity))
		}
	}
	return out, nil
}

// Similarity converts a cosine distance into a similarity in [0,1].
func Similarity(distance float64) float64 {
	return min(max(1-distance, 0), 1)
}

func newCandidate(h document.Hit, sim float64, st candidate.Strategy) candidate.Candidate {
	return candidate.Candidate{
		Content:    h.Document.Content(),
		Metadata:   h.Document.Metadata(),
		Similarity: sim,
		Strategy:   st,
		Boosts:     map[string]float64{},
	}
}

// longestVariants keeps the n longest variants, ties in lexical order.
func longestVariants(vs []string, n int) []string {
	if len(vs) <= n {
		return vs
	}
	sorted := append([]string(nil), vs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return utf8.RuneCountInString(sorted[i]) > utf8.RuneCountInString(sorted[j])
	})
	return sorted[:n]
}

// single builds a one-condition expression; an empty condition yields no filter.
func single(c filter.Condition) filter.Expression {
	f, _ := filter.New(c)
	return f
}
