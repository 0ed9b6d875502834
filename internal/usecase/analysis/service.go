// Package analysis orchestrates one question end to end: retrieval, fusion,
// the search decision, external search, context assembly, generation and
// response validation.
package analysis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/corpintel/internal/domain"
	"github.com/kailas-cloud/corpintel/internal/domain/candidate"
	"github.com/kailas-cloud/corpintel/internal/domain/evidence"
	"github.com/kailas-cloud/corpintel/internal/domain/external"
	"github.com/kailas-cloud/corpintel/internal/domain/response"
	"github.com/kailas-cloud/corpintel/internal/domain/scenario"
	"github.com/kailas-cloud/corpintel/internal/logger"
	"github.com/kailas-cloud/corpintel/internal/metrics"
	"github.com/kailas-cloud/corpintel/internal/usecase/assemble"
	"github.com/kailas-cloud/corpintel/internal/usecase/augment"
	"github.com/kailas-cloud/corpintel/internal/usecase/fusion"
	"github.com/kailas-cloud/corpintel/internal/usecase/respond"
	"github.com/kailas-cloud/corpintel/internal/usecase/retrieval"
)

// Config tunes the pipeline.
type Config struct {
	TopK                int
	SimilarityThreshold float64
	Weights             fusion.Weights
	ExtractFromQuery    bool
	GenerationModel     string
	SearchModel         string
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		TopK:                15,
		SimilarityThreshold: 0.5,
		Weights:             fusion.DefaultWeights,
		ExtractFromQuery:    true,
	}
}

// Request is one question.
type Request struct {
	Query      string
	Entity     string
	Scenario   string
	Preference evidence.Preference
}

// Evidence is everything gathered for a question before generation.
type Evidence struct {
	Query    string
	Entity   string
	Rule     *scenario.Rule
	Local    []candidate.Fused
	External []candidate.Fused
	Decision evidence.Decision
}

// Option configures a Service.
type Option func(*Service)

// WithSearcher enables the external search pass.
func WithSearcher(s Searcher) Option {
	return func(svc *Service) { svc.searcher = s }
}

// WithSearchMemo memoizes external search results.
func WithSearchMemo(m SearchMemo) Option {
	return func(svc *Service) { svc.memo = m }
}

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

// Service runs the analysis pipeline.
type Service struct {
	cfg       Config
	retriever Retriever
	decider   Decider
	assembler *assemble.Assembler
	generator domain.Generator
	searcher  Searcher
	memo      SearchMemo
	now       func() time.Time
}

// New creates the pipeline. Without WithSearcher, search decisions are still
// made and reported but no external call is issued.
func New(
	cfg Config,
	retriever Retriever,
	decider Decider,
	assembler *assemble.Assembler,
	generator domain.Generator,
	opts ...Option,
) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	s := &Service{
		cfg:       cfg,
		retriever: retriever,
		decider:   decider,
		assembler: assembler,
		generator: generator,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Gather retrieves and fuses local evidence, decides on and runs the external
// search, and splits the merged set. Collaborator failures degrade to empty
// evidence; only an empty query is an error.
func (s *Service) Gather(ctx context.Context, req Request) (*Evidence, error) {
	q := strings.TrimSpace(req.Query)
	if q == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}

	ev := &Evidence{Query: q}
	ev.Entity, ev.Rule = s.resolve(ctx, q, strings.TrimSpace(req.Entity), strings.TrimSpace(req.Scenario))

	opts := fusion.Options{
		Query:   q,
		Entity:  ev.Entity,
		Rule:    ev.Rule,
		TopK:    s.cfg.TopK,
		Weights: s.cfg.Weights,
	}
	cands := s.retriever.Retrieve(ctx, retrieval.Request{
		Query:  q,
		Entity: ev.Entity,
		Rule:   ev.Rule,
		TopK:   s.cfg.TopK,
	})
	first := fusion.Fuse(cands, opts)

	ev.Decision = s.decider.Decide(augment.Input{
		Query:      q,
		Entity:     ev.Entity,
		Rule:       ev.Rule,
		Results:    first,
		Preference: req.Preference,
	})
	metrics.SearchDecisionsTotal.WithLabelValues(
		string(ev.Decision.Type), strconv.FormatBool(ev.Decision.ShouldSearch),
	).Inc()

	merged := first
	if ev.Decision.ShouldSearch {
		if results := s.search(ctx, ev); len(results) > 0 {
			web := external.ToCandidates(results)
			opts.TopK = s.cfg.TopK + len(web)
			merged = fusion.Fuse(append(candidate.Candidates(first), web...), opts)
		}
	}

	local, web := candidate.Split(merged)
	ev.Local = s.threshold(local)
	ev.External = web

	logger.FromContext(ctx).Debug("Evidence gathered",
		zap.String("entity", ev.Entity),
		zap.String("search_type", string(ev.Decision.Type)),
		zap.Int("candidates", len(cands)),
		zap.Int("local", len(ev.Local)),
		zap.Int("external", len(ev.External)),
	)
	return ev, nil
}

// Analyze answers one question. sess may be nil; when set, the turn is
// recorded in its history. Generation failures yield an error envelope.
func (s *Service) Analyze(ctx context.Context, sess *Session, req Request) (*Result, error) {
	start := s.now()
	ev, err := s.Gather(ctx, req)
	if err != nil {
		return nil, err
	}

	in := assemble.Input{
		Local:    ev.Local,
		External: ev.External,
		Query:    ev.Query,
		Entity:   ev.Entity,
		Rule:     ev.Rule,
		Decision: &ev.Decision,
	}
	c := s.assembler.Assemble(in)
	resp := s.generate(ctx, s.assembler.Prompt(in, c), ev.Rule)

	res := &Result{
		Response:  resp,
		Decision:  ev.Decision,
		Entity:    ev.Entity,
		Sources:   statistics(ev.Local, ev.External),
		Context:   c,
		Local:     ev.Local,
		External:  ev.External,
		Timestamp: start,
		Duration:  s.now().Sub(start),
	}
	label := "none"
	if ev.Rule != nil {
		label = string(ev.Rule.ID)
		res.Scenario = &ScenarioInfo{
			ID:          ev.Rule.ID,
			DisplayName: ev.Rule.DisplayName,
			Framework:   ev.Rule.Framework,
		}
	}
	metrics.AnalysisDuration.WithLabelValues(label).Observe(res.Duration.Seconds())

	if sess != nil {
		t := Turn{Query: ev.Query, Summary: resp.Summary, At: start}
		if ev.Rule != nil {
			t.Scenario = ev.Rule.ID
		}
		sess.Record(t)
	}

	logger.FromContext(ctx).Info("Analysis completed",
		zap.String("scenario", label),
		zap.String("parse_tier", string(resp.Tier)),
		zap.Bool("searched", ev.Decision.ShouldSearch),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// resolve fills a missing entity or scenario from the query when enabled and
// maps the scenario onto a rule. Unknown scenarios fall back to the default.
func (s *Service) resolve(ctx context.Context, q, entity, scen string) (string, *scenario.Rule) {
	if s.cfg.ExtractFromQuery && (entity == "" || scen == "") {
		ext := scenario.Extract(q)
		if entity == "" {
			entity = ext.Entity()
		}
		if scen == "" && ext.Scenario != "" {
			scen = string(ext.Scenario)
		}
	}

	rule, err := scenario.Resolve(scen)
	if err != nil {
		logger.FromContext(ctx).Warn("Unknown scenario, using default",
			zap.String("scenario", scen),
			zap.Error(err),
		)
	}
	return entity, rule
}

// search runs the external search through the memo. Any failure yields no
// results.
func (s *Service) search(ctx context.Context, ev *Evidence) []external.Result {
	if s.searcher == nil {
		return nil
	}
	q := external.Query{
		Text:   ev.Decision.Query,
		Entity: ev.Entity,
		Model:  s.cfg.SearchModel,
	}
	if q.Text == "" {
		q.Text = ev.Query
	}
	if ev.Rule != nil {
		q.Scenario = ev.Rule.DisplayName
	}

	if s.memo != nil {
		if cached, ok := s.memo.Get(ctx, q); ok {
			metrics.ExternalSearchTotal.WithLabelValues("cached").Inc()
			return cached
		}
	}

	results, err := s.searcher.Search(ctx, q)
	if err != nil {
		metrics.ExternalSearchTotal.WithLabelValues("error").Inc()
		logger.FromContext(ctx).Warn("External search failed",
			zap.Error(domain.NewCollaboratorError("search", err)),
		)
		return nil
	}
	metrics.ExternalSearchTotal.WithLabelValues("ok").Inc()
	if s.memo != nil {
		s.memo.Set(ctx, q, results)
	}
	return results
}

func (s *Service) generate(ctx context.Context, p domain.Prompt, rule *scenario.Rule) *response.Response {
	raw, err := s.generator.Complete(ctx, p, s.cfg.GenerationModel)
	if err == nil {
		return respond.Validate(ctx, raw, rule)
	}

	err = domain.NewCollaboratorError("generation", err)
	logger.FromContext(ctx).Error("Generation failed", zap.Error(err))
	metrics.ResponseTierTotal.WithLabelValues(string(response.TierError)).Inc()
	var schema *scenario.Schema
	if rule != nil {
		schema = &rule.Schema
	}
	return response.Error(err, schema)
}

// threshold drops local results whose blended similarity is below the
// configured floor.
func (s *Service) threshold(local []candidate.Fused) []candidate.Fused {
	if s.cfg.SimilarityThreshold <= 0 {
		return local
	}
	out := local[:0]
	for _, f := range local {
		if f.Blended >= s.cfg.SimilarityThreshold {
			out = append(out, f)
		}
	}
	return out
}
