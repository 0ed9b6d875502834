// Package sufficiency judges whether fused local evidence is enough to answer
// a query without an external search.
package sufficiency

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/corpintel/internal/domain/candidate"
	"github.com/kailas-cloud/corpintel/internal/domain/evidence"
	"github.com/kailas-cloud/corpintel/internal/domain/query"
)

// MsgNoDocuments is the only deficiency of an empty result set.
const MsgNoDocuments = "no local documents found"

const (
	emptyConfidence     = 0.8
	countPenalty        = 0.3
	similarityPenalty   = 0.3
	temporalPenalty     = 0.4
	coveragePenalty     = 0.2
	minRecentShare      = 0.3
	minCoverageShare    = 0.5
	recentYearsLookback = 1
)

// Config holds the sufficiency thresholds.
type Config struct {
	MinDocs          int
	MinAvgSimilarity float64
}

// DefaultConfig returns min_docs=2 and min_avg_similarity=0.5.
func DefaultConfig() Config {
	return Config{MinDocs: 2, MinAvgSimilarity: 0.5}
}

// Assessor evaluates the count, similarity, temporal and coverage rules.
type Assessor struct {
	cfg Config
	now func() time.Time
}

// New creates an assessor. A nil clock means time.Now.
func New(cfg Config, now func() time.Time) *Assessor {
	if now == nil {
		now = time.Now
	}
	return &Assessor{cfg: cfg, now: now}
}

// Assess scores the fused results against the query. Each triggered rule adds
// to the confidence that a search is needed; the sum is clamped to [0,1].
func (a *Assessor) Assess(results []candidate.Fused, q string) evidence.Report {
	if len(results) == 0 {
		return evidence.Report{
			IsSufficient: false,
			Confidence:   emptyConfidence,
			Deficiencies: []evidence.Deficiency{{Kind: evidence.DeficiencyEmpty, Message: MsgNoDocuments}},
		}
	}

	rep := evidence.Report{DocCount: len(results)}
	var sum float64
	for i := range results {
		sum += results[i].Blended
	}
	rep.AvgSimilarity = sum / float64(len(results))

	var conf float64
	add := func(kind evidence.DeficiencyKind, penalty float64, format string, args ...any) {
		conf += penalty
		rep.Deficiencies = append(rep.Deficiencies, evidence.Deficiency{
			Kind:    kind,
			Message: fmt.Sprintf(format, args...),
		})
	}

	if len(results) < a.cfg.MinDocs {
		add(evidence.DeficiencyCount, countPenalty,
			"only %d local documents, need at least %d", len(results), a.cfg.MinDocs)
	}
	if rep.AvgSimilarity < a.cfg.MinAvgSimilarity {
		add(evidence.DeficiencySimilarity, similarityPenalty,
			"average similarity %.2f below %.2f", rep.AvgSimilarity, a.cfg.MinAvgSimilarity)
	}

	now := a.now()
	if _, timely := query.FirstContained(q, query.TimeKeywords(now)); timely {
		if share := recentShare(results, now.Year()-recentYearsLookback); share < minRecentShare {
			add(evidence.DeficiencyTemporal, temporalPenalty,
				"only %.0f%% of local documents are from %d or later", share*100, now.Year()-recentYearsLookback)
		}
	}

	if kws := query.Keywords(q); len(kws) > 0 {
		if share := coverage(results, kws); share < minCoverageShare {
			add(evidence.DeficiencyCoverage, coveragePenalty,
				"local documents cover %.0f%% of query keywords", share*100)
		}
	}

	rep.Confidence = min(max(conf, 0), 1)
	rep.IsSufficient = len(rep.Deficiencies) == 0
	return rep
}

func recentShare(results []candidate.Fused, sinceYear int) float64 {
	recent := 0
	for i := range results {
		if ts, ok := results[i].Metadata.Timestamp(); ok && ts.Year() >= sinceYear {
			recent++
		}
	}
	return float64(recent) / float64(len(results))
}

func coverage(results []candidate.Fused, keywords []string) float64 {
	found := 0
	for _, kw := range keywords {
		for i := range results {
			text := strings.ToLower(results[i].Content + " " + results[i].Metadata.Source())
			if strings.Contains(text, kw) {
				found++
				break
			}
		}
	}
	return float64(found) / float64(len(keywords))
}
