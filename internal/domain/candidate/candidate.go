// Package candidate defines retrieval hits before and after fusion.
package candidate

import (
	"fmt"

	"github.com/kailas-cloud/corpintel/internal/domain/document"
)

// Strategy tags which retrieval path produced a candidate.
type Strategy string

const (
	// StrategySemantic is a free-text nearest-neighbor query.
	StrategySemantic Strategy = "semantic"
	// StrategyExactEntity is a metadata-filtered query on the entity name.
	StrategyExactEntity Strategy = "exact_entity"
	// StrategyFuzzyEntity is a variant-based query filtered by containment.
	StrategyFuzzyEntity Strategy = "fuzzy_entity"
	// StrategyWeb is an external search result.
	StrategyWeb Strategy = "web"
)

// Parse validates a strategy string.
func Parse(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySemantic, StrategyExactEntity, StrategyFuzzyEntity, StrategyWeb:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown strategy %q", s)
	}
}

// IsLocal reports whether the strategy reads the local corpus.
func (s Strategy) IsLocal() bool { return s != StrategyWeb }

// Boost names recorded in Candidate.Boosts.
const (
	BoostEntity   = "entity"
	BoostScenario = "scenario"
	BoostQuery    = "query"
)

// Candidate is an unfused hit from one strategy. Similarity is in [0,1].
type Candidate struct {
	Content    string
	Metadata   document.Metadata
	Similarity float64
	Strategy   Strategy
	Boosts     map[string]float64
}

// Fused is a deduplicated, rescored candidate. The embedded Candidate keeps
// its strategy similarity; Blended is the entity-blended similarity and Score
// adds the scenario and query boosts on top of it.
type Fused struct {
	Candidate
	Fingerprint uint64
	Blended     float64
	Score       float64
}

// Candidates strips fusion scores so a fused list can be fed into another pass.
func Candidates(fused []Fused) []Candidate {
	out := make([]Candidate, len(fused))
	for i := range fused {
		out[i] = fused[i].Candidate
	}
	return out
}

// Split partitions fused results into local and external ones, keeping order.
func Split(fused []Fused) (local, external []Fused) {
	for i := range fused {
		if fused[i].Strategy.IsLocal() {
			local = append(local, fused[i])
		} else {
			external = append(external, fused[i])
		}
	}
	return local, external
}
