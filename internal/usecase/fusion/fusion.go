// Package fusion deduplicates retrieval candidates and rescores them with
// entity, scenario and query-term boosts.
package fusion

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"

	"github.com/kailas-cloud/corpintel/internal/domain/candidate"
	"github.com/kailas-cloud/corpintel/internal/domain/query"
	"github.com/kailas-cloud/corpintel/internal/domain/scenario"
	"github.com/kailas-cloud/corpintel/internal/usecase/entity"
)

const (
	fingerprintRunes = 200

	maxEntityCount = 5
	freqWeight     = 0.4
	posWeight      = 0.6
	fuzzyThreshold = 0.6
	fuzzyScore     = 0.5

	scenarioHitsCap  = 3
	scenarioWeight   = 0.3
	minScenarioShare = 0.3

	queryWeight = 0.2
)

// Weights blends the strategy similarity with entity relevance.
type Weights struct {
	Similarity float64
	Entity     float64
}

// DefaultWeights is the general search blend.
var DefaultWeights = Weights{Similarity: 0.6, Entity: 0.4}

// Options parameterize one fusion pass.
type Options struct {
	Query   string
	Entity  string
	Rule    *scenario.Rule
	TopK    int
	Weights Weights
}

// Fingerprint hashes the first 200 runes of content.
func Fingerprint(content string) uint64 {
	return xxhash.Sum64String(query.Prefix(content, fingerprintRunes))
}

// Fuse deduplicates candidates (first seen wins), applies the boosts and
// returns at most TopK results sorted by score. Ties keep input order.
func Fuse(cands []candidate.Candidate, opts Options) []candidate.Fused {
	w := opts.Weights
	if w == (Weights{}) {
		w = DefaultWeights
	}

	fused := dedup(cands)
	entityName := strings.TrimSpace(opts.Entity)
	for i := range fused {
		f := &fused[i]
		f.Blended = f.Similarity
		if entityName != "" {
			rel := Relevance(entityName, f.Content, f.Metadata.Entity())
			f.Boosts[candidate.BoostEntity] = rel
			f.Blended = f.Similarity*w.Similarity + rel*w.Entity
		}
		f.Score = f.Blended
	}

	if opts.Rule != nil {
		fused = applyScenario(fused, opts.Rule.BoostKeywords)
	}

	terms := query.Terms(opts.Query)
	if len(terms) > 0 {
		for i := range fused {
			f := &fused[i]
			matched := query.CountContained(strings.ToLower(f.Content), terms)
			boost := min(float64(matched)/float64(len(terms)), 1) * queryWeight
			f.Boosts[candidate.BoostQuery] = boost
			f.Score += boost
		}
	}

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})
	if opts.TopK > 0 && len(fused) > opts.TopK {
		fused = fused[:opts.TopK]
	}
	return fused
}

func dedup(cands []candidate.Candidate) []candidate.Fused {
	seen := make(map[uint64]struct{}, len(cands))
	out := make([]candidate.Fused, 0, len(cands))
	for _, c := range cands {
		fp := Fingerprint(c.Content)
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}

		boosts := make(map[string]float64, len(c.Boosts)+3)
		for k, v := range c.Boosts {
			boosts[k] = v
		}
		c.Boosts = boosts
		out = append(out, candidate.Fused{Candidate: c, Fingerprint: fp})
	}
	return out
}

// applyScenario adds the keyword boost and keeps only passages with at least
// one keyword hit, unless that would drop more than 70% of them. Web results
// are never filtered: their query already carries the scenario keywords.
func applyScenario(fused []candidate.Fused, keywords []string) []candidate.Fused {
	if len(keywords) == 0 || len(fused) == 0 {
		return fused
	}
	hits := make([]int, len(fused))
	kept := 0
	for i := range fused {
		f := &fused[i]
		hits[i] = query.CountContained(f.Content, keywords)
		boost := min(float64(hits[i])/scenarioHitsCap, 1) * scenarioWeight
		f.Boosts[candidate.BoostScenario] = boost
		f.Score += boost
		if hits[i] > 0 || !f.Strategy.IsLocal() {
			kept++
		}
	}
	if float64(kept) < minScenarioShare*float64(len(fused)) {
		return fused
	}
	out := fused[:0]
	for i := range fused {
		if hits[i] > 0 || !fused[i].Strategy.IsLocal() {
			out = append(out, fused[i])
		}
	}
	return out
}

// Relevance scores how strongly a passage is about the entity, in [0,1].
func Relevance(name, content, metaEntity string) float64 {
	lname := strings.ToLower(name)
	lmeta := strings.ToLower(strings.TrimSpace(metaEntity))
	if lmeta != "" {
		if lmeta == lname {
			return 1.0
		}
		if strings.Contains(lmeta, lname) || strings.Contains(lname, lmeta) {
			return 0.8
		}
	}

	lcontent := strings.ToLower(content)
	if idx := strings.Index(lcontent, lname); idx >= 0 {
		count := strings.Count(lcontent, lname)
		freq := min(float64(count)/maxEntityCount, 1) * freqWeight
		return freq + position(utf8.RuneCountInString(lcontent[:idx]))*posWeight
	}

	if entity.FuzzyMatch(lname, lcontent) > fuzzyThreshold {
		return fuzzyScore
	}
	return 0
}

func position(runeIdx int) float64 {
	switch {
	case runeIdx < 100:
		return 1.0
	case runeIdx < 500:
		return 0.5
	default:
		return 0.2
	}
}
