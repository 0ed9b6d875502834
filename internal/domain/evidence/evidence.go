// Package evidence defines the sufficiency report and the external-search decision.
package evidence

import "fmt"

// DeficiencyKind names the rule that found local evidence lacking.
type DeficiencyKind string

const (
	DeficiencyEmpty      DeficiencyKind = "empty"
	DeficiencyCount      DeficiencyKind = "count"
	DeficiencySimilarity DeficiencyKind = "similarity"
	DeficiencyTemporal   DeficiencyKind = "temporal"
	DeficiencyCoverage   DeficiencyKind = "coverage"
)

// Deficiency is one reason local evidence is insufficient.
type Deficiency struct {
	Kind    DeficiencyKind `json:"kind"`
	Message string         `json:"message"`
}

func (d Deficiency) String() string { return d.Message }

// Report is the sufficiency verdict for one request's fused results.
type Report struct {
	IsSufficient  bool         `json:"is_sufficient"`
	Confidence    float64      `json:"confidence"`
	Deficiencies  []Deficiency `json:"deficiencies"`
	AvgSimilarity float64      `json:"avg_similarity"`
	DocCount      int          `json:"doc_count"`
}

// Has reports whether a deficiency of the given kind was recorded.
func (r Report) Has(kind DeficiencyKind) bool {
	for _, d := range r.Deficiencies {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

// Messages returns deficiency messages in order.
func (r Report) Messages() []string {
	out := make([]string, len(r.Deficiencies))
	for i, d := range r.Deficiencies {
		out[i] = d.Message
	}
	return out
}

// SearchType classifies why external search was or was not chosen.
type SearchType string

const (
	SearchNone          SearchType = "none"
	SearchMandatory     SearchType = "mandatory"
	SearchAuto          SearchType = "auto"
	SearchUserRequested SearchType = "user_requested"
	SearchUserDisabled  SearchType = "user_disabled"
)

// Preference is the caller's external-search preference.
type Preference string

const (
	PreferenceAuto   Preference = "auto"
	PreferenceAlways Preference = "always"
	PreferenceNever  Preference = "never"
)

// ParsePreference accepts "", "auto", "always" and "never".
func ParsePreference(s string) (Preference, error) {
	switch Preference(s) {
	case "", PreferenceAuto:
		return PreferenceAuto, nil
	case PreferenceAlways, PreferenceNever:
		return Preference(s), nil
	default:
		return "", fmt.Errorf("unknown search preference %q", s)
	}
}

// Decision is the outcome of the augmentation decision.
type Decision struct {
	ShouldSearch bool       `json:"should_search"`
	Type         SearchType `json:"search_type"`
	Confidence   float64    `json:"confidence"`
	Query        string     `json:"query,omitempty"`
	Reasons      []string   `json:"reasons"`
	// Sufficiency is nil when evaluation stopped before the assessor ran.
	Sufficiency *Report `json:"sufficiency,omitempty"`
}
