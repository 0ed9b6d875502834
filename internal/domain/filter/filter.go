package filter

import (
	"fmt"
	"math"
)

// MaxConditions is the maximum number of conditions in one expression.
const MaxConditions = 16

// Expression is a conjunction of metadata conditions applied as a pre-filter.
type Expression struct {
	must []Condition
}

// New validates and creates an Expression. Zero-value conditions are skipped.
func New(conds ...Condition) (Expression, error) {
	must := make([]Condition, 0, len(conds))
	for _, c := range conds {
		if c.key == "" {
			continue
		}
		must = append(must, c)
	}
	if len(must) > MaxConditions {
		return Expression{}, fmt.Errorf("too many filter conditions (max %d)", MaxConditions)
	}
	return Expression{must: must}, nil
}

// Must returns the conditions.
func (e Expression) Must() []Condition { return e.must }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.must) == 0 }

// Condition is a single clause: an exact tag match or an inclusive numeric range.
type Condition struct {
	key   string
	match string
	lo    float64
	hi    float64
	isRng bool
}

// Equal creates an exact tag match. An empty value yields a zero Condition.
func Equal(key, value string) Condition {
	if key == "" || value == "" {
		return Condition{}
	}
	return Condition{key: key, match: value}
}

// Between creates an inclusive numeric range. Use math.Inf for open bounds.
func Between(key string, lo, hi float64) Condition {
	if key == "" || lo > hi {
		return Condition{}
	}
	return Condition{key: key, lo: lo, hi: hi, isRng: true}
}

// AtLeast creates a range open on the upper side.
func AtLeast(key string, lo float64) Condition {
	return Between(key, lo, math.Inf(1))
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// Bounds returns the inclusive range bounds.
func (c Condition) Bounds() (lo, hi float64) { return c.lo, c.hi }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return c.match != "" }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.isRng }
