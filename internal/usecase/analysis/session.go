package analysis

import (
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/corpintel/internal/domain/scenario"
)

// DefaultHistorySize bounds a session's history when no size is given.
const DefaultHistorySize = 20

// Turn is one answered question.
type Turn struct {
	Query    string      `json:"query"`
	Scenario scenario.ID `json:"scenario,omitempty"`
	Summary  string      `json:"summary"`
	At       time.Time   `json:"at"`
}

// Session is caller-owned state for a sequence of analyses. It is not safe
// for concurrent use.
type Session struct {
	ID       string
	Requests int

	limit   int
	history []Turn
}

// NewSession creates a session keeping at most limit turns.
func NewSession(limit int) *Session {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &Session{ID: uuid.NewString(), limit: limit}
}

// Record appends a turn, evicting the oldest one when full.
func (s *Session) Record(t Turn) {
	s.Requests++
	s.history = append(s.history, t)
	if over := len(s.history) - s.limit; over > 0 {
		s.history = append(s.history[:0], s.history[over:]...)
	}
}

// History returns the retained turns, oldest first.
func (s *Session) History() []Turn {
	return append([]Turn(nil), s.history...)
}

// Last returns the most recent turn.
func (s *Session) Last() (Turn, bool) {
	if len(s.history) == 0 {
		return Turn{}, false
	}
	return s.history[len(s.history)-1], true
}
