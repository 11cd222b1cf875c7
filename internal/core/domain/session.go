package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the Stream Coordinator lifecycle state.
type SessionState string

const (
	StateStarting  SessionState = "starting"
	StateMatching  SessionState = "matching"
	StateStreaming SessionState = "streaming"
	StateDraining  SessionState = "draining"
	StateComplete  SessionState = "complete"
	StateErrored   SessionState = "errored"
)

// Terminal reports whether no further events may follow.
func (s SessionState) Terminal() bool {
	return s == StateComplete || s == StateErrored
}

// SearchSession scopes one query from submission to terminal event. The
// coordinator owns it exclusively; ExpectedCount is fixed once stage 1
// finishes and nothing else mutates after creation.
type SearchSession struct {
	ID            string
	Query         string
	Params        SearchParams
	ExpectedCount int
	CreatedAt     time.Time

	state SessionState
}

func NewSearchSession(query string) *SearchSession {
	return &SearchSession{
		ID:        uuid.NewString(),
		Query:     query,
		CreatedAt: time.Now().UTC(),
		state:     StateStarting,
	}
}

func (s *SearchSession) State() SessionState { return s.state }

// Transition moves the session to next and reports whether the move is
// legal. Errored is reachable from every non-terminal state; otherwise only
// the forward order Starting -> Matching -> Streaming -> Draining ->
// Complete is allowed.
func (s *SearchSession) Transition(next SessionState) bool {
	if s.state.Terminal() {
		return false
	}
	if next == StateErrored {
		s.state = next
		return true
	}
	order := map[SessionState]SessionState{
		StateStarting:  StateMatching,
		StateMatching:  StateStreaming,
		StateStreaming: StateDraining,
		StateDraining:  StateComplete,
	}
	if order[s.state] != next {
		return false
	}
	s.state = next
	return true
}
