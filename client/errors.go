package client

import (
	"errors"
	"fmt"
)

var (
	// ErrResolution means the server could not understand the query. No
	// fallback tier can help; surfaced immediately.
	ErrResolution = errors.New("query could not be resolved")

	// ErrNoResults means the search ran but matched zero hotels. Callers
	// show an empty state, not an error state.
	ErrNoResults = errors.New("no hotels matched")

	// ErrSuperseded means a newer query started before this session
	// finished. Never user-visible; the old session is discarded.
	ErrSuperseded = errors.New("session superseded")
)

// TransportError marks a tier failure the ladder can absorb: dropped
// stream, timeout, malformed frame, or upstream 5xx.
type TransportError struct {
	Tier  Tier
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s tier failed: %v", e.Tier, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// LadderError reports that every tier failed; TierErrors holds one entry
// per attempted tier in order.
type LadderError struct {
	TierErrors []error
}

func (e *LadderError) Error() string {
	return fmt.Sprintf("all %d search tiers failed: last: %v", len(e.TierErrors), e.TierErrors[len(e.TierErrors)-1])
}

func (e *LadderError) Unwrap() error {
	if len(e.TierErrors) == 0 {
		return nil
	}
	return e.TierErrors[len(e.TierErrors)-1]
}
