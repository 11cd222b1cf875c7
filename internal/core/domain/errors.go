package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrResolutionFailed means the free-text query could not be turned
	// into usable search parameters. Fatal to the session; no fallback
	// tier can help.
	ErrResolutionFailed = errors.New("query resolution failed")

	// ErrNoCandidates means stage 1 ran but produced zero hotels. Fatal
	// to the session but distinct from a technical failure: callers show
	// an empty-results state, not an error state.
	ErrNoCandidates = errors.New("no candidate hotels")

	// ErrEnrichment marks a per-hotel stage-2 failure. Recovered locally
	// with fallback narrative text; never escalated to the session.
	ErrEnrichment = errors.New("enrichment failed")

	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
