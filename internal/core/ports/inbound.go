package ports

import (
	"context"

	"github.com/staygenie/hotel-discovery/internal/core/domain"
)

// SearchRequest is the common input of all three search entry points.
type SearchRequest struct {
	Query    string
	Defaults domain.SearchParams
}

// EventSink receives stream events one at a time, fully formed. The
// coordinator goroutine is the only caller for a given session, so
// implementations need not serialize writes themselves.
type EventSink interface {
	Send(ctx context.Context, event domain.StreamEvent) error
}

// StreamSearcher is the inbound contract for the streaming two-stage
// pipeline. Run blocks until the session reaches a terminal event or ctx
// is done; after it returns no further events are written to sink.
type StreamSearcher interface {
	Run(ctx context.Context, req SearchRequest, sink EventSink) error
}

// NarrativeForHotel tags narrative fields with their provenance.
type NarrativeForHotel struct {
	domain.NarrativeFields
	Fallback bool `json:"fallback"`
}

// EnrichedHotel pairs a match with its (possibly fallback) narrative.
type EnrichedHotel struct {
	domain.MatchResult
	Narrative NarrativeForHotel `json:"narrative"`
}

// TwoStageResult is the fully awaited output of the non-streaming sibling
// endpoint (fallback tier 2).
type TwoStageResult struct {
	SearchID string              `json:"searchId"`
	Params   domain.SearchParams `json:"params"`
	Hotels   []EnrichedHotel     `json:"hotels"`
}

// LegacyResult is the flat single-stage output (fallback tier 3).
type LegacyResult struct {
	SearchID string               `json:"searchId"`
	Hotels   []domain.MatchResult `json:"hotels"`
}

// SyncSearcher serves the non-streaming entry points.
type SyncSearcher interface {
	Search(ctx context.Context, req SearchRequest) (*TwoStageResult, error)
	LegacySearch(ctx context.Context, req SearchRequest) (*LegacyResult, error)
}
