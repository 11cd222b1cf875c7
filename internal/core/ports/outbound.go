package ports

import (
	"context"

	"github.com/staygenie/hotel-discovery/internal/core/domain"
)

// QueryResolver turns a free-text query plus request defaults into
// structured search parameters.
type QueryResolver interface {
	Resolve(ctx context.Context, query string, defaults domain.SearchParams) (domain.SearchParams, error)
}

// OfferSource retrieves bookable hotel offers for resolved parameters from
// the upstream rates provider.
type OfferSource interface {
	FetchOffers(ctx context.Context, params domain.SearchParams) ([]domain.HotelOffer, error)
}

// InsightGenerator produces the AI-derived narrative fields for one matched
// hotel given the original query text.
type InsightGenerator interface {
	GenerateInsights(ctx context.Context, match domain.MatchResult, query string) (domain.NarrativeFields, error)
}

// SearchCompleted is the analytics summary published when a session
// reaches a terminal state.
type SearchCompleted struct {
	SearchID      string `json:"search_id"`
	Query         string `json:"query"`
	TotalFound    int    `json:"total_found"`
	TotalEnhanced int    `json:"total_enhanced"`
	DurationMs    int64  `json:"duration_ms"`
	Outcome       string `json:"outcome"`
}

// EventPublisher emits session analytics events. Implementations are
// fire-and-forget; a publish failure never affects the session.
type EventPublisher interface {
	PublishSearchCompleted(ctx context.Context, event SearchCompleted) error
}
