package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/staygenie/hotel-discovery/internal/core/domain"
	"github.com/staygenie/hotel-discovery/internal/core/ports"
)

// EnrichUseCase is the Insight Enricher: per-hotel, independent, and
// loss-tolerant. A generator failure degrades to deterministic fallback
// narrative for that hotel only.
type EnrichUseCase struct {
	generator ports.InsightGenerator
	timeout   time.Duration
}

func NewEnrichUseCase(generator ports.InsightGenerator, timeout time.Duration) *EnrichUseCase {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &EnrichUseCase{generator: generator, timeout: timeout}
}

// Enrich returns the narrative for one matched hotel. The error return is
// informational only (logged, counted); the narrative is always usable.
func (uc *EnrichUseCase) Enrich(ctx context.Context, match domain.MatchResult, query string) (domain.EnrichmentResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	narrative, err := uc.generator.GenerateInsights(callCtx, match, query)
	if err != nil || narrative.Empty() {
		if err == nil {
			err = fmt.Errorf("generator returned empty narrative")
		}
		slog.Warn("enrichment_fallback",
			"hotel_id", match.Offer.HotelID,
			"rank", match.Rank,
			"error", err,
		)
		return domain.EnrichmentResult{
			HotelID:    match.Offer.HotelID,
			Narrative:  FallbackNarrative(match),
			Fallback:   true,
			ProducedAt: time.Now().UTC(),
		}, domain.WrapError(domain.ErrEnrichment, "generate insights", err)
	}

	return domain.EnrichmentResult{
		HotelID:    match.Offer.HotelID,
		Narrative:  narrative,
		ProducedAt: time.Now().UTC(),
	}, nil
}

// FallbackNarrative builds deterministic narrative text from the hotel's
// stage-1 fields. Same input, same output, so retries are idempotent.
func FallbackNarrative(match domain.MatchResult) domain.NarrativeFields {
	offer := match.Offer

	why := fmt.Sprintf("%s scores %.0f/100 against your search", offer.Name, match.MatchScore)
	if offer.City != "" {
		why += " in " + offer.City
	}
	why += "."

	insights := fmt.Sprintf("Guests rate %s %.1f/10", offer.Name, offer.GuestRating)
	if offer.ReviewCount > 0 {
		insights += fmt.Sprintf(" across %d reviews", offer.ReviewCount)
	}
	insights += "."

	highlights := make([]string, 0, 3)
	for _, amenity := range offer.Amenities {
		highlights = append(highlights, amenity)
		if len(highlights) == 3 {
			break
		}
	}
	if offer.RefundPolicy != "" {
		highlights = append(highlights, strings.TrimSpace(offer.RefundPolicy))
	}

	return domain.NarrativeFields{
		WhyItMatches:  why,
		GuestInsights: insights,
		Highlights:    highlights,
	}
}
