package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/staygenie/hotel-discovery/internal/core/domain"
)

type offerSourceFake struct {
	offers []domain.HotelOffer
	err    error
	calls  int
}

func (f *offerSourceFake) FetchOffers(context.Context, domain.SearchParams) ([]domain.HotelOffer, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.offers, nil
}

func parisParams() domain.SearchParams {
	return domain.SearchParams{
		Location:    "Paris",
		Adults:      2,
		MaxPrice:    200,
		Preferences: []string{"pool"},
	}
}

func TestMatchOrdersByScoreDescending(t *testing.T) {
	offers := []domain.HotelOffer{
		{HotelID: "h-budget-buster", Name: "Over Budget", City: "Paris", PricePerNight: 290, GuestRating: 6.0, ReviewCount: 50},
		{HotelID: "h-best", Name: "Great Fit", City: "Paris", PricePerNight: 120, GuestRating: 9.2, ReviewCount: 400, Amenities: []string{"Outdoor pool", "Spa"}},
		{HotelID: "h-mid", Name: "Decent", City: "Paris", PricePerNight: 180, GuestRating: 7.5, ReviewCount: 120},
	}
	uc := NewMatchUseCase(&offerSourceFake{offers: offers}, MatchConfig{})

	matches, err := uc.Match(context.Background(), parisParams())
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	if matches[0].Offer.HotelID != "h-best" {
		t.Fatalf("expected h-best first, got %s (score %.2f)", matches[0].Offer.HotelID, matches[0].MatchScore)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].MatchScore > matches[i-1].MatchScore {
			t.Fatalf("scores not descending at index %d: %.2f > %.2f", i, matches[i].MatchScore, matches[i-1].MatchScore)
		}
	}
	for i, m := range matches {
		if m.Rank != i+1 {
			t.Fatalf("expected contiguous ranks, got rank %d at index %d", m.Rank, i)
		}
	}
}

func TestMatchTieBreakFollowsProviderOrder(t *testing.T) {
	same := domain.HotelOffer{Name: "Twin", City: "Paris", PricePerNight: 150, GuestRating: 8.0, ReviewCount: 100}
	first := same
	first.HotelID = "h-first"
	second := same
	second.HotelID = "h-second"
	uc := NewMatchUseCase(&offerSourceFake{offers: []domain.HotelOffer{first, second}}, MatchConfig{})

	// Identical offers score identically; the provider order must decide.
	for run := 0; run < 20; run++ {
		matches, err := uc.Match(context.Background(), parisParams())
		if err != nil {
			t.Fatalf("Match() error = %v", err)
		}
		if matches[0].Offer.HotelID != "h-first" || matches[1].Offer.HotelID != "h-second" {
			t.Fatalf("run %d: tie-break violated provider order: %s, %s",
				run, matches[0].Offer.HotelID, matches[1].Offer.HotelID)
		}
	}
}

func TestMatchTruncatesToMaxCandidates(t *testing.T) {
	offers := make([]domain.HotelOffer, 10)
	for i := range offers {
		offers[i] = domain.HotelOffer{
			HotelID:       string(rune('a' + i)),
			Name:          "Hotel",
			City:          "Paris",
			PricePerNight: 100 + float64(i)*10,
			GuestRating:   9.0 - float64(i)*0.5,
			ReviewCount:   100,
		}
	}
	uc := NewMatchUseCase(&offerSourceFake{offers: offers}, MatchConfig{MaxCandidates: 4})

	matches, err := uc.Match(context.Background(), parisParams())
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if len(matches) != 4 {
		t.Fatalf("expected truncation to 4, got %d", len(matches))
	}
	if matches[3].Rank != 4 {
		t.Fatalf("expected last rank 4, got %d", matches[3].Rank)
	}
}

func TestMatchZeroOffersIsNoCandidates(t *testing.T) {
	uc := NewMatchUseCase(&offerSourceFake{}, MatchConfig{})

	_, err := uc.Match(context.Background(), parisParams())
	if !errors.Is(err, domain.ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}

func TestMatchProviderErrorIsNoCandidates(t *testing.T) {
	uc := NewMatchUseCase(&offerSourceFake{err: errors.New("rates provider down")}, MatchConfig{})

	_, err := uc.Match(context.Background(), parisParams())
	if !errors.Is(err, domain.ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}

func TestMatchContextCancellationPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	uc := NewMatchUseCase(&offerSourceFake{err: ctx.Err()}, MatchConfig{})

	_, err := uc.Match(ctx, parisParams())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, domain.ErrNoCandidates) {
		t.Fatalf("cancellation must not masquerade as no-candidates")
	}
}

func TestMatchMissingLocation(t *testing.T) {
	source := &offerSourceFake{offers: []domain.HotelOffer{{HotelID: "h1"}}}
	uc := NewMatchUseCase(source, MatchConfig{})

	_, err := uc.Match(context.Background(), domain.SearchParams{})
	if !errors.Is(err, domain.ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
	if source.calls != 0 {
		t.Fatalf("provider must not be called without a location")
	}
}

func TestScoreOfferBounds(t *testing.T) {
	perfect := domain.HotelOffer{
		HotelID: "h1", Name: "Perfect", City: "Paris",
		PricePerNight: 10, GuestRating: 10, ReviewCount: 1000,
		Amenities: []string{"pool"},
	}
	score := scoreOffer(perfect, parisParams())
	if score <= 0 || score > 100 {
		t.Fatalf("score out of range: %.2f", score)
	}

	empty := scoreOffer(domain.HotelOffer{}, domain.SearchParams{})
	if empty < 0 {
		t.Fatalf("empty offer scored below zero: %.2f", empty)
	}
}
