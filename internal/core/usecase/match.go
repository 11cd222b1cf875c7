package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/staygenie/hotel-discovery/internal/core/domain"
	"github.com/staygenie/hotel-discovery/internal/core/ports"
)

// Score weights. The per-component maxima sum to 100 so the total never
// needs rescaling.
const (
	maxBudgetPts   = 35.0
	maxRatingPts   = 30.0
	maxAmenityPts  = 20.0
	maxLocationPts = 15.0
)

// MatchConfig bounds the stage-1 candidate set.
type MatchConfig struct {
	MaxCandidates int
}

func (c MatchConfig) normalize() MatchConfig {
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = 24
	}
	return c
}

// MatchUseCase is the Candidate Matcher: it fetches offers for resolved
// parameters and scores them against the query, producing a rank-ordered
// candidate list.
type MatchUseCase struct {
	offers ports.OfferSource
	cfg    MatchConfig
}

func NewMatchUseCase(offers ports.OfferSource, cfg MatchConfig) *MatchUseCase {
	return &MatchUseCase{offers: offers, cfg: cfg.normalize()}
}

// Match returns candidates ordered by descending match score, ties broken
// by provider order so identical inputs always produce identical ranks.
// Zero offers and provider unavailability both surface as ErrNoCandidates.
func (uc *MatchUseCase) Match(ctx context.Context, params domain.SearchParams) ([]domain.MatchResult, error) {
	if params.Location == "" {
		return nil, domain.WrapError(domain.ErrNoCandidates, "match hotels", errors.New("resolved parameters have no location"))
	}

	offers, err := uc.offers.FetchOffers(ctx, params)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrNoCandidates, "fetch offers", err)
	}
	if len(offers) == 0 {
		return nil, domain.WrapError(domain.ErrNoCandidates, "fetch offers", errors.New("provider returned zero offers"))
	}

	type scored struct {
		index int
		offer domain.HotelOffer
		score float64
	}

	results := make(chan scored, len(offers))
	var wg sync.WaitGroup
	for i, offer := range offers {
		wg.Add(1)
		go func(i int, offer domain.HotelOffer) {
			defer wg.Done()
			results <- scored{index: i, offer: offer, score: scoreOffer(offer, params)}
		}(i, offer)
	}
	wg.Wait()
	close(results)

	all := make([]scored, 0, len(offers))
	for s := range results {
		all = append(all, s)
	}

	// Restore provider order first so the stable sort's tie-break is the
	// provider-returned order, not goroutine completion order.
	sort.Slice(all, func(i, j int) bool { return all[i].index < all[j].index })
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })

	if len(all) > uc.cfg.MaxCandidates {
		all = all[:uc.cfg.MaxCandidates]
	}

	matches := make([]domain.MatchResult, len(all))
	for i, s := range all {
		matches[i] = domain.MatchResult{
			Offer:      s.offer,
			Rank:       i + 1,
			MatchScore: s.score,
		}
	}
	return matches, nil
}

func scoreOffer(offer domain.HotelOffer, params domain.SearchParams) float64 {
	score := budgetScore(offer, params) +
		ratingScore(offer) +
		amenityScore(offer, params.Preferences) +
		locationScore(offer, params.Location)

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	// Two decimals keeps wire payloads and test expectations stable.
	return float64(int(score*100+0.5)) / 100
}

func budgetScore(offer domain.HotelOffer, params domain.SearchParams) float64 {
	if params.MaxPrice <= 0 {
		// No budget expressed; neutral credit.
		return maxBudgetPts * 0.6
	}
	if offer.PricePerNight <= 0 {
		return 0
	}
	if params.MinPrice > 0 && offer.PricePerNight < params.MinPrice {
		return maxBudgetPts * 0.4
	}
	if offer.PricePerNight > params.MaxPrice {
		// Linear falloff; 50% over budget scores zero.
		over := (offer.PricePerNight - params.MaxPrice) / params.MaxPrice
		if over >= 0.5 {
			return 0
		}
		return maxBudgetPts * (1 - over*2)
	}
	// Within budget: the cheaper relative to the cap, the better.
	return maxBudgetPts * (1 - offer.PricePerNight/params.MaxPrice*0.4)
}

func ratingScore(offer domain.HotelOffer) float64 {
	rating := offer.GuestRating
	if rating <= 0 {
		return 0
	}
	if rating > 10 {
		rating = 10
	}
	s := (rating / 10) * maxRatingPts
	// Thin review counts get dampened credit.
	if offer.ReviewCount < 10 {
		s *= 0.7
	}
	return s
}

func amenityScore(offer domain.HotelOffer, preferences []string) float64 {
	if len(preferences) == 0 {
		return maxAmenityPts * 0.5
	}
	matched := 0
	for _, pref := range preferences {
		p := strings.ToLower(strings.TrimSpace(pref))
		if p == "" {
			continue
		}
		for _, amenity := range offer.Amenities {
			if strings.Contains(strings.ToLower(amenity), p) {
				matched++
				break
			}
		}
	}
	return maxAmenityPts * float64(matched) / float64(len(preferences))
}

func locationScore(offer domain.HotelOffer, location string) float64 {
	loc := strings.ToLower(strings.TrimSpace(location))
	if loc == "" {
		return 0
	}
	city := strings.ToLower(offer.City)
	if city != "" && (strings.Contains(loc, city) || strings.Contains(city, loc)) {
		return maxLocationPts
	}
	country := strings.ToLower(offer.Country)
	if country != "" && strings.Contains(loc, country) {
		return maxLocationPts * 0.5
	}
	return 0
}

// resolveParams runs the resolver and normalizes its failure to the typed
// resolution error every caller branches on.
func resolveParams(ctx context.Context, resolver ports.QueryResolver, req ports.SearchRequest) (domain.SearchParams, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return domain.SearchParams{}, domain.WrapError(domain.ErrResolutionFailed, "resolve query", errors.New("empty query"))
	}

	params, err := resolver.Resolve(ctx, query, req.Defaults)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.SearchParams{}, err
		}
		return domain.SearchParams{}, domain.WrapError(domain.ErrResolutionFailed, "resolve query", err)
	}
	if params.Location == "" {
		return domain.SearchParams{}, domain.WrapError(domain.ErrResolutionFailed, "resolve query", fmt.Errorf("no location in resolved parameters"))
	}
	return params, nil
}
