package domain

import "time"

// SearchParams is the structured form of a free-text query after resolution.
type SearchParams struct {
	Location string    `json:"location"`
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
	Adults   int       `json:"adults"`
	Children int       `json:"children"`

	// Budget bounds per night; zero means unbounded.
	MinPrice float64 `json:"min_price,omitempty"`
	MaxPrice float64 `json:"max_price,omitempty"`

	// Free-form preference terms extracted from the query ("pool", "near
	// the beach", ...). Used for amenity overlap scoring.
	Preferences []string `json:"preferences,omitempty"`
}

// Occupancy returns the total number of guests.
func (p SearchParams) Occupancy() int {
	return p.Adults + p.Children
}

// HotelOffer is one bookable hotel as returned by the rates provider.
type HotelOffer struct {
	HotelID       string   `json:"hotel_id"`
	Name          string   `json:"name"`
	City          string   `json:"city"`
	Country       string   `json:"country"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	Images        []string `json:"images"`
	PricePerNight float64  `json:"price_per_night"`
	Currency      string   `json:"currency"`
	GuestRating   float64  `json:"guest_rating"` // 0..10 provider scale
	ReviewCount   int      `json:"review_count"`
	Amenities     []string `json:"amenities"`
	RefundPolicy  string   `json:"refund_policy"`
}

// MatchResult is one scored candidate from stage 1. Immutable once emitted.
type MatchResult struct {
	Offer      HotelOffer `json:"hotel"`
	Rank       int        `json:"rank"`        // 1-based, unique within a session
	MatchScore float64    `json:"match_score"` // 0..100
}

// NarrativeFields is the AI-derived stage-2 content for one hotel.
type NarrativeFields struct {
	WhyItMatches      string   `json:"why_it_matches"`
	GuestInsights     string   `json:"guest_insights"`
	Highlights        []string `json:"highlights"`
	NearbyAttractions []string `json:"nearby_attractions"`
}

// Empty reports whether no narrative content is present.
func (n NarrativeFields) Empty() bool {
	return n.WhyItMatches == "" && n.GuestInsights == "" &&
		len(n.Highlights) == 0 && len(n.NearbyAttractions) == 0
}

// EnrichmentResult is the stage-2 output for one hotel. At most one result
// is authoritative per hotel id; a later one overwrites an earlier one.
type EnrichmentResult struct {
	HotelID    string          `json:"hotel_id"`
	Narrative  NarrativeFields `json:"narrative"`
	Fallback   bool            `json:"fallback"` // true when the LLM call failed and deterministic text was substituted
	ProducedAt time.Time       `json:"produced_at"`
}
