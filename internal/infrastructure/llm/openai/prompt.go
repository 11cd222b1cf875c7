package openai

import (
	"fmt"
	"strings"

	"github.com/staygenie/hotel-discovery/internal/core/domain"
)

const resolveSystemPrompt = `You turn free-text hotel searches into structured parameters.
Respond with a single JSON object:
{"location": string, "check_in": "YYYY-MM-DD", "check_out": "YYYY-MM-DD",
 "adults": int, "children": int, "min_price": number, "max_price": number,
 "preferences": [string]}
Use 0 for unknown prices, empty strings for unknown dates, and put amenity
or vibe wishes ("pool", "near the beach", "quiet") into preferences.
If the text names no destination at all, return {"location": ""}.`

func buildResolvePrompt(query string, defaults domain.SearchParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search text: %q\n", query)
	if defaults.Adults > 0 {
		fmt.Fprintf(&b, "Default occupancy: %d adults, %d children\n", defaults.Adults, defaults.Children)
	}
	if !defaults.CheckIn.IsZero() {
		fmt.Fprintf(&b, "Default dates: %s to %s\n",
			defaults.CheckIn.Format("2006-01-02"), defaults.CheckOut.Format("2006-01-02"))
	}
	return b.String()
}

const insightsSystemPrompt = `You write short, concrete hotel insights for travellers.
Respond with a single JSON object:
{"why_it_matches": string, "guest_insights": string,
 "highlights": [string], "nearby_attractions": [string]}
why_it_matches ties the hotel to the traveller's own words in one or two
sentences. guest_insights summarises what staying there is like.
highlights is at most four short phrases. No markdown.`

func buildInsightsPrompt(match domain.MatchResult, query string) string {
	offer := match.Offer
	var b strings.Builder
	fmt.Fprintf(&b, "Traveller searched for: %q\n\n", query)
	fmt.Fprintf(&b, "Hotel: %s (%s, %s)\n", offer.Name, offer.City, offer.Country)
	fmt.Fprintf(&b, "Price per night: %.0f %s\n", offer.PricePerNight, offer.Currency)
	fmt.Fprintf(&b, "Guest rating: %.1f/10 (%d reviews)\n", offer.GuestRating, offer.ReviewCount)
	if len(offer.Amenities) > 0 {
		fmt.Fprintf(&b, "Amenities: %s\n", strings.Join(offer.Amenities, ", "))
	}
	if offer.RefundPolicy != "" {
		fmt.Fprintf(&b, "Refund policy: %s\n", offer.RefundPolicy)
	}
	fmt.Fprintf(&b, "Match score: %.0f/100\n", match.MatchScore)
	return b.String()
}
