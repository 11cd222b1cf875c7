// Package client is the consumer side of the discovery pipeline: it reads
// the event stream, reconciles events into a stable hotel list, and walks
// the fallback ladder when a tier fails.
package client

import (
	"fmt"
	"sort"

	"github.com/staygenie/hotel-discovery/internal/core/domain"
)

// HotelState tags how much of a DisplayHotel is real data.
type HotelState string

const (
	StatePlaceholder HotelState = "placeholder"
	StateFound       HotelState = "found"
	StateEnhanced    HotelState = "enhanced"
)

// PlaceholderNarrative is the stand-in text shown between hotel_found and
// hotel_enhanced. It is deliberately distinguishable from real content.
const PlaceholderNarrative = "Gathering insights about this stay..."

// DisplayHotel is the client-owned projection of zero-or-one MatchResult
// and zero-or-one EnrichmentResult for a hotel id.
type DisplayHotel struct {
	HotelID    string
	State      HotelState
	Offer      domain.HotelOffer
	MatchScore float64
	Rank       int
	Narrative  domain.NarrativeFields
}

// Reconciler maintains the authoritative working set for one session
// attempt. It is single-threaded by contract: the stream read loop is its
// only caller. Events from a superseded attempt are rejected by token.
type Reconciler struct {
	token    string
	hotels   map[string]*DisplayHotel
	frozen   bool
	searchID string

	sawFound     bool
	placeholders int
	statusLabel  string
}

func NewReconciler(token string) *Reconciler {
	return &Reconciler{
		token:  token,
		hotels: make(map[string]*DisplayHotel),
	}
}

// SeedPlaceholders pre-populates n skeleton entries shown until the first
// hotel_found arrives.
func (r *Reconciler) SeedPlaceholders(n int) {
	if r.sawFound || n <= 0 {
		return
	}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("placeholder-%d", i+1)
		r.hotels[id] = &DisplayHotel{
			HotelID:   id,
			State:     StatePlaceholder,
			Rank:      i + 1,
			Narrative: domain.NarrativeFields{WhyItMatches: PlaceholderNarrative},
		}
	}
	r.placeholders = n
}

// Apply folds one event into the working set. Events carrying a stale
// session token are discarded silently; events after the terminal event
// are ignored. Applying the same sequence twice yields the same set.
func (r *Reconciler) Apply(token string, event domain.StreamEvent) {
	if token != r.token || r.frozen {
		return
	}

	switch event.Type {
	case domain.EventConnected:
		// Session is live; nothing touches the list.
	case domain.EventProgress:
		r.statusLabel = event.Message
	case domain.EventHotelFound:
		r.applyFound(event)
	case domain.EventHotelEnhanced:
		r.applyEnhanced(event)
	case domain.EventComplete:
		r.searchID = event.SearchID
		r.statusLabel = ""
		r.frozen = true
	case domain.EventError:
		r.statusLabel = ""
		r.frozen = true
	}
}

func (r *Reconciler) applyFound(event domain.StreamEvent) {
	if event.Hotel == nil || event.Hotel.HotelID == "" {
		return
	}
	if !r.sawFound {
		// Real data from here on; placeholders are display filler only.
		r.discardPlaceholders()
		r.sawFound = true
	}

	hotel := event.Hotel
	entry, ok := r.hotels[hotel.HotelID]
	if !ok {
		entry = &DisplayHotel{HotelID: hotel.HotelID}
		r.hotels[hotel.HotelID] = entry
	}
	entry.Offer = hotel.HotelOffer
	entry.MatchScore = hotel.MatchScore
	entry.Rank = hotel.Rank
	if entry.State != StateEnhanced {
		entry.State = StateFound
		entry.Narrative = domain.NarrativeFields{WhyItMatches: PlaceholderNarrative}
	}
}

func (r *Reconciler) applyEnhanced(event domain.StreamEvent) {
	if event.Hotel == nil {
		return
	}
	id := event.HotelID
	if id == "" {
		id = event.Hotel.HotelID
	}
	if id == "" {
		return
	}

	entry, ok := r.hotels[id]
	if !ok {
		// Out-of-order beyond contract; insert a minimal entry rather
		// than dropping the narrative.
		entry = &DisplayHotel{
			HotelID:    id,
			Offer:      event.Hotel.HotelOffer,
			MatchScore: event.Hotel.MatchScore,
			Rank:       event.Hotel.Rank,
		}
		r.hotels[id] = entry
	}
	if event.Hotel.Narrative != nil && !event.Hotel.Narrative.Empty() {
		// Last write wins; real narrative never regresses to placeholder
		// because found-merge skips enhanced entries.
		entry.Narrative = *event.Hotel.Narrative
		entry.State = StateEnhanced
	}
}

func (r *Reconciler) discardPlaceholders() {
	for id, h := range r.hotels {
		if h.State == StatePlaceholder {
			delete(r.hotels, id)
		}
	}
	r.placeholders = 0
}

// Snapshot returns the visible list: matchScore descending, ties by rank
// ascending. It is a pure function of the working set.
func (r *Reconciler) Snapshot() []DisplayHotel {
	out := make([]DisplayHotel, 0, len(r.hotels))
	for _, h := range r.hotels {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchScore != out[j].MatchScore {
			return out[i].MatchScore > out[j].MatchScore
		}
		return out[i].Rank < out[j].Rank
	})
	return out
}

// Status returns the transient progress label, empty once terminal.
func (r *Reconciler) Status() string { return r.statusLabel }

// SearchID is available after a complete event, for follow-up calls.
func (r *Reconciler) SearchID() string { return r.searchID }

// Frozen reports whether a terminal event has been applied.
func (r *Reconciler) Frozen() bool { return r.frozen }
