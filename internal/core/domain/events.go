package domain

// Event type discriminators as they appear on the wire.
const (
	EventConnected     = "connected"
	EventProgress      = "progress"
	EventHotelFound    = "hotel_found"
	EventHotelEnhanced = "hotel_enhanced"
	EventComplete      = "complete"
	EventError         = "error"
)

// StreamHotel is the hotel payload carried by hotel_found and
// hotel_enhanced events: stage-1 fields always, narrative only once
// enrichment produced it.
type StreamHotel struct {
	HotelOffer
	MatchScore float64          `json:"matchScore"`
	Rank       int              `json:"rank"`
	Narrative  *NarrativeFields `json:"narrative,omitempty"`
}

// StreamEvent is the single wire frame shape for every event type. Exactly
// the fields required by the discriminator are populated; everything else
// is omitted from the JSON encoding.
type StreamEvent struct {
	Type string `json:"type"`

	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`

	Step       int `json:"step,omitempty"`
	TotalSteps int `json:"totalSteps,omitempty"`

	Hotel         *StreamHotel `json:"hotel,omitempty"`
	HotelID       string       `json:"hotelId,omitempty"`
	HotelIndex    int          `json:"hotelIndex,omitempty"`
	TotalExpected int          `json:"totalExpected,omitempty"`

	SearchID      string `json:"searchId,omitempty"`
	TotalFound    int    `json:"totalFound,omitempty"`
	TotalEnhanced int    `json:"totalEnhanced,omitempty"`
}

// Terminal reports whether no event may follow this one.
func (e StreamEvent) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

func ConnectedEvent(message string) StreamEvent {
	return StreamEvent{Type: EventConnected, Message: message}
}

func ProgressEvent(step, totalSteps int, message string) StreamEvent {
	return StreamEvent{Type: EventProgress, Step: step, TotalSteps: totalSteps, Message: message}
}

func HotelFoundEvent(match MatchResult, totalExpected int) StreamEvent {
	return StreamEvent{
		Type: EventHotelFound,
		Hotel: &StreamHotel{
			HotelOffer: match.Offer,
			MatchScore: match.MatchScore,
			Rank:       match.Rank,
		},
		HotelIndex:    match.Rank,
		TotalExpected: totalExpected,
	}
}

func HotelEnhancedEvent(match MatchResult, narrative NarrativeFields) StreamEvent {
	n := narrative
	return StreamEvent{
		Type: EventHotelEnhanced,
		Hotel: &StreamHotel{
			HotelOffer: match.Offer,
			MatchScore: match.MatchScore,
			Rank:       match.Rank,
			Narrative:  &n,
		},
		HotelID:    match.Offer.HotelID,
		HotelIndex: match.Rank,
	}
}

func CompleteEvent(searchID string, totalFound, totalEnhanced int) StreamEvent {
	return StreamEvent{
		Type:          EventComplete,
		SearchID:      searchID,
		TotalFound:    totalFound,
		TotalEnhanced: totalEnhanced,
	}
}

// Error cause codes carried alongside the human-readable message.
const (
	ErrorCodeResolution = "resolution_failed"
	ErrorCodeNoResults  = "no_results"
	ErrorCodeInternal   = "internal"
)

func ErrorEvent(code, message string) StreamEvent {
	return StreamEvent{Type: EventError, Code: code, Message: message}
}
