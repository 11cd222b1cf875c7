package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/staygenie/hotel-discovery/internal/core/domain"
	"github.com/staygenie/hotel-discovery/internal/core/ports"
)

type resolverFake struct {
	params domain.SearchParams
	err    error
}

func (f *resolverFake) Resolve(_ context.Context, _ string, defaults domain.SearchParams) (domain.SearchParams, error) {
	if f.err != nil {
		return domain.SearchParams{}, f.err
	}
	params := f.params
	if params.Adults == 0 {
		params.Adults = defaults.Adults
	}
	return params, nil
}

type publisherFake struct {
	events []ports.SearchCompleted
}

func (f *publisherFake) PublishSearchCompleted(_ context.Context, event ports.SearchCompleted) error {
	f.events = append(f.events, event)
	return nil
}

type sinkFake struct {
	events  []domain.StreamEvent
	sendErr error
}

func (f *sinkFake) Send(_ context.Context, event domain.StreamEvent) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.events = append(f.events, event)
	return nil
}

func (f *sinkFake) byType(eventType string) []domain.StreamEvent {
	var out []domain.StreamEvent
	for _, e := range f.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func streamFixture(offers []domain.HotelOffer, insights *insightFake, cfg StreamConfig) (*StreamSearchUseCase, *publisherFake) {
	publisher := &publisherFake{}
	uc := NewStreamSearchUseCase(
		&resolverFake{params: parisParams()},
		NewMatchUseCase(&offerSourceFake{offers: offers}, MatchConfig{}),
		NewEnrichUseCase(insights, 0),
		publisher,
		cfg,
	)
	return uc, publisher
}

func threeOffers() []domain.HotelOffer {
	return []domain.HotelOffer{
		{HotelID: "h1", Name: "One", City: "Paris", PricePerNight: 110, GuestRating: 9.0, ReviewCount: 200, Amenities: []string{"pool"}},
		{HotelID: "h2", Name: "Two", City: "Paris", PricePerNight: 150, GuestRating: 8.0, ReviewCount: 150},
		{HotelID: "h3", Name: "Three", City: "Paris", PricePerNight: 190, GuestRating: 7.0, ReviewCount: 90},
	}
}

func TestStreamRunHappyPath(t *testing.T) {
	insights := &insightFake{narrative: domain.NarrativeFields{WhyItMatches: "Great stay."}}
	uc, publisher := streamFixture(threeOffers(), insights, StreamConfig{EnrichWorkers: 2})
	sink := &sinkFake{}

	err := uc.Run(context.Background(), ports.SearchRequest{Query: "paris with a pool"}, sink)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(sink.events) == 0 || sink.events[0].Type != domain.EventConnected {
		t.Fatalf("expected connected first, got %+v", sink.events[:1])
	}

	found := sink.byType(domain.EventHotelFound)
	if len(found) != 3 {
		t.Fatalf("expected 3 hotel_found, got %d", len(found))
	}
	for i, e := range found {
		if e.Hotel == nil || e.Hotel.Rank != i+1 {
			t.Fatalf("hotel_found out of rank order at index %d: %+v", i, e)
		}
		if e.TotalExpected != 3 {
			t.Fatalf("expected totalExpected 3, got %d", e.TotalExpected)
		}
		if e.Hotel.Narrative != nil {
			t.Fatalf("hotel_found must not carry narrative")
		}
	}

	enhanced := sink.byType(domain.EventHotelEnhanced)
	if len(enhanced) != 3 {
		t.Fatalf("expected 3 hotel_enhanced, got %d", len(enhanced))
	}
	for _, e := range enhanced {
		if e.Hotel == nil || e.Hotel.Narrative == nil || e.Hotel.Narrative.Empty() {
			t.Fatalf("hotel_enhanced missing narrative: %+v", e)
		}
		if e.HotelID == "" {
			t.Fatalf("hotel_enhanced missing hotelId: %+v", e)
		}
	}

	last := sink.events[len(sink.events)-1]
	if last.Type != domain.EventComplete {
		t.Fatalf("expected terminal complete, got %s", last.Type)
	}
	if last.TotalFound != 3 || last.TotalEnhanced != 3 {
		t.Fatalf("unexpected totals: %+v", last)
	}
	if last.SearchID == "" {
		t.Fatalf("complete event missing searchId")
	}
	for _, e := range sink.events[:len(sink.events)-1] {
		if e.Terminal() {
			t.Fatalf("terminal event before the end of the stream: %+v", e)
		}
	}

	if len(publisher.events) != 1 || publisher.events[0].Outcome != "complete" {
		t.Fatalf("expected one complete analytics event, got %+v", publisher.events)
	}
}

func TestStreamRunAllFoundBeforeAnyEnhanced(t *testing.T) {
	insights := &insightFake{narrative: domain.NarrativeFields{WhyItMatches: "ok"}}
	uc, _ := streamFixture(threeOffers(), insights, StreamConfig{EnrichWorkers: 1})
	sink := &sinkFake{}

	if err := uc.Run(context.Background(), ports.SearchRequest{Query: "paris"}, sink); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lastFound, firstEnhanced := -1, -1
	for i, e := range sink.events {
		if e.Type == domain.EventHotelFound {
			lastFound = i
		}
		if e.Type == domain.EventHotelEnhanced && firstEnhanced == -1 {
			firstEnhanced = i
		}
	}
	if firstEnhanced != -1 && firstEnhanced < lastFound {
		t.Fatalf("hotel_enhanced at %d before last hotel_found at %d", firstEnhanced, lastFound)
	}
}

func TestStreamRunResolutionFailure(t *testing.T) {
	publisher := &publisherFake{}
	uc := NewStreamSearchUseCase(
		&resolverFake{err: errors.New("gibberish query")},
		NewMatchUseCase(&offerSourceFake{}, MatchConfig{}),
		NewEnrichUseCase(&insightFake{}, 0),
		publisher,
		StreamConfig{},
	)
	sink := &sinkFake{}

	if err := uc.Run(context.Background(), ports.SearchRequest{Query: "asdf"}, sink); err != nil {
		t.Fatalf("session failures must not surface as Run errors, got %v", err)
	}

	if len(sink.byType(domain.EventHotelFound)) != 0 {
		t.Fatalf("no hotel_found may precede a stage-1 failure")
	}
	last := sink.events[len(sink.events)-1]
	if last.Type != domain.EventError || last.Code != domain.ErrorCodeResolution {
		t.Fatalf("expected terminal resolution error, got %+v", last)
	}
	if len(publisher.events) != 1 || publisher.events[0].Outcome != "errored" {
		t.Fatalf("expected errored analytics event, got %+v", publisher.events)
	}
}

func TestStreamRunNoCandidates(t *testing.T) {
	insights := &insightFake{}
	uc, _ := streamFixture(nil, insights, StreamConfig{})
	sink := &sinkFake{}

	if err := uc.Run(context.Background(), ports.SearchRequest{Query: "paris"}, sink); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	last := sink.events[len(sink.events)-1]
	if last.Type != domain.EventError || last.Code != domain.ErrorCodeNoResults {
		t.Fatalf("expected terminal no_results, got %+v", last)
	}
}

func TestStreamRunEnrichFailureDegradesToFallback(t *testing.T) {
	insights := &insightFake{err: errors.New("model down")}
	uc, _ := streamFixture(threeOffers(), insights, StreamConfig{EnrichWorkers: 2})
	sink := &sinkFake{}

	if err := uc.Run(context.Background(), ports.SearchRequest{Query: "paris"}, sink); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	enhanced := sink.byType(domain.EventHotelEnhanced)
	if len(enhanced) != 3 {
		t.Fatalf("every hotel still gets enhanced via fallback, got %d", len(enhanced))
	}
	for _, e := range enhanced {
		if e.Hotel.Narrative == nil || e.Hotel.Narrative.Empty() {
			t.Fatalf("fallback narrative missing: %+v", e)
		}
	}
	last := sink.events[len(sink.events)-1]
	if last.Type != domain.EventComplete {
		t.Fatalf("enrichment failures must not fail the session, got %s", last.Type)
	}
}

func TestStreamRunAbandonsSlowEnrichmentAtDeadline(t *testing.T) {
	insights := &insightFake{delay: 2 * time.Second, narrative: domain.NarrativeFields{WhyItMatches: "slow"}}
	uc, _ := streamFixture(threeOffers(), insights, StreamConfig{
		EnrichWorkers:  2,
		SessionTimeout: 100 * time.Millisecond,
	})
	sink := &sinkFake{}

	start := time.Now()
	if err := uc.Run(context.Background(), ports.SearchRequest{Query: "paris"}, sink); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("session overran its deadline: %v", elapsed)
	}

	last := sink.events[len(sink.events)-1]
	if last.Type != domain.EventComplete {
		t.Fatalf("deadline must still complete the session, got %s", last.Type)
	}
	if last.TotalFound != 3 {
		t.Fatalf("found results are not affected by the enrichment deadline: %+v", last)
	}
	// Slow workers produce fallbacks or nothing, never a late real narrative
	// after complete.
	for i, e := range sink.events {
		if e.Terminal() && i != len(sink.events)-1 {
			t.Fatalf("event after terminal at index %d", i)
		}
	}
}

func TestStreamRunSinkFailureStopsSession(t *testing.T) {
	insights := &insightFake{narrative: domain.NarrativeFields{WhyItMatches: "ok"}}
	uc, _ := streamFixture(threeOffers(), insights, StreamConfig{})
	sink := &sinkFake{sendErr: errors.New("client went away")}

	if err := uc.Run(context.Background(), ports.SearchRequest{Query: "paris"}, sink); err == nil {
		t.Fatalf("expected Run to report the sink failure")
	}
}
