package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/staygenie/hotel-discovery/internal/core/domain"
	"github.com/staygenie/hotel-discovery/internal/core/ports"
)

type fakeAPI struct {
	mux *http.ServeMux

	streamHits int
	syncHits   int
	legacyHits int
}

func newFakeAPI() *fakeAPI {
	f := &fakeAPI{mux: http.NewServeMux()}
	return f
}

func (f *fakeAPI) onStream(handler http.HandlerFunc) {
	f.mux.HandleFunc("/v1/search/stream", func(w http.ResponseWriter, r *http.Request) {
		f.streamHits++
		handler(w, r)
	})
}

func (f *fakeAPI) onSync(handler http.HandlerFunc) {
	f.mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		f.syncHits++
		handler(w, r)
	})
}

func (f *fakeAPI) onLegacy(handler http.HandlerFunc) {
	f.mux.HandleFunc("/v1/search/legacy", func(w http.ResponseWriter, r *http.Request) {
		f.legacyHits++
		handler(w, r)
	})
}

func writeFrames(w http.ResponseWriter, events ...domain.StreamEvent) {
	w.Header().Set("Content-Type", "text/event-stream")
	flusher := w.(http.Flusher)
	for _, e := range events {
		payload, _ := json.Marshal(e)
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}
}

func matchFor(id string, rank int, score float64) domain.MatchResult {
	return domain.MatchResult{
		Offer:      domain.HotelOffer{HotelID: id, Name: "Hotel " + id, City: "Paris"},
		Rank:       rank,
		MatchScore: score,
	}
}

func TestSearchStreamTierHappyPath(t *testing.T) {
	api := newFakeAPI()
	api.onStream(func(w http.ResponseWriter, r *http.Request) {
		writeFrames(w,
			domain.ConnectedEvent("searching"),
			domain.ProgressEvent(1, 3, "understanding your trip"),
			domain.HotelFoundEvent(matchFor("h1", 1, 70), 3),
			domain.HotelFoundEvent(matchFor("h2", 2, 95), 3),
			domain.HotelFoundEvent(matchFor("h3", 3, 82), 3),
			domain.HotelEnhancedEvent(matchFor("h2", 2, 95), domain.NarrativeFields{WhyItMatches: "Best pick."}),
			domain.CompleteEvent("s-1", 3, 1),
		)
	})
	server := httptest.NewServer(api.mux)
	defer server.Close()

	c := New(server.URL, Options{})
	result, err := c.Search(context.Background(), "paris", domain.SearchParams{}, SearchCallbacks{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Tier != TierStream {
		t.Fatalf("expected stream tier, got %s", result.Tier)
	}
	if result.SearchID != "s-1" {
		t.Fatalf("expected search id s-1, got %q", result.SearchID)
	}
	if len(result.Hotels) != 3 {
		t.Fatalf("expected 3 hotels, got %d", len(result.Hotels))
	}
	if result.Hotels[0].HotelID != "h2" || result.Hotels[1].HotelID != "h3" || result.Hotels[2].HotelID != "h1" {
		t.Fatalf("expected score order [h2 h3 h1], got %v", result.Hotels)
	}
	if result.Hotels[0].State != StateEnhanced {
		t.Fatalf("h2 should be enhanced, got %s", result.Hotels[0].State)
	}
	if api.syncHits != 0 || api.legacyHits != 0 {
		t.Fatalf("successful stream must not touch fallback tiers")
	}
}

func TestSearchResolutionErrorStopsLadder(t *testing.T) {
	api := newFakeAPI()
	api.onStream(func(w http.ResponseWriter, r *http.Request) {
		writeFrames(w,
			domain.ConnectedEvent("searching"),
			domain.ErrorEvent(domain.ErrorCodeResolution, "we couldn't understand that search"),
		)
	})
	api.onSync(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("resolution failure must not escalate to the sync tier")
	})
	server := httptest.NewServer(api.mux)
	defer server.Close()

	c := New(server.URL, Options{})
	_, err := c.Search(context.Background(), "asdf", domain.SearchParams{}, SearchCallbacks{})
	if !errors.Is(err, ErrResolution) {
		t.Fatalf("expected ErrResolution, got %v", err)
	}
}

func TestSearchNoResultsStopsLadder(t *testing.T) {
	api := newFakeAPI()
	api.onStream(func(w http.ResponseWriter, r *http.Request) {
		writeFrames(w,
			domain.ConnectedEvent("searching"),
			domain.ErrorEvent(domain.ErrorCodeNoResults, "no hotels matched"),
		)
	})
	server := httptest.NewServer(api.mux)
	defer server.Close()

	c := New(server.URL, Options{})
	_, err := c.Search(context.Background(), "paris", domain.SearchParams{}, SearchCallbacks{})
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
}

func TestSearchFallsBackToSyncTier(t *testing.T) {
	api := newFakeAPI()
	api.onStream(func(w http.ResponseWriter, r *http.Request) {
		// Drops the connection before any terminal event.
		writeFrames(w, domain.ConnectedEvent("searching"))
	})
	api.onSync(func(w http.ResponseWriter, r *http.Request) {
		result := ports.TwoStageResult{
			SearchID: "s-sync",
			Hotels: []ports.EnrichedHotel{
				{
					MatchResult: matchFor("h1", 1, 88),
					Narrative: ports.NarrativeForHotel{
						NarrativeFields: domain.NarrativeFields{WhyItMatches: "Solid choice."},
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	})
	server := httptest.NewServer(api.mux)
	defer server.Close()

	var statuses []string
	c := New(server.URL, Options{})
	result, err := c.Search(context.Background(), "paris", domain.SearchParams{}, SearchCallbacks{
		OnStatus: func(label string) { statuses = append(statuses, label) },
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Tier != TierSync {
		t.Fatalf("expected sync tier, got %s", result.Tier)
	}
	if len(result.Hotels) != 1 || result.Hotels[0].State != StateEnhanced {
		t.Fatalf("expected one enhanced hotel, got %+v", result.Hotels)
	}
	if result.SearchID != "s-sync" {
		t.Fatalf("expected s-sync, got %q", result.SearchID)
	}
	// The tier switch surfaces as a transient status, never an error.
	found := false
	for _, s := range statuses {
		if s == "still searching..." {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected transient status during fallback, got %v", statuses)
	}
}

func TestSearchInternalErrorEventEscalates(t *testing.T) {
	api := newFakeAPI()
	api.onStream(func(w http.ResponseWriter, r *http.Request) {
		// Server-side failure before any hotel_found: the tier is lost but
		// the ladder keeps going.
		writeFrames(w,
			domain.ConnectedEvent("searching"),
			domain.ErrorEvent(domain.ErrorCodeInternal, "hotel search failed"),
		)
	})
	api.onSync(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ports.TwoStageResult{
			SearchID: "s-sync",
			Hotels:   []ports.EnrichedHotel{{MatchResult: matchFor("h1", 1, 80)}},
		})
	})
	server := httptest.NewServer(api.mux)
	defer server.Close()

	c := New(server.URL, Options{})
	result, err := c.Search(context.Background(), "paris", domain.SearchParams{}, SearchCallbacks{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Tier != TierSync {
		t.Fatalf("internal error event must escalate to sync, got %s", result.Tier)
	}
}

func TestSearchFallsBackToLegacyTier(t *testing.T) {
	api := newFakeAPI()
	api.onStream(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	api.onSync(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	api.onLegacy(func(w http.ResponseWriter, r *http.Request) {
		result := ports.LegacyResult{
			SearchID: "s-legacy",
			Hotels:   []domain.MatchResult{matchFor("h1", 1, 75)},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	})
	server := httptest.NewServer(api.mux)
	defer server.Close()

	c := New(server.URL, Options{})
	result, err := c.Search(context.Background(), "paris", domain.SearchParams{}, SearchCallbacks{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Tier != TierLegacy {
		t.Fatalf("expected legacy tier, got %s", result.Tier)
	}
	if len(result.Hotels) != 1 || result.Hotels[0].State != StateFound {
		t.Fatalf("legacy hotels stay in found state, got %+v", result.Hotels)
	}
}

func TestSearchLadderExhausted(t *testing.T) {
	api := newFakeAPI()
	fail := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}
	api.onStream(fail)
	api.onSync(fail)
	api.onLegacy(fail)
	server := httptest.NewServer(api.mux)
	defer server.Close()

	c := New(server.URL, Options{})
	_, err := c.Search(context.Background(), "paris", domain.SearchParams{}, SearchCallbacks{})

	var ladderErr *LadderError
	if !errors.As(err, &ladderErr) {
		t.Fatalf("expected LadderError, got %v", err)
	}
	if len(ladderErr.TierErrors) != 3 {
		t.Fatalf("expected 3 tier errors, got %d", len(ladderErr.TierErrors))
	}
	if api.streamHits != 1 || api.syncHits != 1 || api.legacyHits != 1 {
		t.Fatalf("each tier tried once, got %d/%d/%d", api.streamHits, api.syncHits, api.legacyHits)
	}
}

func TestSearchSupersededByCancel(t *testing.T) {
	api := newFakeAPI()
	api.onStream(func(w http.ResponseWriter, r *http.Request) {
		writeFrames(w,
			domain.ConnectedEvent("searching"),
			domain.HotelFoundEvent(matchFor("h1", 1, 90), 2),
			domain.HotelFoundEvent(matchFor("h2", 2, 80), 2),
			domain.CompleteEvent("s-1", 2, 0),
		)
	})
	server := httptest.NewServer(api.mux)
	defer server.Close()

	c := New(server.URL, Options{})
	cancelled := false
	_, err := c.Search(context.Background(), "paris", domain.SearchParams{}, SearchCallbacks{
		OnUpdate: func([]DisplayHotel) {
			if !cancelled {
				cancelled = true
				c.Cancel()
			}
		},
	})
	if !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
}

func TestSearchStreamSessionTimeout(t *testing.T) {
	api := newFakeAPI()
	release := make(chan struct{})
	api.onStream(func(w http.ResponseWriter, r *http.Request) {
		writeFrames(w, domain.ConnectedEvent("searching"))
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	api.onSync(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ports.TwoStageResult{SearchID: "s-sync"})
	})
	api.onLegacy(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ports.LegacyResult{SearchID: "s-legacy"})
	})
	server := httptest.NewServer(api.mux)
	defer server.Close()
	defer close(release)

	c := New(server.URL, Options{SessionTimeout: 100 * time.Millisecond})
	start := time.Now()
	result, err := c.Search(context.Background(), "paris", domain.SearchParams{}, SearchCallbacks{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.Tier == TierStream {
		t.Fatalf("stalled stream must fall back, got stream tier")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("session timeout did not fire promptly: %v", time.Since(start))
	}
}
