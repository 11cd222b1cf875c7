package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/staygenie/hotel-discovery/internal/core/domain"
	"github.com/staygenie/hotel-discovery/internal/core/ports"
	"github.com/staygenie/hotel-discovery/internal/observability/metrics"
)

const serviceName = "discovery-api"

// RouterConfig carries the transport-level knobs.
type RouterConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
}

type Router struct {
	streamUC ports.StreamSearcher
	syncUC   ports.SyncSearcher
	metrics  *metrics.HTTPServerMetrics
	limiter  *clientLimiter
}

func NewRouter(
	streamUC ports.StreamSearcher,
	syncUC ports.SyncSearcher,
	m *metrics.HTTPServerMetrics,
	cfg RouterConfig,
) *Router {
	return &Router{
		streamUC: streamUC,
		syncUC:   syncUC,
		metrics:  m,
		limiter:  newClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.Handle("/v1/search/stream", rateLimitMiddleware(rt.limiter, http.HandlerFunc(rt.streamSearch)))
	mux.Handle("/v1/search/legacy", rateLimitMiddleware(rt.limiter, http.HandlerFunc(rt.legacySearch)))
	mux.Handle("/v1/search", rateLimitMiddleware(rt.limiter, http.HandlerFunc(rt.syncSearch)))

	var handler http.Handler = mux
	handler = metricsMiddleware(rt.metrics, serviceName, handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// searchRequestBody is the shared input of all three search endpoints.
type searchRequestBody struct {
	Query    string `json:"query"`
	CheckIn  string `json:"checkIn"`
	CheckOut string `json:"checkOut"`
	Adults   int    `json:"adults"`
	Children int    `json:"children"`
}

func (rt *Router) parseSearchRequest(w http.ResponseWriter, r *http.Request) (ports.SearchRequest, bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return ports.SearchRequest{}, false
	}

	var body searchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return ports.SearchRequest{}, false
	}
	if strings.TrimSpace(body.Query) == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "query is required")
		return ports.SearchRequest{}, false
	}

	defaults := domain.SearchParams{
		Adults:   body.Adults,
		Children: body.Children,
	}
	if t, err := time.Parse("2006-01-02", body.CheckIn); err == nil {
		defaults.CheckIn = t
	}
	if t, err := time.Parse("2006-01-02", body.CheckOut); err == nil {
		defaults.CheckOut = t
	}
	return ports.SearchRequest{Query: body.Query, Defaults: defaults}, true
}

func (rt *Router) streamSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := rt.parseSearchRequest(w, r)
	if !ok {
		return
	}

	sink, err := newSSESink(w, rt.metrics, serviceName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", err.Error())
		return
	}

	if rt.metrics != nil {
		rt.metrics.StreamOpened()
		defer rt.metrics.StreamClosed()
	}
	start := time.Now()

	if err := rt.streamUC.Run(r.Context(), req, sink); err != nil {
		// The stream is already committed; nothing can be written beyond
		// what the coordinator managed to send.
		slog.Warn("stream_aborted",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
	}
	if rt.metrics != nil {
		rt.metrics.RecordSession(serviceName, "stream", sink.Outcome(), time.Since(start))
	}
}

func (rt *Router) syncSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := rt.parseSearchRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, err := rt.syncUC.Search(r.Context(), req)
	if err != nil {
		rt.recordSync("sync", "errored", start)
		writeDomainError(w, err)
		return
	}
	rt.recordSync("sync", "complete", start)
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) legacySearch(w http.ResponseWriter, r *http.Request) {
	req, ok := rt.parseSearchRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, err := rt.syncUC.LegacySearch(r.Context(), req)
	if err != nil {
		rt.recordSync("legacy", "errored", start)
		writeDomainError(w, err)
		return
	}
	rt.recordSync("legacy", "complete", start)
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) recordSync(endpoint, outcome string, start time.Time) {
	if rt.metrics != nil {
		rt.metrics.RecordSession(serviceName, endpoint, outcome, time.Since(start))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
