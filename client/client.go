package client

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/staygenie/hotel-discovery/internal/core/domain"
)

// Options tunes one Client; zero values get sensible defaults.
type Options struct {
	HTTPClient *http.Client
	// SessionTimeout is armed when the stream reports connected; if it
	// fires before complete, the tier counts as failed.
	SessionTimeout time.Duration
	// Placeholders shown before the first hotel_found.
	Placeholders int
}

// Client talks to the discovery API and drives the fallback ladder. One
// Client serves one screen: starting a new search supersedes the previous
// session and silently discards its remaining events.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	seed       int

	mu      sync.Mutex
	current string // token of the active session attempt
}

func New(baseURL string, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		// No global timeout: the stream is long-lived by design; the
		// session timeout governs instead.
		httpClient = &http.Client{}
	}
	timeout := opts.SessionTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		timeout:    timeout,
		seed:       opts.Placeholders,
	}
}

// Result is the final reconciled output of a search.
type Result struct {
	SearchID string
	Tier     Tier
	Hotels   []DisplayHotel
}

// SearchCallbacks receive intermediate state while a search runs. Both
// are optional and called from the stream read goroutine, after each
// processed event.
type SearchCallbacks struct {
	OnUpdate func(hotels []DisplayHotel)
	OnStatus func(label string)
}

// Search runs the fallback ladder for one query: streaming two-stage,
// then synchronous two-stage, then legacy single-stage. Each tier starts
// from a fresh working set. Resolution failures and empty results stop
// the ladder immediately; transport failures escalate to the next tier.
func (c *Client) Search(ctx context.Context, query string, defaults domain.SearchParams, callbacks SearchCallbacks) (*Result, error) {
	return c.runLadder(ctx, query, defaults, callbacks)
}

// Cancel supersedes the active session, if any. Remaining events from it
// are discarded; safe to call concurrently with Search.
func (c *Client) Cancel() {
	c.mu.Lock()
	c.current = ""
	c.mu.Unlock()
}

// beginAttempt registers a new session attempt and returns its token.
// Any previously active attempt is superseded from this point on.
func (c *Client) beginAttempt() string {
	token := uuid.NewString()
	c.mu.Lock()
	c.current = token
	c.mu.Unlock()
	return token
}

// attemptLive reports whether token still identifies the active attempt.
func (c *Client) attemptLive(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == token
}
