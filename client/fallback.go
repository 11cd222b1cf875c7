package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/staygenie/hotel-discovery/internal/core/domain"
	"github.com/staygenie/hotel-discovery/internal/core/ports"
)

// Tier names one rung of the fallback ladder.
type Tier string

const (
	TierStream Tier = "stream"
	TierSync   Tier = "sync"
	TierLegacy Tier = "legacy"
)

type tierRunner struct {
	tier Tier
	run  func(ctx context.Context, token, query string, defaults domain.SearchParams, callbacks SearchCallbacks) (*Result, error)
}

// runLadder tries each tier in order on a fresh working set. Typed
// terminal failures (resolution, no results, superseded) stop the ladder;
// everything else escalates.
func (c *Client) runLadder(ctx context.Context, query string, defaults domain.SearchParams, callbacks SearchCallbacks) (*Result, error) {
	tiers := []tierRunner{
		{TierStream, c.runStreamTier},
		{TierSync, c.runSyncTier},
		{TierLegacy, c.runLegacyTier},
	}

	var tierErrs []error
	for _, t := range tiers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		token := c.beginAttempt()
		result, err := t.run(ctx, token, query, defaults, callbacks)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, ErrResolution) || errors.Is(err, ErrNoResults) || errors.Is(err, ErrSuperseded) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		tierErrs = append(tierErrs, &TransportError{Tier: t.tier, Cause: err})
		if callbacks.OnStatus != nil {
			// A tier failing mid-ladder shows a transient status, never an
			// error; only the exhausted ladder is a user-visible failure.
			callbacks.OnStatus("still searching...")
		}
	}
	return nil, &LadderError{TierErrors: tierErrs}
}

type searchRequestBody struct {
	Query    string `json:"query"`
	CheckIn  string `json:"checkIn,omitempty"`
	CheckOut string `json:"checkOut,omitempty"`
	Adults   int    `json:"adults,omitempty"`
	Children int    `json:"children,omitempty"`
}

func (c *Client) newSearchRequest(ctx context.Context, path, query string, defaults domain.SearchParams) (*http.Request, error) {
	body := searchRequestBody{
		Query:    query,
		Adults:   defaults.Adults,
		Children: defaults.Children,
	}
	if !defaults.CheckIn.IsZero() {
		body.CheckIn = defaults.CheckIn.Format("2006-01-02")
	}
	if !defaults.CheckOut.IsZero() {
		body.CheckOut = defaults.CheckOut.Format("2006-01-02")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// runStreamTier consumes the event stream, reconciling in arrival order.
// The session timeout is armed when connected arrives; firing closes the
// stream and fails the tier.
func (c *Client) runStreamTier(ctx context.Context, token, query string, defaults domain.SearchParams, callbacks SearchCallbacks) (*Result, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := c.newSearchRequest(streamCtx, "/v1/search/stream", query, defaults)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusToError(resp)
	}

	rec := NewReconciler(token)
	rec.SeedPlaceholders(c.seed)
	if callbacks.OnUpdate != nil && c.seed > 0 {
		callbacks.OnUpdate(rec.Snapshot())
	}

	var timeoutTimer *time.Timer
	defer func() {
		if timeoutTimer != nil {
			timeoutTimer.Stop()
		}
	}()

	readErr := readEventStream(resp.Body, func(event domain.StreamEvent) (bool, error) {
		if !c.attemptLive(token) {
			return false, ErrSuperseded
		}

		if event.Type == domain.EventConnected && timeoutTimer == nil {
			timeoutTimer = time.AfterFunc(c.timeout, cancel)
		}

		rec.Apply(token, event)
		if callbacks.OnStatus != nil && event.Type == domain.EventProgress {
			callbacks.OnStatus(event.Message)
		}
		if callbacks.OnUpdate != nil &&
			(event.Type == domain.EventHotelFound || event.Type == domain.EventHotelEnhanced) {
			callbacks.OnUpdate(rec.Snapshot())
		}

		switch event.Type {
		case domain.EventComplete:
			return true, nil
		case domain.EventError:
			return false, errorEventToError(event)
		}
		return false, nil
	})
	if readErr != nil {
		return nil, readErr
	}

	return &Result{
		SearchID: rec.SearchID(),
		Tier:     TierStream,
		Hotels:   rec.Snapshot(),
	}, nil
}

// runSyncTier awaits both stages server-side, then replays the response
// through the same reconciler merge path the stream uses.
func (c *Client) runSyncTier(ctx context.Context, token, query string, defaults domain.SearchParams, callbacks SearchCallbacks) (*Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newSearchRequest(callCtx, "/v1/search", query, defaults)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sync search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusToError(resp)
	}

	var result ports.TwoStageResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode sync response: %w", err)
	}
	if !c.attemptLive(token) {
		return nil, ErrSuperseded
	}

	rec := NewReconciler(token)
	for _, hotel := range result.Hotels {
		rec.Apply(token, domain.HotelFoundEvent(hotel.MatchResult, len(result.Hotels)))
		if !hotel.Narrative.Empty() {
			rec.Apply(token, domain.HotelEnhancedEvent(hotel.MatchResult, hotel.Narrative.NarrativeFields))
		}
	}
	rec.Apply(token, domain.CompleteEvent(result.SearchID, len(result.Hotels), len(result.Hotels)))

	if callbacks.OnUpdate != nil {
		callbacks.OnUpdate(rec.Snapshot())
	}
	return &Result{
		SearchID: result.SearchID,
		Tier:     TierSync,
		Hotels:   rec.Snapshot(),
	}, nil
}

// runLegacyTier is stage 1 only: a flat ranked list, placeholder
// narrative throughout.
func (c *Client) runLegacyTier(ctx context.Context, token, query string, defaults domain.SearchParams, callbacks SearchCallbacks) (*Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newSearchRequest(callCtx, "/v1/search/legacy", query, defaults)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("legacy search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusToError(resp)
	}

	var result ports.LegacyResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode legacy response: %w", err)
	}
	if !c.attemptLive(token) {
		return nil, ErrSuperseded
	}

	rec := NewReconciler(token)
	for _, match := range result.Hotels {
		rec.Apply(token, domain.HotelFoundEvent(match, len(result.Hotels)))
	}
	rec.Apply(token, domain.CompleteEvent(result.SearchID, len(result.Hotels), 0))

	if callbacks.OnUpdate != nil {
		callbacks.OnUpdate(rec.Snapshot())
	}
	return &Result{
		SearchID: result.SearchID,
		Tier:     TierLegacy,
		Hotels:   rec.Snapshot(),
	}, nil
}

// statusToError maps an HTTP failure onto the ladder's error taxonomy
// using the server's error code when present.
func statusToError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &body)

	switch body.Code {
	case domain.ErrorCodeResolution:
		return fmt.Errorf("%w: %s", ErrResolution, body.Error)
	case domain.ErrorCodeNoResults:
		return fmt.Errorf("%w: %s", ErrNoResults, body.Error)
	}
	switch resp.StatusCode {
	case http.StatusUnprocessableEntity:
		return ErrResolution
	case http.StatusNotFound:
		return ErrNoResults
	}
	return fmt.Errorf("unexpected status %s", resp.Status)
}

func errorEventToError(event domain.StreamEvent) error {
	switch event.Code {
	case domain.ErrorCodeResolution:
		return fmt.Errorf("%w: %s", ErrResolution, event.Message)
	case domain.ErrorCodeNoResults:
		return fmt.Errorf("%w: %s", ErrNoResults, event.Message)
	default:
		return fmt.Errorf("server reported: %s", event.Message)
	}
}
