package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/staygenie/hotel-discovery/internal/core/domain"
	"github.com/staygenie/hotel-discovery/internal/core/ports"
	"github.com/staygenie/hotel-discovery/internal/observability/logging"
)

// Perceived-latency milestones emitted while stage 1 runs.
const progressTotalSteps = 3

// StreamConfig tunes the per-session coordinator.
type StreamConfig struct {
	// EnrichWorkers bounds simultaneously in-flight enrichment calls.
	EnrichWorkers int
	// SessionTimeout caps the whole session; draining workers past it are
	// abandoned.
	SessionTimeout time.Duration
}

func (c StreamConfig) normalize() StreamConfig {
	if c.EnrichWorkers <= 0 {
		c.EnrichWorkers = 4
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 45 * time.Second
	}
	return c
}

// StreamSearchUseCase is the Stream Coordinator. It owns the session,
// sequences stage-1 output as rank-ordered hotel_found events, fans out
// enrichment with a bounded worker pool, and relays completions as
// hotel_enhanced events. The coordinator goroutine is the only writer to
// the sink, so events reach the wire one at a time, fully formed.
type StreamSearchUseCase struct {
	resolver  ports.QueryResolver
	matcher   *MatchUseCase
	enricher  *EnrichUseCase
	publisher ports.EventPublisher
	cfg       StreamConfig
}

func NewStreamSearchUseCase(
	resolver ports.QueryResolver,
	matcher *MatchUseCase,
	enricher *EnrichUseCase,
	publisher ports.EventPublisher,
	cfg StreamConfig,
) *StreamSearchUseCase {
	return &StreamSearchUseCase{
		resolver:  resolver,
		matcher:   matcher,
		enricher:  enricher,
		publisher: publisher,
		cfg:       cfg.normalize(),
	}
}

type enrichOutcome struct {
	match     domain.MatchResult
	narrative domain.NarrativeFields
	fallback  bool
}

// Run drives one session to its terminal event. The returned error reports
// why the stream ended early (sink write failure, context cancellation);
// session-level failures are delivered to the client as an error event and
// return nil here.
func (uc *StreamSearchUseCase) Run(ctx context.Context, req ports.SearchRequest, sink ports.EventSink) error {
	session := domain.NewSearchSession(req.Query)
	log := logging.ForSearch(session.ID)

	if err := sink.Send(ctx, domain.ConnectedEvent("searching hotels for you")); err != nil {
		return fmt.Errorf("send connected: %w", err)
	}

	session.Transition(domain.StateMatching)
	matches, err := uc.matchStage(ctx, session, req, sink)
	if err != nil {
		return err
	}
	if matches == nil {
		// Terminal error event already sent.
		uc.publishOutcome(session, 0, 0, "errored")
		return nil
	}
	session.ExpectedCount = len(matches)

	session.Transition(domain.StateStreaming)
	log.Info("stream_session_streaming", "query", req.Query, "expected", session.ExpectedCount)

	// Dispatch enrichment before emitting hotel_found so stage 2 overlaps
	// stage-1 delivery. The results channel is buffered to the full match
	// count: workers never block on it and abandoned results cannot leak a
	// goroutine.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	results := uc.dispatchEnrichment(workerCtx, matches, req.Query)

	for _, match := range matches {
		if err := sink.Send(ctx, domain.HotelFoundEvent(match, session.ExpectedCount)); err != nil {
			return fmt.Errorf("send hotel_found rank %d: %w", match.Rank, err)
		}
	}

	session.Transition(domain.StateDraining)
	enhanced, err := uc.drain(ctx, session, results, sink)
	if err != nil {
		return err
	}

	session.Transition(domain.StateComplete)
	if err := sink.Send(ctx, domain.CompleteEvent(session.ID, session.ExpectedCount, enhanced)); err != nil {
		return fmt.Errorf("send complete: %w", err)
	}
	log.Info("stream_session_complete",
		"found", session.ExpectedCount,
		"enhanced", enhanced,
		"duration_ms", time.Since(session.CreatedAt).Milliseconds(),
	)
	uc.publishOutcome(session, session.ExpectedCount, enhanced, "complete")
	return nil
}

// matchStage resolves the query and runs the matcher, emitting progress
// milestones. A nil, nil return means a terminal error event was sent.
func (uc *StreamSearchUseCase) matchStage(
	ctx context.Context,
	session *domain.SearchSession,
	req ports.SearchRequest,
	sink ports.EventSink,
) ([]domain.MatchResult, error) {
	if err := sink.Send(ctx, domain.ProgressEvent(1, progressTotalSteps, "understanding your trip")); err != nil {
		return nil, fmt.Errorf("send progress: %w", err)
	}

	params, err := resolveParams(ctx, uc.resolver, req)
	if err != nil {
		return uc.failSession(ctx, session, sink, err)
	}
	session.Params = params

	if err := sink.Send(ctx, domain.ProgressEvent(2, progressTotalSteps, "checking live rates")); err != nil {
		return nil, fmt.Errorf("send progress: %w", err)
	}

	matches, err := uc.matcher.Match(ctx, params)
	if err != nil {
		return uc.failSession(ctx, session, sink, err)
	}

	if err := sink.Send(ctx, domain.ProgressEvent(3, progressTotalSteps, "scoring hotels")); err != nil {
		return nil, fmt.Errorf("send progress: %w", err)
	}
	return matches, nil
}

// failSession converts a stage-1 failure into the single terminal error
// event. Context cancellation is not a session failure; it propagates.
func (uc *StreamSearchUseCase) failSession(
	ctx context.Context,
	session *domain.SearchSession,
	sink ports.EventSink,
	cause error,
) ([]domain.MatchResult, error) {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return nil, cause
	}

	session.Transition(domain.StateErrored)
	code := domain.ErrorCodeInternal
	message := "hotel search failed"
	switch {
	case errors.Is(cause, domain.ErrResolutionFailed):
		code = domain.ErrorCodeResolution
		message = "we couldn't understand that search"
	case errors.Is(cause, domain.ErrNoCandidates):
		code = domain.ErrorCodeNoResults
		message = "no hotels matched your search"
	}
	slog.Warn("stream_session_errored", "search_id", session.ID, "code", code, "error", cause)

	if err := sink.Send(ctx, domain.ErrorEvent(code, message)); err != nil {
		return nil, fmt.Errorf("send error event: %w", err)
	}
	return nil, nil
}

func (uc *StreamSearchUseCase) dispatchEnrichment(
	ctx context.Context,
	matches []domain.MatchResult,
	query string,
) <-chan enrichOutcome {
	// Buffered to the full match count: a worker's send never blocks, so an
	// abandoned session cannot leak worker goroutines.
	results := make(chan enrichOutcome, len(matches))
	sem := make(chan struct{}, uc.cfg.EnrichWorkers)

	go func() {
		var wg sync.WaitGroup
		for _, match := range matches {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				wg.Wait()
				close(results)
				return
			}
			wg.Add(1)
			go func(match domain.MatchResult) {
				defer wg.Done()
				defer func() { <-sem }()
				result, err := uc.enricher.Enrich(ctx, match, query)
				if err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil) {
					return
				}
				// A worker failure is isolated: the fallback narrative is
				// delivered like any other completion.
				results <- enrichOutcome{match: match, narrative: result.Narrative, fallback: result.Fallback}
			}(match)
		}
		wg.Wait()
		close(results)
	}()
	return results
}

// drain forwards enrichment completions until the channel is exhausted or
// the session deadline elapses. Late workers are abandoned; their results
// are dropped because the session has already closed.
func (uc *StreamSearchUseCase) drain(
	ctx context.Context,
	session *domain.SearchSession,
	results <-chan enrichOutcome,
	sink ports.EventSink,
) (int, error) {
	deadline := time.NewTimer(time.Until(session.CreatedAt.Add(uc.cfg.SessionTimeout)))
	defer deadline.Stop()

	enhanced := 0
	for {
		select {
		case outcome, ok := <-results:
			if !ok {
				return enhanced, nil
			}
			if err := sink.Send(ctx, domain.HotelEnhancedEvent(outcome.match, outcome.narrative)); err != nil {
				return enhanced, fmt.Errorf("send hotel_enhanced: %w", err)
			}
			enhanced++
		case <-deadline.C:
			slog.Warn("stream_session_drain_deadline",
				"search_id", session.ID,
				"enhanced", enhanced,
				"expected", session.ExpectedCount,
			)
			return enhanced, nil
		case <-ctx.Done():
			return enhanced, ctx.Err()
		}
	}
}

func (uc *StreamSearchUseCase) publishOutcome(session *domain.SearchSession, found, enhanced int, outcome string) {
	if uc.publisher == nil {
		return
	}
	// Fire and forget with its own short deadline; analytics must not
	// outlive or fail the session.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := uc.publisher.PublishSearchCompleted(ctx, ports.SearchCompleted{
		SearchID:      session.ID,
		Query:         session.Query,
		TotalFound:    found,
		TotalEnhanced: enhanced,
		DurationMs:    time.Since(session.CreatedAt).Milliseconds(),
		Outcome:       outcome,
	})
	if err != nil {
		slog.Warn("search_completed_publish_failed", "search_id", session.ID, "error", err)
	}
}
