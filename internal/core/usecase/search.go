package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/staygenie/hotel-discovery/internal/core/domain"
	"github.com/staygenie/hotel-discovery/internal/core/ports"
)

// SyncSearchUseCase serves the non-streaming entry points: the awaited
// two-stage search (fallback tier 2) and the legacy single-stage search
// (fallback tier 3). Both run the same stage-1 pipeline as the stream.
type SyncSearchUseCase struct {
	resolver ports.QueryResolver
	matcher  *MatchUseCase
	enricher *EnrichUseCase
	cfg      StreamConfig
}

func NewSyncSearchUseCase(
	resolver ports.QueryResolver,
	matcher *MatchUseCase,
	enricher *EnrichUseCase,
	cfg StreamConfig,
) *SyncSearchUseCase {
	return &SyncSearchUseCase{
		resolver: resolver,
		matcher:  matcher,
		enricher: enricher,
		cfg:      cfg.normalize(),
	}
}

// Search resolves, matches, and enriches every candidate before returning.
// Enrichment runs on the same bounded pool as the stream; hotels whose
// enrichment fails or misses the deadline carry fallback narrative.
func (uc *SyncSearchUseCase) Search(ctx context.Context, req ports.SearchRequest) (*ports.TwoStageResult, error) {
	session := domain.NewSearchSession(req.Query)

	params, err := resolveParams(ctx, uc.resolver, req)
	if err != nil {
		return nil, err
	}
	session.Params = params

	matches, err := uc.matcher.Match(ctx, params)
	if err != nil {
		return nil, err
	}
	session.ExpectedCount = len(matches)

	enrichCtx, cancel := context.WithDeadline(ctx, session.CreatedAt.Add(uc.cfg.SessionTimeout))
	defer cancel()

	hotels := make([]ports.EnrichedHotel, len(matches))
	sem := make(chan struct{}, uc.cfg.EnrichWorkers)
	var wg sync.WaitGroup
	for i, match := range matches {
		wg.Add(1)
		go func(i int, match domain.MatchResult) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			result, _ := uc.enricher.Enrich(enrichCtx, match, req.Query)
			hotels[i] = ports.EnrichedHotel{
				MatchResult: match,
				Narrative: ports.NarrativeForHotel{
					NarrativeFields: result.Narrative,
					Fallback:        result.Fallback,
				},
			}
		}(i, match)
	}
	wg.Wait()

	slog.Info("sync_search_complete",
		"search_id", session.ID,
		"found", len(hotels),
		"duration_ms", time.Since(session.CreatedAt).Milliseconds(),
	)
	return &ports.TwoStageResult{
		SearchID: session.ID,
		Params:   params,
		Hotels:   hotels,
	}, nil
}

// LegacySearch is the flat one-call, one-response path: stage 1 only.
func (uc *SyncSearchUseCase) LegacySearch(ctx context.Context, req ports.SearchRequest) (*ports.LegacyResult, error) {
	session := domain.NewSearchSession(req.Query)

	params, err := resolveParams(ctx, uc.resolver, req)
	if err != nil {
		return nil, err
	}

	matches, err := uc.matcher.Match(ctx, params)
	if err != nil {
		return nil, err
	}

	slog.Info("legacy_search_complete",
		"search_id", session.ID,
		"found", len(matches),
		"duration_ms", time.Since(session.CreatedAt).Milliseconds(),
	)
	return &ports.LegacyResult{
		SearchID: session.ID,
		Hotels:   matches,
	}, nil
}
