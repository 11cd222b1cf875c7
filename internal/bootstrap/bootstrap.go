package bootstrap

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/staygenie/hotel-discovery/internal/config"
	"github.com/staygenie/hotel-discovery/internal/core/ports"
	"github.com/staygenie/hotel-discovery/internal/core/usecase"
	llmopenai "github.com/staygenie/hotel-discovery/internal/infrastructure/llm/openai"
	natsqueue "github.com/staygenie/hotel-discovery/internal/infrastructure/queue/nats"
	"github.com/staygenie/hotel-discovery/internal/infrastructure/rates/liteapi"
	"github.com/staygenie/hotel-discovery/internal/infrastructure/resilience"
	"github.com/staygenie/hotel-discovery/internal/observability/metrics"
)

// App wires configuration into the two search use cases and their
// infrastructure. Close releases shared connections.
type App struct {
	StreamUC *usecase.StreamSearchUseCase
	SyncUC   *usecase.SyncSearchUseCase
	Metrics  *metrics.HTTPServerMetrics

	publisher *natsqueue.Publisher
	redis     *redis.Client
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	executor := resilience.NewExecutor(resilience.DefaultConfig())

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := cache.Ping(ctx).Err(); err != nil {
			// Cache is an optimization; start without it rather than fail.
			slog.Warn("redis_unavailable", "addr", cfg.RedisAddr, "error", err)
			cache = nil
		}
	}

	offerSource := liteapi.New(cfg.RatesBaseURL, cfg.RatesAPIKey, liteapi.Options{
		ResilienceExecutor: executor,
		Cache:              cache,
		CacheTTL:           cfg.OfferCacheTTL,
	})

	llmClient := llmopenai.New(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel, executor)
	resolver := llmopenai.NewResolver(llmClient)
	insights := llmopenai.NewInsightGenerator(llmClient)

	var publisher *natsqueue.Publisher
	var eventPublisher ports.EventPublisher
	if cfg.NATSURL != "" {
		p, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			slog.Warn("nats_unavailable", "url", cfg.NATSURL, "error", err)
		} else {
			publisher = p
			eventPublisher = p
		}
	}

	matcher := usecase.NewMatchUseCase(offerSource, usecase.MatchConfig{
		MaxCandidates: cfg.MaxCandidates,
	})
	enricher := usecase.NewEnrichUseCase(insights, cfg.EnrichTimeout)
	streamCfg := usecase.StreamConfig{
		EnrichWorkers:  cfg.EnrichWorkers,
		SessionTimeout: cfg.SessionTimeout,
	}

	return &App{
		StreamUC:  usecase.NewStreamSearchUseCase(resolver, matcher, enricher, eventPublisher, streamCfg),
		SyncUC:    usecase.NewSyncSearchUseCase(resolver, matcher, enricher, streamCfg),
		Metrics:   metrics.NewHTTPServerMetrics("discovery-api"),
		publisher: publisher,
		redis:     cache,
	}, nil
}

func (a *App) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
