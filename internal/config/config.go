package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIPort  string
	LogLevel string

	// LLM provider (query resolution + insight generation).
	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string

	// Hotel rates provider.
	RatesBaseURL string
	RatesAPIKey  string

	// Optional offer cache; empty address disables it.
	RedisAddr     string
	RedisPassword string
	OfferCacheTTL time.Duration

	// Optional analytics; empty URL disables publishing.
	NATSURL     string
	NATSSubject string

	MaxCandidates  int
	EnrichWorkers  int
	EnrichTimeout  time.Duration
	SessionTimeout time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		LLMAPIKey:  mustEnv("LLM_API_KEY", ""),
		LLMBaseURL: mustEnv("LLM_BASE_URL", ""),
		LLMModel:   mustEnv("LLM_MODEL", "gpt-4o-mini"),

		RatesBaseURL: mustEnv("RATES_BASE_URL", "https://api.liteapi.travel"),
		RatesAPIKey:  mustEnv("RATES_API_KEY", ""),

		RedisAddr:     mustEnv("REDIS_ADDR", ""),
		RedisPassword: mustEnv("REDIS_PASSWORD", ""),
		OfferCacheTTL: mustEnvDuration("OFFER_CACHE_TTL", 5*time.Minute),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "search.completed"),

		MaxCandidates:  mustEnvInt("MAX_CANDIDATES", 24),
		EnrichWorkers:  mustEnvInt("ENRICH_WORKERS", 4),
		EnrichTimeout:  mustEnvDuration("ENRICH_TIMEOUT", 20*time.Second),
		SessionTimeout: mustEnvDuration("SESSION_TIMEOUT", 45*time.Second),

		RateLimitRPS:   mustEnvFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst: mustEnvInt("RATE_LIMIT_BURST", 5),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
