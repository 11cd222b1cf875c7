package liteapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/staygenie/hotel-discovery/internal/core/domain"
	"github.com/staygenie/hotel-discovery/internal/infrastructure/resilience"
)

// Client fetches live hotel rates from the upstream provider. It implements
// ports.OfferSource.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor

	// Optional response cache; nil disables caching.
	cache    *redis.Client
	cacheTTL time.Duration
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
	Cache              *redis.Client
	CacheTTL           time.Duration
}

func New(baseURL, apiKey string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cacheTTL := options.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
		cache:      options.Cache,
		cacheTTL:   cacheTTL,
	}
}

// offerPayload mirrors the provider's rate response shape.
type offerPayload struct {
	Data []struct {
		HotelID   string   `json:"hotelId"`
		Name      string   `json:"name"`
		City      string   `json:"city"`
		Country   string   `json:"country"`
		Latitude  float64  `json:"latitude"`
		Longitude float64  `json:"longitude"`
		Images    []string `json:"images"`
		Rate      struct {
			NightlyPrice float64 `json:"nightlyPrice"`
			Currency     string  `json:"currency"`
			RefundPolicy string  `json:"refundPolicy"`
		} `json:"rate"`
		Rating      float64  `json:"rating"`
		ReviewCount int      `json:"reviewCount"`
		Amenities   []string `json:"amenities"`
	} `json:"data"`
}

func (c *Client) FetchOffers(ctx context.Context, params domain.SearchParams) ([]domain.HotelOffer, error) {
	key := c.cacheKey(params)
	if offers, ok := c.fromCache(ctx, key); ok {
		return offers, nil
	}

	var payload offerPayload
	err := c.execute(ctx, "rates_search", func(callCtx context.Context) error {
		return c.getJSON(callCtx, "/v3/hotels/rates", searchQuery(params), &payload, "rates_search")
	})
	if err != nil {
		return nil, err
	}

	offers := make([]domain.HotelOffer, 0, len(payload.Data))
	for _, item := range payload.Data {
		if item.HotelID == "" {
			// Offers without a stable id cannot be correlated with
			// enrichment results downstream; skip them at the edge.
			continue
		}
		offers = append(offers, domain.HotelOffer{
			HotelID:       item.HotelID,
			Name:          item.Name,
			City:          item.City,
			Country:       item.Country,
			Latitude:      item.Latitude,
			Longitude:     item.Longitude,
			Images:        item.Images,
			PricePerNight: item.Rate.NightlyPrice,
			Currency:      item.Rate.Currency,
			GuestRating:   item.Rating,
			ReviewCount:   item.ReviewCount,
			Amenities:     item.Amenities,
			RefundPolicy:  item.Rate.RefundPolicy,
		})
	}

	c.toCache(ctx, key, offers)
	return offers, nil
}

func searchQuery(params domain.SearchParams) url.Values {
	q := url.Values{}
	q.Set("location", params.Location)
	q.Set("checkin", params.CheckIn.Format("2006-01-02"))
	q.Set("checkout", params.CheckOut.Format("2006-01-02"))
	q.Set("adults", strconv.Itoa(params.Adults))
	if params.Children > 0 {
		q.Set("children", strconv.Itoa(params.Children))
	}
	if params.MaxPrice > 0 {
		q.Set("maxPrice", strconv.FormatFloat(params.MaxPrice, 'f', 0, 64))
	}
	return q
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, classifyProviderError)
}

// cacheKey hashes the rate-relevant parameters; preference terms only
// influence scoring, not the provider query, so they are excluded.
func (c *Client) cacheKey(params domain.SearchParams) string {
	raw := fmt.Sprintf("%s|%s|%s|%d|%d|%.0f",
		strings.ToLower(params.Location),
		params.CheckIn.Format("2006-01-02"),
		params.CheckOut.Format("2006-01-02"),
		params.Adults,
		params.Children,
		params.MaxPrice,
	)
	sum := sha256.Sum256([]byte(raw))
	return "rates:" + hex.EncodeToString(sum[:16])
}

func (c *Client) fromCache(ctx context.Context, key string) ([]domain.HotelOffer, bool) {
	if c.cache == nil {
		return nil, false
	}
	raw, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("rates_cache_get_failed", "error", err)
		}
		return nil, false
	}
	var offers []domain.HotelOffer
	if err := json.Unmarshal(raw, &offers); err != nil {
		return nil, false
	}
	return offers, true
}

func (c *Client) toCache(ctx context.Context, key string, offers []domain.HotelOffer) {
	if c.cache == nil || len(offers) == 0 {
		return
	}
	raw, err := json.Marshal(offers)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.cacheTTL).Err(); err != nil {
		slog.Warn("rates_cache_set_failed", "error", err)
	}
}
