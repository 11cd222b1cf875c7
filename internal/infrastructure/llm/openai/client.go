package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/staygenie/hotel-discovery/internal/core/domain"
	"github.com/staygenie/hotel-discovery/internal/infrastructure/resilience"
)

// Client is the shared OpenAI-compatible chat client behind both the query
// resolver and the insight generator.
type Client struct {
	api      *goopenai.Client
	model    string
	executor *resilience.Executor
}

func New(apiKey, baseURL, model string, executor *resilience.Executor) *Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		api:      goopenai.NewClientWithConfig(cfg),
		model:    model,
		executor: executor,
	}
}

// completeJSON runs one JSON-mode chat completion under the resilience
// executor and returns the raw assistant text.
func (c *Client) completeJSON(ctx context.Context, operation, system, user string) (string, error) {
	var content string
	err := c.execute(ctx, operation, func(callCtx context.Context) error {
		resp, err := c.api.CreateChatCompletion(callCtx, goopenai.ChatCompletionRequest{
			Model:       c.model,
			Temperature: 0.2,
			ResponseFormat: &goopenai.ChatCompletionResponseFormat{
				Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []goopenai.ChatCompletionMessage{
				{Role: goopenai.ChatMessageRoleSystem, Content: system},
				{Role: goopenai.ChatMessageRoleUser, Content: user},
			},
		})
		if err != nil {
			return fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("chat completion: empty choices")
		}
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, classifyOpenAIError)
}

// Resolver implements ports.QueryResolver on top of the shared client.
type Resolver struct {
	client *Client
}

func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

type resolvedPayload struct {
	Location    string   `json:"location"`
	CheckIn     string   `json:"check_in"`
	CheckOut    string   `json:"check_out"`
	Adults      int      `json:"adults"`
	Children    int      `json:"children"`
	MinPrice    float64  `json:"min_price"`
	MaxPrice    float64  `json:"max_price"`
	Preferences []string `json:"preferences"`
}

func (r *Resolver) Resolve(ctx context.Context, query string, defaults domain.SearchParams) (domain.SearchParams, error) {
	raw, err := r.client.completeJSON(ctx, "llm_resolve", resolveSystemPrompt, buildResolvePrompt(query, defaults))
	if err != nil {
		return domain.SearchParams{}, err
	}

	var payload resolvedPayload
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); err != nil {
		return domain.SearchParams{}, fmt.Errorf("parse resolved params json: %w", err)
	}

	params := domain.SearchParams{
		Location:    strings.TrimSpace(payload.Location),
		Adults:      payload.Adults,
		Children:    payload.Children,
		MinPrice:    payload.MinPrice,
		MaxPrice:    payload.MaxPrice,
		Preferences: payload.Preferences,
	}
	params.CheckIn = parseDateOr(payload.CheckIn, defaults.CheckIn)
	params.CheckOut = parseDateOr(payload.CheckOut, defaults.CheckOut)
	if params.Adults <= 0 {
		params.Adults = defaults.Adults
	}
	if params.Adults <= 0 {
		params.Adults = 2
	}
	if params.Children < 0 {
		params.Children = 0
	}
	if params.CheckIn.IsZero() {
		params.CheckIn = time.Now().AddDate(0, 0, 14).Truncate(24 * time.Hour)
	}
	if !params.CheckOut.After(params.CheckIn) {
		params.CheckOut = params.CheckIn.AddDate(0, 0, 2)
	}
	return params, nil
}

func parseDateOr(value string, fallback time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return fallback
	}
	return parsed
}

// InsightGenerator implements ports.InsightGenerator on top of the shared
// client.
type InsightGenerator struct {
	client *Client
}

func NewInsightGenerator(client *Client) *InsightGenerator {
	return &InsightGenerator{client: client}
}

type insightsPayload struct {
	WhyItMatches      string   `json:"why_it_matches"`
	GuestInsights     string   `json:"guest_insights"`
	Highlights        []string `json:"highlights"`
	NearbyAttractions []string `json:"nearby_attractions"`
}

func (g *InsightGenerator) GenerateInsights(ctx context.Context, match domain.MatchResult, query string) (domain.NarrativeFields, error) {
	raw, err := g.client.completeJSON(ctx, "llm_insights", insightsSystemPrompt, buildInsightsPrompt(match, query))
	if err != nil {
		return domain.NarrativeFields{}, err
	}

	var payload insightsPayload
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); err != nil {
		return domain.NarrativeFields{}, fmt.Errorf("parse insights json: %w", err)
	}
	return domain.NarrativeFields{
		WhyItMatches:      strings.TrimSpace(payload.WhyItMatches),
		GuestInsights:     strings.TrimSpace(payload.GuestInsights),
		Highlights:        payload.Highlights,
		NearbyAttractions: payload.NearbyAttractions,
	}, nil
}

// extractJSONObject trims any prose the model wraps around the JSON body.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
