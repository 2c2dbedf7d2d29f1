package openai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cost-dashboard/connectors/upstream"
	"cost-dashboard/domain/costsummary"
)

const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	projectKeyPrefix = "sk-proj-"
)

// Client handles OpenAI usage API requests
type Client struct {
	api *upstream.Client
}

// NewClient creates a client authenticated with an organization API key.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{api: upstream.NewBearer(baseURL, apiKey)}
}

// IsProjectKey reports whether key is a project key, which cannot read organization usage.
func IsProjectKey(key string) bool {
	return strings.HasPrefix(key, projectKeyPrefix)
}

// FetchUsage returns the raw /usage body for the date range.
func (c *Client) FetchUsage(ctx context.Context, start, end string) ([]byte, error) {
	body, err := c.api.Get(ctx, "/usage", url.Values{"start_date": {start}, "end_date": {end}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch openai usage: %w", err)
	}
	return body, nil
}

type rawUsage struct {
	Data []struct {
		ID               string  `json:"id"`
		Date             string  `json:"date"`
		Model            string  `json:"model"`
		PromptTokens     int64   `json:"prompt_tokens"`
		CompletionTokens int64   `json:"completion_tokens"`
		TotalTokens      int64   `json:"total_tokens"`
		Cost             float64 `json:"cost"`
	} `json:"data"`
}

type Tokens struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// UsageItem is one normalized usage entry. Created is in Unix milliseconds.
type UsageItem struct {
	ID      string  `json:"id"`
	Object  string  `json:"object"`
	Created int64   `json:"created"`
	Model   string  `json:"model"`
	Usage   Tokens  `json:"usage"`
	Cost    float64 `json:"cost"`
}

type UsageData struct {
	Object string      `json:"object"`
	Data   []UsageItem `json:"data"`
}

// Transform normalizes a raw /usage body. Missing token counts and costs become 0.
func Transform(body []byte) (*UsageData, error) {
	var raw rawUsage
	if err := upstream.Decode(body, &raw); err != nil {
		return nil, err
	}
	out := &UsageData{Object: "list", Data: make([]UsageItem, 0, len(raw.Data))}
	for _, it := range raw.Data {
		out.Data = append(out.Data, UsageItem{
			ID:      it.ID,
			Object:  "usage",
			Created: parseMillis(it.Date),
			Model:   it.Model,
			Usage: Tokens{
				PromptTokens:     it.PromptTokens,
				CompletionTokens: it.CompletionTokens,
				TotalTokens:      it.TotalTokens,
			},
			Cost: it.Cost,
		})
	}
	return out, nil
}

func parseMillis(date string) int64 {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if ts, err := time.Parse(layout, date); err == nil {
			return ts.UnixMilli()
		}
	}
	return 0
}

// SummarizeUsage totals cost and tokens overall and per model.
func SummarizeUsage(d *UsageData) *costsummary.UsageSummary {
	s := &costsummary.UsageSummary{UsageByModel: map[string]*costsummary.ModelUsage{}}
	for _, it := range d.Data {
		s.TotalCost += it.Cost
		s.TotalTokens += it.Usage.TotalTokens
		m, ok := s.UsageByModel[it.Model]
		if !ok {
			m = &costsummary.ModelUsage{}
			s.UsageByModel[it.Model] = m
		}
		m.Cost += it.Cost
		m.Tokens += it.Usage.TotalTokens
	}
	return s
}

// Summarize buckets usage cost per day and model.
func Summarize(d *UsageData, start, end string) *costsummary.CostSummary {
	s := costsummary.New(start, end)
	for _, it := range d.Data {
		date := time.UnixMilli(it.Created).UTC().Format("2006-01-02")
		s.Add(date, it.Model, it.Cost, "USD")
	}
	return s
}

// DescribeError maps an upstream failure to the HTTP status and JSON body returned to callers.
func DescribeError(err error) (int, map[string]any) {
	switch upstream.StatusOf(err) {
	case http.StatusUnauthorized:
		return http.StatusUnauthorized, map[string]any{
			"error":   "Authentication failed",
			"details": "The API key is invalid or has been revoked. Please check your API key and try again.",
		}
	case http.StatusForbidden:
		return http.StatusForbidden, map[string]any{
			"error":   "Access denied",
			"details": "Your API key does not have permission to access usage data. Please ensure you are using an organization API key with appropriate permissions.",
		}
	case 0:
		return http.StatusInternalServerError, map[string]any{"error": "Failed to fetch OpenAI usage data", "details": err.Error()}
	default:
		return upstream.StatusOf(err), map[string]any{"error": "Failed to fetch OpenAI usage data", "details": err.Error()}
	}
}

// ProjectKeyError is the body returned when a project key is used.
func ProjectKeyError() map[string]any {
	return map[string]any{
		"error":   "Invalid API key type",
		"details": "This endpoint requires an organization API key. Project API keys cannot access usage data. Please use an organization API key from https://platform.openai.com/account/org-settings",
	}
}
