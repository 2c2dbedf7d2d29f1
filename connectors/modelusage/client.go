// Package modelusage reads the per-model billing endpoints of LLM vendors that
// share one contract: GET <base>/usage?start_date&end_date with a bearer key,
// answering total_cost, usage_by_model and usage_history.
package modelusage

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"cost-dashboard/connectors/upstream"
	"cost-dashboard/domain/costsummary"
)

const (
	AnthropicBaseURL = "https://api.anthropic.com/v1"
	CohereBaseURL    = "https://api.cohere.ai/v1"
	GeminiBaseURL    = "https://generativelanguage.googleapis.com/v1"
)

// Client handles one vendor's usage API requests
type Client struct {
	vendor string
	api    *upstream.Client
}

func newClient(vendor, defaultBase, baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBase
	}
	return &Client{vendor: vendor, api: upstream.NewBearer(baseURL, apiKey)}
}

func NewAnthropic(baseURL, apiKey string) *Client {
	return newClient("Anthropic", AnthropicBaseURL, baseURL, apiKey)
}

func NewCohere(baseURL, apiKey string) *Client {
	return newClient("Cohere", CohereBaseURL, baseURL, apiKey)
}

func NewGemini(baseURL, apiKey string) *Client {
	return newClient("Gemini", GeminiBaseURL, baseURL, apiKey)
}

// Vendor is the display name used in error messages.
func (c *Client) Vendor() string { return c.vendor }

// FetchError is the message returned to callers for any failed fetch.
func (c *Client) FetchError() string {
	return fmt.Sprintf("Failed to fetch %s billing data", c.vendor)
}

type rawBilling struct {
	TotalCost    float64                            `json:"total_cost"`
	UsageByModel map[string]costsummary.ModelTokens `json:"usage_by_model"`
	UsageHistory []costsummary.UsageRecord          `json:"usage_history"`
}

// FetchBilling returns the vendor's billing data; absent fields default to zero or empty.
// Both dates are sent only when both are given.
func (c *Client) FetchBilling(ctx context.Context, start, end string) (*costsummary.BillingData, error) {
	var q url.Values
	if start != "" && end != "" {
		q = url.Values{"start_date": {start}, "end_date": {end}}
	}
	body, err := c.api.Get(ctx, "/usage", q)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s billing data: %w", c.vendor, err)
	}
	var raw rawBilling
	if err := upstream.Decode(body, &raw); err != nil {
		return nil, err
	}
	out := &costsummary.BillingData{
		TotalCost:    raw.TotalCost,
		UsageByModel: raw.UsageByModel,
		UsageHistory: raw.UsageHistory,
	}
	if out.UsageByModel == nil {
		out.UsageByModel = map[string]costsummary.ModelTokens{}
	}
	if out.UsageHistory == nil {
		out.UsageHistory = []costsummary.UsageRecord{}
	}
	return out, nil
}

// Summarize buckets usage history cost per day and model. Records are visited in
// timestamp order; records with an unparseable timestamp are skipped.
func Summarize(b *costsummary.BillingData, start, end string) *costsummary.CostSummary {
	history := append([]costsummary.UsageRecord(nil), b.UsageHistory...)
	sort.SliceStable(history, func(i, j int) bool { return history[i].Timestamp < history[j].Timestamp })

	s := costsummary.New(start, end)
	for _, r := range history {
		date, ok := day(r.Timestamp)
		if !ok {
			continue
		}
		s.Add(date, r.Model, r.Cost, "USD")
	}
	return s
}

func day(ts string) (string, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.UTC().Format("2006-01-02"), true
		}
	}
	return "", false
}
