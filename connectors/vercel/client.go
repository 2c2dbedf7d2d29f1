package vercel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"cost-dashboard/connectors/upstream"
	"cost-dashboard/domain/costsummary"
)

const DefaultBaseURL = "https://api.vercel.com"

// ErrNoUsage is returned when Vercel answers without a usage list.
var ErrNoUsage = errors.New("no usage data found for the selected period")

// Client handles Vercel usage API requests
type Client struct {
	api    *upstream.Client
	teamID string
}

// NewClient creates a client for a token, optionally scoped to a team.
func NewClient(baseURL, token, teamID string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{api: upstream.NewBearer(baseURL, token), teamID: teamID}
}

type Amount struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// UsageData is one metered line of Vercel usage.
type UsageData struct {
	Timestamp string   `json:"timestamp"`
	Service   string   `json:"service"`
	Cost      Amount   `json:"cost"`
	Usage     Quantity `json:"usage"`
}

type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CostData is the proxied response: the vendor's usage plus the requested period.
type CostData struct {
	Usage  []UsageData `json:"usage"`
	Period Period      `json:"period"`
}

// FetchCosts returns the usage lines for [start, end].
func (c *Client) FetchCosts(ctx context.Context, start, end string) (*CostData, error) {
	q := url.Values{"from": {start}, "to": {end}}
	if c.teamID != "" {
		q.Set("teamId", c.teamID)
	}
	body, err := c.api.Get(ctx, "/v2/usage", q)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vercel usage: %w", err)
	}
	var raw struct {
		Usage []UsageData `json:"usage"`
	}
	if err := upstream.Decode(body, &raw); err != nil {
		return nil, err
	}
	if raw.Usage == nil {
		return nil, ErrNoUsage
	}
	return &CostData{Usage: raw.Usage, Period: Period{Start: start, End: end}}, nil
}

// Summarize accumulates cost per service and per day; the currency is the unit.
func Summarize(d *CostData) *costsummary.CostSummary {
	s := costsummary.New(d.Period.Start, d.Period.End)
	for _, u := range d.Usage {
		date, _, _ := strings.Cut(u.Timestamp, "T")
		s.Add(date, u.Service, u.Cost.Amount, u.Cost.Currency)
	}
	return s
}

// DescribeError maps a fetch failure to the HTTP status and JSON body returned to callers.
func DescribeError(err error) (int, map[string]any) {
	if errors.Is(err, ErrNoUsage) {
		return http.StatusNotFound, map[string]any{"error": "No usage data found for the selected period"}
	}
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		var body struct {
			Error any `json:"error"`
		}
		if upstream.Decode(apiErr.Body, &body) == nil && body.Error != nil {
			return apiErr.StatusCode, map[string]any{"error": body.Error}
		}
		return apiErr.StatusCode, map[string]any{"error": err.Error()}
	}
	return http.StatusInternalServerError, map[string]any{"error": err.Error()}
}
