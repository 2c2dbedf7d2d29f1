package azure

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cost-dashboard/connectors/upstream"
	"cost-dashboard/domain/costsummary"

	"golang.org/x/oauth2/clientcredentials"
)

const (
	DefaultLoginURL      = "https://login.microsoftonline.com"
	DefaultManagementURL = "https://management.azure.com"
)

// Client handles Azure Cost Management API requests for one subscription
type Client struct {
	subscriptionID string
	api            *upstream.Client
}

type options struct {
	loginURL      string
	managementURL string
}

type Option func(*options)

// WithEndpoints overrides the Azure AD and management endpoints.
func WithEndpoints(loginURL, managementURL string) Option {
	return func(o *options) {
		o.loginURL = strings.TrimRight(loginURL, "/")
		o.managementURL = managementURL
	}
}

// NewClient creates a new Azure Cost Management API client authenticated with a
// service principal (client credentials grant).
func NewClient(subscriptionID, tenantID, clientID, clientSecret string, opts ...Option) *Client {
	o := options{loginURL: DefaultLoginURL, managementURL: DefaultManagementURL}
	for _, opt := range opts {
		opt(&o)
	}
	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", o.loginURL, tenantID),
		Scopes:       []string{"https://management.azure.com/.default"},
	}
	hc := cc.Client(context.Background())
	hc.Timeout = upstream.DefaultTimeout
	return &Client{subscriptionID: subscriptionID, api: upstream.New(o.managementURL, hc)}
}

// costQueryRequest represents the request body for Azure Cost Management Query API
type costQueryRequest struct {
	Type       string         `json:"type"`
	Timeframe  string         `json:"timeframe"`
	TimePeriod *timePeriod    `json:"timePeriod,omitempty"`
	Dataset    datasetRequest `json:"dataset"`
}

type timePeriod struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type datasetRequest struct {
	Granularity string            `json:"granularity"`
	Aggregation map[string]aggDef `json:"aggregation"`
	Grouping    []groupingDef     `json:"grouping"`
}

type aggDef struct {
	Name     string `json:"name"`
	Function string `json:"function"`
}

type groupingDef struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// costQueryResponse represents the response from Azure Cost Management Query API
type costQueryResponse struct {
	Properties struct {
		Columns []columnDef `json:"columns"`
		Rows    [][]any     `json:"rows"`
	} `json:"properties"`
}

type columnDef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// FetchCosts retrieves daily actual cost grouped by service for [start, end] (YYYY-MM-DD).
func (c *Client) FetchCosts(ctx context.Context, start, end string) (*costsummary.CostSummary, error) {
	reqBody := costQueryRequest{
		Type:       "ActualCost",
		Timeframe:  "Custom",
		TimePeriod: &timePeriod{From: start, To: end},
		Dataset: datasetRequest{
			Granularity: "Daily",
			Aggregation: map[string]aggDef{
				"totalCost": {Name: "Cost", Function: "Sum"},
			},
			Grouping: []groupingDef{
				{Type: "Dimension", Name: "ServiceName"},
			},
		},
	}

	path := fmt.Sprintf("/subscriptions/%s/providers/Microsoft.CostManagement/query?api-version=2023-03-01", c.subscriptionID)
	body, err := c.api.PostJSON(ctx, path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch azure costs: %w", err)
	}

	var queryResp costQueryResponse
	if err := upstream.Decode(body, &queryResp); err != nil {
		return nil, err
	}
	return parseResponse(&queryResp, start, end)
}

// parseResponse converts the query rows to a cost summary
func parseResponse(resp *costQueryResponse, start, end string) (*costsummary.CostSummary, error) {
	costIdx, currencyIdx, serviceIdx, dateIdx := -1, -1, -1, -1
	for i, col := range resp.Properties.Columns {
		switch col.Name {
		case "Cost", "PreTaxCost":
			costIdx = i
		case "Currency":
			currencyIdx = i
		case "ServiceName":
			serviceIdx = i
		case "UsageDate", "BillingMonth":
			dateIdx = i
		}
	}
	if costIdx == -1 || serviceIdx == -1 || dateIdx == -1 {
		return nil, fmt.Errorf("missing required columns in response")
	}

	s := costsummary.New(start, end)
	for _, row := range resp.Properties.Rows {
		if len(row) <= costIdx || len(row) <= serviceIdx || len(row) <= dateIdx {
			continue
		}
		cost, ok := row[costIdx].(float64)
		if !ok {
			continue
		}
		service, ok := row[serviceIdx].(string)
		if !ok {
			continue
		}
		date, ok := parseDate(row[dateIdx])
		if !ok {
			continue
		}
		currency := "USD"
		if currencyIdx >= 0 && len(row) > currencyIdx {
			if curr, ok := row[currencyIdx].(string); ok && curr != "" {
				currency = curr
			}
		}
		s.Add(date.Format("2006-01-02"), service, cost, currency)
	}
	return s, nil
}

// parseDate accepts YYYYMMDD as a number or string, or YYYY-MM-DD.
func parseDate(v any) (time.Time, bool) {
	var str string
	switch d := v.(type) {
	case float64:
		str = fmt.Sprintf("%.0f", d)
	case string:
		str = d
	default:
		return time.Time{}, false
	}
	for _, layout := range []string{"20060102", "2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, str); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
