package gcp

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"cost-dashboard/connectors/upstream"
	"cost-dashboard/domain/costsummary"

	"golang.org/x/oauth2/google"
)

const (
	DefaultBaseURL = "https://bigquery.googleapis.com/bigquery/v2"
	bigQueryScope  = "https://www.googleapis.com/auth/bigquery.readonly"
)

// Client queries the Cloud Billing export in BigQuery
type Client struct {
	projectID      string
	billingAccount string
	dataset        string
	location       string
	api            *upstream.Client
}

type options struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*options)

// WithBaseURL overrides the BigQuery REST endpoint.
func WithBaseURL(u string) Option { return func(o *options) { o.baseURL = u } }

// WithHTTPClient uses hc as-is instead of building an authenticated client.
func WithHTTPClient(hc *http.Client) Option { return func(o *options) { o.httpClient = hc } }

// NewClient creates a BigQuery billing export client. Credentials come from the
// service account JSON when given, otherwise from Application Default Credentials.
func NewClient(ctx context.Context, projectID, billingAccount, dataset, location, serviceAccountJSON string, opts ...Option) (*Client, error) {
	o := options{baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		var err error
		if serviceAccountJSON != "" {
			cfg, jerr := google.JWTConfigFromJSON([]byte(serviceAccountJSON), bigQueryScope)
			if jerr != nil {
				return nil, fmt.Errorf("failed to parse service account JSON: %w", jerr)
			}
			o.httpClient = cfg.Client(ctx)
		} else if o.httpClient, err = google.DefaultClient(ctx, bigQueryScope); err != nil {
			return nil, fmt.Errorf("failed to find default credentials: %w", err)
		}
		o.httpClient.Timeout = upstream.DefaultTimeout
	}
	if dataset == "" {
		dataset = "billing_export"
	}
	return &Client{
		projectID:      projectID,
		billingAccount: billingAccount,
		dataset:        dataset,
		location:       location,
		api:            upstream.New(o.baseURL, o.httpClient),
	}, nil
}

// bigQueryRequest represents a BigQuery query request
type bigQueryRequest struct {
	Query           string           `json:"query"`
	UseLegacySQL    bool             `json:"useLegacySql"`
	MaxResults      int              `json:"maxResults,omitempty"`
	TimeoutMs       int              `json:"timeoutMs,omitempty"`
	Location        string           `json:"location,omitempty"`
	ParameterMode   string           `json:"parameterMode"`
	QueryParameters []queryParameter `json:"queryParameters"`
}

type queryParameter struct {
	Name           string         `json:"name"`
	ParameterType  parameterType  `json:"parameterType"`
	ParameterValue parameterValue `json:"parameterValue"`
}

type parameterType struct {
	Type string `json:"type"`
}

type parameterValue struct {
	Value string `json:"value"`
}

func param(name, typ, value string) queryParameter {
	return queryParameter{Name: name, ParameterType: parameterType{Type: typ}, ParameterValue: parameterValue{Value: value}}
}

// bigQueryResponse represents a BigQuery query response
type bigQueryResponse struct {
	Schema struct {
		Fields []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"fields"`
	} `json:"schema"`
	Rows []struct {
		F []struct {
			V any `json:"v"`
		} `json:"f"`
	} `json:"rows"`
	JobComplete bool `json:"jobComplete"`
}

func (c *Client) query() string {
	return fmt.Sprintf(`
		SELECT
			FORMAT_DATE('%%Y-%%m-%%d', DATE(usage_start_time)) AS day,
			service.description AS service_name,
			SUM(cost) AS total_cost,
			currency
		FROM
			`+"`%s.%s.gcp_billing_export_v1_*`"+`
		WHERE
			billing_account_id = @account
			AND DATE(usage_start_time) BETWEEN @start AND @end
		GROUP BY
			day, service_name, currency
		ORDER BY
			day, service_name
	`, c.projectID, c.dataset)
}

// FetchCosts retrieves daily cost grouped by service for [start, end] (YYYY-MM-DD).
func (c *Client) FetchCosts(ctx context.Context, start, end string) (*costsummary.CostSummary, error) {
	reqBody := bigQueryRequest{
		Query:           c.query(),
		UseLegacySQL:    false,
		MaxResults:      10000,
		TimeoutMs:       30000,
		Location:        c.location,
		ParameterMode:   "NAMED",
		QueryParameters: []queryParameter{
			param("account", "STRING", c.billingAccount),
			param("start", "DATE", start),
			param("end", "DATE", end),
		},
	}

	body, err := c.api.PostJSON(ctx, fmt.Sprintf("/projects/%s/queries", c.projectID), reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gcp costs: %w", err)
	}

	var queryResp bigQueryResponse
	if err := upstream.Decode(body, &queryResp); err != nil {
		return nil, err
	}
	return parseResponse(&queryResp, start, end)
}

// parseResponse converts BigQuery rows to a cost summary
func parseResponse(resp *bigQueryResponse, start, end string) (*costsummary.CostSummary, error) {
	dayIdx, serviceIdx, costIdx, currencyIdx := -1, -1, -1, -1
	for i, field := range resp.Schema.Fields {
		switch field.Name {
		case "day":
			dayIdx = i
		case "service_name":
			serviceIdx = i
		case "total_cost":
			costIdx = i
		case "currency":
			currencyIdx = i
		}
	}
	if dayIdx == -1 || serviceIdx == -1 || costIdx == -1 {
		return nil, fmt.Errorf("missing required columns in response")
	}

	s := costsummary.New(start, end)
	for _, row := range resp.Rows {
		if len(row.F) <= dayIdx || len(row.F) <= serviceIdx || len(row.F) <= costIdx {
			continue
		}
		day, ok := row.F[dayIdx].V.(string)
		if !ok {
			continue
		}
		service, ok := row.F[serviceIdx].V.(string)
		if !ok {
			continue
		}
		// BigQuery REST returns numbers as strings
		var cost float64
		switch v := row.F[costIdx].V.(type) {
		case float64:
			cost = v
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			cost = f
		default:
			continue
		}
		currency := "USD"
		if currencyIdx >= 0 && len(row.F) > currencyIdx {
			if curr, ok := row.F[currencyIdx].V.(string); ok && curr != "" {
				currency = curr
			}
		}
		s.Add(day, service, cost, currency)
	}
	return s, nil
}
