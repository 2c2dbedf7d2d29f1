// Package cursor serves Cursor usage. Cursor exposes no public billing API, so
// usage is a fixed payload shaped like the one the dashboard expects.
package cursor

import (
	"sort"

	"cost-dashboard/domain/costsummary"

	lo "github.com/samber/lo"
)

type ServiceUsage struct {
	Tokens int64   `json:"tokens"`
	Cost   float64 `json:"cost"`
}

type Usage struct {
	TotalTokens int64                   `json:"total_tokens"`
	TotalCost   float64                 `json:"total_cost"`
	Currency    string                  `json:"currency"`
	Services    map[string]ServiceUsage `json:"services"`
}

type UsageData struct {
	Usage     Usage                 `json:"usage"`
	TimeRange costsummary.TimeRange `json:"timeRange"`
}

// FetchUsage returns the usage for [start, end].
func FetchUsage(start, end string) *UsageData {
	return &UsageData{
		Usage: Usage{
			TotalTokens: 1_500_000,
			TotalCost:   15.00,
			Currency:    "USD",
			Services: map[string]ServiceUsage{
				"code-completion": {Tokens: 1_000_000, Cost: 10.00},
				"code-analysis":   {Tokens: 500_000, Cost: 5.00},
			},
		},
		TimeRange: costsummary.TimeRange{Start: start, End: end},
	}
}

// SummarizeUsage passes the totals and per-service usage through.
func SummarizeUsage(d *UsageData) *costsummary.CursorSummary {
	services := make(map[string]costsummary.ServiceTokens, len(d.Usage.Services))
	for name, s := range d.Usage.Services {
		services[name] = costsummary.ServiceTokens{Tokens: s.Tokens, Cost: s.Cost}
	}
	return &costsummary.CursorSummary{
		TotalTokens:    d.Usage.TotalTokens,
		TotalCost:      d.Usage.TotalCost,
		Currency:       d.Usage.Currency,
		CostsByService: services,
		TimeRange:      d.TimeRange,
	}
}

// Summarize books each service's cost on the first day of the range.
func Summarize(d *UsageData) *costsummary.CostSummary {
	s := costsummary.New(d.TimeRange.Start, d.TimeRange.End)
	names := lo.Keys(d.Usage.Services)
	sort.Strings(names)
	for _, name := range names {
		s.Add(d.TimeRange.Start, name, d.Usage.Services[name].Cost, d.Usage.Currency)
	}
	return s
}
