package catalog

import (
	"fmt"
	"math/rand/v2"
	"time"

	"cost-dashboard/domain/expense"

	"github.com/shopspring/decimal"
)

var sampleTags = []string{
	"production", "development", "testing", "internal", "external",
	"customer-facing", "backend", "frontend", "data", "api", "auth",
	"storage", "compute", "serverless", "managed-service", "legacy",
}

var sampleMetricTypes = []string{
	"api-calls", "storage-gb", "compute-hours", "requests",
	"bandwidth-gb", "transactions", "users", "data-processed-gb",
}

// SampleExpenses is the fixed data set served when no imported expenses exist.
func SampleExpenses() []expense.Expense {
	ts := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	return []expense.Expense{
		{
			ID: "1", Timestamp: ts, Amount: 2500,
			ServiceID: "aws", ServiceName: "AWS", CategoryID: "cat-1", CategoryName: "Cloud Infrastructure",
			TeamID: "team-1", TeamName: "Engineering", ProjectID: "proj-1", ProjectName: "Core Platform",
			Environment: expense.EnvProd, Tags: []string{"production", "compute", "storage"},
			UsageMetrics: []expense.UsageMetric{{Type: "compute-hours", Value: 720, Unit: "hours"}, {Type: "storage-gb", Value: 500, Unit: "GB"}},
		},
		{
			ID: "2", Timestamp: ts, Amount: 1800,
			ServiceID: "gcp", ServiceName: "Google Cloud", CategoryID: "cat-1", CategoryName: "Cloud Infrastructure",
			TeamID: "team-1", TeamName: "Engineering", ProjectID: "proj-1", ProjectName: "Core Platform",
			Environment: expense.EnvProd, Tags: []string{"production", "compute", "storage"},
			UsageMetrics: []expense.UsageMetric{{Type: "compute-hours", Value: 600, Unit: "hours"}, {Type: "storage-gb", Value: 300, Unit: "GB"}},
		},
		{
			ID: "3", Timestamp: ts, Amount: 1200,
			ServiceID: "anthropic", ServiceName: "Anthropic", CategoryID: "cat-2", CategoryName: "AI/ML Services",
			TeamID: "team-2", TeamName: "Data Science", ProjectID: "proj-2", ProjectName: "AI Services",
			Environment: expense.EnvProd, Tags: []string{"production", "ai", "ml"},
			UsageMetrics: []expense.UsageMetric{{Type: "api-calls", Value: 50000, Unit: "calls"}, {Type: "tokens", Value: 1000000, Unit: "tokens"}},
		},
		{
			ID: "4", Timestamp: ts, Amount: 1500,
			ServiceID: "openai", ServiceName: "OpenAI", CategoryID: "cat-2", CategoryName: "AI/ML Services",
			TeamID: "team-2", TeamName: "Data Science", ProjectID: "proj-2", ProjectName: "AI Services",
			Environment: expense.EnvProd, Tags: []string{"production", "ai", "ml"},
			UsageMetrics: []expense.UsageMetric{{Type: "api-calls", Value: 75000, Unit: "calls"}, {Type: "tokens", Value: 1500000, Unit: "tokens"}},
		},
		{
			ID: "5", Timestamp: ts, Amount: 800,
			ServiceID: "datadog", ServiceName: "Datadog", CategoryID: "cat-3", CategoryName: "Observability",
			TeamID: "team-3", TeamName: "Platform", ProjectID: "proj-3", ProjectName: "Infrastructure",
			Environment: expense.EnvProd, Tags: []string{"production", "monitoring", "observability"},
			UsageMetrics: []expense.UsageMetric{{Type: "hosts-monitored", Value: 50, Unit: "hosts"}, {Type: "custom-metrics", Value: 1000, Unit: "metrics"}},
		},
	}
}

// Generate produces count random expenses spread over the 180 days before now.
// Production spend is weighted 3x and staging 1.5x.
func (c Catalog) Generate(r *rand.Rand, now time.Time, count int) []expense.Expense {
	out := make([]expense.Expense, 0, count)
	for i := 0; i < count; i++ {
		ts := now.AddDate(0, 0, -between(r, 0, 180))
		svc := c.Services[r.IntN(len(c.Services))]
		cat, _ := c.Category(svc.CategoryID)
		team := c.Teams[r.IntN(len(c.Teams))]
		projects := c.TeamProjects(team.ID)
		proj := projects[r.IntN(len(projects))]
		env := expense.Environments[r.IntN(len(expense.Environments))]

		multiplier := 1.0
		switch env {
		case expense.EnvProd:
			multiplier = 3
		case expense.EnvStaging:
			multiplier = 1.5
		}
		amount := decimal.NewFromInt(int64(between(r, 100, 1000))).
			Mul(decimal.NewFromFloat(multiplier)).
			Round(2).
			InexactFloat64()

		out = append(out, expense.Expense{
			ID:           fmt.Sprintf("expense-%d", i),
			Timestamp:    ts,
			Amount:       amount,
			ServiceID:    svc.ID,
			ServiceName:  svc.Name,
			CategoryID:   cat.ID,
			CategoryName: cat.Name,
			TeamID:       team.ID,
			TeamName:     team.Name,
			ProjectID:    proj.ID,
			ProjectName:  proj.Name,
			Environment:  env,
			Tags:         pick(r, sampleTags, between(r, 1, 4)),
			UsageMetrics: []expense.UsageMetric{{
				Type:  sampleMetricTypes[r.IntN(len(sampleMetricTypes))],
				Value: float64(between(r, 10, 10000)),
			}},
		})
	}
	return out
}

func between(r *rand.Rand, lo, hi int) int {
	return lo + r.IntN(hi-lo+1)
}

func pick(r *rand.Rand, items []string, n int) []string {
	shuffled := append([]string(nil), items...)
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:n]
}
