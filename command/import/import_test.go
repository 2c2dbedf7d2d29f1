package cmdimport

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cost-dashboard/connectors/config"
	ccsv "cost-dashboard/connectors/csv"
	"cost-dashboard/connectors/providers"
	"cost-dashboard/domain/catalog"
	"cost-dashboard/domain/costsummary"
	"cost-dashboard/domain/expense"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func TestRunWritesAttributedExpenses(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Attribution = map[string]catalog.Attribution{
		"openai": {TeamID: "team-2", ProjectID: "proj-2", Environment: expense.EnvStaging},
	}

	var gotStart, gotEnd string
	fetchers := map[string]providers.Fetcher{
		"openai": func(_ context.Context, start, end string) (*costsummary.CostSummary, error) {
			gotStart, gotEnd = start, end
			s := costsummary.New(start, end)
			s.Add("2024-03-02", "gpt-4", 3, "USD")
			s.Add("2024-03-01", "gpt-4", 2, "USD")
			return s, nil
		},
		"vercel": func(context.Context, string, string) (*costsummary.CostSummary, error) {
			return nil, errors.New("unauthorized")
		},
	}

	require.NoError(t, Run(context.Background(), cfg, Options{Days: 7, DataDir: dir, Now: now, Fetchers: fetchers}))
	assert.Equal(t, "2024-03-03", gotStart)
	assert.Equal(t, "2024-03-10", gotEnd)

	out, err := ccsv.ReadExpensesCSV(filepath.Join(dir, ccsv.ExpensesFile))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "openai-2024-03-01-0", out[0].ID)
	assert.Equal(t, "Data Science", out[0].TeamName)
	assert.Equal(t, "AI/ML Services", out[0].CategoryName)
	assert.Equal(t, expense.EnvStaging, out[0].Environment)
	assert.Equal(t, []string{"openai", "gpt-4"}, out[0].Tags)
}

func TestRunNoProviders(t *testing.T) {
	err := Run(context.Background(), config.Default(), Options{DataDir: t.TempDir(), Now: now})
	assert.ErrorContains(t, err, "no provider configured")
}

func TestRunAllProvidersFail(t *testing.T) {
	fetchers := map[string]providers.Fetcher{
		"aws": func(context.Context, string, string) (*costsummary.CostSummary, error) { return nil, errors.New("denied") },
	}
	err := Run(context.Background(), config.Default(), Options{DataDir: t.TempDir(), Now: now, Fetchers: fetchers})
	assert.ErrorContains(t, err, "no cost data fetched")
}

func TestRunSample(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Run(context.Background(), config.Default(), Options{DataDir: dir, Sample: 25, Now: now}))
	out, err := ccsv.ReadExpensesCSV(filepath.Join(dir, ccsv.ExpensesFile))
	require.NoError(t, err)
	assert.Len(t, out, 25)
	for _, e := range out {
		assert.False(t, e.Timestamp.After(now))
		assert.Positive(t, e.Amount)
	}
}
