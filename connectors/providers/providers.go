// Package providers fetches cost summaries from every provider configured in
// config.yml, concurrently.
package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	awsc "cost-dashboard/connectors/aws"
	"cost-dashboard/connectors/azure"
	"cost-dashboard/connectors/config"
	"cost-dashboard/connectors/cursor"
	"cost-dashboard/connectors/gcp"
	"cost-dashboard/connectors/modelusage"
	"cost-dashboard/connectors/openai"
	"cost-dashboard/connectors/vercel"
	"cost-dashboard/domain/costsummary"

	lo "github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	StatusOK    = "ok"
	StatusError = "error"

	maxConcurrent = 4
)

// Fetcher returns one provider's cost summary for [start, end] (YYYY-MM-DD).
type Fetcher func(ctx context.Context, start, end string) (*costsummary.CostSummary, error)

// Result is the outcome of one provider fetch.
type Result struct {
	Provider string                   `json:"provider"`
	Status   string                   `json:"status"`
	Error    string                   `json:"error,omitempty"`
	Summary  *costsummary.CostSummary `json:"summary,omitempty"`
	Elapsed  time.Duration            `json:"-"`
}

// FromConfig returns a fetcher per provider whose credentials are configured.
func FromConfig(cfg *config.Config) map[string]Fetcher {
	out := map[string]Fetcher{}
	if cfg.AWS.Configured() {
		a := cfg.AWS
		out[costsummary.ProviderAWS] = func(ctx context.Context, start, end string) (*costsummary.CostSummary, error) {
			c, err := awsc.NewClient(ctx, a.AccessKeyID, a.SecretAccessKey, a.Region)
			if err != nil {
				return nil, err
			}
			results, err := c.FetchCosts(ctx, start, end)
			if err != nil {
				return nil, err
			}
			return awsc.Summarize(results, start, end), nil
		}
	}
	if cfg.OpenAI.Configured() {
		c := openai.NewClient(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey)
		out[costsummary.ProviderOpenAI] = func(ctx context.Context, start, end string) (*costsummary.CostSummary, error) {
			body, err := c.FetchUsage(ctx, start, end)
			if err != nil {
				return nil, err
			}
			d, err := openai.Transform(body)
			if err != nil {
				return nil, err
			}
			return openai.Summarize(d, start, end), nil
		}
	}
	if cfg.Vercel.Configured() {
		c := vercel.NewClient(cfg.Vercel.BaseURL, cfg.Vercel.Token, cfg.Vercel.TeamID)
		out[costsummary.ProviderVercel] = func(ctx context.Context, start, end string) (*costsummary.CostSummary, error) {
			d, err := c.FetchCosts(ctx, start, end)
			if err != nil {
				return nil, err
			}
			return vercel.Summarize(d), nil
		}
	}
	if cfg.Cursor.Configured() {
		out[costsummary.ProviderCursor] = func(_ context.Context, start, end string) (*costsummary.CostSummary, error) {
			return cursor.Summarize(cursor.FetchUsage(start, end)), nil
		}
	}
	for provider, m := range map[string]struct {
		key config.APIKey
		new func(baseURL, apiKey string) *modelusage.Client
	}{
		costsummary.ProviderAnthropic: {cfg.Anthropic, modelusage.NewAnthropic},
		costsummary.ProviderCohere:    {cfg.Cohere, modelusage.NewCohere},
		costsummary.ProviderGemini:    {cfg.Gemini, modelusage.NewGemini},
	} {
		if !m.key.Configured() {
			continue
		}
		c := m.new(m.key.BaseURL, m.key.APIKey)
		out[provider] = func(ctx context.Context, start, end string) (*costsummary.CostSummary, error) {
			b, err := c.FetchBilling(ctx, start, end)
			if err != nil {
				return nil, err
			}
			return modelusage.Summarize(b, start, end), nil
		}
	}
	if cfg.Azure.Configured() {
		az := cfg.Azure
		out[costsummary.ProviderAzure] = func(ctx context.Context, start, end string) (*costsummary.CostSummary, error) {
			total := costsummary.New(start, end)
			for _, sub := range az.SubscriptionIDs {
				s, err := azure.NewClient(sub, az.TenantID, az.ClientID, az.ClientSecret).FetchCosts(ctx, start, end)
				if err != nil {
					return nil, fmt.Errorf("subscription %s: %w", sub, err)
				}
				total.Merge(s)
			}
			return total, nil
		}
	}
	if cfg.GCP.Configured() {
		g := cfg.GCP
		out[costsummary.ProviderGCP] = func(ctx context.Context, start, end string) (*costsummary.CostSummary, error) {
			c, err := gcp.NewClient(ctx, g.ProjectID, g.BillingAccount, g.Dataset, g.Location, g.ServiceAccountJSON)
			if err != nil {
				return nil, err
			}
			return c.FetchCosts(ctx, start, end)
		}
	}
	return out
}

// FetchAll runs every fetcher concurrently. A failing provider does not cancel
// the others; results are sorted by provider.
func FetchAll(ctx context.Context, fetchers map[string]Fetcher, start, end string) []Result {
	names := lo.Keys(fetchers)
	sort.Strings(names)
	results := make([]Result, len(names))

	var g errgroup.Group
	g.SetLimit(maxConcurrent)
	for i, name := range names {
		g.Go(func() error {
			began := time.Now()
			slog.Info("providers.fetch.start", "provider", name, "start", start, "end", end)
			s, err := fetchers[name](ctx, start, end)
			r := Result{Provider: name, Status: StatusOK, Summary: s, Elapsed: time.Since(began)}
			if err != nil {
				r = Result{Provider: name, Status: StatusError, Error: err.Error(), Elapsed: r.Elapsed}
				slog.Warn("providers.fetch.error", "provider", name, "error", err)
			} else {
				slog.Info("providers.fetch.done", "provider", name, "total", s.TotalCost, "elapsed", r.Elapsed)
			}
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()
	return results
}
