package cmdimport

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"time"

	"cost-dashboard/connectors/config"
	ccsv "cost-dashboard/connectors/csv"
	"cost-dashboard/connectors/providers"
	"cost-dashboard/domain/catalog"
	"cost-dashboard/domain/expense"
)

type Options struct {
	// Days is the lookback window ending today.
	Days int
	// DataDir receives expenses.csv.
	DataDir string
	// Sample, when positive, writes that many generated expenses instead of fetching providers.
	Sample int
	Now    time.Time
	// Fetchers replaces the providers built from the config.
	Fetchers map[string]providers.Fetcher
}

// Run fetches every configured provider, turns their daily service costs into
// attributed expenses and writes them to <data>/expenses.csv.
func Run(ctx context.Context, cfg *config.Config, opts Options) error {
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}
	if opts.Days <= 0 {
		opts.Days = cfg.Import.Days
	}
	cat := catalog.Default()
	out := filepath.Join(opts.DataDir, ccsv.ExpensesFile)

	if opts.Sample > 0 {
		seed := uint64(opts.Now.UnixNano())
		expenses := cat.Generate(rand.New(rand.NewPCG(seed, seed>>1)), opts.Now, opts.Sample)
		slog.Info("import.sample", "count", len(expenses))
		return write(out, expenses)
	}

	fetchers := opts.Fetchers
	if fetchers == nil {
		fetchers = providers.FromConfig(cfg)
	}
	if len(fetchers) == 0 {
		slog.Error("import.validation.error", "reason", "no provider configured")
		return fmt.Errorf("no provider configured - add credentials to %s", config.Path())
	}

	start := opts.Now.AddDate(0, 0, -opts.Days).Format("2006-01-02")
	end := opts.Now.Format("2006-01-02")
	slog.Info("import.start", "providers", len(fetchers), "start", start, "end", end)

	var expenses []expense.Expense
	for _, r := range providers.FetchAll(ctx, fetchers, start, end) {
		if r.Status != providers.StatusOK {
			slog.Warn("import.provider.error", "provider", r.Provider, "error", r.Error)
			continue
		}
		batch := cat.FromSummary(r.Provider, r.Summary, cfg.Attribution[r.Provider])
		slog.Info("import.provider.done", "provider", r.Provider, "expenses", len(batch), "total", r.Summary.TotalCost)
		expenses = append(expenses, batch...)
	}

	if len(expenses) == 0 {
		slog.Warn("import.no_data")
		return fmt.Errorf("no cost data fetched - check provider credentials")
	}
	return write(out, expenses)
}

func write(path string, expenses []expense.Expense) error {
	if err := ccsv.WriteExpensesCSV(path, expenses); err != nil {
		slog.Error("import.csv.write.error", "error", err)
		return fmt.Errorf("failed to write expenses CSV: %w", err)
	}
	slog.Info("import.done", "records", len(expenses), "output", path)
	return nil
}
