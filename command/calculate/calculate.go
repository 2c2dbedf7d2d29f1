package calculate

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"cost-dashboard/analytics"
	ccsv "cost-dashboard/connectors/csv"
	"cost-dashboard/domain/catalog"
)

type Options struct {
	DataDir string
	Months  int
	Now     time.Time
}

// Run reads <data>/expenses.csv and writes the aggregated spend CSVs served by the web command:
// monthly trend, per service, per category and the flattened allocation tree.
func Run(opts Options) error {
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}
	if opts.Months <= 0 {
		opts.Months = analytics.DefaultTrendMonths
	}
	base := opts.DataDir

	expenses, err := ccsv.ReadExpensesCSV(filepath.Join(base, ccsv.ExpensesFile))
	if err != nil {
		return fmt.Errorf("failed to read expenses: %w", err)
	}
	slog.Info("calculate.start", "expenses", len(expenses), "months", opts.Months)

	cat := catalog.Default()
	steps := []struct {
		file  string
		write func(path string) error
	}{
		{ccsv.MonthlyFile, func(p string) error {
			return ccsv.WriteMonthlyCSV(p, analytics.TrendData(expenses, opts.Now, opts.Months))
		}},
		{ccsv.ServicesFile, func(p string) error {
			return ccsv.WriteServicesCSV(p, analytics.ExpensesByService(expenses, "", cat.Services))
		}},
		{ccsv.CategoriesFile, func(p string) error {
			return ccsv.WriteCategoriesCSV(p, analytics.ExpensesByCategory(expenses, cat.Categories))
		}},
		{ccsv.AllocationFile, func(p string) error {
			return ccsv.WriteAllocationCSV(p, analytics.FlattenAllocation(analytics.CostAllocation(expenses)))
		}},
	}
	for _, s := range steps {
		path := filepath.Join(base, s.file)
		if err := s.write(path); err != nil {
			slog.Error("calculate.write.error", "path", path, "error", err)
			return fmt.Errorf("failed to write %s: %w", s.file, err)
		}
	}

	slog.Info("calculate.done", "count", len(expenses), "dir", base)
	return nil
}
