// Package analytics reshapes flat expense lists into the aggregates the dashboard charts:
// filtered lists, totals, month-over-month deltas, category and service breakdowns,
// monthly trends, the cost allocation tree and unit economics.
//
// All functions are pure: they never mutate their input.
package analytics

import (
	"sort"
	"strings"
	"time"

	"cost-dashboard/domain/catalog"
	"cost-dashboard/domain/expense"

	lo "github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const (
	DefaultTrendMonths = 6
	DefaultDailyDays   = 14
	UnknownService     = "Unknown Service"
)

// DefaultFilters covers the six months up to now across every environment.
func DefaultFilters(now time.Time) expense.FilterState {
	return expense.FilterState{
		Start:        now.AddDate(0, -6, 0),
		End:          now,
		Environments: append([]expense.Environment(nil), expense.Environments...),
	}
}

// FilterExpenses keeps the expenses matching every constraint of f.
func FilterExpenses(expenses []expense.Expense, f expense.FilterState) []expense.Expense {
	query := strings.ToLower(f.SearchQuery)
	return lo.Filter(expenses, func(e expense.Expense, _ int) bool {
		return inRange(e.Timestamp, f.Start, f.End) &&
			allowed(f.Categories, e.CategoryID) &&
			allowed(f.Teams, e.TeamID) &&
			allowed(f.Projects, e.ProjectID) &&
			allowed(f.Environments, e.Environment) &&
			matchesSearch(e, query)
	})
}

func inRange(ts, start, end time.Time) bool {
	if !start.IsZero() && ts.Before(start) {
		return false
	}
	if !end.IsZero() && ts.After(end) {
		return false
	}
	return true
}

func allowed[T comparable](set []T, v T) bool {
	return len(set) == 0 || lo.Contains(set, v)
}

func matchesSearch(e expense.Expense, query string) bool {
	if query == "" {
		return true
	}
	fields := append([]string{e.ServiceName, e.CategoryName, e.TeamName, e.ProjectName}, e.Tags...)
	return lo.SomeBy(fields, func(s string) bool {
		return strings.Contains(strings.ToLower(s), query)
	})
}

// TotalExpenses sums the expenses inside [start, end]. A zero bound is open.
func TotalExpenses(expenses []expense.Expense, start, end time.Time) float64 {
	total := decimal.Zero
	for _, e := range expenses {
		if inRange(e.Timestamp, start, end) {
			total = total.Add(decimal.NewFromFloat(e.Amount))
		}
	}
	return total.InexactFloat64()
}

// MonthOverMonth compares the current month to date with the previous calendar month.
// The change is 0 when the previous month had no spend.
func MonthOverMonth(expenses []expense.Expense, now time.Time) expense.MoMChange {
	currentStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	previousStart := currentStart.AddDate(0, -1, 0)
	previousEnd := currentStart.Add(-time.Nanosecond)

	current := TotalExpenses(expenses, currentStart, now)
	previous := TotalExpenses(expenses, previousStart, previousEnd)

	return expense.MoMChange{
		CurrentMonth:     round(current, 2),
		PreviousMonth:    round(previous, 2),
		PercentageChange: round(PercentChange(previous, current), 2),
	}
}

// PercentChange is (curr-prev)/prev*100, or 0 when prev is 0.
func PercentChange(prev, curr float64) float64 {
	if prev == 0 {
		return 0
	}
	return (curr - prev) / prev * 100
}

// ExpensesByCategory sums spend per category. Every catalog category is present
// (possibly at 0); categories only seen in the data are appended. Sorted by amount, descending.
func ExpensesByCategory(expenses []expense.Expense, categories []expense.Category) []expense.ByCategory {
	sums := map[string]decimal.Decimal{}
	order := make([]expense.Category, 0, len(categories))
	for _, c := range categories {
		sums[c.ID] = decimal.Zero
		order = append(order, c)
	}
	for _, e := range expenses {
		if _, ok := sums[e.CategoryID]; !ok {
			order = append(order, expense.Category{ID: e.CategoryID, Name: e.CategoryName})
		}
		sums[e.CategoryID] = sums[e.CategoryID].Add(decimal.NewFromFloat(e.Amount))
	}

	out := lo.Map(order, func(c expense.Category, _ int) expense.ByCategory {
		return expense.ByCategory{
			CategoryID:   c.ID,
			CategoryName: c.Name,
			Amount:       sums[c.ID].Round(2).InexactFloat64(),
			Color:        c.Color,
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })
	return out
}

// ExpensesByService sums spend per service, optionally restricted to one category.
// Names come from the catalog, then from the expense itself. Sorted by amount, descending.
func ExpensesByService(expenses []expense.Expense, categoryID string, services []expense.Service) []expense.ByService {
	sums := map[string]decimal.Decimal{}
	names := map[string]string{}
	var order []string
	for _, e := range expenses {
		if categoryID != "" && e.CategoryID != categoryID {
			continue
		}
		if _, ok := sums[e.ServiceID]; !ok {
			order = append(order, e.ServiceID)
			names[e.ServiceID] = e.ServiceName
		}
		sums[e.ServiceID] = sums[e.ServiceID].Add(decimal.NewFromFloat(e.Amount))
	}

	out := lo.Map(order, func(id string, _ int) expense.ByService {
		name := names[id]
		if svc, ok := lo.Find(services, func(s expense.Service) bool { return s.ID == id }); ok {
			name = svc.Name
		}
		if name == "" {
			name = UnknownService
		}
		return expense.ByService{ServiceID: id, ServiceName: name, Amount: sums[id].Round(2).InexactFloat64()}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })
	return out
}

// TrendData buckets spend into the last months calendar months, oldest first,
// ending with the month containing now. Expenses outside the window are ignored.
func TrendData(expenses []expense.Expense, now time.Time, months int) []expense.MonthlyExpense {
	if months <= 0 {
		months = DefaultTrendMonths
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(months - 1), 0)

	totals := make([]decimal.Decimal, months)
	byCategory := make([]map[string]decimal.Decimal, months)
	for i := range byCategory {
		byCategory[i] = map[string]decimal.Decimal{}
	}

	for _, e := range expenses {
		ts := e.Timestamp.In(now.Location())
		idx := (ts.Year()-first.Year())*12 + int(ts.Month()) - int(first.Month())
		if idx < 0 || idx >= months || ts.After(now) {
			continue
		}
		amount := decimal.NewFromFloat(e.Amount)
		totals[idx] = totals[idx].Add(amount)
		byCategory[idx][e.CategoryID] = byCategory[idx][e.CategoryID].Add(amount)
	}

	out := make([]expense.MonthlyExpense, months)
	for i := range out {
		out[i] = expense.MonthlyExpense{
			Month: first.AddDate(0, i, 0).Format("Jan 2006"),
			Total: totals[i].Round(2).InexactFloat64(),
			ByCategory: lo.MapValues(byCategory[i], func(d decimal.Decimal, _ string) float64 {
				return d.Round(2).InexactFloat64()
			}),
		}
	}
	return out
}

// DailySpend returns zero-filled per-day totals for the days ending today, oldest first.
func DailySpend(expenses []expense.Expense, now time.Time, days int) []expense.DailySpend {
	if days <= 0 {
		days = DefaultDailyDays
	}
	sums := make(map[string]decimal.Decimal, days)
	keys := make([]string, 0, days)
	for i := days - 1; i >= 0; i-- {
		key := now.AddDate(0, 0, -i).UTC().Format("2006-01-02")
		sums[key] = decimal.Zero
		keys = append(keys, key)
	}
	for _, e := range expenses {
		key := e.Timestamp.UTC().Format("2006-01-02")
		if cur, ok := sums[key]; ok {
			sums[key] = cur.Add(decimal.NewFromFloat(e.Amount))
		}
	}
	return lo.Map(keys, func(k string, _ int) expense.DailySpend {
		return expense.DailySpend{Date: k, Amount: sums[k].Round(2).InexactFloat64()}
	})
}

// UnitEconomics returns, per usage metric type, the spend of the expenses reporting that
// metric divided by the total reported usage. Metrics with no usage cost 0 per unit.
func UnitEconomics(expenses []expense.Expense) map[string]float64 {
	type totals struct{ cost, usage decimal.Decimal }
	byType := map[string]*totals{}
	for _, e := range expenses {
		for _, m := range e.UsageMetrics {
			t, ok := byType[m.Type]
			if !ok {
				t = &totals{}
				byType[m.Type] = t
			}
			t.cost = t.cost.Add(decimal.NewFromFloat(e.Amount))
			t.usage = t.usage.Add(decimal.NewFromFloat(m.Value))
		}
	}
	return lo.MapValues(byType, func(t *totals, _ string) float64 {
		if !t.usage.IsPositive() {
			return 0
		}
		return t.cost.DivRound(t.usage, 6).InexactFloat64()
	})
}

// ForService restricts expenses to a single service id; an empty id keeps everything.
// A provider id also matches its imported service lines ("aws" matches "aws:amazon-ec2").
func ForService(expenses []expense.Expense, serviceID string) []expense.Expense {
	if serviceID == "" {
		return expenses
	}
	return lo.Filter(expenses, func(e expense.Expense, _ int) bool {
		return e.ServiceID == serviceID || strings.HasPrefix(e.ServiceID, serviceID+":")
	})
}

// Dashboard bundles the aggregates of one filtered expense set.
type Dashboard struct {
	Total         float64              `json:"total"`
	MoM           expense.MoMChange    `json:"mom"`
	Daily         []expense.DailySpend `json:"daily"`
	Categories    []expense.ByCategory `json:"categories"`
	Services      []expense.ByService  `json:"services"`
	UnitEconomics map[string]float64   `json:"unitEconomics"`
	Count         int                  `json:"count"`
}

// Overview computes the summary cards for the filtered expenses.
func Overview(expenses []expense.Expense, cat catalog.Catalog, now time.Time) Dashboard {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(decimal.NewFromFloat(e.Amount))
	}
	return Dashboard{
		Total:         total.Round(2).InexactFloat64(),
		MoM:           MonthOverMonth(expenses, now),
		Daily:         DailySpend(expenses, now, DefaultDailyDays),
		Categories:    ExpensesByCategory(expenses, cat.Categories),
		Services:      ExpensesByService(expenses, "", cat.Services),
		UnitEconomics: UnitEconomics(expenses),
		Count:         len(expenses),
	}
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
