package analytics

import (
	"math/rand/v2"
	"testing"
	"time"

	"cost-dashboard/domain/catalog"
	"cost-dashboard/domain/costsummary"
	"cost-dashboard/domain/expense"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFilterExpenses(t *testing.T) {
	sample := catalog.SampleExpenses()

	tests := []struct {
		name    string
		filters expense.FilterState
		want    []string
	}{
		{name: "no constraints", filters: expense.FilterState{}, want: []string{"1", "2", "3", "4", "5"}},
		{name: "category", filters: expense.FilterState{Categories: []string{"cat-2"}}, want: []string{"3", "4"}},
		{name: "team and project", filters: expense.FilterState{Teams: []string{"team-1"}, Projects: []string{"proj-1"}}, want: []string{"1", "2"}},
		{name: "environment excludes", filters: expense.FilterState{Environments: []expense.Environment{expense.EnvDev}}, want: []string{}},
		{name: "search is case insensitive", filters: expense.FilterState{SearchQuery: "CLOUD"}, want: []string{"1", "2"}},
		{name: "search matches tags", filters: expense.FilterState{SearchQuery: "monitoring"}, want: []string{"5"}},
		{name: "range inclusive", filters: expense.FilterState{Start: day(2024, 3, 1), End: day(2024, 3, 1)}, want: []string{"1", "2", "3", "4", "5"}},
		{name: "range excludes", filters: expense.FilterState{Start: day(2024, 3, 2), End: day(2024, 4, 1)}, want: []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterExpenses(sample, tc.filters)
			ids := make([]string, 0, len(got))
			for _, e := range got {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
	assert.Len(t, sample, 5, "input must not be mutated")
}

func TestDefaultFilters(t *testing.T) {
	now := day(2024, 9, 15)
	f := DefaultFilters(now)
	assert.Equal(t, day(2024, 3, 15), f.Start)
	assert.Equal(t, now, f.End)
	assert.Equal(t, expense.Environments, f.Environments)
	assert.Empty(t, f.Categories)
	assert.Empty(t, f.SearchQuery)
}

func TestTotalExpenses(t *testing.T) {
	sample := catalog.SampleExpenses()
	assert.InDelta(t, 7800.0, TotalExpenses(sample, day(2024, 3, 1), day(2024, 3, 31)), 1e-9)
	assert.Zero(t, TotalExpenses(sample, day(2024, 4, 1), day(2024, 4, 30)))
}

func TestMonthOverMonth(t *testing.T) {
	sample := catalog.SampleExpenses()
	sample = append(sample, expense.Expense{ID: "6", Timestamp: day(2024, 4, 10), Amount: 100})

	got := MonthOverMonth(sample, day(2024, 4, 15))
	assert.Equal(t, 100.0, got.CurrentMonth)
	assert.Equal(t, 7800.0, got.PreviousMonth)
	assert.Equal(t, -98.72, got.PercentageChange)

	t.Run("no previous spend", func(t *testing.T) {
		got := MonthOverMonth(sample, day(2024, 3, 20))
		assert.Equal(t, 7800.0, got.CurrentMonth)
		assert.Zero(t, got.PreviousMonth)
		assert.Zero(t, got.PercentageChange)
	})

	t.Run("future expenses ignored", func(t *testing.T) {
		got := MonthOverMonth(sample, day(2024, 4, 5))
		assert.Zero(t, got.CurrentMonth)
		assert.Equal(t, -100.0, got.PercentageChange)
	})
}

func TestPercentChange(t *testing.T) {
	assert.Equal(t, 50.0, PercentChange(100, 150))
	assert.Equal(t, -25.0, PercentChange(200, 150))
	assert.Zero(t, PercentChange(0, 150))
}

func TestExpensesByCategory(t *testing.T) {
	cat := catalog.Default()

	t.Run("empty input keeps every category", func(t *testing.T) {
		got := ExpensesByCategory(nil, cat.Categories)
		require.Len(t, got, 3)
		for i, c := range cat.Categories {
			assert.Equal(t, c.ID, got[i].CategoryID)
			assert.Zero(t, got[i].Amount)
		}
	})

	t.Run("sorted descending with unknown appended", func(t *testing.T) {
		data := append(catalog.SampleExpenses(), expense.Expense{ID: "x", CategoryID: "cat-9", CategoryName: "Misc", Amount: 10})
		got := ExpensesByCategory(data, cat.Categories)
		require.Len(t, got, 4)
		assert.Equal(t, []string{"cat-1", "cat-2", "cat-3", "cat-9"}, []string{got[0].CategoryID, got[1].CategoryID, got[2].CategoryID, got[3].CategoryID})
		assert.Equal(t, 4300.0, got[0].Amount)
		assert.Equal(t, "#3B82F6", got[0].Color)
		assert.Equal(t, "Misc", got[3].CategoryName)
	})
}

func TestExpensesByService(t *testing.T) {
	cat := catalog.Default()
	data := catalog.SampleExpenses()

	got := ExpensesByService(data, "cat-2", cat.Services)
	require.Len(t, got, 2)
	assert.Equal(t, expense.ByService{ServiceID: "openai", ServiceName: "OpenAI", Amount: 1500}, got[0])
	assert.Equal(t, expense.ByService{ServiceID: "anthropic", ServiceName: "Anthropic", Amount: 1200}, got[1])

	all := ExpensesByService(append(data, expense.Expense{ServiceID: "mystery", Amount: 1}), "", cat.Services)
	require.Len(t, all, 6)
	assert.Equal(t, "aws", all[0].ServiceID)
	assert.Equal(t, UnknownService, all[5].ServiceName)
}

func TestTrendData(t *testing.T) {
	data := append(catalog.SampleExpenses(),
		expense.Expense{ID: "a", Timestamp: day(2024, 4, 10), Amount: 100, CategoryID: "cat-1"},
		expense.Expense{ID: "b", Timestamp: day(2023, 12, 31), Amount: 999, CategoryID: "cat-1"},
	)
	got := TrendData(data, day(2024, 4, 15), 3)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Feb 2024", "Mar 2024", "Apr 2024"}, []string{got[0].Month, got[1].Month, got[2].Month})
	assert.Zero(t, got[0].Total)
	assert.Equal(t, 7800.0, got[1].Total)
	assert.Equal(t, 4300.0, got[1].ByCategory["cat-1"])
	assert.Equal(t, 100.0, got[2].Total)

	assert.Len(t, TrendData(nil, day(2024, 4, 15), 0), DefaultTrendMonths)
}

func TestDailySpend(t *testing.T) {
	got := DailySpend(catalog.SampleExpenses(), day(2024, 3, 5), 7)
	require.Len(t, got, 7)
	assert.Equal(t, "2024-02-28", got[0].Date)
	assert.Equal(t, "2024-03-05", got[6].Date)
	assert.Equal(t, expense.DailySpend{Date: "2024-03-01", Amount: 7800}, got[2])
	assert.Zero(t, got[3].Amount)
}

func TestUnitEconomics(t *testing.T) {
	got := UnitEconomics(catalog.SampleExpenses())
	assert.Equal(t, 3.257576, got["compute-hours"])
	assert.Equal(t, 5.375, got["storage-gb"])
	assert.Equal(t, 0.0216, got["api-calls"])
	assert.Equal(t, 0.00108, got["tokens"])
	assert.Equal(t, 16.0, got["hosts-monitored"])

	zero := UnitEconomics([]expense.Expense{{Amount: 50, UsageMetrics: []expense.UsageMetric{{Type: "requests", Value: 0}}}})
	assert.Equal(t, map[string]float64{"requests": 0}, zero)
}

func TestForService(t *testing.T) {
	data := catalog.SampleExpenses()
	assert.Len(t, ForService(data, ""), 5)
	got := ForService(data, "aws")
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}

func TestOverview(t *testing.T) {
	d := Overview(catalog.SampleExpenses(), catalog.Default(), day(2024, 3, 10))
	assert.Equal(t, 7800.0, d.Total)
	assert.Equal(t, 5, d.Count)
	assert.Equal(t, 7800.0, d.MoM.CurrentMonth)
	assert.Len(t, d.Daily, DefaultDailyDays)
	assert.Len(t, d.Categories, 3)
	assert.Len(t, d.Services, 5)
}

func TestCostAllocation(t *testing.T) {
	root := CostAllocation(catalog.SampleExpenses())
	assert.Equal(t, RootID, root.ID)
	assert.Equal(t, RootName, root.Name)
	assert.Equal(t, 7800.0, root.Value)
	require.Len(t, root.Children, 3)
	assert.Equal(t, []string{"Engineering", "Data Science", "Platform"},
		[]string{root.Children[0].Name, root.Children[1].Name, root.Children[2].Name})

	node, ok := FindNode(root, []string{"team-2", "proj-2", "cat-2", "openai"})
	require.True(t, ok)
	assert.Equal(t, 1500.0, node.Value)
	assert.Empty(t, node.Children)

	_, ok = FindNode(root, []string{"team-2", "nope"})
	assert.False(t, ok)

	self, ok := FindNode(root, nil)
	require.True(t, ok)
	assert.Same(t, root, self)
}

func TestCostAllocationParentEqualsChildren(t *testing.T) {
	cat := catalog.Default()
	data := cat.Generate(rand.New(rand.NewPCG(1, 2)), day(2024, 6, 1), 300)

	var check func(n *expense.AllocationNode)
	check = func(n *expense.AllocationNode) {
		if len(n.Children) == 0 {
			return
		}
		sum := 0.0
		for _, c := range n.Children {
			sum += c.Value
			check(c)
		}
		assert.InDelta(t, n.Value, sum, 1e-6, "node %s", n.ID)
	}
	root := CostAllocation(data)
	check(root)
	assert.InDelta(t, TotalExpenses(data, time.Time{}, day(2100, 1, 1)), root.Value, 1e-6)
}

func TestCostAllocationImportedServiceLines(t *testing.T) {
	s := costsummary.New("2024-01-01", "2024-01-01")
	s.Add("2024-01-01", "Amazon EC2", 10, "USD")
	s.Add("2024-01-01", "Amazon S3", 90, "USD")
	imported := catalog.Default().FromSummary("aws", s, catalog.Attribution{TeamID: "team-3", ProjectID: "proj-3"})

	root := CostAllocation(imported)
	assert.Equal(t, 100.0, root.Value)

	rows := FlattenAllocation(root)
	require.Len(t, rows, 2)
	amounts := map[string]float64{}
	for _, r := range rows {
		assert.Equal(t, "Platform", r.Team)
		assert.Equal(t, "Infrastructure", r.Project)
		amounts[r.Service] = r.Amount
	}
	assert.Equal(t, map[string]float64{"Amazon EC2": 10, "Amazon S3": 90}, amounts)

	node, ok := FindNode(root, []string{"team-3", "proj-3", "cat-1", "aws:amazon-s3"})
	require.True(t, ok)
	assert.Equal(t, 90.0, node.Value)

	services := ExpensesByService(imported, "", catalog.Default().Services)
	require.Len(t, services, 2)
	assert.Equal(t, "Amazon S3", services[0].ServiceName)

	assert.Len(t, ForService(imported, "aws"), 2)
	assert.Len(t, ForService(imported, "aws:amazon-ec2"), 1)
	assert.Empty(t, ForService(imported, "aw"))
}

func TestCostAllocationEmpty(t *testing.T) {
	root := CostAllocation(nil)
	assert.Zero(t, root.Value)
	assert.Empty(t, root.Children)
	assert.Empty(t, FlattenAllocation(root))
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 12.5, Percentage(25, 200))
	assert.Zero(t, Percentage(1, 0))
	assert.Zero(t, Percentage(1, -5))
}

func TestFlattenAllocation(t *testing.T) {
	rows := FlattenAllocation(CostAllocation(catalog.SampleExpenses()))
	require.Len(t, rows, 5)
	assert.Equal(t, expense.AllocationRow{
		Team: "Engineering", Project: "Core Platform", Category: "Cloud Infrastructure", Service: "AWS", Amount: 2500,
	}, rows[0])
	assert.Equal(t, "Datadog", rows[4].Service)
}
