package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"cost-dashboard/domain/expense"

	lo "github.com/samber/lo"
)

// File names inside the data directory.
const (
	ExpensesFile   = "expenses.csv"
	MonthlyFile    = "spend_monthly.csv"
	ServicesFile   = "spend_services.csv"
	CategoriesFile = "spend_categories.csv"
	AllocationFile = "spend_allocation.csv"
)

var expenseHeaders = []string{
	"id", "timestamp", "amount", "service_id", "service_name", "category_id", "category_name",
	"team_id", "team_name", "project_id", "project_name", "environment", "tags", "usage_metrics",
}

// AllocationHeaders is the header row of the allocation export.
var AllocationHeaders = []string{"Team", "Project", "Category", "Service", "Amount"}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return f, nil
}

func writeRows(path string, headers []string, rows [][]string) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return w.Error()
}

func money(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// WriteExpensesCSV writes expenses one per row. Tags are joined with ';' and usage
// metrics are encoded as type:value:unit separated by ';'.
func WriteExpensesCSV(path string, expenses []expense.Expense) error {
	rows := lo.Map(expenses, func(e expense.Expense, _ int) []string {
		metrics := lo.Map(e.UsageMetrics, func(m expense.UsageMetric, _ int) string {
			return m.Type + ":" + strconv.FormatFloat(m.Value, 'f', -1, 64) + ":" + m.Unit
		})
		return []string{
			e.ID,
			e.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(e.Amount, 'f', -1, 64),
			e.ServiceID, e.ServiceName,
			e.CategoryID, e.CategoryName,
			e.TeamID, e.TeamName,
			e.ProjectID, e.ProjectName,
			string(e.Environment),
			strings.Join(e.Tags, ";"),
			strings.Join(metrics, ";"),
		}
	})
	return writeRows(path, expenseHeaders, rows)
}

// ReadExpensesCSV loads a file written by WriteExpensesCSV. Rows with an
// unparseable timestamp or amount are rejected with their line number.
func ReadExpensesCSV(path string) ([]expense.Expense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	head, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s header: %w", filepath.Base(path), err)
	}
	idx := indexMap(head)
	for _, col := range []string{"id", "timestamp", "amount", "service_id"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%s missing column %s", filepath.Base(path), col)
		}
	}
	get := func(rec []string, col string) string {
		if i, ok := idx[col]; ok && i < len(rec) {
			return rec[i]
		}
		return ""
	}

	var out []expense.Expense
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339, get(rec, "timestamp"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid timestamp: %w", line, err)
		}
		amount, err := strconv.ParseFloat(get(rec, "amount"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid amount: %w", line, err)
		}
		env, ok := expense.ParseEnvironment(get(rec, "environment"))
		if !ok {
			env = expense.EnvProd
		}
		out = append(out, expense.Expense{
			ID:           get(rec, "id"),
			Timestamp:    ts,
			Amount:       amount,
			ServiceID:    get(rec, "service_id"),
			ServiceName:  get(rec, "service_name"),
			CategoryID:   get(rec, "category_id"),
			CategoryName: get(rec, "category_name"),
			TeamID:       get(rec, "team_id"),
			TeamName:     get(rec, "team_name"),
			ProjectID:    get(rec, "project_id"),
			ProjectName:  get(rec, "project_name"),
			Environment:  env,
			Tags:         splitList(get(rec, "tags")),
			UsageMetrics: parseMetrics(get(rec, "usage_metrics")),
		})
	}
	return out, nil
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ";")
}

func parseMetrics(s string) []expense.UsageMetric {
	out := []expense.UsageMetric{}
	for _, part := range splitList(s) {
		fields := strings.SplitN(part, ":", 3)
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}
		m := expense.UsageMetric{Type: fields[0], Value: v}
		if len(fields) == 3 {
			m.Unit = fields[2]
		}
		out = append(out, m)
	}
	return out
}

func indexMap(headers []string) map[string]int {
	m := map[string]int{}
	for i, h := range headers {
		m[strings.TrimSpace(strings.ToLower(h))] = i
	}
	return m
}

// WriteMonthlyCSV writes one row per month with the total and one column per category id.
func WriteMonthlyCSV(path string, months []expense.MonthlyExpense) error {
	var cats []string
	for _, m := range months {
		cats = append(cats, lo.Keys(m.ByCategory)...)
	}
	cats = lo.Uniq(cats)
	sort.Strings(cats)

	rows := lo.Map(months, func(m expense.MonthlyExpense, _ int) []string {
		row := []string{m.Month, money(m.Total)}
		for _, c := range cats {
			row = append(row, money(m.ByCategory[c]))
		}
		return row
	})
	return writeRows(path, append([]string{"month", "total"}, cats...), rows)
}

func WriteServicesCSV(path string, services []expense.ByService) error {
	rows := lo.Map(services, func(s expense.ByService, _ int) []string {
		return []string{s.ServiceID, s.ServiceName, money(s.Amount)}
	})
	return writeRows(path, []string{"service_id", "service_name", "amount"}, rows)
}

func WriteCategoriesCSV(path string, categories []expense.ByCategory) error {
	rows := lo.Map(categories, func(c expense.ByCategory, _ int) []string {
		return []string{c.CategoryID, c.CategoryName, money(c.Amount), c.Color}
	})
	return writeRows(path, []string{"category_id", "category_name", "amount", "color"}, rows)
}

// WriteAllocation streams allocation rows as CSV.
func WriteAllocation(w io.Writer, rows []expense.AllocationRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AllocationHeaders); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Team, r.Project, r.Category, r.Service, money(r.Amount)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteAllocationCSV(path string, rows []expense.AllocationRow) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteAllocation(f, rows)
}

// ReadCSV loads a CSV file and returns a slice of objects keyed by headers.
// Values are kept as strings to avoid lossy or incorrect type coercion.
func ReadCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []map[string]string{}, nil
	}

	headers := records[0]
	res := make([]map[string]string, 0, len(records)-1)
	for _, row := range records[1:] {
		if len(row) == 0 {
			continue
		}
		obj := make(map[string]string, len(headers))
		for j := 0; j < len(headers) && j < len(row); j++ {
			obj[headers[j]] = row[j]
		}
		res = append(res, obj)
	}
	return res, nil
}
