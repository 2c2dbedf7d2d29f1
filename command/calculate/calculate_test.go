package calculate

import (
	"path/filepath"
	"testing"
	"time"

	ccsv "cost-dashboard/connectors/csv"
	"cost-dashboard/domain/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ccsv.WriteExpensesCSV(filepath.Join(dir, ccsv.ExpensesFile), catalog.SampleExpenses()))

	err := Run(Options{DataDir: dir, Months: 3, Now: time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	monthly, err := ccsv.ReadCSV(filepath.Join(dir, ccsv.MonthlyFile))
	require.NoError(t, err)
	require.Len(t, monthly, 3)
	assert.Equal(t, "Mar 2024", monthly[1]["month"])
	assert.Equal(t, "7800.00", monthly[1]["total"])

	services, err := ccsv.ReadCSV(filepath.Join(dir, ccsv.ServicesFile))
	require.NoError(t, err)
	require.Len(t, services, 5)
	assert.Equal(t, "aws", services[0]["service_id"])

	categories, err := ccsv.ReadCSV(filepath.Join(dir, ccsv.CategoriesFile))
	require.NoError(t, err)
	require.Len(t, categories, 3)
	assert.Equal(t, "4300.00", categories[0]["amount"])

	alloc, err := ccsv.ReadCSV(filepath.Join(dir, ccsv.AllocationFile))
	require.NoError(t, err)
	require.Len(t, alloc, 5)
	assert.Equal(t, map[string]string{
		"Team": "Engineering", "Project": "Core Platform", "Category": "Cloud Infrastructure", "Service": "AWS", "Amount": "2500.00",
	}, alloc[0])
}

func TestRunMissingExpenses(t *testing.T) {
	err := Run(Options{DataDir: t.TempDir()})
	assert.ErrorContains(t, err, "failed to read expenses")
}

func TestRunDefaultsToCurrentUTCMonth(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ccsv.WriteExpensesCSV(filepath.Join(dir, ccsv.ExpensesFile), catalog.SampleExpenses()))

	before := time.Now().UTC().Format("Jan 2006")
	require.NoError(t, Run(Options{DataDir: dir, Months: 2}))
	after := time.Now().UTC().Format("Jan 2006")

	monthly, err := ccsv.ReadCSV(filepath.Join(dir, ccsv.MonthlyFile))
	require.NoError(t, err)
	require.Len(t, monthly, 2)
	assert.Contains(t, []string{before, after}, monthly[1]["month"])
}
