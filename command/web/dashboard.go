package web

import (
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"cost-dashboard/analytics"
	ccsv "cost-dashboard/connectors/csv"
	"cost-dashboard/domain/expense"

	"github.com/labstack/echo/v4"
)

type expenseHandler func(c echo.Context, expenses []expense.Expense) error

// withExpenses loads the expense set, applies the query filters and hands the
// result to h. Bad filters answer 400.
func (s *Server) withExpenses(h expenseHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		f, err := parseFilters(c, s.now())
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
		}
		all, err := s.loadExpenses()
		if err != nil {
			slog.Error("dashboard.expenses.read.error", "error", err)
			return c.JSON(http.StatusInternalServerError, map[string]any{
				"error":   err.Error(),
				"message": "failed to read expenses",
			})
		}
		filtered := analytics.FilterExpenses(all, f)
		slog.Debug("dashboard.filter", "path", c.Path(), "total", len(all), "kept", len(filtered))
		return h(c, filtered)
	}
}

func (s *Server) catalogHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.catalog)
}

// expenses lists the filtered expenses, newest first.
func (s *Server) expenses(c echo.Context, expenses []expense.Expense) error {
	sorted := append([]expense.Expense(nil), expenses...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.After(sorted[j].Timestamp) })
	return c.JSON(http.StatusOK, map[string]any{
		"expenses": sorted,
		"count":    len(sorted),
		"total":    analytics.TotalExpenses(sorted, time.Time{}, time.Time{}),
	})
}

func (s *Server) overview(c echo.Context, expenses []expense.Expense) error {
	return c.JSON(http.StatusOK, analytics.Overview(expenses, s.catalog, s.now()))
}

func (s *Server) categories(c echo.Context, expenses []expense.Expense) error {
	return c.JSON(http.StatusOK, analytics.ExpensesByCategory(expenses, s.catalog.Categories))
}

func (s *Server) services(c echo.Context, expenses []expense.Expense) error {
	return c.JSON(http.StatusOK, analytics.ExpensesByService(expenses, c.QueryParam("category"), s.catalog.Services))
}

func (s *Server) trend(c echo.Context, expenses []expense.Expense) error {
	months := analytics.DefaultTrendMonths
	if v := c.QueryParam("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 36 {
			return c.JSON(http.StatusBadRequest, map[string]any{"error": "months must be between 1 and 36"})
		}
		months = n
	}
	return c.JSON(http.StatusOK, analytics.TrendData(expenses, s.now(), months))
}

// allocation returns the node at ?path=team/project/... of the allocation tree
// along with its share of the total.
func (s *Server) allocation(c echo.Context, expenses []expense.Expense) error {
	root := analytics.CostAllocation(expenses)
	var path []string
	if p := strings.Trim(c.QueryParam("path"), "/"); p != "" {
		path = strings.Split(p, "/")
	}
	node, ok := analytics.FindNode(root, path)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]any{
			"error": "allocation node not found",
			"path":  path,
		})
	}
	children := make([]map[string]any, 0, len(node.Children))
	for _, child := range node.Children {
		children = append(children, map[string]any{
			"id":         child.ID,
			"name":       child.Name,
			"value":      child.Value,
			"percentage": analytics.Percentage(child.Value, node.Value),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"node":       node,
		"path":       path,
		"total":      root.Value,
		"percentage": analytics.Percentage(node.Value, root.Value),
		"children":   children,
	})
}

func (s *Server) allocationCSV(c echo.Context, expenses []expense.Expense) error {
	rows := analytics.FlattenAllocation(analytics.CostAllocation(expenses))
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	h.Set(echo.HeaderContentDisposition, `attachment; filename="cost-allocation.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	return ccsv.WriteAllocation(c.Response(), rows)
}

func (s *Server) unitEconomics(c echo.Context, expenses []expense.Expense) error {
	service := c.QueryParam("service")
	return c.JSON(http.StatusOK, map[string]any{
		"service":       service,
		"unitEconomics": analytics.UnitEconomics(analytics.ForService(expenses, service)),
	})
}
