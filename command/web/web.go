package web

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	awsc "cost-dashboard/connectors/aws"
	"cost-dashboard/connectors/cache"
	"cost-dashboard/connectors/config"
	ccsv "cost-dashboard/connectors/csv"
	"cost-dashboard/connectors/providers"
	"cost-dashboard/domain/catalog"
	"cost-dashboard/domain/expense"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// generatedExpenses is the size of the demo set served when no expenses.csv exists.
const generatedExpenses = 500

type Options struct {
	Addr    string
	DataDir string
	UIDir   string
}

// Server holds the handlers' dependencies.
type Server struct {
	cfg      *config.Config
	cache    *cache.Cache
	catalog  catalog.Catalog
	now      func() time.Time
	newAWS   func(ctx context.Context, accessKeyID, secretAccessKey, region string) (*awsc.Client, error)
	// fetchers returns the providers configured in config.yml.
	fetchers func() map[string]providers.Fetcher
}

// NewServer builds a server from cfg. Options override the server section when set.
func NewServer(cfg *config.Config, opts Options) (*Server, error) {
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	if opts.DataDir != "" {
		cfg.Server.DataDir = opts.DataDir
	}
	if opts.UIDir != "" {
		cfg.Server.UIDir = opts.UIDir
	}
	c, err := cache.New(cache.DefaultMaxCost, cfg.Server.CacheTTL)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:      cfg,
		cache:    c,
		catalog:  catalog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
		newAWS:   awsc.NewClient,
		fetchers: func() map[string]providers.Fetcher {
			return providers.FromConfig(cfg)
		},
	}, nil
}

// Run serves the API and the optional SPA until the listener fails.
//
// Endpoints:
//
//	GET /api/<provider>/costs|usage  -> vendor billing proxies (credentials in headers)
//	GET /api/<provider>/summary      -> normalized CostSummary
//	GET /api/providers/summary       -> every provider configured in config.yml
//	GET /api/dashboard/...           -> aggregates over <data>/expenses.csv
//	GET /api/spend/...               -> CSV files written by `calculate` (404 if missing)
//
// When the UI dir holds a built Vite app (index.html exists), static files are served at / and
// unknown routes fall back to index.html for SPA routing.
func Run(cfg *config.Config, opts Options) error {
	s, err := NewServer(cfg, opts)
	if err != nil {
		return err
	}
	defer s.cache.Close()
	slog.Info("web.start", "addr", cfg.Server.Addr, "data", cfg.Server.DataDir, "cache_ttl", cfg.Server.CacheTTL)
	return s.Echo().Start(cfg.Server.Addr)
}

// Echo wires middleware and routes.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = sonicSerializer{}
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.Recover())
	if rl := s.cfg.Server.RateLimit; rl.RPS > 0 {
		e.Use(newIPRateLimiter(rate.Limit(rl.RPS), rl.Burst).middleware)
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"status": "ok"})
	})

	// Vendor proxies
	e.GET("/api/aws/costs", s.awsCosts)
	e.GET("/api/aws/summary", s.awsSummary)
	e.GET("/api/openai/usage", s.openaiUsage)
	e.GET("/api/openai/summary", s.openaiSummary)
	e.GET("/api/vercel/costs", s.vercelCosts)
	e.GET("/api/vercel/summary", s.vercelSummary)
	e.GET("/api/cursor/usage", s.cursorUsage)
	e.GET("/api/cursor/summary", s.cursorSummary)
	for _, vendor := range modelVendors {
		e.GET("/api/"+vendor+"/usage", s.modelUsage(vendor, false))
		e.GET("/api/"+vendor+"/summary", s.modelUsage(vendor, true))
	}
	e.GET("/api/azure/costs", s.azureCosts)
	e.GET("/api/azure/summary", s.azureCosts)
	e.GET("/api/gcp/costs", s.gcpCosts)
	e.GET("/api/gcp/summary", s.gcpCosts)
	e.GET("/api/providers/summary", s.providersSummary)

	// Dashboard aggregates
	e.GET("/api/catalog", s.catalogHandler)
	e.GET("/api/expenses", s.withExpenses(s.expenses))
	e.GET("/api/dashboard/overview", s.withExpenses(s.overview))
	e.GET("/api/dashboard/categories", s.withExpenses(s.categories))
	e.GET("/api/dashboard/services", s.withExpenses(s.services))
	e.GET("/api/dashboard/trend", s.withExpenses(s.trend))
	e.GET("/api/dashboard/allocation", s.withExpenses(s.allocation))
	e.GET("/api/dashboard/allocation.csv", s.withExpenses(s.allocationCSV))
	e.GET("/api/dashboard/unit_economics", s.withExpenses(s.unitEconomics))

	// Files written by `calculate`
	s.serveCSV(e, "/api/spend/monthly", ccsv.MonthlyFile)
	s.serveCSV(e, "/api/spend/services", ccsv.ServicesFile)
	s.serveCSV(e, "/api/spend/categories", ccsv.CategoriesFile)
	s.serveCSV(e, "/api/spend/allocation", ccsv.AllocationFile)

	s.serveUI(e)
	return e
}

// serveCSV registers a GET endpoint serving a CSV file of the data dir as JSON rows.
func (s *Server) serveCSV(e *echo.Echo, route, filename string) {
	e.GET(route, func(c echo.Context) error {
		path := filepath.Join(s.cfg.Server.DataDir, filename)
		rows, err := ccsv.ReadCSV(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return c.JSON(http.StatusNotFound, map[string]any{
					"error":   "file not found",
					"path":    path,
					"message": "CSV file is missing",
				})
			}
			return c.JSON(http.StatusInternalServerError, map[string]any{
				"error":   err.Error(),
				"path":    path,
				"message": "failed to read CSV",
			})
		}
		return c.JSON(http.StatusOK, rows)
	})
}

func (s *Server) serveUI(e *echo.Echo) {
	uiDir := s.cfg.Server.UIDir
	indexPath := filepath.Join(uiDir, "index.html")
	fi, err := os.Stat(indexPath)
	if err != nil || fi.IsDir() {
		return
	}
	e.Static("/", uiDir)
	e.GET("/", func(c echo.Context) error { return c.File(indexPath) })

	// Non-API 404s serve the SPA index so client-side routes resolve.
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if he, ok := err.(*echo.HTTPError); ok && he.Code == http.StatusNotFound {
			if !strings.HasPrefix(c.Request().URL.Path, "/api") {
				_ = c.File(indexPath)
				return
			}
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
}

// loadExpenses reads <data>/expenses.csv. Without one, the fixed samples plus a
// deterministic generated set ending today are served.
func (s *Server) loadExpenses() ([]expense.Expense, error) {
	path := filepath.Join(s.cfg.Server.DataDir, ccsv.ExpensesFile)
	expenses, err := ccsv.ReadExpensesCSV(path)
	if err == nil {
		return expenses, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	now := s.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	seed := uint64(day.Unix())
	generated := s.catalog.Generate(rand.New(rand.NewPCG(seed, seed>>1)), now, generatedExpenses)
	return append(catalog.SampleExpenses(), generated...), nil
}
