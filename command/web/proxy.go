package web

import (
	"log/slog"
	"net/http"
	"strings"

	awsc "cost-dashboard/connectors/aws"
	"cost-dashboard/connectors/cache"
	"cost-dashboard/connectors/cursor"
	"cost-dashboard/connectors/modelusage"
	"cost-dashboard/connectors/openai"
	"cost-dashboard/connectors/providers"
	"cost-dashboard/connectors/upstream"
	"cost-dashboard/connectors/vercel"
	"cost-dashboard/domain/costsummary"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
)

var modelVendors = []string{
	costsummary.ProviderAnthropic,
	costsummary.ProviderCohere,
	costsummary.ProviderGemini,
}

// describer maps a fetch failure to a status and JSON body.
type describer func(error) (int, map[string]any)

func describeUpstream(msg string) describer {
	return func(err error) (int, map[string]any) {
		status := upstream.StatusOf(err)
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return status, map[string]any{"error": msg}
	}
}

func dateRange(c echo.Context) (string, string, bool) {
	start, end := c.QueryParam("start_date"), c.QueryParam("end_date")
	return start, end, start != "" && end != ""
}

func missingDates(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, map[string]any{"error": "Start date and end date are required"})
}

// cached answers from the response cache or runs fetch, caching its encoded
// result on success. X-Cache tells which one happened.
func (s *Server) cached(c echo.Context, key string, fetch func() ([]byte, error), describe describer) error {
	if body, ok := s.cache.Get(key); ok {
		c.Response().Header().Set("X-Cache", "HIT")
		return c.JSONBlob(http.StatusOK, body)
	}
	body, err := fetch()
	if err != nil {
		status, payload := describe(err)
		slog.Error("proxy.fetch.error", "path", c.Path(), "status", status, "error", err)
		return c.JSON(status, payload)
	}
	s.cache.Set(key, body)
	c.Response().Header().Set("X-Cache", "MISS")
	return c.JSONBlob(http.StatusOK, body)
}

func encode(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

// summaryBody is the shape of every /api/<provider>/summary response.
func summaryBody(provider string, summary *costsummary.CostSummary, usage any) map[string]any {
	out := map[string]any{"provider": provider, "summary": summary}
	if usage != nil {
		out["usage"] = usage
	}
	return out
}

func (s *Server) awsRequest(c echo.Context, summary bool) error {
	accessKey := c.Request().Header.Get("x-aws-access-key")
	secretKey := c.Request().Header.Get("x-aws-secret-key")
	region := c.Request().Header.Get("x-aws-region")
	start, end, ok := dateRange(c)
	slog.Info("proxy.aws.request",
		"start", start, "end", end,
		"access_key", accessKey != "", "secret_key", secretKey != "", "region", region)

	if accessKey == "" || secretKey == "" {
		return c.JSON(http.StatusUnauthorized, map[string]any{"error": "AWS credentials are required"})
	}
	if !ok {
		return missingDates(c)
	}
	if region == "" {
		region = s.cfg.AWS.Region
	}

	kind := "costs"
	if summary {
		kind = "summary"
	}
	ctx := c.Request().Context()
	key := cache.Key(costsummary.ProviderAWS, accessKey+":"+secretKey+":"+region, kind, start, end)
	return s.cached(c, key, func() ([]byte, error) {
		client, err := s.newAWS(ctx, accessKey, secretKey, region)
		if err != nil {
			return nil, err
		}
		results, err := client.FetchCosts(ctx, start, end)
		if err != nil {
			return nil, err
		}
		slog.Info("proxy.aws.fetch.done", "days", len(results))
		if summary {
			return encode(summaryBody(costsummary.ProviderAWS, awsc.Summarize(results, start, end), nil))
		}
		return encode(map[string]any{"ResultsByTime": results})
	}, awsc.DescribeError)
}

func (s *Server) awsCosts(c echo.Context) error   { return s.awsRequest(c, false) }
func (s *Server) awsSummary(c echo.Context) error { return s.awsRequest(c, true) }

func (s *Server) openaiRequest(c echo.Context, summary bool) error {
	apiKey := c.Request().Header.Get("x-api-key")
	start, end, _ := dateRange(c)
	slog.Info("proxy.openai.request", "start", start, "end", end, "api_key", apiKey != "")

	if apiKey == "" {
		return c.JSON(http.StatusUnauthorized, map[string]any{"error": "API key is required"})
	}
	if openai.IsProjectKey(apiKey) {
		return c.JSON(http.StatusBadRequest, openai.ProjectKeyError())
	}

	kind := "usage"
	if summary {
		kind = "summary"
	}
	ctx := c.Request().Context()
	client := openai.NewClient(s.cfg.OpenAI.BaseURL, apiKey)
	key := cache.Key(costsummary.ProviderOpenAI, apiKey, kind, start, end)
	return s.cached(c, key, func() ([]byte, error) {
		body, err := client.FetchUsage(ctx, start, end)
		if err != nil || !summary {
			return body, err
		}
		d, err := openai.Transform(body)
		if err != nil {
			return nil, err
		}
		return encode(summaryBody(costsummary.ProviderOpenAI, openai.Summarize(d, start, end), openai.SummarizeUsage(d)))
	}, openai.DescribeError)
}

func (s *Server) openaiUsage(c echo.Context) error   { return s.openaiRequest(c, false) }
func (s *Server) openaiSummary(c echo.Context) error { return s.openaiRequest(c, true) }

func (s *Server) vercelRequest(c echo.Context, summary bool) error {
	token := c.Request().Header.Get("x-vercel-token")
	teamID := c.Request().Header.Get("x-vercel-team-id")
	start, end, ok := dateRange(c)
	slog.Info("proxy.vercel.request", "start", start, "end", end, "token", token != "", "team_id", teamID != "")

	if token == "" {
		return c.JSON(http.StatusUnauthorized, map[string]any{"error": "Vercel API token is required"})
	}
	if !ok {
		return missingDates(c)
	}

	kind := "costs"
	if summary {
		kind = "summary"
	}
	ctx := c.Request().Context()
	client := vercel.NewClient(s.cfg.Vercel.BaseURL, token, teamID)
	key := cache.Key(costsummary.ProviderVercel, token+":"+teamID, kind, start, end)
	return s.cached(c, key, func() ([]byte, error) {
		d, err := client.FetchCosts(ctx, start, end)
		if err != nil {
			return nil, err
		}
		if summary {
			return encode(summaryBody(costsummary.ProviderVercel, vercel.Summarize(d), nil))
		}
		return encode(d)
	}, vercel.DescribeError)
}

func (s *Server) vercelCosts(c echo.Context) error   { return s.vercelRequest(c, false) }
func (s *Server) vercelSummary(c echo.Context) error { return s.vercelRequest(c, true) }

func (s *Server) cursorRequest(c echo.Context, summary bool) error {
	apiKey := c.Request().Header.Get("x-api-key")
	start, end, _ := dateRange(c)
	slog.Info("proxy.cursor.request", "start", start, "end", end, "api_key", apiKey != "")

	if apiKey == "" {
		return c.JSON(http.StatusUnauthorized, map[string]any{"error": "API key is required"})
	}
	d := cursor.FetchUsage(start, end)
	if summary {
		return c.JSON(http.StatusOK, summaryBody(costsummary.ProviderCursor, cursor.Summarize(d), cursor.SummarizeUsage(d)))
	}
	return c.JSON(http.StatusOK, d)
}

func (s *Server) cursorUsage(c echo.Context) error   { return s.cursorRequest(c, false) }
func (s *Server) cursorSummary(c echo.Context) error { return s.cursorRequest(c, true) }

// modelUsage serves the Anthropic, Cohere and Gemini billing proxies.
func (s *Server) modelUsage(vendor string, summary bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		apiKey := c.Request().Header.Get("x-api-key")
		start, end, _ := dateRange(c)
		slog.Info("proxy.model.request", "vendor", vendor, "start", start, "end", end, "api_key", apiKey != "")

		if apiKey == "" {
			return c.JSON(http.StatusUnauthorized, map[string]any{"error": "API key is required"})
		}

		var client *modelusage.Client
		switch vendor {
		case costsummary.ProviderAnthropic:
			client = modelusage.NewAnthropic(s.cfg.Anthropic.BaseURL, apiKey)
		case costsummary.ProviderCohere:
			client = modelusage.NewCohere(s.cfg.Cohere.BaseURL, apiKey)
		default:
			client = modelusage.NewGemini(s.cfg.Gemini.BaseURL, apiKey)
		}

		kind := "usage"
		if summary {
			kind = "summary"
		}
		ctx := c.Request().Context()
		key := cache.Key(vendor, apiKey, kind, start, end)
		return s.cached(c, key, func() ([]byte, error) {
			b, err := client.FetchBilling(ctx, start, end)
			if err != nil {
				return nil, err
			}
			if summary {
				return encode(summaryBody(vendor, modelusage.Summarize(b, start, end), nil))
			}
			return encode(b)
		}, describeUpstream(client.FetchError()))
	}
}

// configured serves a provider whose credentials live in config.yml.
func (s *Server) configured(c echo.Context, provider string) error {
	start, end, ok := dateRange(c)
	slog.Info("proxy.configured.request", "provider", provider, "start", start, "end", end)

	fetch, found := s.fetchers()[provider]
	if !found {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"error": provider + " is not configured",
		})
	}
	if !ok {
		return missingDates(c)
	}
	ctx := c.Request().Context()
	key := cache.Key(provider, "config", strings.TrimPrefix(c.Path(), "/api/"), start, end)
	return s.cached(c, key, func() ([]byte, error) {
		summary, err := fetch(ctx, start, end)
		if err != nil {
			return nil, err
		}
		if strings.HasSuffix(c.Path(), "/summary") {
			return encode(summaryBody(provider, summary, nil))
		}
		return encode(summary)
	}, func(err error) (int, map[string]any) {
		status := upstream.StatusOf(err)
		if status == 0 {
			status = http.StatusBadGateway
		}
		return status, map[string]any{"error": "Failed to fetch " + provider + " costs", "details": err.Error()}
	})
}

func (s *Server) azureCosts(c echo.Context) error { return s.configured(c, costsummary.ProviderAzure) }
func (s *Server) gcpCosts(c echo.Context) error   { return s.configured(c, costsummary.ProviderGCP) }

// providersSummary fetches every configured provider; the range defaults to the last 30 days.
func (s *Server) providersSummary(c echo.Context) error {
	start, end, ok := dateRange(c)
	if !ok {
		now := s.now()
		start = now.AddDate(0, 0, -30).Format("2006-01-02")
		end = now.Format("2006-01-02")
	}
	fetchers := s.fetchers()
	if len(fetchers) == 0 {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"error": "no provider configured"})
	}
	results := providers.FetchAll(c.Request().Context(), fetchers, start, end)
	return c.JSON(http.StatusOK, map[string]any{
		"timeRange": costsummary.TimeRange{Start: start, End: end},
		"providers": results,
	})
}
