package vercel

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/usage", r.URL.Path)
		assert.Equal(t, "Bearer vt", r.Header.Get("Authorization"))
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchCosts(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		fmt.Fprint(w, `{"usage":[
			{"timestamp":"2024-01-01T10:00:00Z","service":"bandwidth","cost":{"amount":1.5,"currency":"USD"},"usage":{"value":10,"unit":"GB"}},
			{"timestamp":"2024-01-01T18:00:00Z","service":"functions","cost":{"amount":2,"currency":"USD"},"usage":{"value":1000,"unit":"invocations"}},
			{"timestamp":"2024-01-02T00:00:00Z","service":"bandwidth","cost":{"amount":0.5,"currency":"USD"},"usage":{"value":3,"unit":"GB"}}
		]}`)
	}))
	defer srv.Close()

	d, err := NewClient(srv.URL, "vt", "team_1").FetchCosts(context.Background(), "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Contains(t, query, "teamId=team_1")
	assert.Contains(t, query, "from=2024-01-01")
	assert.Contains(t, query, "to=2024-01-31")
	assert.Equal(t, Period{Start: "2024-01-01", End: "2024-01-31"}, d.Period)
	require.Len(t, d.Usage, 3)

	s := Summarize(d)
	assert.InDelta(t, 4.0, s.TotalCost, 1e-9)
	assert.InDelta(t, 2.0, s.CostsByService["bandwidth"].Cost, 1e-9)
	assert.Equal(t, "USD", s.CostsByService["bandwidth"].Unit)
	assert.Len(t, s.CostsByDate["2024-01-01"], 2)
	assert.Equal(t, "2024-01-31", s.TimeRange.End)
}

func TestFetchCostsNoUsage(t *testing.T) {
	srv := serve(t, http.StatusOK, `{}`)
	_, err := NewClient(srv.URL, "vt", "").FetchCosts(context.Background(), "2024-01-01", "2024-01-31")
	require.ErrorIs(t, err, ErrNoUsage)

	status, body := DescribeError(err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "No usage data found for the selected period", body["error"])
}

func TestFetchCostsUpstreamError(t *testing.T) {
	srv := serve(t, http.StatusForbidden, `{"error":{"code":"forbidden","message":"Not authorized"}}`)
	_, err := NewClient(srv.URL, "vt", "").FetchCosts(context.Background(), "2024-01-01", "2024-01-31")
	require.Error(t, err)

	status, body := DescribeError(err)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, map[string]any{"code": "forbidden", "message": "Not authorized"}, body["error"])
}
