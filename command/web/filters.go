package web

import (
	"fmt"
	"strings"
	"time"

	"cost-dashboard/analytics"
	"cost-dashboard/domain/expense"

	"github.com/labstack/echo/v4"
	lo "github.com/samber/lo"
)

const dateLayout = "2006-01-02"

// parseFilters reads a FilterState from the query string on top of the default
// six-month window:
//
//	start, end     YYYY-MM-DD or RFC3339; a date-only end covers the whole day;
//	               an end without start keeps the six-month window ending there
//	categories, teams, projects, environments   comma separated ids
//	q              case-insensitive search
func parseFilters(c echo.Context, now time.Time) (expense.FilterState, error) {
	f := analytics.DefaultFilters(now)

	start := c.QueryParam("start")
	if start != "" {
		t, _, err := parseTime(start)
		if err != nil {
			return f, fmt.Errorf("invalid start: %w", err)
		}
		f.Start = t
	}
	if v := c.QueryParam("end"); v != "" {
		t, dateOnly, err := parseTime(v)
		if err != nil {
			return f, fmt.Errorf("invalid end: %w", err)
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		f.End = t
		if start == "" {
			f.Start = t.AddDate(0, -6, 0)
		}
	}
	if f.Start.After(f.End) {
		return f, fmt.Errorf("start %s is after end %s", f.Start.Format(dateLayout), f.End.Format(dateLayout))
	}

	f.Categories = splitList(c.QueryParam("categories"))
	f.Teams = splitList(c.QueryParam("teams"))
	f.Projects = splitList(c.QueryParam("projects"))
	if envs := splitList(c.QueryParam("environments")); len(envs) > 0 {
		f.Environments = make([]expense.Environment, 0, len(envs))
		for _, s := range envs {
			env, ok := expense.ParseEnvironment(s)
			if !ok {
				return f, fmt.Errorf("unknown environment %q", s)
			}
			f.Environments = append(f.Environments, env)
		}
	}
	f.SearchQuery = strings.TrimSpace(c.QueryParam("q"))
	return f, nil
}

func parseTime(v string) (time.Time, bool, error) {
	if t, err := time.Parse(dateLayout, v); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	return t, false, err
}

func splitList(v string) []string {
	return lo.Compact(lo.Map(strings.Split(v, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}
