package catalog

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"cost-dashboard/domain/costsummary"
	"cost-dashboard/domain/expense"

	lo "github.com/samber/lo"
)

// Unassigned owns synthesized spend whose provider has no attribution.
var (
	UnassignedTeam    = expense.Team{ID: "unassigned", Name: "Unassigned"}
	UnassignedProject = expense.Project{ID: "unassigned", Name: "Unassigned", TeamID: "unassigned"}
)

// Attribution assigns synthesized provider expenses to a team, project and environment.
type Attribution struct {
	TeamID      string              `yaml:"team_id" json:"teamId"`
	ProjectID   string              `yaml:"project_id" json:"projectId"`
	Environment expense.Environment `yaml:"environment" json:"environment"`
}

// FromSummary turns every daily service cost of a provider summary into an expense.
// Dates are emitted in ascending order so ids are stable across runs.
func (c Catalog) FromSummary(provider string, s *costsummary.CostSummary, attr Attribution) []expense.Expense {
	if s == nil {
		return nil
	}
	svc, ok := c.Service(provider)
	if !ok {
		svc = expense.Service{ID: provider, Name: provider}
	}
	cat, _ := c.Category(svc.CategoryID)
	team, ok := c.Team(attr.TeamID)
	if !ok {
		team = UnassignedTeam
	}
	proj, ok := c.Project(attr.ProjectID)
	if !ok {
		proj = UnassignedProject
	}
	env := attr.Environment
	if env == "" {
		env = expense.EnvProd
	}

	dates := lo.Keys(s.CostsByDate)
	sort.Strings(dates)

	var out []expense.Expense
	for _, date := range dates {
		ts, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		for i, entry := range s.CostsByDate[date] {
			out = append(out, expense.Expense{
				ID:           fmt.Sprintf("%s-%s-%d", provider, date, i),
				Timestamp:    ts,
				Amount:       entry.Cost,
				ServiceID:    LineServiceID(svc.ID, entry.ServiceName),
				ServiceName:  entry.ServiceName,
				CategoryID:   cat.ID,
				CategoryName: cat.Name,
				TeamID:       team.ID,
				TeamName:     team.Name,
				ProjectID:    proj.ID,
				ProjectName:  proj.Name,
				Environment:  env,
				Tags:         []string{provider, entry.ServiceName},
				UsageMetrics: []expense.UsageMetric{},
			})
		}
	}
	return out
}

// LineServiceID identifies one billed service line of a provider, e.g. "aws:amazon-ec2".
func LineServiceID(provider, serviceName string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(serviceName) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return provider
	}
	return provider + ":" + slug
}
