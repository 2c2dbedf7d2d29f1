// Package catalog holds the reference categories, services, teams and projects
// expenses are attributed to, plus sample and generated expense data.
package catalog

import (
	"cost-dashboard/domain/expense"

	lo "github.com/samber/lo"
)

// Catalog is the set of entities the dashboard groups by.
type Catalog struct {
	Categories []expense.Category `json:"categories"`
	Services   []expense.Service  `json:"services"`
	Teams      []expense.Team     `json:"teams"`
	Projects   []expense.Project  `json:"projects"`
}

var defaultCatalog = Catalog{
	Categories: []expense.Category{
		{ID: "cat-1", Name: "Cloud Infrastructure", Color: "#3B82F6"},
		{ID: "cat-2", Name: "AI/ML Services", Color: "#10B981"},
		{ID: "cat-3", Name: "Observability", Color: "#8B5CF6"},
	},
	Services: []expense.Service{
		{ID: "aws", Name: "AWS", CategoryID: "cat-1"},
		{ID: "gcp", Name: "Google Cloud", CategoryID: "cat-1"},
		{ID: "azure", Name: "Azure", CategoryID: "cat-1"},
		{ID: "vercel", Name: "Vercel", CategoryID: "cat-1"},
		{ID: "anthropic", Name: "Anthropic", CategoryID: "cat-2"},
		{ID: "openai", Name: "OpenAI", CategoryID: "cat-2"},
		{ID: "cohere", Name: "Cohere", CategoryID: "cat-2"},
		{ID: "gemini", Name: "Gemini", CategoryID: "cat-2"},
		{ID: "cursor", Name: "Cursor", CategoryID: "cat-2"},
		{ID: "datadog", Name: "Datadog", CategoryID: "cat-3"},
	},
	Teams: []expense.Team{
		{ID: "team-1", Name: "Engineering"},
		{ID: "team-2", Name: "Data Science"},
		{ID: "team-3", Name: "Platform"},
	},
	Projects: []expense.Project{
		{ID: "proj-1", Name: "Core Platform", TeamID: "team-1"},
		{ID: "proj-2", Name: "AI Services", TeamID: "team-2"},
		{ID: "proj-3", Name: "Infrastructure", TeamID: "team-3"},
	},
}

// Default returns a copy of the built-in catalog.
func Default() Catalog {
	return Catalog{
		Categories: append([]expense.Category(nil), defaultCatalog.Categories...),
		Services:   append([]expense.Service(nil), defaultCatalog.Services...),
		Teams:      append([]expense.Team(nil), defaultCatalog.Teams...),
		Projects:   append([]expense.Project(nil), defaultCatalog.Projects...),
	}
}

func (c Catalog) Category(id string) (expense.Category, bool) {
	return lo.Find(c.Categories, func(cat expense.Category) bool { return cat.ID == id })
}

func (c Catalog) Service(id string) (expense.Service, bool) {
	return lo.Find(c.Services, func(s expense.Service) bool { return s.ID == id })
}

func (c Catalog) Team(id string) (expense.Team, bool) {
	return lo.Find(c.Teams, func(t expense.Team) bool { return t.ID == id })
}

func (c Catalog) Project(id string) (expense.Project, bool) {
	return lo.Find(c.Projects, func(p expense.Project) bool { return p.ID == id })
}

// TeamProjects returns the projects owned by teamID.
func (c Catalog) TeamProjects(teamID string) []expense.Project {
	return lo.Filter(c.Projects, func(p expense.Project, _ int) bool { return p.TeamID == teamID })
}
