package expense

import "time"

// Environment is the deployment stage an expense was incurred in.
type Environment string

const (
	EnvDev     Environment = "dev"
	EnvStaging Environment = "staging"
	EnvProd    Environment = "prod"
)

// Environments lists every known environment in display order.
var Environments = []Environment{EnvDev, EnvStaging, EnvProd}

// ParseEnvironment returns the environment for s, or false if s is not a known stage.
func ParseEnvironment(s string) (Environment, bool) {
	switch Environment(s) {
	case EnvDev, EnvStaging, EnvProd:
		return Environment(s), true
	}
	return "", false
}

// UsageMetric is a quantity consumed alongside an expense (api calls, GB stored, tokens...).
type UsageMetric struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// Expense is the unit of aggregation: one amount of spend attributed to a service,
// category, team, project and environment.
type Expense struct {
	ID           string        `json:"id"`
	Timestamp    time.Time     `json:"timestamp"`
	Amount       float64       `json:"amount"`
	ServiceID    string        `json:"serviceId"`
	ServiceName  string        `json:"serviceName"`
	CategoryID   string        `json:"categoryId"`
	CategoryName string        `json:"categoryName"`
	TeamID       string        `json:"teamId"`
	TeamName     string        `json:"teamName"`
	ProjectID    string        `json:"projectId"`
	ProjectName  string        `json:"projectName"`
	Environment  Environment   `json:"environment"`
	Tags         []string      `json:"tags"`
	UsageMetrics []UsageMetric `json:"usageMetrics"`
}

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type Service struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CategoryID string `json:"categoryId"`
}

type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Project struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	TeamID string `json:"teamId"`
}

// FilterState selects a subset of expenses. Empty slices and an empty
// SearchQuery do not constrain anything; the date range is inclusive.
type FilterState struct {
	Start        time.Time     `json:"start"`
	End          time.Time     `json:"end"`
	Categories   []string      `json:"categories"`
	Teams        []string      `json:"teams"`
	Projects     []string      `json:"projects"`
	Environments []Environment `json:"environments"`
	SearchQuery  string        `json:"searchQuery"`
}

// ByCategory is the spend of one category.
type ByCategory struct {
	CategoryID   string  `json:"categoryId"`
	CategoryName string  `json:"categoryName"`
	Amount       float64 `json:"amount"`
	Color        string  `json:"color"`
}

// ByService is the spend of one service.
type ByService struct {
	ServiceID   string  `json:"serviceId"`
	ServiceName string  `json:"serviceName"`
	Amount      float64 `json:"amount"`
}

// MonthlyExpense is one month of the trend series.
type MonthlyExpense struct {
	Month      string             `json:"month"`
	Total      float64            `json:"total"`
	ByCategory map[string]float64 `json:"byCategory"`
}

// DailySpend is the total spend of one calendar day (YYYY-MM-DD).
type DailySpend struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// MoMChange compares the current month to date with the whole previous month.
type MoMChange struct {
	CurrentMonth     float64 `json:"currentMonth"`
	PreviousMonth    float64 `json:"previousMonth"`
	PercentageChange float64 `json:"percentageChange"`
}

// AllocationNode is a node of the team → project → category → service cost tree.
// A parent's Value is the sum of its children's values.
type AllocationNode struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Value    float64           `json:"value"`
	Children []*AllocationNode `json:"children,omitempty"`
}

// AllocationRow is one leaf of the allocation tree with its full path.
type AllocationRow struct {
	Team     string
	Project  string
	Category string
	Service  string
	Amount   float64
}
