package costsummary

import "sort"

// Provider identifiers used across proxies, summaries and synthesized expenses.
const (
	ProviderAWS       = "aws"
	ProviderOpenAI    = "openai"
	ProviderVercel    = "vercel"
	ProviderCursor    = "cursor"
	ProviderAnthropic = "anthropic"
	ProviderCohere    = "cohere"
	ProviderGemini    = "gemini"
	ProviderAzure     = "azure"
	ProviderGCP       = "gcp"
)

// TimeRange is the inclusive date range (YYYY-MM-DD) a summary covers.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ServiceCost is the accumulated cost of one service over the whole range.
type ServiceCost struct {
	Cost float64 `json:"cost"`
	Unit string  `json:"unit"`
}

// DateServiceCost is the cost of one service on one day.
type DateServiceCost struct {
	ServiceName string  `json:"serviceName"`
	Cost        float64 `json:"cost"`
}

// CostSummary is the normalized shape every provider's billing response is reduced to.
// TotalCost always equals the sum of CostsByService.
type CostSummary struct {
	TotalCost      float64                      `json:"totalCost"`
	CostsByService map[string]*ServiceCost      `json:"costsByService"`
	CostsByDate    map[string][]DateServiceCost `json:"costsByDate"`
	TimeRange      TimeRange                    `json:"timeRange"`
}

// New returns an empty summary for the given range.
func New(start, end string) *CostSummary {
	return &CostSummary{
		CostsByService: map[string]*ServiceCost{},
		CostsByDate:    map[string][]DateServiceCost{},
		TimeRange:      TimeRange{Start: start, End: end},
	}
}

// Add records cost for service on date. The first unit seen for a service wins.
func (s *CostSummary) Add(date, service string, cost float64, unit string) {
	sc, ok := s.CostsByService[service]
	if !ok {
		sc = &ServiceCost{Unit: unit}
		s.CostsByService[service] = sc
	}
	sc.Cost += cost
	s.TotalCost += cost
	s.CostsByDate[date] = append(s.CostsByDate[date], DateServiceCost{ServiceName: service, Cost: cost})
}

// ModelUsage is token and cost usage of a single model (OpenAI usage summary).
type ModelUsage struct {
	Cost   float64 `json:"cost"`
	Tokens int64   `json:"tokens"`
}

// UsageSummary is the OpenAI usage rollup.
type UsageSummary struct {
	TotalCost    float64                `json:"totalCost"`
	TotalTokens  int64                  `json:"totalTokens"`
	UsageByModel map[string]*ModelUsage `json:"usageByModel"`
}

// ServiceTokens is token and cost usage of a Cursor service.
type ServiceTokens struct {
	Tokens int64   `json:"tokens"`
	Cost   float64 `json:"cost"`
}

// CursorSummary is the Cursor usage rollup.
type CursorSummary struct {
	TotalTokens    int64                    `json:"totalTokens"`
	TotalCost      float64                  `json:"totalCost"`
	Currency       string                   `json:"currency"`
	CostsByService map[string]ServiceTokens `json:"costsByService"`
	TimeRange      TimeRange                `json:"timeRange"`
}

// ModelTokens is per-model usage reported by the LLM billing endpoints.
type ModelTokens struct {
	InputTokens  int64   `json:"inputTokens"`
	OutputTokens int64   `json:"outputTokens"`
	Cost         float64 `json:"cost"`
}

// UsageRecord is one request in a model provider's usage history.
type UsageRecord struct {
	ID           string  `json:"id"`
	Timestamp    string  `json:"timestamp"`
	Model        string  `json:"model"`
	InputTokens  int64   `json:"inputTokens"`
	OutputTokens int64   `json:"outputTokens"`
	Cost         float64 `json:"cost"`
	RequestID    string  `json:"requestId"`
}

// BillingData is the normalized Anthropic / Cohere / Gemini billing payload.
type BillingData struct {
	TotalCost    float64                `json:"totalCost"`
	UsageByModel map[string]ModelTokens `json:"usageByModel"`
	UsageHistory []UsageRecord          `json:"usageHistory"`
}

// Merge adds every daily entry of o to s, in date order.
func (s *CostSummary) Merge(o *CostSummary) {
	if o == nil {
		return
	}
	dates := make([]string, 0, len(o.CostsByDate))
	for d := range o.CostsByDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		for _, e := range o.CostsByDate[d] {
			unit := ""
			if sc, ok := o.CostsByService[e.ServiceName]; ok {
				unit = sc.Unit
			}
			s.Add(d, e.ServiceName, e.Cost, unit)
		}
	}
}
