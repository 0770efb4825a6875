package domain

// StatsReport aggregates task counts across all tenants. Only admins may
// request it.
type StatsReport struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByPriority map[string]int `json:"by_priority"`
}
