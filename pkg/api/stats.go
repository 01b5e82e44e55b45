package api

type StatsResponse struct {
	Pending  int               `json:"pending"`
	Worker   string            `json:"worker"`
	Statuses map[string]uint64 `json:"statuses,omitempty"`
	Jobs     []string          `json:"jobs"`
}
