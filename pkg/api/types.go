// Package api implements the read-only HTTP status API and the Prometheus
// metrics endpoint.
package api

// Response is the standard JSON response envelope.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StatusResponse holds daemon status information.
type StatusResponse struct {
	Uptime     string `json:"uptime"`
	Device     uint32 `json:"device"`
	Backend    string `json:"backend"`
	TableCount int    `json:"table_count"`
	Events     uint64 `json:"events_total,omitempty"`
}

// TableSummary describes one table.
type TableSummary struct {
	Name     string  `json:"name"`
	ID       uint32  `json:"id"`
	Kind     string  `json:"kind"`
	Size     uint32  `json:"size"`
	Idle     string  `json:"idle,omitempty"` // idle mode, empty without idle tracking
	Entries  *uint32 `json:"entries,omitempty"`
	Members  *int    `json:"members,omitempty"`
	Groups   *int    `json:"groups,omitempty"`
	Profile  uint32  `json:"profile,omitempty"`
	Selector uint32  `json:"selector,omitempty"`
}
