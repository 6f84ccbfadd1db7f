package domain

import "time"

// HealthStatus is the body of the health and readiness probes.
type HealthStatus struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service,omitempty"`
}
