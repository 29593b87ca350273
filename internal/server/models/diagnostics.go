package models

import "time"

// Diagnostics is the payload of a store health probe.
type Diagnostics struct {
	ID        string    `json:"id"`
	Backend   string    `json:"backend"`
	State     string    `json:"state"`
	Latency   string    `json:"latency"`
	CheckedAt time.Time `json:"checkedAt"`
}
