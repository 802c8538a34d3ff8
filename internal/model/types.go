package model

import "time"

// RawCounter is one entry of the request counters feed as delivered by the
// monitoring endpoint. StartTime is an ISO-8601 date-time string.
type RawCounter struct {
	StartTime string `json:"start_time" yaml:"start_time"`
	Total     int64  `json:"total" yaml:"total"`
}

// Counter is a parsed monthly request total. It is the canonical type for
// storage, transport (socket RPC), and rendering.
type Counter struct {
	StartTime time.Time `json:"start_time"`
	Total     int64     `json:"total"`
}
