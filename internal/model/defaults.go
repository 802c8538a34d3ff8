package model

import "time"

// Shared defaults used by both the server and CLI binaries.
const (
	DefaultSyncInterval   = 5 * time.Minute
	DefaultUpdateInterval = 30 * time.Second
	DefaultCounterLimit   = 12
	DefaultChartWidth     = 720
	DefaultResizeDebounce = 200 * time.Millisecond
)
