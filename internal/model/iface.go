package model

// CounterReader is the read side of the counter store.
// Implemented by *duckdb.Store and *socketrpc.Client.
type CounterReader interface {
	// ListCounters returns up to limit of the most recent months, oldest
	// first. A limit <= 0 returns every stored month.
	ListCounters(limit int) ([]Counter, error)
	CounterCount() (int64, error)
}

// CounterWriter is the write side of the counter store.
type CounterWriter interface {
	UpsertCounters(counters []Counter) error
}

// CounterStore combines read and write access.
type CounterStore interface {
	CounterReader
	CounterWriter
}
