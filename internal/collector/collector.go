// Package collector keeps the counter store in sync with an upstream feed.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/tinytelemetry/reqchart/internal/chart"
	"github.com/tinytelemetry/reqchart/internal/duckdb"
	"github.com/tinytelemetry/reqchart/internal/metrics"
	"github.com/tinytelemetry/reqchart/internal/model"
	"github.com/tinytelemetry/reqchart/internal/timestamp"
)

// Source yields the raw counters feed. Implemented by *vault.Client.
type Source interface {
	RequestCounters(ctx context.Context) ([]model.RawCounter, error)
}

// SyncRecorder is implemented by stores that keep a sync history.
type SyncRecorder interface {
	RecordSync(rec duckdb.SyncRecord) error
}

// ErrNoSource is returned by SyncOnce when the collector has no upstream.
var ErrNoSource = errors.New("collector: no source configured")

// Config holds collector parameters.
type Config struct {
	Interval   time.Duration
	SourceName string
	Clock      clock.Clock
	Metrics    *metrics.Recorder
	Parser     *timestamp.Parser
	// OnIngest runs after counters were stored successfully.
	OnIngest func(Result)
}

// Result summarizes one ingest.
type Result struct {
	Accepted    int                `json:"accepted"`
	Diagnostics []chart.Diagnostic `json:"diagnostics,omitempty"`
}

// Collector validates raw counters and writes the accepted ones.
type Collector struct {
	src      Source
	store    model.CounterWriter
	interval time.Duration
	name     string
	clock    clock.Clock
	metrics  *metrics.Recorder
	parser   *timestamp.Parser
	onIngest func(Result)
}

// New creates a collector. src may be nil when counters arrive only via Ingest.
func New(src Source, store model.CounterWriter, conf ...Config) *Collector {
	c := Config{Interval: model.DefaultSyncInterval, SourceName: "vault"}
	if len(conf) > 0 {
		if conf[0].Interval > 0 {
			c.Interval = conf[0].Interval
		}
		if conf[0].SourceName != "" {
			c.SourceName = conf[0].SourceName
		}
		c.Clock = conf[0].Clock
		c.Metrics = conf[0].Metrics
		c.Parser = conf[0].Parser
		c.OnIngest = conf[0].OnIngest
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.Parser == nil {
		c.Parser = timestamp.NewParser()
	}
	return &Collector{
		src:      src,
		store:    store,
		interval: c.Interval,
		name:     c.SourceName,
		clock:    c.Clock,
		metrics:  c.Metrics,
		parser:   c.Parser,
		onIngest: c.OnIngest,
	}
}

// Ingest validates raw and upserts the accepted counters. Rejected samples
// are logged and returned, never written.
func (c *Collector) Ingest(raw []model.RawCounter, source string) (Result, error) {
	ds, diags := chart.ParseCounters(raw, c.parser)
	for _, d := range diags {
		log.Printf("collector: %s: rejected %s", source, d)
		c.metrics.ObserveRejected(d.Reason)
	}

	res := Result{Accepted: len(ds), Diagnostics: diags}
	if err := c.store.UpsertCounters(ds); err != nil {
		return Result{Diagnostics: diags}, fmt.Errorf("collector: storing %d counters: %w", len(ds), err)
	}

	if rec, ok := c.store.(SyncRecorder); ok {
		if err := rec.RecordSync(duckdb.SyncRecord{
			SyncedAt: c.clock.Now(),
			Source:   source,
			Accepted: res.Accepted,
			Rejected: len(diags),
		}); err != nil {
			log.Printf("collector: recording sync: %v", err)
		}
	}
	if counter, ok := c.store.(interface{ CounterCount() (int64, error) }); ok {
		if n, err := counter.CounterCount(); err == nil {
			c.metrics.SetStoredMonths(n)
		}
	}
	if c.onIngest != nil {
		c.onIngest(res)
	}
	return res, nil
}

// SyncOnce fetches the upstream feed and ingests it.
func (c *Collector) SyncOnce(ctx context.Context) (Result, error) {
	if c.src == nil {
		return Result{}, ErrNoSource
	}
	raw, err := c.src.RequestCounters(ctx)
	if err != nil {
		c.metrics.ObserveSync(err)
		return Result{}, err
	}
	res, err := c.Ingest(raw, c.name)
	c.metrics.ObserveSync(err)
	return res, err
}

// Run syncs immediately and then every interval until ctx is done. Sync
// errors are logged and do not stop the loop.
func (c *Collector) Run(ctx context.Context) error {
	if c.src == nil {
		return ErrNoSource
	}
	c.syncAndLog(ctx)

	ticker := c.clock.Ticker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.syncAndLog(ctx)
		}
	}
}

func (c *Collector) syncAndLog(ctx context.Context) {
	res, err := c.SyncOnce(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("collector: sync from %s failed: %v", c.name, err)
		}
		return
	}
	log.Printf("collector: synced %d months from %s (%d rejected)", res.Accepted, c.name, len(res.Diagnostics))
}
