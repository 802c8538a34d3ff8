package duckdb

import (
	"log"
	"sync"
	"time"
)

// RetentionConfig holds configuration for the retention cleaner.
type RetentionConfig struct {
	// RetentionMonths keeps the current month plus this many previous ones.
	RetentionMonths int
	Interval        time.Duration
	Now             func() time.Time
}

// RetentionCleaner periodically deletes months older than the retention window.
type RetentionCleaner struct {
	store    *Store
	months   int
	interval time.Duration
	now      func() time.Time
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewRetentionCleaner creates a cleaner. Returns nil when retention is 0 (disabled).
func NewRetentionCleaner(store *Store, conf ...RetentionConfig) *RetentionCleaner {
	c := RetentionConfig{RetentionMonths: 24, Interval: time.Hour}
	if len(conf) > 0 {
		c.RetentionMonths = conf[0].RetentionMonths
		if conf[0].Interval > 0 {
			c.Interval = conf[0].Interval
		}
		c.Now = conf[0].Now
	}
	if c.RetentionMonths <= 0 {
		return nil
	}
	if c.Now == nil {
		c.Now = time.Now
	}

	rc := &RetentionCleaner{
		store:    store,
		months:   c.RetentionMonths,
		interval: c.Interval,
		now:      c.Now,
		done:     make(chan struct{}),
	}

	// Startup cleanup to catch up after downtime.
	rc.cleanup()

	rc.wg.Add(1)
	go rc.tickLoop()

	return rc
}

// RetentionCutoff returns the first instant kept when retaining months
// previous months relative to now. Month boundaries are taken in UTC.
func RetentionCutoff(now time.Time, months int) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month()-time.Month(months), 1, 0, 0, 0, 0, time.UTC)
}

func (rc *RetentionCleaner) tickLoop() {
	defer rc.wg.Done()
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rc.cleanup()
		case <-rc.done:
			return
		}
	}
}

func (rc *RetentionCleaner) cleanup() {
	cutoff := RetentionCutoff(rc.now(), rc.months)

	rows, err := rc.store.DeleteBefore(cutoff)
	if err != nil {
		log.Printf("duckdb: retention cleanup error: %v", err)
		return
	}
	if rows > 0 {
		log.Printf("duckdb: retention cleanup deleted %d months (before %s)", rows, cutoff.Format("2006-01"))
	}
}

// Stop signals the cleaner to stop and waits for it to finish.
func (rc *RetentionCleaner) Stop() {
	rc.stopOnce.Do(func() {
		close(rc.done)
		rc.wg.Wait()
	})
}
