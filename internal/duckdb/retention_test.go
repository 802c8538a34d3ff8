package duckdb

import (
	"testing"
	"time"

	"github.com/tinytelemetry/reqchart/internal/model"
)

func TestRetentionCutoff(t *testing.T) {
	tests := []struct {
		now    time.Time
		months int
		want   time.Time
	}{
		{time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC), 2, month(2024, time.March)},
		{time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), 3, month(2023, time.November)},
		{time.Date(2024, 1, 31, 23, 0, 0, 0, time.FixedZone("X", -3*3600)), 0, month(2024, time.February)},
	}
	for _, tt := range tests {
		if got := RetentionCutoff(tt.now, tt.months); !got.Equal(tt.want) {
			t.Errorf("RetentionCutoff(%s, %d) = %s, want %s", tt.now, tt.months, got, tt.want)
		}
	}
}

func TestRetentionCleaner_DeletesOnStartup(t *testing.T) {
	store := newTestStore(t)
	upsert(t, store,
		model.Counter{StartTime: month(2023, time.December), Total: 1},
		model.Counter{StartTime: month(2024, time.March), Total: 2},
		model.Counter{StartTime: month(2024, time.May), Total: 3},
	)

	now := func() time.Time { return time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC) }
	cleaner := NewRetentionCleaner(store, RetentionConfig{RetentionMonths: 2, Now: now})
	if cleaner == nil {
		t.Fatal("expected non-nil retention cleaner")
	}
	t.Cleanup(cleaner.Stop)

	got, err := store.ListCounters(0)
	if err != nil {
		t.Fatalf("ListCounters: %v", err)
	}
	if len(got) != 2 || got[0].StartTime.Month() != time.March {
		t.Errorf("after cleanup = %+v, want March and May 2024", got)
	}
}

func TestRetentionCleaner_Disabled(t *testing.T) {
	store := newTestStore(t)
	if c := NewRetentionCleaner(store, RetentionConfig{RetentionMonths: 0}); c != nil {
		t.Error("expected nil cleaner when retention is disabled")
	}
}

func TestRetentionCleaner_StopIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	cleaner := NewRetentionCleaner(store, RetentionConfig{RetentionMonths: 1})
	if cleaner == nil {
		t.Fatal("expected non-nil retention cleaner")
	}

	cleaner.Stop()
	cleaner.Stop()
}
