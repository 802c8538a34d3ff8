package duckdb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tinytelemetry/reqchart/internal/model"
)

func TestExportCountersParquet(t *testing.T) {
	store := newTestStore(t)
	upsert(t, store,
		model.Counter{StartTime: month(2019, time.May), Total: 50000},
		model.Counter{StartTime: month(2019, time.March), Total: 550000},
		model.Counter{StartTime: month(2019, time.April), Total: 4500},
	)

	dst := filepath.Join(t.TempDir(), "nested", "counters.parquet")
	if err := store.ExportCounters(context.Background(), dst, FormatParquet); err != nil {
		t.Fatalf("ExportCounters: %v", err)
	}

	var n int
	var first string
	q := fmt.Sprintf("SELECT count(*), min(start_time) FROM read_parquet('%s')", dst)
	if err := store.db.QueryRow(q).Scan(&n, &first); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if n != 3 {
		t.Fatalf("exported rows = %d, want 3", n)
	}
	if first != "2019-03-01T00:00:00Z" {
		t.Fatalf("first start_time = %q", first)
	}
}

func TestExportCountersJSONRoundTrips(t *testing.T) {
	store := newTestStore(t)
	upsert(t, store,
		model.Counter{StartTime: month(2019, time.April), Total: 4500},
		model.Counter{StartTime: month(2019, time.March), Total: 550000},
	)

	dst := filepath.Join(t.TempDir(), "counters.json")
	if err := store.ExportCounters(context.Background(), dst, FormatJSON); err != nil {
		t.Fatalf("ExportCounters: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}

	var got []model.RawCounter
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode export %q: %v", data, err)
	}
	want := []model.RawCounter{
		{StartTime: "2019-03-01T00:00:00Z", Total: 550000},
		{StartTime: "2019-04-01T00:00:00Z", Total: 4500},
	}
	if len(got) != len(want) {
		t.Fatalf("exported %d counters, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("counter %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestExportCountersUnknownFormat(t *testing.T) {
	store := newTestStore(t)
	err := store.ExportCounters(context.Background(), filepath.Join(t.TempDir(), "x.csv"), "csv")
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}
