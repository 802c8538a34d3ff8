package chart

import (
	"testing"
	"time"

	"github.com/tinytelemetry/reqchart/internal/model"
)

func TestParseCounters_RejectsMalformedSamples(t *testing.T) {
	raw := []model.RawCounter{
		{StartTime: "2019-05-01T00:00:00Z", Total: 50000},
		{StartTime: "not-a-date", Total: 10},
		{StartTime: "2019-04-01T00:00:00Z", Total: -5},
		{StartTime: "2019-05-01T00:00:00Z", Total: 7},
		{StartTime: "2019-03-01T00:00:00Z", Total: 550000},
	}

	ds, diags := ParseCounters(raw, nil)

	if len(ds) != 2 {
		t.Fatalf("dataset size = %d, want 2", len(ds))
	}
	if ds[0].Total != 50000 || ds[1].Total != 550000 {
		t.Errorf("dataset order/values = %+v", ds)
	}

	wantReasons := map[int]string{1: ReasonUnparseable, 2: ReasonNegative, 3: ReasonDuplicate}
	if len(diags) != len(wantReasons) {
		t.Fatalf("diagnostics = %v, want %d", diags, len(wantReasons))
	}
	for _, d := range diags {
		if wantReasons[d.Index] != d.Reason {
			t.Errorf("diagnostic for index %d = %q, want %q", d.Index, d.Reason, wantReasons[d.Index])
		}
	}
}

func TestParseCounters_KeepsInputOrder(t *testing.T) {
	ds, _ := ParseCounters(fixtureCounters, nil)
	want := []time.Month{time.May, time.April, time.March}
	for i, s := range ds {
		if s.StartTime.Month() != want[i] {
			t.Errorf("sample %d month = %v, want %v", i, s.StartTime.Month(), want[i])
		}
	}
	if got := ds.MaxTotal(); got != 550000 {
		t.Errorf("MaxTotal = %d, want 550000", got)
	}
}

func TestFromCounters(t *testing.T) {
	at := time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)
	ds, diags := FromCounters([]model.Counter{{StartTime: at, Total: 1}, {StartTime: at, Total: 2}})
	if len(ds) != 1 || len(diags) != 1 || diags[0].Reason != ReasonDuplicate {
		t.Errorf("FromCounters = %v, %v; want one sample and one duplicate diagnostic", ds, diags)
	}
	if Dataset(nil).MaxTotal() != 0 {
		t.Error("MaxTotal of empty dataset should be 0")
	}
}
