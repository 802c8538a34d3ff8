package chart

import (
	"fmt"
	"time"

	"github.com/tinytelemetry/reqchart/internal/model"
	"github.com/tinytelemetry/reqchart/internal/timestamp"
)

// Sample is one monthly point of the chart.
type Sample = model.Counter

// Dataset is an ordered sequence of samples, unique by StartTime. The order
// is the display order; it is never re-sorted.
type Dataset []Sample

// MaxTotal returns the largest total, or 0 for an empty dataset.
func (d Dataset) MaxTotal() int64 {
	var m int64
	for _, s := range d {
		if s.Total > m {
			m = s.Total
		}
	}
	return m
}

// StartTimes returns the category keys in dataset order.
func (d Dataset) StartTimes() []time.Time {
	keys := make([]time.Time, len(d))
	for i, s := range d {
		keys[i] = s.StartTime
	}
	return keys
}

// Rejection reasons reported in a Diagnostic.
const (
	ReasonUnparseable = "unparseable_start_time"
	ReasonNegative    = "negative_total"
	ReasonDuplicate   = "duplicate_start_time"
)

// Diagnostic describes one sample dropped from a dataset.
type Diagnostic struct {
	Index     int    `json:"index"`
	StartTime string `json:"start_time"`
	Reason    string `json:"reason"`
	Detail    string `json:"detail,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Detail != "" {
		return fmt.Sprintf("sample %d (%s): %s: %s", d.Index, d.StartTime, d.Reason, d.Detail)
	}
	return fmt.Sprintf("sample %d (%s): %s", d.Index, d.StartTime, d.Reason)
}

// ParseCounters converts the raw feed into a Dataset. Samples whose
// start_time cannot be parsed, whose total is negative, or whose start_time
// repeats an earlier sample are dropped and reported; the rest keep their
// input order.
func ParseCounters(raw []model.RawCounter, parser *timestamp.Parser) (Dataset, []Diagnostic) {
	if parser == nil {
		parser = timestamp.NewParser()
	}
	var diags []Diagnostic
	parsed := make([]model.Counter, 0, len(raw))
	indexes := make([]int, 0, len(raw))
	for i, rc := range raw {
		t, err := parser.Parse(rc.StartTime)
		if err != nil {
			diags = append(diags, Diagnostic{Index: i, StartTime: rc.StartTime, Reason: ReasonUnparseable, Detail: err.Error()})
			continue
		}
		parsed = append(parsed, model.Counter{StartTime: t, Total: rc.Total})
		indexes = append(indexes, i)
	}
	ds, more := validate(parsed, indexes)
	return ds, append(diags, more...)
}

// FromCounters applies the same total and uniqueness checks to counters that
// are already parsed (for example, read back from the store).
func FromCounters(counters []model.Counter) (Dataset, []Diagnostic) {
	indexes := make([]int, len(counters))
	for i := range counters {
		indexes[i] = i
	}
	return validate(counters, indexes)
}

func validate(counters []model.Counter, indexes []int) (Dataset, []Diagnostic) {
	var diags []Diagnostic
	ds := make(Dataset, 0, len(counters))
	seen := make(map[int64]struct{}, len(counters))
	for i, c := range counters {
		label := c.StartTime.UTC().Format(time.RFC3339)
		if c.Total < 0 {
			diags = append(diags, Diagnostic{Index: indexes[i], StartTime: label, Reason: ReasonNegative, Detail: fmt.Sprintf("total %d", c.Total)})
			continue
		}
		key := c.StartTime.UnixNano()
		if _, dup := seen[key]; dup {
			diags = append(diags, Diagnostic{Index: indexes[i], StartTime: label, Reason: ReasonDuplicate})
			continue
		}
		seen[key] = struct{}{}
		ds = append(ds, c)
	}
	return ds, diags
}
