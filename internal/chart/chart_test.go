package chart

import (
	"math"
	"testing"
	"time"

	"github.com/tinytelemetry/reqchart/internal/model"
)

var fixtureCounters = []model.RawCounter{
	{StartTime: "2019-05-01T00:00:00Z", Total: 50000},
	{StartTime: "2019-04-01T00:00:00Z", Total: 4500},
	{StartTime: "2019-03-01T00:00:00Z", Total: 550000},
}

func fixtureDataset(t *testing.T) Dataset {
	t.Helper()
	ds, diags := ParseCounters(fixtureCounters, nil)
	if len(diags) != 0 {
		t.Fatalf("ParseCounters diagnostics: %v", diags)
	}
	return ds
}

func TestCompute_BarAndTickCounts(t *testing.T) {
	ds := fixtureDataset(t)
	opts := DefaultOptions()

	f, err := Compute(ds, opts.Layout(720), opts)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got := len(f.Bars); got != 3 {
		t.Errorf("bars = %d, want 3", got)
	}
	if got := len(f.ValueTicks); got != 3 {
		t.Errorf("value ticks = %d, want 3", got)
	}
	if got := len(f.TimeTicks); got != 3 {
		t.Errorf("time ticks = %d, want 3", got)
	}
	if got := f.TickCount(); got != len(ds)+3 {
		t.Errorf("TickCount = %d, want %d", got, len(ds)+3)
	}
}

func TestCompute_ValueTickLabels(t *testing.T) {
	ds := fixtureDataset(t)
	opts := DefaultOptions()

	f, err := Compute(ds, opts.Layout(720), opts)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want := []string{"0k", "200k", "400k"}
	for i, tick := range f.ValueTicks {
		if tick.Label != want[i] {
			t.Errorf("value tick %d = %q, want %q", i, tick.Label, want[i])
		}
	}
}

func TestCompute_TimeTicksFollowInputOrder(t *testing.T) {
	ds := fixtureDataset(t)

	tests := []struct {
		name string
		loc  *time.Location
		want []string
	}{
		{"UTC", time.UTC, []string{"May 2019", "Apr 2019", "Mar 2019"}},
		{"west of UTC", time.FixedZone("PDT", -7*60*60), []string{"Apr 2019", "Mar 2019", "Feb 2019"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Location = tt.loc
			f, err := Compute(ds, opts.Layout(720), opts)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			for i, tick := range f.TimeTicks {
				if tick.Label != tt.want[i] {
					t.Errorf("time tick %d = %q, want %q", i, tick.Label, tt.want[i])
				}
			}
		})
	}
}

func TestCompute_BarGeometry(t *testing.T) {
	ds := fixtureDataset(t)
	opts := DefaultOptions()

	f, err := Compute(ds, opts.Layout(720), opts)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if f.InnerWidth != 684 || f.InnerHeight != 204 {
		t.Fatalf("inner = %vx%v, want 684x204", f.InnerWidth, f.InnerHeight)
	}

	wantX := []float64{0, 231, 462}
	for i, b := range f.Bars {
		if b.X != wantX[i] {
			t.Errorf("bar %d x = %v, want %v", i, b.X, wantX[i])
		}
		if b.Width != 222 {
			t.Errorf("bar %d width = %v, want 222", i, b.Width)
		}
		if math.Abs(b.Y+b.Height-f.InnerHeight) > 1e-9 {
			t.Errorf("bar %d bottom = %v, want baseline %v", i, b.Y+b.Height, f.InnerHeight)
		}
	}
	tallest := f.Bars[2]
	if tallest.Y != 0 || tallest.Height != 204 {
		t.Errorf("max bar y/height = %v/%v, want 0/204", tallest.Y, tallest.Height)
	}
}

func TestCompute_Idempotent(t *testing.T) {
	ds := fixtureDataset(t)
	opts := DefaultOptions()

	a, err := Compute(ds, opts.Layout(500), opts)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	b, err := Compute(ds, opts.Layout(500), opts)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for i := range a.Bars {
		if a.Bars[i] != b.Bars[i] {
			t.Errorf("bar %d differs between renders: %+v vs %+v", i, a.Bars[i], b.Bars[i])
		}
	}
}

func TestCompute_EmptyDataset(t *testing.T) {
	opts := DefaultOptions()

	f, err := Compute(nil, opts.Layout(720), opts)
	if err != nil {
		t.Fatalf("Compute(empty): %v", err)
	}
	if len(f.Bars) != 0 {
		t.Errorf("bars = %d, want 0", len(f.Bars))
	}
	if len(f.TimeTicks) != 0 {
		t.Errorf("time ticks = %d, want 0", len(f.TimeTicks))
	}
	if f.Categories.Bandwidth() != 0 {
		t.Errorf("bandwidth = %v, want 0", f.Categories.Bandwidth())
	}
}

func TestCompute_ZeroWidthContainer(t *testing.T) {
	ds := fixtureDataset(t)
	opts := DefaultOptions()

	f, err := Compute(ds, opts.Layout(0), opts)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if f.InnerWidth != 0 {
		t.Errorf("inner width = %v, want 0", f.InnerWidth)
	}
	for i, b := range f.Bars {
		if b.Width < 0 || math.IsNaN(b.X) {
			t.Errorf("bar %d has invalid geometry %+v", i, b)
		}
	}
}

func TestCompute_AllZeroTotals(t *testing.T) {
	ds := Dataset{
		{StartTime: time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC), Total: 0},
		{StartTime: time.Date(2019, 4, 1, 0, 0, 0, 0, time.UTC), Total: 0},
	}
	opts := DefaultOptions()

	f, err := Compute(ds, opts.Layout(720), opts)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for i, b := range f.Bars {
		if b.Height != 0 || b.Y != f.InnerHeight {
			t.Errorf("bar %d = %+v, want flat bar on the baseline", i, b)
		}
	}
	if len(f.ValueTicks) != 1 || f.ValueTicks[0].Label != "0" {
		t.Errorf("value ticks = %+v, want single 0", f.ValueTicks)
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr bool
	}{
		{"defaults", func(*Options) {}, false},
		{"zero margins", func(o *Options) { o.Margin = Margin{} }, false},
		{"negative margin", func(o *Options) { o.Margin.Left = -1 }, true},
		{"margins exceed height", func(o *Options) { o.Margin.Top, o.Margin.Bottom = 200, 40 }, true},
		{"bad value format", func(o *Options) { o.ValueFormat = "$,.2r" }, true},
		{"fixed value format", func(o *Options) { o.ValueFormat = ".1f" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.mutate(&o)
			err := o.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
