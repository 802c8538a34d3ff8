package chart

import (
	"fmt"
	"math"
	"time"
)

// Bar is the geometry of one sample's rectangle in plot coordinates.
type Bar struct {
	StartTime time.Time
	Total     int64
	X         float64
	Y         float64
	Width     float64
	Height    float64
}

// Tick is one labelled axis position in plot coordinates.
type Tick struct {
	Value    float64
	Time     time.Time
	Position float64
	Label    string
}

// Frame is everything a surface needs to draw one render: the layout, the
// derived scales and the resulting bar and tick geometry.
type Frame struct {
	Layout      Layout
	InnerWidth  float64
	InnerHeight float64
	Values      LinearScale
	Categories  BandScale
	Bars        []Bar
	ValueTicks  []Tick
	TimeTicks   []Tick
}

// Compute derives scales for ds within layout and lays out bars and ticks.
// It never fails on data: an empty dataset yields an empty plot. Errors only
// come from invalid format options.
func Compute(ds Dataset, layout Layout, opts Options) (*Frame, error) {
	opts = opts.normalized()
	dates, err := NewDateFormatter(opts.DateFormat, opts.Location)
	if err != nil {
		return nil, err
	}

	innerW, innerH := layout.InnerWidth(), layout.InnerHeight()
	values, categories := BuildScales(ds, innerW, innerH)

	valueLabel, err := values.TickFormat(opts.TickCount, opts.ValueFormat)
	if err != nil {
		return nil, err
	}

	f := &Frame{
		Layout:      layout,
		InnerWidth:  innerW,
		InnerHeight: innerH,
		Values:      values,
		Categories:  categories,
		Bars:        make([]Bar, 0, len(ds)),
	}

	bw := categories.Bandwidth()
	for _, s := range ds {
		x, ok := categories.Scale(s.StartTime)
		if !ok {
			return nil, fmt.Errorf("chart: start time %s missing from category scale", s.StartTime)
		}
		y := values.Scale(float64(s.Total))
		f.Bars = append(f.Bars, Bar{
			StartTime: s.StartTime,
			Total:     s.Total,
			X:         x,
			Y:         y,
			Width:     bw,
			Height:    innerH - y,
		})
	}

	for _, v := range values.Ticks(opts.TickCount) {
		f.ValueTicks = append(f.ValueTicks, Tick{Value: v, Position: values.Scale(v), Label: valueLabel(v)})
	}

	// Time ticks sit at the centre of each band, using d3's high-DPI offset
	// (bandwidth-1)/2 on purpose so labels match retina renders of the original.
	center := jsRound(math.Max(0, bw-1) / 2)
	for _, t := range categories.Domain() {
		x, _ := categories.Scale(t)
		f.TimeTicks = append(f.TimeTicks, Tick{Time: t, Position: x + center, Label: dates.Format(t)})
	}
	return f, nil
}

// TickCount is the total number of ticks across both axes.
func (f *Frame) TickCount() int {
	return len(f.ValueTicks) + len(f.TimeTicks)
}
