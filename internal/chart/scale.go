package chart

import (
	"math"
	"time"
)

// LinearScale maps a continuous domain onto a continuous range by linear
// interpolation.
type LinearScale struct {
	d0, d1 float64
	r0, r1 float64
}

// NewLinearScale returns a scale from [d0, d1] to [r0, r1].
func NewLinearScale(d0, d1, r0, r1 float64) LinearScale {
	return LinearScale{d0: d0, d1: d1, r0: r0, r1: r1}
}

// Scale maps v into the range. A degenerate domain maps everything to the
// start of the range, which for the value axis is the chart baseline.
func (s LinearScale) Scale(v float64) float64 {
	if s.d1 == s.d0 {
		return s.r0
	}
	t := (v - s.d0) / (s.d1 - s.d0)
	return s.r0*(1-t) + s.r1*t
}

func (s LinearScale) Domain() (float64, float64) { return s.d0, s.d1 }
func (s LinearScale) Range() (float64, float64)  { return s.r0, s.r1 }

// Ticks returns roughly count human-friendly values spanning the domain.
func (s LinearScale) Ticks(count int) []float64 {
	return Ticks(s.d0, s.d1, count)
}

// TickFormat returns a label formatter suited to Ticks(count).
func (s LinearScale) TickFormat(count int, specifier string) (func(float64) string, error) {
	return TickFormat(s.d0, s.d1, count, specifier)
}

// BandScale maps an ordered set of time keys onto contiguous, evenly spaced
// bands. Positions are rounded to whole units; outer padding is zero and
// the bands are centred in the range.
type BandScale struct {
	domain    []time.Time
	index     map[int64]int
	start     float64
	step      float64
	bandwidth float64
}

// NewBandScale builds a band scale over domain (kept in the given order,
// repeated keys collapsed onto their first occurrence) for the range
// [r0, r1] with the given inner padding fraction.
func NewBandScale(domain []time.Time, r0, r1, paddingInner float64) BandScale {
	b := BandScale{index: make(map[int64]int, len(domain))}
	for _, t := range domain {
		k := t.UnixNano()
		if _, ok := b.index[k]; ok {
			continue
		}
		b.index[k] = len(b.domain)
		b.domain = append(b.domain, t)
	}

	n := float64(len(b.domain))
	if n == 0 {
		b.start = r0
		return b
	}

	const paddingOuter, align = 0.0, 0.5
	start, stop := r0, r1
	step := (stop - start) / math.Max(1, n-paddingInner+paddingOuter*2)
	step = math.Floor(step)
	start += (stop - start - step*(n-paddingInner)) * align
	b.step = step
	b.start = jsRound(start)
	b.bandwidth = jsRound(step * (1 - paddingInner))
	return b
}

// Scale returns the left edge of t's band.
func (b BandScale) Scale(t time.Time) (float64, bool) {
	i, ok := b.index[t.UnixNano()]
	if !ok {
		return 0, false
	}
	return b.start + b.step*float64(i), true
}

func (b BandScale) Bandwidth() float64   { return b.bandwidth }
func (b BandScale) Step() float64        { return b.step }
func (b BandScale) Domain() []time.Time { return append([]time.Time(nil), b.domain...) }

// BuildScales derives the value and category scales for a dataset drawn
// into an innerWidth × innerHeight plot area.
func BuildScales(ds Dataset, innerWidth, innerHeight float64) (LinearScale, BandScale) {
	values := NewLinearScale(0, float64(ds.MaxTotal()), innerHeight, 0)
	categories := NewBandScale(ds.StartTimes(), 0, innerWidth, DefaultPaddingInner)
	return values, categories
}

// jsRound rounds half up, matching the browser's Math.round.
func jsRound(x float64) float64 {
	return math.Floor(x + 0.5)
}
