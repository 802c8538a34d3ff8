package chart

import (
	"fmt"
	"time"
)

// Margin holds the plot-area insets in SVG user units.
type Margin struct {
	Top    int `mapstructure:"top" yaml:"top" json:"top"`
	Right  int `mapstructure:"right" yaml:"right" json:"right"`
	Bottom int `mapstructure:"bottom" yaml:"bottom" json:"bottom"`
	Left   int `mapstructure:"left" yaml:"left" json:"left"`
}

// DefaultMargin leaves room for the bottom time axis and the right value axis.
var DefaultMargin = Margin{Top: 12, Right: 12, Bottom: 24, Left: 24}

const (
	DefaultHeight       = 240
	DefaultTickCount    = 3
	DefaultValueFormat  = ".0s"
	DefaultDateFormat   = "%b %Y"
	DefaultPaddingInner = 0.04
)

// Options parameterises the chart. Every field has an enumerated effect:
// Margin insets the plot area, Height fixes the outer height, TickCount sets
// the value-axis density, ValueFormat and DateFormat pick the tick label
// patterns and Location is the zone time labels are printed in.
type Options struct {
	Margin      Margin
	Height      int
	TickCount   int
	ValueFormat string
	DateFormat  string
	Location    *time.Location
}

// DefaultOptions returns the stock chart configuration.
func DefaultOptions() Options {
	return Options{
		Margin:      DefaultMargin,
		Height:      DefaultHeight,
		TickCount:   DefaultTickCount,
		ValueFormat: DefaultValueFormat,
		DateFormat:  DefaultDateFormat,
		Location:    time.UTC,
	}
}

// normalized fills zero-valued fields with defaults. Margins are kept as
// given since a zero inset is meaningful.
func (o Options) normalized() Options {
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.TickCount <= 0 {
		o.TickCount = DefaultTickCount
	}
	if o.ValueFormat == "" {
		o.ValueFormat = DefaultValueFormat
	}
	if o.DateFormat == "" {
		o.DateFormat = DefaultDateFormat
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

// Validate reports option combinations that cannot produce a chart.
func (o Options) Validate() error {
	n := o.normalized()
	m := n.Margin
	if m.Top < 0 || m.Right < 0 || m.Bottom < 0 || m.Left < 0 {
		return fmt.Errorf("chart: negative margin %+v", m)
	}
	if m.Top+m.Bottom >= n.Height {
		return fmt.Errorf("chart: vertical margins %d+%d leave no room in height %d", m.Top, m.Bottom, n.Height)
	}
	if _, err := parseSpecifier(n.ValueFormat); err != nil {
		return err
	}
	if _, err := NewDateFormatter(n.DateFormat, n.Location); err != nil {
		return err
	}
	return nil
}

// Layout returns the layout for a container of the given measured width.
func (o Options) Layout(containerWidth int) Layout {
	n := o.normalized()
	if containerWidth < 0 {
		containerWidth = 0
	}
	return Layout{
		Margin:      n.Margin,
		OuterWidth:  containerWidth,
		OuterHeight: n.Height,
	}
}
