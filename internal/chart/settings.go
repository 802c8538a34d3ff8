package chart

import (
	"fmt"
	"time"
)

// Settings is the flat configuration-file shape of Options.
type Settings struct {
	MarginTop    int    `mapstructure:"margin-top"`
	MarginRight  int    `mapstructure:"margin-right"`
	MarginBottom int    `mapstructure:"margin-bottom"`
	MarginLeft   int    `mapstructure:"margin-left"`
	Height       int    `mapstructure:"chart-height"`
	TickCount    int    `mapstructure:"tick-count"`
	ValueFormat  string `mapstructure:"value-format"`
	DateFormat   string `mapstructure:"date-format"`
	TimeZone     string `mapstructure:"time-zone"`
}

// DefaultSettings mirrors DefaultOptions.
func DefaultSettings() Settings {
	return Settings{
		MarginTop:    DefaultMargin.Top,
		MarginRight:  DefaultMargin.Right,
		MarginBottom: DefaultMargin.Bottom,
		MarginLeft:   DefaultMargin.Left,
		Height:       DefaultHeight,
		TickCount:    DefaultTickCount,
		ValueFormat:  DefaultValueFormat,
		DateFormat:   DefaultDateFormat,
		TimeZone:     "UTC",
	}
}

// Options resolves the time zone and validates the result.
func (s Settings) Options() (Options, error) {
	loc := time.UTC
	if s.TimeZone != "" {
		l, err := time.LoadLocation(s.TimeZone)
		if err != nil {
			return Options{}, fmt.Errorf("chart: time-zone %q: %w", s.TimeZone, err)
		}
		loc = l
	}
	o := Options{
		Margin: Margin{
			Top:    s.MarginTop,
			Right:  s.MarginRight,
			Bottom: s.MarginBottom,
			Left:   s.MarginLeft,
		},
		Height:      s.Height,
		TickCount:   s.TickCount,
		ValueFormat: s.ValueFormat,
		DateFormat:  s.DateFormat,
		Location:    loc,
	}
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}
