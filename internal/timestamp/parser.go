package timestamp

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnparseable is returned when no supported ISO-8601 layout matches.
var ErrUnparseable = errors.New("timestamp: unparseable ISO-8601 value")

// defaultLayouts are tried in order. Values without a zone are read as UTC.
var defaultLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02",
	"2006-01",
}

// Parser converts ISO-8601 date-time strings into time values.
type Parser struct {
	layouts []string
}

// NewParser returns a parser accepting the common ISO-8601 shapes emitted
// by counter endpoints (RFC 3339 with or without fractional seconds, compact
// offsets, date-only and year-month values).
func NewParser() *Parser {
	return &Parser{layouts: defaultLayouts}
}

// Parse returns the instant described by value. Surrounding whitespace is
// ignored; anything else that fails every layout yields ErrUnparseable.
func (p *Parser) Parse(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrUnparseable)
	}
	for _, layout := range p.layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, value)
}
