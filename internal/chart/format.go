package chart

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
)

// siPrefixes are indexed by exponent/3 + 8.
var siPrefixes = []string{"y", "z", "a", "f", "p", "n", "µ", "m", "", "k", "M", "G", "T", "P", "E", "Z", "Y"}

// minus is the typographic minus sign used for negative labels.
const minus = "−"

// specifierPattern accepts the subset of the d3-format grammar the value axis
// needs: an optional precision, an optional "~" to trim insignificant
// zeros, and a type of s (SI prefix), f (fixed point) or d (integer).
var specifierPattern = regexp.MustCompile(`^(?:\.(\d{1,2}))?(~)?([sfd]?)$`)

type specifier struct {
	precision int // -1 when unset
	trim      bool
	typ       byte
}

func parseSpecifier(s string) (specifier, error) {
	m := specifierPattern.FindStringSubmatch(s)
	if m == nil {
		return specifier{}, fmt.Errorf("chart: invalid value format %q", s)
	}
	spec := specifier{precision: -1, trim: m[2] != "", typ: 'f'}
	if m[3] != "" {
		spec.typ = m[3][0]
	}
	if m[1] != "" {
		p, _ := strconv.Atoi(m[1])
		spec.precision = p
	}
	return spec, nil
}

// TickFormat returns a formatter for the ticks of the domain [start, stop]
// at the given count. For the "s" type every label shares one SI prefix,
// chosen from the larger domain bound, so "[0, 550000]" reads 0k 200k 400k.
// Without an explicit precision, the smallest precision that still tells
// adjacent ticks apart is used.
func TickFormat(start, stop float64, count int, spec string) (func(float64) string, error) {
	sp, err := parseSpecifier(spec)
	if err != nil {
		return nil, err
	}
	step := tickStep(start, stop, count)
	autoPrecision := !math.IsNaN(step) && !math.IsInf(step, 0) && step != 0

	switch sp.typ {
	case 's':
		value := math.Max(math.Abs(start), math.Abs(stop))
		if sp.precision < 0 {
			sp.precision = 0
			if autoPrecision {
				sp.precision = precisionPrefix(step, value)
			}
		}
		return formatPrefix(sp, value), nil
	case 'd':
		return func(v float64) string {
			return signed(v, func(a float64) string { return strconv.FormatFloat(jsRound(a), 'f', 0, 64) })
		}, nil
	default:
		if sp.precision < 0 {
			sp.precision = 0
			if autoPrecision {
				sp.precision = precisionFixed(step)
			}
		}
		p, trim := sp.precision, sp.trim
		return func(v float64) string {
			return signed(v, func(a float64) string { return formatFixed(a, p, trim) })
		}, nil
	}
}

func formatPrefix(sp specifier, value float64) func(float64) string {
	e := clampPrefix(exponent(value))
	k := math.Pow(10, float64(-e))
	prefix := siPrefixes[8+e/3]
	p, trim := sp.precision, sp.trim
	return func(v float64) string {
		return signed(v*k, func(a float64) string { return formatFixed(a, p, trim) }) + prefix
	}
}

func signed(v float64, f func(float64) string) string {
	if v < 0 {
		s := f(-v)
		if strings.Trim(s, "0.") == "" {
			return s
		}
		return minus + s
	}
	return f(v)
}

// formatFixed prints a non-negative value with p decimals, rounding half up.
func formatFixed(a float64, p int, trim bool) string {
	scale := math.Pow(10, float64(p))
	s := strconv.FormatFloat(jsRound(a*scale)/scale, 'f', p, 64)
	if trim && strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

// exponent returns the decimal exponent of |x| in scientific notation.
func exponent(x float64) int {
	x = math.Abs(x)
	if x == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	s := strconv.FormatFloat(x, 'e', -1, 64)
	i := strings.IndexByte(s, 'e')
	e, _ := strconv.Atoi(s[i+1:])
	return e
}

func clampPrefix(exp int) int {
	q := int(math.Floor(float64(exp) / 3))
	return max(-8, min(8, q)) * 3
}

func precisionPrefix(step, value float64) int {
	return max(0, clampPrefix(exponent(value))-exponent(step))
}

func precisionFixed(step float64) int {
	return max(0, -exponent(step))
}

// DateFormatter prints time-axis labels with a strftime pattern in a fixed
// location.
type DateFormatter struct {
	f   *strftime.Strftime
	loc *time.Location
}

// NewDateFormatter compiles pattern (for example "%b %Y").
func NewDateFormatter(pattern string, loc *time.Location) (*DateFormatter, error) {
	f, err := strftime.New(pattern)
	if err != nil {
		return nil, fmt.Errorf("chart: invalid date format %q: %w", pattern, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &DateFormatter{f: f, loc: loc}, nil
}

// Format renders t in the formatter's location.
func (d *DateFormatter) Format(t time.Time) string {
	return d.f.FormatString(t.In(d.loc))
}
