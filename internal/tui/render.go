package tui

import (
	"math"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/reqchart/internal/chart"
)

// plotLayout sizes the plot in terminal cells. Axis labels live outside it.
func plotLayout(cols, rows int) chart.Layout {
	return chart.Layout{OuterWidth: max(cols, 0), OuterHeight: max(rows, 0)}
}

// barGeometry converts band geometry into whole cells.
func barGeometry(f *chart.Frame) (width, gap int) {
	step := int(f.Categories.Step())
	width = int(f.Categories.Bandwidth())
	if step >= 3 {
		gap = max(1, step-width)
		width = step - gap
	}
	return max(width, 1), gap
}

// renderBars draws the frame's bars with ntcharts. The value axis domain
// starts at zero and ends at the largest total, which is the barchart's own
// automatic range.
func renderBars(f *chart.Frame, rows int) string {
	if len(f.Bars) == 0 || rows <= 0 {
		return ""
	}
	width, gap := barGeometry(f)
	cols := len(f.Bars)*(width+gap) - gap

	bc := barchart.New(cols, rows,
		barchart.WithBarGap(gap),
		barchart.WithBarWidth(width),
		barchart.WithNoAxis(),
	)
	for _, b := range f.Bars {
		bc.Push(barchart.BarData{
			Values: []barchart.BarValue{{
				Name:  b.StartTime.Format("2006-01"),
				Value: float64(b.Total),
				Style: barStyle,
			}},
		})
	}
	bc.Draw()

	// Offset bars by the band scale's outer alignment.
	lead := int(f.Bars[0].X)
	if lead <= 0 {
		return bc.View()
	}
	pad := strings.Repeat(" ", lead)
	lines := strings.Split(bc.View(), "\n")
	for i := range lines {
		lines[i] = pad + lines[i]
	}
	return strings.Join(lines, "\n")
}

// renderValueAxis places value tick labels on the rows their positions map to.
func renderValueAxis(f *chart.Frame, rows int) (string, int) {
	labels := make([]string, rows)
	width := 0
	for _, t := range f.ValueTicks {
		row := int(math.Round(t.Position))
		if row >= rows {
			row = rows - 1
		}
		if row < 0 {
			continue
		}
		labels[row] = "─ " + t.Label
		width = max(width, lipgloss.Width(labels[row]))
	}
	return axisStyle.Render(strings.Join(labels, "\n")), width
}

// renderTimeAxis centres each date label on its tick, dropping labels that
// would overlap the previous one.
func renderTimeAxis(f *chart.Frame, cols int) string {
	line := []rune(strings.Repeat(" ", max(cols, 0)))
	next := 0
	for _, t := range f.TimeTicks {
		label := []rune(t.Label)
		start := int(t.Position) - len(label)/2
		if start < next {
			continue
		}
		if start+len(label) > len(line) {
			break
		}
		copy(line[start:], label)
		next = start + len(label) + 1
	}
	return axisStyle.Render(strings.TrimRight(string(line), " "))
}
