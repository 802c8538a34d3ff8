package chart

// Layout is the measured geometry of one render. OuterWidth comes from the
// host container; OuterHeight is fixed by Options.Height.
type Layout struct {
	Margin      Margin
	OuterWidth  int
	OuterHeight int
}

// InnerWidth is the plot width between the horizontal margins, never negative.
func (l Layout) InnerWidth() float64 {
	return float64(max(0, l.OuterWidth-l.Margin.Left-l.Margin.Right))
}

// InnerHeight is the plot height between the vertical margins, never negative.
func (l Layout) InnerHeight() float64 {
	return float64(max(0, l.OuterHeight-l.Margin.Top-l.Margin.Bottom))
}
