// Package scene builds and reconciles the SVG scene graph of the monthly
// request bar chart.
//
// A chart is mounted once into a Handle, which owns its root element and the
// ids of its gradient and clip path, so any number of charts can coexist in
// one document. Render may be called any number of times; each call updates
// the existing nodes in place and yields the same document for the same
// dataset and layout.
package scene

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/tinytelemetry/reqchart/internal/chart"
)

const (
	svgNS = "http://www.w3.org/2000/svg"

	// RootClass is the class carried by every chart's root element.
	RootClass = "http-requests-bar-chart"

	gradientColor = "#1563ff"
	tickSize      = 6
	tickPadding   = 3
	// axisOffset puts one-unit strokes on pixel centres.
	axisOffset = 0.5
)

var mountSeq atomic.Uint64

// Handle is a mounted chart. Its node references are fixed at Mount; only
// the attributes and children they own change on Render.
type Handle struct {
	id   string
	opts chart.Options

	mu      sync.Mutex
	root    *Node
	plot    *Node
	xAxis   *Node
	yAxis   *Node
	clip    *Node
	frame   *chart.Frame
	renders int
}

// Mount creates a chart scene. An empty id is replaced with a unique one.
func Mount(id string, opts chart.Options) (*Handle, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if id == "" {
		id = fmt.Sprintf("reqchart-%d", mountSeq.Add(1))
	}

	h := &Handle{id: id, opts: opts}
	gradientID := id + "-bg-gradient"
	clipID := id + "-clip-bar-rects"

	h.root = newNode("svg").
		Set("xmlns", svgNS).
		Set("id", id).
		Set("class", RootClass)

	container := h.root.Append(newNode("g").Set("class", "container"))

	gradient := container.Append(newNode("defs")).
		Append(newNode("linearGradient").
			Set("id", gradientID).
			Set("gradientTransform", "rotate(90)"))
	gradient.Append(newNode("stop").
		Set("stop-color", gradientColor).
		Set("stop-opacity", "0.8").
		Set("offset", "0%"))
	gradient.Append(newNode("stop").
		Set("stop-color", gradientColor).
		Set("stop-opacity", "0.3").
		Set("offset", "100%"))

	h.plot = container.Append(newNode("g").Set("clip-path", "url(#"+clipID+")")).
		Append(newNode("rect").
			Set("class", "plot").
			Set("x", "0").
			Set("y", "0").
			Set("style", "fill: url(#"+gradientID+");"))

	h.xAxis = container.Append(newNode("g").Set("class", "x axis"))
	h.yAxis = container.Append(newNode("g").Set("class", "y axis"))

	h.clip = h.root.Append(newNode("clipPath").Set("id", clipID))
	return h, nil
}

// ID returns the element id of the chart root.
func (h *Handle) ID() string { return h.id }

// Options returns the options the chart was mounted with.
func (h *Handle) Options() chart.Options { return h.opts }

// Render reconciles the scene against ds drawn into layout.
func (h *Handle) Render(ds chart.Dataset, layout chart.Layout) (*chart.Frame, error) {
	f, err := chart.Compute(ds, layout, h.opts)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.root.
		Set("width", strconv.Itoa(layout.OuterWidth)).
		Set("height", strconv.Itoa(layout.OuterHeight)).
		Set("viewBox", fmt.Sprintf("0 0 %s %s", num(f.InnerWidth), num(f.InnerHeight)))

	renderBottomAxis(h.xAxis, f)
	renderRightAxis(h.yAxis, f)

	h.plot.
		Set("width", num(f.InnerWidth)).
		Set("height", num(f.InnerHeight))

	bars := h.clip.reconcile("rect", "bar", len(f.Bars), func() *Node {
		return newNode("rect").Set("class", "bar")
	})
	for i, b := range f.Bars {
		bars[i].
			Set("width", num(b.Width)).
			Set("height", num(b.Height)).
			Set("x", num(b.X)).
			Set("y", num(b.Y))
	}

	h.frame = f
	h.renders++
	return f, nil
}

// Frame returns the geometry of the latest render, or nil before the first.
func (h *Handle) Frame() *chart.Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frame
}

// Renders returns how many times Render has completed.
func (h *Handle) Renders() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.renders
}

// WriteSVG serialises the current scene.
func (h *Handle) WriteSVG(w io.Writer) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	enc := xml.NewEncoder(w)
	if err := h.root.encode(enc); err != nil {
		return fmt.Errorf("scene: encode: %w", err)
	}
	return enc.Flush()
}

// SVG returns the current scene as a standalone document.
func (h *Handle) SVG() ([]byte, error) {
	var buf bytes.Buffer
	if err := h.WriteSVG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Find returns every node below the root matching tag and classes.
func (h *Handle) Find(tag, classes string) []*Node {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.root.FindAll(tag, classes)
}

func renderBottomAxis(g *Node, f *chart.Frame) {
	g.Set("transform", fmt.Sprintf("translate(0,%s)", num(f.InnerHeight))).
		Set("fill", "none").
		Set("font-size", "10").
		Set("font-family", "sans-serif").
		Set("text-anchor", "middle")

	domain := g.reconcile("path", "domain", 1, func() *Node {
		return newNode("path").Set("class", "domain").Set("stroke", "currentColor")
	})[0]
	domain.Set("d", fmt.Sprintf("M%s,%dV%sH%sV%d",
		num(axisOffset), tickSize, num(axisOffset), num(f.InnerWidth+axisOffset), tickSize))

	ticks := g.reconcile("g", "tick", len(f.TimeTicks), newTick)
	for i, t := range f.TimeTicks {
		ticks[i].Set("transform", fmt.Sprintf("translate(%s,0)", num(t.Position+axisOffset)))
		line, text := ticks[i].Children[0], ticks[i].Children[1]
		line.Set("y2", strconv.Itoa(tickSize))
		text.Set("y", strconv.Itoa(tickSize+tickPadding)).Set("dy", "0.71em")
		text.Text = t.Label
	}
}

func renderRightAxis(g *Node, f *chart.Frame) {
	g.Set("transform", fmt.Sprintf("translate(%s,0)", num(f.InnerWidth))).
		Set("fill", "none").
		Set("font-size", "10").
		Set("font-family", "sans-serif").
		Set("text-anchor", "start")

	r0, r1 := f.Values.Range()
	domain := g.reconcile("path", "domain", 1, func() *Node {
		return newNode("path").Set("class", "domain").Set("stroke", "currentColor")
	})[0]
	domain.Set("d", fmt.Sprintf("M%d,%sH%sV%sH%d",
		tickSize, num(r0+axisOffset), num(axisOffset), num(r1+axisOffset), tickSize))

	ticks := g.reconcile("g", "tick", len(f.ValueTicks), newTick)
	for i, t := range f.ValueTicks {
		ticks[i].Set("transform", fmt.Sprintf("translate(0,%s)", num(t.Position+axisOffset)))
		line, text := ticks[i].Children[0], ticks[i].Children[1]
		line.Set("x2", strconv.Itoa(tickSize))
		text.Set("x", strconv.Itoa(tickSize+tickPadding)).Set("dy", "0.32em")
		text.Text = t.Label
	}
}

func newTick() *Node {
	tick := newNode("g").Set("class", "tick").Set("opacity", "1")
	tick.Append(newNode("line").Set("stroke", "currentColor"))
	tick.Append(newNode("text").Set("fill", "currentColor"))
	return tick
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
