package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/reqchart/internal/chart"
	"github.com/tinytelemetry/reqchart/internal/model"
	"github.com/tinytelemetry/reqchart/internal/scene"
	"github.com/tinytelemetry/reqchart/internal/timestamp"
)

// counterFile accepts both the bare feed and the API envelope.
type counterFile struct {
	Counters []model.RawCounter `yaml:"counters"`
	Data     struct {
		Counters []model.RawCounter `yaml:"counters"`
	} `yaml:"data"`
}

// decodeCounters reads a counters document: a list of counters, a mapping
// with a counters key, or the {data: {counters: ...}} response envelope.
// JSON input parses as YAML.
func decodeCounters(r io.Reader) ([]model.RawCounter, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding counters: %w", err)
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 && doc.Content[0].Kind == yaml.SequenceNode {
		var list []model.RawCounter
		if err := doc.Decode(&list); err != nil {
			return nil, fmt.Errorf("decoding counters: %w", err)
		}
		return list, nil
	}

	var f counterFile
	if err := doc.Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding counters: %w", err)
	}
	if f.Counters != nil {
		return f.Counters, nil
	}
	return f.Data.Counters, nil
}

// renderFile writes the SVG for the counters in r to w and returns the
// samples that were dropped.
func renderFile(r io.Reader, w io.Writer, opts chart.Options, width int) ([]chart.Diagnostic, error) {
	raw, err := decodeCounters(r)
	if err != nil {
		return nil, err
	}
	ds, diags := chart.ParseCounters(raw, timestamp.NewParser())

	h, err := scene.Mount("", opts)
	if err != nil {
		return diags, err
	}
	if _, err := h.Render(ds, opts.Layout(width)); err != nil {
		return diags, err
	}
	return diags, h.WriteSVG(w)
}

func runRender(cfg appConfig, inPath, outPath string, width int) error {
	opts, err := cfg.Chart.Options()
	if err != nil {
		return err
	}
	if width <= 0 {
		width = model.DefaultChartWidth
	}

	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	var out io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	diags, err := renderFile(in, out, opts, width)
	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "warning: %s\n", d)
	}
	return err
}
