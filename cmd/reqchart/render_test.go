package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tinytelemetry/reqchart/internal/chart"
)

func TestDecodeCounters_Shapes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want int
	}{
		{
			name: "yaml list",
			doc: `
- start_time: "2019-05-01T00:00:00Z"
  total: 50000
- start_time: "2019-04-01T00:00:00Z"
  total: 4500
`,
			want: 2,
		},
		{
			name: "counters mapping",
			doc: `
counters:
  - start_time: "2019-05-01T00:00:00Z"
    total: 50000
`,
			want: 1,
		},
		{
			name: "json api envelope",
			doc:  `{"data":{"counters":[{"start_time":"2019-05-01T00:00:00Z","total":1},{"start_time":"2019-04-01T00:00:00Z","total":2},{"start_time":"2019-03-01T00:00:00Z","total":3}]}}`,
			want: 3,
		},
		{name: "empty", doc: ``, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeCounters(strings.NewReader(tt.doc))
			if err != nil {
				t.Fatalf("decodeCounters: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("decoded %d counters, want %d", len(got), tt.want)
			}
		})
	}
}

func TestDecodeCounters_Malformed(t *testing.T) {
	if _, err := decodeCounters(strings.NewReader("counters: [unclosed")); err == nil {
		t.Error("expected error for malformed document")
	}
}

func TestRenderFile(t *testing.T) {
	doc := `
counters:
  - start_time: "2019-05-01T00:00:00Z"
    total: 50000
  - start_time: "whenever"
    total: 10
  - start_time: "2019-04-01T00:00:00Z"
    total: 4500
  - start_time: "2019-03-01T00:00:00Z"
    total: 550000
`
	var out bytes.Buffer
	diags, err := renderFile(strings.NewReader(doc), &out, chart.DefaultOptions(), 720)
	if err != nil {
		t.Fatalf("renderFile: %v", err)
	}
	if len(diags) != 1 || diags[0].Reason != chart.ReasonUnparseable {
		t.Errorf("diagnostics = %v, want one unparseable sample", diags)
	}

	svg := out.String()
	if got := strings.Count(svg, `class="bar"`); got != 3 {
		t.Errorf("bars = %d, want 3", got)
	}
	for _, want := range []string{`width="720"`, "May 2019", "400k"} {
		if !strings.Contains(svg, want) {
			t.Errorf("svg missing %q", want)
		}
	}
}
