package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := New()

	r.ObserveRender("svg", 0.001)
	r.ObserveRender("svg", 0.002)
	r.ObserveRender("tui", 0.001)
	r.ObserveRejected("unparseable")
	r.ObserveResizeSignal(false)
	r.ObserveResizeSignal(true)
	r.ObserveResizeSignal(true)
	r.ObserveSync(nil)
	r.ObserveSync(errors.New("sealed"))
	r.SetStoredMonths(12)
	r.SetActiveSessions(2)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"svg renders", testutil.ToFloat64(r.renders.WithLabelValues("svg")), 2},
		{"tui renders", testutil.ToFloat64(r.renders.WithLabelValues("tui")), 1},
		{"rejected", testutil.ToFloat64(r.rejected.WithLabelValues("unparseable")), 1},
		{"scheduled", testutil.ToFloat64(r.resizeSignals.WithLabelValues("scheduled")), 1},
		{"coalesced", testutil.ToFloat64(r.resizeSignals.WithLabelValues("coalesced")), 2},
		{"sync ok", testutil.ToFloat64(r.syncs.WithLabelValues("ok")), 1},
		{"sync error", testutil.ToFloat64(r.syncs.WithLabelValues("error")), 1},
		{"stored", testutil.ToFloat64(r.storedMonths), 12},
		{"sessions", testutil.ToFloat64(r.activeSessions), 2},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveRender("svg", 1)
	r.ObserveRejected("negative")
	r.ObserveResizeSignal(true)
	r.ObserveSync(nil)
	r.SetStoredMonths(1)
	r.SetActiveSessions(1)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("nil handler status = %d, want 404", rec.Code)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.ObserveRender("session", 0.01)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `reqchart_renders_total{surface="session"} 1`) {
		t.Errorf("exposition missing render counter:\n%s", rec.Body.String())
	}
}
