package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/reqchart/internal/chart"
	"github.com/tinytelemetry/reqchart/internal/duckdb"
	"github.com/tinytelemetry/reqchart/internal/metrics"
	"github.com/tinytelemetry/reqchart/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const counterBody = `{"counters":[
	{"start_time":"2019-05-01T00:00:00Z","total":50000},
	{"start_time":"2019-04-01T00:00:00Z","total":4500},
	{"start_time":"2019-03-01T00:00:00Z","total":550000}
]}`

type testEnv struct {
	srv   *Server
	store *duckdb.Store
	r     http.Handler
	clock *clock.Mock
	rec   *metrics.Recorder
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	store, err := duckdb.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	mock := clock.NewMock()
	rec := metrics.New()
	srv := NewServer("", store, Config{
		Options:  chart.DefaultOptions(),
		Metrics:  rec,
		Sessions: SessionConfig{Clock: mock, Debounce: 200 * time.Millisecond},
	})
	t.Cleanup(func() { srv.Stop() })

	return &testEnv{srv: srv, store: store, r: srv.Handler(), clock: mock, rec: rec}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestServer(t)

	w := e.do(t, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]interface{}
	decode(t, w, &body)
	if body["status"] != "ok" {
		t.Errorf("health status = %v, want ok", body["status"])
	}
	if body["months"] != float64(0) {
		t.Errorf("months = %v, want 0", body["months"])
	}
}

func TestHealthEndpoint_WrongMethod(t *testing.T) {
	e := newTestServer(t)

	w := e.do(t, http.MethodPost, "/api/health", "")
	if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusNotFound {
		t.Errorf("health POST status = %d, want 405 or 404", w.Code)
	}
}

func TestIngestAndListCounters(t *testing.T) {
	e := newTestServer(t)

	w := e.do(t, http.MethodPost, "/api/counters", `{"counters":[
		{"start_time":"2019-05-01T00:00:00Z","total":50000},
		{"start_time":"bogus","total":1},
		{"start_time":"2019-04-01T00:00:00Z","total":4500}
	]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("ingest status = %d: %s", w.Code, w.Body.String())
	}
	var res struct {
		Accepted    int `json:"accepted"`
		Diagnostics []struct {
			Index  int    `json:"index"`
			Reason string `json:"reason"`
		} `json:"diagnostics"`
	}
	decode(t, w, &res)
	if res.Accepted != 2 || len(res.Diagnostics) != 1 || res.Diagnostics[0].Index != 1 {
		t.Errorf("ingest result = %+v", res)
	}

	w = e.do(t, http.MethodGet, "/api/counters", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list struct {
		Counters []struct {
			StartTime time.Time `json:"start_time"`
			Total     int64     `json:"total"`
		} `json:"counters"`
	}
	decode(t, w, &list)
	if len(list.Counters) != 2 {
		t.Fatalf("counters = %d, want 2", len(list.Counters))
	}
	if list.Counters[0].StartTime.Month() != time.April || list.Counters[1].Total != 50000 {
		t.Errorf("counters = %+v", list.Counters)
	}

	w = e.do(t, http.MethodGet, "/api/counters?limit=1", "")
	decode(t, w, &list)
	if len(list.Counters) != 1 || list.Counters[0].StartTime.Month() != time.May {
		t.Errorf("limit=1 counters = %+v", list.Counters)
	}
}

func TestIngestCounters_BadRequest(t *testing.T) {
	e := newTestServer(t)

	for _, body := range []string{`not json`, `{}`} {
		w := e.do(t, http.MethodPost, "/api/counters", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
	if w := e.do(t, http.MethodGet, "/api/counters?limit=x", ""); w.Code != http.StatusBadRequest {
		t.Errorf("limit=x status = %d, want 400", w.Code)
	}
}

func TestChartSVG(t *testing.T) {
	e := newTestServer(t)
	e.do(t, http.MethodPost, "/api/counters", counterBody)

	w := e.do(t, http.MethodGet, "/api/chart.svg?width=720&id=usage", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "image/svg+xml") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	if got := strings.Count(body, `class="bar"`); got != 3 {
		t.Errorf("bars = %d, want 3", got)
	}
	if got := strings.Count(body, `class="tick"`); got != 6 {
		t.Errorf("ticks = %d, want 6", got)
	}
	for _, want := range []string{`id="usage"`, "Mar 2019", "May 2019", "200k", `url(#usage-clip-bar-rects)`} {
		if !strings.Contains(body, want) {
			t.Errorf("svg missing %q", want)
		}
	}
}

func TestChartSVG_BadWidth(t *testing.T) {
	e := newTestServer(t)
	for _, q := range []string{"abc", "-1", "999999"} {
		if w := e.do(t, http.MethodGet, "/api/chart.svg?width="+q, ""); w.Code != http.StatusBadRequest {
			t.Errorf("width=%s status = %d, want 400", q, w.Code)
		}
	}
}

func TestChartSVG_Empty(t *testing.T) {
	e := newTestServer(t)

	w := e.do(t, http.MethodGet, "/api/chart.svg", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), `class="bar"`) {
		t.Error("empty store should render no bars")
	}
}

type sessionInfo struct {
	ID      string `json:"id"`
	Width   int    `json:"width"`
	Renders int    `json:"renders"`
	Pending bool   `json:"pending"`
}

func (e *testEnv) mount(t *testing.T, width string) sessionInfo {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/sessions", `{"width":`+width+`}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("mount status = %d: %s", w.Code, w.Body.String())
	}
	var info sessionInfo
	decode(t, w, &info)
	return info
}

func (e *testEnv) waitInfo(t *testing.T, id string, ok func(sessionInfo) bool) sessionInfo {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var info sessionInfo
	for time.Now().Before(deadline) {
		decode(t, e.do(t, http.MethodGet, "/api/sessions/"+id, ""), &info)
		if ok(info) {
			return info
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session %s never reached expected state, last = %+v", id, info)
	return info
}

func TestSessionLifecycle(t *testing.T) {
	e := newTestServer(t)
	e.do(t, http.MethodPost, "/api/counters", counterBody)

	info := e.mount(t, "720")
	if info.Width != 720 || info.Renders != 1 {
		t.Fatalf("mounted = %+v, want width 720 after one render", info)
	}

	// A burst of resizes collapses into one render at the last width.
	for _, width := range []string{"500", "420", "360"} {
		w := e.do(t, http.MethodPost, "/api/sessions/"+info.ID+"/resize", `{"width":`+width+`}`)
		if w.Code != http.StatusAccepted {
			t.Fatalf("resize status = %d: %s", w.Code, w.Body.String())
		}
		e.clock.Add(50 * time.Millisecond)
	}
	e.clock.Add(200 * time.Millisecond)

	got := e.waitInfo(t, info.ID, func(s sessionInfo) bool { return s.Width == 360 })
	if got.Renders != 2 {
		t.Errorf("renders = %d, want 2", got.Renders)
	}

	w := e.do(t, http.MethodGet, "/api/sessions/"+info.ID+"/chart.svg", "")
	if w.Code != http.StatusOK {
		t.Fatalf("svg status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `viewBox="0 0 324 204"`) {
		t.Errorf("svg not re-laid out for width 360:\n%s", w.Body.String())
	}

	if w := e.do(t, http.MethodDelete, "/api/sessions/"+info.ID, ""); w.Code != http.StatusNoContent {
		t.Fatalf("unmount status = %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/sessions/"+info.ID+"/resize", `{"width":100}`); w.Code != http.StatusNotFound {
		t.Errorf("resize after unmount status = %d, want 404", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/api/sessions/"+info.ID+"/chart.svg", ""); w.Code != http.StatusNotFound {
		t.Errorf("svg after unmount status = %d, want 404", w.Code)
	}
	if w := e.do(t, http.MethodDelete, "/api/sessions/"+info.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("second unmount status = %d, want 404", w.Code)
	}
}

func TestUnmountCancelsPendingResize(t *testing.T) {
	e := newTestServer(t)
	info := e.mount(t, "720")

	e.do(t, http.MethodPost, "/api/sessions/"+info.ID+"/resize", `{"width":300}`)
	sess, err := e.srv.Sessions().Get(info.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if w := e.do(t, http.MethodDelete, "/api/sessions/"+info.ID, ""); w.Code != http.StatusNoContent {
		t.Fatalf("unmount status = %d", w.Code)
	}

	e.clock.Add(time.Second)
	time.Sleep(20 * time.Millisecond)
	if got := sess.Handle().Renders(); got != 1 {
		t.Errorf("renders after unmount = %d, want 1", got)
	}
}

func TestResize_BadRequest(t *testing.T) {
	e := newTestServer(t)
	info := e.mount(t, "720")

	for _, body := range []string{`{}`, `{"width":-5}`, `nope`} {
		w := e.do(t, http.MethodPost, "/api/sessions/"+info.ID+"/resize", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
	if w := e.do(t, http.MethodPost, "/api/sessions/missing/resize", `{"width":10}`); w.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d, want 404", w.Code)
	}
}

func TestIngestRefreshesSessions(t *testing.T) {
	e := newTestServer(t)
	info := e.mount(t, "720")

	svg := e.do(t, http.MethodGet, "/api/sessions/"+info.ID+"/chart.svg", "").Body.String()
	if strings.Contains(svg, `class="bar"`) {
		t.Fatal("empty store should mount with no bars")
	}

	e.do(t, http.MethodPost, "/api/counters", counterBody)

	svg = e.do(t, http.MethodGet, "/api/sessions/"+info.ID+"/chart.svg", "").Body.String()
	if got := strings.Count(svg, `class="bar"`); got != 3 {
		t.Errorf("bars after ingest = %d, want 3", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestServer(t)
	e.do(t, http.MethodGet, "/api/chart.svg", "")
	e.mount(t, "400")

	w := e.do(t, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{`reqchart_renders_total{surface="svg"} 1`, `reqchart_active_sessions 1`} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

type fixedStore struct {
	counters []model.Counter
}

func (f fixedStore) ListCounters(int) ([]model.Counter, error) { return f.counters, nil }
func (f fixedStore) CounterCount() (int64, error)             { return int64(len(f.counters)), nil }
func (f fixedStore) UpsertCounters([]model.Counter) error      { return nil }

func TestChartSVG_CountsRejectedStoredSamples(t *testing.T) {
	may := time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)
	store := fixedStore{counters: []model.Counter{
		{StartTime: may.AddDate(0, -1, 0), Total: -3},
		{StartTime: may, Total: 50000},
		{StartTime: may, Total: 60000},
	}}
	rec := metrics.New()
	srv := NewServer("", store, Config{Options: chart.DefaultOptions(), Metrics: rec})
	t.Cleanup(func() { srv.Stop() })

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chart.svg", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if n := strings.Count(w.Body.String(), `class="bar"`); n != 1 {
		t.Errorf("bars = %d, want 1", n)
	}

	m := httptest.NewRecorder()
	rec.Handler().ServeHTTP(m, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	for _, want := range []string{
		`reqchart_rejected_samples_total{reason="negative_total"} 1`,
		`reqchart_rejected_samples_total{reason="duplicate_start_time"} 1`,
	} {
		if !strings.Contains(m.Body.String(), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
