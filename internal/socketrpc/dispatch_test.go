package socketrpc

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/tinytelemetry/reqchart/internal/model"
)

// stubReader returns fixed values for dispatch unit testing.
type stubReader struct {
	gotLimit int
	err      error
}

func (q *stubReader) ListCounters(limit int) ([]model.Counter, error) {
	q.gotLimit = limit
	if q.err != nil {
		return nil, q.err
	}
	return []model.Counter{{StartTime: time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC), Total: 550000}}, nil
}

func (q *stubReader) CounterCount() (int64, error) { return 12, q.err }

func newTestDispatcher() (*Server, *stubReader) {
	q := &stubReader{}
	return &Server{store: q}, q
}

func TestDispatch_AllMethods(t *testing.T) {
	t.Parallel()
	srv, _ := newTestDispatcher()

	tests := []struct {
		method string
		params string
		want   string
	}{
		{"ListCounters", `{"Limit":12}`, `[{"start_time":"2019-03-01T00:00:00Z","total":550000}]`},
		{"CounterCount", `{}`, `12`},
		{"Ping", ``, `"pong"`},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			req := Request{
				JSONRPC: "2.0",
				ID:      1,
				Method:  tt.method,
				Params:  json.RawMessage(tt.params),
			}
			resp := srv.dispatch(req)
			if resp.Error != nil {
				t.Fatalf("dispatch(%s) error: %s", tt.method, resp.Error.Message)
			}
			if string(resp.Result) != tt.want {
				t.Errorf("dispatch(%s) result = %s, want %s", tt.method, resp.Result, tt.want)
			}
			if resp.JSONRPC != "2.0" || resp.ID != 1 {
				t.Errorf("envelope = %q/%d, want 2.0/1", resp.JSONRPC, resp.ID)
			}
		})
	}
}

func TestDispatch_ListCountersForwardsLimit(t *testing.T) {
	srv, q := newTestDispatcher()

	srv.dispatch(Request{JSONRPC: "2.0", ID: 1, Method: "ListCounters", Params: json.RawMessage(`{"Limit":3}`)})
	if q.gotLimit != 3 {
		t.Errorf("limit = %d, want 3", q.gotLimit)
	}

	srv.dispatch(Request{JSONRPC: "2.0", ID: 2, Method: "ListCounters", Params: json.RawMessage(`null`)})
	if q.gotLimit != 0 {
		t.Errorf("null params limit = %d, want 0", q.gotLimit)
	}
}

func TestDispatch_MethodNotFound(t *testing.T) {
	t.Parallel()
	srv, _ := newTestDispatcher()

	resp := srv.dispatch(Request{JSONRPC: "2.0", ID: 1, Method: "TopWords", Params: json.RawMessage(`{}`)})
	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != codeMethodNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, codeMethodNotFound)
	}
}

func TestDispatch_InvalidParams(t *testing.T) {
	t.Parallel()
	srv, _ := newTestDispatcher()

	resp := srv.dispatch(Request{JSONRPC: "2.0", ID: 2, Method: "ListCounters", Params: json.RawMessage(`{"Limit":"many"}`)})
	if resp.Error == nil {
		t.Fatal("expected error for malformed params")
	}
	if resp.Error.Code != codeInvalidParams {
		t.Errorf("error code = %d, want %d", resp.Error.Code, codeInvalidParams)
	}
}

func TestDispatch_ApplicationError(t *testing.T) {
	t.Parallel()
	q := &stubReader{err: errors.New("database is locked")}
	srv := &Server{store: q}

	resp := srv.dispatch(Request{JSONRPC: "2.0", ID: 3, Method: "CounterCount"})
	if resp.Error == nil || resp.Error.Code != codeApplication {
		t.Fatalf("error = %+v, want application error", resp.Error)
	}
	if resp.Error.Message != "database is locked" {
		t.Errorf("message = %q", resp.Error.Message)
	}
}

func TestDispatch_PreservesRequestID(t *testing.T) {
	t.Parallel()
	srv, _ := newTestDispatcher()

	for _, id := range []int{0, 1, 42, 9999} {
		resp := srv.dispatch(Request{JSONRPC: "2.0", ID: id, Method: "Ping"})
		if resp.ID != id {
			t.Errorf("request ID %d: response ID = %d", id, resp.ID)
		}
	}
}
