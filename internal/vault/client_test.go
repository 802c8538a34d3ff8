package vault

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
)

const testAddress = "http://vault.test:8200"

func newMockedClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	cfg.Address = testAddress
	cfg.HTTPClient = httpClient
	if cfg.RetryWait == 0 {
		cfg.RetryWait = time.Millisecond
	}
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestRequestCounters(t *testing.T) {
	c := newMockedClient(t, Config{Token: "s.root", Namespace: "admin"})

	httpmock.RegisterResponder(http.MethodGet, testAddress+CountersPath,
		func(req *http.Request) (*http.Response, error) {
			if got := req.Header.Get("X-Vault-Token"); got != "s.root" {
				t.Errorf("X-Vault-Token = %q, want s.root", got)
			}
			if got := req.Header.Get("X-Vault-Namespace"); got != "admin" {
				t.Errorf("X-Vault-Namespace = %q, want admin", got)
			}
			return httpmock.NewStringResponse(http.StatusOK, `{"data":{"counters":[
				{"start_time":"2019-05-01T00:00:00Z","total":50000},
				{"start_time":"2019-04-01T00:00:00Z","total":4500}
			]}}`), nil
		})

	counters, err := c.RequestCounters(context.Background())
	if err != nil {
		t.Fatalf("RequestCounters: %v", err)
	}
	if len(counters) != 2 {
		t.Fatalf("counters = %d, want 2", len(counters))
	}
	if counters[0].StartTime != "2019-05-01T00:00:00Z" || counters[0].Total != 50000 {
		t.Errorf("first counter = %+v", counters[0])
	}
	if httpmock.GetTotalCallCount() != 1 {
		t.Errorf("calls = %d, want 1", httpmock.GetTotalCallCount())
	}
}

func TestRequestCounters_PermissionDenied(t *testing.T) {
	c := newMockedClient(t, Config{Token: "bad"})

	httpmock.RegisterResponder(http.MethodGet, testAddress+CountersPath,
		httpmock.NewStringResponder(http.StatusForbidden, `{"errors":["permission denied"]}`))

	_, err := c.RequestCounters(context.Background())
	if err == nil || !strings.Contains(err.Error(), "permission denied") {
		t.Fatalf("error = %v, want permission denied", err)
	}
	if httpmock.GetTotalCallCount() != 1 {
		t.Errorf("4xx should not be retried, calls = %d", httpmock.GetTotalCallCount())
	}
}

func TestRequestCounters_RetriesServerErrors(t *testing.T) {
	c := newMockedClient(t, Config{RetryCount: 2})

	httpmock.RegisterResponder(http.MethodGet, testAddress+CountersPath,
		httpmock.NewStringResponder(http.StatusServiceUnavailable, `{"errors":["sealed"]}`))

	_, err := c.RequestCounters(context.Background())
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("error = %v, want status 503", err)
	}
	if got := httpmock.GetTotalCallCount(); got != 3 {
		t.Errorf("calls = %d, want 3 (1 + 2 retries)", got)
	}
}

func TestRequestCounters_EmptyFeed(t *testing.T) {
	c := newMockedClient(t, Config{})

	httpmock.RegisterResponder(http.MethodGet, testAddress+CountersPath,
		httpmock.NewStringResponder(http.StatusOK, `{"data":{"counters":null}}`))

	counters, err := c.RequestCounters(context.Background())
	if err != nil {
		t.Fatalf("RequestCounters: %v", err)
	}
	if len(counters) != 0 {
		t.Errorf("counters = %v, want empty", counters)
	}
}

func TestRequestCounters_IgnoresContentType(t *testing.T) {
	body := `{"data":{"counters":[{"start_time":"2019-05-01T00:00:00Z","total":50000}]}}`
	for _, contentType := range []string{"", "text/plain", "application/json"} {
		t.Run("content-type "+contentType, func(t *testing.T) {
			c := newMockedClient(t, Config{})
			httpmock.RegisterResponder(http.MethodGet, testAddress+CountersPath,
				func(*http.Request) (*http.Response, error) {
					resp := httpmock.NewStringResponse(http.StatusOK, body)
					if contentType != "" {
						resp.Header.Set("Content-Type", contentType)
					}
					return resp, nil
				})

			counters, err := c.RequestCounters(context.Background())
			if err != nil {
				t.Fatalf("RequestCounters: %v", err)
			}
			if len(counters) != 1 || counters[0].Total != 50000 {
				t.Fatalf("counters = %+v, want one month of 50000", counters)
			}
		})
	}
}

func TestRequestCounters_MalformedSuccess(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no data", `{"request_id":"abc"}`},
		{"no counters", `{"data":{}}`},
		{"not json", `<html>login</html>`},
		{"counters not a list", `{"data":{"counters":{"total":1}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newMockedClient(t, Config{})
			httpmock.RegisterResponder(http.MethodGet, testAddress+CountersPath,
				httpmock.NewStringResponder(http.StatusOK, tt.body))

			counters, err := c.RequestCounters(context.Background())
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("error = %v (counters %v), want ErrMalformedResponse", err, counters)
			}
		})
	}
}

func TestNewClient_RequiresAddress(t *testing.T) {
	if _, err := NewClient(Config{Address: "  "}); !errors.Is(err, ErrNoAddress) {
		t.Errorf("error = %v, want ErrNoAddress", err)
	}
}
