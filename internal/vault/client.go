// Package vault fetches the monthly HTTP request counters from a Vault
// server's internal counters endpoint.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tinytelemetry/reqchart/internal/model"
)

// CountersPath is the endpoint serving per-month request totals.
const CountersPath = "/v1/sys/internal/counters/requests"

const (
	defaultTimeout    = 30 * time.Second
	defaultRetryCount = 3
	defaultRetryWait  = 250 * time.Millisecond
	defaultRetryMax   = 5 * time.Second
)

// ErrNoAddress is returned when no Vault address is configured.
var ErrNoAddress = errors.New("vault: address not configured")

// Config holds client parameters.
type Config struct {
	Address    string
	Token      string
	Namespace  string
	Timeout    time.Duration
	RetryCount int
	RetryWait  time.Duration
	// HTTPClient replaces the default transport (tests, custom TLS).
	HTTPClient *http.Client
}

// Client reads request counters from Vault.
type Client struct {
	rest *resty.Client
}

// ErrMalformedResponse is returned when a successful response does not
// carry the counters envelope.
var ErrMalformedResponse = errors.New("vault: malformed counters response")

// Counters stays raw so an absent field can be told apart from null.
type countersResponse struct {
	Data *struct {
		Counters json.RawMessage `json:"counters"`
	} `json:"data"`
}

type errorResponse struct {
	Errors []string `json:"errors"`
}

// NewClient builds a client for cfg.Address.
func NewClient(cfg Config) (*Client, error) {
	address := strings.TrimSuffix(strings.TrimSpace(cfg.Address), "/")
	if address == "" {
		return nil, ErrNoAddress
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.RetryCount
	if retries < 0 {
		retries = 0
	} else if retries == 0 {
		retries = defaultRetryCount
	}
	wait := cfg.RetryWait
	if wait <= 0 {
		wait = defaultRetryWait
	}

	rc.SetBaseURL(address).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(retries).
		SetRetryWaitTime(wait).
		SetRetryMaxWaitTime(defaultRetryMax).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && r.StatusCode() >= http.StatusInternalServerError
		})
	if cfg.Token != "" {
		rc.SetHeader("X-Vault-Token", cfg.Token)
	}
	if cfg.Namespace != "" {
		rc.SetHeader("X-Vault-Namespace", cfg.Namespace)
	}

	rc.OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
		if r.IsError() {
			log.Printf("vault: %s %s -> %d (%s)", r.Request.Method, r.Request.URL, r.StatusCode(), r.Time())
		}
		return nil
	})

	return &Client{rest: rc}, nil
}

// RequestCounters returns the counters feed in the order Vault sent it.
// Bodies are decoded as JSON whatever Content-Type the server declares. A
// 2xx body without data.counters is an error; a null list is an empty feed.
func (c *Client) RequestCounters(ctx context.Context) ([]model.RawCounter, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		Get(CountersPath)
	if err != nil {
		return nil, fmt.Errorf("vault: fetching request counters: %w", err)
	}
	if resp.IsError() {
		var apiErr errorResponse
		if json.Unmarshal(resp.Body(), &apiErr) == nil && len(apiErr.Errors) > 0 {
			return nil, fmt.Errorf("vault: request counters: status %d: %s", resp.StatusCode(), strings.Join(apiErr.Errors, "; "))
		}
		return nil, fmt.Errorf("vault: request counters: status %d", resp.StatusCode())
	}

	var out countersResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if out.Data == nil || len(out.Data.Counters) == 0 {
		return nil, fmt.Errorf("%w: missing data.counters", ErrMalformedResponse)
	}
	var counters []model.RawCounter
	if err := json.Unmarshal(out.Data.Counters, &counters); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if counters == nil {
		counters = []model.RawCounter{}
	}
	return counters, nil
}
