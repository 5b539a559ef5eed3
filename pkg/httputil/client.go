// Package httputil provides shared HTTP client construction for the
// outbound REST dependencies (the relational store and the channel
// orchestrator).
package httputil

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// NewClient returns a resty client with a base URL and a per-call timeout.
// Retries are off by default; callers opt in with one of the helpers below.
func NewClient(baseURL string, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)
}

// WithReadRetry enables bounded retry with backoff for GET requests only.
// Writes are never replayed: a store write that already succeeded must not
// be repeated, and a write that failed is surfaced to the caller instead.
func WithReadRetry(client *resty.Client, attempts int) *resty.Client {
	return client.
		SetRetryCount(attempts).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil || r.Request == nil {
				return false
			}
			if r.Request.Method != http.MethodGet {
				return false
			}
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
}

// WithCallRetry enables bounded retry for transient failures on any method.
// Used for orchestrator calls, which are treated as retryable.
func WithCallRetry(client *resty.Client, attempts int) *resty.Client {
	return client.
		SetRetryCount(attempts).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(8 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && r.StatusCode() >= http.StatusInternalServerError
		})
}
