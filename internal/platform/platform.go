// Package platform holds the HTTP clients for the factory platform services
// this daemon collaborates with: the context broker holding asset snapshots,
// the time-series history store, the alert store, and the backend owning
// contracts. Every client is a thin request/response wrapper; all scheduling
// and extraction logic lives elsewhere.
package platform

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

const requestTimeout = 10 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// checkStatus drains and reports non-2xx responses as errors.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
}
