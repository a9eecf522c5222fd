// Package httpclient builds the HTTP clients used to reach model providers.
package httpclient

import (
	"net/http"
	"time"

	"double/internal/utils"
)

type loggingRoundTripper struct {
	base   http.RoundTripper
	logger *utils.Logger
}

// New returns an HTTP client with the given timeout whose requests are
// traced to the debug log.
func New(timeout time.Duration, logger *utils.Logger) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &loggingRoundTripper{
			base:   http.DefaultTransport,
			logger: logger,
		},
	}
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	started := time.Now()
	resp, err := t.base.RoundTrip(req)
	if t.logger != nil {
		elapsed := time.Since(started)
		if err != nil {
			t.logger.Debug("%s %s failed after %s: %v", req.Method, req.URL, elapsed, err)
		} else {
			t.logger.Debug("%s %s -> %d (%s)", req.Method, req.URL, resp.StatusCode, elapsed)
		}
	}
	return resp, err
}
