package connectors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// ErrRateLimited marks a 429 from an upstream source. Callers treat it as a
// skipped cycle, logged separately from hard errors so operators can tell
// throttling from outage.
var ErrRateLimited = errors.New("upstream rate limited")

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	// 429 is surfaced as ErrRateLimited instead of retried inline; the
	// collector defers to its next tick.
	return r.StatusCode() >= 500
}

// statusToError maps a non-2xx response to the connector error taxonomy,
// keeping a truncated body excerpt for the log.
func statusToError(r *resty.Response) error {
	if r.StatusCode() == http.StatusTooManyRequests {
		return ErrRateLimited
	}

	body := r.Body()
	if len(body) > 256 {
		body = body[:256]
	}
	return fmt.Errorf("unexpected status %d. body: %s", r.StatusCode(), string(body))
}
