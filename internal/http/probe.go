package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// ErrProbeEmpty is returned when the probe endpoint sent no data.
var ErrProbeEmpty = errors.New("probe received no data")

// MeasureThroughput downloads at most maxBytes from rawURL and returns the
// observed rate in bytes per second.
//
// Only the body transfer is timed, so connection setup does not skew the
// result. The caller bounds the whole probe through ctx.
func (c *Client) MeasureThroughput(ctx context.Context, rawURL string, maxBytes int64) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, statusError(resp, rawURL)
	}

	start := time.Now()
	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxBytes))
	elapsed := time.Since(start)

	// A deadline hit halfway through still leaves a usable sample.
	if err != nil && n == 0 {
		return 0, &TransferError{Kind: NetworkError, URL: rawURL, Err: err}
	}
	if n == 0 {
		return 0, ErrProbeEmpty
	}
	if elapsed <= 0 {
		elapsed = time.Microsecond
	}
	return float64(n) / elapsed.Seconds(), nil
}
