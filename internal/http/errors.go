package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// TransferKind classifies why a transfer failed.
type TransferKind int

const (
	NetworkError TransferKind = iota
	RateLimited
	IncompleteTransfer
)

func (k TransferKind) String() string {
	switch k {
	case NetworkError:
		return "network error"
	case RateLimited:
		return "rate limited"
	case IncompleteTransfer:
		return "incomplete transfer"
	default:
		return fmt.Sprintf("transfer kind %d", int(k))
	}
}

// Sentinels matched by TransferError.Is, so callers can write
// errors.Is(err, http.ErrRateLimited).
var (
	ErrNetwork            = errors.New("network error")
	ErrRateLimited        = errors.New("rate limited")
	ErrIncompleteTransfer = errors.New("incomplete transfer")
)

// TransferError describes a failed request or download.
type TransferError struct {
	Kind   TransferKind
	URL    string
	Status int
	Wait   time.Duration
	Err    error
}

func (e *TransferError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.URL)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *TransferError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == NetworkError
	case ErrRateLimited:
		return e.Kind == RateLimited
	case ErrIncompleteTransfer:
		return e.Kind == IncompleteTransfer
	}
	return false
}

// RetryAfter returns the server supplied wait hint for rate limited responses.
func (e *TransferError) RetryAfter() time.Duration {
	return e.Wait
}

// statusError converts a non-200 response into a TransferError.
func statusError(resp *http.Response, url string) *TransferError {
	if resp.StatusCode == http.StatusTooManyRequests {
		return &TransferError{
			Kind:   RateLimited,
			URL:    url,
			Status: resp.StatusCode,
			Wait:   parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return &TransferError{
		Kind:   NetworkError,
		URL:    url,
		Status: resp.StatusCode,
		Err:    errors.New(resp.Status),
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
