// Package retry runs an operation again with exponential backoff.
//
// The delay before re-attempt n is Floor·Factor^(n-1), capped at Ceil.
// Errors that implement RetryAfter() can stretch that delay (still capped),
// which is how rate-limited responses slow the caller down.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Defaults match the download pipeline's configuration defaults.
const (
	DefaultMaxAttempts = 3
	DefaultFloor       = time.Second
	DefaultCeil        = 5 * time.Second
	DefaultFactor      = 2.0
)

// Policy describes how often and how patiently an operation is retried.
type Policy struct {
	MaxAttempts int
	Floor       time.Duration
	Ceil        time.Duration
	Factor      float64

	// OnRetry is called before sleeping ahead of attempt+1.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultPolicy returns three attempts with 1s → 5s doubling backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Floor:       DefaultFloor,
		Ceil:        DefaultCeil,
		Factor:      DefaultFactor,
	}
}

// Unrecoverable marks err so that Do stops retrying immediately.
func Unrecoverable(err error) error {
	return backoff.Permanent(err)
}

// IsUnrecoverable reports whether err was marked with Unrecoverable.
func IsUnrecoverable(err error) bool {
	var perm *backoff.PermanentError
	return errors.As(err, &perm)
}

// retryAfter is implemented by errors carrying a server supplied wait hint.
type retryAfter interface {
	RetryAfter() time.Duration
}

// exponential builds the jitter-free schedule for p.
func (p Policy) exponential() *backoff.ExponentialBackOff {
	factor := p.Factor
	if factor <= 0 {
		factor = DefaultFactor
	}
	ceil := p.Ceil
	if ceil <= 0 {
		ceil = time.Duration(math.MaxInt64)
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.Floor,
		RandomizationFactor: 0,
		Multiplier:          factor,
		MaxInterval:         ceil,
	}
	b.Reset()
	return b
}

// stretch applies a server wait hint carried by err, capped at Ceil.
func (p Policy) stretch(d time.Duration, err error) time.Duration {
	var ra retryAfter
	if errors.As(err, &ra) && ra.RetryAfter() > d {
		d = ra.RetryAfter()
		if p.Ceil > 0 && d > p.Ceil {
			d = p.Ceil
		}
	}
	return d
}

// Delay returns the backoff before re-attempt n (n starts at 1).
func (p Policy) Delay(n int, err error) time.Duration {
	if n < 1 {
		n = 1
	}
	b := p.exponential()
	var d time.Duration
	for i := 0; i < n; i++ {
		d = b.NextBackOff()
	}
	return p.stretch(d, err)
}

// hinted feeds the last error's RetryAfter hint into the exponential
// schedule.
type hinted struct {
	policy Policy
	exp    *backoff.ExponentialBackOff
	last   error
}

func (h *hinted) NextBackOff() time.Duration {
	return h.policy.stretch(h.exp.NextBackOff(), h.last)
}

func (h *hinted) Reset() {
	h.exp.Reset()
	h.last = nil
}

// Do runs op until it succeeds, returns an unrecoverable error, or
// MaxAttempts is reached. The last error is returned unchanged (with the
// Unrecoverable marker removed).
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	b := &hinted{policy: p, exp: p.exponential()}
	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		err := op(ctx)
		b.last = err
		return struct{}{}, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
	}
	if p.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(func(err error, delay time.Duration) {
			p.OnRetry(attempt, err, delay)
		}))
	}

	_, err := backoff.Retry(ctx, operation, opts...)
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
