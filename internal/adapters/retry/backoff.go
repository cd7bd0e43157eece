package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"
)

// BackoffConfig bounds the retries of a request to a remote executor.
type BackoffConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      int
	Multiplier      float64
	// MaxJitter is added at random to every pause so that workers sharing an
	// executor do not retry in lockstep.
	MaxJitter time.Duration
}

// ExecutorConfig is used for calls to remote executors. Executor calls are
// cheap to repeat but block the evaluation of a whole candidate, so the
// backoff stays short.
func ExecutorConfig() BackoffConfig {
	return BackoffConfig{
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxRetries:      4,
		Multiplier:      2.0,
		MaxJitter:       100 * time.Millisecond,
	}
}

func (c BackoffConfig) next(interval time.Duration) time.Duration {
	interval = time.Duration(float64(interval) * c.Multiplier)
	if interval > c.MaxInterval {
		interval = c.MaxInterval
	}
	return interval
}

// ExhaustedError reports a request that kept failing transiently.
type ExhaustedError struct {
	Attempts int
	Status   int
	Err      error
}

func (e *ExhaustedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gave up after %d attempts (status %d): %v", e.Attempts, e.Status, e.Err)
	}
	return fmt.Sprintf("gave up after %d attempts with status %d", e.Attempts, e.Status)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// transientNetError reports connection faults worth another attempt: timeouts,
// refused or reset connections, and DNS failures other than NXDOMAIN.
func transientNetError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return !dnsErr.IsNotFound
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

// transientStatus reports executor responses that may succeed when repeated.
func transientStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return status >= 500 && status < 600
}

// WithBackoffHTTP calls fn until it returns a 2xx status, a permanent
// failure, or the retries run out. fn returns the response status, or an
// error when no response arrived.
func WithBackoffHTTP(ctx context.Context, cfg BackoffConfig, fn func() (int, error)) error {
	interval := cfg.InitialInterval

	for attempt := 1; ; attempt++ {
		status, err := fn()
		if err == nil && status >= 200 && status < 300 {
			return nil
		}

		if err != nil && !transientNetError(err) {
			return fmt.Errorf("attempt %d: %w", attempt, err)
		}
		if err == nil && !transientStatus(status) {
			return fmt.Errorf("attempt %d: status %d", attempt, status)
		}

		if attempt > cfg.MaxRetries {
			return &ExhaustedError{Attempts: attempt, Status: status, Err: err}
		}
		if err := wait(ctx, interval+jitter(cfg.MaxJitter)); err != nil {
			return err
		}
		interval = cfg.next(interval)
	}
}
