package request

import (
	"context"
	"errors"
	"sync"
	"time"

	"flowpaste/internal/domain"
)

// CancelFlag records a deliberate user cancellation. It is set before the
// underlying request is aborted, so an abort can be told apart from a timeout
// even though both use the same context-cancellation mechanism.
type CancelFlag struct {
	once sync.Once
	done chan struct{}
}

func NewCancelFlag() *CancelFlag {
	return &CancelFlag{done: make(chan struct{})}
}

// Set marks the operation as cancelled by the user. Safe to call repeatedly.
func (f *CancelFlag) Set() {
	f.once.Do(func() { close(f.done) })
}

// Cancelled reports whether the user has cancelled.
func (f *CancelFlag) Cancelled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Done is closed once the user has cancelled.
func (f *CancelFlag) Done() <-chan struct{} { return f.done }

// Runner executes a request under a per-attempt time budget, retrying
// timeouts and transient network failures with exponential backoff. User
// cancellation is never retried and interrupts a backoff wait in progress.
type Runner struct {
	AttemptTimeout time.Duration
	Retries        int
	BackoffBase    time.Duration
}

// Do runs attempt until it succeeds, fails terminally, or retries are
// exhausted. Each attempt gets its own wall-clock timeout; budgets do not
// accumulate across retries. The attempt context is cancelled as soon as the
// user cancels.
func (r Runner) Do(ctx context.Context, cancelled *CancelFlag, attempt func(context.Context) error) error {
	timeout := r.AttemptTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	backoff := r.BackoffBase
	if backoff <= 0 {
		backoff = 800 * time.Millisecond
	}

	var lastErr error
	for try := 0; try <= r.Retries; try++ {
		if cancelled.Cancelled() {
			return domain.ErrCancelled
		}
		if try > 0 {
			if err := sleepBackoff(ctx, cancelled, backoff); err != nil {
				return err
			}
			backoff *= 2
		}

		err := r.runAttempt(ctx, cancelled, timeout, attempt)
		if err == nil {
			return nil
		}
		// The flag is checked before the abort is interpreted: a deliberate
		// cancel and a timeout both surface as a dead context.
		if cancelled.Cancelled() || errors.Is(err, domain.ErrCancelled) {
			return domain.ErrCancelled
		}
		if ctx.Err() != nil {
			return domain.NewError(domain.ErrKindCancelled, "request context closed", ctx.Err())
		}

		err = classify(err)
		if !domain.Retryable(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (r Runner) runAttempt(ctx context.Context, cancelled *CancelFlag, timeout time.Duration, attempt func(context.Context) error) error {
	attemptCtx, stop := context.WithTimeout(ctx, timeout)
	defer stop()

	go func() {
		select {
		case <-cancelled.Done():
			stop()
		case <-attemptCtx.Done():
		}
	}()

	return attempt(attemptCtx)
}

func sleepBackoff(ctx context.Context, cancelled *CancelFlag, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-cancelled.Done():
		return domain.ErrCancelled
	case <-ctx.Done():
		return domain.NewError(domain.ErrKindCancelled, "request context closed", ctx.Err())
	}
}

func classify(err error) error {
	var ae *domain.ActionError
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewError(domain.ErrKindTimeout, "request timed out", err)
	}
	return domain.NewError(domain.ErrKindNetwork, "request failed", err)
}
