package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RunWithTimeout runs spec on a separate goroutine and waits at most
// timeout for it. A timeout <= 0 means DefaultTimeout.
//
// When the deadline passes first the process is killed and the result is
// StatusTimedOut; cancelling ctx does the same with StatusInterrupted. In
// both cases RunWithTimeout waits for the worker to stop before returning,
// unless it hangs for longer than twice the wait delay plus a second. A
// panic on the worker yields StatusWorkerFaulted.
func (r Runner) RunWithTimeout(ctx context.Context, spec Spec, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	wctx, cancel := context.WithTimeoutCause(ctx, timeout, ErrTimedOut)
	defer cancel()

	done := make(chan Result, 1)
	go r.work(wctx, spec, done)

	var res Result
	var abandoned bool
	select {
	case res = <-done:
	case <-wctx.Done():
		res, abandoned = r.stopWorker(ctx, spec, done)
	}

	if !abandoned && (wctx.Err() == nil || res.Status == StatusExited || res.Status == StatusWorkerFaulted) {
		// finished on its own, possibly just before the kill
		return r.completed(ctx, res)
	}

	cause := context.Cause(wctx)
	if errors.Is(cause, ErrTimedOut) {
		res.Status = StatusTimedOut
		res.Err = fmt.Errorf("%w after %s", ErrTimedOut, timeout)
		r.logger.ErrorContext(ctx, "process timed out", slog.Duration("timeout", timeout))
		return res
	}
	res.Status = StatusInterrupted
	res.Err = fmt.Errorf("%w: %w", ErrInterrupted, cause)
	r.logger.WarnContext(ctx, "interrupted while waiting for process to complete", "error", cause)
	return res
}

// stopWorker waits for the worker to return after its context is done. It
// reports whether the worker was abandoned, in which case the Result holds
// only the arguments.
func (r Runner) stopWorker(ctx context.Context, spec Spec, done <-chan Result) (Result, bool) {
	abandon := time.NewTimer(2*r.waitDelay + time.Second)
	defer abandon.Stop()
	select {
	case res := <-done:
		return res, false
	case <-abandon.C:
		r.logger.WarnContext(ctx, "process worker did not stop: abandoning it")
		return Result{Args: spec.Args()}, true
	}
}

func (r Runner) completed(ctx context.Context, res Result) Result {
	if res.Status == StatusExited {
		r.logger.InfoContext(ctx, "process completed", slog.Int("exit_code", res.ExitCode))
	}
	return res
}

func (r Runner) work(ctx context.Context, spec Spec, done chan<- Result) {
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("%w: %v", ErrWorkerFault, p)
			r.logger.ErrorContext(ctx, "process worker failed", "error", err)
			done <- Result{Status: StatusWorkerFaulted, Err: err, Args: spec.Args()}
		}
	}()
	done <- r.Run(ctx, spec)
}
