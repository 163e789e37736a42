package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTimeout bounds RunWithTimeout when no positive timeout is given.
	DefaultTimeout = 1000 * time.Minute
	// DefaultWaitDelay is how long Run waits for output pipes to close after
	// the process exited or was killed, and again for the output to be logged.
	DefaultWaitDelay = 5 * time.Second
	// DefaultMaxLineBytes is the longest output line Pump accepts.
	DefaultMaxLineBytes = 8 * 1024 * 1024
)

// Runner executes a Spec as a child process. A Runner holds no state
// between invocations and is safe for concurrent use.
type Runner struct {
	logger       *slog.Logger
	starter      Starter
	waitDelay    time.Duration
	maxLineBytes int
}

// NewRunner returns a Runner logging to logger, or to slog.Default when
// logger is nil.
func NewRunner(logger *slog.Logger) Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return Runner{
		logger:       logger,
		starter:      execStarter{},
		waitDelay:    DefaultWaitDelay,
		maxLineBytes: DefaultMaxLineBytes,
	}
}

func (r Runner) WithStarter(starter Starter) Runner {
	r.starter = starter
	return r
}

// WithWaitDelay sets the exec.Cmd WaitDelay and the bound on waiting for
// the output to be logged. Zero waits for both without a limit, which a grandchild holding them open can turn into
// a hang.
func (r Runner) WithWaitDelay(d time.Duration) Runner {
	r.waitDelay = d
	return r
}

func (r Runner) WithMaxLineBytes(n int) Runner {
	r.maxLineBytes = n
	return r
}

// Run starts the process described by spec, logs its merged stdout and
// stderr, and waits for it to exit. Cancelling ctx kills the process and
// yields StatusInterrupted. Run never returns an error: every failure is
// reported through the Result status.
func (r Runner) Run(ctx context.Context, spec Spec) Result {
	logger := r.logger.With(slog.String("run_id", uuid.NewString()))
	args := spec.Args()
	res := Result{Args: args}

	if len(args) == 0 {
		res.Status, res.Err = StatusStartFailed, ErrEmptyCommand
		logger.ErrorContext(ctx, "starting process failed", "error", res.Err)
		return res
	}

	if dir := spec.Dir(); dir != "" {
		if err := prepareDir(dir); err != nil {
			res.Status, res.Err = dirStatus(err), err
			logger.WarnContext(ctx, "preparing working directory failed",
				slog.String("dir", dir),
				slog.String("status", res.Status.String()),
				slog.Any("error", err))
			return res
		}
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = spec.Dir()
	cmd.WaitDelay = r.waitDelay

	var killed atomic.Bool
	cmd.Cancel = func() error {
		err := cmd.Process.Kill()
		if err == nil {
			killed.Store(true)
		}
		return err
	}

	if text, ok := spec.Input(); ok {
		cmd.Stdin = strings.NewReader(text + "\n")
	}

	// the same writer for both streams makes os/exec hand the child a single pipe
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	logger.InfoContext(ctx, "starting process", slog.Any("args", args), slog.String("dir", cmd.Dir))
	res.Started = time.Now().UTC()
	if err := r.starter.Start(cmd); err != nil {
		res.Stopped = res.Started
		_ = pw.Close()
		_ = pr.Close()
		if ctx.Err() != nil {
			// exec.Cmd refuses to start with a done context
			res.Status = StatusInterrupted
			res.Err = fmt.Errorf("%w: %w", ErrInterrupted, context.Cause(ctx))
			logger.WarnContext(ctx, "interrupted before the process started", "error", res.Err)
			return res
		}
		res.Status, res.Err = StatusStartFailed, err
		logger.ErrorContext(ctx, "starting process failed", "error", err)
		return res
	}

	pumped := make(chan struct{})
	go func() {
		defer close(pumped)
		Pump(ctx, pr, logger, r.maxLineBytes)
	}()

	waitErr := cmd.Wait()
	res.Stopped = time.Now().UTC()
	_ = pw.Close()
	r.awaitPump(ctx, logger, pumped)

	if killed.Load() {
		res.Status = StatusInterrupted
		res.Err = fmt.Errorf("%w: %w", ErrInterrupted, context.Cause(ctx))
		logger.WarnContext(ctx, "interrupted while waiting: process killed", "error", res.Err)
		return res
	}

	if cmd.ProcessState == nil {
		res.Status = StatusWorkerFaulted
		res.Err = fmt.Errorf("%w: waiting for process: %w", ErrWorkerFault, waitErr)
		logger.ErrorContext(ctx, "waiting for process failed", "error", waitErr)
		return res
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		// typically exec.ErrWaitDelay: the process is gone but its output may be cut short
		logger.WarnContext(ctx, "waiting for process output", "error", waitErr)
	}

	res.Status = StatusExited
	res.ExitCode = cmd.ProcessState.ExitCode()
	logger.InfoContext(ctx, "process exited",
		slog.Int("exit_code", res.ExitCode),
		slog.String("state", cmd.ProcessState.String()),
		slog.Duration("duration", res.Duration()))
	return res
}

// awaitPump waits for the pump to finish, at most the wait delay when one is
// set. A pump stuck in its sink is left behind.
func (r Runner) awaitPump(ctx context.Context, logger *slog.Logger, pumped <-chan struct{}) {
	var timeout <-chan time.Time
	if r.waitDelay > 0 {
		t := time.NewTimer(r.waitDelay)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-pumped:
	case <-timeout:
		logger.WarnContext(ctx, "process output still being logged: not waiting for it",
			slog.Duration("wait_delay", r.waitDelay))
	}
}
