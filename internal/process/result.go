package process

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrTimedOut      = errors.New("process timed out")
	ErrInterrupted   = errors.New("interrupted while waiting for process")
	ErrWorkerFault   = errors.New("process worker failed")
	ErrNotADirectory = errors.New("working directory exists but is not a directory")
)

// Status tells whether the process ran to its own exit or the runner
// stopped before or around it.
type Status int

const (
	StatusExited Status = iota
	StatusStartFailed
	StatusInterrupted
	StatusWorkDirCreateFailed
	StatusWorkDirNotADirectory
	StatusTimedOut
	StatusWorkerFaulted
)

// Codes reported by Result.Code for the control statuses. They share the
// integer space with real exit codes; a process exiting with one of these
// values is indistinguishable from the control status.
const (
	CodeStartFailed          = -1
	CodeInterrupted          = -2
	CodeWorkDirCreateFailed  = -3
	CodeWorkDirNotADirectory = -4
	CodeTimedOut             = -5
	CodeWorkerFaulted        = -6
)

func (s Status) String() string {
	switch s {
	case StatusExited:
		return "exited"
	case StatusStartFailed:
		return "start failed"
	case StatusInterrupted:
		return "interrupted"
	case StatusWorkDirCreateFailed:
		return "working directory create failed"
	case StatusWorkDirNotADirectory:
		return "working directory not a directory"
	case StatusTimedOut:
		return "timed out"
	case StatusWorkerFaulted:
		return "worker faulted"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Result is the outcome of one invocation. ExitCode is meaningful only
// when Status is StatusExited; Err holds the cause of every other status.
type Result struct {
	Status   Status
	ExitCode int
	Err      error
	Args     []string
	Started  time.Time
	Stopped  time.Time
}

// Code collapses r into a single integer: the exit code for an exited
// process, a negative Code* constant otherwise.
func (r Result) Code() int {
	switch r.Status {
	case StatusExited:
		return r.ExitCode
	case StatusStartFailed:
		return CodeStartFailed
	case StatusInterrupted:
		return CodeInterrupted
	case StatusWorkDirCreateFailed:
		return CodeWorkDirCreateFailed
	case StatusWorkDirNotADirectory:
		return CodeWorkDirNotADirectory
	case StatusTimedOut:
		return CodeTimedOut
	default:
		return CodeWorkerFaulted
	}
}

// Success reports a process which exited with code 0.
func (r Result) Success() bool {
	return r.Status == StatusExited && r.ExitCode == 0
}

// AsError returns nil for a successful result and a descriptive error
// otherwise.
func (r Result) AsError() error {
	switch {
	case r.Success():
		return nil
	case r.Status == StatusExited:
		return fmt.Errorf("process exited with code %d", r.ExitCode)
	case r.Err != nil:
		return fmt.Errorf("%s: %w", r.Status, r.Err)
	default:
		return errors.New(r.Status.String())
	}
}

// Duration returns how long the process ran, zero when it never started.
func (r Result) Duration() time.Duration {
	if r.Started.IsZero() || r.Stopped.IsZero() {
		return 0
	}
	return r.Stopped.Sub(r.Started)
}
