package process_test

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/CZERTAINLY/Launcher/internal/process"

	"github.com/stretchr/testify/require"
)

func TestRunWithTimeout(t *testing.T) {
	t.Parallel()
	sh := lookPath(t, "sh")
	sleep := lookPath(t, "sleep")

	t.Run("completes", func(t *testing.T) {
		t.Parallel()
		runner, rec := newRunner(t)
		spec, err := process.NewSpec(sh, "-c 'echo bounded; exit 7'")
		require.NoError(t, err)
		res := runner.RunWithTimeout(t.Context(), spec, 10*time.Second)
		require.Equal(t, process.StatusExited, res.Status)
		require.Equal(t, 7, res.Code())
		require.Equal(t, []string{"bounded"}, rec.Strings("process output", "line"))
		require.Len(t, rec.Messages("process completed"), 1)
	})

	t.Run("zero timeout means default bound", func(t *testing.T) {
		t.Parallel()
		for _, timeout := range []time.Duration{0, -time.Second} {
			runner, _ := newRunner(t)
			spec, err := process.NewSpec(sh, "-c 'sleep 0.1; exit 0'")
			require.NoError(t, err)
			res := runner.RunWithTimeout(t.Context(), spec, timeout)
			require.Equal(t, process.StatusExited, res.Status)
			require.Equal(t, 0, res.Code())
		}
	})

	t.Run("timed out", func(t *testing.T) {
		t.Parallel()
		runner, rec := newRunner(t)
		spec, err := process.NewSpec(sleep, "10")
		require.NoError(t, err)

		start := time.Now()
		res := runner.RunWithTimeout(t.Context(), spec, 200*time.Millisecond)
		elapsed := time.Since(start)
		require.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
		require.Less(t, elapsed, 5*time.Second)
		require.Equal(t, process.StatusTimedOut, res.Status)
		require.Equal(t, process.CodeTimedOut, res.Code())
		require.ErrorIs(t, res.Err, process.ErrTimedOut)
		require.Equal(t, []string{sleep, "10"}, res.Args)
		require.Len(t, rec.Messages("process timed out"), 1)
		// the process was killed before returning
		require.Len(t, rec.Messages("interrupted while waiting: process killed"), 1)
	})

	t.Run("worker abandoned", func(t *testing.T) {
		t.Parallel()
		runner, rec := newRunner(t)
		// without a wait delay the orphaned sleeps keep Wait on the pipe
		runner = runner.WithWaitDelay(0)
		spec, err := process.NewSpec(sh, "-c 'sleep 2 & sleep 2'")
		require.NoError(t, err)

		res := runner.RunWithTimeout(t.Context(), spec, 200*time.Millisecond)
		require.Equal(t, process.StatusTimedOut, res.Status)
		require.Equal(t, process.CodeTimedOut, res.Code())
		require.False(t, res.Success())
		require.ErrorIs(t, res.Err, process.ErrTimedOut)
		require.Len(t, rec.Messages("process worker did not stop: abandoning it"), 1)
		require.Empty(t, rec.Messages("process completed"))

		// the worker returns once the sleeps close the pipe
		require.Eventually(t, func() bool {
			return len(rec.Messages("interrupted while waiting: process killed")) == 1
		}, 10*time.Second, 50*time.Millisecond)
	})

	t.Run("bad executable", func(t *testing.T) {
		t.Parallel()
		runner, _ := newRunner(t)
		spec, err := process.NewSpec("/does/not/exist/launcher-test", "/C")
		require.NoError(t, err)
		res := runner.RunWithTimeout(t.Context(), spec, 6*time.Second)
		require.Equal(t, process.StatusStartFailed, res.Status)
		require.Equal(t, process.CodeStartFailed, res.Code())
	})

	t.Run("interrupted", func(t *testing.T) {
		t.Parallel()
		runner, rec := newRunner(t)
		spec, err := process.NewSpec(sleep, "10")
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(t.Context())
		time.AfterFunc(200*time.Millisecond, cancel)
		start := time.Now()
		res := runner.RunWithTimeout(ctx, spec, time.Minute)
		require.Less(t, time.Since(start), 5*time.Second)
		require.Equal(t, process.StatusInterrupted, res.Status)
		require.Equal(t, process.CodeInterrupted, res.Code())
		require.ErrorIs(t, res.Err, context.Canceled)
		require.Len(t, rec.Messages("interrupted while waiting for process to complete"), 1)
	})

	t.Run("worker fault", func(t *testing.T) {
		t.Parallel()
		runner, rec := newRunner(t)
		runner = runner.WithStarter(process.StarterFunc(func(*exec.Cmd) error {
			panic("starter exploded")
		}))
		spec, err := process.NewSpec(sh, "-c true")
		require.NoError(t, err)
		res := runner.RunWithTimeout(t.Context(), spec, time.Minute)
		require.Equal(t, process.StatusWorkerFaulted, res.Status)
		require.Equal(t, process.CodeWorkerFaulted, res.Code())
		require.ErrorIs(t, res.Err, process.ErrWorkerFault)
		require.ErrorContains(t, res.Err, "starter exploded")
		require.Len(t, rec.Messages("process worker failed"), 1)
	})

	t.Run("working directory", func(t *testing.T) {
		t.Parallel()
		runner, _ := newRunner(t)
		spec, err := process.NewSpec(sh, "-c true")
		require.NoError(t, err)
		res := runner.RunWithTimeout(t.Context(), spec.WithDir(t.TempDir()+"/a/b"), time.Minute)
		require.True(t, res.Success())
	})
}
