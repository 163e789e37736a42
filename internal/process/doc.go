// Package process runs external programs and reports how they ended.
//
// Overview
// A Spec names the program and its arguments as two command-line strings,
// command and script, plus optional standard input text and working
// directory. Both strings are split by the tokenize package and passed to
// os/exec as an explicit argument vector, so arguments are never re-quoted.
//
// Runner.Run is the direct entry point:
//   - prepares the working directory (created when missing)
//   - starts the process with stderr merged into stdout
//   - writes the input text plus a newline, then closes stdin
//   - drains the merged output line by line into the logger (Pump)
//   - waits for the exit, killing the process when ctx is cancelled
//
// Runner.RunWithTimeout is the bounded entry point. It runs Run on a worker
// goroutine and waits for it up to the timeout.
//
// Data flow:
//
//	caller            RunWithTimeout          Run                  Pump
//	  |                     |                   |                     |
//	  |-- spec, timeout --->| go work() ------->| prepareDir          |
//	  |                     |                   | Start               |
//	  |                     |                   | go Pump() --------->| scan lines
//	  |                     |                   | Wait()              | log "process output"
//	  |                     |<--- Result -------|<----- EOF ----------|
//	  |<---- Result --------|  (or deadline: cancel, kill, wait)      |
//
// Invariants:
//   - Run and RunWithTimeout always return a Result, never an error.
//   - A Result is either a real exit code (StatusExited) or a control
//     status; Result.Code folds both into one integer, where -1..-6 are the
//     control statuses.
//   - The child, worker and pump do not outlive the call which started
//     them. Grandchildren spawned by the child are not tracked.
//   - Output is drained concurrently with the wait, so a chatty process
//     never blocks on a full pipe.
//   - Failing to read output is logged and never changes the Result.
package process
