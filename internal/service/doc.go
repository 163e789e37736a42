// Package service runs named jobs from a job file through a process.Runner.
//
// Overview
// The Supervisor owns an event loop and a fixed list of Jobs. Every start
// request launches all jobs as one batch, at most parallelism of them at a
// time. A start request received while a batch is running is ignored.
//
// Modes:
//   - manual: one batch, Do returns the joined errors of failed jobs
//   - timer: gocron triggers a batch per cron expression or interval, Do
//     runs until its context is cancelled
//
// Data flow:
//
//	gocron / oneshot      Supervisor.Do               runBatch (errgroup)
//	      |                     |                            |
//	   Start() ------------->  start ----------------------->| runJob per Job
//	      |                     |                            | Run / RunWithTimeout
//	      |                     |<------- JobResult ---------|
//	      |                log / join                        |
//
// A bounded job runs through process.Runner.RunWithTimeout, an unbounded one
// through process.Runner.Run. Job records carry the job_name attribute.
package service
