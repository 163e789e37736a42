package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	gocron "github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/errgroup"

	"github.com/CZERTAINLY/Launcher/internal/log"
	"github.com/CZERTAINLY/Launcher/internal/model"
	"github.com/CZERTAINLY/Launcher/internal/process"
)

// Job is a named process invocation. A Bounded job runs with a wall-clock
// Timeout, otherwise it runs until the process exits.
type Job struct {
	Name    string
	Spec    process.Spec
	Timeout time.Duration
	Bounded bool
}

// JobFromModel converts a job from the job file. A job without its own
// timeout is bounded by defaultTimeout when that is positive.
func JobFromModel(j model.Job, defaultTimeout time.Duration) (Job, error) {
	spec, err := process.NewSpec(j.Command, j.Script)
	if err != nil {
		return Job{}, fmt.Errorf("job %s: %w", j.Name, err)
	}
	if j.Input != nil {
		spec = spec.WithInput(*j.Input)
	}
	if j.Dir != "" {
		spec = spec.WithDir(j.Dir)
	}

	job := Job{Name: j.Name, Spec: spec}
	switch {
	case j.Timeout != "":
		d, err := ParseDuration(j.Timeout)
		if err != nil {
			return Job{}, fmt.Errorf("job %s: parsing timeout: %w", j.Name, err)
		}
		job.Timeout, job.Bounded = d, true
	case defaultTimeout > 0:
		job.Timeout, job.Bounded = defaultTimeout, true
	}
	return job, nil
}

// JobResult is the outcome of a single job in a batch.
type JobResult struct {
	Job    string
	Result process.Result
}

// Err returns nil for a job which exited with zero.
func (r JobResult) Err() error {
	if err := r.Result.AsError(); err != nil {
		return fmt.Errorf("job %s: %w", r.Job, err)
	}
	return nil
}

type Supervisor struct {
	runner      process.Runner
	jobs        []Job
	parallelism int
	oneshot     bool
	scheduler   gocron.Scheduler
	start       chan struct{}
	results     chan JobResult
	wg          sync.WaitGroup
}

// NewSupervisor returns a oneshot supervisor running jobs one at a time.
func NewSupervisor(runner process.Runner, jobs ...Job) *Supervisor {
	return &Supervisor{
		runner:      runner,
		jobs:        slices.Clone(jobs),
		parallelism: 1,
		oneshot:     true,
		start:       make(chan struct{}, 1),
		results:     make(chan JobResult, 1),
	}
}

// SupervisorFromConfig builds a supervisor for a job file. Timer mode
// requires service.schedule.
func SupervisorFromConfig(ctx context.Context, cfg model.Config, settings Config, runner process.Runner) (*Supervisor, error) {
	jobs := make([]Job, 0, len(cfg.Jobs))
	for _, j := range cfg.Jobs {
		job, err := JobFromModel(j, settings.Timeout)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	s := NewSupervisor(runner, jobs...).SetParallelism(settings.Parallelism)
	svc := cfg.Service
	if svc.Parallelism != nil {
		s.SetParallelism(*svc.Parallelism)
	}

	if svc.Mode == model.ServiceModeTimer {
		scheduler, err := newScheduler(ctx, svc.Schedule, s.Start)
		if err != nil {
			return nil, fmt.Errorf("timer mode failed: %w", err)
		}
		s.scheduler = scheduler
		s.SetOneshot(false)
	}
	return s, nil
}

// SetOneshot makes Do run a single batch and return its errors.
func (s *Supervisor) SetOneshot(oneshot bool) *Supervisor {
	s.oneshot = oneshot
	return s
}

// SetParallelism limits the number of jobs running at once. Zero or
// negative means no limit.
func (s *Supervisor) SetParallelism(n int) *Supervisor {
	s.parallelism = n
	return s
}

// Start asks for a new batch. It never blocks: a request pending in the
// event loop absorbs the next ones.
func (s *Supervisor) Start() {
	select {
	case s.start <- struct{}{}:
	default:
	}
}

// Do runs the supervisor event loop.
//
// A start request launches every job in a batch, unless a batch is still
// running, in which case the request is ignored. Results are logged as they
// arrive. In oneshot mode a start is triggered on entry and Do returns the
// joined errors of the failed jobs once the batch is done. Otherwise Do
// runs until ctx is cancelled and returns nil.
//
// Shutdown waits for running jobs, whose processes are killed by the
// cancelled context, then stops the scheduler.
func (s *Supervisor) Do(ctx context.Context) error {
	slog.DebugContext(ctx, "starting a supervisor", "jobs", len(s.jobs), "oneshot", s.oneshot)

	if s.scheduler != nil {
		s.scheduler.Start()
		defer func() {
			err := s.scheduler.Shutdown()
			if err != nil {
				slog.ErrorContext(ctx, "shutting down gocron has failed", "error", err)
			}
		}()
	}

	defer s.wg.Wait()

	if s.oneshot {
		s.Start()
	}

	var pending int
	var errs []error
	for {
		select {
		case <-ctx.Done():
			if s.oneshot && pending > 0 {
				return ctx.Err()
			}
			return nil
		case <-s.start:
			if pending > 0 {
				slog.WarnContext(ctx, "batch in progress: ignoring start", "pending", pending)
				continue
			}
			if len(s.jobs) == 0 {
				slog.WarnContext(ctx, "no jobs configured: nothing to start")
				if s.oneshot {
					return nil
				}
				continue
			}
			slog.DebugContext(ctx, "starting a batch", "jobs", len(s.jobs))
			pending, errs = len(s.jobs), nil
			s.wg.Go(func() { s.runBatch(ctx) })
		case jr := <-s.results:
			pending--
			if err := jr.Err(); err != nil {
				slog.ErrorContext(ctx, "job have failed", "job_name", jr.Job, "code", jr.Result.Code(), "error", err)
				errs = append(errs, err)
			} else {
				slog.InfoContext(ctx, "job succeeded", "job_name", jr.Job, "duration", jr.Result.Duration())
			}
			if pending > 0 {
				continue
			}
			slog.InfoContext(ctx, "batch finished", "jobs", len(s.jobs), "failed", len(errs))
			if s.oneshot {
				return errors.Join(errs...)
			}
		}
	}
}

func (s *Supervisor) runBatch(ctx context.Context) {
	var g errgroup.Group
	limit := s.parallelism
	if limit <= 0 {
		limit = -1
	}
	g.SetLimit(limit)
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			jr := s.runJob(ctx, job)
			select {
			case s.results <- jr:
			case <-ctx.Done():
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Supervisor) runJob(ctx context.Context, job Job) JobResult {
	ctx = log.ContextAttrs(ctx, slog.String("job_name", job.Name))
	var res process.Result
	if job.Bounded {
		res = s.runner.RunWithTimeout(ctx, job.Spec, job.Timeout)
	} else {
		res = s.runner.Run(ctx, job.Spec)
	}
	return JobResult{Job: job.Name, Result: res}
}

func newScheduler(ctx context.Context, cfgp *model.Schedule, startFunc func()) (gocron.Scheduler, error) {
	if cfgp == nil {
		return nil, errors.New("service.schedule is nil")
	}
	cfg := *cfgp
	var job gocron.JobDefinition
	switch {
	case cfg.Cron != "":
		withSeconds, err := ParseCron(cfg.Cron)
		if err != nil {
			return nil, fmt.Errorf("parsing service.schedule.cron: %w", err)
		}
		job = gocron.CronJob(cfg.Cron, withSeconds)
		slog.DebugContext(ctx, "successfully parsed", "cron", cfg.Cron)
	case cfg.Every != "":
		d, err := ParseDuration(cfg.Every)
		if err != nil {
			return nil, fmt.Errorf("parsing service.schedule.every: %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("service.schedule.every must be positive: %s", d)
		}
		slog.DebugContext(ctx, "successfully parsed", "every", d.String())
		job = gocron.DurationJob(d)
	default:
		return nil, errors.New("both cron and every are empty")
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("initializing gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		job,
		gocron.NewTask(startFunc),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("initializing gocron job: %w", err)
	}
	return s, nil
}
