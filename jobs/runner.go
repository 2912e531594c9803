/*
runner.go - Cron-driven batch job runner

PURPOSE:
  Runs the engine's batch tasklets (recurring installment top-up, overdue
  penalties) on cron schedules and on demand. Every execution is recorded
  as a JobRun for audit: running -> completed | failed.

DESIGN:
  - robfig/cron drives the schedule in the tenant time zone
  - overlapping executions of the same job are skipped
  - the business date is resolved once per execution and passed to the job
  - a failing job is logged and recorded; it never stops the runner

USAGE:
  runner := jobs.NewRunner(loc, store, businessDate, logger)
  runner.Schedule("0 1 * * *", jobs.NewRecurringInstallmentsJob(gen))
  runner.Start()
  defer runner.Stop(ctx)

SEE ALSO:
  - tasks.go: The jobs themselves
  - cmd/schedule-engine/jobs.go: `jobs serve` and `jobs run`
*/
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/warp/schedule-engine/schedule"
)

// ErrUnknownJob is returned by RunNow for a name that was never registered.
var ErrUnknownJob = errors.New("unknown job")

// Status of a job run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// JobRun is the audit record of one execution.
type JobRun struct {
	ID           string
	Name         string
	BusinessDate schedule.Date
	Status       Status
	Summary      string
	Error        string
	StartedAt    time.Time
	CompletedAt  *time.Time
}

// RunRecorder persists job runs.
type RunRecorder interface {
	SaveJobRun(ctx context.Context, run JobRun) error
	ListJobRuns(ctx context.Context, name string, limit int) ([]JobRun, error)
}

// Job is one batch tasklet.
type Job interface {
	Name() string
	// Run processes everything due as of businessDate and returns a
	// one-line summary.
	Run(ctx context.Context, businessDate schedule.Date) (string, error)
}

// BusinessDateFunc resolves the business date at execution time.
type BusinessDateFunc func() schedule.Date

// Runner schedules and executes jobs.
type Runner struct {
	cron         *cron.Cron
	recorder     RunRecorder
	businessDate BusinessDateFunc
	log          logrus.FieldLogger

	mu      sync.Mutex
	jobs    map[string]Job
	running map[string]bool
}

// NewRunner creates a runner in the tenant location loc.
func NewRunner(loc *time.Location, recorder RunRecorder, businessDate BusinessDateFunc, log logrus.FieldLogger) *Runner {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if businessDate == nil {
		businessDate = func() schedule.Date { return schedule.Today(loc) }
	}
	return &Runner{
		cron:         cron.New(cron.WithLocation(loc), cron.WithLogger(cron.PrintfLogger(log))),
		recorder:     recorder,
		businessDate: businessDate,
		log:          log,
		jobs:         make(map[string]Job),
		running:      make(map[string]bool),
	}
}

// Register makes job available to RunNow without scheduling it.
func (r *Runner) Register(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.Name()] = job
}

// Schedule registers job and runs it on the standard five-field cron spec.
func (r *Runner) Schedule(spec string, job Job) error {
	r.Register(job)
	_, err := r.cron.AddFunc(spec, func() {
		if _, err := r.RunNow(context.Background(), job.Name()); err != nil {
			r.log.WithError(err).WithField("job", job.Name()).Warn("scheduled job did not complete")
		}
	})
	if err != nil {
		return errors.Wrapf(err, "schedule %s with %q", job.Name(), spec)
	}
	r.log.WithFields(logrus.Fields{"job": job.Name(), "spec": spec}).Info("job scheduled")
	return nil
}

// Jobs lists registered job names.
func (r *Runner) Jobs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start begins cron scheduling in the background.
func (r *Runner) Start() {
	r.cron.Start()
	r.log.Info("job runner started")
}

// Stop stops scheduling and waits for running jobs or ctx.
func (r *Runner) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		r.log.Info("job runner stopped")
	case <-ctx.Done():
		r.log.Warn("job runner stop timed out with jobs still running")
	}
}

// RunNow executes the named job immediately and records the run. A job
// that is already running is skipped.
func (r *Runner) RunNow(ctx context.Context, name string) (JobRun, error) {
	r.mu.Lock()
	job, ok := r.jobs[name]
	if !ok {
		r.mu.Unlock()
		return JobRun{}, errors.Wrap(ErrUnknownJob, name)
	}
	if r.running[name] {
		r.mu.Unlock()
		return JobRun{}, fmt.Errorf("job %s is already running", name)
	}
	r.running[name] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.running, name)
		r.mu.Unlock()
	}()

	run := JobRun{
		ID:           uuid.NewString(),
		Name:         name,
		BusinessDate: r.businessDate(),
		Status:       StatusRunning,
		StartedAt:    time.Now().UTC(),
	}
	log := r.log.WithFields(logrus.Fields{
		"job":           name,
		"run_id":        run.ID,
		"business_date": run.BusinessDate.String(),
	})
	r.record(ctx, run, log)
	log.Info("job started")

	summary, err := job.Run(ctx, run.BusinessDate)

	completed := time.Now().UTC()
	run.CompletedAt = &completed
	run.Summary = summary
	if err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
		log.WithError(err).WithField("summary", summary).Error("job failed")
	} else {
		run.Status = StatusCompleted
		log.WithField("summary", summary).Info("job completed")
	}
	r.record(ctx, run, log)
	return run, err
}

func (r *Runner) record(ctx context.Context, run JobRun, log logrus.FieldLogger) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.SaveJobRun(ctx, run); err != nil {
		log.WithError(err).Warn("failed to record job run")
	}
}
