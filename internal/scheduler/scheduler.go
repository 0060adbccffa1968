// Package scheduler runs named jobs on fixed intervals. Each job gets its
// own ticker goroutine; unless a job opts into overlap, a tick that arrives
// while the previous run is still in flight is skipped, so at most one run
// of that job executes at a time.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eve-companion/internal/logging"
	"github.com/google/uuid"
)

// RunFunc is the body of a scheduled job. The context carries the run's
// logger and is not cancelled at shutdown: a run admitted before Stop
// finishes on its own.
type RunFunc func(ctx context.Context) error

// Job is one registered periodic job.
type Job struct {
	Name         string
	Interval     time.Duration
	AllowOverlap bool
	Run          RunFunc

	running   atomic.Bool
	inFlight  atomic.Int32
	lastState jobState
	stateMu   sync.Mutex
}

// jobState is the last observed run outcome, served by Status.
type jobState struct {
	LastRunID    string
	LastStarted  time.Time
	LastFinished time.Time
	LastError    string
	Runs         int64
	Skipped      int64
	Panics       int64
}

// JobStatus is a point-in-time snapshot of one job for the status API.
type JobStatus struct {
	Name         string    `json:"name"`
	Interval     string    `json:"interval"`
	Running      bool      `json:"running"`
	LastRunID    string    `json:"lastRunId,omitempty"`
	LastStarted  time.Time `json:"lastStarted,omitempty"`
	LastFinished time.Time `json:"lastFinished,omitempty"`
	LastError    string    `json:"lastError,omitempty"`
	Runs         int64     `json:"runs"`
	Skipped      int64     `json:"skipped"`
	Panics       int64     `json:"panics"`
}

// Scheduler owns a set of jobs and their ticker goroutines.
type Scheduler struct {
	logger *logging.Logger

	mu      sync.Mutex
	jobs    []*Job
	names   map[string]struct{}
	started bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an empty scheduler.
func New(logger *logging.Logger) *Scheduler {
	return &Scheduler{
		logger: logger,
		names:  make(map[string]struct{}),
	}
}

// Register adds a job. Registration fails on a duplicate name, a nil run
// function or a non-positive interval; a bad registry is a deploy mistake
// and must surface at startup, not at tick time. allowOverlap lets a tick
// fire while the previous run is still in flight; almost every job wants
// the default false.
func (s *Scheduler) Register(name string, interval time.Duration, allowOverlap bool, run RunFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	if name == "" {
		return fmt.Errorf("job name cannot be empty")
	}
	if _, exists := s.names[name]; exists {
		return fmt.Errorf("duplicate job name: %s", name)
	}
	if run == nil {
		return fmt.Errorf("job %s: run function cannot be nil", name)
	}
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive, got %s", name, interval)
	}

	s.names[name] = struct{}{}
	s.jobs = append(s.jobs, &Job{Name: name, Interval: interval, AllowOverlap: allowOverlap, Run: run})
	return nil
}

// Start launches one ticker goroutine per registered job. Jobs do not fire
// immediately; the first run happens one interval after start.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	if len(s.jobs) == 0 {
		return fmt.Errorf("no jobs registered")
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runLoop(ctx, job)
	}

	s.logger.WithField("jobs", len(s.jobs)).Info("Scheduler started")
	return nil
}

// Stop stops every tick loop and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// Status returns a snapshot of every job in registration order.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	jobs := make([]*Job, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.Unlock()

	statuses := make([]JobStatus, 0, len(jobs))
	for _, job := range jobs {
		job.stateMu.Lock()
		st := job.lastState
		job.stateMu.Unlock()

		statuses = append(statuses, JobStatus{
			Name:         job.Name,
			Interval:     job.Interval.String(),
			Running:      job.inFlight.Load() > 0,
			LastRunID:    st.LastRunID,
			LastStarted:  st.LastStarted,
			LastFinished: st.LastFinished,
			LastError:    st.LastError,
			Runs:         st.Runs,
			Skipped:      st.Skipped,
			Panics:       st.Panics,
		})
	}
	return statuses
}

func (s *Scheduler) runLoop(ctx context.Context, job *Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	logger := s.logger.WithField("job", job.Name)
	logger.WithField("interval", job.Interval.String()).Info("Job loop started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Job loop stopped")
			return
		case <-ticker.C:
			// Each run gets its own goroutine so the loop keeps observing
			// ticks; the admission guard in fire turns overlapping ticks
			// into recorded skips. Cancellation stops the tick loop, not
			// an admitted run: a run in the middle of a sync finishes on
			// its own, and Stop waits on the group for it.
			runCtx := context.WithoutCancel(ctx)
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.fire(runCtx, job)
			}()
		}
	}
}

// fire executes one run of the job. Unless the job allows overlap, a tick
// arriving while a run is in flight is skipped.
func (s *Scheduler) fire(ctx context.Context, job *Job) {
	if !job.AllowOverlap {
		if !job.running.CompareAndSwap(false, true) {
			job.stateMu.Lock()
			job.lastState.Skipped++
			job.stateMu.Unlock()
			s.logger.WithField("job", job.Name).Warn("Previous run still in flight, skipping tick")
			return
		}
		defer job.running.Store(false)
	}
	job.inFlight.Add(1)
	defer job.inFlight.Add(-1)

	runID := uuid.New().String()
	started := time.Now()
	logger := s.logger.WithFields(map[string]interface{}{
		"job":   job.Name,
		"runId": runID,
	})
	ctx = logging.WithLogger(ctx, logger)

	job.stateMu.Lock()
	job.lastState.LastRunID = runID
	job.lastState.LastStarted = started
	job.lastState.Runs++
	job.stateMu.Unlock()

	err := s.safeRun(ctx, job)

	finished := time.Now()
	job.stateMu.Lock()
	job.lastState.LastFinished = finished
	if err != nil {
		job.lastState.LastError = err.Error()
	} else {
		job.lastState.LastError = ""
	}
	job.stateMu.Unlock()

	entry := logger.WithField("duration", finished.Sub(started).String())
	if err != nil {
		entry.WithError(err).Error("Job run failed")
	} else {
		entry.Info("Job run completed")
	}
}

// safeRun converts a panic in the job body into an error so one broken job
// cannot take down the process or its sibling loops.
func (s *Scheduler) safeRun(ctx context.Context, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			job.stateMu.Lock()
			job.lastState.Panics++
			job.stateMu.Unlock()

			s.logger.WithFields(map[string]interface{}{
				"job":   job.Name,
				"panic": fmt.Sprintf("%v", r),
				"stack": string(debug.Stack()),
			}).Error("Job panicked")
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	return job.Run(ctx)
}
