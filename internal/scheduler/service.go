// Package scheduler runs the periodic background jobs (profile extraction,
// draft pruning) on cron expressions with a seconds field.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const stopTimeout = 5 * time.Second

var parser = rcron.NewParser(rcron.Second | rcron.Minute | rcron.Hour | rcron.Dom | rcron.Month | rcron.Dow | rcron.Descriptor)

// JobFunc does the work of one run and returns a short result summary.
type JobFunc func(ctx context.Context) (string, error)

type Job struct {
	Name string
	Expr string
	Run  JobFunc
}

// JobState is the outcome of the most recent run.
type JobState struct {
	Name       string    `json:"name"`
	Expr       string    `json:"expr"`
	Runs       int       `json:"runs"`
	LastRun    time.Time `json:"lastRun,omitempty"`
	LastStatus string    `json:"lastStatus,omitempty"`
	LastResult string    `json:"lastResult,omitempty"`
	LastError  string    `json:"lastError,omitempty"`
}

type entry struct {
	job   Job
	state JobState
}

type Service struct {
	logger *zap.Logger

	mu      sync.Mutex
	jobs    []*entry
	cron    *rcron.Cron
	runCtx  context.Context
	cancel  context.CancelFunc
	running bool
}

func New(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger.Named("scheduler")}
}

// Add registers a job. Jobs must be added before Start.
func (s *Service) Add(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("job %s: no run function", job.Name)
	}
	if _, err := parser.Parse(job.Expr); err != nil {
		return fmt.Errorf("job %s: invalid cron expression %q: %w", job.Name, job.Expr, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("job %s: scheduler already running", job.Name)
	}
	for _, e := range s.jobs {
		if e.job.Name == job.Name {
			return fmt.Errorf("job %s: already registered", job.Name)
		}
	}
	s.jobs = append(s.jobs, &entry{job: job, state: JobState{Name: job.Name, Expr: job.Expr}})
	return nil
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.cron = rcron.New(rcron.WithParser(parser))
	for _, e := range s.jobs {
		e := e
		if _, err := s.cron.AddFunc(e.job.Expr, func() { s.execute(e) }); err != nil {
			s.cancel()
			return fmt.Errorf("register job %s: %w", e.job.Name, err)
		}
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("started", zap.Int("jobs", len(s.jobs)))
	return nil
}

// Run starts the scheduler and blocks until ctx is done, then stops it.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, c := s.cancel, s.cron
	s.mu.Unlock()

	cancel()
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(stopTimeout):
		s.logger.Warn("stop timeout waiting for running jobs")
	}
	s.logger.Info("stopped")
}

// RunNow executes the named job synchronously.
func (s *Service) RunNow(ctx context.Context, name string) (JobState, error) {
	s.mu.Lock()
	var found *entry
	for _, e := range s.jobs {
		if e.job.Name == name {
			found = e
		}
	}
	s.mu.Unlock()
	if found == nil {
		return JobState{}, fmt.Errorf("job %s not found", name)
	}
	s.executeWith(ctx, found)
	return s.state(found), nil
}

func (s *Service) Jobs() []JobState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobState, len(s.jobs))
	for i, e := range s.jobs {
		out[i] = e.state
	}
	return out
}

func (s *Service) state(e *entry) JobState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.state
}

func (s *Service) execute(e *entry) {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	s.executeWith(ctx, e)
}

func (s *Service) executeWith(ctx context.Context, e *entry) {
	log := s.logger.With(zap.String("job", e.job.Name))
	log.Debug("executing")

	result, err := e.job.Run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	e.state.Runs++
	e.state.LastRun = time.Now()
	if err != nil {
		e.state.LastStatus = "error"
		e.state.LastError = err.Error()
		log.Warn("job failed", zap.Error(err))
		return
	}
	e.state.LastStatus = "ok"
	e.state.LastError = ""
	e.state.LastResult = result
	log.Info("job done", zap.String("result", result))
}
