package daemon

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fenilsonani/cleaner-toolbox/internal/config"
)

// ErrJobRunning is returned when a job is triggered while its previous run
// has not finished
var ErrJobRunning = errors.New("job is still running")

// CheckJob represents a scheduled check
type CheckJob struct {
	config.CheckSchedule

	running sync.Mutex
	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

// LastRun returns when the job last started and how it ended
func (j *CheckJob) LastRun() (time.Time, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRun, j.lastErr
}

// JobRunner executes a check
type JobRunner interface {
	RunCheck(ctx context.Context, job *CheckJob) error
}

// Scheduler manages scheduled checks
type Scheduler struct {
	runner    JobRunner
	cron      *cron.Cron
	jobs      map[string]cron.EntryID
	byName    map[string]*CheckJob
	jobsMu    sync.RWMutex
	running   bool
	schedules []config.CheckSchedule
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// cronLogger adapts zap to cron's logger interface
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

// NewScheduler creates a new scheduler
func NewScheduler(runner JobRunner, schedules []config.CheckSchedule, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	parser := cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)

	c := cron.New(cron.WithParser(parser), cron.WithChain(
		cron.Recover(cronLogger{logger.Sugar()}),
	))

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		runner:    runner,
		cron:      c,
		jobs:      make(map[string]cron.EntryID),
		byName:    make(map[string]*CheckJob),
		schedules: schedules,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start registers every configured schedule and starts cron
func (s *Scheduler) Start() error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	for _, schedule := range s.schedules {
		if err := s.addJobInternal(schedule); err != nil {
			return fmt.Errorf("failed to add schedule %s: %w", schedule.Name, err)
		}
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop cancels in-flight checks and waits for them to return
func (s *Scheduler) Stop() {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Second):
		s.logger.Warn("scheduler stop timed out")
	}

	s.running = false
	s.logger.Info("scheduler stopped")
}

// addJobInternal adds a job (internal, no lock)
func (s *Scheduler) addJobInternal(schedule config.CheckSchedule) error {
	if _, exists := s.jobs[schedule.Name]; exists {
		return fmt.Errorf("job %s already exists", schedule.Name)
	}

	job := &CheckJob{CheckSchedule: schedule}

	id, err := s.cron.AddFunc(schedule.Schedule, func() {
		if err := s.run(s.ctx, job); err != nil {
			if errors.Is(err, ErrJobRunning) {
				s.logger.Warn("previous run still active, skipping", zap.String("job", job.Name))
				return
			}
			s.logger.Error("job failed", zap.String("job", job.Name), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.jobs[schedule.Name] = id
	s.byName[schedule.Name] = job

	s.logger.Info("added job",
		zap.String("job", schedule.Name),
		zap.String("check", schedule.Check),
		zap.Time("next_run", s.cron.Entry(id).Next))
	return nil
}

// run executes job unless its previous run is still going
func (s *Scheduler) run(ctx context.Context, job *CheckJob) error {
	if !job.running.TryLock() {
		return ErrJobRunning
	}
	defer job.running.Unlock()

	start := time.Now()
	s.logger.Info("executing job", zap.String("job", job.Name))
	err := s.runner.RunCheck(ctx, job)

	job.mu.Lock()
	job.lastRun = start
	job.lastErr = err
	job.mu.Unlock()

	return err
}

// AddJob adds a new job to the scheduler
func (s *Scheduler) AddJob(schedule config.CheckSchedule) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	return s.addJobInternal(schedule)
}

// RemoveJob removes a job from the scheduler
func (s *Scheduler) RemoveJob(name string) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	id, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.cron.Remove(id)
	delete(s.jobs, name)
	delete(s.byName, name)

	s.logger.Info("removed job", zap.String("job", name))
	return nil
}

// GetNextRun returns the next run time for a job
func (s *Scheduler) GetNextRun(name string) (time.Time, error) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	id, exists := s.jobs[name]
	if !exists {
		return time.Time{}, fmt.Errorf("job %s not found", name)
	}

	return s.cron.Entry(id).Next, nil
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	Check   string
	NextRun time.Time
	PrevRun time.Time
}

// ListJobs returns information about all jobs, sorted by name
func (s *Scheduler) ListJobs() []JobInfo {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	jobs := make([]JobInfo, 0, len(s.jobs))
	for name, id := range s.jobs {
		entry := s.cron.Entry(id)
		jobs = append(jobs, JobInfo{
			Name:    name,
			Check:   s.byName[name].Check,
			NextRun: entry.Next,
			PrevRun: entry.Prev,
		})
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

// TriggerJob runs a registered job now, on the caller's goroutine
func (s *Scheduler) TriggerJob(ctx context.Context, name string) error {
	s.jobsMu.RLock()
	job, exists := s.byName[name]
	s.jobsMu.RUnlock()

	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.logger.Info("manually triggering job", zap.String("job", name))
	return s.run(ctx, job)
}
