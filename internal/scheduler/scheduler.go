package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Job is a named unit of background work.
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages background jobs on cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// New creates a scheduler using the standard 5-field cron syntax.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger.With("component", "scheduler"),
	}
}

// Start begins executing registered jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// AddJob registers a job. Schedule accepts cron expressions
// ("*/15 * * * *") and descriptors ("@hourly", "@every 30s").
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.logger.Debug("running job", "job", job.Name())
		if err := job.Run(); err != nil {
			s.logger.Error("job failed", "job", job.Name(), "error", err)
			return
		}
		s.logger.Debug("job completed", "job", job.Name())
	})
	if err != nil {
		return err
	}
	s.logger.Info("job registered", "job", job.Name(), "schedule", schedule)
	return nil
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	s.logger.Info("running job immediately", "job", job.Name())
	return job.Run()
}
