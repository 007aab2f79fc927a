package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler runs jobs at fixed intervals until stopped.
type Scheduler struct {
	s    gocron.Scheduler
	once sync.Once
	err  error
}

// NewScheduler creates a stopped Scheduler working in UTC.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("error creating scheduler: %w", err)
	}
	return &Scheduler{s: s}, nil
}

// Every schedules fn to run right after Start and then every interval.
// A run that is still in progress when the next one is due delays it instead of overlapping.
func (s *Scheduler) Every(name string, interval time.Duration, fn JobFunc) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval for job %s: %v", name, interval)
	}

	_, err := s.s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("error scheduling job %s: %w", name, err)
	}
	return nil
}

// Start starts running the scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.s.Start()
}

// Stop stops the timer and waits for running jobs to return. Calling it more than once is safe.
func (s *Scheduler) Stop() error {
	s.once.Do(func() {
		s.err = s.s.Shutdown()
	})
	return s.err
}
