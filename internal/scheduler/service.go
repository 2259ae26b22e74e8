package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service triggers recurring collection runs from a cron schedule
type Service struct {
	schedule string
	run      func()
	cron     *cron.Cron
}

// NewService creates a new scheduler service. The schedule is a cron
// expression with a seconds field; run is invoked on each tick.
func NewService(schedule string, run func()) *Service {
	return &Service{
		schedule: schedule,
		run:      run,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled collection runs
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		logrus.Info("Starting scheduled collection run")
		s.run()
	})

	if err != nil {
		return fmt.Errorf("invalid collection schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with schedule %q", s.schedule)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
