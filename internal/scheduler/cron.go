// Package scheduler runs the periodic backend health checks.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/chatarr/chatarr/internal/services/arr"
)

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron     *cron.Cron
	registry *arr.Registry
	logger   *logrus.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(registry *arr.Registry, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		registry: registry,
		logger:   logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	// Every 30 minutes: ping every configured backend instance
	_, err := s.cron.AddFunc("*/30 * * * *", func() {
		s.runHealthChecks()
	})
	if err != nil {
		return fmt.Errorf("failed to add health check job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	// Run an initial check immediately
	go s.runHealthChecks()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

// runHealthChecks pings the status endpoint of every instance
func (s *Scheduler) runHealthChecks() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for _, client := range s.registry.All() {
		if err := client.Ping(ctx); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"service":  client.MediaType(),
				"instance": client.Label(),
			}).Warn("Backend instance is unreachable")
		}
	}
}
