package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fleetdocs/pkg/config"
)

// Scheduler periodically drains pending documents and expires overdue
// reminders. One instance runs per process.
type Scheduler struct {
	processor *ProcessorService
	reminders *ReminderService
	config    *config.SchedulerConfig
	logger    *zap.Logger
	done      chan struct{}
	stopped   chan struct{}
}

func NewScheduler(processor *ProcessorService, reminders *ReminderService, cfg *config.SchedulerConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		processor: processor,
		reminders: reminders,
		config:    cfg,
		logger:    logger,
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Scheduler) Stop() {
	close(s.done)
	<-s.stopped
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.stopped)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.logger.Info("Scheduler started", zap.Duration("interval", s.config.Interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	processed := s.processor.ProcessPending(ctx, s.config.PendingBatch)
	if processed > 0 {
		s.logger.Info("Pending sweep finished", zap.Int("processed", processed))
	}
	if err := s.reminders.ExpireOverdue(ctx); err != nil {
		s.logger.Error("Reminder expiry sweep failed", zap.Error(err))
	}
}
