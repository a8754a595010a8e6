package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SchedulerConfig holds the cadences of the background jobs
type SchedulerConfig struct {
	SweepInterval     time.Duration
	ReconcileInterval time.Duration
}

// SchedulerService drives the periodic inventory sweep and the pending
// booking reconciler. Jobs never overlap themselves: a tick that fires while
// the previous run is still going is skipped.
type SchedulerService struct {
	cron       *cron.Cron
	inventory  *InventoryService
	bookingSvc *BookingService
	config     SchedulerConfig
	logger     *logrus.Logger
}

// NewSchedulerService creates a new SchedulerService
func NewSchedulerService(
	inventory *InventoryService,
	bookingSvc *BookingService,
	config SchedulerConfig,
	logger *logrus.Logger,
) *SchedulerService {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.PrintfLogger(logger)),
	))

	return &SchedulerService{
		cron:       c,
		inventory:  inventory,
		bookingSvc: bookingSvc,
		config:     config,
		logger:     logger,
	}
}

// Start registers and starts all background jobs
func (s *SchedulerService) Start() error {
	sweepSpec := fmt.Sprintf("@every %s", s.config.SweepInterval)
	if _, err := s.cron.AddFunc(sweepSpec, s.sweepJob); err != nil {
		return fmt.Errorf("failed to schedule inventory sweep: %w", err)
	}
	s.logger.Infof("Scheduled: inventory expiry sweep (%s)", sweepSpec)

	reconcileSpec := fmt.Sprintf("@every %s", s.config.ReconcileInterval)
	if _, err := s.cron.AddFunc(reconcileSpec, s.reconcileJob); err != nil {
		return fmt.Errorf("failed to schedule booking reconciliation: %w", err)
	}
	s.logger.Infof("Scheduled: booking status reconciliation (%s)", reconcileSpec)

	s.cron.Start()
	s.logger.Info("Scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *SchedulerService) Stop() {
	s.logger.Info("Stopping scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

func (s *SchedulerService) sweepJob() {
	start := time.Now()
	released, err := s.inventory.SweepExpired(context.Background())
	if err != nil {
		s.logger.WithError(err).Error("Inventory sweep failed")
		return
	}
	if released > 0 {
		s.logger.WithFields(logrus.Fields{
			"released": released,
			"took":     time.Since(start),
		}).Info("Inventory sweep finished")
	}
}

func (s *SchedulerService) reconcileJob() {
	start := time.Now()
	timedOut, err := s.bookingSvc.ReconcilePendingBookings(context.Background())
	if err != nil {
		s.logger.WithError(err).Error("Booking reconciliation failed")
		return
	}
	if timedOut > 0 {
		s.logger.WithFields(logrus.Fields{
			"timed_out": timedOut,
			"took":      time.Since(start),
		}).Info("Booking reconciliation finished")
	}
}

// RunSweepNow runs the inventory sweep immediately (admin/testing hook)
func (s *SchedulerService) RunSweepNow() {
	s.sweepJob()
}

// RunReconcileNow runs the booking reconciliation immediately (admin/testing hook)
func (s *SchedulerService) RunReconcileNow() {
	s.reconcileJob()
}
