package scheduler

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CompanyLister lists the companies whose matches are kept up to date.
type CompanyLister interface {
	CompanyIDs(ctx context.Context) ([]uint, error)
}

// Enqueuer accepts regeneration requests.
type Enqueuer interface {
	Enqueue(companyID uint) error
}

// Scheduler periodically queues a regeneration for every company
type Scheduler struct {
	companies CompanyLister
	jobs      Enqueuer
	interval  time.Duration
	logger    *logrus.Logger
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler(companies CompanyLister, jobs Enqueuer, interval time.Duration, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		companies: companies,
		jobs:      jobs,
		interval:  interval,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start runs a first round right away and then one per interval
func (s *Scheduler) Start() {
	if s.interval <= 0 {
		s.logger.Info("Regeneration scheduler disabled")
		return
	}
	s.wg.Add(1)
	go s.runScheduler()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("Running startup regeneration round")
	s.EnqueueAll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.EnqueueAll(ctx)
		}
	}
}

// EnqueueAll queues every company and returns how many were accepted
func (s *Scheduler) EnqueueAll(ctx context.Context) int {
	ids, err := s.companies.CompanyIDs(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list companies for regeneration")
		return 0
	}

	queued := 0
	for _, id := range ids {
		if err := s.jobs.Enqueue(id); err != nil {
			s.logger.WithError(err).WithField("company_id", id).Warn("Could not queue regeneration")
			continue
		}
		queued++
	}

	s.logger.WithFields(logrus.Fields{
		"companies": len(ids),
		"queued":    queued,
	}).Info("Queued scheduled regeneration")
	return queued
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}
