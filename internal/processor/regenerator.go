package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"groundmatch/server/config"
	"groundmatch/server/internal/metrics"
	"groundmatch/server/internal/models"
	"groundmatch/server/internal/queue"
	"groundmatch/server/internal/staging"
)

// Generator regenerates the matches of a company.
type Generator interface {
	Generate(ctx context.Context, companyID uint, session *staging.Session) ([]models.Candidate, error)
}

// Regenerator drains the regeneration queue and writes pending matches for
// each company, retrying failed runs.
type Regenerator struct {
	generator Generator
	logger    *logrus.Logger
	config    *config.Config
	queue     *queue.JobQueue
	stopOnce  sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewRegenerator creates a new regenerator instance
func NewRegenerator(generator Generator, jobs *queue.JobQueue, cfg *config.Config, logger *logrus.Logger) *Regenerator {
	if logger == nil {
		logger = logrus.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Regenerator{
		generator: generator,
		queue:     jobs,
		config:    cfg,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start subscribes to the queue and launches the workers
func (p *Regenerator) Start() {
	p.queue.Subscribe(p.processJob)
	p.queue.Start(p.config.Regeneration.WorkerCount)
	p.logger.WithField("workers", p.config.Regeneration.WorkerCount).Info("Regeneration workers started")
}

// Enqueue schedules a regeneration for the company
func (p *Regenerator) Enqueue(companyID uint) error {
	if err := p.queue.Push(companyID); err != nil {
		return fmt.Errorf("failed to enqueue regeneration for company %d: %w", companyID, err)
	}
	metrics.RegenerationQueueDepth.Set(float64(p.queue.Len()))
	return nil
}

// Stop cancels running jobs and waits for the workers to exit
func (p *Regenerator) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		_ = p.queue.Close()
		p.logger.Info("Regeneration workers stopped")
	})
}

// processJob runs one regeneration with retry logic
func (p *Regenerator) processJob(job queue.Job) error {
	metrics.RegenerationQueueDepth.Set(float64(p.queue.Len()))
	maxRetries := p.config.Regeneration.MaxRetries
	delay := time.Duration(p.config.Regeneration.RetryDelay) * time.Second

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			p.logger.WithFields(logrus.Fields{
				"company_id": job.CompanyID,
				"attempt":    attempt,
				"max":        maxRetries,
			}).Info("Retrying regeneration")

			select {
			case <-p.ctx.Done():
				metrics.RegenerationJobs.WithLabelValues("cancelled").Inc()
				return p.ctx.Err()
			case <-time.After(delay):
			}
		}

		var candidates []models.Candidate
		candidates, err = p.generator.Generate(p.ctx, job.CompanyID, nil)
		if err == nil {
			metrics.RegenerationJobs.WithLabelValues("success").Inc()
			p.logger.WithFields(logrus.Fields{
				"company_id": job.CompanyID,
				"candidates": len(candidates),
				"waited":     time.Since(job.EnqueuedAt).String(),
			}).Info("Regenerated matches")
			return nil
		}
		if p.ctx.Err() != nil {
			metrics.RegenerationJobs.WithLabelValues("cancelled").Inc()
			return p.ctx.Err()
		}

		p.logger.WithError(err).WithField("company_id", job.CompanyID).Error("Regeneration failed")
	}

	metrics.RegenerationJobs.WithLabelValues("failed").Inc()
	return fmt.Errorf("failed to regenerate company %d after %d attempts: %w", job.CompanyID, maxRetries+1, err)
}
