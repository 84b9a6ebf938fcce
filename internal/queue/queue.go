package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Job asks for the matches of one company to be regenerated.
type Job struct {
	CompanyID  uint
	EnqueuedAt time.Time
}

// JobQueue is an in-memory queue of regeneration jobs. A company that is
// already waiting in the queue is not queued twice.
type JobQueue struct {
	items    chan Job
	done     chan struct{}
	maxSize  int
	closed   bool
	pending  map[uint]bool
	mu       sync.RWMutex
	wg       sync.WaitGroup
	logger   *logrus.Logger
	handlers []func(Job) error
}

// NewJobQueue creates a new job queue with the specified buffer size
func NewJobQueue(bufferSize int, logger *logrus.Logger) *JobQueue {
	if logger == nil {
		logger = logrus.New()
	}
	return &JobQueue{
		items:    make(chan Job, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		pending:  make(map[uint]bool),
		logger:   logger,
		handlers: make([]func(Job) error, 0),
	}
}

// Push queues a regeneration for the company
func (q *JobQueue) Push(companyID uint) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.pending[companyID] {
		q.logger.WithField("company_id", companyID).Debug("Regeneration already queued")
		return nil
	}

	// Non-blocking send to prevent deadlocks
	select {
	case q.items <- Job{CompanyID: companyID, EnqueuedAt: time.Now()}:
		q.pending[companyID] = true
		q.logger.WithField("company_id", companyID).Debug("Pushed job to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler function that will be called for each job
func (q *JobQueue) Subscribe(handler func(Job) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start launches the given number of workers draining the queue
func (q *JobQueue) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.process()
	}
}

func (q *JobQueue) process() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			return
		case job := <-q.items:
			q.mu.Lock()
			delete(q.pending, job.CompanyID)
			q.mu.Unlock()
			q.processJob(job)
		}
	}
}

// processJob sends the job to all subscribed handlers
func (q *JobQueue) processJob(job Job) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(job); err != nil {
			q.logger.WithError(err).WithField("company_id", job.CompanyID).Error("Handler failed to process job")
		}
	}
}

// Close stops the workers after their current job and rejects new jobs.
// Jobs still waiting are dropped.
func (q *JobQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// Len returns the current number of jobs in the queue
func (q *JobQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *JobQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
