package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maximillian1508/easyrent-backend/internal/constants"
	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

type DispatcherOptions struct {
	Workers        int
	QueueSize      int
	MaxAttempts    int
	InitialBackoff time.Duration
	AttemptTimeout time.Duration
}

func DefaultDispatcherOptions() DispatcherOptions {
	return DispatcherOptions{
		Workers:        constants.NotificationWorkers,
		QueueSize:      constants.NotificationQueueSize,
		MaxAttempts:    constants.NotificationMaxAttempts,
		InitialBackoff: constants.NotificationInitialBackoff,
		AttemptTimeout: constants.NotificationTimeout,
	}
}

type notificationJob struct {
	kind string
	run  func(ctx context.Context) error
}

// NotificationDispatcher is a small worker pool for best-effort
// notifications. Jobs are retried with exponential backoff; a job that
// exhausts its attempts is logged and dropped.
type NotificationDispatcher struct {
	opts  DispatcherOptions
	queue chan notificationJob
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewNotificationDispatcher(opts DispatcherOptions) *NotificationDispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = constants.NotificationTimeout
	}

	d := &NotificationDispatcher{
		opts:  opts,
		queue: make(chan notificationJob, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Dispatch never blocks the caller. When the queue is full or the
// dispatcher is closed the job is dropped and logged.
func (d *NotificationDispatcher) Dispatch(kind string, job func(ctx context.Context) error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		utils.Logger.WithField("kind", kind).Warn("Notification dropped: dispatcher closed")
		return
	}
	select {
	case d.queue <- notificationJob{kind: kind, run: job}:
	default:
		utils.Logger.WithField("kind", kind).Error("Notification dropped: queue full")
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *NotificationDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for job := range d.queue {
		d.run(job)
	}
}

func (d *NotificationDispatcher) run(job notificationJob) {
	backoff := d.opts.InitialBackoff
	for attempt := 1; attempt <= d.opts.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.AttemptTimeout)
		err := job.run(ctx)
		cancel()
		if err == nil {
			return
		}

		entry := utils.Logger.WithError(err).WithFields(logrus.Fields{
			"kind":    job.kind,
			"attempt": attempt,
		})
		if attempt == d.opts.MaxAttempts {
			entry.Error("Notification failed, giving up")
			return
		}
		entry.Warn("Notification failed, retrying")
		time.Sleep(backoff)
		backoff *= 2
	}
}
