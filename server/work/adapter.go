package work

import (
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
)

const DEFAULT_CONCURRENCY = 4

type WorkerPoolAdapter struct {
	cronScheduler *gocron.Scheduler
	pool          *WorkerPool
	store         JobStore
}

func NewWorkerAdapter(store JobStore, timeZoneArg string, concurrency int) *WorkerPoolAdapter {
	if concurrency <= 0 {
		concurrency = DEFAULT_CONCURRENCY
	}

	return &WorkerPoolAdapter{
		cronScheduler: newCronScheduler(timeZoneArg),
		pool:          NewWorkerPool(store, concurrency),
		store:         store,
	}
}

// Start reaps jobs left unfinished by a previous run, then starts the cron scheduler & worker pool
func (adapter *WorkerPoolAdapter) Start() error {
	reapUnfinishedJobs(adapter.store)

	logg.Info("Starting cron scheduler & worker pool")
	adapter.cronScheduler.StartAsync()
	adapter.pool.Start()

	return nil
}

// Stop stops the cron scheduler & worker pool
func (adapter *WorkerPoolAdapter) Stop() error {
	logg.Info("Stopping cron scheduler & worker pool")
	adapter.cronScheduler.Stop()
	adapter.pool.Stop()

	return nil
}

// Register binds a name to a handler.
func (adapter *WorkerPoolAdapter) Register(name string, handler Handler) error {
	return adapter.pool.RegisterHandler(name, handler)
}

// Perform sends a new job to the queue, now - to be executed as soon as a worker is available
func (adapter *WorkerPoolAdapter) Perform(job JobParams) error {
	logg.Debugf("Enqueuing job: %v", job.Name)

	err := adapter.pool.Enqueue(job)
	if errors.Is(err, ErrQueueFull) {
		logg.Warnf("Queue is full, dropping job: %v", job.Name)
		return err
	}

	if err != nil {
		return errors.Wrapf(err, "error enqueuing job: %v", job.Name)
	}

	return nil
}

// PeriodicallyPerform adds a job to the queue (to be executed)
// periodically, based on the 'cronExpression' expression provided
func (adapter *WorkerPoolAdapter) PeriodicallyPerform(cronExpression string, job JobParams) error {
	_, err := adapter.cronScheduler.Cron(cronExpression).Tag(job.Name).
		Do(
			func(job JobParams) {
				err := adapter.Perform(job)
				if err != nil {
					logg.Error(err)
				}
			},
			job,
		)

	return err
}

func (adapter *WorkerPoolAdapter) RemovePeriodicJob(jobName string) error {
	return adapter.cronScheduler.RemoveByTag(jobName)
}

func newCronScheduler(timeZoneArg string) *gocron.Scheduler {
	timeZone, err := time.LoadLocation(timeZoneArg)
	if err != nil {
		logg.Warnf("unknown time zone %q, using UTC: %v", timeZoneArg, err)
		timeZone = time.UTC
	}

	scheduler := gocron.NewScheduler(timeZone)
	scheduler.TagsUnique()

	return scheduler
}
