package work

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Daskott/safenest/server/models"
	"github.com/pkg/errors"
)

const QUEUE_SIZE = 1024

var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrPoolStopped = errors.New("worker pool is not running")
)

// JobStore records jobs & their outcome
type JobStore interface {
	CreateJob(ctx context.Context, job *models.Job) error
	UpdateJob(ctx context.Context, id uint, data map[string]interface{}) error
	MarkUnfinishedJobsDead(ctx context.Context, reason string) (int64, error)
}

type WorkerPool struct {
	mu          sync.RWMutex
	handlers    map[string]Handler
	workers     []*worker
	queue       chan *models.Job
	store       JobStore
	concurrency int
	started     bool
}

func NewWorkerPool(store JobStore, concurrency int) *WorkerPool {
	wp := WorkerPool{
		handlers:    make(map[string]Handler),
		queue:       make(chan *models.Job, QUEUE_SIZE),
		store:       store,
		concurrency: concurrency,
	}

	for i := 0; i < concurrency; i++ {
		wp.workers = append(wp.workers, newWorker(&wp))
	}

	return &wp
}

// RegisterHandler binds a name to a job handler for all workers in pool
func (wp *WorkerPool) RegisterHandler(name string, handler Handler) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if _, ok := wp.handlers[name]; ok {
		return ErrDuplicateHandler
	}

	wp.handlers[name] = handler
	return nil
}

func (wp *WorkerPool) handler(name string) (Handler, bool) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	handler, ok := wp.handlers[name]
	return handler, ok
}

// Enqueue records a job based on 'JobParams' provided & hands it to the next free worker
func (wp *WorkerPool) Enqueue(params JobParams) error {
	if strings.TrimSpace(params.Name) == "" || strings.TrimSpace(params.Handler) == "" {
		return fmt.Errorf("both a name & handler is required for a job")
	}

	if _, ok := wp.handler(params.Handler); !ok {
		return fmt.Errorf("no handler registered for '%v'", params.Handler)
	}

	wp.mu.RLock()
	started := wp.started
	wp.mu.RUnlock()

	if !started {
		return ErrPoolStopped
	}

	argsAsJson, err := json.Marshal(params.Args)
	if err != nil {
		return err
	}

	job := &models.Job{Name: params.Name, Handler: params.Handler, Args: string(argsAsJson)}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = wp.store.CreateJob(ctx, job)
	if err != nil {
		return errors.Wrap(err, "unable to record job")
	}

	select {
	case wp.queue <- job:
		return nil
	default:
		updateErr := wp.store.UpdateJob(ctx, job.ID, map[string]interface{}{
			"status":     models.DEAD_JOB,
			"last_error": ErrQueueFull.Error(),
		})
		if updateErr != nil {
			logg.Error(updateErr)
		}
		return ErrQueueFull
	}
}

// Start starts all workers in pool i.e the workers can start processing jobs
func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return
	}
	wp.started = true

	for _, worker := range wp.workers {
		worker.start()
	}
}

// Stop stops all workers in pool & waits for jobs being processed to complete.
// Jobs still queued are left 'enqueued' and get reaped on the next start.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if !wp.started {
		wp.mu.Unlock()
		return
	}
	wp.started = false
	wp.mu.Unlock()

	wg := sync.WaitGroup{}
	for _, w := range wp.workers {
		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			w.stop()
		}(w)
	}
	wg.Wait()
}
