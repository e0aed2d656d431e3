package work

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Daskott/safenest/colors"
	"github.com/Daskott/safenest/server/logger"
	"github.com/Daskott/safenest/server/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// JOB_TIMEOUT bounds how long a worker waits on the store while recording a job's outcome
const JOB_TIMEOUT = 10 * time.Second

var (
	ErrDuplicateHandler = errors.New("handler with provided name already mapped")

	logg = logger.NewLogger()
)

type JobParams struct {
	Name    string
	Handler string
	Args    map[string]interface{}
}

// Handler runs a job. Args is the JSON decoded form of JobParams.Args,
// so numbers arrive as float64.
type Handler func(map[string]interface{}) error

type worker struct {
	id       string
	pool     *WorkerPool
	stopChan chan struct{}
	doneChan chan struct{}
}

func newWorker(pool *WorkerPool) *worker {
	return &worker{
		id:   uuid.NewString()[:8],
		pool: pool,
	}
}

// start starts the worker loop that pulls jobs from the queue & process them
func (w *worker) start() {
	w.stopChan = make(chan struct{})
	w.doneChan = make(chan struct{})
	go w.loop()
}

func (w *worker) stop() {
	close(w.stopChan)
	<-w.doneChan
}

func (w *worker) loop() {
	defer close(w.doneChan)

	w.logDebugf("starting")
	for {
		select {
		case <-w.stopChan:
			w.logDebugf("stopping")
			return
		case job := <-w.pool.queue:
			w.processJob(job)
		}
	}
}

func (w *worker) processJob(job *models.Job) {
	w.updateJob(job, map[string]interface{}{"status": models.IN_PROGRESS_JOB})

	handler, ok := w.pool.handler(job.Handler)
	if !ok {
		w.markJobAsDead(job, fmt.Errorf("no handler registered for '%v'", job.Handler))
		return
	}

	args := make(map[string]interface{})
	err := json.Unmarshal([]byte(job.Args), &args)
	if err != nil {
		w.markJobAsDead(job, err)
		return
	}

	err = runHandler(handler, args)
	if err != nil {
		w.markJobAsDead(job, err)
		return
	}

	w.updateJob(job, map[string]interface{}{"status": models.SUCCESSFUL_JOB})
	w.logDebugf("job with id=%v completed with status=%v", job.ID, models.SUCCESSFUL_JOB)
}

// markJobAsDead records the failure. Jobs are never retried automatically.
func (w *worker) markJobAsDead(job *models.Job, runError error) {
	w.logError(fmt.Sprintf("job %v (id=%v) failed: %v", job.Name, job.ID, runError))

	job.Fails++
	w.updateJob(job, map[string]interface{}{
		"status":     models.DEAD_JOB,
		"fails":      job.Fails,
		"last_error": runError.Error(),
	})
}

func (w *worker) updateJob(job *models.Job, data map[string]interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), JOB_TIMEOUT)
	defer cancel()

	err := w.pool.store.UpdateJob(ctx, job.ID, data)
	if err != nil {
		w.logError(err)
	}
}

// runHandler turns a panicking handler into an error, so one bad job can't kill the worker
func runHandler(handler Handler, args map[string]interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return handler(args)
}

func (w *worker) logDebugf(template string, args ...interface{}) {
	prefix := colors.Yellow(fmt.Sprintf("[worker %v] ", w.id))
	logg.Debugf(prefix+template, args...)
}

func (w *worker) logError(args ...interface{}) {
	prefix := colors.Red(fmt.Sprintf("[worker %v] ", w.id))
	logg.Error(append([]interface{}{prefix}, args...)...)
}
