package work

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Daskott/safenest/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jobStatus(t *testing.T, store *models.Store, id uint) string {
	job, err := store.FindJob(context.Background(), id)
	require.NoError(t, err)
	return job.Status
}

func lastJob(t *testing.T, store *models.Store) models.Job {
	jobs, _, err := store.FetchJobs(context.Background(), "", 1)
	require.NoError(t, err)
	require.NotEmpty(t, jobs)
	return jobs[0]
}

func TestPerformRunsRegisteredHandler(t *testing.T) {
	store := models.InitializeTestDb(t)

	adapter := NewWorkerAdapter(store, "UTC", 2)
	received := make(chan map[string]interface{}, 1)

	require.NoError(t, adapter.Register("greet", func(args map[string]interface{}) error {
		received <- args
		return nil
	}))
	require.NoError(t, adapter.Start())
	defer adapter.Stop()

	err := adapter.Perform(JobParams{
		Name:    "greet-harvey",
		Handler: "greet",
		Args:    map[string]interface{}{"first_name": "harvey", "member_id": 7},
	})
	require.NoError(t, err)

	select {
	case args := <-received:
		assert.Equal(t, "harvey", args["first_name"])
		assert.Equal(t, float64(7), args["member_id"], "numbers should arrive JSON decoded")
	case <-time.After(5 * time.Second):
		t.Fatal("handler was never called")
	}

	job := lastJob(t, store)
	require.Eventually(t, func() bool {
		return jobStatus(t, store, job.ID) == models.SUCCESSFUL_JOB
	}, 5*time.Second, 20*time.Millisecond)
}

func TestFailingJobIsMarkedDead(t *testing.T) {
	store := models.InitializeTestDb(t)

	adapter := NewWorkerAdapter(store, "UTC", 1)
	var calls int32

	require.NoError(t, adapter.Register("explode", func(args map[string]interface{}) error {
		atomic.AddInt32(&calls, 1)
		return fmt.Errorf("boom")
	}))
	require.NoError(t, adapter.Register("panic", func(args map[string]interface{}) error {
		panic("bad handler")
	}))
	require.NoError(t, adapter.Start())
	defer adapter.Stop()

	require.NoError(t, adapter.Perform(JobParams{Name: "explode", Handler: "explode"}))
	failed := lastJob(t, store)

	require.Eventually(t, func() bool {
		return jobStatus(t, store, failed.ID) == models.DEAD_JOB
	}, 5*time.Second, 20*time.Millisecond)

	job, err := store.FindJob(context.Background(), failed.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, job.Fails)
	assert.Equal(t, "boom", job.LastError)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "dead jobs should not be retried")

	require.NoError(t, adapter.Perform(JobParams{Name: "panic", Handler: "panic"}))
	panicked := lastJob(t, store)

	require.Eventually(t, func() bool {
		return jobStatus(t, store, panicked.ID) == models.DEAD_JOB
	}, 5*time.Second, 20*time.Millisecond)
}

func TestPerformValidatesJob(t *testing.T) {
	store := models.InitializeTestDb(t)

	adapter := NewWorkerAdapter(store, "UTC", 1)
	require.NoError(t, adapter.Register("noop", func(args map[string]interface{}) error { return nil }))

	assert.Error(t, adapter.Perform(JobParams{Name: "", Handler: "noop"}))
	assert.Error(t, adapter.Perform(JobParams{Name: "missing", Handler: "unknown"}))
	assert.ErrorIs(t, adapter.Perform(JobParams{Name: "early", Handler: "noop"}), ErrPoolStopped)

	assert.ErrorIs(t, adapter.Register("noop", func(args map[string]interface{}) error { return nil }), ErrDuplicateHandler)
}

func TestStartReapsUnfinishedJobs(t *testing.T) {
	store := models.InitializeTestDb(t)
	ctx := context.Background()

	stale := &models.Job{Name: "stale", Handler: "noop", Status: models.IN_PROGRESS_JOB}
	require.NoError(t, store.CreateJob(ctx, stale))
	queued := &models.Job{Name: "queued", Handler: "noop"}
	require.NoError(t, store.CreateJob(ctx, queued))
	done := &models.Job{Name: "done", Handler: "noop", Status: models.SUCCESSFUL_JOB}
	require.NoError(t, store.CreateJob(ctx, done))

	adapter := NewWorkerAdapter(store, "UTC", 1)
	require.NoError(t, adapter.Start())
	defer adapter.Stop()

	assert.Equal(t, models.DEAD_JOB, jobStatus(t, store, stale.ID))
	assert.Equal(t, models.DEAD_JOB, jobStatus(t, store, queued.ID))
	assert.Equal(t, models.SUCCESSFUL_JOB, jobStatus(t, store, done.ID))

	job, err := store.FindJob(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, REAPED_JOB_REASON, job.LastError)
}

func TestPeriodicallyPerform(t *testing.T) {
	store := models.InitializeTestDb(t)

	adapter := NewWorkerAdapter(store, "Not/AZone", 1)
	require.NoError(t, adapter.Register("tick", func(args map[string]interface{}) error { return nil }))

	err := adapter.PeriodicallyPerform("0 3 * * *", JobParams{Name: "nightly", Handler: "tick"})
	require.NoError(t, err)

	err = adapter.PeriodicallyPerform("not a cron", JobParams{Name: "broken", Handler: "tick"})
	assert.Error(t, err)

	assert.NoError(t, adapter.RemovePeriodicJob("nightly"))
}
