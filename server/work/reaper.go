package work

import (
	"context"
	"time"

	"github.com/Daskott/safenest/colors"
)

const REAPED_JOB_REASON = "interrupted by server shutdown"

// reapUnfinishedJobs marks jobs that were queued or running when the last
// process stopped as dead. The queue lives in memory, so they can't be resumed.
func reapUnfinishedJobs(store JobStore) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reaped, err := store.MarkUnfinishedJobsDead(ctx, REAPED_JOB_REASON)
	if err != nil {
		logg.Error(colors.Red("[job reaper] "), err)
		return
	}

	if reaped > 0 {
		logg.Infof(colors.Yellow("[job reaper] ")+"%v unfinished job(s) marked as dead", reaped)
	}
}
