package server

import (
	"context"
	"time"

	"github.com/Daskott/safenest/colors"
	"github.com/Daskott/safenest/server/work"
	"github.com/pkg/errors"
)

const (
	BACKUP_SQLITE_DB_HANDLER  = "backupSqliteDb"
	SNAPSHOT_INSIGHTS_HANDLER = "snapshotInsights"

	DEFAULT_INSIGHTS_SCHEDULE = "0 6 * * *"
)

// snapshotInsights stores today's insights for every guardian. One guardian
// failing doesn't stop the rest, the last error is returned.
func (s *Server) snapshotInsights(map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	guardianIDs, err := s.store.GuardianIDs(ctx)
	if err != nil {
		return errors.Wrap(err, "snapshotInsights")
	}

	var lastErr error
	for _, guardianID := range guardianIDs {
		_, err := s.aggregator.Snapshot(ctx, guardianID)
		if err != nil {
			logg.Errorf(colors.Red("[insights] ")+"unable to snapshot insights for guardian %v: %v", guardianID, err)
			lastErr = err
		}
	}

	logg.Infof(colors.Green("[insights] ")+"snapshot taken for %v guardian(s)", len(guardianIDs))
	return lastErr
}

// backupSqliteDb uploads the sqlite db file to google storage
func (s *Server) backupSqliteDb(map[string]interface{}) error {
	if s.gStorage == nil || s.store.SqliteDbPath() == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	err := s.store.Checkpoint(ctx)
	if err != nil {
		return errors.Wrap(err, "backupSqliteDb")
	}

	err = s.gStorage.UploadFile(ctx, s.store.SqliteDbPath())
	if err != nil {
		return errors.Wrap(err, "backupSqliteDb")
	}

	return nil
}

func (s *Server) registerJobHandlers() error {
	err := s.checker.Register(s.workerPool)
	if err != nil {
		return err
	}

	err = s.workerPool.Register(SNAPSHOT_INSIGHTS_HANDLER, s.snapshotInsights)
	if err != nil {
		return err
	}

	return s.workerPool.Register(BACKUP_SQLITE_DB_HANDLER, s.backupSqliteDb)
}

func (s *Server) enqueueJobs() error {
	insightsSchedule := s.config.SafeNest.Cron.InsightsSchedule
	if insightsSchedule == "" {
		insightsSchedule = DEFAULT_INSIGHTS_SCHEDULE
	}

	err := s.workerPool.PeriodicallyPerform(insightsSchedule, work.JobParams{
		Name:    SNAPSHOT_INSIGHTS_HANDLER,
		Handler: SNAPSHOT_INSIGHTS_HANDLER,
		Args:    map[string]interface{}{},
	})
	if err != nil {
		return errors.Wrap(err, "invalid insights schedule")
	}

	if s.gStorage == nil {
		return nil
	}

	err = s.workerPool.PeriodicallyPerform(s.config.Google.Storage.SqliteBackupSchedule, work.JobParams{
		Name:    BACKUP_SQLITE_DB_HANDLER,
		Handler: BACKUP_SQLITE_DB_HANDLER,
		Args:    map[string]interface{}{},
	})
	if err != nil {
		return errors.Wrap(err, "invalid sqlite backup schedule")
	}

	return nil
}
