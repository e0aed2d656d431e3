package models

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

const (
	ENQUEUED_JOB    = "enqueued"
	IN_PROGRESS_JOB = "in-progress"
	SUCCESSFUL_JOB  = "successful"
	DEAD_JOB        = "dead"
)

var JobStatusNameMap = map[string]bool{
	ENQUEUED_JOB:    true,
	IN_PROGRESS_JOB: true,
	SUCCESSFUL_JOB:  true,
	DEAD_JOB:        true,
}

type Job struct {
	BaseModel
	Fails     int    `json:"fails"`
	Name      string `json:"name" gorm:"not null"`
	Handler   string `json:"handler" gorm:"not null"`
	Args      string `json:"args"`
	LastError string `json:"last_error"`
	Status    string `json:"status" gorm:"not null;index;default:enqueued"`
}

type JobsStats struct {
	EnqueuedJobCount   int64 `json:"enqueued_job_count"`
	InProgressJobCount int64 `json:"in_progress_job_count"`
	SuccessfulJobCount int64 `json:"successful_job_count"`
	DeadJobCount       int64 `json:"dead_job_count"`
}

func (s *Store) CreateJob(ctx context.Context, job *Job) error {
	if job.Status == "" {
		job.Status = ENQUEUED_JOB
	}

	return s.withContext(ctx).Create(job).Error
}

func (s *Store) UpdateJob(ctx context.Context, id uint, data map[string]interface{}) error {
	return s.withContext(ctx).Model(&Job{}).Where("id = ?", id).Updates(data).Error
}

func (s *Store) FindJob(ctx context.Context, id uint) (*Job, error) {
	job := Job{}
	err := s.withContext(ctx).First(&job, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return &job, nil
}

// FetchJobs returns a page of jobs, newest first. An empty status matches every job.
func (s *Store) FetchJobs(ctx context.Context, status string, page int) ([]Job, *Paging, error) {
	if status != "" && !JobStatusNameMap[status] {
		return nil, nil, fmt.Errorf("unknown job status: %v", status)
	}

	var total int64
	jobs := []Job{}

	byStatus := func(db *gorm.DB) *gorm.DB {
		if status == "" {
			return db
		}
		return db.Where("status = ?", status)
	}

	err := s.withContext(ctx).Model(&Job{}).Scopes(byStatus).Count(&total).Error
	if err != nil {
		return nil, nil, err
	}

	err = s.withContext(ctx).Scopes(byStatus, paginate(page, MAX_PAGE_SIZE)).
		Order("id DESC").Find(&jobs).Error
	if err != nil {
		return nil, nil, err
	}

	return jobs, newPaging(int64(page), MAX_PAGE_SIZE, total), nil
}

func (s *Store) CurrentJobsStats(ctx context.Context) (*JobsStats, error) {
	stats := JobsStats{}
	counts := map[string]*int64{
		ENQUEUED_JOB:    &stats.EnqueuedJobCount,
		IN_PROGRESS_JOB: &stats.InProgressJobCount,
		SUCCESSFUL_JOB:  &stats.SuccessfulJobCount,
		DEAD_JOB:        &stats.DeadJobCount,
	}

	for status, count := range counts {
		err := s.withContext(ctx).Model(&Job{}).Where("status = ?", status).Count(count).Error
		if err != nil {
			return nil, err
		}
	}

	return &stats, nil
}

// MarkUnfinishedJobsDead marks jobs left 'enqueued' or 'in-progress' by a previous
// run as dead, and returns how many were reaped.
func (s *Store) MarkUnfinishedJobsDead(ctx context.Context, reason string) (int64, error) {
	res := s.withContext(ctx).Model(&Job{}).
		Where("status IN ?", []string{ENQUEUED_JOB, IN_PROGRESS_JOB}).
		Updates(map[string]interface{}{"status": DEAD_JOB, "last_error": reason})

	return res.RowsAffected, res.Error
}
