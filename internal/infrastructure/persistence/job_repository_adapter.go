package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/livebook-backend/internal/jobs"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
)

// JobRepositoryAdapter хранит очередь отложенных задач в таблице scheduled_jobs.
type JobRepositoryAdapter struct {
	db *sqlx.DB
}

func NewJobRepositoryAdapter(db *sqlx.DB) *JobRepositoryAdapter {
	return &JobRepositoryAdapter{db: db}
}

func (r *JobRepositoryAdapter) Enqueue(ctx context.Context, job *jobs.Job) error {
	query := `
		INSERT INTO scheduled_jobs (id, job_type, payload, due_at, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query, job.ID, job.Type, []byte(job.Payload), job.DueAt, string(job.Status)).
		Scan(&job.CreatedAt, &job.UpdatedAt); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось поставить задачу в очередь")
	}
	return nil
}

// ClaimDue забирает созревшие задачи и задачи с истёкшей арендой (упавший воркер).
// SKIP LOCKED позволяет нескольким экземплярам работать с одной очередью.
func (r *JobRepositoryAdapter) ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]jobs.Job, error) {
	query := `
		UPDATE scheduled_jobs
		SET status = 'processing', attempts = attempts + 1, locked_until = $3, updated_at = $1
		WHERE id IN (
			SELECT id FROM scheduled_jobs
			WHERE (status = 'pending' AND due_at <= $1)
			   OR (status = 'processing' AND locked_until < $1)
			ORDER BY due_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, job_type, payload, due_at, status, attempts, last_error, created_at, updated_at
	`
	var claimed []jobs.Job
	if err := r.db.SelectContext(ctx, &claimed, query, now, limit, now.Add(lease)); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось забрать задачи")
	}
	return claimed, nil
}

func (r *JobRepositoryAdapter) MarkDone(ctx context.Context, id uuid.UUID, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_jobs SET status = 'done', locked_until = NULL, last_error = NULL, updated_at = $2 WHERE id = $1`, id, now)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось завершить задачу")
	}
	return nil
}

// MarkFailed с retryAt возвращает задачу в очередь, без него помечает её окончательно упавшей.
func (r *JobRepositoryAdapter) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time, now time.Time) error {
	var err error
	if retryAt != nil {
		_, err = r.db.ExecContext(ctx, `
			UPDATE scheduled_jobs
			SET status = 'pending', due_at = $3, last_error = $2, locked_until = NULL, updated_at = $4
			WHERE id = $1`, id, errMsg, *retryAt, now)
	} else {
		_, err = r.db.ExecContext(ctx, `
			UPDATE scheduled_jobs
			SET status = 'failed', last_error = $2, locked_until = NULL, updated_at = $3
			WHERE id = $1`, id, errMsg, now)
	}
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить ошибку задачи")
	}
	return nil
}
