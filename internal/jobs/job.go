package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Типы отложенных задач.
const (
	TypeDisputeResponseExpired   = "dispute_response_expired"
	TypeDisputeResolutionOverdue = "dispute_resolution_overdue"
	TypeDeliveryAutoRelease      = "delivery_auto_release"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// Job - строка очереди scheduled_jobs.
type Job struct {
	ID        uuid.UUID       `db:"id"`
	Type      string          `db:"job_type"`
	Payload   json.RawMessage `db:"payload"`
	DueAt     time.Time       `db:"due_at"`
	Status    Status          `db:"status"`
	Attempts  int             `db:"attempts"`
	LastError *string         `db:"last_error"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// BookingPayload - задача по бронированию, привязанная к версии материалов.
type BookingPayload struct {
	BookingID uuid.UUID `json:"booking_id"`
	Version   int       `json:"version"`
}

type DisputePayload struct {
	DisputeID uuid.UUID `json:"dispute_id"`
}

// Decode разбирает payload задачи в v.
func (j Job) Decode(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("jobs: некорректный payload задачи %s: %w", j.ID, err)
	}
	return nil
}

// Store - хранилище очереди. ClaimDue должен пропускать строки, заблокированные другими воркерами.
type Store interface {
	Enqueue(ctx context.Context, job *Job) error
	ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]Job, error)
	MarkDone(ctx context.Context, id uuid.UUID, now time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time, now time.Time) error
}

// Scheduler ставит задачи на выполнение к заданному времени.
type Scheduler interface {
	Schedule(ctx context.Context, jobType string, payload any, dueAt time.Time) error
}

// Queue - реализация Scheduler поверх Store.
type Queue struct {
	store Store
}

func NewQueue(store Store) *Queue {
	return &Queue{store: store}
}

func (q *Queue) Schedule(ctx context.Context, jobType string, payload any, dueAt time.Time) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("jobs: marshal payload %w", err)
	}

	return q.store.Enqueue(ctx, &Job{
		ID:      uuid.New(),
		Type:    jobType,
		Payload: raw,
		DueAt:   dueAt,
		Status:  StatusPending,
	})
}
