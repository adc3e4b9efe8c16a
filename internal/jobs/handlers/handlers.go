// Package handlers связывает типы отложенных задач со сценариями бронирований и споров.
package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
	"github.com/ignatzorin/livebook-backend/internal/jobs"
	"github.com/ignatzorin/livebook-backend/internal/logger"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
)

type AutoReleaser interface {
	Execute(ctx context.Context, bookingID uuid.UUID, deliverableVersion int) (*entity.Booking, error)
}

type Escalator interface {
	Execute(ctx context.Context, disputeID uuid.UUID) (*entity.Dispute, error)
}

type OverdueReminder interface {
	Execute(ctx context.Context, disputeID uuid.UUID) error
}

var log = logger.Component("jobs.handlers")

// Register регистрирует обработчики всех типов задач в воркере.
func Register(w *jobs.Worker, autoRelease AutoReleaser, escalate Escalator, remind OverdueReminder) {
	w.Handle(jobs.TypeDeliveryAutoRelease, AutoRelease(autoRelease))
	w.Handle(jobs.TypeDisputeResponseExpired, EscalateDispute(escalate))
	w.Handle(jobs.TypeDisputeResolutionOverdue, RemindOverdue(remind))
}

func AutoRelease(uc AutoReleaser) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		var p jobs.BookingPayload
		if err := job.Decode(&p); err != nil {
			return err
		}
		_, err := uc.Execute(ctx, p.BookingID, p.Version)
		return settle(job, err, logrus.Fields{"booking_id": p.BookingID, "version": p.Version})
	}
}

func EscalateDispute(uc Escalator) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		var p jobs.DisputePayload
		if err := job.Decode(&p); err != nil {
			return err
		}
		_, err := uc.Execute(ctx, p.DisputeID)
		return settle(job, err, logrus.Fields{"dispute_id": p.DisputeID})
	}
}

func RemindOverdue(uc OverdueReminder) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		var p jobs.DisputePayload
		if err := job.Decode(&p); err != nil {
			return err
		}
		return settle(job, uc.Execute(ctx, p.DisputeID), logrus.Fields{"dispute_id": p.DisputeID})
	}
}

// settle закрывает задачу без ошибки, если состояние уже ушло вперёд.
// Повтор нужен только для сбоев инфраструктуры.
func settle(job jobs.Job, err error, fields logrus.Fields) error {
	if err == nil {
		return nil
	}
	switch apperror.CodeOf(err) {
	case apperror.ErrCodeValidation, apperror.ErrCodeConflict, apperror.ErrCodeNotFound, apperror.ErrCodeExpired, apperror.ErrCodeForbidden:
		log.WithFields(fields).WithField("job_type", job.Type).WithError(err).Info("задача неактуальна, пропускаем")
		return nil
	}
	return err
}
