package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
	"github.com/ignatzorin/livebook-backend/internal/domain/repository"
	"github.com/ignatzorin/livebook-backend/internal/metrics"
	"github.com/ignatzorin/livebook-backend/internal/notify"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
	"github.com/ignatzorin/livebook-backend/internal/pkg/clock"
)

// TransitionInput - общий вход действий над бронированием.
// ExpectedVersion, если задан, должен совпасть с текущей версией (If-Match).
type TransitionInput struct {
	BookingID       uuid.UUID
	ActorID         uuid.UUID
	ExpectedVersion *int
}

type transitioner struct {
	bookingRepo repository.BookingRepository
	clock       clock.Clock
}

// apply читает бронирование, проверяет предусловие в fn и пишет результат
// с проверкой версии. Повтора нет: конфликт возвращается вызывающему.
func (t transitioner) apply(ctx context.Context, id uuid.UUID, expectedVersion *int, action string, fn func(b *entity.Booking, now time.Time) error) (*entity.Booking, error) {
	b, err := t.bookingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion != nil && *expectedVersion != b.Version {
		metrics.StaleWritesTotal.Inc()
		return nil, apperror.ErrStaleBooking
	}

	if err := fn(b, t.clock.Now()); err != nil {
		return nil, err
	}

	if err := t.bookingRepo.Update(ctx, b); err != nil {
		if apperror.IsConflict(err) {
			metrics.StaleWritesTotal.Inc()
		}
		return nil, err
	}
	metrics.ObserveTransition(action)
	return b, nil
}

type AcceptBookingUseCase struct {
	transitioner
	notifier notify.Notifier
}

func NewAcceptBookingUseCase(bookingRepo repository.BookingRepository, notifier notify.Notifier, clk clock.Clock) *AcceptBookingUseCase {
	return &AcceptBookingUseCase{transitioner: transitioner{bookingRepo: bookingRepo, clock: clk}, notifier: notifier}
}

func (uc *AcceptBookingUseCase) Execute(ctx context.Context, input TransitionInput) (*entity.Booking, error) {
	b, err := uc.apply(ctx, input.BookingID, input.ExpectedVersion, entity.ActionAccepted, func(b *entity.Booking, now time.Time) error {
		return b.Accept(input.ActorID, now)
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Notify(ctx, notify.BookingAccepted{
		BookingRef:       notify.RefOf(b),
		DeliveryDeadline: *b.DeliveryDeadline,
	})
	return b, nil
}

type DeclineBookingUseCase struct {
	transitioner
	notifier notify.Notifier
}

func NewDeclineBookingUseCase(bookingRepo repository.BookingRepository, notifier notify.Notifier, clk clock.Clock) *DeclineBookingUseCase {
	return &DeclineBookingUseCase{transitioner: transitioner{bookingRepo: bookingRepo, clock: clk}, notifier: notifier}
}

func (uc *DeclineBookingUseCase) Execute(ctx context.Context, input TransitionInput) (*entity.Booking, error) {
	b, err := uc.apply(ctx, input.BookingID, input.ExpectedVersion, entity.ActionDeclined, func(b *entity.Booking, now time.Time) error {
		return b.Decline(input.ActorID, now)
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Notify(ctx, notify.BookingDeclined{BookingRef: notify.RefOf(b)})
	return b, nil
}

type CancelBookingUseCase struct {
	transitioner
	notifier notify.Notifier
}

func NewCancelBookingUseCase(bookingRepo repository.BookingRepository, notifier notify.Notifier, clk clock.Clock) *CancelBookingUseCase {
	return &CancelBookingUseCase{transitioner: transitioner{bookingRepo: bookingRepo, clock: clk}, notifier: notifier}
}

func (uc *CancelBookingUseCase) Execute(ctx context.Context, input TransitionInput) (*entity.Booking, error) {
	b, err := uc.apply(ctx, input.BookingID, input.ExpectedVersion, entity.ActionCancelled, func(b *entity.Booking, now time.Time) error {
		return b.Cancel(input.ActorID, now)
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Notify(ctx, notify.BookingCancelled{BookingRef: notify.RefOf(b)})
	return b, nil
}

// ApproveDeliveryUseCase подтверждает работу и освобождает оплату креатору.
type ApproveDeliveryUseCase struct {
	transitioner
	notifier notify.Notifier
}

func NewApproveDeliveryUseCase(bookingRepo repository.BookingRepository, notifier notify.Notifier, clk clock.Clock) *ApproveDeliveryUseCase {
	return &ApproveDeliveryUseCase{transitioner: transitioner{bookingRepo: bookingRepo, clock: clk}, notifier: notifier}
}

func (uc *ApproveDeliveryUseCase) Execute(ctx context.Context, input TransitionInput) (*entity.Booking, error) {
	b, err := uc.apply(ctx, input.BookingID, input.ExpectedVersion, entity.ActionApproved, func(b *entity.Booking, now time.Time) error {
		return b.Approve(input.ActorID, now)
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Notify(ctx, deliveryConfirmed(b))
	return b, nil
}

type RequestRevisionInput struct {
	TransitionInput
	Notes string
}

type RequestRevisionUseCase struct {
	transitioner
	notifier notify.Notifier
}

func NewRequestRevisionUseCase(bookingRepo repository.BookingRepository, notifier notify.Notifier, clk clock.Clock) *RequestRevisionUseCase {
	return &RequestRevisionUseCase{transitioner: transitioner{bookingRepo: bookingRepo, clock: clk}, notifier: notifier}
}

func (uc *RequestRevisionUseCase) Execute(ctx context.Context, input RequestRevisionInput) (*entity.Booking, error) {
	b, err := uc.apply(ctx, input.BookingID, input.ExpectedVersion, entity.ActionRevisionRequested, func(b *entity.Booking, now time.Time) error {
		return b.RequestRevision(input.ActorID, input.Notes, now)
	})
	if err != nil {
		return nil, err
	}

	notes := ""
	if b.RevisionNotes != nil {
		notes = *b.RevisionNotes
	}
	uc.notifier.Notify(ctx, notify.RevisionRequested{
		BookingRef:    notify.RefOf(b),
		RevisionCount: b.RevisionCount,
		Notes:         notes,
	})
	return b, nil
}

// AutoReleaseUseCase подтверждает сданную работу, если бренд не ответил вовремя.
// Вызывается воркером отложенных задач.
type AutoReleaseUseCase struct {
	transitioner
	disputeRepo repository.DisputeRepository
	notifier    notify.Notifier
}

func NewAutoReleaseUseCase(bookingRepo repository.BookingRepository, disputeRepo repository.DisputeRepository, notifier notify.Notifier, clk clock.Clock) *AutoReleaseUseCase {
	return &AutoReleaseUseCase{
		transitioner: transitioner{bookingRepo: bookingRepo, clock: clk},
		disputeRepo:  disputeRepo,
		notifier:     notifier,
	}
}

func (uc *AutoReleaseUseCase) Execute(ctx context.Context, bookingID uuid.UUID, deliverableVersion int) (*entity.Booking, error) {
	_, err := uc.disputeRepo.FindUnresolvedByBooking(ctx, bookingID)
	switch {
	case err == nil:
		return nil, apperror.New(apperror.ErrCodeValidation, "по бронированию открыт спор, автоподтверждение отложено")
	case !apperror.IsNotFound(err):
		return nil, err
	}

	b, err := uc.apply(ctx, bookingID, nil, entity.ActionAutoReleased, func(b *entity.Booking, now time.Time) error {
		return b.AutoRelease(deliverableVersion, now)
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Notify(ctx, deliveryConfirmed(b))
	return b, nil
}

func deliveryConfirmed(b *entity.Booking) notify.DeliveryConfirmed {
	return notify.DeliveryConfirmed{
		BookingRef:   notify.RefOf(b),
		AmountCents:  b.TotalPrice.Int64(),
		ConfirmedAt:  *b.ConfirmedAt,
		AutoReleased: b.AutoReleased,
	}
}
