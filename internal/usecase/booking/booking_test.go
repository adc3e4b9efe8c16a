package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
	"github.com/ignatzorin/livebook-backend/internal/domain/repository"
	"github.com/ignatzorin/livebook-backend/internal/domain/valueobject"
	"github.com/ignatzorin/livebook-backend/internal/notify"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
	"github.com/ignatzorin/livebook-backend/internal/pkg/clock"
	"github.com/ignatzorin/livebook-backend/internal/usecase/booking"
	"github.com/ignatzorin/livebook-backend/internal/usecase/usecasetest"
)

var t0 = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type env struct {
	clock    *clock.Manual
	bookings *usecasetest.Bookings
	disputes *usecasetest.Disputes
	services *usecasetest.Services
	notifier *usecasetest.Notifier
	brandID  uuid.UUID
	service  *entity.CreatorService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		clock:    clock.NewManual(t0),
		bookings: usecasetest.NewBookings(),
		disputes: usecasetest.NewDisputes(),
		services: usecasetest.NewServices(),
		notifier: &usecasetest.Notifier{},
		brandID:  uuid.New(),
	}
	svc, err := entity.NewCreatorService(uuid.New(), "Live stream", "2h", 10000, 7, t0)
	require.NoError(t, err)
	require.NoError(t, e.services.Create(context.Background(), svc))
	e.service = svc
	return e
}

func (e *env) create(t *testing.T) *entity.Booking {
	t.Helper()
	uc := booking.NewCreateBookingUseCase(e.bookings, e.services, e.notifier, e.clock)
	b, err := uc.Execute(context.Background(), booking.CreateBookingInput{BrandID: e.brandID, ServiceID: e.service.ID, Brief: "launch"})
	require.NoError(t, err)
	return b
}

// delivered - принятое бронирование с первой версией материалов.
func (e *env) delivered(t *testing.T) *entity.Booking {
	t.Helper()
	b := e.create(t)
	stored, err := e.bookings.FindByID(context.Background(), b.ID)
	require.NoError(t, err)
	require.NoError(t, stored.Accept(stored.CreatorID, t0))
	require.NoError(t, stored.SubmitDeliverables(stored.CreatorID, 1, t0.Add(time.Hour)))
	require.NoError(t, e.bookings.Update(context.Background(), stored))
	return stored
}

func (e *env) input(b *entity.Booking, actor uuid.UUID) booking.TransitionInput {
	return booking.TransitionInput{BookingID: b.ID, ActorID: actor}
}

func TestCreateBooking(t *testing.T) {
	e := newEnv(t)

	b := e.create(t)

	assert.Equal(t, valueobject.BookingStatusPending, b.Status)
	assert.Equal(t, valueobject.Cents(10000), b.TotalPrice)
	assert.Equal(t, 7, b.DeliveryDays)
	require.Len(t, e.notifier.OfType(notify.TypeCreatorNewBooking), 1)
	ev := e.notifier.OfType(notify.TypeCreatorNewBooking)[0].(notify.NewBooking)
	assert.Equal(t, int64(10000), ev.AmountCents)
	assert.Equal(t, e.service.CreatorID, ev.Audience().UserID)
}

func TestCreateBooking_UnknownService(t *testing.T) {
	e := newEnv(t)
	uc := booking.NewCreateBookingUseCase(e.bookings, e.services, e.notifier, e.clock)

	_, err := uc.Execute(context.Background(), booking.CreateBookingInput{BrandID: e.brandID, ServiceID: uuid.New()})

	assert.True(t, apperror.IsNotFound(err))
}

func TestAcceptBooking_ComputesDeadline(t *testing.T) {
	e := newEnv(t)
	b := e.create(t)
	uc := booking.NewAcceptBookingUseCase(e.bookings, e.notifier, e.clock)

	accepted, err := uc.Execute(context.Background(), e.input(b, b.CreatorID))

	require.NoError(t, err)
	require.NotNil(t, accepted.DeliveryDeadline)
	assert.Equal(t, t0.Add(7*24*time.Hour), *accepted.DeliveryDeadline)
	assert.Equal(t, valueobject.DeliveryStatusInProgress, accepted.DeliveryStatus)
	assert.Equal(t, 1, accepted.Version)
	assert.Len(t, e.notifier.OfType(notify.TypeBrandBookingAccepted), 1)
}

func TestAcceptBooking_OnlyCreator(t *testing.T) {
	e := newEnv(t)
	b := e.create(t)
	uc := booking.NewAcceptBookingUseCase(e.bookings, e.notifier, e.clock)

	_, err := uc.Execute(context.Background(), e.input(b, b.BrandID))

	assert.True(t, apperror.IsForbidden(err))
}

func TestDeclineAndCancel(t *testing.T) {
	e := newEnv(t)
	first := e.create(t)
	second := e.create(t)

	declined, err := booking.NewDeclineBookingUseCase(e.bookings, e.notifier, e.clock).
		Execute(context.Background(), e.input(first, first.CreatorID))
	require.NoError(t, err)
	assert.Equal(t, valueobject.BookingStatusDeclined, declined.Status)

	cancelled, err := booking.NewCancelBookingUseCase(e.bookings, e.notifier, e.clock).
		Execute(context.Background(), e.input(second, second.BrandID))
	require.NoError(t, err)
	assert.Equal(t, valueobject.BookingStatusCancelled, cancelled.Status)

	assert.Len(t, e.notifier.OfType(notify.TypeBrandBookingDeclined), 1)
	assert.Len(t, e.notifier.OfType(notify.TypeCreatorBookingCancelled), 1)
}

func TestApprove_ReleasesPaymentAndNotifiesCreator(t *testing.T) {
	e := newEnv(t)
	b := e.delivered(t)
	e.clock.Advance(24 * time.Hour)

	approved, err := booking.NewApproveDeliveryUseCase(e.bookings, e.notifier, e.clock).
		Execute(context.Background(), e.input(b, b.BrandID))

	require.NoError(t, err)
	assert.Equal(t, valueobject.PaymentStatusPaid, approved.PaymentStatus)
	assert.Equal(t, valueobject.DeliveryStatusConfirmed, approved.DeliveryStatus)
	require.NotNil(t, approved.ConfirmedAt)
	assert.Equal(t, e.clock.Now(), *approved.ConfirmedAt)

	events := e.notifier.OfType(notify.TypeCreatorDeliveryConfirmed)
	require.Len(t, events, 1)
	assert.Equal(t, int64(10000), events[0].Fields()["amount_cents"])
}

func TestApprove_WithoutDeliverablesFails(t *testing.T) {
	e := newEnv(t)
	b := e.create(t)
	_, err := booking.NewAcceptBookingUseCase(e.bookings, e.notifier, e.clock).Execute(context.Background(), e.input(b, b.CreatorID))
	require.NoError(t, err)

	_, err = booking.NewApproveDeliveryUseCase(e.bookings, e.notifier, e.clock).
		Execute(context.Background(), e.input(b, b.BrandID))

	assert.True(t, apperror.IsValidation(err))
	assert.Empty(t, e.notifier.OfType(notify.TypeCreatorDeliveryConfirmed))
}

func TestRequestRevision_LimitedToTwo(t *testing.T) {
	e := newEnv(t)
	b := e.delivered(t)
	revise := booking.NewRequestRevisionUseCase(e.bookings, e.notifier, e.clock)

	for i := 1; i <= entity.MaxRevisions; i++ {
		revised, err := revise.Execute(context.Background(), booking.RequestRevisionInput{
			TransitionInput: e.input(b, b.BrandID),
			Notes:           "brighter lighting",
		})
		require.NoError(t, err)
		assert.Equal(t, i, revised.RevisionCount)

		// креатор пересдаёт следующую версию
		stored, err := e.bookings.FindByID(context.Background(), b.ID)
		require.NoError(t, err)
		require.NoError(t, stored.SubmitDeliverables(stored.CreatorID, stored.DeliverableVersion+1, e.clock.Now()))
		require.NoError(t, e.bookings.Update(context.Background(), stored))
	}

	_, err := revise.Execute(context.Background(), booking.RequestRevisionInput{TransitionInput: e.input(b, b.BrandID)})

	require.ErrorIs(t, err, apperror.ErrRevisionLimit)
	stored, err := e.bookings.FindByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.RevisionCount)
	assert.Equal(t, valueobject.DeliveryStatusDelivered, stored.DeliveryStatus)
	assert.Len(t, e.notifier.OfType(notify.TypeCreatorRevisionRequested), 2)
}

func TestTransition_StaleWriteConflicts(t *testing.T) {
	e := newEnv(t)
	b := e.delivered(t)

	// оба участника прочитали одну и ту же версию
	brandView, err := e.bookings.FindByID(context.Background(), b.ID)
	require.NoError(t, err)
	otherView, err := e.bookings.FindByID(context.Background(), b.ID)
	require.NoError(t, err)

	require.NoError(t, brandView.Approve(b.BrandID, t0))
	require.NoError(t, e.bookings.Update(context.Background(), brandView))

	require.NoError(t, otherView.RequestRevision(b.BrandID, "late edit", t0))
	err = e.bookings.Update(context.Background(), otherView)

	assert.True(t, apperror.IsConflict(err))
	stored, err := e.bookings.FindByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DeliveryStatusConfirmed, stored.DeliveryStatus)
	assert.Zero(t, stored.RevisionCount)
}

func TestTransition_ExpectedVersionMismatch(t *testing.T) {
	e := newEnv(t)
	b := e.delivered(t)
	stale := b.Version - 1

	_, err := booking.NewApproveDeliveryUseCase(e.bookings, e.notifier, e.clock).Execute(context.Background(), booking.TransitionInput{
		BookingID:       b.ID,
		ActorID:         b.BrandID,
		ExpectedVersion: &stale,
	})

	require.ErrorIs(t, err, apperror.ErrStaleBooking)
}

func TestAutoRelease(t *testing.T) {
	e := newEnv(t)
	b := e.delivered(t)
	uc := booking.NewAutoReleaseUseCase(e.bookings, e.disputes, e.notifier, e.clock)

	_, err := uc.Execute(context.Background(), b.ID, 2)
	assert.True(t, apperror.IsValidation(err), "устаревшая версия материалов")

	released, err := uc.Execute(context.Background(), b.ID, 1)
	require.NoError(t, err)
	assert.True(t, released.AutoReleased)
	assert.Equal(t, valueobject.PaymentStatusPaid, released.PaymentStatus)

	events := e.notifier.OfType(notify.TypeCreatorDeliveryConfirmed)
	require.Len(t, events, 1)
	assert.Equal(t, true, events[0].Fields()["auto_released"])
}

func TestAutoRelease_SkippedWhileDisputeOpen(t *testing.T) {
	e := newEnv(t)
	b := e.delivered(t)
	d, err := entity.OpenDispute(b, b.BrandID, valueobject.RoleBrand, "wrong format", nil, 72*time.Hour, t0)
	require.NoError(t, err)
	require.NoError(t, e.disputes.Create(context.Background(), d))

	_, err = booking.NewAutoReleaseUseCase(e.bookings, e.disputes, e.notifier, e.clock).Execute(context.Background(), b.ID, 1)

	assert.True(t, apperror.IsValidation(err))
	stored, _ := e.bookings.FindByID(context.Background(), b.ID)
	assert.Equal(t, valueobject.PaymentStatusPending, stored.PaymentStatus)
}

func TestGetBooking_Visibility(t *testing.T) {
	e := newEnv(t)
	b := e.create(t)
	uc := booking.NewGetBookingUseCase(e.bookings)

	_, err := uc.Execute(context.Background(), b.ID, b.BrandID, valueobject.RoleBrand)
	assert.NoError(t, err)

	_, err = uc.Execute(context.Background(), b.ID, uuid.New(), valueobject.RoleAdmin)
	assert.NoError(t, err)

	_, err = uc.Execute(context.Background(), b.ID, uuid.New(), valueobject.RoleBrand)
	assert.True(t, apperror.IsForbidden(err))
}

func TestListMyBookingsAndHistory(t *testing.T) {
	e := newEnv(t)
	b := e.delivered(t)
	e.create(t)

	list, total, err := booking.NewListMyBookingsUseCase(e.bookings).Execute(context.Background(), repository.BookingFilter{
		UserID: e.brandID,
		Role:   string(valueobject.RoleBrand),
		Status: string(valueobject.BookingStatusAccepted),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, b.ID, list[0].ID)

	_, _, err = booking.NewListMyBookingsUseCase(e.bookings).Execute(context.Background(), repository.BookingFilter{UserID: e.brandID, Status: "bogus"})
	assert.True(t, apperror.IsValidation(err))

	history, err := booking.NewBookingHistoryUseCase(e.bookings).Execute(context.Background(), b.ID, b.CreatorID, valueobject.RoleCreator)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, entity.ActionCreated, history[0].Action)
	assert.Equal(t, entity.ActionAccepted, history[1].Action)
	assert.Equal(t, entity.ActionDelivered, history[2].Action)
}
