package dispute_test

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
	"github.com/ignatzorin/livebook-backend/internal/jobs"
	"github.com/ignatzorin/livebook-backend/internal/notify"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
	"github.com/ignatzorin/livebook-backend/internal/pkg/clock"
	"github.com/ignatzorin/livebook-backend/internal/usecase/dispute"
	"github.com/ignatzorin/livebook-backend/internal/usecase/usecasetest"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

const (
	responseWindow   = 72 * time.Hour
	resolutionWindow = 120 * time.Hour
)

type env struct {
	clock     *clock.Manual
	bookings  *usecasetest.Bookings
	disputes  *usecasetest.Disputes
	scheduler *usecasetest.Scheduler
	notifier  *usecasetest.Notifier

	open     *dispute.OpenDisputeUseCase
	respond  *dispute.RespondDisputeUseCase
	escalate *dispute.EscalateDisputeUseCase
	resolve  *dispute.ResolveDisputeUseCase
}

func newEnv() *env {
	e := &env{
		clock:     clock.NewManual(t0),
		bookings:  usecasetest.NewBookings(),
		disputes:  usecasetest.NewDisputes(),
		scheduler: &usecasetest.Scheduler{},
		notifier:  &usecasetest.Notifier{},
	}
	e.open = dispute.NewOpenDisputeUseCase(e.bookings, e.disputes, e.scheduler, e.notifier, e.clock, responseWindow)
	e.respond = dispute.NewRespondDisputeUseCase(e.bookings, e.disputes, e.notifier, e.clock)
	e.escalate = dispute.NewEscalateDisputeUseCase(e.bookings, e.disputes, e.scheduler, e.notifier, e.clock, resolutionWindow)
	e.resolve = dispute.NewResolveDisputeUseCase(e.bookings, e.disputes, e.notifier, e.clock)
	return e
}

func (e *env) booking(t *testing.T, accepted bool) *entity.Booking {
	t.Helper()
	svc, err := entity.NewCreatorService(uuid.New(), "Stream", "", 20000, 3, t0)
	require.NoError(t, err)
	b, err := entity.NewBooking(uuid.New(), svc, "brief", nil, t0)
	require.NoError(t, err)
	require.NoError(t, e.bookings.Create(context.Background(), b))
	if accepted {
		require.NoError(t, b.Accept(b.CreatorID, t0))
		require.NoError(t, e.bookings.Update(context.Background(), b))
	}
	return b
}

func (e *env) openBy(t *testing.T, b *entity.Booking, opener uuid.UUID, role valueobject.PartyRole) *entity.Dispute {
	t.Helper()
	d, err := e.open.Execute(context.Background(), dispute.OpenInput{BookingID: b.ID, OpenerID: opener, OpenerRole: role, Reason: "стрим не состоялся"})
	require.NoError(t, err)
	return d
}

func TestOpen_SetsDeadlineSchedulesAndNotifiesCounterpart(t *testing.T) {
	e := newEnv()
	b := e.booking(t, true)

	d := e.openBy(t, b, b.BrandID, valueobject.RoleBrand)

	assert.Equal(t, valueobject.DisputeStatusOpen, d.Status)
	assert.Equal(t, b.CreatorID, d.RespondentID)
	assert.Equal(t, t0.Add(responseWindow), d.ResponseDeadline)

	scheduled := e.scheduler.OfType(jobs.TypeDisputeResponseExpired)
	require.Len(t, scheduled, 1)
	assert.Equal(t, jobs.DisputePayload{DisputeID: d.ID}, scheduled[0].Payload)
	assert.True(t, scheduled[0].DueAt.After(d.ResponseDeadline))

	events := e.notifier.OfType(notify.TypeCreatorDisputeOpened)
	require.Len(t, events, 1)
	assert.Equal(t, b.CreatorID, events[0].Audience().UserID)
}

func TestOpen_CreatorOpenerNotifiesBrand(t *testing.T) {
	e := newEnv()
	b := e.booking(t, true)

	e.openBy(t, b, b.CreatorID, valueobject.RoleCreator)

	assert.Len(t, e.notifier.OfType(notify.TypeBrandDisputeOpened), 1)
	assert.Empty(t, e.notifier.OfType(notify.TypeCreatorDisputeOpened))
}

func TestOpen_SecondUnresolvedDisputeConflicts(t *testing.T) {
	e := newEnv()
	b := e.booking(t, true)
	e.openBy(t, b, b.BrandID, valueobject.RoleBrand)

	_, err := e.open.Execute(context.Background(), dispute.OpenInput{BookingID: b.ID, OpenerID: b.CreatorID, OpenerRole: valueobject.RoleCreator, Reason: "встречная претензия"})

	assert.True(t, apperror.IsConflict(err))
}

func TestOpen_Preconditions(t *testing.T) {
	e := newEnv()
	pending := e.booking(t, false)
	accepted := e.booking(t, true)

	_, err := e.open.Execute(context.Background(), dispute.OpenInput{BookingID: pending.ID, OpenerID: pending.BrandID, Reason: "x"})
	assert.True(t, apperror.IsValidation(err), "pending booking")

	_, err = e.open.Execute(context.Background(), dispute.OpenInput{BookingID: accepted.ID, OpenerID: uuid.New(), Reason: "x"})
	assert.True(t, apperror.IsForbidden(err), "stranger")

	_, err = e.open.Execute(context.Background(), dispute.OpenInput{BookingID: accepted.ID, OpenerID: accepted.BrandID, OpenerRole: valueobject.RoleCreator, Reason: "x"})
	assert.True(t, apperror.IsValidation(err), "declared role mismatch")

	_, err = e.open.Execute(context.Background(), dispute.OpenInput{BookingID: accepted.ID, OpenerID: accepted.BrandID, Reason: "  "})
	assert.True(t, apperror.IsValidation(err), "empty reason")
}

func TestRespond_AtDeadlineAccepted(t *testing.T) {
	e := newEnv()
	b := e.booking(t, true)
	d := e.openBy(t, b, b.BrandID, valueobject.RoleBrand)
	e.clock.Set(d.ResponseDeadline)

	got, err := e.respond.Execute(context.Background(), dispute.RespondInput{DisputeID: d.ID, ResponderID: b.CreatorID, Response: "стрим был, вот запись"})

	require.NoError(t, err)
	assert.Equal(t, valueobject.DisputeStatusUnderReview, got.Status)
	events := e.notifier.OfType(notify.TypeDisputeResponseReceived)
	require.Len(t, events, 1)
	assert.Equal(t, b.BrandID, events[0].Audience().UserID)
}

func TestRespond_AfterDeadlineExpired(t *testing.T) {
	e := newEnv()
	b := e.booking(t, true)
	d := e.openBy(t, b, b.BrandID, valueobject.RoleBrand)
	e.clock.Set(t0.Add(responseWindow + time.Second))

	_, err := e.respond.Execute(context.Background(), dispute.RespondInput{DisputeID: d.ID, ResponderID: b.CreatorID, Response: "поздно"})

	assert.True(t, apperror.IsExpired(err))
	assert.ErrorIs(t, err, apperror.ErrResponseExpired)
	assert.Contains(t, err.Error(), "response window expired")
	stored, err := e.disputes.FindByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DisputeStatusOpen, stored.Status)
}

func TestRespond_OnlyCounterpart(t *testing.T) {
	e := newEnv()
	b := e.booking(t, true)
	d := e.openBy(t, b, b.BrandID, valueobject.RoleBrand)

	_, err := e.respond.Execute(context.Background(), dispute.RespondInput{DisputeID: d.ID, ResponderID: b.BrandID, Response: "сам себе"})

	assert.True(t, apperror.IsForbidden(err))
}

func TestEscalate_OnlyAfterWindow(t *testing.T) {
	e := newEnv()
	b := e.booking(t, true)
	d := e.openBy(t, b, b.BrandID, valueobject.RoleBrand)

	_, err := e.escalate.Execute(context.Background(), d.ID)
	assert.True(t, apperror.IsValidation(err))

	e.clock.Set(t0.Add(responseWindow + time.Minute))
	got, err := e.escalate.Execute(context.Background(), d.ID)

	require.NoError(t, err)
	assert.Equal(t, valueobject.DisputeStatusEscalated, got.Status)
	assert.True(t, got.EscalatedToAdmin)
	require.NotNil(t, got.ResolutionDeadline)
	assert.Equal(t, e.clock.Now().Add(resolutionWindow), *got.ResolutionDeadline)
	assert.Len(t, e.notifier.OfType(notify.TypeAdminDisputeEscalated), 1)
	assert.Len(t, e.scheduler.OfType(jobs.TypeDisputeResolutionOverdue), 1)
}

func TestEscalate_AnsweredDisputeIsNotEscalated(t *testing.T) {
	e := newEnv()
	b := e.booking(t, true)
	d := e.openBy(t, b, b.BrandID, valueobject.RoleBrand)
	_, err := e.respond.Execute(context.Background(), dispute.RespondInput{DisputeID: d.ID, ResponderID: b.CreatorID, Response: "ответ"})
	require.NoError(t, err)
	e.clock.Set(t0.Add(responseWindow + time.Hour))

	_, err = e.escalate.Execute(context.Background(), d.ID)

	assert.True(t, apperror.IsValidation(err))
}

func TestResolve_CompletesBookingAndNotifiesBoth(t *testing.T) {
	e := newEnv()
	b := e.booking(t, true)
	d := e.openBy(t, b, b.BrandID, valueobject.RoleBrand)
	adminID := uuid.New()

	got, err := e.resolve.Execute(context.Background(), dispute.ResolveInput{DisputeID: d.ID, AdminID: adminID, Role: valueobject.RoleAdmin, Reason: "запись подтверждает сбой", RefundPercentage: 25})

	require.NoError(t, err)
	assert.Equal(t, valueobject.DisputeStatusResolved, got.Status)
	assert.Equal(t, 25, *got.RefundPercentage)
	assert.Equal(t, adminID, *got.ResolvedBy)

	stored, err := e.bookings.FindByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.BookingStatusCompleted, stored.Status)

	brand := e.notifier.OfType(notify.TypeBrandDisputeResolved)
	creator := e.notifier.OfType(notify.TypeCreatorDisputeResolved)
	require.Len(t, brand, 1)
	require.Len(t, creator, 1)
	assert.Equal(t, int64(5000), brand[0].(notify.DisputeResolved).RefundCents)
	assert.Equal(t, b.CreatorID, creator[0].Audience().UserID)

	history, err := e.bookings.History(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ActionCompletedByDispute, history[len(history)-1].Action)
}

func TestResolve_Guards(t *testing.T) {
	e := newEnv()
	b := e.booking(t, true)
	d := e.openBy(t, b, b.BrandID, valueobject.RoleBrand)

	_, err := e.resolve.Execute(context.Background(), dispute.ResolveInput{DisputeID: d.ID, AdminID: b.BrandID, Role: valueobject.RoleBrand, Reason: "r", RefundPercentage: 100})
	assert.True(t, apperror.IsForbidden(err))

	_, err = e.resolve.Execute(context.Background(), dispute.ResolveInput{DisputeID: d.ID, AdminID: uuid.New(), Role: valueobject.RoleAdmin, Reason: "r", RefundPercentage: 101})
	assert.True(t, apperror.IsValidation(err))

	_, err = e.resolve.Execute(context.Background(), dispute.ResolveInput{DisputeID: d.ID, AdminID: uuid.New(), Role: valueobject.RoleAdmin, Reason: "r", RefundPercentage: 0})
	require.NoError(t, err)

	_, err = e.resolve.Execute(context.Background(), dispute.ResolveInput{DisputeID: d.ID, AdminID: uuid.New(), Role: valueobject.RoleAdmin, Reason: "r", RefundPercentage: 0})
	assert.True(t, apperror.IsValidation(err), "already resolved")
}

func TestResolve_AllowsNewDisputeAfterwards(t *testing.T) {
	e := newEnv()
	b := e.booking(t, true)
	d := e.openBy(t, b, b.BrandID, valueobject.RoleBrand)
	_, err := e.resolve.Execute(context.Background(), dispute.ResolveInput{DisputeID: d.ID, AdminID: uuid.New(), Role: valueobject.RoleAdmin, Reason: "r", RefundPercentage: 50})
	require.NoError(t, err)

	e.clock.Advance(time.Hour)
	next := e.openBy(t, b, b.CreatorID, valueobject.RoleCreator)

	latest, err := dispute.NewGetByBookingUseCase(e.bookings, e.disputes).Execute(context.Background(), b.ID, b.BrandID, valueobject.RoleBrand)
	require.NoError(t, err)
	assert.Equal(t, next.ID, latest.ID)
	assert.Equal(t, valueobject.RoleCreator, latest.OpenerRole)
}

func TestRemindOverdue(t *testing.T) {
	e := newEnv()
	b := e.booking(t, true)
	d := e.openBy(t, b, b.BrandID, valueobject.RoleBrand)
	e.clock.Set(t0.Add(responseWindow + time.Second))
	_, err := e.escalate.Execute(context.Background(), d.ID)
	require.NoError(t, err)
	remind := dispute.NewRemindOverdueUseCase(e.bookings, e.disputes, e.notifier, e.clock)

	err = remind.Execute(context.Background(), d.ID)
	assert.True(t, apperror.IsValidation(err), "deadline not reached")

	e.clock.Advance(resolutionWindow + time.Second)
	require.NoError(t, remind.Execute(context.Background(), d.ID))
	assert.Len(t, e.notifier.OfType(notify.TypeAdminDisputeOverdue), 1)
}

func TestGetAndList(t *testing.T) {
	e := newEnv()
	b := e.booking(t, true)
	d := e.openBy(t, b, b.BrandID, valueobject.RoleBrand)
	other := e.booking(t, true)
	e.openBy(t, other, other.CreatorID, valueobject.RoleCreator)

	got, err := dispute.NewGetDisputeUseCase(e.bookings, e.disputes).Execute(context.Background(), d.ID, b.CreatorID, valueobject.RoleCreator)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)

	_, err = dispute.NewGetDisputeUseCase(e.bookings, e.disputes).Execute(context.Background(), d.ID, other.BrandID, valueobject.RoleBrand)
	assert.True(t, apperror.IsForbidden(err))

	list := dispute.NewListForAdminUseCase(e.disputes)
	all, total, err := list.Execute(context.Background(), repository.DisputeFilter{Status: string(valueobject.DisputeStatusOpen)})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, all, 2)

	_, _, err = list.Execute(context.Background(), repository.DisputeFilter{Status: "lost"})
	assert.True(t, apperror.IsValidation(err))
}
