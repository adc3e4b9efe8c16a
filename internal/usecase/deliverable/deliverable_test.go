package deliverable_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
	"github.com/ignatzorin/livebook-backend/internal/domain/valueobject"
	"github.com/ignatzorin/livebook-backend/internal/jobs"
	"github.com/ignatzorin/livebook-backend/internal/notify"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
	"github.com/ignatzorin/livebook-backend/internal/pkg/clock"
	"github.com/ignatzorin/livebook-backend/internal/usecase/deliverable"
	"github.com/ignatzorin/livebook-backend/internal/usecase/usecasetest"
)

var t0 = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

type env struct {
	clock        *clock.Manual
	bookings     *usecasetest.Bookings
	deliverables *usecasetest.Deliverables
	store        *usecasetest.FileStore
	scheduler    *usecasetest.Scheduler
	notifier     *usecasetest.Notifier
	submit       *deliverable.SubmitDeliverablesUseCase
}

func newEnv() *env {
	e := &env{
		clock:     clock.NewManual(t0),
		bookings:  usecasetest.NewBookings(),
		store:     usecasetest.NewFileStore(),
		scheduler: &usecasetest.Scheduler{},
		notifier:  &usecasetest.Notifier{},
	}
	e.deliverables = usecasetest.NewDeliverables(e.bookings)
	e.submit = deliverable.NewSubmitDeliverablesUseCase(e.bookings, e.deliverables, e.store, e.scheduler, e.notifier, e.clock, deliverable.SubmitConfig{
		AutoReleaseAfter: 72 * time.Hour,
		MaxUploadBytes:   1 << 20,
	})
	return e
}

// accepted создаёт бронирование, принятое креатором.
func (e *env) accepted(t *testing.T) *entity.Booking {
	t.Helper()
	svc, err := entity.NewCreatorService(uuid.New(), "Stream", "", 5000, 5, t0)
	require.NoError(t, err)
	b, err := entity.NewBooking(uuid.New(), svc, "brief", nil, t0)
	require.NoError(t, err)
	require.NoError(t, e.bookings.Create(context.Background(), b))
	require.NoError(t, b.Accept(b.CreatorID, t0))
	require.NoError(t, e.bookings.Update(context.Background(), b))
	return b
}

func (e *env) requestRevision(t *testing.T, id uuid.UUID) {
	t.Helper()
	b, err := e.bookings.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, b.RequestRevision(b.BrandID, "ещё раз", e.clock.Now()))
	require.NoError(t, e.bookings.Update(context.Background(), b))
}

func files(names ...string) []deliverable.File {
	out := make([]deliverable.File, 0, len(names))
	for _, name := range names {
		data := append([]byte(nil), pngHeader...)
		data = append(data, []byte(name)...)
		out = append(out, deliverable.File{
			FileName:    name,
			ContentType: "application/octet-stream",
			Size:        int64(len(data)),
			Content:     bytes.NewReader(data),
		})
	}
	return out
}

func TestSubmit_VersionsAreContiguous(t *testing.T) {
	e := newEnv()
	b := e.accepted(t)
	ctx := context.Background()

	res, err := e.submit.Execute(ctx, deliverable.SubmitInput{BookingID: b.ID, CreatorID: b.CreatorID, Files: files("a.png", "b.png"), Notes: "первая"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Version)
	assert.Equal(t, valueobject.DeliveryStatusDelivered, res.Booking.DeliveryStatus)

	e.requestRevision(t, b.ID)
	e.clock.Advance(time.Hour)
	res, err = e.submit.Execute(ctx, deliverable.SubmitInput{BookingID: b.ID, CreatorID: b.CreatorID, Files: files("c.png")})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Version)

	e.requestRevision(t, b.ID)
	e.clock.Advance(time.Hour)
	res, err = e.submit.Execute(ctx, deliverable.SubmitInput{BookingID: b.ID, CreatorID: b.CreatorID, Files: files("d.png", "e.png")})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Version)

	current, err := e.deliverables.CurrentSet(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, current, 2)
	for _, d := range current {
		assert.Equal(t, 3, d.Version)
		assert.Equal(t, "image/png", d.MimeType)
	}

	history, err := e.deliverables.History(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, 3, history[0].Version)
	assert.Equal(t, 1, history[len(history)-1].Version)
	assert.Equal(t, "первая", *history[len(history)-1].Notes)
	assert.Len(t, e.store.Objects, 5)
}

func TestSubmit_SchedulesAutoReleaseAndNotifies(t *testing.T) {
	e := newEnv()
	b := e.accepted(t)

	_, err := e.submit.Execute(context.Background(), deliverable.SubmitInput{BookingID: b.ID, CreatorID: b.CreatorID, Files: files("a.png")})

	require.NoError(t, err)
	jobsDue := e.scheduler.OfType(jobs.TypeDeliveryAutoRelease)
	require.Len(t, jobsDue, 1)
	assert.Equal(t, jobs.BookingPayload{BookingID: b.ID, Version: 1}, jobsDue[0].Payload)
	assert.Equal(t, t0.Add(72*time.Hour), jobsDue[0].DueAt)

	events := e.notifier.OfType(notify.TypeBrandDeliverablesSubmitted)
	require.Len(t, events, 1)
	ev := events[0].(notify.DeliverablesSubmitted)
	assert.Equal(t, 1, ev.FileCount)
	assert.Equal(t, b.BrandID, ev.Audience().UserID)
}

func TestSubmit_UploadFailureRemovesStoredFiles(t *testing.T) {
	e := newEnv()
	b := e.accepted(t)
	e.store.FailAfter = 1

	_, err := e.submit.Execute(context.Background(), deliverable.SubmitInput{BookingID: b.ID, CreatorID: b.CreatorID, Files: files("a.png", "b.png")})

	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeStorage, apperror.CodeOf(err))
	assert.Len(t, e.store.Deleted, 1)
	assert.Empty(t, e.store.Objects)
	assert.Empty(t, e.notifier.Events)

	stored, err := e.bookings.FindByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DeliveryStatusInProgress, stored.DeliveryStatus)
	assert.Equal(t, 0, stored.DeliverableVersion)
}

func TestSubmit_OnlyCreator(t *testing.T) {
	e := newEnv()
	b := e.accepted(t)

	_, err := e.submit.Execute(context.Background(), deliverable.SubmitInput{BookingID: b.ID, CreatorID: b.BrandID, Files: files("a.png")})

	assert.True(t, apperror.IsForbidden(err))
	assert.Empty(t, e.store.Objects)
}

func TestSubmit_RejectsWhileAwaitingReview(t *testing.T) {
	e := newEnv()
	b := e.accepted(t)
	_, err := e.submit.Execute(context.Background(), deliverable.SubmitInput{BookingID: b.ID, CreatorID: b.CreatorID, Files: files("a.png")})
	require.NoError(t, err)

	_, err = e.submit.Execute(context.Background(), deliverable.SubmitInput{BookingID: b.ID, CreatorID: b.CreatorID, Files: files("b.png")})

	assert.True(t, apperror.IsValidation(err))
	assert.Len(t, e.store.Objects, 1)
}

func TestSubmit_ValidatesFiles(t *testing.T) {
	e := newEnv()
	b := e.accepted(t)

	_, err := e.submit.Execute(context.Background(), deliverable.SubmitInput{BookingID: b.ID, CreatorID: b.CreatorID})
	assert.True(t, apperror.IsValidation(err))

	big := files("big.png")
	big[0].Size = 2 << 20
	_, err = e.submit.Execute(context.Background(), deliverable.SubmitInput{BookingID: b.ID, CreatorID: b.CreatorID, Files: big})
	assert.True(t, apperror.IsValidation(err))

	many := make([]string, entity.MaxFilesPerSubmission+1)
	for i := range many {
		many[i] = uuid.NewString() + ".png"
	}
	_, err = e.submit.Execute(context.Background(), deliverable.SubmitInput{BookingID: b.ID, CreatorID: b.CreatorID, Files: files(many...)})
	assert.True(t, apperror.IsValidation(err))
}

func TestSubmit_SchedulerFailureDoesNotFailSubmission(t *testing.T) {
	e := newEnv()
	b := e.accepted(t)
	e.scheduler.Err = errors.New("db down")

	res, err := e.submit.Execute(context.Background(), deliverable.SubmitInput{BookingID: b.ID, CreatorID: b.CreatorID, Files: files("a.png")})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Version)
	assert.Len(t, e.notifier.OfType(notify.TypeBrandDeliverablesSubmitted), 1)
}

func TestCurrentSet_Visibility(t *testing.T) {
	e := newEnv()
	b := e.accepted(t)
	_, err := e.submit.Execute(context.Background(), deliverable.SubmitInput{BookingID: b.ID, CreatorID: b.CreatorID, Files: files("a.png")})
	require.NoError(t, err)
	uc := deliverable.NewCurrentSetUseCase(e.bookings, e.deliverables)

	set, err := uc.Execute(context.Background(), b.ID, b.BrandID, valueobject.RoleBrand)
	require.NoError(t, err)
	assert.Len(t, set, 1)

	set, err = uc.Execute(context.Background(), b.ID, uuid.New(), valueobject.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, set, 1)

	_, err = uc.Execute(context.Background(), b.ID, uuid.New(), valueobject.RoleBrand)
	assert.True(t, apperror.IsForbidden(err))

	history, err := deliverable.NewHistoryUseCase(e.bookings, e.deliverables).Execute(context.Background(), b.ID, b.CreatorID, valueobject.RoleCreator)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

// versionsAhead отдаёт номер версии, который уже занят параллельной сдачей.
type versionsAhead struct {
	*usecasetest.Deliverables
	latest int
	err    error
}

func (v versionsAhead) LatestVersion(ctx context.Context, bookingID uuid.UUID) (int, error) {
	return v.latest, v.err
}

func TestSubmit_PrecheckUsesStoredVersion(t *testing.T) {
	tests := []struct {
		name     string
		repo     versionsAhead
		wantCode apperror.ErrorCode
	}{
		{name: "версия уже занята", repo: versionsAhead{latest: 1}, wantCode: apperror.ErrCodeConflict},
		{name: "ошибка хранилища", repo: versionsAhead{err: apperror.New(apperror.ErrCodeDatabaseError, "db down")}, wantCode: apperror.ErrCodeDatabaseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			b := e.accepted(t)
			tt.repo.Deliverables = e.deliverables
			submit := deliverable.NewSubmitDeliverablesUseCase(e.bookings, tt.repo, e.store, e.scheduler, e.notifier, e.clock, deliverable.SubmitConfig{
				AutoReleaseAfter: 72 * time.Hour,
			})

			_, err := submit.Execute(context.Background(), deliverable.SubmitInput{BookingID: b.ID, CreatorID: b.CreatorID, Files: files("a.png")})

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperror.CodeOf(err))
			assert.Empty(t, e.store.Objects)
			assert.Empty(t, e.scheduler.Jobs)
		})
	}
}
