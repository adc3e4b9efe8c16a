package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
	"github.com/ignatzorin/livebook-backend/internal/jobs"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
)

type mockAutoReleaser struct {
	mock.Mock
}

func (m *mockAutoReleaser) Execute(ctx context.Context, bookingID uuid.UUID, version int) (*entity.Booking, error) {
	args := m.Called(ctx, bookingID, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Booking), args.Error(1)
}

type mockEscalator struct {
	mock.Mock
}

func (m *mockEscalator) Execute(ctx context.Context, disputeID uuid.UUID) (*entity.Dispute, error) {
	args := m.Called(ctx, disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Dispute), args.Error(1)
}

type mockReminder struct {
	mock.Mock
}

func (m *mockReminder) Execute(ctx context.Context, disputeID uuid.UUID) error {
	return m.Called(ctx, disputeID).Error(0)
}

func jobWith(t *testing.T, jobType string, payload any) jobs.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return jobs.Job{ID: uuid.New(), Type: jobType, Payload: raw}
}

func TestAutoRelease_PassesVersion(t *testing.T) {
	uc := new(mockAutoReleaser)
	ctx := context.Background()
	bookingID := uuid.New()
	uc.On("Execute", ctx, bookingID, 3).Return(&entity.Booking{ID: bookingID}, nil)

	err := AutoRelease(uc)(ctx, jobWith(t, jobs.TypeDeliveryAutoRelease, jobs.BookingPayload{BookingID: bookingID, Version: 3}))

	assert.NoError(t, err)
	uc.AssertExpectations(t)
}

func TestAutoRelease_StaleStateIsNoop(t *testing.T) {
	uc := new(mockAutoReleaser)
	ctx := context.Background()
	uc.On("Execute", ctx, mock.Anything, 1).Return(nil, apperror.New(apperror.ErrCodeValidation, "материалы были пересданы"))

	err := AutoRelease(uc)(ctx, jobWith(t, jobs.TypeDeliveryAutoRelease, jobs.BookingPayload{BookingID: uuid.New(), Version: 1}))

	assert.NoError(t, err)
}

func TestAutoRelease_InfrastructureErrorRetries(t *testing.T) {
	uc := new(mockAutoReleaser)
	ctx := context.Background()
	uc.On("Execute", ctx, mock.Anything, 1).Return(nil, errors.New("connection reset"))

	err := AutoRelease(uc)(ctx, jobWith(t, jobs.TypeDeliveryAutoRelease, jobs.BookingPayload{BookingID: uuid.New(), Version: 1}))

	assert.Error(t, err)
}

func TestEscalateDispute(t *testing.T) {
	uc := new(mockEscalator)
	ctx := context.Background()
	answered := uuid.New()
	open := uuid.New()
	uc.On("Execute", ctx, open).Return(&entity.Dispute{ID: open}, nil)
	uc.On("Execute", ctx, answered).Return(nil, apperror.New(apperror.ErrCodeValidation, "эскалировать можно только открытый спор без ответа"))

	handler := EscalateDispute(uc)

	assert.NoError(t, handler(ctx, jobWith(t, jobs.TypeDisputeResponseExpired, jobs.DisputePayload{DisputeID: open})))
	assert.NoError(t, handler(ctx, jobWith(t, jobs.TypeDisputeResponseExpired, jobs.DisputePayload{DisputeID: answered})))
	uc.AssertNumberOfCalls(t, "Execute", 2)
}

func TestRemindOverdue_MissingDisputeIsNoop(t *testing.T) {
	uc := new(mockReminder)
	ctx := context.Background()
	uc.On("Execute", ctx, mock.Anything).Return(apperror.ErrDisputeNotFound)

	err := RemindOverdue(uc)(ctx, jobWith(t, jobs.TypeDisputeResolutionOverdue, jobs.DisputePayload{DisputeID: uuid.New()}))

	assert.NoError(t, err)
}

func TestHandlers_BadPayload(t *testing.T) {
	job := jobs.Job{ID: uuid.New(), Type: jobs.TypeDisputeResolutionOverdue, Payload: json.RawMessage(`{"dispute_id": 42}`)}

	err := RemindOverdue(new(mockReminder))(context.Background(), job)

	assert.Error(t, err)
}
