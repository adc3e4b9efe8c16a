package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
)

type DisputeRepository interface {
	Create(ctx context.Context, dispute *entity.Dispute) error
	Update(ctx context.Context, dispute *entity.Dispute) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Dispute, error)
	FindUnresolvedByBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Dispute, error)
	FindLatestByBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Dispute, error)
	List(ctx context.Context, filter DisputeFilter) ([]*entity.Dispute, int, error)
}

type DisputeFilter struct {
	Status string
	Limit  int
	Offset int
}
