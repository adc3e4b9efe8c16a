package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	// Update сохраняет бронирование при совпадении Version и увеличивает её.
	// Если запись уже изменена другим запросом, возвращает apperror.ErrStaleBooking.
	Update(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	ListByParty(ctx context.Context, filter BookingFilter) ([]*entity.Booking, int, error)
	History(ctx context.Context, bookingID uuid.UUID) ([]entity.BookingEvent, error)
}

type BookingFilter struct {
	UserID uuid.UUID
	Role   string
	Status string
	Limit  int
	Offset int
}
