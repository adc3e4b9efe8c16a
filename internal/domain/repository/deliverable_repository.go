package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
)

// DeliverableRepository - версионное хранилище материалов. Строки только добавляются.
type DeliverableRepository interface {
	// SubmitVersion в одной транзакции вычисляет следующую версию, вызывает prepare
	// для перехода бронирования, записывает файлы и сохраняет бронирование.
	SubmitVersion(ctx context.Context, bookingID uuid.UUID, prepare SubmitFunc) (*entity.Booking, []entity.Deliverable, error)
	CurrentSet(ctx context.Context, bookingID uuid.UUID) ([]entity.Deliverable, error)
	History(ctx context.Context, bookingID uuid.UUID) ([]entity.Deliverable, error)
	LatestVersion(ctx context.Context, bookingID uuid.UUID) (int, error)
}

// SubmitFunc получает заблокированное бронирование и номер новой версии и возвращает файлы партии.
type SubmitFunc func(booking *entity.Booking, version int) ([]entity.Deliverable, error)
