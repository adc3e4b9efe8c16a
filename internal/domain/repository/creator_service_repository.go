package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
)

type CreatorServiceRepository interface {
	Create(ctx context.Context, service *entity.CreatorService) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.CreatorService, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID, onlyActive bool) ([]*entity.CreatorService, error)
}
