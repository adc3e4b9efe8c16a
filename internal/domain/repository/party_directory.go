package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
)

// PartyDirectory - справочник контактов участников. Управление учётными записями вне этого сервиса.
type PartyDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Party, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Party, error)
	ListAdmins(ctx context.Context) ([]*entity.Party, error)
}
