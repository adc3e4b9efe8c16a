package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
	"github.com/ignatzorin/livebook-backend/internal/repository/common"
)

// PartyDirectoryAdapter читает контакты из таблицы profiles, которую наполняет сервис учётных записей.
type PartyDirectoryAdapter struct {
	db *sqlx.DB
}

func NewPartyDirectoryAdapter(db *sqlx.DB) *PartyDirectoryAdapter {
	return &PartyDirectoryAdapter{db: db}
}

func (r *PartyDirectoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Party, error) {
	party, err := common.GetOne[entity.Party](ctx, r.db, apperror.ErrPartyNotFound,
		`SELECT id, email, display_name, role FROM profiles WHERE id = $1`, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить профиль")
	}
	return party, nil
}

func (r *PartyDirectoryAdapter) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Party, error) {
	result := make(map[uuid.UUID]*entity.Party, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT id, email, display_name, role FROM profiles WHERE id IN (?)`, ids)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось подготовить запрос профилей")
	}

	var parties []entity.Party
	if err := r.db.SelectContext(ctx, &parties, r.db.Rebind(query), args...); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить профили")
	}
	for i := range parties {
		result[parties[i].ID] = &parties[i]
	}
	return result, nil
}

func (r *PartyDirectoryAdapter) ListAdmins(ctx context.Context) ([]*entity.Party, error) {
	var parties []entity.Party
	if err := r.db.SelectContext(ctx, &parties,
		`SELECT id, email, display_name, role FROM profiles WHERE role = 'admin' ORDER BY email`); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить администраторов")
	}

	result := make([]*entity.Party, 0, len(parties))
	for i := range parties {
		result = append(result, &parties[i])
	}
	return result, nil
}
