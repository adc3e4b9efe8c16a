package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
	"github.com/ignatzorin/livebook-backend/internal/domain/valueobject"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
	"github.com/ignatzorin/livebook-backend/internal/repository/common"
)

type creatorServiceRow struct {
	ID           uuid.UUID `db:"id"`
	CreatorID    uuid.UUID `db:"creator_id"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	PriceCents   int64     `db:"price_cents"`
	DeliveryDays int       `db:"delivery_days"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r creatorServiceRow) toEntity() *entity.CreatorService {
	return &entity.CreatorService{
		ID:           r.ID,
		CreatorID:    r.CreatorID,
		Title:        r.Title,
		Description:  r.Description,
		Price:        valueobject.Cents(r.PriceCents),
		DeliveryDays: r.DeliveryDays,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type CreatorServiceRepositoryAdapter struct {
	db *sqlx.DB
}

func NewCreatorServiceRepositoryAdapter(db *sqlx.DB) *CreatorServiceRepositoryAdapter {
	return &CreatorServiceRepositoryAdapter{db: db}
}

func (r *CreatorServiceRepositoryAdapter) Create(ctx context.Context, s *entity.CreatorService) error {
	query := `
		INSERT INTO creator_services (id, creator_id, title, description, price_cents, delivery_days, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.CreatorID, s.Title, s.Description, s.Price.Int64(), s.DeliveryDays, s.IsActive, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать услугу")
	}
	return nil
}

func (r *CreatorServiceRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.CreatorService, error) {
	row, err := common.GetOne[creatorServiceRow](ctx, r.db, apperror.ErrServiceNotFound,
		`SELECT * FROM creator_services WHERE id = $1`, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить услугу")
	}
	return row.toEntity(), nil
}

func (r *CreatorServiceRepositoryAdapter) ListByCreator(ctx context.Context, creatorID uuid.UUID, onlyActive bool) ([]*entity.CreatorService, error) {
	query := `SELECT * FROM creator_services WHERE creator_id = $1`
	if onlyActive {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	var rows []creatorServiceRow
	if err := r.db.SelectContext(ctx, &rows, query, creatorID); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить услуги")
	}

	services := make([]*entity.CreatorService, 0, len(rows))
	for _, row := range rows {
		services = append(services, row.toEntity())
	}
	return services, nil
}
