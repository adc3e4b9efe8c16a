package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
	"github.com/ignatzorin/livebook-backend/internal/domain/repository"
	"github.com/ignatzorin/livebook-backend/internal/domain/valueobject"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
	"github.com/ignatzorin/livebook-backend/internal/repository/common"
)

const bookingColumns = `id, brand_id, creator_id, service_id, service_title, brief, event_date,
	status, delivery_status, payment_status, revision_count, revision_notes, delivery_days,
	delivery_deadline, deliverable_version, delivered_at, confirmed_at, auto_released,
	total_price_cents, version, created_at, updated_at`

type bookingRow struct {
	ID                 uuid.UUID  `db:"id"`
	BrandID            uuid.UUID  `db:"brand_id"`
	CreatorID          uuid.UUID  `db:"creator_id"`
	ServiceID          uuid.UUID  `db:"service_id"`
	ServiceTitle       string     `db:"service_title"`
	Brief              string     `db:"brief"`
	EventDate          *time.Time `db:"event_date"`
	Status             string     `db:"status"`
	DeliveryStatus     *string    `db:"delivery_status"`
	PaymentStatus      string     `db:"payment_status"`
	RevisionCount      int        `db:"revision_count"`
	RevisionNotes      *string    `db:"revision_notes"`
	DeliveryDays       int        `db:"delivery_days"`
	DeliveryDeadline   *time.Time `db:"delivery_deadline"`
	DeliverableVersion int        `db:"deliverable_version"`
	DeliveredAt        *time.Time `db:"delivered_at"`
	ConfirmedAt        *time.Time `db:"confirmed_at"`
	AutoReleased       bool       `db:"auto_released"`
	TotalPriceCents    int64      `db:"total_price_cents"`
	Version            int        `db:"version"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

func (r bookingRow) toEntity() (*entity.Booking, error) {
	status, err := valueobject.NewBookingStatus(r.Status)
	if err != nil {
		return nil, err
	}
	delivery, err := valueobject.NewDeliveryStatus(r.DeliveryStatus)
	if err != nil {
		return nil, err
	}
	payment, err := valueobject.NewPaymentStatus(r.PaymentStatus)
	if err != nil {
		return nil, err
	}

	return &entity.Booking{
		ID:                 r.ID,
		BrandID:            r.BrandID,
		CreatorID:          r.CreatorID,
		ServiceID:          r.ServiceID,
		ServiceTitle:       r.ServiceTitle,
		Brief:              r.Brief,
		EventDate:          r.EventDate,
		Status:             status,
		DeliveryStatus:     delivery,
		PaymentStatus:      payment,
		RevisionCount:      r.RevisionCount,
		RevisionNotes:      r.RevisionNotes,
		DeliveryDays:       r.DeliveryDays,
		DeliveryDeadline:   r.DeliveryDeadline,
		DeliverableVersion: r.DeliverableVersion,
		DeliveredAt:        r.DeliveredAt,
		ConfirmedAt:        r.ConfirmedAt,
		AutoReleased:       r.AutoReleased,
		TotalPrice:         valueobject.Cents(r.TotalPriceCents),
		Version:            r.Version,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}, nil
}

type BookingRepositoryAdapter struct {
	db *sqlx.DB
}

func NewBookingRepositoryAdapter(db *sqlx.DB) *BookingRepositoryAdapter {
	return &BookingRepositoryAdapter{db: db}
}

func (r *BookingRepositoryAdapter) Create(ctx context.Context, b *entity.Booking) error {
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO bookings (id, brand_id, creator_id, service_id, service_title, brief, event_date,
				status, delivery_status, payment_status, revision_count, delivery_days,
				deliverable_version, total_price_cents, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		`
		if _, err := tx.ExecContext(ctx, query,
			b.ID, b.BrandID, b.CreatorID, b.ServiceID, b.ServiceTitle, b.Brief, b.EventDate,
			string(b.Status), b.DeliveryStatus.Ptr(), string(b.PaymentStatus), b.RevisionCount, b.DeliveryDays,
			b.DeliverableVersion, b.TotalPrice.Int64(), b.Version, b.CreatedAt, b.UpdatedAt,
		); err != nil {
			return err
		}
		return insertBookingHistory(ctx, tx, b.PendingHistory())
	})
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать бронирование")
	}
	return nil
}

func (r *BookingRepositoryAdapter) Update(ctx context.Context, b *entity.Booking) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		return updateBookingTx(ctx, tx, b)
	})
}

// updateBookingTx пишет бронирование с проверкой версии и добавляет записи аудита.
func updateBookingTx(ctx context.Context, tx *sqlx.Tx, b *entity.Booking) error {
	query := `
		UPDATE bookings
		SET status = $3, delivery_status = $4, payment_status = $5, revision_count = $6,
		    revision_notes = $7, delivery_deadline = $8, deliverable_version = $9,
		    delivered_at = $10, confirmed_at = $11, auto_released = $12,
		    updated_at = $13, version = version + 1
		WHERE id = $1 AND version = $2
	`
	result, err := tx.ExecContext(ctx, query,
		b.ID, b.Version,
		string(b.Status), b.DeliveryStatus.Ptr(), string(b.PaymentStatus), b.RevisionCount,
		b.RevisionNotes, b.DeliveryDeadline, b.DeliverableVersion,
		b.DeliveredAt, b.ConfirmedAt, b.AutoReleased,
		b.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить бронирование")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить результат обновления")
	}
	if rows == 0 {
		return apperror.ErrStaleBooking
	}
	b.Version++

	if err := insertBookingHistory(ctx, tx, b.PendingHistory()); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось записать историю бронирования")
	}
	return nil
}

func insertBookingHistory(ctx context.Context, tx *sqlx.Tx, events []entity.BookingEvent) error {
	if len(events) == 0 {
		return nil
	}

	inserter := common.NewBatchInserter(tx,
		`INSERT INTO booking_history (id, booking_id, actor_id, action, old_value, new_value, created_at)`, 7, 50)
	for _, ev := range events {
		oldJSON, err := marshalNullable(ev.OldValue)
		if err != nil {
			return err
		}
		newJSON, err := marshalNullable(ev.NewValue)
		if err != nil {
			return err
		}
		if err := inserter.Add(ctx, ev.ID, ev.BookingID, ev.ActorID, ev.Action, oldJSON, newJSON, ev.CreatedAt); err != nil {
			return err
		}
	}
	return inserter.Flush(ctx)
}

// marshalNullable возвращает nil без типа для пустого значения, иначе lib/pq
// отправит пустую строку вместо NULL и jsonb колонка её не примет.
func marshalNullable(v map[string]any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("booking history: marshal %w", err)
	}
	return string(raw), nil
}

func unmarshalNullable(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v map[string]any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("booking history: unmarshal %w", err)
	}
	return v, nil
}

func (r *BookingRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return findBooking(ctx, r.db, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func findBooking(ctx context.Context, q sqlx.QueryerContext, query string, id uuid.UUID) (*entity.Booking, error) {
	row, err := common.GetOne[bookingRow](ctx, q, apperror.ErrBookingNotFound, query, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить бронирование")
	}
	return row.toEntity()
}

func (r *BookingRepositoryAdapter) ListByParty(ctx context.Context, filter repository.BookingFilter) ([]*entity.Booking, int, error) {
	baseQuery := `FROM bookings WHERE `
	args := []any{filter.UserID}
	switch filter.Role {
	case string(valueobject.RoleBrand):
		baseQuery += `brand_id = $1`
	case string(valueobject.RoleCreator):
		baseQuery += `creator_id = $1`
	default:
		baseQuery += `(brand_id = $1 OR creator_id = $1)`
	}

	if filter.Status != "" {
		args = append(args, filter.Status)
		baseQuery += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать бронирования")
	}

	selectQuery := fmt.Sprintf(`SELECT %s %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		bookingColumns, baseQuery, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows, selectQuery, args...); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить бронирования")
	}

	bookings := make([]*entity.Booking, 0, len(rows))
	for _, row := range rows {
		b, err := row.toEntity()
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, b)
	}
	return bookings, total, nil
}

type bookingEventRow struct {
	ID        uuid.UUID  `db:"id"`
	BookingID uuid.UUID  `db:"booking_id"`
	ActorID   *uuid.UUID `db:"actor_id"`
	Action    string     `db:"action"`
	OldValue  []byte     `db:"old_value"`
	NewValue  []byte     `db:"new_value"`
	CreatedAt time.Time  `db:"created_at"`
}

func (r *BookingRepositoryAdapter) History(ctx context.Context, bookingID uuid.UUID) ([]entity.BookingEvent, error) {
	var rows []bookingEventRow
	query := `
		SELECT id, booking_id, actor_id, action, old_value, new_value, created_at
		FROM booking_history
		WHERE booking_id = $1
		ORDER BY created_at ASC, id ASC
	`
	if err := r.db.SelectContext(ctx, &rows, query, bookingID); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить историю бронирования")
	}

	events := make([]entity.BookingEvent, 0, len(rows))
	for _, row := range rows {
		ev := entity.BookingEvent{
			ID:        row.ID,
			BookingID: row.BookingID,
			ActorID:   row.ActorID,
			Action:    row.Action,
			CreatedAt: row.CreatedAt,
		}
		var err error
		if ev.OldValue, err = unmarshalNullable(row.OldValue); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "повреждена история бронирования")
		}
		if ev.NewValue, err = unmarshalNullable(row.NewValue); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "повреждена история бронирования")
		}
		events = append(events, ev)
	}
	return events, nil
}
