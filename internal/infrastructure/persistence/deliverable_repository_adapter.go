package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
	"github.com/ignatzorin/livebook-backend/internal/domain/repository"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
	"github.com/ignatzorin/livebook-backend/internal/repository/common"
)

type deliverableRow struct {
	ID          uuid.UUID `db:"id"`
	BookingID   uuid.UUID `db:"booking_id"`
	CreatorID   uuid.UUID `db:"creator_id"`
	Version     int       `db:"version"`
	FileName    string    `db:"file_name"`
	MimeType    string    `db:"mime_type"`
	SizeBytes   int64     `db:"size_bytes"`
	StorageKey  string    `db:"storage_key"`
	Description *string   `db:"description"`
	Notes       *string   `db:"notes"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r deliverableRow) toEntity() entity.Deliverable {
	return entity.Deliverable(r)
}

type DeliverableRepositoryAdapter struct {
	db *sqlx.DB
}

func NewDeliverableRepositoryAdapter(db *sqlx.DB) *DeliverableRepositoryAdapter {
	return &DeliverableRepositoryAdapter{db: db}
}

// SubmitVersion блокирует строку бронирования, поэтому две параллельные сдачи
// не получат один и тот же номер версии.
func (r *DeliverableRepositoryAdapter) SubmitVersion(ctx context.Context, bookingID uuid.UUID, prepare repository.SubmitFunc) (*entity.Booking, []entity.Deliverable, error) {
	var (
		booking *entity.Booking
		batch   []entity.Deliverable
	)

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		booking, err = findBooking(ctx, tx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, bookingID)
		if err != nil {
			return err
		}

		var maxVersion int
		if err := tx.GetContext(ctx, &maxVersion,
			`SELECT COALESCE(MAX(version), 0) FROM booking_deliverables WHERE booking_id = $1`, bookingID); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить текущую версию материалов")
		}

		batch, err = prepare(booking, maxVersion+1)
		if err != nil {
			return err
		}

		inserter := common.NewBatchInserter(tx, `INSERT INTO booking_deliverables
			(id, booking_id, creator_id, version, file_name, mime_type, size_bytes, storage_key, description, notes, created_at)`, 11, entity.MaxFilesPerSubmission)
		for _, d := range batch {
			if err := inserter.Add(ctx, d.ID, d.BookingID, d.CreatorID, d.Version, d.FileName, d.MimeType,
				d.SizeBytes, d.StorageKey, d.Description, d.Notes, d.CreatedAt); err != nil {
				return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить материалы")
			}
		}
		if err := inserter.Flush(ctx); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить материалы")
		}

		return updateBookingTx(ctx, tx, booking)
	})
	if err != nil {
		return nil, nil, err
	}
	return booking, batch, nil
}

func (r *DeliverableRepositoryAdapter) CurrentSet(ctx context.Context, bookingID uuid.UUID) ([]entity.Deliverable, error) {
	query := `
		SELECT id, booking_id, creator_id, version, file_name, mime_type, size_bytes, storage_key, description, notes, created_at
		FROM booking_deliverables
		WHERE booking_id = $1
		  AND version = (SELECT MAX(version) FROM booking_deliverables WHERE booking_id = $1)
		ORDER BY created_at, file_name
	`
	return r.selectDeliverables(ctx, query, bookingID)
}

func (r *DeliverableRepositoryAdapter) History(ctx context.Context, bookingID uuid.UUID) ([]entity.Deliverable, error) {
	query := `
		SELECT id, booking_id, creator_id, version, file_name, mime_type, size_bytes, storage_key, description, notes, created_at
		FROM booking_deliverables
		WHERE booking_id = $1
		ORDER BY version DESC, created_at, file_name
	`
	return r.selectDeliverables(ctx, query, bookingID)
}

func (r *DeliverableRepositoryAdapter) LatestVersion(ctx context.Context, bookingID uuid.UUID) (int, error) {
	var version int
	if err := r.db.GetContext(ctx, &version,
		`SELECT COALESCE(MAX(version), 0) FROM booking_deliverables WHERE booking_id = $1`, bookingID); err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить версию материалов")
	}
	return version, nil
}

func (r *DeliverableRepositoryAdapter) selectDeliverables(ctx context.Context, query string, bookingID uuid.UUID) ([]entity.Deliverable, error) {
	var rows []deliverableRow
	if err := r.db.SelectContext(ctx, &rows, query, bookingID); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить материалы")
	}

	result := make([]entity.Deliverable, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toEntity())
	}
	return result, nil
}
