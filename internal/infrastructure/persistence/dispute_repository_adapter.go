package persistence

import (
	"context"
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

const disputeColumns = `id, booking_id, opener_id, opener_role, respondent_id, reason, evidence, status,
	response_text, responded_at, response_deadline, escalated_to_admin, escalated_at, resolution_deadline,
	refund_percentage, admin_decision_reason, resolved_by, resolved_at, created_at, updated_at`

type disputeRow struct {
	ID                  uuid.UUID  `db:"id"`
	BookingID           uuid.UUID  `db:"booking_id"`
	OpenerID            uuid.UUID  `db:"opener_id"`
	OpenerRole          string     `db:"opener_role"`
	RespondentID        uuid.UUID  `db:"respondent_id"`
	Reason              string     `db:"reason"`
	Evidence            *string    `db:"evidence"`
	Status              string     `db:"status"`
	ResponseText        *string    `db:"response_text"`
	RespondedAt         *time.Time `db:"responded_at"`
	ResponseDeadline    time.Time  `db:"response_deadline"`
	EscalatedToAdmin    bool       `db:"escalated_to_admin"`
	EscalatedAt         *time.Time `db:"escalated_at"`
	ResolutionDeadline  *time.Time `db:"resolution_deadline"`
	RefundPercentage    *int       `db:"refund_percentage"`
	AdminDecisionReason *string    `db:"admin_decision_reason"`
	ResolvedBy          *uuid.UUID `db:"resolved_by"`
	ResolvedAt          *time.Time `db:"resolved_at"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

func (r disputeRow) toEntity() (*entity.Dispute, error) {
	status, err := valueobject.NewDisputeStatus(r.Status)
	if err != nil {
		return nil, err
	}
	role, err := valueobject.NewPartyRole(r.OpenerRole)
	if err != nil {
		return nil, err
	}

	return &entity.Dispute{
		ID:                  r.ID,
		BookingID:           r.BookingID,
		OpenerID:            r.OpenerID,
		OpenerRole:          role,
		RespondentID:        r.RespondentID,
		Reason:              r.Reason,
		Evidence:            r.Evidence,
		Status:              status,
		ResponseText:        r.ResponseText,
		RespondedAt:         r.RespondedAt,
		ResponseDeadline:    r.ResponseDeadline,
		EscalatedToAdmin:    r.EscalatedToAdmin,
		EscalatedAt:         r.EscalatedAt,
		ResolutionDeadline:  r.ResolutionDeadline,
		RefundPercentage:    r.RefundPercentage,
		AdminDecisionReason: r.AdminDecisionReason,
		ResolvedBy:          r.ResolvedBy,
		ResolvedAt:          r.ResolvedAt,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}, nil
}

type DisputeRepositoryAdapter struct {
	db *sqlx.DB
}

func NewDisputeRepositoryAdapter(db *sqlx.DB) *DisputeRepositoryAdapter {
	return &DisputeRepositoryAdapter{db: db}
}

func (r *DisputeRepositoryAdapter) Create(ctx context.Context, d *entity.Dispute) error {
	query := `
		INSERT INTO booking_disputes (id, booking_id, opener_id, opener_role, respondent_id, reason, evidence,
			status, response_deadline, escalated_to_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.BookingID, d.OpenerID, string(d.OpenerRole), d.RespondentID, d.Reason, d.Evidence,
		string(d.Status), d.ResponseDeadline, d.EscalatedToAdmin, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		// частичный уникальный индекс не даёт открыть второй нерешённый спор
		if common.IsUniqueViolation(err) {
			return apperror.ErrDisputeExists
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать спор")
	}
	return nil
}

func (r *DisputeRepositoryAdapter) Update(ctx context.Context, d *entity.Dispute) error {
	query := `
		UPDATE booking_disputes
		SET status = $2, response_text = $3, responded_at = $4, escalated_to_admin = $5,
		    escalated_at = $6, resolution_deadline = $7, refund_percentage = $8,
		    admin_decision_reason = $9, resolved_by = $10, resolved_at = $11, updated_at = $12
		WHERE id = $1 AND status <> 'resolved'
	`
	result, err := r.db.ExecContext(ctx, query,
		d.ID, string(d.Status), d.ResponseText, d.RespondedAt, d.EscalatedToAdmin,
		d.EscalatedAt, d.ResolutionDeadline, d.RefundPercentage,
		d.AdminDecisionReason, d.ResolvedBy, d.ResolvedAt, d.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить спор")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить результат обновления")
	}
	if rows == 0 {
		return apperror.New(apperror.ErrCodeConflict, "спор уже решён")
	}
	return nil
}

func (r *DisputeRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Dispute, error) {
	return r.findOne(ctx, `SELECT `+disputeColumns+` FROM booking_disputes WHERE id = $1`, id)
}

func (r *DisputeRepositoryAdapter) FindUnresolvedByBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Dispute, error) {
	return r.findOne(ctx, `SELECT `+disputeColumns+` FROM booking_disputes
		WHERE booking_id = $1 AND status <> 'resolved'
		ORDER BY created_at DESC LIMIT 1`, bookingID)
}

func (r *DisputeRepositoryAdapter) FindLatestByBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Dispute, error) {
	return r.findOne(ctx, `SELECT `+disputeColumns+` FROM booking_disputes
		WHERE booking_id = $1 ORDER BY created_at DESC LIMIT 1`, bookingID)
}

func (r *DisputeRepositoryAdapter) findOne(ctx context.Context, query string, id uuid.UUID) (*entity.Dispute, error) {
	row, err := common.GetOne[disputeRow](ctx, r.db, apperror.ErrDisputeNotFound, query, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить спор")
	}
	return row.toEntity()
}

func (r *DisputeRepositoryAdapter) List(ctx context.Context, filter repository.DisputeFilter) ([]*entity.Dispute, int, error) {
	baseQuery := `FROM booking_disputes WHERE 1=1`
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		baseQuery += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать споры")
	}

	// эскалированные с ближайшим сроком решения идут первыми
	selectQuery := fmt.Sprintf(`SELECT %s %s ORDER BY resolution_deadline ASC NULLS LAST, created_at DESC LIMIT $%d OFFSET $%d`,
		disputeColumns, baseQuery, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	var rows []disputeRow
	if err := r.db.SelectContext(ctx, &rows, selectQuery, args...); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить споры")
	}

	disputes := make([]*entity.Dispute, 0, len(rows))
	for _, row := range rows {
		d, err := row.toEntity()
		if err != nil {
			return nil, 0, err
		}
		disputes = append(disputes, d)
	}
	return disputes, total, nil
}
