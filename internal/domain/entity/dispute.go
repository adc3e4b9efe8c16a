package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/livebook-backend/internal/domain/valueobject"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
	"github.com/ignatzorin/livebook-backend/internal/validation"
)

type Dispute struct {
	ID           uuid.UUID
	BookingID    uuid.UUID
	OpenerID     uuid.UUID
	OpenerRole   valueobject.PartyRole
	RespondentID uuid.UUID
	Reason       string
	Evidence     *string
	Status       valueobject.DisputeStatus

	ResponseText     *string
	RespondedAt      *time.Time
	ResponseDeadline time.Time

	EscalatedToAdmin   bool
	EscalatedAt        *time.Time
	ResolutionDeadline *time.Time

	RefundPercentage    *int
	AdminDecisionReason *string
	ResolvedBy          *uuid.UUID
	ResolvedAt          *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OpenDispute открывает спор по бронированию. Окно ответа второй стороны отсчитывается от now.
func OpenDispute(booking *Booking, openerID uuid.UUID, declaredRole valueobject.PartyRole, reason string, evidence *string, responseWindow time.Duration, now time.Time) (*Dispute, error) {
	role, ok := booking.RoleOf(openerID)
	if !ok {
		return nil, apperror.ErrForbidden
	}
	if declaredRole != "" && declaredRole != role {
		return nil, apperror.New(apperror.ErrCodeValidation, "роль открывающего не совпадает с его ролью в бронировании")
	}
	if booking.Status == valueobject.BookingStatusPending {
		return nil, apperror.New(apperror.ErrCodeValidation, "спор нельзя открыть по неподтверждённому бронированию")
	}

	reason, err := validation.ValidateText("причина спора", reason, true, validation.MaxDisputeReasonLength)
	if err != nil {
		return nil, err
	}
	if evidence != nil {
		if err := validation.ValidateLength("доказательства", *evidence, 0, validation.MaxEvidenceLength); err != nil {
			return nil, err
		}
	}

	respondent := booking.CreatorID
	if role == valueobject.RoleCreator {
		respondent = booking.BrandID
	}

	return &Dispute{
		ID:               uuid.New(),
		BookingID:        booking.ID,
		OpenerID:         openerID,
		OpenerRole:       role,
		RespondentID:     respondent,
		Reason:           reason,
		Evidence:         evidence,
		Status:           valueobject.DisputeStatusOpen,
		ResponseDeadline: now.Add(responseWindow),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (d *Dispute) IsUnresolved() bool {
	return !d.Status.IsResolved()
}

// Respond записывает ответ второй стороны. Ответ принимается до дедлайна включительно.
func (d *Dispute) Respond(responderID uuid.UUID, text string, now time.Time) error {
	if responderID != d.RespondentID {
		return apperror.ErrForbidden
	}
	if d.Status != valueobject.DisputeStatusOpen {
		return apperror.New(apperror.ErrCodeValidation, "ответить можно только на открытый спор")
	}
	if now.After(d.ResponseDeadline) {
		return apperror.ErrResponseExpired
	}

	text, err := validation.ValidateText("ответ", text, true, validation.MaxResponseLength)
	if err != nil {
		return err
	}

	d.ResponseText = &text
	d.RespondedAt = &now
	d.Status = valueobject.DisputeStatusUnderReview
	d.UpdatedAt = now
	return nil
}

// Escalate передаёт спор администратору после истечения окна ответа.
func (d *Dispute) Escalate(resolutionWindow time.Duration, now time.Time) error {
	if d.Status != valueobject.DisputeStatusOpen {
		return apperror.New(apperror.ErrCodeValidation, "эскалировать можно только открытый спор без ответа")
	}
	if !now.After(d.ResponseDeadline) {
		return apperror.ErrResponseWindowOpen
	}

	deadline := now.Add(resolutionWindow)
	d.Status = valueobject.DisputeStatusEscalated
	d.EscalatedToAdmin = true
	d.EscalatedAt = &now
	d.ResolutionDeadline = &deadline
	d.UpdatedAt = now
	return nil
}

func (d *Dispute) Resolve(adminID uuid.UUID, reason string, refund valueobject.RefundPercentage, now time.Time) error {
	if !d.Status.CanTransitionTo(valueobject.DisputeStatusResolved) {
		return apperror.New(apperror.ErrCodeValidation, "спор уже решён")
	}

	reason, err := validation.ValidateText("обоснование решения", reason, true, validation.MaxDecisionReasonLength)
	if err != nil {
		return err
	}

	pct := int(refund)
	d.Status = valueobject.DisputeStatusResolved
	d.RefundPercentage = &pct
	d.AdminDecisionReason = &reason
	d.ResolvedBy = &adminID
	d.ResolvedAt = &now
	d.UpdatedAt = now
	return nil
}

// IsResolutionOverdue - эскалированный спор не решён к сроку.
func (d *Dispute) IsResolutionOverdue(now time.Time) bool {
	return d.Status == valueobject.DisputeStatusEscalated && d.ResolutionDeadline != nil && now.After(*d.ResolutionDeadline)
}
