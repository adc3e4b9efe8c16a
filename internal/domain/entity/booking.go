package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/livebook-backend/internal/domain/valueobject"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
	"github.com/ignatzorin/livebook-backend/internal/validation"
)

// MaxRevisions - сколько раз бренд может вернуть работу на доработку.
const MaxRevisions = 2

type Booking struct {
	ID           uuid.UUID
	BrandID      uuid.UUID
	CreatorID    uuid.UUID
	ServiceID    uuid.UUID
	ServiceTitle string
	Brief        string
	EventDate    *time.Time

	Status         valueobject.BookingStatus
	DeliveryStatus valueobject.DeliveryStatus
	PaymentStatus  valueobject.PaymentStatus

	RevisionCount      int
	RevisionNotes      *string
	DeliveryDays       int
	DeliveryDeadline   *time.Time
	DeliverableVersion int
	DeliveredAt        *time.Time
	ConfirmedAt        *time.Time
	AutoReleased       bool
	TotalPrice         valueobject.Cents

	// Version - токен оптимистичной блокировки, растёт при каждой записи.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time

	history []BookingEvent
}

// BookingEvent - запись аудита перехода, сохраняется вместе с бронированием.
type BookingEvent struct {
	ID        uuid.UUID
	BookingID uuid.UUID
	ActorID   *uuid.UUID
	Action    string
	OldValue  map[string]any
	NewValue  map[string]any
	CreatedAt time.Time
}

const (
	ActionCreated            = "created"
	ActionAccepted           = "accepted"
	ActionDeclined           = "declined"
	ActionCancelled          = "cancelled"
	ActionDelivered          = "deliverables_submitted"
	ActionApproved           = "approved"
	ActionAutoReleased       = "auto_released"
	ActionRevisionRequested  = "revision_requested"
	ActionCompletedByDispute = "completed_by_dispute"
)

func NewBooking(brandID uuid.UUID, service *CreatorService, brief string, eventDate *time.Time, now time.Time) (*Booking, error) {
	if service == nil || !service.IsActive {
		return nil, apperror.New(apperror.ErrCodeValidation, "услуга недоступна для бронирования")
	}
	if brandID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "бренд обязателен")
	}
	if brandID == service.CreatorID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя забронировать собственную услугу")
	}
	if eventDate != nil && eventDate.Before(now) {
		return nil, apperror.New(apperror.ErrCodeValidation, "дата события не может быть в прошлом")
	}
	brief, err := validation.ValidateText("бриф", brief, false, validation.MaxBriefLength)
	if err != nil {
		return nil, err
	}

	b := &Booking{
		ID:             uuid.New(),
		BrandID:        brandID,
		CreatorID:      service.CreatorID,
		ServiceID:      service.ID,
		ServiceTitle:   service.Title,
		Brief:          brief,
		EventDate:      eventDate,
		Status:         valueobject.BookingStatusPending,
		DeliveryStatus: valueobject.DeliveryStatusNone,
		PaymentStatus:  valueobject.PaymentStatusPending,
		DeliveryDays:   service.DeliveryDays,
		TotalPrice:     service.Price,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	b.record(&brandID, ActionCreated, nil, map[string]any{"status": string(b.Status)}, now)
	return b, nil
}

func (b *Booking) IsParty(userID uuid.UUID) bool {
	return userID == b.BrandID || userID == b.CreatorID
}

// CanView - стороны бронирования и администраторы.
func (b *Booking) CanView(userID uuid.UUID, role valueobject.PartyRole) bool {
	return role == valueobject.RoleAdmin || b.IsParty(userID)
}

// RoleOf возвращает роль пользователя в этом бронировании.
func (b *Booking) RoleOf(userID uuid.UUID) (valueobject.PartyRole, bool) {
	switch userID {
	case b.BrandID:
		return valueobject.RoleBrand, true
	case b.CreatorID:
		return valueobject.RoleCreator, true
	}
	return "", false
}

// PartyID возвращает идентификатор стороны по её роли.
func (b *Booking) PartyID(role valueobject.PartyRole) uuid.UUID {
	if role == valueobject.RoleBrand {
		return b.BrandID
	}
	return b.CreatorID
}

func (b *Booking) Accept(actorID uuid.UUID, now time.Time) error {
	if actorID != b.CreatorID {
		return apperror.ErrForbidden
	}
	if !b.Status.CanTransitionTo(valueobject.BookingStatusAccepted) {
		return apperror.New(apperror.ErrCodeValidation, "принять можно только бронирование в статусе pending")
	}

	deadline := now.Add(time.Duration(b.DeliveryDays) * 24 * time.Hour)
	old := b.snapshot()
	b.Status = valueobject.BookingStatusAccepted
	b.DeliveryStatus = valueobject.DeliveryStatusInProgress
	b.DeliveryDeadline = &deadline
	b.touch(&actorID, ActionAccepted, old, now)
	return nil
}

func (b *Booking) Decline(actorID uuid.UUID, now time.Time) error {
	if actorID != b.CreatorID {
		return apperror.ErrForbidden
	}
	if !b.Status.CanTransitionTo(valueobject.BookingStatusDeclined) {
		return apperror.New(apperror.ErrCodeValidation, "отклонить можно только бронирование в статусе pending")
	}

	old := b.snapshot()
	b.Status = valueobject.BookingStatusDeclined
	b.touch(&actorID, ActionDeclined, old, now)
	return nil
}

func (b *Booking) Cancel(actorID uuid.UUID, now time.Time) error {
	if actorID != b.BrandID {
		return apperror.ErrForbidden
	}
	if !b.Status.CanTransitionTo(valueobject.BookingStatusCancelled) {
		return apperror.New(apperror.ErrCodeValidation, "отменить можно только бронирование в статусе pending")
	}

	old := b.snapshot()
	b.Status = valueobject.BookingStatusCancelled
	b.touch(&actorID, ActionCancelled, old, now)
	return nil
}

// SubmitDeliverables фиксирует загрузку новой версии материалов.
// version должна быть ровно на единицу больше предыдущей.
func (b *Booking) SubmitDeliverables(actorID uuid.UUID, version int, now time.Time) error {
	if actorID != b.CreatorID {
		return apperror.ErrForbidden
	}
	if b.Status != valueobject.BookingStatusAccepted {
		return apperror.New(apperror.ErrCodeValidation, "загрузка материалов доступна только для принятого бронирования")
	}
	if !b.DeliveryStatus.AcceptsSubmission() {
		return apperror.New(apperror.ErrCodeValidation, "сейчас нельзя загрузить материалы: работа уже сдана или подтверждена")
	}
	if version != b.DeliverableVersion+1 {
		return apperror.New(apperror.ErrCodeConflict, "версия материалов устарела, обновите данные")
	}

	old := b.snapshot()
	b.DeliveryStatus = valueobject.DeliveryStatusDelivered
	b.DeliverableVersion = version
	b.DeliveredAt = &now
	b.touch(&actorID, ActionDelivered, old, now)
	return nil
}

func (b *Booking) Approve(actorID uuid.UUID, now time.Time) error {
	if actorID != b.BrandID {
		return apperror.ErrForbidden
	}
	if err := b.checkReviewable(); err != nil {
		return err
	}

	old := b.snapshot()
	b.confirm(now)
	b.touch(&actorID, ActionApproved, old, now)
	return nil
}

// AutoRelease подтверждает работу от имени бренда, если с момента сдачи ничего не изменилось.
func (b *Booking) AutoRelease(expectedVersion int, now time.Time) error {
	if err := b.checkReviewable(); err != nil {
		return err
	}
	if b.DeliverableVersion != expectedVersion {
		return apperror.New(apperror.ErrCodeValidation, "материалы были пересданы, автоподтверждение неактуально")
	}

	old := b.snapshot()
	b.confirm(now)
	b.AutoReleased = true
	b.touch(nil, ActionAutoReleased, old, now)
	return nil
}

func (b *Booking) RequestRevision(actorID uuid.UUID, notes string, now time.Time) error {
	if actorID != b.BrandID {
		return apperror.ErrForbidden
	}
	if err := b.checkReviewable(); err != nil {
		return err
	}
	if b.RevisionCount >= MaxRevisions {
		return apperror.ErrRevisionLimit
	}
	trimmed, err := validation.ValidateText("комментарий к доработке", notes, false, validation.MaxRevisionNotesLength)
	if err != nil {
		return err
	}

	old := b.snapshot()
	b.RevisionCount++
	b.RevisionNotes = &trimmed
	b.DeliveryStatus = valueobject.DeliveryStatusRevisionRequested
	b.touch(&actorID, ActionRevisionRequested, old, now)
	return nil
}

// CompleteByDispute закрывает принятое бронирование после решения администратора.
func (b *Booking) CompleteByDispute(adminID uuid.UUID, now time.Time) bool {
	if !b.Status.CanTransitionTo(valueobject.BookingStatusCompleted) {
		return false
	}
	old := b.snapshot()
	b.Status = valueobject.BookingStatusCompleted
	b.touch(&adminID, ActionCompletedByDispute, old, now)
	return true
}

// PendingHistory отдаёт накопленные записи аудита и очищает буфер.
func (b *Booking) PendingHistory() []BookingEvent {
	events := b.history
	b.history = nil
	return events
}

func (b *Booking) checkReviewable() error {
	if b.Status != valueobject.BookingStatusAccepted || b.DeliveryStatus != valueobject.DeliveryStatusDelivered {
		return apperror.New(apperror.ErrCodeValidation, "работа ещё не сдана на проверку")
	}
	if b.DeliverableVersion == 0 {
		return apperror.ErrNoDeliverables
	}
	return nil
}

func (b *Booking) confirm(now time.Time) {
	b.DeliveryStatus = valueobject.DeliveryStatusConfirmed
	b.PaymentStatus = valueobject.PaymentStatusPaid
	b.ConfirmedAt = &now
}

func (b *Booking) snapshot() map[string]any {
	return map[string]any{
		"status":              string(b.Status),
		"delivery_status":     string(b.DeliveryStatus),
		"payment_status":      string(b.PaymentStatus),
		"revision_count":      b.RevisionCount,
		"deliverable_version": b.DeliverableVersion,
	}
}

func (b *Booking) touch(actorID *uuid.UUID, action string, old map[string]any, now time.Time) {
	b.UpdatedAt = now
	b.record(actorID, action, old, b.snapshot(), now)
}

func (b *Booking) record(actorID *uuid.UUID, action string, old, next map[string]any, now time.Time) {
	b.history = append(b.history, BookingEvent{
		ID:        uuid.New(),
		BookingID: b.ID,
		ActorID:   actorID,
		Action:    action,
		OldValue:  old,
		NewValue:  next,
		CreatedAt: now,
	})
}
