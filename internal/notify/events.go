package notify

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
	"github.com/ignatzorin/livebook-backend/internal/domain/valueobject"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
)

// Type - тип письма. Набор закрыт: неизвестные типы отклоняются до отправки.
type Type string

const (
	TypeCreatorNewBooking          Type = "creator_new_booking"
	TypeBrandBookingAccepted       Type = "brand_booking_accepted"
	TypeBrandBookingDeclined       Type = "brand_booking_declined"
	TypeCreatorBookingCancelled    Type = "creator_booking_cancelled"
	TypeBrandDeliverablesSubmitted Type = "brand_deliverables_submitted"
	TypeCreatorRevisionRequested   Type = "creator_revision_requested"
	TypeCreatorDeliveryConfirmed   Type = "creator_delivery_confirmed"
	TypeCreatorDisputeOpened       Type = "creator_dispute_opened"
	TypeBrandDisputeOpened         Type = "brand_dispute_opened"
	TypeDisputeResponseReceived    Type = "dispute_response_received"
	TypeAdminDisputeEscalated      Type = "admin_dispute_escalated"
	TypeAdminDisputeOverdue        Type = "admin_dispute_overdue"
	TypeBrandDisputeResolved       Type = "brand_dispute_resolved"
	TypeCreatorDisputeResolved     Type = "creator_dispute_resolved"
)

// Audience - получатель события: конкретный участник или все администраторы.
type Audience struct {
	UserID uuid.UUID
	Admins bool
}

// Event - одно типизированное событие для рассылки.
type Event interface {
	Type() Type
	Booking() uuid.UUID
	Parties() BookingRef
	Audience() Audience
	Fields() map[string]any
	Validate() error
}

// BookingRef - бронирование и его стороны, по ним диспетчер подставляет имена.
type BookingRef struct {
	BookingID uuid.UUID
	BrandID   uuid.UUID
	CreatorID uuid.UUID
}

func RefOf(b *entity.Booking) BookingRef {
	return BookingRef{BookingID: b.ID, BrandID: b.BrandID, CreatorID: b.CreatorID}
}

func (p BookingRef) Booking() uuid.UUID  { return p.BookingID }
func (p BookingRef) Parties() BookingRef { return p }

func (p BookingRef) validate() error {
	if p.BookingID == uuid.Nil || p.BrandID == uuid.Nil || p.CreatorID == uuid.Nil {
		return invalid("не указаны бронирование или его стороны")
	}
	return nil
}

func (p BookingRef) roleID(role valueobject.PartyRole) uuid.UUID {
	if role == valueobject.RoleBrand {
		return p.BrandID
	}
	return p.CreatorID
}

type NewBooking struct {
	BookingRef
	ServiceTitle string
	AmountCents  int64
	EventDate    *time.Time
}

func (NewBooking) Type() Type           { return TypeCreatorNewBooking }
func (e NewBooking) Audience() Audience { return Audience{UserID: e.CreatorID} }
func (e NewBooking) Validate() error {
	if err := e.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.ServiceTitle) == "" {
		return invalid("service_title обязателен")
	}
	return nonNegative(e.AmountCents)
}
func (e NewBooking) Fields() map[string]any {
	return map[string]any{
		"service_title": e.ServiceTitle,
		"amount_cents":  e.AmountCents,
		"event_date":    isoPtr(e.EventDate),
	}
}

type BookingAccepted struct {
	BookingRef
	DeliveryDeadline time.Time
}

func (BookingAccepted) Type() Type           { return TypeBrandBookingAccepted }
func (e BookingAccepted) Audience() Audience { return Audience{UserID: e.BrandID} }
func (e BookingAccepted) Validate() error {
	if err := e.validate(); err != nil {
		return err
	}
	if e.DeliveryDeadline.IsZero() {
		return invalid("delivery_deadline обязателен")
	}
	return nil
}
func (e BookingAccepted) Fields() map[string]any {
	return map[string]any{"delivery_deadline": iso(e.DeliveryDeadline)}
}

type BookingDeclined struct {
	BookingRef
}

func (BookingDeclined) Type() Type               { return TypeBrandBookingDeclined }
func (e BookingDeclined) Audience() Audience     { return Audience{UserID: e.BrandID} }
func (e BookingDeclined) Validate() error        { return e.validate() }
func (e BookingDeclined) Fields() map[string]any { return map[string]any{} }

type BookingCancelled struct {
	BookingRef
}

func (BookingCancelled) Type() Type               { return TypeCreatorBookingCancelled }
func (e BookingCancelled) Audience() Audience     { return Audience{UserID: e.CreatorID} }
func (e BookingCancelled) Validate() error        { return e.validate() }
func (e BookingCancelled) Fields() map[string]any { return map[string]any{} }

type DeliverablesSubmitted struct {
	BookingRef
	Version     int
	FileCount   int
	SubmittedAt time.Time
}

func (DeliverablesSubmitted) Type() Type           { return TypeBrandDeliverablesSubmitted }
func (e DeliverablesSubmitted) Audience() Audience { return Audience{UserID: e.BrandID} }
func (e DeliverablesSubmitted) Validate() error {
	if err := e.validate(); err != nil {
		return err
	}
	if e.Version < 1 || e.FileCount < 1 {
		return invalid("version и file_count должны быть положительными")
	}
	return nil
}
func (e DeliverablesSubmitted) Fields() map[string]any {
	return map[string]any{
		"version":      e.Version,
		"file_count":   e.FileCount,
		"submitted_at": iso(e.SubmittedAt),
	}
}

type RevisionRequested struct {
	BookingRef
	RevisionCount int
	Notes         string
}

func (RevisionRequested) Type() Type           { return TypeCreatorRevisionRequested }
func (e RevisionRequested) Audience() Audience { return Audience{UserID: e.CreatorID} }
func (e RevisionRequested) Validate() error {
	if err := e.validate(); err != nil {
		return err
	}
	if e.RevisionCount < 1 {
		return invalid("revision_count должен быть положительным")
	}
	return nil
}
func (e RevisionRequested) Fields() map[string]any {
	return map[string]any{
		"revision_count": e.RevisionCount,
		"revision_notes": e.Notes,
	}
}

// DeliveryConfirmed - оплата освобождена креатору.
type DeliveryConfirmed struct {
	BookingRef
	AmountCents  int64
	ConfirmedAt  time.Time
	AutoReleased bool
}

func (DeliveryConfirmed) Type() Type           { return TypeCreatorDeliveryConfirmed }
func (e DeliveryConfirmed) Audience() Audience { return Audience{UserID: e.CreatorID} }
func (e DeliveryConfirmed) Validate() error {
	if err := e.validate(); err != nil {
		return err
	}
	if e.ConfirmedAt.IsZero() {
		return invalid("confirmed_at обязателен")
	}
	return nonNegative(e.AmountCents)
}
func (e DeliveryConfirmed) Fields() map[string]any {
	return map[string]any{
		"amount_cents":  e.AmountCents,
		"confirmed_at":  iso(e.ConfirmedAt),
		"auto_released": e.AutoReleased,
	}
}

// DisputeOpened уходит второй стороне. Тип письма зависит от её роли.
type DisputeOpened struct {
	BookingRef
	DisputeID        uuid.UUID
	RecipientRole    valueobject.PartyRole
	Reason           string
	ResponseDeadline time.Time
}

func (e DisputeOpened) Type() Type {
	if e.RecipientRole == valueobject.RoleBrand {
		return TypeBrandDisputeOpened
	}
	return TypeCreatorDisputeOpened
}
func (e DisputeOpened) Audience() Audience { return Audience{UserID: e.roleID(e.RecipientRole)} }
func (e DisputeOpened) Validate() error {
	if err := e.validate(); err != nil {
		return err
	}
	if err := validParty(e.RecipientRole); err != nil {
		return err
	}
	if e.DisputeID == uuid.Nil || e.ResponseDeadline.IsZero() {
		return invalid("dispute_id и response_deadline обязательны")
	}
	return nil
}
func (e DisputeOpened) Fields() map[string]any {
	return map[string]any{
		"dispute_id":        e.DisputeID.String(),
		"reason":            e.Reason,
		"response_deadline": iso(e.ResponseDeadline),
	}
}

type DisputeResponseReceived struct {
	BookingRef
	DisputeID   uuid.UUID
	OpenerID    uuid.UUID
	RespondedAt time.Time
}

func (DisputeResponseReceived) Type() Type           { return TypeDisputeResponseReceived }
func (e DisputeResponseReceived) Audience() Audience { return Audience{UserID: e.OpenerID} }
func (e DisputeResponseReceived) Validate() error {
	if err := e.validate(); err != nil {
		return err
	}
	if e.DisputeID == uuid.Nil || e.OpenerID == uuid.Nil {
		return invalid("dispute_id и opener обязательны")
	}
	return nil
}
func (e DisputeResponseReceived) Fields() map[string]any {
	return map[string]any{
		"dispute_id":   e.DisputeID.String(),
		"responded_at": iso(e.RespondedAt),
	}
}

type DisputeEscalated struct {
	BookingRef
	DisputeID          uuid.UUID
	Reason             string
	ResolutionDeadline time.Time
}

func (DisputeEscalated) Type() Type         { return TypeAdminDisputeEscalated }
func (DisputeEscalated) Audience() Audience { return Audience{Admins: true} }
func (e DisputeEscalated) Validate() error {
	if err := e.validate(); err != nil {
		return err
	}
	if e.DisputeID == uuid.Nil || e.ResolutionDeadline.IsZero() {
		return invalid("dispute_id и resolution_deadline обязательны")
	}
	return nil
}
func (e DisputeEscalated) Fields() map[string]any {
	return map[string]any{
		"dispute_id":          e.DisputeID.String(),
		"reason":              e.Reason,
		"resolution_deadline": iso(e.ResolutionDeadline),
	}
}

type DisputeOverdue struct {
	BookingRef
	DisputeID          uuid.UUID
	ResolutionDeadline time.Time
}

func (DisputeOverdue) Type() Type         { return TypeAdminDisputeOverdue }
func (DisputeOverdue) Audience() Audience { return Audience{Admins: true} }
func (e DisputeOverdue) Validate() error {
	if err := e.validate(); err != nil {
		return err
	}
	if e.DisputeID == uuid.Nil || e.ResolutionDeadline.IsZero() {
		return invalid("dispute_id и resolution_deadline обязательны")
	}
	return nil
}
func (e DisputeOverdue) Fields() map[string]any {
	return map[string]any{
		"dispute_id":          e.DisputeID.String(),
		"resolution_deadline": iso(e.ResolutionDeadline),
	}
}

// DisputeResolved отправляется каждой стороне отдельно.
type DisputeResolved struct {
	BookingRef
	DisputeID        uuid.UUID
	RecipientRole    valueobject.PartyRole
	RefundPercentage int
	RefundCents      int64
	DecisionReason   string
	ResolvedAt       time.Time
}

func (e DisputeResolved) Type() Type {
	if e.RecipientRole == valueobject.RoleBrand {
		return TypeBrandDisputeResolved
	}
	return TypeCreatorDisputeResolved
}
func (e DisputeResolved) Audience() Audience { return Audience{UserID: e.roleID(e.RecipientRole)} }
func (e DisputeResolved) Validate() error {
	if err := e.validate(); err != nil {
		return err
	}
	if err := validParty(e.RecipientRole); err != nil {
		return err
	}
	if _, err := valueobject.NewRefundPercentage(e.RefundPercentage); err != nil {
		return err
	}
	if e.DisputeID == uuid.Nil {
		return invalid("dispute_id обязателен")
	}
	return nonNegative(e.RefundCents)
}
func (e DisputeResolved) Fields() map[string]any {
	return map[string]any{
		"dispute_id":        e.DisputeID.String(),
		"refund_percentage": e.RefundPercentage,
		"refund_cents":      e.RefundCents,
		"decision_reason":   e.DecisionReason,
		"resolved_at":       iso(e.ResolvedAt),
	}
}

func validParty(role valueobject.PartyRole) error {
	if role != valueobject.RoleBrand && role != valueobject.RoleCreator {
		return invalid("получатель должен быть брендом или креатором")
	}
	return nil
}

func nonNegative(cents int64) error {
	if cents < 0 {
		return invalid("сумма не может быть отрицательной")
	}
	return nil
}

func invalid(msg string) error {
	return apperror.New(apperror.ErrCodeValidation, "уведомление: "+msg)
}

func iso(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func isoPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return iso(*t)
}
