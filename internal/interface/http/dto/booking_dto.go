package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
)

type CreateBookingRequest struct {
	ServiceID string  `json:"service_id" binding:"required"`
	Brief     string  `json:"brief"`
	EventDate *string `json:"event_date"`
}

type RevisionRequest struct {
	Notes string `json:"notes" binding:"required"`
}

type BookingResponse struct {
	ID                 uuid.UUID  `json:"id"`
	BrandID            uuid.UUID  `json:"brand_id"`
	CreatorID          uuid.UUID  `json:"creator_id"`
	ServiceID          uuid.UUID  `json:"service_id"`
	ServiceTitle       string     `json:"service_title"`
	Brief              string     `json:"brief"`
	EventDate          *time.Time `json:"event_date"`
	Status             string     `json:"status"`
	DeliveryStatus     *string    `json:"delivery_status"`
	PaymentStatus      string     `json:"payment_status"`
	RevisionCount      int        `json:"revision_count"`
	RevisionNotes      *string    `json:"revision_notes"`
	DeliveryDeadline   *time.Time `json:"delivery_deadline"`
	DeliverableVersion int        `json:"deliverable_version"`
	DeliveredAt        *time.Time `json:"delivered_at"`
	ConfirmedAt        *time.Time `json:"confirmed_at"`
	AutoReleased       bool       `json:"auto_released"`
	TotalPriceCents    int64      `json:"total_price_cents"`
	Version            int        `json:"version"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type BookingEventResponse struct {
	ID        uuid.UUID      `json:"id"`
	ActorID   *uuid.UUID     `json:"actor_id"`
	Action    string         `json:"action"`
	OldValue  map[string]any `json:"old_value"`
	NewValue  map[string]any `json:"new_value"`
	CreatedAt time.Time      `json:"created_at"`
}

// ParseEventDate принимает RFC3339. Пустая строка означает отсутствие даты.
func ParseEventDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "дата события должна быть в формате RFC3339")
	}
	return &t, nil
}

func ToBookingResponse(b *entity.Booking) BookingResponse {
	return BookingResponse{
		ID:                 b.ID,
		BrandID:            b.BrandID,
		CreatorID:          b.CreatorID,
		ServiceID:          b.ServiceID,
		ServiceTitle:       b.ServiceTitle,
		Brief:              b.Brief,
		EventDate:          b.EventDate,
		Status:             string(b.Status),
		DeliveryStatus:     b.DeliveryStatus.Ptr(),
		PaymentStatus:      string(b.PaymentStatus),
		RevisionCount:      b.RevisionCount,
		RevisionNotes:      b.RevisionNotes,
		DeliveryDeadline:   b.DeliveryDeadline,
		DeliverableVersion: b.DeliverableVersion,
		DeliveredAt:        b.DeliveredAt,
		ConfirmedAt:        b.ConfirmedAt,
		AutoReleased:       b.AutoReleased,
		TotalPriceCents:    b.TotalPrice.Int64(),
		Version:            b.Version,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func ToBookingListResponse(bookings []*entity.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, ToBookingResponse(b))
	}
	return out
}

func ToBookingHistoryResponse(events []entity.BookingEvent) []BookingEventResponse {
	out := make([]BookingEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, BookingEventResponse{
			ID:        e.ID,
			ActorID:   e.ActorID,
			Action:    e.Action,
			OldValue:  e.OldValue,
			NewValue:  e.NewValue,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
