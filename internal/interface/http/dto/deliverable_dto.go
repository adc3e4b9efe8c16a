package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
)

type DeliverableResponse struct {
	ID          uuid.UUID `json:"id"`
	BookingID   uuid.UUID `json:"booking_id"`
	Version     int       `json:"version"`
	FileName    string    `json:"file_name"`
	MimeType    string    `json:"mime_type"`
	SizeBytes   int64     `json:"size_bytes"`
	StorageKey  string    `json:"storage_key"`
	Description *string   `json:"description"`
	Notes       *string   `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
}

type SubmitDeliverablesResponse struct {
	Booking BookingResponse       `json:"booking"`
	Version int                   `json:"version"`
	Files   []DeliverableResponse `json:"files"`
}

func ToDeliverableListResponse(items []entity.Deliverable) []DeliverableResponse {
	out := make([]DeliverableResponse, 0, len(items))
	for _, d := range items {
		out = append(out, DeliverableResponse{
			ID:          d.ID,
			BookingID:   d.BookingID,
			Version:     d.Version,
			FileName:    d.FileName,
			MimeType:    d.MimeType,
			SizeBytes:   d.SizeBytes,
			StorageKey:  d.StorageKey,
			Description: d.Description,
			Notes:       d.Notes,
			CreatedAt:   d.CreatedAt,
		})
	}
	return out
}
