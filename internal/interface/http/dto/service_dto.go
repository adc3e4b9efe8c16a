package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
)

type CreateServiceRequest struct {
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description"`
	PriceCents   int64  `json:"price_cents" binding:"required,gt=0"`
	DeliveryDays int    `json:"delivery_days" binding:"required"`
}

type ServiceResponse struct {
	ID           uuid.UUID `json:"id"`
	CreatorID    uuid.UUID `json:"creator_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	PriceCents   int64     `json:"price_cents"`
	DeliveryDays int       `json:"delivery_days"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

func ToServiceResponse(s *entity.CreatorService) ServiceResponse {
	return ServiceResponse{
		ID:           s.ID,
		CreatorID:    s.CreatorID,
		Title:        s.Title,
		Description:  s.Description,
		PriceCents:   s.Price.Int64(),
		DeliveryDays: s.DeliveryDays,
		IsActive:     s.IsActive,
		CreatedAt:    s.CreatedAt,
	}
}

func ToServiceListResponse(items []*entity.CreatorService) []ServiceResponse {
	out := make([]ServiceResponse, 0, len(items))
	for _, s := range items {
		out = append(out, ToServiceResponse(s))
	}
	return out
}
