package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/livebook-backend/internal/domain/valueobject"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
	"github.com/ignatzorin/livebook-backend/internal/validation"
)

const (
	MinDeliveryDays = 1
	MaxDeliveryDays = 90
)

// CreatorService - услуга креатора, которую бренд может забронировать.
type CreatorService struct {
	ID           uuid.UUID
	CreatorID    uuid.UUID
	Title        string
	Description  string
	Price        valueobject.Cents
	DeliveryDays int
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewCreatorService(creatorID uuid.UUID, title, description string, priceCents int64, deliveryDays int, now time.Time) (*CreatorService, error) {
	title, err := validation.ValidateText("название услуги", title, true, validation.MaxServiceTitleLength)
	if err != nil {
		return nil, err
	}
	description, err = validation.ValidateText("описание услуги", description, false, validation.MaxServiceDescriptionLength)
	if err != nil {
		return nil, err
	}
	price, err := valueobject.NewCents(priceCents)
	if err != nil {
		return nil, err
	}
	if price == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "стоимость услуги должна быть больше нуля")
	}
	if deliveryDays < MinDeliveryDays || deliveryDays > MaxDeliveryDays {
		return nil, apperror.New(apperror.ErrCodeValidation, "срок сдачи должен быть от 1 до 90 дней")
	}

	return &CreatorService{
		ID:           uuid.New(),
		CreatorID:    creatorID,
		Title:        title,
		Description:  description,
		Price:        price,
		DeliveryDays: deliveryDays,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Party - контактные данные участника для уведомлений.
type Party struct {
	ID          uuid.UUID `db:"id"`
	Email       string    `db:"email"`
	DisplayName string    `db:"display_name"`
	Role        string    `db:"role"`
}
