package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
	"github.com/ignatzorin/livebook-backend/internal/domain/repository"
	"github.com/ignatzorin/livebook-backend/internal/domain/valueobject"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
	"github.com/ignatzorin/livebook-backend/internal/pkg/clock"
)

type CreateServiceInput struct {
	CreatorID    uuid.UUID
	Role         valueobject.PartyRole
	Title        string
	Description  string
	PriceCents   int64
	DeliveryDays int
}

type CreateServiceUseCase struct {
	serviceRepo repository.CreatorServiceRepository
	clock       clock.Clock
}

func NewCreateServiceUseCase(serviceRepo repository.CreatorServiceRepository, clk clock.Clock) *CreateServiceUseCase {
	return &CreateServiceUseCase{serviceRepo: serviceRepo, clock: clk}
}

func (uc *CreateServiceUseCase) Execute(ctx context.Context, input CreateServiceInput) (*entity.CreatorService, error) {
	if input.Role != valueobject.RoleCreator {
		return nil, apperror.New(apperror.ErrCodeForbidden, "услуги могут создавать только креаторы")
	}

	service, err := entity.NewCreatorService(input.CreatorID, input.Title, input.Description, input.PriceCents, input.DeliveryDays, uc.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := uc.serviceRepo.Create(ctx, service); err != nil {
		return nil, err
	}
	return service, nil
}

type GetServiceUseCase struct {
	serviceRepo repository.CreatorServiceRepository
}

func NewGetServiceUseCase(serviceRepo repository.CreatorServiceRepository) *GetServiceUseCase {
	return &GetServiceUseCase{serviceRepo: serviceRepo}
}

func (uc *GetServiceUseCase) Execute(ctx context.Context, id uuid.UUID) (*entity.CreatorService, error) {
	return uc.serviceRepo.FindByID(ctx, id)
}

// ListCreatorServicesUseCase - публичная витрина креатора, только активные услуги.
type ListCreatorServicesUseCase struct {
	serviceRepo repository.CreatorServiceRepository
}

func NewListCreatorServicesUseCase(serviceRepo repository.CreatorServiceRepository) *ListCreatorServicesUseCase {
	return &ListCreatorServicesUseCase{serviceRepo: serviceRepo}
}

func (uc *ListCreatorServicesUseCase) Execute(ctx context.Context, creatorID uuid.UUID) ([]*entity.CreatorService, error) {
	return uc.serviceRepo.ListByCreator(ctx, creatorID, true)
}
