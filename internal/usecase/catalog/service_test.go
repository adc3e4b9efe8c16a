package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/livebook-backend/internal/domain/valueobject"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
	"github.com/ignatzorin/livebook-backend/internal/pkg/clock"
	"github.com/ignatzorin/livebook-backend/internal/usecase/catalog"
	"github.com/ignatzorin/livebook-backend/internal/usecase/usecasetest"
)

func TestCreateService(t *testing.T) {
	repo := usecasetest.NewServices()
	uc := catalog.NewCreateServiceUseCase(repo, clock.NewManual(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)))
	creatorID := uuid.New()

	svc, err := uc.Execute(context.Background(), catalog.CreateServiceInput{
		CreatorID:    creatorID,
		Role:         valueobject.RoleCreator,
		Title:        "  Live unboxing ",
		PriceCents:   15000,
		DeliveryDays: 3,
	})

	require.NoError(t, err)
	assert.Equal(t, "Live unboxing", svc.Title)
	assert.True(t, svc.IsActive)

	got, err := catalog.NewGetServiceUseCase(repo).Execute(context.Background(), svc.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.Cents(15000), got.Price)

	list, err := catalog.NewListCreatorServicesUseCase(repo).Execute(context.Background(), creatorID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateService_Validation(t *testing.T) {
	uc := catalog.NewCreateServiceUseCase(usecasetest.NewServices(), clock.System{})

	tests := []struct {
		name  string
		input catalog.CreateServiceInput
		check func(error) bool
	}{
		{"brand cannot create", catalog.CreateServiceInput{Role: valueobject.RoleBrand, Title: "x", PriceCents: 100, DeliveryDays: 1}, apperror.IsForbidden},
		{"empty title", catalog.CreateServiceInput{Role: valueobject.RoleCreator, PriceCents: 100, DeliveryDays: 1}, apperror.IsValidation},
		{"zero price", catalog.CreateServiceInput{Role: valueobject.RoleCreator, Title: "x", DeliveryDays: 1}, apperror.IsValidation},
		{"negative price", catalog.CreateServiceInput{Role: valueobject.RoleCreator, Title: "x", PriceCents: -1, DeliveryDays: 1}, apperror.IsValidation},
		{"delivery days too long", catalog.CreateServiceInput{Role: valueobject.RoleCreator, Title: "x", PriceCents: 100, DeliveryDays: 91}, apperror.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.input.CreatorID = uuid.New()
			_, err := uc.Execute(context.Background(), tt.input)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}

func TestGetService_NotFound(t *testing.T) {
	_, err := catalog.NewGetServiceUseCase(usecasetest.NewServices()).Execute(context.Background(), uuid.New())

	assert.True(t, apperror.IsNotFound(err))
}
