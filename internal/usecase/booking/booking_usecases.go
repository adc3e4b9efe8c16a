package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
	"github.com/ignatzorin/livebook-backend/internal/domain/repository"
	"github.com/ignatzorin/livebook-backend/internal/domain/valueobject"
	"github.com/ignatzorin/livebook-backend/internal/metrics"
	"github.com/ignatzorin/livebook-backend/internal/notify"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
	"github.com/ignatzorin/livebook-backend/internal/pkg/clock"
)

type CreateBookingInput struct {
	BrandID   uuid.UUID
	ServiceID uuid.UUID
	Brief     string
	EventDate *time.Time
}

type CreateBookingUseCase struct {
	bookingRepo repository.BookingRepository
	serviceRepo repository.CreatorServiceRepository
	notifier    notify.Notifier
	clock       clock.Clock
}

func NewCreateBookingUseCase(
	bookingRepo repository.BookingRepository,
	serviceRepo repository.CreatorServiceRepository,
	notifier notify.Notifier,
	clk clock.Clock,
) *CreateBookingUseCase {
	return &CreateBookingUseCase{
		bookingRepo: bookingRepo,
		serviceRepo: serviceRepo,
		notifier:    notifier,
		clock:       clk,
	}
}

func (uc *CreateBookingUseCase) Execute(ctx context.Context, input CreateBookingInput) (*entity.Booking, error) {
	service, err := uc.serviceRepo.FindByID(ctx, input.ServiceID)
	if err != nil {
		return nil, err
	}

	b, err := entity.NewBooking(input.BrandID, service, input.Brief, input.EventDate, uc.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := uc.bookingRepo.Create(ctx, b); err != nil {
		return nil, err
	}
	metrics.ObserveTransition(entity.ActionCreated)

	uc.notifier.Notify(ctx, notify.NewBooking{
		BookingRef:   notify.RefOf(b),
		ServiceTitle: b.ServiceTitle,
		AmountCents:  b.TotalPrice.Int64(),
		EventDate:    b.EventDate,
	})
	return b, nil
}

type GetBookingUseCase struct {
	bookingRepo repository.BookingRepository
}

func NewGetBookingUseCase(bookingRepo repository.BookingRepository) *GetBookingUseCase {
	return &GetBookingUseCase{bookingRepo: bookingRepo}
}

func (uc *GetBookingUseCase) Execute(ctx context.Context, bookingID, userID uuid.UUID, role valueobject.PartyRole) (*entity.Booking, error) {
	return LoadVisible(ctx, uc.bookingRepo, bookingID, userID, role)
}

// LoadVisible загружает бронирование, если пользователь может его видеть.
func LoadVisible(ctx context.Context, repo repository.BookingRepository, bookingID, userID uuid.UUID, role valueobject.PartyRole) (*entity.Booking, error) {
	b, err := repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.CanView(userID, role) {
		return nil, apperror.ErrForbidden
	}
	return b, nil
}

type ListMyBookingsUseCase struct {
	bookingRepo repository.BookingRepository
}

func NewListMyBookingsUseCase(bookingRepo repository.BookingRepository) *ListMyBookingsUseCase {
	return &ListMyBookingsUseCase{bookingRepo: bookingRepo}
}

func (uc *ListMyBookingsUseCase) Execute(ctx context.Context, filter repository.BookingFilter) ([]*entity.Booking, int, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Status != "" {
		if _, err := valueobject.NewBookingStatus(filter.Status); err != nil {
			return nil, 0, err
		}
	}
	return uc.bookingRepo.ListByParty(ctx, filter)
}

type BookingHistoryUseCase struct {
	bookingRepo repository.BookingRepository
}

func NewBookingHistoryUseCase(bookingRepo repository.BookingRepository) *BookingHistoryUseCase {
	return &BookingHistoryUseCase{bookingRepo: bookingRepo}
}

func (uc *BookingHistoryUseCase) Execute(ctx context.Context, bookingID, userID uuid.UUID, role valueobject.PartyRole) ([]entity.BookingEvent, error) {
	if _, err := LoadVisible(ctx, uc.bookingRepo, bookingID, userID, role); err != nil {
		return nil, err
	}
	return uc.bookingRepo.History(ctx, bookingID)
}
