package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
	"github.com/ignatzorin/livebook-backend/internal/domain/repository"
	"github.com/ignatzorin/livebook-backend/internal/interface/http/dto"
	"github.com/ignatzorin/livebook-backend/internal/interface/http/response"
	"github.com/ignatzorin/livebook-backend/internal/usecase/booking"
)

type BookingHandler struct {
	createUC   *booking.CreateBookingUseCase
	getUC      *booking.GetBookingUseCase
	listMyUC   *booking.ListMyBookingsUseCase
	historyUC  *booking.BookingHistoryUseCase
	acceptUC   *booking.AcceptBookingUseCase
	declineUC  *booking.DeclineBookingUseCase
	cancelUC   *booking.CancelBookingUseCase
	approveUC  *booking.ApproveDeliveryUseCase
	revisionUC *booking.RequestRevisionUseCase
}

// BookingUseCases - набор сценариев для NewBookingHandler.
type BookingUseCases struct {
	Create   *booking.CreateBookingUseCase
	Get      *booking.GetBookingUseCase
	ListMy   *booking.ListMyBookingsUseCase
	History  *booking.BookingHistoryUseCase
	Accept   *booking.AcceptBookingUseCase
	Decline  *booking.DeclineBookingUseCase
	Cancel   *booking.CancelBookingUseCase
	Approve  *booking.ApproveDeliveryUseCase
	Revision *booking.RequestRevisionUseCase
}

func NewBookingHandler(uc BookingUseCases) *BookingHandler {
	return &BookingHandler{
		createUC:   uc.Create,
		getUC:      uc.Get,
		listMyUC:   uc.ListMy,
		historyUC:  uc.History,
		acceptUC:   uc.Accept,
		declineUC:  uc.Decline,
		cancelUC:   uc.Cancel,
		approveUC:  uc.Approve,
		revisionUC: uc.Revision,
	}
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}
	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		response.BadRequest(c, "некорректный ID услуги")
		return
	}
	eventDate, err := dto.ParseEventDate(req.EventDate)
	if err != nil {
		response.Error(c, err)
		return
	}

	b, err := h.createUC.Execute(c.Request.Context(), booking.CreateBookingInput{
		BrandID:   userID,
		ServiceID: serviceID,
		Brief:     req.Brief,
		EventDate: eventDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	setETag(c, b)
	response.Created(c, dto.ToBookingResponse(b))
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id", "некорректный ID бронирования")
	if !ok {
		return
	}

	b, err := h.getUC.Execute(c.Request.Context(), bookingID, userID, role)
	if err != nil {
		response.Error(c, err)
		return
	}

	setETag(c, b)
	response.Success(c, dto.ToBookingResponse(b))
}

func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	filter := repository.BookingFilter{
		UserID: userID,
		Role:   string(role),
		Status: c.Query("status"),
		Limit:  parseIntQuery(c, "limit", 20),
		Offset: parseIntQuery(c, "offset", 0),
	}
	items, total, err := h.listMyUC.Execute(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToBookingListResponse(items), total, clampLimit(filter.Limit), max(filter.Offset, 0))
}

func (h *BookingHandler) GetHistory(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id", "некорректный ID бронирования")
	if !ok {
		return
	}

	events, err := h.historyUC.Execute(c.Request.Context(), bookingID, userID, role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToBookingHistoryResponse(events))
}

func (h *BookingHandler) Accept(c *gin.Context) {
	h.transition(c, h.acceptUC.Execute)
}

func (h *BookingHandler) Decline(c *gin.Context) {
	h.transition(c, h.declineUC.Execute)
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	h.transition(c, h.cancelUC.Execute)
}

func (h *BookingHandler) Approve(c *gin.Context) {
	h.transition(c, h.approveUC.Execute)
}

func (h *BookingHandler) RequestRevision(c *gin.Context) {
	var req dto.RevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "укажите, что нужно доработать")
		return
	}
	h.transition(c, func(ctx context.Context, input booking.TransitionInput) (*entity.Booking, error) {
		return h.revisionUC.Execute(ctx, booking.RequestRevisionInput{TransitionInput: input, Notes: req.Notes})
	})
}

// transition - общий путь для действий без тела: id из пути, версия из If-Match.
func (h *BookingHandler) transition(c *gin.Context, exec func(context.Context, booking.TransitionInput) (*entity.Booking, error)) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id", "некорректный ID бронирования")
	if !ok {
		return
	}
	version, ok := expectedVersion(c)
	if !ok {
		return
	}

	b, err := exec(c.Request.Context(), booking.TransitionInput{
		BookingID:       bookingID,
		ActorID:         userID,
		ExpectedVersion: version,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	setETag(c, b)
	response.Success(c, dto.ToBookingResponse(b))
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}
