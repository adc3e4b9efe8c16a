package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/livebook-backend/internal/domain/repository"
	"github.com/ignatzorin/livebook-backend/internal/domain/valueobject"
	"github.com/ignatzorin/livebook-backend/internal/interface/http/dto"
	"github.com/ignatzorin/livebook-backend/internal/interface/http/response"
	"github.com/ignatzorin/livebook-backend/internal/usecase/dispute"
)

type DisputeHandler struct {
	openUC      *dispute.OpenDisputeUseCase
	respondUC   *dispute.RespondDisputeUseCase
	getUC       *dispute.GetDisputeUseCase
	byBookingUC *dispute.GetByBookingUseCase
}

func NewDisputeHandler(
	openUC *dispute.OpenDisputeUseCase,
	respondUC *dispute.RespondDisputeUseCase,
	getUC *dispute.GetDisputeUseCase,
	byBookingUC *dispute.GetByBookingUseCase,
) *DisputeHandler {
	return &DisputeHandler{
		openUC:      openUC,
		respondUC:   respondUC,
		getUC:       getUC,
		byBookingUC: byBookingUC,
	}
}

func (h *DisputeHandler) Open(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id", "некорректный ID бронирования")
	if !ok {
		return
	}

	var req dto.OpenDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "укажите причину спора и свою роль")
		return
	}
	role, err := valueobject.NewPartyRole(req.OpenerRole)
	if err != nil {
		response.Error(c, err)
		return
	}

	d, err := h.openUC.Execute(c.Request.Context(), dispute.OpenInput{
		BookingID:  bookingID,
		OpenerID:   userID,
		OpenerRole: role,
		Reason:     req.Reason,
		Evidence:   req.Evidence,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToDisputeResponse(d))
}

func (h *DisputeHandler) GetByBooking(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id", "некорректный ID бронирования")
	if !ok {
		return
	}

	d, err := h.byBookingUC.Execute(c.Request.Context(), bookingID, userID, role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToDisputeResponse(d))
}

func (h *DisputeHandler) Get(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}
	disputeID, ok := pathID(c, "id", "некорректный ID спора")
	if !ok {
		return
	}

	d, err := h.getUC.Execute(c.Request.Context(), disputeID, userID, role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToDisputeResponse(d))
}

func (h *DisputeHandler) Respond(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	disputeID, ok := pathID(c, "id", "некорректный ID спора")
	if !ok {
		return
	}

	var req dto.RespondDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "ответ не может быть пустым")
		return
	}

	d, err := h.respondUC.Execute(c.Request.Context(), dispute.RespondInput{
		DisputeID:   disputeID,
		ResponderID: userID,
		Response:    req.Response,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToDisputeResponse(d))
}

// AdminDisputeHandler - очередь споров для администраторов.
type AdminDisputeHandler struct {
	listUC     *dispute.ListForAdminUseCase
	escalateUC *dispute.EscalateDisputeUseCase
	resolveUC  *dispute.ResolveDisputeUseCase
}

func NewAdminDisputeHandler(
	listUC *dispute.ListForAdminUseCase,
	escalateUC *dispute.EscalateDisputeUseCase,
	resolveUC *dispute.ResolveDisputeUseCase,
) *AdminDisputeHandler {
	return &AdminDisputeHandler{listUC: listUC, escalateUC: escalateUC, resolveUC: resolveUC}
}

func (h *AdminDisputeHandler) List(c *gin.Context) {
	filter := repository.DisputeFilter{
		Status: c.Query("status"),
		Limit:  parseIntQuery(c, "limit", 20),
		Offset: parseIntQuery(c, "offset", 0),
	}
	items, total, err := h.listUC.Execute(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.ToDisputeListResponse(items), total, clampLimit(filter.Limit), max(filter.Offset, 0))
}

func (h *AdminDisputeHandler) Escalate(c *gin.Context) {
	disputeID, ok := pathID(c, "id", "некорректный ID спора")
	if !ok {
		return
	}

	d, err := h.escalateUC.Execute(c.Request.Context(), disputeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToDisputeResponse(d))
}

func (h *AdminDisputeHandler) Resolve(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}
	disputeID, ok := pathID(c, "id", "некорректный ID спора")
	if !ok {
		return
	}

	var req dto.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "укажите обоснование и процент возврата")
		return
	}

	d, err := h.resolveUC.Execute(c.Request.Context(), dispute.ResolveInput{
		DisputeID:        disputeID,
		AdminID:          userID,
		Role:             role,
		Reason:           req.Reason,
		RefundPercentage: *req.RefundPercentage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToDisputeResponse(d))
}
