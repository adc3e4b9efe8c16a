package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/livebook-backend/internal/interface/http/dto"
	"github.com/ignatzorin/livebook-backend/internal/interface/http/response"
	"github.com/ignatzorin/livebook-backend/internal/usecase/catalog"
)

type CatalogHandler struct {
	createUC *catalog.CreateServiceUseCase
	getUC    *catalog.GetServiceUseCase
	listUC   *catalog.ListCreatorServicesUseCase
}

func NewCatalogHandler(createUC *catalog.CreateServiceUseCase, getUC *catalog.GetServiceUseCase, listUC *catalog.ListCreatorServicesUseCase) *CatalogHandler {
	return &CatalogHandler{createUC: createUC, getUC: getUC, listUC: listUC}
}

func (h *CatalogHandler) CreateService(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	svc, err := h.createUC.Execute(c.Request.Context(), catalog.CreateServiceInput{
		CreatorID:    userID,
		Role:         role,
		Title:        req.Title,
		Description:  req.Description,
		PriceCents:   req.PriceCents,
		DeliveryDays: req.DeliveryDays,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToServiceResponse(svc))
}

func (h *CatalogHandler) GetService(c *gin.Context) {
	serviceID, ok := pathID(c, "id", "некорректный ID услуги")
	if !ok {
		return
	}

	svc, err := h.getUC.Execute(c.Request.Context(), serviceID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToServiceResponse(svc))
}

func (h *CatalogHandler) ListCreatorServices(c *gin.Context) {
	creatorID, ok := pathID(c, "id", "некорректный ID креатора")
	if !ok {
		return
	}

	items, err := h.listUC.Execute(c.Request.Context(), creatorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToServiceListResponse(items))
}
