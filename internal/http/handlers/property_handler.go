package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ertargyn/realty-backend/internal/dto"
	"github.com/ertargyn/realty-backend/internal/http/handlers/common"
	"github.com/ertargyn/realty-backend/internal/repository"
	"github.com/ertargyn/realty-backend/internal/service"
)

// PropertyHandler обслуживает маршруты объектов недвижимости.
type PropertyHandler struct {
	properties *service.PropertyService
}

// NewPropertyHandler создаёт хэндлер.
func NewPropertyHandler(properties *service.PropertyService) *PropertyHandler {
	return &PropertyHandler{properties: properties}
}

// List обрабатывает GET /properties.
func (h *PropertyHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	params := repository.PropertyListParams{
		City:     c.Query("city"),
		DealType: c.Query("deal_type"),
		Status:   c.DefaultQuery("status", "available"),
		Limit:    limit,
		Offset:   offset,
	}

	properties, err := h.properties.ListProperties(c.Request.Context(), params)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, properties)
}

// ListMine обрабатывает GET /properties/my.
func (h *PropertyHandler) ListMine(c *gin.Context) {
	auth, err := common.CurrentAuth(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	properties, err := h.properties.ListMyProperties(c.Request.Context(), auth)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, properties)
}

// Get обрабатывает GET /properties/:id.
func (h *PropertyHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	property, err := h.properties.GetProperty(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, property)
}

// Create обрабатывает POST /properties.
func (h *PropertyHandler) Create(c *gin.Context) {
	auth, err := common.CurrentAuth(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req dto.PropertyRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	property, err := h.properties.CreateProperty(c.Request.Context(), auth, propertyInput(req))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, property)
}

// Update обрабатывает PUT /properties/:id.
func (h *PropertyHandler) Update(c *gin.Context) {
	auth, err := common.CurrentAuth(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.PropertyRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	property, err := h.properties.UpdateProperty(c.Request.Context(), auth, id, propertyInput(req))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, property)
}

// SetStatus обрабатывает PATCH /properties/:id/status.
func (h *PropertyHandler) SetStatus(c *gin.Context) {
	auth, err := common.CurrentAuth(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.PropertyStatusRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	property, err := h.properties.SetStatus(c.Request.Context(), auth, id, req.Status)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, property)
}

// UploadPhoto обрабатывает POST /properties/:id/photos.
func (h *PropertyHandler) UploadPhoto(c *gin.Context) {
	auth, err := common.CurrentAuth(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		common.RespondBadRequest(c, "файл photo обязателен")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.RespondBadRequest(c, "не удалось открыть файл")
		return
	}
	defer file.Close()

	photo, err := h.properties.AddPhoto(c.Request.Context(), auth, id, file, fileHeader)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, photo)
}

func propertyInput(req dto.PropertyRequest) service.PropertyInput {
	return service.PropertyInput{
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		City:        req.City,
		DealType:    req.DealType,
		Price:       req.Price,
		Rooms:       req.Rooms,
		Area:        req.Area,
	}
}
