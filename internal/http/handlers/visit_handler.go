package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ertargyn/realty-backend/internal/dto"
	"github.com/ertargyn/realty-backend/internal/http/handlers/common"
	"github.com/ertargyn/realty-backend/internal/models"
	"github.com/ertargyn/realty-backend/internal/service"
)

// VisitHandler обслуживает маршруты заявок на просмотр.
type VisitHandler struct {
	visits *service.VisitService
}

// NewVisitHandler создаёт хэндлер.
func NewVisitHandler(visits *service.VisitService) *VisitHandler {
	return &VisitHandler{visits: visits}
}

// Request обрабатывает POST /visits.
func (h *VisitHandler) Request(c *gin.Context) {
	auth, err := common.CurrentAuth(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req dto.VisitRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	visit, err := h.visits.RequestVisit(c.Request.Context(), auth, service.RequestVisitInput{
		PropertyID:  req.PropertyID,
		RequestedAt: req.RequestedAt,
		Message:     req.Message,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, visit)
}

// ListMine обрабатывает GET /visits/my.
func (h *VisitHandler) ListMine(c *gin.Context) {
	auth, err := common.CurrentAuth(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	visits, err := h.visits.ListMyVisits(c.Request.Context(), auth)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, visits)
}

// ListOwner обрабатывает GET /visits/owner.
func (h *VisitHandler) ListOwner(c *gin.Context) {
	auth, err := common.CurrentAuth(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	visits, err := h.visits.ListOwnerVisits(c.Request.Context(), auth)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, visits)
}

// Get обрабатывает GET /visits/:id.
func (h *VisitHandler) Get(c *gin.Context) {
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

	visit, err := h.visits.GetVisit(c.Request.Context(), auth, id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, visit)
}

// OwnerRespond обрабатывает POST /visits/:id/owner-response.
func (h *VisitHandler) OwnerRespond(c *gin.Context) {
	h.respond(c, h.visits.OwnerRespond)
}

// ClientRespond обрабатывает POST /visits/:id/client-response.
func (h *VisitHandler) ClientRespond(c *gin.Context) {
	h.respond(c, h.visits.ClientRespond)
}

// Cancel обрабатывает POST /visits/:id/cancel.
func (h *VisitHandler) Cancel(c *gin.Context) {
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

	visit, err := h.visits.Cancel(c.Request.Context(), auth, id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, visit)
}

type visitAction func(ctx context.Context, auth models.AuthContext, visitID uuid.UUID, in service.RespondInput) (*models.Visit, error)

func (h *VisitHandler) respond(c *gin.Context, action visitAction) {
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

	var req dto.VisitRespondRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	visit, err := action(c.Request.Context(), auth, id, service.RespondInput{
		Action:     req.Action,
		ProposedAt: req.ProposedAt,
		Message:    req.Message,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, visit)
}
