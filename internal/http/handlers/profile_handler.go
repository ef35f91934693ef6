package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ertargyn/realty-backend/internal/dto"
	"github.com/ertargyn/realty-backend/internal/http/handlers/common"
	"github.com/ertargyn/realty-backend/internal/models"
	"github.com/ertargyn/realty-backend/internal/repository"
	"github.com/ertargyn/realty-backend/internal/validation"
)

// ProfileHandler обслуживает маршруты профиля пользователя.
type ProfileHandler struct {
	users *repository.UserRepository
}

// NewProfileHandler создаёт хэндлер.
func NewProfileHandler(users *repository.UserRepository) *ProfileHandler {
	return &ProfileHandler{users: users}
}

// GetMe обрабатывает GET /profile/me.
func (h *ProfileHandler) GetMe(c *gin.Context) {
	auth, err := common.CurrentAuth(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), auth.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	profile, err := h.users.GetProfile(c.Request.Context(), auth.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "profile": profile})
}

// UpdateMe обрабатывает PUT /profile/me.
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	auth, err := common.CurrentAuth(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req dto.UpdateProfileRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := validation.ValidateLength("display_name", req.DisplayName, 1, 100); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	current, err := h.users.GetProfile(c.Request.Context(), auth.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	profile := &models.Profile{
		UserID:           auth.UserID,
		DisplayName:      req.DisplayName,
		Bio:              req.Bio,
		IDDocumentNumber: current.IDDocumentNumber,
		PhotoPath:        current.PhotoPath,
	}
	if req.Phone != nil {
		normalized := validation.NormalizePhone(*req.Phone)
		profile.Phone = &normalized
	}

	if err := h.users.UpsertProfile(c.Request.Context(), profile); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, profile)
}
