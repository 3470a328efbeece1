package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pack-progress-api/internal/models"
	"github.com/noah-isme/pack-progress-api/internal/service"
	appErrors "github.com/noah-isme/pack-progress-api/pkg/errors"
	"github.com/noah-isme/pack-progress-api/pkg/response"
)

type profileService interface {
	List(ctx context.Context) ([]models.Profile, error)
	Update(ctx context.Context, id string, req service.UpdateProfileRequest) (*models.Profile, error)
}

// AdminHandler manages profiles. Routes are restricted to admins.
type AdminHandler struct {
	profiles profileService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(profiles profileService) *AdminHandler {
	return &AdminHandler{profiles: profiles}
}

// ListProfiles godoc
// @Summary List profiles
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/profiles [get]
func (h *AdminHandler) ListProfiles(c *gin.Context) {
	profiles, err := h.profiles.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profiles, nil)
}

// UpdateProfile godoc
// @Summary Update a profile's role and pack
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Profile ID"
// @Param payload body service.UpdateProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/profiles/{id} [put]
func (h *AdminHandler) UpdateProfile(c *gin.Context) {
	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}
	profile, err := h.profiles.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}
