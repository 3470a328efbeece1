package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pack-progress-api/internal/dto"
	"github.com/noah-isme/pack-progress-api/internal/models"
	"github.com/noah-isme/pack-progress-api/internal/service"
	"github.com/noah-isme/pack-progress-api/pkg/response"
)

type packService interface {
	Packs() []int
	Students() []models.Student
	Overview(ctx context.Context, identity *models.Identity, deviceID string, requested *int) service.PackOverview
}

// PackHandler exposes pack selection.
type PackHandler struct {
	packs packService
}

// NewPackHandler constructs PackHandler.
func NewPackHandler(packs packService) *PackHandler {
	return &PackHandler{packs: packs}
}

// List godoc
// @Summary List packs and the class roster
// @Tags Packs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /packs [get]
func (h *PackHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, dto.PackList{Packs: h.packs.Packs(), Students: h.packs.Students()}, nil)
}

// Overview godoc
// @Summary Pack overview
// @Description Selects the requested pack, else the caller's assigned pack. A requested pack without a student selects nothing.
// @Tags Packs
// @Produce json
// @Param pack query int false "Requested pack"
// @Param X-Device-ID header string false "Device cache id"
// @Success 200 {object} response.Envelope
// @Router /packs/overview [get]
func (h *PackHandler) Overview(c *gin.Context) {
	requested, err := queryInt(c, "pack")
	if err != nil {
		response.Error(c, err)
		return
	}
	overview := h.packs.Overview(c.Request.Context(), identityFromContext(c), deviceFromContext(c), requested)
	response.JSON(c, http.StatusOK, overview, nil)
}
