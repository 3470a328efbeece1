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

type progressService interface {
	Global(ctx context.Context, identity *models.Identity, deviceID string) service.ProgressReport
	Pack(ctx context.Context, identity *models.Identity, deviceID string, pack int) (service.ProgressReport, error)
}

type exportService interface {
	ExportPack(ctx context.Context, identity *models.Identity, deviceID string, pack int, format string) (*service.ExportFile, error)
}

// ProgressHandler exposes progress statistics and reports.
type ProgressHandler struct {
	progress progressService
	exports  exportService
}

// NewProgressHandler constructs ProgressHandler. A nil exporter disables reports.
func NewProgressHandler(progress progressService, exports exportService) *ProgressHandler {
	return &ProgressHandler{progress: progress, exports: exports}
}

// Global godoc
// @Summary Progress over the whole catalog
// @Tags Progress
// @Produce json
// @Param X-Device-ID header string false "Device cache id"
// @Success 200 {object} response.Envelope
// @Router /progress [get]
func (h *ProgressHandler) Global(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.progress.Global(c.Request.Context(), identityFromContext(c), deviceFromContext(c)), nil)
}

// Pack godoc
// @Summary Progress within one pack
// @Tags Progress
// @Produce json
// @Param pack path int true "Pack number"
// @Param X-Device-ID header string false "Device cache id"
// @Success 200 {object} response.Envelope
// @Router /packs/{pack}/progress [get]
func (h *ProgressHandler) Pack(c *gin.Context) {
	pack, err := pathPack(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.progress.Pack(c.Request.Context(), identityFromContext(c), deviceFromContext(c), pack)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Export godoc
// @Summary Download a pack progress report
// @Tags Progress
// @Produce text/csv
// @Produce application/pdf
// @Param pack path int true "Pack number"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /packs/{pack}/progress/export [get]
func (h *ProgressHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	pack, err := pathPack(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.ExportPack(c.Request.Context(), identityFromContext(c), deviceFromContext(c), pack, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
