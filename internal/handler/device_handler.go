package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pack-progress-api/internal/dto"
	"github.com/noah-isme/pack-progress-api/internal/models"
	appErrors "github.com/noah-isme/pack-progress-api/pkg/errors"
	"github.com/noah-isme/pack-progress-api/pkg/response"
)

type deviceStatusService interface {
	SetLocal(ctx context.Context, deviceID, videoID string, status models.NoteStatus) error
	GetLocal(ctx context.Context, deviceID, videoID string) (models.NoteStatus, bool, error)
	ListLocal(ctx context.Context, deviceID string) (map[string]models.NoteStatus, error)
	ListDrafts(ctx context.Context, deviceID string) (map[string]models.LocalNote, error)
}

// DeviceHandler exposes the device-local status and draft cache.
type DeviceHandler struct {
	statuses deviceStatusService
}

// NewDeviceHandler constructs DeviceHandler.
func NewDeviceHandler(statuses deviceStatusService) *DeviceHandler {
	return &DeviceHandler{statuses: statuses}
}

// SetStatus godoc
// @Summary Store a device-local status
// @Description Used when the caller has no stored note. A stored note's status always wins.
// @Tags Device
// @Accept json
// @Produce json
// @Param id path string true "Video ID"
// @Param X-Device-ID header string true "Device cache id"
// @Param payload body dto.SetDeviceStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /device/statuses/{id} [put]
func (h *DeviceHandler) SetStatus(c *gin.Context) {
	var req dto.SetDeviceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	deviceID := deviceFromContext(c)
	if err := h.statuses.SetLocal(c.Request.Context(), deviceID, c.Param("id"), req.Status); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"video_id": c.Param("id"), "status": req.Status}, nil)
}

// List godoc
// @Summary List device-local statuses
// @Tags Device
// @Produce json
// @Param X-Device-ID header string true "Device cache id"
// @Success 200 {object} response.Envelope
// @Router /device/statuses [get]
func (h *DeviceHandler) List(c *gin.Context) {
	deviceID := deviceFromContext(c)
	statuses, err := h.statuses.ListLocal(c.Request.Context(), deviceID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.DeviceStatuses{DeviceID: deviceID, Statuses: statuses}, nil)
}

// GetStatus godoc
// @Summary Read one device-local status
// @Tags Device
// @Produce json
// @Param id path string true "Video ID"
// @Param X-Device-ID header string true "Device cache id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /device/statuses/{id} [get]
func (h *DeviceHandler) GetStatus(c *gin.Context) {
	videoID := c.Param("id")
	status, ok, err := h.statuses.GetLocal(c.Request.Context(), deviceFromContext(c), videoID)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := dto.DeviceStatus{VideoID: videoID}
	if ok {
		out.Status = &status
	}
	response.JSON(c, http.StatusOK, out, nil)
}

// Drafts godoc
// @Summary List note drafts cached on the device
// @Tags Device
// @Produce json
// @Param X-Device-ID header string true "Device cache id"
// @Success 200 {object} response.Envelope
// @Router /device/notes [get]
func (h *DeviceHandler) Drafts(c *gin.Context) {
	deviceID := deviceFromContext(c)
	notes, err := h.statuses.ListDrafts(c.Request.Context(), deviceID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.DeviceDrafts{DeviceID: deviceID, Notes: notes}, nil)
}
