package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pack-progress-api/internal/dto"
	"github.com/noah-isme/pack-progress-api/internal/models"
	"github.com/noah-isme/pack-progress-api/internal/service"
	appErrors "github.com/noah-isme/pack-progress-api/pkg/errors"
	"github.com/noah-isme/pack-progress-api/pkg/response"
)

type noteService interface {
	Upsert(ctx context.Context, identity *models.Identity, req service.SaveNoteRequest) (*models.Note, error)
	SaveDraft(ctx context.Context, identity *models.Identity, deviceID string, req service.SaveNoteRequest) (*service.DraftReceipt, error)
	ListClassNotes(ctx context.Context, filter service.ClassNoteFilter) ([]service.ClassNote, error)
	ListMyStatuses(ctx context.Context, identity *models.Identity, videoIDs []string) (map[string]models.NoteStatus, error)
}

// NoteHandler exposes note persistence endpoints.
type NoteHandler struct {
	notes noteService
}

// NewNoteHandler constructs NoteHandler.
func NewNoteHandler(notes noteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

func bindNote(c *gin.Context) (service.SaveNoteRequest, error) {
	var req service.SaveNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid note payload")
	}
	req.VideoID = c.Param("id")
	return req, nil
}

// Upsert godoc
// @Summary Save my note for a video
// @Description Creates or updates the caller's note and cancels any pending auto-save for it.
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Video ID"
// @Param payload body service.SaveNoteRequest true "Note payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /videos/{id}/note [put]
func (h *NoteHandler) Upsert(c *gin.Context) {
	req, err := bindNote(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	note, err := h.notes.Upsert(c.Request.Context(), identityFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// SaveDraft godoc
// @Summary Auto-save a note draft
// @Description Mirrors the draft into the device cache and writes it once edits pause.
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Video ID"
// @Param X-Device-ID header string false "Device cache id"
// @Param payload body service.SaveNoteRequest true "Draft payload"
// @Success 202 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /videos/{id}/note/draft [post]
func (h *NoteHandler) SaveDraft(c *gin.Context) {
	req, err := bindNote(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	receipt, err := h.notes.SaveDraft(c.Request.Context(), identityFromContext(c), deviceFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, receipt)
}

// ClassNotes godoc
// @Summary List class notes
// @Description Class-visible notes joined with their catalog video, newest first unless sorted otherwise.
// @Tags Notes
// @Produce json
// @Param search query string false "Video title substring"
// @Param pack query int false "Pack number"
// @Param sort query string false "date, duration or title"
// @Param limit query int false "Maximum notes"
// @Success 200 {object} response.Envelope
// @Router /notes/class [get]
func (h *NoteHandler) ClassNotes(c *gin.Context) {
	filter := service.ClassNoteFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Sort:   models.SortKey(strings.ToLower(strings.TrimSpace(c.Query("sort")))),
	}
	var err error
	if filter.Pack, err = queryInt(c, "pack"); err != nil {
		response.Error(c, err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		response.Error(c, err)
		return
	}
	if limit != nil {
		filter.Limit = *limit
	}

	notes, err := h.notes.ListClassNotes(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notes, nil, map[string]interface{}{"count": len(notes)})
}

// MyStatuses godoc
// @Summary List my stored statuses
// @Tags Notes
// @Produce json
// @Param videoIds query string false "Comma separated video ids"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /notes/statuses [get]
func (h *NoteHandler) MyStatuses(c *gin.Context) {
	statuses, err := h.notes.ListMyStatuses(c.Request.Context(), identityFromContext(c), queryIDs(c, "videoIds"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.StatusMap{Statuses: statuses}, nil)
}
