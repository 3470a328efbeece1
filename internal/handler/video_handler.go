package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pack-progress-api/internal/catalog"
	"github.com/noah-isme/pack-progress-api/internal/dto"
	"github.com/noah-isme/pack-progress-api/internal/models"
	"github.com/noah-isme/pack-progress-api/internal/service"
	"github.com/noah-isme/pack-progress-api/pkg/response"
)

type videoService interface {
	List(ctx context.Context, identity *models.Identity, deviceID string, q models.VideoQuery, clientFilterKey string) (*service.VideoPage, error)
	Get(ctx context.Context, identity *models.Identity, deviceID, id string) (*service.VideoDetail, error)
}

// VideoHandler exposes the catalog.
type VideoHandler struct {
	videos videoService
}

// NewVideoHandler constructs VideoHandler.
func NewVideoHandler(videos videoService) *VideoHandler {
	return &VideoHandler{videos: videos}
}

func parseVideoQuery(c *gin.Context) (models.VideoQuery, error) {
	q := models.VideoQuery{
		Search:    strings.TrimSpace(c.Query("search")),
		From:      c.Query("from"),
		To:        c.Query("to"),
		SortKey:   models.SortKey(c.Query("sort")),
		SortOrder: models.SortOrder(c.Query("order")),
	}
	var err error
	if q.Pack, err = queryInt(c, "pack"); err != nil {
		return q, err
	}
	if q.MinDuration, err = queryInt(c, "minDuration"); err != nil {
		return q, err
	}
	if q.MaxDuration, err = queryInt(c, "maxDuration"); err != nil {
		return q, err
	}
	page, err := queryInt(c, "page")
	if err != nil {
		return q, err
	}
	if page != nil {
		q.Page = *page
	}
	perPage, err := queryInt(c, "perPage")
	if err != nil {
		return q, err
	}
	if perPage != nil {
		q.PerPage = *perPage
	}
	return q, nil
}

// List godoc
// @Summary List videos
// @Description Search, filter, sort and paginate the catalog. Each item carries the caller's effective status.
// @Tags Videos
// @Produce json
// @Param search query string false "Case-insensitive title substring"
// @Param pack query int false "Pack number"
// @Param minDuration query int false "Minimum duration in seconds"
// @Param maxDuration query int false "Maximum duration in seconds"
// @Param from query string false "Published on or after (ISO-8601)"
// @Param to query string false "Published on or before (ISO-8601)"
// @Param sort query string false "date, duration, title or rank"
// @Param order query string false "asc or desc"
// @Param page query int false "Page (1-indexed)"
// @Param perPage query int false "Page size"
// @Param filterKey query string false "meta.filter_key of the previous page"
// @Param X-Device-ID header string false "Device cache id"
// @Success 200 {object} response.Envelope
// @Router /videos [get]
func (h *VideoHandler) List(c *gin.Context) {
	q, err := parseVideoQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := h.videos.List(c.Request.Context(), identityFromContext(c), deviceFromContext(c), q, c.Query("filterKey"))
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]dto.VideoItem, len(page.Items))
	for i, v := range page.Items {
		items[i] = dto.VideoItem{
			VideoView: v,
			Duration:  catalog.FormatDuration(v.DurationS),
			Published: catalog.FormatDate(v.PublishedAt),
		}
	}
	response.JSON(c, http.StatusOK, items, &page.Pagination, map[string]interface{}{
		"filter_key": page.FilterKey,
		"page_reset": page.PageReset,
		"degraded":   page.Degraded,
	})
}

// Get godoc
// @Summary Get video detail
// @Tags Videos
// @Produce json
// @Param id path string true "Video ID"
// @Param X-Device-ID header string false "Device cache id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /videos/{id} [get]
func (h *VideoHandler) Get(c *gin.Context) {
	detail, err := h.videos.Get(c.Request.Context(), identityFromContext(c), deviceFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}
