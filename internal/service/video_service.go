package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/pack-progress-api/internal/catalog"
	"github.com/noah-isme/pack-progress-api/internal/models"
	appErrors "github.com/noah-isme/pack-progress-api/pkg/errors"
)

type ownNoteReader interface {
	Get(ctx context.Context, identity *models.Identity, videoID string) (*models.Note, error)
	Draft(ctx context.Context, deviceID, videoID string) (*models.LocalNote, error)
	PendingDraft(identity *models.Identity, videoID string) bool
}

// VideoConfig bounds page sizes.
type VideoConfig struct {
	PerPage    int
	MaxPerPage int
}

// VideoPage is one page of the catalog view.
type VideoPage struct {
	Items      []models.VideoView
	Pagination models.Pagination
	FilterKey  string
	PageReset  bool
	Degraded   bool
}

// VideoDetail is a video with the viewer's note, draft and effective status. PendingSave is
// set while an auto-save for the viewer's note is still waiting to be written.
type VideoDetail struct {
	Video       models.Video      `json:"video"`
	Status      models.NoteStatus `json:"status"`
	Note        *models.Note      `json:"note"`
	Draft       *models.LocalNote `json:"draft,omitempty"`
	PendingSave bool              `json:"pending_save"`
	CanEdit     bool              `json:"can_edit"`
	Degraded    bool              `json:"degraded"`
}

// VideoService serves catalog listings.
type VideoService struct {
	catalog  catalogIndex
	engine   *catalog.Engine
	statuses statusResolver
	notes    ownNoteReader
	config   VideoConfig
	logger   *zap.Logger
}

// NewVideoService constructs a VideoService.
func NewVideoService(idx catalogIndex, engine *catalog.Engine, statuses statusResolver, notes ownNoteReader, config VideoConfig, logger *zap.Logger) *VideoService {
	if engine == nil {
		engine = catalog.NewEngine("")
	}
	if config.PerPage <= 0 {
		config.PerPage = 50
	}
	if config.MaxPerPage < config.PerPage {
		config.MaxPerPage = config.PerPage
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VideoService{catalog: idx, engine: engine, statuses: statuses, notes: notes, config: config, logger: logger}
}

// Normalize fills defaults and rejects unknown sort settings.
func (s *VideoService) Normalize(q models.VideoQuery) (models.VideoQuery, error) {
	if q.SortKey == "" {
		q.SortKey = models.SortByDate
	}
	if q.SortOrder == "" {
		q.SortOrder = models.SortDesc
	}
	switch q.SortKey {
	case models.SortByDate, models.SortByDuration, models.SortByTitle, models.SortByRank:
	default:
		return q, appErrors.Clone(appErrors.ErrValidation, "unknown sort key")
	}
	if q.SortOrder != models.SortAsc && q.SortOrder != models.SortDesc {
		return q, appErrors.Clone(appErrors.ErrValidation, "unknown sort order")
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = s.config.PerPage
	}
	if q.PerPage > s.config.MaxPerPage {
		q.PerPage = s.config.MaxPerPage
	}
	return q, nil
}

// List runs the query pipeline. When clientFilterKey is set and differs from the query's
// filter fingerprint the filters changed since the caller's last page, so page 1 is served.
func (s *VideoService) List(ctx context.Context, identity *models.Identity, deviceID string, q models.VideoQuery, clientFilterKey string) (*VideoPage, error) {
	q, err := s.Normalize(q)
	if err != nil {
		return nil, err
	}
	filterKey := q.FilterKey()
	reset := clientFilterKey != "" && clientFilterKey != filterKey
	if reset {
		q.Page = 1
	}

	result := s.engine.Apply(s.catalog.Videos(), q)
	ids := make([]string, len(result.Items))
	for i, v := range result.Items {
		ids[i] = v.VideoID
	}
	lookup, degraded := s.statuses.Resolve(ctx, identity, deviceID, ids)

	items := make([]models.VideoView, len(result.Items))
	for i, v := range result.Items {
		items[i] = models.VideoView{Video: v, Status: lookup[v.VideoID]}
	}
	return &VideoPage{
		Items: items,
		Pagination: models.Pagination{
			Page:       result.Page,
			PageSize:   result.PerPage,
			TotalCount: result.Total,
			TotalPages: result.TotalPages,
		},
		FilterKey: filterKey,
		PageReset: reset,
		Degraded:  degraded,
	}, nil
}

// Get returns a video with the viewer's own note and device draft. Note store failures
// degrade the view instead of failing it.
func (s *VideoService) Get(ctx context.Context, identity *models.Identity, deviceID, id string) (*VideoDetail, error) {
	video, ok := s.catalog.FindVideo(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "video not found")
	}
	lookup, degraded := s.statuses.Resolve(ctx, identity, deviceID, []string{id})
	detail := &VideoDetail{Video: video, Status: lookup[id], CanEdit: identity.CanEdit(), Degraded: degraded}

	if s.notes == nil {
		return detail, nil
	}
	if identity.Authenticated() {
		note, err := s.notes.Get(ctx, identity, id)
		if err != nil {
			s.logger.Warn("own note unavailable", zap.String("video_id", id), zap.Error(err))
			detail.Degraded = true
		}
		detail.Note = note
		detail.PendingSave = s.notes.PendingDraft(identity, id)
	}
	if deviceID != "" {
		draft, err := s.notes.Draft(ctx, deviceID, id)
		if err != nil {
			s.logger.Warn("device draft unavailable", zap.String("video_id", id), zap.Error(err))
			detail.Degraded = true
		}
		detail.Draft = draft
	}
	return detail, nil
}
