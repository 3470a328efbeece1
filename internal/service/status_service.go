package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/pack-progress-api/internal/models"
	appErrors "github.com/noah-isme/pack-progress-api/pkg/errors"
)

type noteStatusReader interface {
	ListStatuses(ctx context.Context, authorID string, videoIDs []string) ([]models.NoteStatusRow, error)
}

// deviceCache is implemented by the memory and bbolt caches and the Redis repository.
type deviceCache interface {
	GetStatus(ctx context.Context, deviceID, videoID string) (models.NoteStatus, bool, error)
	SetStatus(ctx context.Context, deviceID, videoID string, status models.NoteStatus) error
	ListStatuses(ctx context.Context, deviceID string) (map[string]models.NoteStatus, error)
	GetNote(ctx context.Context, deviceID, videoID string) (*models.LocalNote, error)
	SetNote(ctx context.Context, deviceID, videoID, content string) error
	ListNotes(ctx context.Context, deviceID string) (map[string]models.LocalNote, error)
}

type catalogIndex interface {
	Videos() []models.Video
	Students() []models.Student
	FindVideo(id string) (models.Video, bool)
	Has(id string) bool
	Packs() []int
	VideoIDs(pack *int) []string
}

// ResolveStatus applies the precedence remote, then local, then todo. Unknown values count as absent.
func ResolveStatus(remote, local *models.NoteStatus) models.NoteStatus {
	if remote != nil && remote.Valid() {
		return *remote
	}
	if local != nil && local.Valid() {
		return *local
	}
	return models.NoteStatusTodo
}

// StatusService resolves effective statuses from the note store and the device cache.
type StatusService struct {
	notes   noteStatusReader
	device  deviceCache
	catalog catalogIndex
	metrics *MetricsService
	logger  *zap.Logger
}

// NewStatusService constructs a StatusService.
func NewStatusService(notes noteStatusReader, device deviceCache, catalog catalogIndex, metrics *MetricsService, logger *zap.Logger) *StatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusService{notes: notes, device: device, catalog: catalog, metrics: metrics, logger: logger}
}

// Resolve returns one status per requested id. A source that fails is treated as empty and
// reported through degraded; Resolve itself never fails.
func (s *StatusService) Resolve(ctx context.Context, identity *models.Identity, deviceID string, videoIDs []string) (map[string]models.NoteStatus, bool) {
	degraded := false

	remote := map[string]models.NoteStatus{}
	if identity.Authenticated() && s.notes != nil && len(videoIDs) > 0 {
		start := time.Now()
		rows, err := s.notes.ListStatuses(ctx, identity.UserID, videoIDs)
		s.metrics.ObserveStore("list_statuses", time.Since(start))
		if err != nil {
			degraded = true
			s.logger.Warn("remote statuses unavailable", zap.String("user_id", identity.UserID), zap.Error(err))
		}
		for _, row := range rows {
			remote[row.VideoID] = row.Status
		}
	}

	local := map[string]models.NoteStatus{}
	if deviceID != "" && s.device != nil {
		cached, err := s.device.ListStatuses(ctx, deviceID)
		s.metrics.RecordDeviceCache("list_statuses", err)
		if err != nil {
			degraded = true
			s.logger.Warn("device statuses unavailable", zap.String("device_id", deviceID), zap.Error(err))
		} else {
			local = cached
		}
	}

	if degraded {
		s.metrics.RecordDegradedRead()
	}

	out := make(map[string]models.NoteStatus, len(videoIDs))
	for _, id := range videoIDs {
		out[id] = ResolveStatus(lookup(remote, id), lookup(local, id))
	}
	return out, degraded
}

func lookup(m map[string]models.NoteStatus, id string) *models.NoteStatus {
	if v, ok := m[id]; ok {
		return &v
	}
	return nil
}

// SetLocal stores a device status for a catalog video.
func (s *StatusService) SetLocal(ctx context.Context, deviceID, videoID string, status models.NoteStatus) error {
	if deviceID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "X-Device-ID header is required")
	}
	if !status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "invalid status")
	}
	if s.catalog != nil && !s.catalog.Has(videoID) {
		return appErrors.Clone(appErrors.ErrNotFound, "video not found")
	}
	err := s.device.SetStatus(ctx, deviceID, videoID, status)
	s.metrics.RecordDeviceCache("set_status", err)
	if err != nil {
		return appErrors.StoreUnavailable(err, "device cache unavailable")
	}
	return nil
}

// ListLocal returns every status stored for the device.
func (s *StatusService) ListLocal(ctx context.Context, deviceID string) (map[string]models.NoteStatus, error) {
	if deviceID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "X-Device-ID header is required")
	}
	statuses, err := s.device.ListStatuses(ctx, deviceID)
	s.metrics.RecordDeviceCache("list_statuses", err)
	if err != nil {
		return nil, appErrors.StoreUnavailable(err, "device cache unavailable")
	}
	return statuses, nil
}

// GetLocal returns the status the device stored for a catalog video. ok is false when none is stored.
func (s *StatusService) GetLocal(ctx context.Context, deviceID, videoID string) (models.NoteStatus, bool, error) {
	if deviceID == "" {
		return "", false, appErrors.Clone(appErrors.ErrValidation, "X-Device-ID header is required")
	}
	if s.catalog != nil && !s.catalog.Has(videoID) {
		return "", false, appErrors.Clone(appErrors.ErrNotFound, "video not found")
	}
	status, ok, err := s.device.GetStatus(ctx, deviceID, videoID)
	s.metrics.RecordDeviceCache("get_status", err)
	if err != nil {
		return "", false, appErrors.StoreUnavailable(err, "device cache unavailable")
	}
	return status, ok, nil
}

// ListDrafts returns every note draft cached for the device, keyed by video id.
func (s *StatusService) ListDrafts(ctx context.Context, deviceID string) (map[string]models.LocalNote, error) {
	if deviceID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "X-Device-ID header is required")
	}
	notes, err := s.device.ListNotes(ctx, deviceID)
	s.metrics.RecordDeviceCache("list_notes", err)
	if err != nil {
		return nil, appErrors.StoreUnavailable(err, "device cache unavailable")
	}
	return notes, nil
}
