package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/pack-progress-api/internal/models"
	appErrors "github.com/noah-isme/pack-progress-api/pkg/errors"
)

type statusResolver interface {
	Resolve(ctx context.Context, identity *models.Identity, deviceID string, videoIDs []string) (map[string]models.NoteStatus, bool)
}

// Aggregate counts statuses over the distinct ids in videoIDs. Missing lookups are todo,
// entries for ids outside the set are ignored, and Todo is derived so the buckets sum to Total.
func Aggregate(videoIDs []string, lookup map[string]models.NoteStatus) models.ProgressStats {
	seen := make(map[string]struct{}, len(videoIDs))
	var stats models.ProgressStats
	for _, id := range videoIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		switch lookup[id] {
		case models.NoteStatusDone:
			stats.Done++
		case models.NoteStatusInProgress:
			stats.InProgress++
		}
	}
	stats.Total = len(seen)
	stats.Todo = stats.Total - stats.Done - stats.InProgress
	return stats
}

// ProgressReport is a stats block for the whole catalog or one pack.
type ProgressReport struct {
	Pack     *int                 `json:"pack,omitempty"`
	Stats    models.ProgressStats `json:"stats"`
	Degraded bool                 `json:"degraded"`
}

// ProgressService aggregates resolved statuses.
type ProgressService struct {
	catalog  catalogIndex
	statuses statusResolver
	logger   *zap.Logger
}

// NewProgressService constructs a ProgressService.
func NewProgressService(catalog catalogIndex, statuses statusResolver, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{catalog: catalog, statuses: statuses, logger: logger}
}

// Global aggregates over the whole catalog.
func (s *ProgressService) Global(ctx context.Context, identity *models.Identity, deviceID string) ProgressReport {
	ids := s.catalog.VideoIDs(nil)
	lookup, degraded := s.statuses.Resolve(ctx, identity, deviceID, ids)
	return ProgressReport{Stats: Aggregate(ids, lookup), Degraded: degraded}
}

// Pack aggregates over one pack. A pack without videos yields zero stats.
func (s *ProgressService) Pack(ctx context.Context, identity *models.Identity, deviceID string, pack int) (ProgressReport, error) {
	if pack < 1 {
		return ProgressReport{}, appErrors.Clone(appErrors.ErrValidation, "pack must be a positive number")
	}
	ids := s.catalog.VideoIDs(&pack)
	lookup, degraded := s.statuses.Resolve(ctx, identity, deviceID, ids)
	return ProgressReport{Pack: &pack, Stats: Aggregate(ids, lookup), Degraded: degraded}, nil
}
