package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/pack-progress-api/internal/catalog"
	"github.com/noah-isme/pack-progress-api/internal/models"
)

// SelectionSource records why a pack was (not) selected.
type SelectionSource string

const (
	SourceRequest SelectionSource = "request"
	SourceProfile SelectionSource = "profile"
	SourceNone    SelectionSource = "none"
)

// Selection is the outcome of pack/student resolution.
type Selection struct {
	Student   *models.Student `json:"student"`
	Requested *int            `json:"requested_pack,omitempty"`
	Source    SelectionSource `json:"source"`
}

// Pack returns the selected pack number, nil when nothing was selected.
func (s Selection) Pack() *int {
	if s.Student == nil {
		return nil
	}
	pack := s.Student.PackNumber
	return &pack
}

// ResolveSelection picks the student whose pack was explicitly requested, else the one
// matching the profile's pack. An explicit request that matches nobody selects nothing and
// does not fall back to the profile.
func ResolveSelection(students []models.Student, requested *int, profile *models.Profile) Selection {
	if requested != nil {
		return Selection{Student: findByPack(students, *requested), Requested: requested, Source: SourceRequest}
	}
	if profile != nil && profile.PackNumber != nil {
		if st := findByPack(students, *profile.PackNumber); st != nil {
			return Selection{Student: st, Source: SourceProfile}
		}
	}
	return Selection{Source: SourceNone}
}

func findByPack(students []models.Student, pack int) *models.Student {
	for i := range students {
		if students[i].PackNumber == pack {
			st := students[i]
			return &st
		}
	}
	return nil
}

// PackOverview is the selected pack with its videos in rank order and their stats.
type PackOverview struct {
	Selection Selection            `json:"selection"`
	Videos    []models.VideoView   `json:"videos"`
	Stats     models.ProgressStats `json:"stats"`
	Degraded  bool                 `json:"degraded"`
}

// PackService serves the per-pack view.
type PackService struct {
	catalog  catalogIndex
	engine   *catalog.Engine
	statuses statusResolver
	logger   *zap.Logger
}

// NewPackService constructs a PackService.
func NewPackService(idx catalogIndex, engine *catalog.Engine, statuses statusResolver, logger *zap.Logger) *PackService {
	if engine == nil {
		engine = catalog.NewEngine("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PackService{catalog: idx, engine: engine, statuses: statuses, logger: logger}
}

// Packs lists the distinct pack numbers of the catalog.
func (s *PackService) Packs() []int {
	return s.catalog.Packs()
}

// Students lists the class roster.
func (s *PackService) Students() []models.Student {
	return s.catalog.Students()
}

// Overview resolves the selection and, when a student is selected, loads the pack.
func (s *PackService) Overview(ctx context.Context, identity *models.Identity, deviceID string, requested *int) PackOverview {
	var profile *models.Profile
	if identity != nil {
		profile = identity.Profile
	}
	selection := ResolveSelection(s.catalog.Students(), requested, profile)
	overview := PackOverview{Selection: selection, Videos: []models.VideoView{}}
	pack := selection.Pack()
	if pack == nil {
		return overview
	}
	overview.Videos, overview.Stats, overview.Degraded = s.PackVideos(ctx, identity, deviceID, *pack)
	return overview
}

// PackVideos returns the pack's videos ordered by rank with effective statuses.
func (s *PackService) PackVideos(ctx context.Context, identity *models.Identity, deviceID string, pack int) ([]models.VideoView, models.ProgressStats, bool) {
	videos := s.engine.Sort(catalog.FilterByPack(s.catalog.Videos(), &pack), models.SortByRank, models.SortAsc)
	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.VideoID
	}
	lookup, degraded := s.statuses.Resolve(ctx, identity, deviceID, ids)
	views := make([]models.VideoView, len(videos))
	for i, v := range videos {
		views[i] = models.VideoView{Video: v, Status: lookup[v.VideoID]}
	}
	return views, Aggregate(ids, lookup), degraded
}
