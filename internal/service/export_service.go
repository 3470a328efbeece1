package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/pack-progress-api/internal/catalog"
	"github.com/noah-isme/pack-progress-api/internal/models"
	appErrors "github.com/noah-isme/pack-progress-api/pkg/errors"
	"github.com/noah-isme/pack-progress-api/pkg/export"
)

type packVideoReader interface {
	PackVideos(ctx context.Context, identity *models.Identity, deviceID string, pack int) ([]models.VideoView, models.ProgressStats, bool)
	Students() []models.Student
}

// ExportFile is a rendered report.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the caller's progress through one pack.
type ExportService struct {
	packs    packVideoReader
	renderer *export.Renderer
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(packs packVideoReader, renderer *export.Renderer, logger *zap.Logger) *ExportService {
	if renderer == nil {
		renderer = export.NewRenderer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{packs: packs, renderer: renderer, logger: logger}
}

var exportHeaders = []string{"rank", "title", "duration", "published", "status"}

// PackReport builds the report rows for a pack.
func (s *ExportService) PackReport(ctx context.Context, identity *models.Identity, deviceID string, pack int) (export.Dataset, error) {
	if pack < 1 {
		return export.Dataset{}, appErrors.Clone(appErrors.ErrValidation, "pack must be a positive number")
	}
	videos, stats, degraded := s.packs.PackVideos(ctx, identity, deviceID, pack)
	if len(videos) == 0 {
		return export.Dataset{}, appErrors.Clone(appErrors.ErrNotFound, "pack has no videos")
	}

	title := fmt.Sprintf("Pack %d", pack)
	for _, st := range s.packs.Students() {
		if st.PackNumber == pack {
			title = fmt.Sprintf("%s - %s", title, st.Name)
			break
		}
	}
	summary := []string{
		fmt.Sprintf("done: %d / %d", stats.Done, stats.Total),
		fmt.Sprintf("in progress: %d", stats.InProgress),
		fmt.Sprintf("todo: %d", stats.Todo),
	}
	if degraded {
		summary = append(summary, "some statuses could not be loaded and show as todo")
	}

	rows := make([]map[string]string, 0, len(videos))
	for _, v := range videos {
		rows = append(rows, map[string]string{
			"rank":      strconv.Itoa(v.RankInPack),
			"title":     v.Title,
			"duration":  catalog.FormatDuration(v.DurationS),
			"published": catalog.FormatDate(v.PublishedAt),
			"status":    string(v.Status),
		})
	}
	return export.Dataset{Title: title, Summary: summary, Headers: exportHeaders, Rows: rows}, nil
}

// ExportPack renders the pack report in the requested format.
func (s *ExportService) ExportPack(ctx context.Context, identity *models.Identity, deviceID string, pack int, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format")
	}
	data, err := s.PackReport(ctx, identity, deviceID, pack)
	if err != nil {
		return nil, err
	}
	body, err := s.renderer.Render(format, data)
	if err != nil {
		s.logger.Error("render pack report", zap.Int("pack", pack), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("pack-%d-progress.%s", pack, format),
		ContentType: format.ContentType(),
		Data:        body,
	}, nil
}
