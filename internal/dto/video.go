package dto

import "github.com/noah-isme/pack-progress-api/internal/models"

// VideoItem is a catalog entry as listed, with display-ready fields.
type VideoItem struct {
	models.VideoView
	Duration  string `json:"duration"`
	Published string `json:"published"`
}

// StatusMap maps video ids to statuses.
type StatusMap struct {
	Statuses map[string]models.NoteStatus `json:"statuses"`
}
