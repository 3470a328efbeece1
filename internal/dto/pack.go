package dto

import "github.com/noah-isme/pack-progress-api/internal/models"

// PackList is the pack selector payload.
type PackList struct {
	Packs    []int            `json:"packs"`
	Students []models.Student `json:"students"`
}
