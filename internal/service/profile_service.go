package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/pack-progress-api/internal/models"
	appErrors "github.com/noah-isme/pack-progress-api/pkg/errors"
)

type profileRepository interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	List(ctx context.Context) ([]models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) (bool, error)
}

// UpdateProfileRequest is the admin edit of a profile. A nil pack clears the assignment and
// a blank name clears the name.
type UpdateProfileRequest struct {
	FullName   *string     `json:"full_name"`
	PackNumber *int        `json:"pack_number" validate:"omitempty,min=1"`
	Role       models.Role `json:"role" validate:"required,oneof=visitor student admin"`
}

// ProfileService handles the admin roster.
type ProfileService struct {
	repo      profileRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs the profile service.
func NewProfileService(repo profileRepository, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{repo: repo, validator: validate, logger: logger}
}

// List returns all profiles.
func (s *ProfileService) List(ctx context.Context) ([]models.Profile, error) {
	profiles, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.StoreUnavailable(err, "failed to list profiles")
	}
	return profiles, nil
}

// Update applies an admin edit.
func (s *ProfileService) Update(ctx context.Context, id string, req UpdateProfileRequest) (*models.Profile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.StoreUnavailable(err, "failed to load profile")
	}

	profile.Role = req.Role
	profile.PackNumber = req.PackNumber
	profile.FullName = nil
	if req.FullName != nil {
		if name := strings.TrimSpace(*req.FullName); name != "" {
			profile.FullName = &name
		}
	}

	ok, err := s.repo.Update(ctx, profile)
	if err != nil {
		return nil, appErrors.StoreUnavailable(err, "failed to update profile")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
	}
	s.logger.Info("profile updated", zap.String("profile_id", id), zap.String("role", string(profile.Role)))
	return profile, nil
}
