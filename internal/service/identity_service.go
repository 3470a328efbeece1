package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/pack-progress-api/internal/models"
	appErrors "github.com/noah-isme/pack-progress-api/pkg/errors"
)

type profileReader interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
}

// IdentityConfig holds the verification settings for externally issued tokens.
type IdentityConfig struct {
	Secret string
	Issuer string
}

// IdentityService turns bearer tokens into identities. It never issues credentials.
type IdentityService struct {
	profiles profileReader
	logger   *zap.Logger
	config   IdentityConfig
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(profiles profileReader, logger *zap.Logger, config IdentityConfig) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{profiles: profiles, logger: logger, config: config}
}

// ValidateToken verifies an HS256 token and requires a subject.
func (s *IdentityService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthenticated.Code, appErrors.ErrUnauthenticated.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.UserID() == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "invalid token claims")
	}
	return claims, nil
}

// Identify loads the profile behind the claims. Nil claims yield a nil identity; a user
// without a profile row is a visitor.
func (s *IdentityService) Identify(ctx context.Context, claims *models.JWTClaims) (*models.Identity, error) {
	if claims.UserID() == "" {
		return nil, nil
	}
	identity := &models.Identity{UserID: claims.UserID()}
	if s.profiles == nil {
		return identity, nil
	}
	profile, err := s.profiles.FindByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity, nil
		}
		return nil, appErrors.StoreUnavailable(err, "failed to load profile")
	}
	identity.Profile = profile
	return identity, nil
}
