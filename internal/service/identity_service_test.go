package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pack-progress-api/internal/models"
	appErrors "github.com/noah-isme/pack-progress-api/pkg/errors"
)

type stubProfiles struct {
	profiles map[string]models.Profile
	err      error
}

func (s stubProfiles) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.profiles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func signToken(t *testing.T, secret string, claims jwt.Claims, method jwt.SigningMethod) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestValidateToken(t *testing.T) {
	svc := NewIdentityService(nil, nil, IdentityConfig{Secret: "secret", Issuer: "auth"})
	now := time.Now()

	valid := signToken(t, "secret", &models.JWTClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: "u1", Issuer: "auth", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}}, jwt.SigningMethodHS256)
	claims, err := svc.ValidateToken(valid)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID())

	cases := map[string]string{
		"wrong secret": signToken(t, "other", &models.JWTClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", Issuer: "auth"}}, jwt.SigningMethodHS256),
		"expired": signToken(t, "secret", &models.JWTClaims{RegisteredClaims: jwt.RegisteredClaims{
			Subject: "u1", Issuer: "auth", ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		}}, jwt.SigningMethodHS256),
		"wrong issuer": signToken(t, "secret", &models.JWTClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", Issuer: "elsewhere"}}, jwt.SigningMethodHS256),
		"no subject":   signToken(t, "secret", &models.JWTClaims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "auth"}}, jwt.SigningMethodHS256),
		"wrong method": signToken(t, "secret", &models.JWTClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", Issuer: "auth"}}, jwt.SigningMethodHS512),
		"not a token":  "garbage",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			assert.ErrorIs(t, err, appErrors.ErrUnauthenticated)
		})
	}
}

func TestIdentify(t *testing.T) {
	pack := 2
	svc := NewIdentityService(stubProfiles{profiles: map[string]models.Profile{
		"u1": {ID: "u1", Role: models.RoleStudent, PackNumber: &pack},
	}}, nil, IdentityConfig{Secret: "secret"})
	ctx := context.Background()

	identity, err := svc.Identify(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, identity)

	identity, err = svc.Identify(ctx, &models.JWTClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}})
	require.NoError(t, err)
	assert.True(t, identity.CanEdit())
	assert.Equal(t, &pack, identity.AssignedPack())

	identity, err = svc.Identify(ctx, &models.JWTClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "new"}})
	require.NoError(t, err)
	assert.Equal(t, models.RoleVisitor, identity.Role())

	broken := NewIdentityService(stubProfiles{err: errStoreDown}, nil, IdentityConfig{})
	_, err = broken.Identify(ctx, &models.JWTClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}})
	assert.ErrorIs(t, err, appErrors.ErrStoreUnavailable)
}
