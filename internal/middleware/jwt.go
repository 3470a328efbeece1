package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/pack-progress-api/internal/models"
	appErrors "github.com/noah-isme/pack-progress-api/pkg/errors"
	"github.com/noah-isme/pack-progress-api/pkg/response"
)

// ContextIdentityKey is the gin context key storing the resolved identity.
const ContextIdentityKey = "currentIdentity"

type identityResolver interface {
	ValidateToken(token string) (*models.JWTClaims, error)
	Identify(ctx context.Context, claims *models.JWTClaims) (*models.Identity, error)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// JWT protects routes by requiring a valid access token and a loadable profile.
func JWT(identities identityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthenticated)
			c.Abort()
			return
		}

		claims, err := identities.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		identity, err := identities.Identify(c.Request.Context(), claims)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

// OptionalJWT attaches the identity when a valid token is present but never blocks. When the
// profile cannot be loaded the caller continues as a visitor.
func OptionalJWT(identities identityResolver, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := identities.ValidateToken(token)
		if err != nil {
			c.Next()
			return
		}

		identity, err := identities.Identify(c.Request.Context(), claims)
		if err != nil {
			logger.Warn("profile unavailable, continuing as visitor", zap.String("user_id", claims.UserID()), zap.Error(err))
			identity = &models.Identity{UserID: claims.UserID()}
		}

		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

// IdentityFromContext returns the identity set by JWT or OptionalJWT.
func IdentityFromContext(c *gin.Context) *models.Identity {
	value, exists := c.Get(ContextIdentityKey)
	if !exists {
		return nil
	}
	identity, ok := value.(*models.Identity)
	if !ok {
		return nil
	}
	return identity
}
