package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pack-progress-api/internal/models"
	appErrors "github.com/noah-isme/pack-progress-api/pkg/errors"
	"github.com/noah-isme/pack-progress-api/pkg/response"
)

// RequireRoles allows the request through when the profile role is one of roles.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		identity := IdentityFromContext(c)
		if !identity.Authenticated() {
			response.Error(c, appErrors.ErrUnauthenticated)
			c.Abort()
			return
		}
		if _, ok := allowed[identity.Role()]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireEditor allows students and admins.
func RequireEditor() gin.HandlerFunc {
	return RequireRoles(models.RoleStudent, models.RoleAdmin)
}
