package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pack-progress-api/internal/middleware"
	"github.com/noah-isme/pack-progress-api/internal/models"
	appErrors "github.com/noah-isme/pack-progress-api/pkg/errors"
)

func identityFromContext(c *gin.Context) *models.Identity {
	return middleware.IdentityFromContext(c)
}

func deviceFromContext(c *gin.Context) string {
	return middleware.DeviceIDFromContext(c)
}

func invalidParam(err error, name string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
}

// queryInt parses an optional integer query parameter.
func queryInt(c *gin.Context, name string) (*int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, invalidParam(err, name)
	}
	return &v, nil
}

// queryIDs accepts repeated and comma separated values.
func queryIDs(c *gin.Context, name string) []string {
	var ids []string
	for _, raw := range c.QueryArray(name) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ids = append(ids, part)
			}
		}
	}
	return ids
}

func pathPack(c *gin.Context) (int, error) {
	pack, err := strconv.Atoi(c.Param("pack"))
	if err != nil {
		return 0, invalidParam(err, "pack")
	}
	return pack, nil
}
