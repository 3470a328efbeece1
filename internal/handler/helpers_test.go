package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pack-progress-api/internal/middleware"
	"github.com/noah-isme/pack-progress-api/internal/models"
)

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      map[string]interface{} `json:"error"`
	Pagination map[string]interface{} `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

type testRequest struct {
	method   string
	target   string
	body     interface{}
	identity *models.Identity
	deviceID string
	params   gin.Params
}

func newTestContext(t *testing.T, req testRequest) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var body io.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(req.method, req.target, body)
	c.Request.Header.Set("Content-Type", "application/json")
	if req.deviceID != "" {
		c.Request.Header.Set(middleware.DeviceHeader, req.deviceID)
	}
	c.Params = req.params
	if req.identity != nil {
		c.Set(middleware.ContextIdentityKey, req.identity)
	}
	middleware.DeviceID()(c)
	return c, rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func student(id string, pack int) *models.Identity {
	return &models.Identity{UserID: id, Profile: &models.Profile{ID: id, Role: models.RoleStudent, PackNumber: &pack}}
}
