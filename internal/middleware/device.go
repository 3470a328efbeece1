package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// DeviceHeader carries the client's device-local cache id.
	DeviceHeader     = "X-Device-ID"
	contextDeviceKey = "deviceID"
	maxDeviceIDLen   = 128
)

// DeviceID stores the X-Device-ID header, when usable, for the device cache.
func DeviceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(DeviceHeader))
		if id != "" && len(id) <= maxDeviceIDLen && !strings.ContainsAny(id, ": \t") {
			c.Set(contextDeviceKey, id)
		}
		c.Next()
	}
}

// DeviceIDFromContext returns the device id, or an empty string.
func DeviceIDFromContext(c *gin.Context) string {
	return c.GetString(contextDeviceKey)
}
