package mw

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"signage-backend/internal/model"
)

// Device credential headers.
const (
	HeaderDeviceID = "X-Device-ID"
	HeaderAPIKey   = "X-API-Key"
)

const deviceKey = "device"

// KeyValidator checks a device's API key.
type KeyValidator interface {
	ValidateAPIKey(ctx context.Context, deviceID uuid.UUID, apiKey string) (*model.Device, error)
}

// Credentials reads the device id and API key headers. ok is false when
// either is missing or the id is malformed.
func Credentials(c *gin.Context) (deviceID uuid.UUID, apiKey string, ok bool) {
	apiKey = c.GetHeader(HeaderAPIKey)
	id, err := uuid.Parse(c.GetHeader(HeaderDeviceID))
	if err != nil || apiKey == "" {
		return uuid.Nil, "", false
	}
	return id, apiKey, true
}

// RequireDevice authenticates a player. onError writes the failure response
// for a validator error so the handlers and the middleware agree on shape.
func RequireDevice(v KeyValidator, onError func(*gin.Context, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, key, ok := Credentials(c)
		if !ok {
			abortError(c, http.StatusUnauthorized, "invalid_credentials", "device credentials required", "re_pair")
			return
		}
		device, err := v.ValidateAPIKey(c.Request.Context(), id, key)
		if err != nil {
			onError(c, err)
			c.Abort()
			return
		}
		c.Set(deviceKey, device)
		c.Next()
	}
}

// DeviceFrom returns the device stored by RequireDevice.
func DeviceFrom(c *gin.Context) *model.Device {
	v, _ := c.Get(deviceKey)
	d, _ := v.(*model.Device)
	return d
}
