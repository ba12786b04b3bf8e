package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"signage-backend/internal/model"
	"signage-backend/internal/mw"
	"signage-backend/internal/store"
)

// deviceResponse is the flattened structure for the admin API.
type deviceResponse struct {
	model.Device
	Liveness   string `json:"liveness"`
	HasOTP     bool   `json:"has_pairing_code"`
	HasKioskPIN bool  `json:"has_kiosk_pin"`
}

func newDeviceResponse(d *model.Device, now time.Time) deviceResponse {
	return deviceResponse{
		Device:     *d,
		Liveness:   d.Liveness(),
		HasOTP:     d.OTPCode != nil && d.OTPExpiresAt != nil && d.OTPExpiresAt.After(now),
		HasKioskPIN: d.KioskPINHash != "",
	}
}

type createDeviceRequest struct {
	Name            string     `json:"name" binding:"required"`
	Timezone        string     `json:"timezone"`
	DisplayLanguage string     `json:"display_language"`
	GroupID         *uuid.UUID `json:"group_id"`
	LocationID      *uuid.UUID `json:"location_id"`
}

// CreateDevice handles POST /api/devices.
func (h *Handler) CreateDevice(c *gin.Context) {
	var req createDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name is required")
		return
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			badRequest(c, "unknown timezone "+req.Timezone)
			return
		}
	}

	caller := mw.CallerFrom(c)
	d := &model.Device{
		TenantID:        caller.TenantID,
		Name:            strings.TrimSpace(req.Name),
		Timezone:        req.Timezone,
		DisplayLanguage: req.DisplayLanguage,
		GroupID:         req.GroupID,
		LocationID:      req.LocationID,
	}
	if err := h.store.CreateDevice(c.Request.Context(), d); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newDeviceResponse(d, h.store.Now()))
}

// ListDevices handles GET /api/devices.
func (h *Handler) ListDevices(c *gin.Context) {
	caller := mw.CallerFrom(c)
	devices, err := h.store.ListDevices(c.Request.Context(), caller.TenantID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	now := h.store.Now()
	out := make([]deviceResponse, 0, len(devices))
	for i := range devices {
		out = append(out, newDeviceResponse(&devices[i], now))
	}
	c.JSON(http.StatusOK, gin.H{"devices": out})
}

// GetDevice handles GET /api/devices/:device_id.
func (h *Handler) GetDevice(c *gin.Context) {
	id, ok := uuidParam(c, "device_id")
	if !ok {
		return
	}
	d, err := h.store.GetDevice(c.Request.Context(), mw.CallerFrom(c).TenantID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDeviceResponse(d, h.store.Now()))
}

// GeneratePairingCode handles POST /api/devices/:device_id/pairing-code.
func (h *Handler) GeneratePairingCode(c *gin.Context) {
	id, ok := uuidParam(c, "device_id")
	if !ok {
		return
	}
	caller := mw.CallerFrom(c)
	otp, err := h.store.GenerateOTP(c.Request.Context(), caller.TenantID, id, h.codes, h.cfg.Pairing.OTPTTL)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Info("Pairing code issued",
		zap.String("device_id", id.String()),
		zap.String("tenant_id", caller.TenantID.String()),
		zap.Time("expires_at", otp.ExpiresAt))
	c.JSON(http.StatusCreated, otp)
}

// UnpairDevice handles POST /api/devices/:device_id/unpair.
func (h *Handler) UnpairDevice(c *gin.Context) {
	id, ok := uuidParam(c, "device_id")
	if !ok {
		return
	}
	caller := mw.CallerFrom(c)
	if err := h.store.UnpairDevice(c.Request.Context(), caller.TenantID, id); err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Info("Device unpaired",
		zap.String("device_id", id.String()),
		zap.String("tenant_id", caller.TenantID.String()))
	c.Status(http.StatusNoContent)
}

// AssignContent handles PUT /api/devices/:device_id/assignment.
func (h *Handler) AssignContent(c *gin.Context) {
	id, ok := uuidParam(c, "device_id")
	if !ok {
		return
	}
	var req store.Assignment
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed assignment")
		return
	}
	d, err := h.store.AssignContent(c.Request.Context(), mw.CallerFrom(c).TenantID, id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDeviceResponse(d, h.store.Now()))
}

type kioskRequest struct {
	Enabled bool    `json:"enabled"`
	PIN     *string `json:"pin"`
}

// SetKioskMode handles PUT /api/devices/:device_id/kiosk.
func (h *Handler) SetKioskMode(c *gin.Context) {
	id, ok := uuidParam(c, "device_id")
	if !ok {
		return
	}
	var req kioskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed kiosk settings")
		return
	}
	if err := h.store.SetKioskMode(c.Request.Context(), mw.CallerFrom(c).TenantID, id, req.Enabled, req.PIN); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
