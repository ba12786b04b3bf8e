package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"signage-backend/internal/model"
	"signage-backend/internal/mw"
	"signage-backend/internal/resolve"
	"signage-backend/internal/store"
)

type claimRequest struct {
	Code string `json:"code" binding:"required"`
	store.ClaimInfo
}

// PairDevice handles POST /api/device/pair.
func (h *Handler) PairDevice(c *gin.Context) {
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "code is required")
		return
	}

	res, err := h.store.ClaimOTP(c.Request.Context(), req.Code, req.ClaimInfo, h.codes)
	if err != nil {
		h.deviceError(c, err)
		return
	}
	h.logger.Info("Device paired",
		zap.String("device_id", res.DeviceID.String()),
		zap.String("tenant_id", res.TenantID.String()))
	c.JSON(http.StatusOK, res)
}

// commandView is the shape a player sees for a queued command.
type commandView struct {
	ID        uuid.UUID         `json:"id"`
	Type      model.CommandType `json:"type"`
	Payload   datatypes.JSON    `json:"payload,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

func commandViews(cmds []model.DeviceCommand) []commandView {
	out := make([]commandView, 0, len(cmds))
	for _, cmd := range cmds {
		out = append(out, commandView{
			ID:        cmd.ID,
			Type:      cmd.CommandType,
			Payload:   cmd.Payload,
			CreatedAt: cmd.CreatedAt,
			ExpiresAt: cmd.ExpiresAt,
		})
	}
	return out
}

type heartbeatResponse struct {
	NeedsRefresh    bool          `json:"needs_refresh"`
	ActiveSceneID   *uuid.UUID    `json:"active_scene_id"`
	LastRefreshAt   *time.Time    `json:"last_refresh_at"`
	LastConfigHash  string        `json:"last_config_hash,omitempty"`
	PendingCommands []commandView `json:"pending_commands"`
}

// Heartbeat handles POST /api/device/heartbeat. An unknown device gets a
// structured 404 telling the player to pair again.
func (h *Handler) Heartbeat(c *gin.Context) {
	id, key, ok := mw.Credentials(c)
	if !ok {
		h.deviceError(c, store.ErrInvalidCredentials)
		return
	}
	var info store.HeartbeatInfo
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&info); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, "malformed heartbeat body")
			return
		}
	}

	res, err := h.store.Heartbeat(c.Request.Context(), id, key, info, h.cfg.Commands.DrainLimit)
	if err != nil {
		h.deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, heartbeatResponse{
		NeedsRefresh:    res.NeedsRefresh,
		ActiveSceneID:   res.ActiveSceneID,
		LastRefreshAt:   res.LastRefreshAt,
		LastConfigHash:  res.LastConfigHash,
		PendingCommands: commandViews(res.PendingCommands),
	})
}

// GetContent handles GET /api/device/content. Before pairing a player may
// preview with ?otp=CODE; afterwards it authenticates with its key, which
// also counts as a sign of life.
func (h *Handler) GetContent(c *gin.Context) {
	ctx := c.Request.Context()

	if otp := c.Query("otp"); otp != "" {
		device, err := h.store.DeviceByOTP(ctx, otp)
		if err != nil {
			h.deviceError(c, err)
			return
		}
		content, err := h.engine.Resolve(ctx, h.store, device, h.store.Now())
		if err != nil {
			h.deviceError(c, err)
			return
		}
		c.JSON(http.StatusOK, content)
		return
	}

	id, key, ok := mw.Credentials(c)
	if !ok {
		h.deviceError(c, store.ErrInvalidCredentials)
		return
	}

	var content *resolve.Content
	err := h.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.ValidateAPIKey(ctx, id, key); err != nil {
			return err
		}
		if err := tx.TouchDevice(ctx, id); err != nil {
			return err
		}
		// Reload so the response reflects this check-in.
		device, err := tx.DeviceByID(ctx, id)
		if err != nil {
			return err
		}
		content, err = h.engine.Resolve(ctx, tx, device, tx.Now())
		return err
	})
	if err != nil {
		h.deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}

// DrainCommands handles GET /api/device/commands.
func (h *Handler) DrainCommands(c *gin.Context) {
	device := mw.DeviceFrom(c)
	cmds, err := h.store.DrainCommands(c.Request.Context(), device.ID, h.cfg.Commands.DrainLimit)
	if err != nil {
		h.deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commands": commandViews(cmds)})
}

// AcknowledgeCommand handles POST /api/device/commands/:command_id/ack.
func (h *Handler) AcknowledgeCommand(c *gin.Context) {
	commandID, ok := uuidParam(c, "command_id")
	if !ok {
		return
	}
	var ack store.CommandAck
	if err := c.ShouldBindJSON(&ack); err != nil {
		badRequest(c, "malformed acknowledgement")
		return
	}

	device := mw.DeviceFrom(c)
	if err := h.store.AcknowledgeCommand(c.Request.Context(), device.ID, commandID, ack); err != nil {
		h.deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

type refreshedRequest struct {
	ConfigHash string `json:"config_hash"`
}

// AckRefresh handles POST /api/device/refreshed.
func (h *Handler) AckRefresh(c *gin.Context) {
	var req refreshedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed body")
		return
	}
	device := mw.DeviceFrom(c)
	if err := h.store.AckRefresh(c.Request.Context(), device.ID, req.ConfigHash); err != nil {
		h.deviceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type telemetryEvent struct {
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt *time.Time      `json:"occurred_at"`
}

type telemetryRequest struct {
	Events []telemetryEvent `json:"events" binding:"required"`
}

// RecordTelemetry handles POST /api/device/telemetry.
func (h *Handler) RecordTelemetry(c *gin.Context) {
	var req telemetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "events are required")
		return
	}

	now := h.store.Now()
	events := make([]model.TelemetryEvent, 0, len(req.Events))
	for _, e := range req.Events {
		ev := model.TelemetryEvent{
			EventType:  e.EventType,
			OccurredAt: now,
		}
		if len(e.Payload) > 0 {
			ev.Payload = datatypes.JSON(e.Payload)
		}
		if e.OccurredAt != nil {
			ev.OccurredAt = e.OccurredAt.UTC()
		}
		events = append(events, ev)
	}

	device := mw.DeviceFrom(c)
	n, err := h.store.RecordTelemetry(c.Request.Context(), device.ID, events)
	if err != nil {
		h.deviceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": n})
}

type verifyPINRequest struct {
	PIN string `json:"pin" binding:"required"`
}

// VerifyKioskPIN handles POST /api/device/kiosk/verify-pin.
func (h *Handler) VerifyKioskPIN(c *gin.Context) {
	var req verifyPINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "pin is required")
		return
	}
	device := mw.DeviceFrom(c)
	valid, err := h.store.VerifyKioskPIN(c.Request.Context(), device.ID, strings.TrimSpace(req.PIN))
	if err != nil {
		h.deviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}
