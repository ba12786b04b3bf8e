package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"signage-backend/internal/model"
	"signage-backend/internal/mw"
	"signage-backend/internal/store"
)

type enqueueCommandRequest struct {
	CommandType model.CommandType `json:"command_type" binding:"required"`
	Payload     json.RawMessage   `json:"payload"`
	TTLSeconds  int               `json:"ttl_seconds"`
}

// EnqueueCommand handles POST /api/devices/:device_id/commands.
func (h *Handler) EnqueueCommand(c *gin.Context) {
	deviceID, ok := uuidParam(c, "device_id")
	if !ok {
		return
	}
	var req enqueueCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "command_type is required")
		return
	}
	if req.TTLSeconds < 0 {
		badRequest(c, "ttl_seconds must not be negative")
		return
	}

	caller := mw.CallerFrom(c)
	cmd := store.NewCommand{
		Type:    req.CommandType,
		Payload: req.Payload,
		TTL:     h.cfg.Commands.DefaultTTL,
	}
	if req.TTLSeconds > 0 {
		cmd.TTL = time.Duration(req.TTLSeconds) * time.Second
	}
	if uid, err := uuid.Parse(caller.UserID); err == nil {
		cmd.CreatedBy = &uid
	}

	created, err := h.store.EnqueueCommand(c.Request.Context(), caller.TenantID, deviceID, cmd)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Info("Command queued",
		zap.String("command_id", created.ID.String()),
		zap.String("device_id", deviceID.String()),
		zap.String("command_type", string(created.CommandType)))
	c.JSON(http.StatusCreated, gin.H{
		"command_id": created.ID,
		"status":     created.Status,
		"expires_at": created.ExpiresAt,
	})
}

// CommandHistory handles GET /api/devices/:device_id/commands.
func (h *Handler) CommandHistory(c *gin.Context) {
	deviceID, ok := uuidParam(c, "device_id")
	if !ok {
		return
	}
	f := store.HistoryFilter{
		Status: model.CommandStatus(c.Query("status")),
		Type:   model.CommandType(c.Query("type")),
		Limit:  h.cfg.Commands.HistoryLimit,
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		f.Limit = n
	}

	cmds, err := h.store.CommandHistory(c.Request.Context(), mw.CallerFrom(c).TenantID, deviceID, f)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commands": cmds})
}
