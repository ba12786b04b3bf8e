package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"signage-backend/internal/model"
	"signage-backend/internal/mw"
	"signage-backend/internal/store"
)

// SetEmergency handles PUT /api/tenant/emergency.
func (h *Handler) SetEmergency(c *gin.Context) {
	var req store.Emergency
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed emergency override")
		return
	}
	caller := mw.CallerFrom(c)
	if err := h.store.SetEmergency(c.Request.Context(), caller.TenantID, req); err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Warn("Emergency override activated",
		zap.String("tenant_id", caller.TenantID.String()),
		zap.String("content_type", string(req.ContentType)),
		zap.String("content_id", req.ContentID.String()))
	h.publish(c.Request.Context(), store.ChangeScope{Kind: store.ScopeTenant, TenantID: caller.TenantID}, 0)
	c.Status(http.StatusNoContent)
}

// ClearEmergency handles DELETE /api/tenant/emergency.
func (h *Handler) ClearEmergency(c *gin.Context) {
	caller := mw.CallerFrom(c)
	if err := h.store.ClearEmergency(c.Request.Context(), caller.TenantID); err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Info("Emergency override cleared", zap.String("tenant_id", caller.TenantID.String()))
	h.publish(c.Request.Context(), store.ChangeScope{Kind: store.ScopeTenant, TenantID: caller.TenantID}, 0)
	c.Status(http.StatusNoContent)
}

type contentChangeRequest struct {
	Scope string    `json:"scope" binding:"required"`
	ID    uuid.UUID `json:"id"`
}

// ContentChanged handles POST /api/content-changes. Editors call it after
// saving a scene, theme, playlist, layout or schedule.
func (h *Handler) ContentChanged(c *gin.Context) {
	var req contentChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "scope is required")
		return
	}
	scope := store.ChangeScope{Kind: req.Scope, TenantID: mw.CallerFrom(c).TenantID, ID: req.ID}
	n, err := h.store.NotifyDevicesChanged(c.Request.Context(), scope)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.publish(c.Request.Context(), scope, n)
	c.JSON(http.StatusOK, gin.H{"affected": n})
}

type scheduleEntryRequest struct {
	TargetType  string            `json:"target_type" binding:"required"`
	TargetID    *uuid.UUID        `json:"target_id"`
	ContentType model.ContentType `json:"content_type" binding:"required"`
	ContentID   uuid.UUID         `json:"content_id"`
	StartTime   string            `json:"start_time" binding:"required"`
	EndTime     string            `json:"end_time" binding:"required"`
	DaysOfWeek  string            `json:"days_of_week"`
	StartDate   *time.Time        `json:"start_date"`
	EndDate     *time.Time        `json:"end_date"`
	Priority    int               `json:"priority"`
	IsEnabled   *bool             `json:"is_enabled"`
}

// CreateScheduleEntry handles POST /api/schedules/:schedule_id/entries.
// Entries are enabled unless the request says otherwise.
func (h *Handler) CreateScheduleEntry(c *gin.Context) {
	scheduleID, ok := uuidParam(c, "schedule_id")
	if !ok {
		return
	}
	var req scheduleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed schedule entry")
		return
	}
	entry := model.ScheduleEntry{
		TargetType:  req.TargetType,
		TargetID:    req.TargetID,
		ContentType: req.ContentType,
		ContentID:   req.ContentID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		DaysOfWeek:  req.DaysOfWeek,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Priority:    req.Priority,
		IsEnabled:   req.IsEnabled == nil || *req.IsEnabled,
	}

	caller := mw.CallerFrom(c)
	if err := h.store.AddScheduleEntry(c.Request.Context(), caller.TenantID, scheduleID, &entry); err != nil {
		h.writeError(c, err)
		return
	}
	h.publish(c.Request.Context(), store.ChangeScope{Kind: store.ScopeSchedule, TenantID: caller.TenantID, ID: scheduleID}, 0)
	c.JSON(http.StatusCreated, entry)
}
