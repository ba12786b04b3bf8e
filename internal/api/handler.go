package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"signage-backend/config"
	"signage-backend/internal/changefeed"
	"signage-backend/internal/pairing"
	"signage-backend/internal/resolve"
	"signage-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	engine  *resolve.Engine
	codes   *pairing.Generator
	feed    changefeed.Notifier
	cfg     *config.Config
	webpush *webpush.Options
	logger  *zap.Logger
}

// NewHandler creates a new API handler. feed and logger may be nil.
func NewHandler(s store.Store, engine *resolve.Engine, feed changefeed.Notifier, cfg *config.Config, logger *zap.Logger) *Handler {
	if feed == nil {
		feed = changefeed.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = resolve.NewEngine(resolve.WithLogger(logger))
	}
	return &Handler{
		store:  s,
		engine: engine,
		codes:  pairing.NewGenerator(cfg.Pairing.MaxAttempts),
		feed:   feed,
		cfg:    cfg,
		webpush: &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		},
		logger: logger,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// Player actions attached to device-facing failures.
const (
	actionPair   = "pair"
	actionRePair = "re_pair"
)

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, store.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, store.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, store.ErrInvalidCode):
		return http.StatusUnauthorized, "invalid_code"
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, pairing.ErrCodeSpaceExhausted):
		return http.StatusServiceUnavailable, "code_space_exhausted"
	}
	return http.StatusInternalServerError, "internal"
}

// writeError maps the error taxonomy onto an HTTP response.
func (h *Handler) writeError(c *gin.Context, err error) {
	h.respondError(c, err, "")
}

// deviceError is writeError for player endpoints: an unknown device is told
// to pair and a rejected key is told to re-pair instead of retrying.
func (h *Handler) deviceError(c *gin.Context, err error) {
	action := ""
	switch {
	case errors.Is(err, store.ErrNotFound):
		action = actionPair
	case errors.Is(err, store.ErrInvalidCredentials):
		action = actionRePair
	}
	h.respondError(c, err, action)
}

func (h *Handler) respondError(c *gin.Context, err error, action string) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Error(err))
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: code, Message: msg, Action: action})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: msg})
}

// uuidParam parses a path parameter, answering 400 when malformed.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// publish announces a change on the feed. Failures are logged only; devices
// still pick the change up through needs_refresh.
func (h *Handler) publish(ctx context.Context, scope store.ChangeScope, devices int64) {
	err := h.feed.Publish(ctx, changefeed.Event{
		Scope:    scope.Kind,
		TenantID: scope.TenantID,
		ID:       scope.ID,
		Devices:  devices,
		At:       h.store.Now(),
	})
	if err != nil {
		h.logger.Warn("Failed to publish change event",
			zap.String("scope", scope.Kind),
			zap.String("tenant_id", scope.TenantID.String()),
			zap.Error(err))
	}
}
