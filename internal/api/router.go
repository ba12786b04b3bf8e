package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"signage-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	limit, burst := rate.Limit(h.cfg.Server.RateLimitPerSec), h.cfg.Server.RateLimitBurst

	ttl := time.Duration(h.cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	// Player endpoints
	device := r.Group("/api/device")
	{
		// Unauthenticated at the middleware layer, so limited per IP.
		public := device.Group("")
		public.Use(mw.RateLimiter(limit, burst))
		public.POST("/pair", h.PairDevice)
		public.POST("/heartbeat", h.Heartbeat)
		public.GET("/content", h.GetContent)

		authed := device.Group("")
		authed.Use(mw.RequireDevice(h.store, h.deviceError), mw.RateLimiter(limit, burst))
		authed.GET("/commands", h.DrainCommands)
		authed.POST("/commands/:command_id/ack", h.AcknowledgeCommand)
		authed.POST("/refreshed", h.AckRefresh)
		authed.POST("/telemetry", h.RecordTelemetry)
		authed.POST("/kiosk/verify-pin", h.VerifyKioskPIN)
	}

	// Operator endpoints, identity resolved by the gateway in front of us.
	admin := r.Group("/api")
	admin.Use(mw.RequireCaller())
	{
		devices := admin.Group("/devices")
		devices.Use(caching)
		devices.POST("", h.CreateDevice)
		devices.GET("", h.ListDevices)
		devices.GET("/:device_id", h.GetDevice)
		devices.POST("/:device_id/pairing-code", h.GeneratePairingCode)
		devices.POST("/:device_id/unpair", h.UnpairDevice)
		devices.PUT("/:device_id/assignment", h.AssignContent)
		devices.PUT("/:device_id/kiosk", h.SetKioskMode)
		devices.POST("/:device_id/commands", h.EnqueueCommand)
		devices.GET("/:device_id/commands", h.CommandHistory)

		admin.PUT("/tenant/emergency", h.SetEmergency)
		admin.DELETE("/tenant/emergency", h.ClearEmergency)
		admin.POST("/content-changes", h.ContentChanged)
		admin.POST("/schedules/:schedule_id/entries", h.CreateScheduleEntry)

		admin.GET("/alerts/subscriptions", h.GetSubscription)
		admin.PUT("/alerts/subscriptions", h.PutSubscription)
		admin.DELETE("/alerts/subscriptions", h.DeleteSubscription)
		admin.GET("/alerts/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
