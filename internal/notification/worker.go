package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"signage-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Subscriptions is the slice of the store the workers need.
type Subscriptions interface {
	DeviceByID(ctx context.Context, deviceID uuid.UUID) (*model.Device, error)
	TenantSubscriptions(ctx context.Context, tenantID uuid.UUID) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, tenantID uuid.UUID, endpoint string) error
}

// Alert is the JSON payload delivered to an operator's browser.
type Alert struct {
	Kind     string    `json:"kind"`
	DeviceID uuid.UUID `json:"device_id"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
}

// WorkerPool sends offline alerts for devices flipped by the liveness sweep.
type WorkerPool struct {
	size    int
	jobs    chan uuid.UUID
	store   Subscriptions
	webpush *webpush.Options
	sender  NotificationSender
	logger  *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, store Subscriptions, webpushOptions *webpush.Options, logger *zap.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan uuid.UUID, size*16),
		store:   store,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debug("Alert worker started", zap.Int("worker", id))
	for {
		select {
		case deviceID := <-wp.jobs:
			wp.sendOfflineAlerts(ctx, deviceID)
		case <-ctx.Done():
			wp.logger.Debug("Alert worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues an offline alert for a device without blocking. The alert
// is dropped when ctx is done or the queue is full; the device stays offline
// in the registry either way.
func (wp *WorkerPool) Dispatch(ctx context.Context, deviceID uuid.UUID) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case wp.jobs <- deviceID:
		return true
	default:
		wp.logger.Warn("Alert queue full, dropping offline alert",
			zap.String("device_id", deviceID.String()),
			zap.Int("queued", len(wp.jobs)))
		return false
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan uuid.UUID {
	return wp.jobs
}

func (wp *WorkerPool) sendOfflineAlerts(ctx context.Context, deviceID uuid.UUID) {
	log := wp.logger.With(zap.String("device_id", deviceID.String()))

	device, err := wp.store.DeviceByID(ctx, deviceID)
	if err != nil {
		log.Warn("Offline alert skipped, device lookup failed", zap.Error(err))
		return
	}
	subs, err := wp.store.TenantSubscriptions(ctx, device.TenantID)
	if err != nil {
		log.Error("Failed to load alert subscriptions", zap.Error(err))
		return
	}
	if len(subs) == 0 {
		return
	}

	label := device.Name
	if label == "" {
		label = device.ID.String()
	}
	payload, err := json.Marshal(Alert{
		Kind:     "device_offline",
		DeviceID: device.ID,
		Title:    "Screen offline",
		Body:     label + " stopped sending heartbeats.",
	})
	if err != nil {
		log.Error("Failed to encode alert", zap.Error(err))
		return
	}

	log.Info("Sending offline alerts", zap.Int("subscriptions", len(subs)))
	for _, sub := range subs {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Warn("Failed to send alert", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.logger.Info("Subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeleteSubscription(ctx, uuid.Nil, sub.Endpoint); err != nil {
			wp.logger.Error("Failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
