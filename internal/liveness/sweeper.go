// Package liveness runs the periodic offline sweep and command expiry.
package liveness

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the slice of the store the sweeper needs.
type Store interface {
	MarkOfflineSweep(ctx context.Context, window time.Duration) ([]uuid.UUID, error)
	ExpireCommands(ctx context.Context) (int64, error)
}

// Alerter receives the ids of devices that just went offline. Dispatch must
// not block; it reports whether the alert was queued.
type Alerter interface {
	Dispatch(ctx context.Context, deviceID uuid.UUID) bool
}

// Sweeper flips stale devices offline on a fixed interval.
type Sweeper struct {
	store    Store
	window   time.Duration
	interval time.Duration
	alerter  Alerter
	logger   *zap.Logger
}

// NewSweeper creates a sweeper. alerter may be nil when push alerts are disabled.
func NewSweeper(store Store, window, interval time.Duration, alerter Alerter, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		store:    store,
		window:   window,
		interval: interval,
		alerter:  alerter,
		logger:   logger,
	}
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("Starting liveness sweeper",
		zap.Duration("window", s.window),
		zap.Duration("interval", s.interval))

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Liveness sweeper shutting down")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.interval)
		}
	}
}

// SweepOnce performs a single sweep and returns the devices flipped offline.
func (s *Sweeper) SweepOnce(ctx context.Context) []uuid.UUID {
	flipped, err := s.store.MarkOfflineSweep(ctx, s.window)
	if err != nil {
		s.logger.Error("Offline sweep failed", zap.Error(err))
	} else if len(flipped) > 0 {
		s.logger.Info("Devices marked offline", zap.Int("count", len(flipped)))
		if s.alerter != nil {
			dropped := 0
			for _, id := range flipped {
				if !s.alerter.Dispatch(ctx, id) {
					dropped++
				}
			}
			if dropped > 0 {
				s.logger.Warn("Offline alerts dropped", zap.Int("count", dropped))
			}
		}
	}

	expired, err := s.store.ExpireCommands(ctx)
	if err != nil {
		s.logger.Error("Command expiry failed", zap.Error(err))
	} else if expired > 0 {
		s.logger.Debug("Commands expired", zap.Int64("count", expired))
	}
	return flipped
}
