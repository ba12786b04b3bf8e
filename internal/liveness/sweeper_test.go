package liveness

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	mu      sync.Mutex
	flipped []uuid.UUID
	err     error
	sweeps  int
	expires int
	window  time.Duration
}

func (f *fakeStore) MarkOfflineSweep(_ context.Context, window time.Duration) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	f.window = window
	out := f.flipped
	f.flipped = nil
	return out, f.err
}

func (f *fakeStore) ExpireCommands(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expires++
	return 2, nil
}

func (f *fakeStore) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sweeps, f.expires
}

type recordingAlerter struct {
	ids    []uuid.UUID
	refuse bool
}

func (r *recordingAlerter) Dispatch(_ context.Context, id uuid.UUID) bool {
	if r.refuse {
		return false
	}
	r.ids = append(r.ids, id)
	return true
}

func TestSweepOnce_DispatchesFlipped(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	fs := &fakeStore{flipped: []uuid.UUID{a, b}}
	alerts := &recordingAlerter{}
	s := NewSweeper(fs, 5*time.Minute, time.Minute, alerts, nil)

	got := s.SweepOnce(context.Background())

	assert.Equal(t, []uuid.UUID{a, b}, got)
	assert.Equal(t, []uuid.UUID{a, b}, alerts.ids)
	assert.Equal(t, 5*time.Minute, fs.window)
	_, expires := fs.counts()
	assert.Equal(t, 1, expires)

	// Second pass finds nothing new.
	assert.Empty(t, s.SweepOnce(context.Background()))
	assert.Len(t, alerts.ids, 2)
}

func TestSweepOnce_DroppedAlertsDoNotStopExpiry(t *testing.T) {
	fs := &fakeStore{flipped: []uuid.UUID{uuid.New(), uuid.New()}}
	s := NewSweeper(fs, time.Minute, time.Minute, &recordingAlerter{refuse: true}, nil)

	assert.Len(t, s.SweepOnce(context.Background()), 2)
	_, expires := fs.counts()
	assert.Equal(t, 1, expires)
}

func TestSweepOnce_ErrorStillExpiresCommands(t *testing.T) {
	fs := &fakeStore{err: errors.New("db down")}
	s := NewSweeper(fs, time.Minute, time.Minute, nil, nil)

	assert.Empty(t, s.SweepOnce(context.Background()))
	_, expires := fs.counts()
	assert.Equal(t, 1, expires)
}

func TestRun_StopsOnCancel(t *testing.T) {
	fs := &fakeStore{}
	s := NewSweeper(fs, time.Minute, 10*time.Millisecond, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		sweeps, _ := fs.counts()
		return sweeps >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
