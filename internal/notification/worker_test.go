package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signage-backend/internal/model"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

type fakeStore struct {
	mu      sync.Mutex
	devices map[uuid.UUID]*model.Device
	subs    map[uuid.UUID][]model.PushSubscription
	deleted chan string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		devices: map[uuid.UUID]*model.Device{},
		subs:    map[uuid.UUID][]model.PushSubscription{},
		deleted: make(chan string, 4),
	}
}

func (f *fakeStore) DeviceByID(_ context.Context, id uuid.UUID) (*model.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.devices[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return d, nil
}

func (f *fakeStore) TenantSubscriptions(_ context.Context, tenantID uuid.UUID) ([]model.PushSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[tenantID], nil
}

func (f *fakeStore) DeleteSubscription(_ context.Context, tenantID uuid.UUID, endpoint string) error {
	if tenantID != uuid.Nil {
		return errors.New("expected unscoped delete")
	}
	f.deleted <- endpoint
	return nil
}

func okResponse(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func addDevice(f *fakeStore, name string, endpoints ...string) *model.Device {
	d := &model.Device{TenantID: uuid.New(), Name: name}
	d.ID = uuid.New()
	f.devices[d.ID] = d
	for _, e := range endpoints {
		f.subs[d.TenantID] = append(f.subs[d.TenantID], model.PushSubscription{Endpoint: e, TenantID: d.TenantID, P256DH: "p", Auth: "a"})
	}
	return d
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, newFakeStore(), &webpush.Options{}, nil)
	id := uuid.New()

	assert.True(t, wp.Dispatch(context.Background(), id))

	select {
	case job := <-wp.Jobs():
		assert.Equal(t, id, job)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_DispatchNeverBlocks(t *testing.T) {
	// No workers running, as after shutdown.
	wp := NewWorkerPool(1, newFakeStore(), &webpush.Options{}, nil)

	done := make(chan int)
	go func() {
		queued := 0
		for i := 0; i < 100; i++ {
			if wp.Dispatch(context.Background(), uuid.New()) {
				queued++
			}
		}
		done <- queued
	}()

	select {
	case queued := <-done:
		assert.Equal(t, cap(wp.Jobs()), queued)
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}
}

func TestWorkerPool_DispatchAfterCancelIsDropped(t *testing.T) {
	wp := NewWorkerPool(1, newFakeStore(), &webpush.Options{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, wp.Dispatch(ctx, uuid.New()))
	assert.Empty(t, wp.Jobs())
}

func TestWorkerPool_SendsOfflineAlert(t *testing.T) {
	fs := newFakeStore()
	device := addDevice(fs, "Lobby", "https://example.com/push")
	wp := NewWorkerPool(1, fs, &webpush.Options{}, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, _ *webpush.Options) (*http.Response, error) {
			defer wg.Done()
			assert.Equal(t, "https://example.com/push", sub.Endpoint)
			var alert Alert
			require.NoError(t, json.Unmarshal(payload, &alert))
			assert.Equal(t, "device_offline", alert.Kind)
			assert.Equal(t, device.ID, alert.DeviceID)
			assert.Contains(t, alert.Body, "Lobby")
			return okResponse(http.StatusCreated), nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)
	wp.Dispatch(ctx, device.ID)
	wg.Wait()
}

func TestWorkerPool_DeletesExpiredSubscription(t *testing.T) {
	fs := newFakeStore()
	device := addDevice(fs, "", "https://example.com/expired")
	wp := NewWorkerPool(1, fs, &webpush.Options{}, nil)
	wp.sender = &mockSender{
		SendFunc: func([]byte, *webpush.Subscription, *webpush.Options) (*http.Response, error) {
			return okResponse(http.StatusGone), nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)
	wp.Dispatch(ctx, device.ID)

	select {
	case endpoint := <-fs.deleted:
		assert.Equal(t, "https://example.com/expired", endpoint)
	case <-time.After(time.Second):
		t.Fatal("expired subscription was not deleted")
	}
}

func TestWorkerPool_UnknownDeviceSendsNothing(t *testing.T) {
	fs := newFakeStore()
	wp := NewWorkerPool(1, fs, &webpush.Options{}, nil)
	wp.sender = &mockSender{
		SendFunc: func([]byte, *webpush.Subscription, *webpush.Options) (*http.Response, error) {
			t.Error("no alert expected")
			return okResponse(http.StatusCreated), nil
		},
	}

	wp.sendOfflineAlerts(context.Background(), uuid.New())
}
