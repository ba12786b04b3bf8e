package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"signage-backend/config"
	"signage-backend/internal/changefeed"
	"signage-backend/internal/db"
	"signage-backend/internal/model"
	"signage-backend/internal/mw"
	"signage-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var t0 = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingFeed struct {
	mu     sync.Mutex
	events []changefeed.Event
}

func (f *recordingFeed) Publish(_ context.Context, e changefeed.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *recordingFeed) Close() error { return nil }

type testEnv struct {
	router http.Handler
	store  store.Store
	gdb    *gorm.DB
	clock  *fakeClock
	feed   *recordingFeed
	tenant *model.Tenant
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{}
	cfg.Database.DSN = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	cfg.Database.LogLevel = "silent"
	cfg.ApplyDefaults()
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000

	gdb, err := db.Init(&cfg.Database, zap.NewNop())
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	clock := &fakeClock{now: t0}
	s := store.NewGormStore(gdb, store.WithClock(clock.Now))
	feed := &recordingFeed{}
	h := NewHandler(s, nil, feed, cfg, nil)

	tenant := &model.Tenant{Name: "acme"}
	require.NoError(t, gdb.Create(tenant).Error)

	return &testEnv{router: NewRouter(h), store: s, gdb: gdb, clock: clock, feed: feed, tenant: tenant}
}

func (e *testEnv) admin(role string) map[string]string {
	return map[string]string{
		mw.HeaderTenantID: e.tenant.ID.String(),
		mw.HeaderUserID:   uuid.NewString(),
		mw.HeaderUserRole: role,
	}
}

func deviceHeaders(id uuid.UUID, key string) map[string]string {
	return map[string]string{mw.HeaderDeviceID: id.String(), mw.HeaderAPIKey: key}
}

func (e *testEnv) call(t *testing.T, method, path string, headers map[string]string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// createAndPair registers a device through the admin API and pairs it
// through the player API, returning its id and key.
func (e *testEnv) createAndPair(t *testing.T) (uuid.UUID, string) {
	t.Helper()
	w := e.call(t, http.MethodPost, "/api/devices", e.admin(mw.RoleAdmin), gin.H{"name": "Lobby", "timezone": "Europe/Berlin"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		ID uuid.UUID `json:"id"`
	}](t, w)

	w = e.call(t, http.MethodPost, "/api/devices/"+created.ID.String()+"/pairing-code", e.admin(mw.RoleEditor), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	otp := decode[store.OTP](t, w)
	require.Len(t, otp.Code, 6)

	w = e.call(t, http.MethodPost, "/api/device/pair", nil, gin.H{"code": otp.Code, "platform": "android", "player_version": "3.1.0"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	claim := decode[store.ClaimResult](t, w)
	require.Equal(t, created.ID, claim.DeviceID)
	require.Equal(t, e.tenant.ID, claim.TenantID)
	require.Len(t, claim.APIKey, 64)
	return claim.DeviceID, claim.APIKey
}

func (e *testEnv) seedPlaylist(t *testing.T) *model.Playlist {
	t.Helper()
	d8, d5 := 8, 5
	img := &model.MediaAsset{TenantID: e.tenant.ID, Name: "menu", MediaType: "image", URL: "https://cdn/menu.png"}
	vid := &model.MediaAsset{TenantID: e.tenant.ID, Name: "promo", MediaType: "video", URL: "https://cdn/promo.mp4", DurationSeconds: &d5}
	require.NoError(t, e.gdb.Create(img).Error)
	require.NoError(t, e.gdb.Create(vid).Error)

	three := 3
	pl := &model.Playlist{TenantID: e.tenant.ID, Name: "main", DefaultDuration: &d8}
	require.NoError(t, e.gdb.Create(pl).Error)
	require.NoError(t, e.gdb.Create(&model.PlaylistItem{PlaylistID: pl.ID, MediaID: img.ID, Position: 0}).Error)
	require.NoError(t, e.gdb.Create(&model.PlaylistItem{PlaylistID: pl.ID, MediaID: vid.ID, Position: 1, Duration: &three}).Error)
	return pl
}
