package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signage-backend/internal/model"
	"signage-backend/internal/mw"
	"signage-backend/internal/pairing"
	"signage-backend/internal/resolve"
	"signage-backend/internal/store"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
		code string
	}{
		{fmt.Errorf("device: %w", store.ErrNotFound), http.StatusNotFound, "not_found"},
		{store.ErrForbidden, http.StatusForbidden, "forbidden"},
		{store.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{store.ErrInvalidCode, http.StatusUnauthorized, "invalid_code"},
		{fmt.Errorf("%w: bad type", store.ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{store.ErrConflict, http.StatusConflict, "conflict"},
		{fmt.Errorf("generate: %w", pairing.ErrCodeSpaceExhausted), http.StatusServiceUnavailable, "code_space_exhausted"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code := statusFor(tt.err)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestDevicesAdmin(t *testing.T) {
	e := newEnv(t)

	w := e.call(t, http.MethodPost, "/api/devices", e.admin(mw.RoleViewer), gin.H{"name": "Lobby"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.call(t, http.MethodPost, "/api/devices", e.admin(mw.RoleAdmin), gin.H{"name": "Lobby", "timezone": "Mars/Olympus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.call(t, http.MethodPost, "/api/devices", e.admin(mw.RoleAdmin), gin.H{"name": "Lobby"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[deviceResponse](t, w)
	assert.Equal(t, model.LivenessUnknown, created.Liveness)
	assert.False(t, created.IsPaired)

	w = e.call(t, http.MethodGet, "/api/devices", e.admin(mw.RoleViewer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Devices []deviceResponse `json:"devices"`
	}](t, w)
	require.Len(t, list.Devices, 1)
	assert.Equal(t, created.ID, list.Devices[0].ID)

	w = e.call(t, http.MethodGet, "/api/devices/"+created.ID.String(), e.admin(mw.RoleViewer), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Another tenant may not see or drive this device.
	other := map[string]string{mw.HeaderTenantID: uuid.NewString(), mw.HeaderUserRole: mw.RoleAdmin}
	w = e.call(t, http.MethodGet, "/api/devices/"+created.ID.String(), other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = e.call(t, http.MethodPost, "/api/devices/"+created.ID.String()+"/pairing-code", other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.call(t, http.MethodGet, "/api/devices/"+uuid.NewString(), e.admin(mw.RoleViewer), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.call(t, http.MethodGet, "/api/devices/not-a-uuid", e.admin(mw.RoleViewer), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnqueueCommand_Validation(t *testing.T) {
	e := newEnv(t)
	id, _ := e.createAndPair(t)
	path := "/api/devices/" + id.String() + "/commands"

	w := e.call(t, http.MethodPost, path, e.admin(mw.RoleAdmin), gin.H{"command_type": "self_destruct"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.call(t, http.MethodPost, path, e.admin(mw.RoleViewer), gin.H{"command_type": "reboot"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.call(t, http.MethodPost, "/api/devices/"+uuid.NewString()+"/commands", e.admin(mw.RoleAdmin), gin.H{"command_type": "reboot"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.call(t, http.MethodPost, path, e.admin(mw.RoleAdmin), gin.H{"command_type": "set_volume", "payload": gin.H{"level": 40}, "ttl_seconds": 60})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.call(t, http.MethodGet, path+"?limit=abc", e.admin(mw.RoleViewer), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEmergencyOverride(t *testing.T) {
	e := newEnv(t)
	id, key := e.createAndPair(t)
	pl := e.seedPlaylist(t)
	alert := e.seedPlaylist(t)

	w := e.call(t, http.MethodPut, "/api/devices/"+id.String()+"/assignment", e.admin(mw.RoleAdmin), gin.H{"assigned_playlist_id": pl.ID})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.call(t, http.MethodPut, "/api/tenant/emergency", e.admin(mw.RoleAdmin), gin.H{"content_type": "playlist", "content_id": alert.ID, "duration_minutes": 30})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = e.call(t, http.MethodGet, "/api/device/content", deviceHeaders(id, key), nil)
	require.Equal(t, http.StatusOK, w.Code)
	content := decode[resolve.Content](t, w)
	assert.Equal(t, resolve.SourceEmergency, content.Source)
	assert.Equal(t, alert.ID, content.Playlist.ID)

	w = e.call(t, http.MethodDelete, "/api/tenant/emergency", e.admin(mw.RoleAdmin), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = e.call(t, http.MethodGet, "/api/device/content", deviceHeaders(id, key), nil)
	content = decode[resolve.Content](t, w)
	assert.Equal(t, resolve.SourcePlaylist, content.Source)
	assert.Equal(t, pl.ID, content.Playlist.ID)

	w = e.call(t, http.MethodPut, "/api/tenant/emergency", e.admin(mw.RoleAdmin), gin.H{"content_type": "video", "content_id": alert.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Len(t, e.feed.events, 2)
}

func TestContentChanged(t *testing.T) {
	e := newEnv(t)
	id, key := e.createAndPair(t)
	pl := e.seedPlaylist(t)

	w := e.call(t, http.MethodPut, "/api/devices/"+id.String()+"/assignment", e.admin(mw.RoleAdmin), gin.H{"assigned_playlist_id": pl.ID})
	require.Equal(t, http.StatusOK, w.Code)
	w = e.call(t, http.MethodPost, "/api/device/refreshed", deviceHeaders(id, key), gin.H{"config_hash": "abc"})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = e.call(t, http.MethodPost, "/api/content-changes", e.admin(mw.RoleEditor), gin.H{"scope": "playlist", "id": pl.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(1), decode[struct {
		Affected int64 `json:"affected"`
	}](t, w).Affected)

	require.Len(t, e.feed.events, 1)
	assert.Equal(t, "playlist", e.feed.events[0].Scope)
	assert.Equal(t, pl.ID, e.feed.events[0].ID)
	assert.Equal(t, int64(1), e.feed.events[0].Devices)

	w = e.call(t, http.MethodPost, "/api/device/heartbeat", deviceHeaders(id, key), nil)
	assert.True(t, decode[heartbeatBody](t, w).NeedsRefresh)

	w = e.call(t, http.MethodPost, "/api/content-changes", e.admin(mw.RoleEditor), gin.H{"scope": "weather"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateScheduleEntry(t *testing.T) {
	e := newEnv(t)
	pl := e.seedPlaylist(t)
	sched := &model.Schedule{TenantID: e.tenant.ID, Name: "week", IsActive: true}
	require.NoError(t, e.gdb.Create(sched).Error)
	path := "/api/schedules/" + sched.ID.String() + "/entries"

	entry := gin.H{
		"target_type":  "all",
		"content_type": "playlist",
		"content_id":   pl.ID,
		"start_time":   "22:00",
		"end_time":     "02:00",
		"days_of_week": "mon,tue",
	}
	w := e.call(t, http.MethodPost, path, e.admin(mw.RoleEditor), entry)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[model.ScheduleEntry](t, w)
	assert.True(t, created.IsEnabled)
	assert.Equal(t, "1,2", created.DaysOfWeek)

	// Tuesday 01:00 is still inside Monday's overnight window.
	entry["start_time"], entry["end_time"], entry["days_of_week"] = "00:30", "01:30", "tue"
	w = e.call(t, http.MethodPost, path, e.admin(mw.RoleEditor), entry)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	entry["is_enabled"] = false
	w = e.call(t, http.MethodPost, path, e.admin(mw.RoleEditor), entry)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	entry["start_time"] = "25:00"
	w = e.call(t, http.MethodPost, path, e.admin(mw.RoleEditor), entry)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAlertSubscriptions(t *testing.T) {
	e := newEnv(t)
	admin := e.admin(mw.RoleAdmin)

	w := e.call(t, http.MethodGet, "/api/alerts/vapid_public_key", admin, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = e.call(t, http.MethodPut, "/api/alerts/subscriptions", admin, gin.H{"endpoint": "https://push.example/abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.call(t, http.MethodPut, "/api/alerts/subscriptions", admin, gin.H{"endpoint": "https://push.example/abc", "p256dh": "k", "auth": "a"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.call(t, http.MethodGet, "/api/alerts/subscriptions?endpoint=https://push.example/abc", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	other := map[string]string{mw.HeaderTenantID: uuid.NewString(), mw.HeaderUserRole: mw.RoleAdmin}
	w = e.call(t, http.MethodGet, "/api/alerts/subscriptions?endpoint=https://push.example/abc", other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Another tenant cannot take the endpoint over.
	w = e.call(t, http.MethodPut, "/api/alerts/subscriptions", other, gin.H{"endpoint": "https://push.example/abc", "p256dh": "k2", "auth": "a2"})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	w = e.call(t, http.MethodGet, "/api/alerts/subscriptions?endpoint=https://push.example/abc", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.call(t, http.MethodDelete, "/api/alerts/subscriptions", admin, gin.H{"endpoint": "https://push.example/abc"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = e.call(t, http.MethodGet, "/api/alerts/subscriptions?endpoint=https://push.example/abc", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
