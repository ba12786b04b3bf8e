package resolve

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"signage-backend/internal/model"
)

func TestEffectiveDuration(t *testing.T) {
	testCases := []struct {
		name                string
		item, media, plDeft *int
		want                int
	}{
		{"item override wins", intPtr(3), intPtr(8), intPtr(10), 3},
		{"media duration when item unset", nil, intPtr(5), intPtr(10), 5},
		{"playlist default when media unset", nil, nil, intPtr(10), 10},
		{"playlist default other than global", nil, nil, intPtr(7), 7},
		{"global default", nil, nil, nil, DefaultItemDuration},
		{"zero counts as unset", intPtr(0), intPtr(0), nil, DefaultItemDuration},
		{"negative counts as unset", intPtr(-4), intPtr(6), nil, 6},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EffectiveDuration(tc.item, tc.media, tc.plDeft))
		})
	}
}

func TestExpandPlaylist_OrdersByPosition(t *testing.T) {
	src := newMemSource()
	tenant := uuid.New()
	a := src.addMedia(tenant, intPtr(8))
	b := src.addMedia(tenant, nil)
	p := src.addPlaylist(tenant, nil, item(b, 2, intPtr(3)), item(a, 1, nil))

	view := expandPlaylist(p)

	if assert.Len(t, view.Items, 2) {
		assert.Equal(t, a.ID, view.Items[0].MediaID)
		assert.Equal(t, 8, view.Items[0].Duration)
		assert.Equal(t, b.ID, view.Items[1].MediaID)
		assert.Equal(t, 3, view.Items[1].Duration)
	}
	assert.Equal(t, DefaultItemDuration, view.DefaultDuration)
}

func TestWrapMedia(t *testing.T) {
	m := &model.MediaAsset{Base: model.Base{ID: uuid.New()}, Name: "promo", URL: "u"}
	view := wrapMedia(m)

	assert.True(t, view.Synthetic)
	assert.Equal(t, m.ID, view.ID)
	if assert.Len(t, view.Items, 1) {
		assert.Equal(t, DefaultItemDuration, view.Items[0].Duration)
	}
}

func TestComputeHash_IgnoresLiveness(t *testing.T) {
	id := uuid.New()
	a := &Content{Mode: ModePlaylist, Items: []Item{{URL: "a", Duration: 5}}, Device: DeviceView{ID: id, IsOnline: true}}
	b := &Content{Mode: ModePlaylist, Items: []Item{{URL: "a", Duration: 5}}, Device: DeviceView{ID: id, IsOnline: false}}
	c := &Content{Mode: ModePlaylist, Items: []Item{{URL: "b", Duration: 5}}, Device: DeviceView{ID: id}}

	assert.Equal(t, computeHash(a), computeHash(b))
	assert.NotEqual(t, computeHash(a), computeHash(c))
	assert.Len(t, computeHash(a), 64)
}
