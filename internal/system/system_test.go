package system

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daemonp/vivint2mqtt/internal/devices"
	"github.com/daemonp/vivint2mqtt/internal/fakesky"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

const twoPartitions = `{"system": {"panid": 10, "fea": {"x": 1}, "par": [
	{"panid": 10, "parid": 1, "s": 0, "d": [{"_id": 1, "t": "door_lock_device", "s": 0}]},
	{"panid": 10, "parid": 2, "s": 0, "d": [{"_id": 1, "t": "door_lock_device", "s": 0}]}
]}}`

func newSystem(t *testing.T, api *fakesky.API) *System {
	t.Helper()
	return New(decode(t, twoPartitions), api, devices.Env{}, Options{Name: "Home", IsAdmin: true})
}

func TestNew(t *testing.T) {
	s := newSystem(t, &fakesky.API{})

	assert.Equal(t, 10, s.ID())
	assert.Equal(t, "Home", s.Name())
	assert.True(t, s.IsAdmin())
	require.Len(t, s.Panels(), 2)
	assert.Equal(t, "Home", s.Panels()[0].Name())
	assert.True(t, s.Has("fea"))
}

func TestPartitionRouting(t *testing.T) {
	s := newSystem(t, &fakesky.API{})
	ctx := context.Background()

	s.HandlePushMessage(ctx, decode(t, `{"t": "account_partition", "panid": 10, "parid": 2, "da": {"s": 3}}`))

	first, _ := s.Panel(10, 1)
	second, _ := s.Panel(10, 2)
	assert.True(t, first.IsDisarmed())
	assert.True(t, second.IsArmedStay())

	assert.NotPanics(t, func() {
		s.HandlePushMessage(ctx, decode(t, `{"t": "account_partition", "panid": 10, "parid": 9, "da": {"s": 4}}`))
		s.HandlePushMessage(ctx, decode(t, `{"t": "account_partition", "panid": 10, "da": {"s": 4}}`))
	})
	assert.True(t, first.IsDisarmed())
	assert.True(t, second.IsArmedStay())
}

func TestSystemMessageRequiresUpdateOperation(t *testing.T) {
	s := newSystem(t, &fakesky.API{})
	ctx := context.Background()

	s.HandlePushMessage(ctx, decode(t, `{"t": "account_system", "op": "c", "da": {"sn": "ignored"}}`))
	assert.False(t, s.Has("sn"))

	s.HandlePushMessage(ctx, decode(t, `{"t": "account_system", "da": {"sn": "ignored"}}`))
	assert.False(t, s.Has("sn"))

	s.HandlePushMessage(ctx, decode(t, `{"t": "account_system", "op": "u", "da": {"sn": "Cabin"}}`))
	assert.Equal(t, "Cabin", s.String("sn"))
	assert.True(t, s.Has("fea"))
}

func TestUnknownMessageTypeIsDropped(t *testing.T) {
	s := newSystem(t, &fakesky.API{})
	before := s.Data()
	assert.NotPanics(t, func() {
		s.HandlePushMessage(context.Background(), decode(t, `{"t": "presence", "da": {"s": 1}}`))
	})
	assert.Equal(t, before, s.Data())
}

func TestRefreshMergesAndAddsPanels(t *testing.T) {
	api := &fakesky.API{}
	s := newSystem(t, api)
	original := s.Panels()[0]

	api.SetSystem(10, decode(t, `{"system": {"panid": 10, "par": [
		{"panid": 10, "parid": 1, "s": 4, "d": [{"_id": 1, "t": "door_lock_device", "s": 1}]},
		{"panid": 10, "parid": 3, "s": 0, "d": []}
	]}}`))
	require.NoError(t, s.Refresh(context.Background()))

	panels := s.Panels()
	require.Len(t, panels, 3)
	assert.Same(t, original, panels[0])
	assert.True(t, original.IsArmedAway())
	assert.Equal(t, 3, panels[2].PartitionID())
	assert.Equal(t, []fakesky.Call{{Method: "GetSystemData", Args: []any{10}}}, api.CallsTo("GetSystemData"))
}

func TestRefreshError(t *testing.T) {
	api := &fakesky.API{Err: errors.New("offline")}
	s := newSystem(t, api)

	err := s.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, api.Err)
	assert.Len(t, s.Panels(), 2)
}
