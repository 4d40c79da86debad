package account

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daemonp/vivint2mqtt/internal/devices"
	"github.com/daemonp/vivint2mqtt/internal/fakesky"
	"github.com/daemonp/vivint2mqtt/internal/skyapi"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

type fakeTransport struct {
	mu      sync.Mutex
	channel string
	userID  string
	handler Handler
	closed  int
	err     error
}

func (f *fakeTransport) Subscribe(ctx context.Context, channel, userID string, handler Handler) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.channel, f.userID, f.handler = channel, userID, handler
	return f, nil
}

func (f *fakeTransport) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeTransport) deliver(msg map[string]any) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(msg)
}

const homeSystem = `{"system": {"panid": 42, "par": [
	{"panid": 42, "parid": 1, "s": 0, "d": [{"_id": 1, "t": "door_lock_device", "s": 0}]}
]}}`

func newAPI(t *testing.T) *fakesky.API {
	api := &fakesky.API{
		AuthUser: decode(t, `{"u": {"_id": "abc123", "mbc": "chan-9", "system": [{"panid": 42, "sn": "Home", "ad": true}]}}`),
		Token:    "refresh-1",
	}
	api.SetSystem(42, decode(t, homeSystem))
	return api
}

func TestRefreshCreatesSystemFromSnapshot(t *testing.T) {
	api := newAPI(t)
	a := New(api, devices.Env{}, Options{})

	require.NoError(t, a.Refresh(context.Background(), decode(t, `{"u": {"system": [{"panid": 42, "sn": "Home"}]}}`)))

	s, ok := a.System(42)
	require.True(t, ok)
	assert.Equal(t, "Home", s.Name())
	assert.False(t, s.IsAdmin())
	require.Len(t, s.Panels(), 1)
	assert.Len(t, s.Panels()[0].Devices(), 1)
	assert.Empty(t, api.CallsTo("GetAuthUserData"))
	assert.Len(t, api.CallsTo("GetSystemData"), 1)
}

func TestPanelsFlattensSystems(t *testing.T) {
	api := newAPI(t)
	a := New(api, devices.Env{}, Options{})
	assert.Empty(t, a.Panels())

	require.NoError(t, a.Refresh(context.Background(), nil))

	panels := a.Panels()
	require.Len(t, panels, 1)
	assert.Equal(t, 42, panels[0].ID())
	assert.Equal(t, 1, panels[0].PartitionID())
}

func TestRefreshExistingSystemRefetches(t *testing.T) {
	api := newAPI(t)
	a := New(api, devices.Env{}, Options{})
	ctx := context.Background()

	require.NoError(t, a.Refresh(ctx, nil))
	first, _ := a.System(42)
	require.NoError(t, a.Refresh(ctx, nil))
	second, _ := a.System(42)

	assert.Same(t, first, second)
	assert.Len(t, a.Systems(), 1)
	assert.Len(t, api.CallsTo("GetAuthUserData"), 2)
	assert.Len(t, api.CallsTo("GetSystemData"), 2)
	assert.True(t, first.IsAdmin())
}

func TestRefreshAcceptsUserList(t *testing.T) {
	a := New(newAPI(t), devices.Env{}, Options{})
	require.NoError(t, a.Refresh(context.Background(), decode(t, `{"u": [{"system": [{"panid": 42, "sn": "Home"}]}]}`)))
	assert.Len(t, a.Systems(), 1)
}

func TestRefreshKeepsStateWhenSnapshotFails(t *testing.T) {
	api := newAPI(t)
	a := New(api, devices.Env{}, Options{})
	ctx := context.Background()
	require.NoError(t, a.Refresh(ctx, nil))

	api.ErrFor = map[string]error{"GetAuthUserData": errors.New("offline")}
	assert.NoError(t, a.Refresh(ctx, nil))
	assert.Len(t, a.Systems(), 1)
}

func TestRefreshReportsSystemErrors(t *testing.T) {
	api := newAPI(t)
	api.ErrFor = map[string]error{"GetSystemData": errors.New("boom")}
	a := New(api, devices.Env{}, Options{})

	err := a.Refresh(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load system 42")
	assert.Empty(t, a.Systems())
}

func TestConnectLoadsAndSubscribes(t *testing.T) {
	api := newAPI(t)
	tr := &fakeTransport{}
	a := New(api, devices.Env{}, Options{Transport: tr})

	require.NoError(t, a.Connect(context.Background(), ConnectOptions{LoadDevices: true, Subscribe: true}))
	assert.Equal(t, StateConnected, a.State())
	assert.Equal(t, "PlatformChannel#chan-9", tr.channel)
	assert.Equal(t, "pn-ABC123", tr.userID)
	assert.Len(t, a.Systems(), 1)
	// The connect snapshot is reused, not fetched again.
	assert.Empty(t, api.CallsTo("GetAuthUserData"))
	assert.Equal(t, "refresh-1", a.RefreshToken())

	tr.deliver(decode(t, `{"t": "account_partition", "panid": 42, "parid": 1, "da": {"d": [{"_id": 1, "s": 1, "op": "u"}]}}`))
	s, _ := a.System(42)
	lock, _ := s.Panels()[0].Device(1)
	assert.Equal(t, 1.0, lock.Data()["s"])
}

func TestReconnectCancelsPreviousPushContext(t *testing.T) {
	a := New(newAPI(t), devices.Env{}, Options{})

	require.NoError(t, a.Connect(context.Background(), ConnectOptions{}))
	a.mu.RLock()
	first := a.push
	a.mu.RUnlock()
	require.NotNil(t, first)

	require.NoError(t, a.Connect(context.Background(), ConnectOptions{}))
	assert.ErrorIs(t, first.Err(), context.Canceled)
	a.mu.RLock()
	assert.NoError(t, a.push.Err())
	a.mu.RUnlock()
}

func TestConnectWithoutLoading(t *testing.T) {
	api := newAPI(t)
	a := New(api, devices.Env{}, Options{})

	require.NoError(t, a.Connect(context.Background(), ConnectOptions{}))
	assert.True(t, a.Connected())
	assert.Empty(t, a.Systems())
}

func TestConnectFailure(t *testing.T) {
	api := newAPI(t)
	api.ErrFor = map[string]error{"Connect": skyapi.ErrAuthentication}
	a := New(api, devices.Env{}, Options{})

	err := a.Connect(context.Background(), ConnectOptions{LoadDevices: true})
	assert.ErrorIs(t, err, skyapi.ErrAuthentication)
	assert.Equal(t, StateDisconnected, a.State())
}

func TestSubscribeWithoutChannel(t *testing.T) {
	api := newAPI(t)
	api.AuthUser = decode(t, `{"u": {"_id": "abc"}}`)
	a := New(api, devices.Env{}, Options{Transport: &fakeTransport{}})

	err := a.Connect(context.Background(), ConnectOptions{Subscribe: true})
	assert.ErrorIs(t, err, ErrNoChannel)
}

func TestMFAResumesConnect(t *testing.T) {
	api := newAPI(t)
	api.ErrFor = map[string]error{"Connect": &skyapi.APIError{Op: "login", Err: skyapi.ErrMFARequired}}
	tr := &fakeTransport{}
	a := New(api, devices.Env{}, Options{Transport: tr})
	ctx := context.Background()

	assert.ErrorIs(t, a.VerifyMFA(ctx, "123"), ErrNoMFAPending)

	err := a.Connect(ctx, ConnectOptions{LoadDevices: true, Subscribe: true})
	require.Error(t, err)
	assert.True(t, skyapi.IsMFARequired(err))
	assert.Equal(t, StateMFAPending, a.State())

	require.NoError(t, a.VerifyMFA(ctx, "123"))
	assert.Equal(t, StateConnected, a.State())
	assert.Equal(t, []fakesky.Call{{Method: "VerifyMFA", Args: []any{"123"}}}, api.CallsTo("VerifyMFA"))
	assert.Len(t, a.Systems(), 1)
	assert.Equal(t, "PlatformChannel#chan-9", tr.channel)
}

func TestPushRouting(t *testing.T) {
	api := newAPI(t)
	a := New(api, devices.Env{}, Options{})
	ctx := context.Background()
	require.NoError(t, a.Connect(ctx, ConnectOptions{LoadDevices: true}))
	s, _ := a.System(42)
	p := s.Panels()[0]

	assert.NotPanics(t, func() {
		a.HandlePushMessage(ctx, decode(t, `{"t": "account_partition", "parid": 1, "da": {"s": 4}}`))
		a.HandlePushMessage(ctx, decode(t, `{"t": "account_partition", "panid": 7, "parid": 1, "da": {"s": 4}}`))
	})
	assert.True(t, p.IsDisarmed())

	a.HandlePushMessage(ctx, decode(t, `{"t": "account_partition", "panid": 42, "parid": 1, "da": {"s": 4}}`))
	assert.True(t, p.IsArmedAway())
}

func TestDisconnect(t *testing.T) {
	api := newAPI(t)
	tr := &fakeTransport{}
	a := New(api, devices.Env{}, Options{Transport: tr})
	ctx := context.Background()
	require.NoError(t, a.Connect(ctx, ConnectOptions{LoadDevices: true, Subscribe: true}))
	s, _ := a.System(42)
	p := s.Panels()[0]

	require.NoError(t, a.Disconnect(ctx))
	assert.Equal(t, StateDisconnected, a.State())
	assert.Equal(t, 1, tr.closed)
	assert.Len(t, api.CallsTo("Disconnect"), 1)

	tr.deliver(decode(t, `{"t": "account_partition", "panid": 42, "parid": 1, "da": {"s": 4}}`))
	a.HandlePushMessage(ctx, decode(t, `{"t": "account_partition", "panid": 42, "parid": 1, "da": {"s": 4}}`))
	assert.True(t, p.IsDisarmed())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "mfa_pending", StateMFAPending.String())
	assert.Equal(t, "State(9)", State(9).String())
}
