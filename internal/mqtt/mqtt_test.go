package mqtt

import (
	"context"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daemonp/vivint2mqtt/internal/config"
	"github.com/daemonp/vivint2mqtt/internal/devices"
	"github.com/daemonp/vivint2mqtt/internal/entity"
	"github.com/daemonp/vivint2mqtt/internal/fakesky"
	"github.com/daemonp/vivint2mqtt/internal/panel"
	"github.com/daemonp/vivint2mqtt/internal/types"
)

type doneToken struct {
	mqtt.Token
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

type published struct {
	Topic   string
	Payload string
	Retain  bool
}

// fakeClient implements the parts of the paho client the bridge calls.
type fakeClient struct {
	mqtt.Client

	mu           sync.Mutex
	published    []published
	subscribed   []string
	disconnected bool
}

func (c *fakeClient) IsConnected() bool { return true }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, published{Topic: topic, Payload: string(payload.([]byte)), Retain: retained})
	return doneToken{}
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed = append(c.subscribed, topic)
	return doneToken{}
}

func (c *fakeClient) Disconnect(quiesce uint) {
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
}

func (c *fakeClient) on(topic string) []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []published
	for _, p := range c.published {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

func (c *fakeClient) last(t *testing.T, topic string) map[string]any {
	t.Helper()
	msgs := c.on(topic)
	require.NotEmpty(t, msgs, "nothing published to %s", topic)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(msgs[len(msgs)-1].Payload), &m))
	return m
}

type fakeMessage struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return m.payload }

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

const bulk = `{
	"panid": 100, "parid": 1, "s": 4,
	"d": [
		{"_id": 1, "t": "door_lock_device", "n": "Front Door", "s": 0, "bl": 80},
		{"_id": 2, "t": "primary_touch_link_device", "n": "Panel", "pant": 1},
		{"_id": 3, "t": "wireless_sensor", "n": "Hall", "ser": "S3", "ec": 1249, "set": 1, "eqt": 1},
		{"_id": 4, "t": "multilevel_switch_device", "n": "Lamp", "s": true, "val": 40},
		{"_id": 5, "t": "thermostat_device", "n": "Hallway", "val": 21.46, "om": 1, "csp": 24, "hsp": 20}
	]
}`

func newBridge(t *testing.T) (*MQTT, *fakeClient, *panel.Panel, *fakesky.API) {
	t.Helper()
	api := &fakesky.API{}
	p := panel.New(decode(t, bulk), api, devices.Env{}, panel.Options{
		SystemName: func() string { return "Home" },
	})
	m := NewMQTT(&config.MQTTConfig{Prefix: "vivint2mqtt", Retain: true}, SourceFunc(func() []*panel.Panel {
		return []*panel.Panel{p}
	}), nil)
	client := &fakeClient{}
	m.client = client
	return m, client, p, api
}

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"localhost", 1883, "tcp://localhost:1883"},
		{"broker", 0, "tcp://broker:1883"},
		{"mqtt://broker:1884", 1883, "tcp://broker:1884"},
		{"mqtts://broker", 8883, "ssl://broker:8883"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BrokerURL(tt.host, tt.port), tt.host)
	}
}

func TestParseCommand(t *testing.T) {
	topics := NewTopics("vivint2mqtt")

	target, ok := topics.parseCommand("vivint2mqtt/100/1/set")
	require.True(t, ok)
	assert.Equal(t, commandTarget{PanelID: 100, PartitionID: 1}, target)

	target, ok = topics.parseCommand("vivint2mqtt/100/1/7/set")
	require.True(t, ok)
	assert.Equal(t, commandTarget{PanelID: 100, PartitionID: 1, DeviceID: 7}, target)

	for _, topic := range []string{
		"other/100/1/set",
		"vivint2mqtt/100/1",
		"vivint2mqtt/100/x/set",
		"vivint2mqtt/100/1/7/8/set",
	} {
		_, ok := topics.parseCommand(topic)
		assert.False(t, ok, topic)
	}
}

func TestOnConnectPublishesStatusAndState(t *testing.T) {
	m, client, _, _ := newBridge(t)

	m.onConnect(client)

	status := client.on("vivint2mqtt/status")
	require.Len(t, status, 1)
	assert.Equal(t, published{Topic: "vivint2mqtt/status", Payload: "online", Retain: true}, status[0])
	assert.ElementsMatch(t, []string{"vivint2mqtt/+/+/set", "vivint2mqtt/+/+/+/set"}, client.subscribed)

	state := client.last(t, "vivint2mqtt/100/1")
	assert.Equal(t, AlarmArmedAway, state["state"])
	assert.Equal(t, "Armed Away", state["armed_state"])
	assert.Equal(t, "Home", state["name"])

	lock := client.last(t, "vivint2mqtt/100/1/1")
	assert.Equal(t, "unlocked", lock["state"])
	assert.Equal(t, 80.0, lock["battery"])

	lamp := client.last(t, "vivint2mqtt/100/1/4")
	assert.Equal(t, "on", lamp["state"])
	assert.Equal(t, 40.0, lamp["level"])

	thermostat := client.last(t, "vivint2mqtt/100/1/5")
	assert.Equal(t, 21.5, thermostat["temperature"])
	assert.Equal(t, "heat", thermostat["mode"])
}

func TestDeviceUpdatesArePublished(t *testing.T) {
	m, client, p, _ := newBridge(t)
	m.onConnect(client)

	lock, ok := p.Device(1)
	require.True(t, ok)
	lock.Update(map[string]any{"s": true}, false)

	assert.Equal(t, "locked", client.last(t, "vivint2mqtt/100/1/1")["state"])
}

func TestSyncWatchesOnce(t *testing.T) {
	m, client, p, _ := newBridge(t)
	var panels, devs int
	m.OnPanel = func(*panel.Panel) { panels++ }
	m.OnDevice = func(*panel.Panel, devices.Device) { devs++ }

	m.Sync()
	m.Sync()
	assert.Equal(t, 1, panels)
	assert.Equal(t, len(p.Devices()), devs)

	lock, _ := p.Device(1)
	before := len(client.on("vivint2mqtt/100/1/1"))
	lock.Update(map[string]any{"s": true}, false)
	assert.Len(t, client.on("vivint2mqtt/100/1/1"), before+1)
}

func TestSyncPicksUpDevicesAddedByRefresh(t *testing.T) {
	m, client, p, _ := newBridge(t)
	var announced []int
	m.OnDevice = func(_ *panel.Panel, d devices.Device) { announced = append(announced, d.ID()) }
	m.Sync()
	announced = nil

	data := decode(t, bulk)
	data["d"] = append(data["d"].([]any), map[string]any{"_id": 9.0, "t": "binary_switch_device", "n": "Porch", "s": false})
	p.Refresh(data, false)
	m.Sync()

	assert.Equal(t, []int{9}, announced)
	require.Len(t, client.on("vivint2mqtt/100/1/9"), 1)

	porch, ok := p.Device(9)
	require.True(t, ok)
	porch.Update(map[string]any{"s": true}, false)
	assert.Len(t, client.on("vivint2mqtt/100/1/9"), 2)
}

func TestCommandsReachTheCloud(t *testing.T) {
	m, _, _, api := newBridge(t)
	ctx := context.Background()

	require.NoError(t, m.Execute(ctx, "vivint2mqtt/100/1/set", []byte(" ARM_STAY ")))
	calls := api.CallsTo("SetAlarmState")
	require.Len(t, calls, 1)
	assert.Equal(t, []any{100, 1, types.ArmedStateArmedStay}, calls[0].Args)

	require.NoError(t, m.Execute(ctx, "vivint2mqtt/100/1/1/set", []byte("lock")))
	require.Len(t, api.CallsTo("SetLockState"), 1)
	assert.Equal(t, []any{100, 1, 1, true}, api.CallsTo("SetLockState")[0].Args)

	require.NoError(t, m.Execute(ctx, "vivint2mqtt/100/1/3/set", []byte("bypass")))
	assert.Len(t, api.CallsTo("SetSensorBypass"), 1)

	require.NoError(t, m.Execute(ctx, "vivint2mqtt/100/1/4/set", []byte("75")))
	assert.Len(t, api.CallsTo("SetSwitchState"), 1)

	require.NoError(t, m.Execute(ctx, "vivint2mqtt/100/1/5/set", []byte(`{"csp": 23}`)))
	thermostat := api.CallsTo("SetThermostatState")
	require.Len(t, thermostat, 1)
	assert.Equal(t, map[string]any{"csp": 23.0}, thermostat[0].Args[3])
}

func TestCommandErrors(t *testing.T) {
	m, _, _, api := newBridge(t)
	ctx := context.Background()

	err := m.Execute(ctx, "vivint2mqtt/100/1/set", []byte("dance"))
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Contains(t, err.Error(), "disarm, arm_stay, arm_away, trigger or reboot")

	assert.ErrorIs(t, m.Execute(ctx, "vivint2mqtt/100/2/set", []byte("disarm")), ErrUnknownTarget)
	assert.ErrorIs(t, m.Execute(ctx, "vivint2mqtt/100/1/99/set", []byte("on")), ErrUnknownTarget)
	assert.ErrorIs(t, m.Execute(ctx, "vivint2mqtt/100/1/2/set", []byte("on")), ErrNotCommandable)
	assert.ErrorIs(t, m.Execute(ctx, "vivint2mqtt/100/1/4/set", []byte("bright")), ErrUnknownCommand)
	assert.ErrorIs(t, m.Execute(ctx, "vivint2mqtt/100/1/5/set", []byte("warmer")), ErrUnknownCommand)
	assert.ErrorIs(t, m.Execute(ctx, "vivint2mqtt/100/1/4/set", []byte("150")), devices.ErrInvalidLevel)
	assert.Empty(t, api.Calls)
}

func TestHandleMessageRunsCommand(t *testing.T) {
	m, client, _, api := newBridge(t)

	m.handleMessage(client, fakeMessage{topic: "vivint2mqtt/100/1/1/set", payload: []byte("unlock")})
	m.handleMessage(client, fakeMessage{topic: "vivint2mqtt/100/1/1/set", payload: []byte("wiggle")})

	calls := api.CallsTo("SetLockState")
	require.Len(t, calls, 1)
	assert.Equal(t, false, calls[0].Args[3])
}

func TestDeletedDeviceIsCleared(t *testing.T) {
	m, client, p, _ := newBridge(t)
	var removed []int
	m.OnDeviceRemoved = func(_ *panel.Panel, d devices.Device) { removed = append(removed, d.ID()) }
	m.onConnect(client)
	lock, _ := p.Device(1)

	p.HandlePushMessage(context.Background(), decode(t, `{"op": "d", "da": {"d": [{"_id": 1}]}}`))

	msgs := client.on("vivint2mqtt/100/1/1")
	require.NotEmpty(t, msgs)
	assert.Equal(t, published{Topic: "vivint2mqtt/100/1/1", Payload: "", Retain: true}, msgs[len(msgs)-1])
	assert.Equal(t, []int{1}, removed)

	counter := lock.(interface{ ListenerCount(string) int })
	assert.Zero(t, counter.ListenerCount(entity.EventUpdate))
}

func TestCloseStopsMirroring(t *testing.T) {
	m, client, p, _ := newBridge(t)
	m.onConnect(client)
	lock, _ := p.Device(1)

	m.Close()

	status := client.on("vivint2mqtt/status")
	assert.Equal(t, "offline", status[len(status)-1].Payload)
	assert.True(t, client.disconnected)

	before := len(client.on("vivint2mqtt/100/1/1"))
	lock.Update(map[string]any{"s": true}, false)
	assert.Len(t, client.on("vivint2mqtt/100/1/1"), before)
}

func TestAlarmState(t *testing.T) {
	assert.Equal(t, AlarmDisarmed, alarmState(types.ArmedStateDisarmed))
	assert.Equal(t, AlarmArming, alarmState(types.ArmedStateArmingStayInExitDelay))
	assert.Equal(t, AlarmArmedHome, alarmState(types.ArmedStateArmedStay))
	assert.Equal(t, AlarmPending, alarmState(types.ArmedStateArmedAwayInEntryDelay))
	assert.Equal(t, AlarmTriggered, alarmState(types.ArmedStateAlarmFire))
	assert.Equal(t, AlarmDisarmed, alarmState(types.ArmedStateWalkTest))
}
