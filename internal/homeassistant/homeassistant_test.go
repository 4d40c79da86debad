package homeassistant

import (
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daemonp/vivint2mqtt/internal/config"
	"github.com/daemonp/vivint2mqtt/internal/devices"
	"github.com/daemonp/vivint2mqtt/internal/fakesky"
	"github.com/daemonp/vivint2mqtt/internal/mqtt"
	"github.com/daemonp/vivint2mqtt/internal/panel"
)

type fakeMQTT struct {
	topics *mqtt.Topics

	mu       sync.Mutex
	payloads map[string]interface{}
	order    []string
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{topics: mqtt.NewTopics("vivint2mqtt"), payloads: map[string]interface{}{}}
}

func (f *fakeMQTT) GetPrefix() string    { return "vivint2mqtt" }
func (f *fakeMQTT) Topics() *mqtt.Topics { return f.topics }

func (f *fakeMQTT) Publish(topic string, payload interface{}, retain bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[topic] = payload
	f.order = append(f.order, topic)
}

func (f *fakeMQTT) config(t *testing.T, topic string) map[string]interface{} {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	payload, ok := f.payloads[topic]
	require.True(t, ok, "no config on %s", topic)
	cfg, ok := payload.(map[string]interface{})
	require.True(t, ok, "payload on %s is %T", topic, payload)
	return cfg
}

const bulk = `{
	"panid": 100, "parid": 1, "s": 0, "pmac": "00:11",
	"d": [
		{"_id": 1, "t": "door_lock_device", "n": "Front Door", "s": 0, "bl": 80},
		{"_id": 2, "t": "primary_touch_link_device", "n": "Panel", "pant": 1, "csv": "1.2.3"},
		{"_id": 3, "t": "wireless_sensor", "n": "Hall", "ser": "S3", "ec": 1249, "set": 1, "eqt": 2},
		{"_id": 4, "t": "thermostat_device", "n": "Hallway", "mint": 10, "maxt": 30}
	]
}`

func newPanel(t *testing.T) *panel.Panel {
	t.Helper()
	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(bulk), &data))
	return panel.New(data, &fakesky.API{}, devices.Env{}, panel.Options{
		SystemName: func() string { return "Home" },
	})
}

func newHA(f *fakeMQTT) *HomeAssistant {
	return New(&config.HomeAssistantConfig{Discovery: true, Prefix: "homeassistant"}, f, nil)
}

func TestPublishPanel(t *testing.T) {
	f := newFakeMQTT()
	newHA(f).PublishPanel(newPanel(t))

	cfg := f.config(t, "homeassistant/alarm_control_panel/vivint2mqtt/100_1/config")
	assert.Equal(t, "vivint2mqtt/100/1", cfg["state_topic"])
	assert.Equal(t, "vivint2mqtt/100/1/set", cfg["command_topic"])
	assert.Equal(t, mqtt.CmdArmStay, cfg["payload_arm_home"])
	assert.Equal(t, "vivint2mqtt/status", cfg["availability_topic"])
	assert.Equal(t, "home", cfg["object_id"])

	device := cfg["device"].(map[string]interface{})
	assert.Equal(t, "Vivint", device["manufacturer"])
	assert.Equal(t, "Sky Control", device["model"])
	assert.Equal(t, "1.2.3", device["sw_version"])
}

func TestPublishDevice(t *testing.T) {
	f := newFakeMQTT()
	ha := newHA(f)
	p := newPanel(t)

	lock, _ := p.Device(1)
	ha.PublishDevice(p, lock)
	cfg := f.config(t, "homeassistant/lock/vivint2mqtt/100_1/config")
	assert.Equal(t, "vivint2mqtt/100/1/1/set", cfg["command_topic"])
	assert.Equal(t, "front-door", cfg["object_id"])
	assert.Equal(t, "vivint2mqtt_100_1", cfg["unique_id"])
	assert.Equal(t, "vivint_100_1", cfg["device"].(map[string]interface{})["via_device"])

	battery := f.config(t, "homeassistant/sensor/vivint2mqtt/100_1_battery/config")
	assert.Equal(t, "battery", battery["device_class"])
	assert.Equal(t, "vivint2mqtt_100_1_battery", battery["unique_id"])

	sensor, _ := p.Device(3)
	ha.PublishDevice(p, sensor)
	cfg = f.config(t, "homeassistant/binary_sensor/vivint2mqtt/100_3/config")
	assert.Equal(t, "motion", cfg["device_class"])
	bypass := f.config(t, "homeassistant/switch/vivint2mqtt/100_3_bypass/config")
	assert.Equal(t, mqtt.CmdBypass, bypass["payload_on"])

	thermostat, _ := p.Device(4)
	ha.PublishDevice(p, thermostat)
	cfg = f.config(t, "homeassistant/climate/vivint2mqtt/100_4/config")
	assert.Equal(t, 10.0, cfg["min_temp"])
	assert.Equal(t, 30.0, cfg["max_temp"])
	assert.NotContains(t, cfg, "state_topic")
}

func TestPanelDeviceIsNotAnnounced(t *testing.T) {
	f := newFakeMQTT()
	p := newPanel(t)
	d, _ := p.Device(2)

	newHA(f).PublishDevice(p, d)
	assert.Empty(t, f.order)
}

func TestRemoveDevice(t *testing.T) {
	f := newFakeMQTT()
	ha := newHA(f)
	p := newPanel(t)
	lock, _ := p.Device(1)

	ha.RemoveDevice(p, lock)

	assert.ElementsMatch(t, []string{
		"homeassistant/lock/vivint2mqtt/100_1/config",
		"homeassistant/sensor/vivint2mqtt/100_1_battery/config",
	}, f.order)
	assert.Equal(t, "", f.payloads["homeassistant/lock/vivint2mqtt/100_1/config"])
}

func TestAttachAnnouncesMirroredPanels(t *testing.T) {
	f := newFakeMQTT()
	p := newPanel(t)
	bridge := mqtt.NewMQTT(&config.MQTTConfig{Prefix: "vivint2mqtt"}, mqtt.SourceFunc(func() []*panel.Panel {
		return []*panel.Panel{p}
	}), nil)

	newHA(f).Attach(bridge)
	bridge.Sync()

	f.config(t, "homeassistant/alarm_control_panel/vivint2mqtt/100_1/config")
	f.config(t, "homeassistant/lock/vivint2mqtt/100_1/config")
	f.config(t, "homeassistant/binary_sensor/vivint2mqtt/100_3/config")
	f.config(t, "homeassistant/climate/vivint2mqtt/100_4/config")
}

func TestGetDeviceClass(t *testing.T) {
	tests := []struct {
		data string
		want string
	}{
		{`{"t": "wireless_sensor", "n": "Kitchen Smoke", "set": 9}`, "smoke"},
		{`{"t": "wireless_sensor", "n": "Upstairs", "set": 14}`, "carbon_monoxide"},
		{`{"t": "wireless_sensor", "n": "Back Door", "eqt": 1}`, "door"},
		{`{"t": "wireless_sensor", "n": "Basement", "eqt": 8}`, "moisture"},
		{`{"t": "wireless_sensor", "n": "Office"}`, "motion"},
	}
	for _, tt := range tests {
		var data map[string]any
		require.NoError(t, json.Unmarshal([]byte(tt.data), &data))
		sensor := devices.New(data, devices.Owner{}, devices.Env{}).(*devices.WirelessSensor)
		assert.Equal(t, tt.want, getDeviceClass(sensor), tt.data)
	}
}
