package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("vivint:\n  username: me@example.com\n  password: secret\n"))
	require.NoError(t, err)

	assert.Equal(t, "vivint2mqtt", cfg.MQTT.ClientID)
	assert.Equal(t, "localhost", cfg.MQTT.Host)
	assert.Equal(t, 1883, cfg.MQTT.Port)
	assert.Equal(t, 60, cfg.MQTT.Keepalive)
	assert.Equal(t, "vivint2mqtt", cfg.MQTT.Prefix)
	assert.Equal(t, "homeassistant", cfg.HomeAssistant.Prefix)
	assert.Equal(t, ":9100", cfg.Metrics.Listen)
	assert.Equal(t, "info", cfg.Log)
	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 2*time.Minute, cfg.ValidityTimeout)
	assert.Equal(t, 4, cfg.DispatcherWorkers)
	assert.NoError(t, cfg.Validate())
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
vivint:
  username: me@example.com
  refresh_token: tok
mqtt:
  host: broker
  port: 8883
  qos: 1
  retain: true
homeassistant:
  discovery: true
log: debug
refresh_interval: 30s
validity_timeout: 10s
dispatcher_workers: 2
zwave_db: /etc/vivint/zwave.json
`))
	require.NoError(t, err)

	assert.Equal(t, "broker", cfg.MQTT.Host)
	assert.Equal(t, 8883, cfg.MQTT.Port)
	assert.True(t, cfg.MQTT.Retain)
	assert.True(t, cfg.HomeAssistant.Discovery)
	assert.Equal(t, "debug", cfg.Log)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 10*time.Second, cfg.ValidityTimeout)
	assert.Equal(t, 2, cfg.DispatcherWorkers)
	assert.Equal(t, "/etc/vivint/zwave.json", cfg.ZWaveDB)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no username", "vivint: {password: x}", "vivint.username"},
		{"no secret", "vivint: {username: x}", "vivint.password"},
		{"bad qos", "vivint: {username: x, password: y}\nmqtt: {qos: 3}", "mqtt.qos"},
		{"bad workers", "vivint: {username: x, password: y}\ndispatcher_workers: -1", "dispatcher_workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("vivint: {username: x, password: y}\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "x", cfg.Vivint.Username)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
