package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Vivint            VivintConfig        `yaml:"vivint"`
	MQTT              MQTTConfig          `yaml:"mqtt"`
	HomeAssistant     HomeAssistantConfig `yaml:"homeassistant"`
	Metrics           MetricsConfig       `yaml:"metrics"`
	Log               string              `yaml:"log"`
	Cache             bool                `yaml:"cache"`
	RefreshInterval   time.Duration       `yaml:"refresh_interval"`
	ValidityTimeout   time.Duration       `yaml:"validity_timeout"`
	DispatcherWorkers int                 `yaml:"dispatcher_workers"`
	ZWaveDB           string              `yaml:"zwave_db"`
}

type VivintConfig struct {
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	RefreshToken   string `yaml:"refresh_token"`
	PersistSession bool   `yaml:"persist_session"`
	MFACode        string `yaml:"mfa_code"`
	APIURL         string `yaml:"api_url"`
	PubNubOrigin   string `yaml:"pubnub_origin"`
}

type MQTTConfig struct {
	ClientID  string `yaml:"client_id"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Keepalive int    `yaml:"keepalive"`
	Password  string `yaml:"password"`
	QOS       int    `yaml:"qos"`
	Retain    bool   `yaml:"retain"`
	Username  string `yaml:"username"`
	Prefix    string `yaml:"prefix"`
	Clean     bool   `yaml:"clean"`
}

type HomeAssistantConfig struct {
	Discovery bool   `yaml:"discovery"`
	Prefix    string `yaml:"prefix"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

func LoadConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document and fills in defaults.
func Parse(data []byte) (*Config, error) {
	var config Config
	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Set default values
	if config.MQTT.ClientID == "" {
		config.MQTT.ClientID = "vivint2mqtt"
	}
	if config.MQTT.Host == "" {
		config.MQTT.Host = "localhost"
	}
	if config.MQTT.Port == 0 {
		config.MQTT.Port = 1883
	}
	if config.MQTT.Keepalive == 0 {
		config.MQTT.Keepalive = 60
	}
	if config.MQTT.Prefix == "" {
		config.MQTT.Prefix = "vivint2mqtt"
	}
	if config.HomeAssistant.Prefix == "" {
		config.HomeAssistant.Prefix = "homeassistant"
	}
	if config.Metrics.Listen == "" {
		config.Metrics.Listen = ":9100"
	}
	if config.Log == "" {
		config.Log = "info"
	}
	if config.RefreshInterval == 0 {
		config.RefreshInterval = 5 * time.Minute
	}
	if config.ValidityTimeout == 0 {
		config.ValidityTimeout = 2 * time.Minute
	}
	if config.DispatcherWorkers == 0 {
		config.DispatcherWorkers = 4
	}

	return &config, nil
}

// Validate reports the first setting that prevents the bridge from starting.
func (c *Config) Validate() error {
	if c.Vivint.Username == "" {
		return errors.New("vivint.username is required")
	}
	if c.Vivint.Password == "" && c.Vivint.RefreshToken == "" {
		return errors.New("vivint.password or vivint.refresh_token is required")
	}
	if c.MQTT.QOS < 0 || c.MQTT.QOS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QOS)
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh_interval must not be negative, got %s", c.RefreshInterval)
	}
	if c.DispatcherWorkers < 1 {
		return fmt.Errorf("dispatcher_workers must be at least 1, got %d", c.DispatcherWorkers)
	}
	return nil
}
