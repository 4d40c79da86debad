package homeassistant

import (
	"fmt"

	"github.com/daemonp/vivint2mqtt/internal/config"
	"github.com/daemonp/vivint2mqtt/internal/devices"
	"github.com/daemonp/vivint2mqtt/internal/log"
	"github.com/daemonp/vivint2mqtt/internal/mqtt"
	"github.com/daemonp/vivint2mqtt/internal/panel"
	"github.com/daemonp/vivint2mqtt/internal/util"
)

const thermostatModeTemplate = `{% set modes = {'off': 0, 'heat': 1, 'cool': 2, 'heat_cool': 3} %}{"om": {{ modes[value] }}}`

// HomeAssistant publishes MQTT discovery configs so Home Assistant picks up
// every partition and device the bridge mirrors.
type HomeAssistant struct {
	config *config.HomeAssistantConfig
	mqtt   mqtt.MQTTClient
	log    *log.Logger
}

// discovery is one config message: an entity of a given component.
type discovery struct {
	component string
	objectID  string
	config    map[string]interface{}
}

func New(cfg *config.HomeAssistantConfig, mqttClient mqtt.MQTTClient, logger *log.Logger) *HomeAssistant {
	return &HomeAssistant{
		config: cfg,
		mqtt:   mqttClient,
		log:    log.OrNop(logger),
	}
}

// Attach makes the bridge announce partitions and devices as it starts
// mirroring them, and withdraw devices that get deleted.
func (ha *HomeAssistant) Attach(bridge *mqtt.MQTT) {
	ha.log.Info("Starting Home Assistant integration")
	bridge.OnPanel = ha.PublishPanel
	bridge.OnDevice = ha.PublishDevice
	bridge.OnDeviceRemoved = ha.RemoveDevice
}

func panelIdentifier(panelID int) string {
	return fmt.Sprintf("vivint_%d", panelID)
}

func (ha *HomeAssistant) availability() string {
	return ha.mqtt.Topics().Status()
}

func (ha *HomeAssistant) PublishPanel(p *panel.Panel) {
	topics := ha.mqtt.Topics()
	name := util.Normalize(p.Name())
	device := map[string]interface{}{
		"identifiers":  []string{fmt.Sprintf("%s_%d", panelIdentifier(p.ID()), p.PartitionID())},
		"name":         name,
		"manufacturer": p.Manufacturer(),
		"model":        p.Model(),
		"sw_version":   p.SoftwareVersion(),
		"connections":  [][]string{{"mac", p.MACAddress()}},
	}
	config := map[string]interface{}{
		"name":                 nil,
		"object_id":            util.Slugify(name),
		"unique_id":            fmt.Sprintf("%s_%d_%d_alarm", ha.mqtt.GetPrefix(), p.ID(), p.PartitionID()),
		"state_topic":          topics.Panel(p),
		"value_template":       "{{ value_json.state }}",
		"command_topic":        topics.PanelCommand(p),
		"payload_disarm":       mqtt.CmdDisarm,
		"payload_arm_home":     mqtt.CmdArmStay,
		"payload_arm_away":     mqtt.CmdArmAway,
		"payload_trigger":      mqtt.CmdTrigger,
		"code_arm_required":    false,
		"code_disarm_required": false,
		"supported_features":   []string{"arm_home", "arm_away", "trigger"},
		"availability_topic":   ha.availability(),
		"device":               device,
	}

	ha.publishConfig(discovery{
		component: "alarm_control_panel",
		objectID:  fmt.Sprintf("%d_%d", p.ID(), p.PartitionID()),
		config:    config,
	})
}

func (ha *HomeAssistant) PublishDevice(p *panel.Panel, d devices.Device) {
	for _, entry := range ha.discoveries(p, d) {
		ha.publishConfig(entry)
	}
}

// RemoveDevice withdraws every entity announced for d.
func (ha *HomeAssistant) RemoveDevice(p *panel.Panel, d devices.Device) {
	for _, entry := range ha.discoveries(p, d) {
		ha.mqtt.Publish(ha.configTopic(entry), "", true)
	}
}

func (ha *HomeAssistant) deviceBlock(p *panel.Panel, d devices.Device) map[string]interface{} {
	block := map[string]interface{}{
		"identifiers":  []string{fmt.Sprintf("%s_%d", panelIdentifier(d.PanelID()), d.ID())},
		"name":         util.Normalize(d.Name()),
		"manufacturer": d.Manufacturer(),
		"model":        d.Model(),
		"via_device":   fmt.Sprintf("%s_%d", panelIdentifier(p.ID()), p.PartitionID()),
	}
	if v := d.SoftwareVersion(); v != "" {
		block["sw_version"] = v
	}
	if s := d.SerialNumber(); s != "" {
		block["serial_number"] = s
	}
	return block
}

// discoveries lists the entities a device is announced as. Devices with
// nothing to show, such as the panel itself, yield none.
func (ha *HomeAssistant) discoveries(p *panel.Panel, d devices.Device) []discovery {
	topics := ha.mqtt.Topics()
	objectID := fmt.Sprintf("%d_%d", d.PanelID(), d.ID())
	name := util.Normalize(d.Name())

	base := func(suffix string) map[string]interface{} {
		uniqueID := fmt.Sprintf("%s_%s", ha.mqtt.GetPrefix(), objectID)
		slug := util.Slugify(name)
		if suffix != "" {
			uniqueID += "_" + suffix
			slug += "_" + suffix
		}
		return map[string]interface{}{
			"object_id":          slug,
			"unique_id":          uniqueID,
			"state_topic":        topics.Device(d),
			"availability_topic": ha.availability(),
			"device":             ha.deviceBlock(p, d),
		}
	}

	var out []discovery
	switch v := d.(type) {
	case *devices.DoorLock:
		config := base("")
		config["name"] = nil
		config["command_topic"] = topics.DeviceCommand(d)
		config["value_template"] = "{{ value_json.state }}"
		config["payload_lock"] = mqtt.CmdLock
		config["payload_unlock"] = mqtt.CmdUnlock
		config["state_locked"] = "locked"
		config["state_unlocked"] = "unlocked"
		out = append(out, discovery{"lock", objectID, config})

	case *devices.BinarySwitch:
		config := base("")
		config["name"] = nil
		config["command_topic"] = topics.DeviceCommand(d)
		config["value_template"] = "{{ value_json.state }}"
		config["payload_on"] = mqtt.CmdOn
		config["payload_off"] = mqtt.CmdOff
		config["state_on"] = "on"
		config["state_off"] = "off"
		out = append(out, discovery{"switch", objectID, config})

	case *devices.MultilevelSwitch:
		config := base("")
		config["name"] = nil
		config["command_topic"] = topics.DeviceCommand(d)
		config["state_value_template"] = "{{ value_json.state }}"
		config["payload_on"] = mqtt.CmdOn
		config["payload_off"] = mqtt.CmdOff
		config["brightness_command_topic"] = topics.DeviceCommand(d)
		config["brightness_state_topic"] = topics.Device(d)
		config["brightness_value_template"] = "{{ value_json.level }}"
		config["brightness_scale"] = 100
		config["on_command_type"] = "brightness"
		out = append(out, discovery{"light", objectID, config})

	case *devices.GarageDoor:
		config := base("")
		config["name"] = nil
		config["device_class"] = "garage"
		config["command_topic"] = topics.DeviceCommand(d)
		config["value_template"] = "{{ value_json.state }}"
		config["payload_open"] = mqtt.CmdOpen
		config["payload_close"] = mqtt.CmdClose
		config["payload_stop"] = nil
		out = append(out, discovery{"cover", objectID, config})

	case *devices.WirelessSensor:
		config := base("")
		config["name"] = nil
		config["device_class"] = getDeviceClass(v)
		config["value_template"] = "{{ value_json.state }}"
		config["payload_on"] = "on"
		config["payload_off"] = "off"
		out = append(out, discovery{"binary_sensor", objectID, config})

		bypass := base("bypass")
		bypass["name"] = "Bypass"
		bypass["command_topic"] = topics.DeviceCommand(d)
		bypass["value_template"] = "{{ 'bypass' if value_json.bypassed else 'unbypass' }}"
		bypass["payload_on"] = mqtt.CmdBypass
		bypass["payload_off"] = mqtt.CmdUnbypass
		bypass["state_on"] = mqtt.CmdBypass
		bypass["state_off"] = mqtt.CmdUnbypass
		bypass["entity_category"] = "config"
		out = append(out, discovery{"switch", objectID + "_bypass", bypass})

	case *devices.Thermostat:
		config := base("")
		config["name"] = nil
		config["current_temperature_topic"] = topics.Device(d)
		config["current_temperature_template"] = "{{ value_json.temperature }}"
		config["current_humidity_topic"] = topics.Device(d)
		config["current_humidity_template"] = "{{ value_json.humidity }}"
		config["mode_state_topic"] = topics.Device(d)
		config["mode_state_template"] = "{{ value_json.mode }}"
		config["mode_command_topic"] = topics.DeviceCommand(d)
		config["mode_command_template"] = thermostatModeTemplate
		config["modes"] = []string{"off", "heat", "cool", "heat_cool"}
		config["temperature_low_state_topic"] = topics.Device(d)
		config["temperature_low_state_template"] = "{{ value_json.heat_set_point }}"
		config["temperature_low_command_topic"] = topics.DeviceCommand(d)
		config["temperature_low_command_template"] = `{"hsp": {{ value }}}`
		config["temperature_high_state_topic"] = topics.Device(d)
		config["temperature_high_state_template"] = "{{ value_json.cool_set_point }}"
		config["temperature_high_command_topic"] = topics.DeviceCommand(d)
		config["temperature_high_command_template"] = `{"csp": {{ value }}}`
		config["temperature_unit"] = "C"
		if t, ok := v.MinimumTemperature(); ok {
			config["min_temp"] = t
		}
		if t, ok := v.MaximumTemperature(); ok {
			config["max_temp"] = t
		}
		delete(config, "state_topic")
		out = append(out, discovery{"climate", objectID, config})

	case *devices.Camera:
		privacy := base("privacy")
		privacy["name"] = "Privacy mode"
		privacy["command_topic"] = topics.DeviceCommand(d)
		privacy["value_template"] = "{{ 'privacy_on' if value_json.privacy else 'privacy_off' }}"
		privacy["payload_on"] = mqtt.CmdPrivacyOn
		privacy["payload_off"] = mqtt.CmdPrivacyOff
		privacy["state_on"] = mqtt.CmdPrivacyOn
		privacy["state_off"] = mqtt.CmdPrivacyOff
		out = append(out, discovery{"switch", objectID + "_privacy", privacy})

		reboot := base("reboot")
		reboot["name"] = "Reboot"
		reboot["command_topic"] = topics.DeviceCommand(d)
		reboot["payload_press"] = mqtt.CmdReboot
		reboot["device_class"] = "restart"
		delete(reboot, "state_topic")
		out = append(out, discovery{"button", objectID + "_reboot", reboot})

	default:
		return nil
	}

	if d.HasBattery() {
		battery := base("battery")
		battery["name"] = "Battery"
		battery["device_class"] = "battery"
		battery["unit_of_measurement"] = "%"
		battery["value_template"] = "{{ value_json.battery }}"
		battery["entity_category"] = "diagnostic"
		out = append(out, discovery{"sensor", objectID + "_battery", battery})
	}
	return out
}

func (ha *HomeAssistant) configTopic(entry discovery) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", ha.config.Prefix, entry.component, ha.mqtt.GetPrefix(), entry.objectID)
}

func (ha *HomeAssistant) publishConfig(entry discovery) {
	ha.log.Debug("Publishing %s discovery for %s", entry.component, entry.objectID)
	ha.mqtt.Publish(ha.configTopic(entry), entry.config, true)
}
