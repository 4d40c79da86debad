package mqtt

import (
	"strings"

	"github.com/daemonp/vivint2mqtt/internal/devices"
	"github.com/daemonp/vivint2mqtt/internal/panel"
	"github.com/daemonp/vivint2mqtt/internal/types"
	"github.com/daemonp/vivint2mqtt/internal/util"
)

// Alarm states as Home Assistant's alarm_control_panel expects them.
const (
	AlarmDisarmed  = "disarmed"
	AlarmArming    = "arming"
	AlarmArmedHome = "armed_home"
	AlarmArmedAway = "armed_away"
	AlarmPending   = "pending"
	AlarmTriggered = "triggered"
)

func alarmState(s types.ArmedState) string {
	switch s {
	case types.ArmedStateArmingAwayInExitDelay, types.ArmedStateArmingStayInExitDelay:
		return AlarmArming
	case types.ArmedStateArmedStay:
		return AlarmArmedHome
	case types.ArmedStateArmedAway:
		return AlarmArmedAway
	case types.ArmedStateArmedStayInEntryDelay, types.ArmedStateArmedAwayInEntryDelay:
		return AlarmPending
	case types.ArmedStateAlarm, types.ArmedStateAlarmFire:
		return AlarmTriggered
	default:
		return AlarmDisarmed
	}
}

func panelState(p *panel.Panel) map[string]interface{} {
	return map[string]interface{}{
		"id":          p.ID(),
		"partition":   p.PartitionID(),
		"name":        util.Normalize(p.Name()),
		"state":       alarmState(p.State()),
		"armed_state": p.State().String(),
		"devices":     len(p.Devices()),
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func deviceState(d devices.Device) map[string]interface{} {
	state := map[string]interface{}{
		"id":   d.ID(),
		"name": util.Normalize(d.Name()),
		"type": string(d.Type()),
	}
	if level, ok := d.BatteryLevel(); ok {
		state["battery"] = level
	}
	if low, ok := d.LowBattery(); ok {
		state["low_battery"] = low
	}

	switch v := d.(type) {
	case *devices.DoorLock:
		state["state"] = "unlocked"
		if v.IsLocked() {
			state["state"] = "locked"
		}
		state["online"] = v.IsOnline()
		state["tampered"] = v.IsTampered()
	case *devices.BinarySwitch:
		state["state"] = onOff(v.IsOn())
		state["online"] = v.IsOnline()
	case *devices.MultilevelSwitch:
		state["state"] = onOff(v.IsOn())
		state["level"] = v.Level()
		state["online"] = v.IsOnline()
	case *devices.GarageDoor:
		state["state"] = garageState(v.State())
		state["online"] = v.IsOnline()
	case *devices.WirelessSensor:
		state["state"] = onOff(v.IsOn())
		state["bypassed"] = v.IsBypassed()
		state["tampered"] = v.IsTampered()
		state["equipment"] = v.EquipmentType().String()
		state["sensor_type"] = v.SensorType().String()
	case *devices.Thermostat:
		thermostatState(v, state)
	case *devices.Camera:
		state["online"] = v.IsOnline()
		state["privacy"] = v.IsInPrivacyMode()
		state["chime_extender"] = v.ExtendsChime()
		state["signal"] = v.WirelessSignalStrength()
	}
	return state
}

func garageState(s types.GarageDoorState) string {
	switch s {
	case types.GarageDoorStateOpened:
		return "open"
	case types.GarageDoorStateUnknown:
		return "unknown"
	default:
		return strings.ToLower(s.String())
	}
}

// Thermostat modes as Home Assistant's climate platform names them.
var climateModes = map[types.OperatingMode]string{
	types.OperatingModeOff:  "off",
	types.OperatingModeHeat: "heat",
	types.OperatingModeCool: "cool",
	types.OperatingModeAuto: "heat_cool",
}

func thermostatState(t *devices.Thermostat, state map[string]interface{}) {
	if v, ok := t.Temperature(); ok {
		state["temperature"] = util.Round(v, 1)
	}
	if v, ok := t.CoolSetPoint(); ok {
		state["cool_set_point"] = util.Round(v, 1)
	}
	if v, ok := t.HeatSetPoint(); ok {
		state["heat_set_point"] = util.Round(v, 1)
	}
	if v, ok := t.Humidity(); ok {
		state["humidity"] = v
	}
	mode, ok := climateModes[t.OperatingMode()]
	if !ok {
		mode = "auto"
	}
	state["mode"] = mode
	state["operating_state"] = strings.ToLower(t.OperatingState().String())
	state["fan_mode"] = t.FanMode().String()
	state["fan_on"] = t.IsFanOn()
}
