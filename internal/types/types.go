package types

import (
	"fmt"
)

// ArmedState is the arm state of a panel partition.
type ArmedState int

const (
	ArmedStateDisarmed              ArmedState = 0
	ArmedStateArmingAwayInExitDelay ArmedState = 1
	ArmedStateArmingStayInExitDelay ArmedState = 2
	ArmedStateArmedStay             ArmedState = 3
	ArmedStateArmedAway             ArmedState = 4
	ArmedStateArmedStayInEntryDelay ArmedState = 5
	ArmedStateArmedAwayInEntryDelay ArmedState = 6
	ArmedStateAlarm                 ArmedState = 7
	ArmedStateAlarmFire             ArmedState = 8
	ArmedStateDisabled              ArmedState = 11
	ArmedStateWalkTest              ArmedState = 12
)

func (a ArmedState) String() string {
	switch a {
	case ArmedStateDisarmed:
		return "Disarmed"
	case ArmedStateArmingAwayInExitDelay:
		return "Arming Away (Exit Delay)"
	case ArmedStateArmingStayInExitDelay:
		return "Arming Stay (Exit Delay)"
	case ArmedStateArmedStay:
		return "Armed Stay"
	case ArmedStateArmedAway:
		return "Armed Away"
	case ArmedStateArmedStayInEntryDelay:
		return "Armed Stay (Entry Delay)"
	case ArmedStateArmedAwayInEntryDelay:
		return "Armed Away (Entry Delay)"
	case ArmedStateAlarm:
		return "Alarm"
	case ArmedStateAlarmFire:
		return "Fire Alarm"
	case ArmedStateDisabled:
		return "Disabled"
	case ArmedStateWalkTest:
		return "Walk Test"
	default:
		return fmt.Sprintf("Unknown ArmedState(%d)", int(a))
	}
}

// DeviceType is the backend tag naming a device kind.
type DeviceType string

const (
	DeviceTypeBinarySwitch     DeviceType = "binary_switch_device"
	DeviceTypeCamera           DeviceType = "camera_device"
	DeviceTypeDoorLock         DeviceType = "door_lock_device"
	DeviceTypeGarageDoor       DeviceType = "garage_door_device"
	DeviceTypeMultilevelSwitch DeviceType = "multilevel_switch_device"
	DeviceTypeThermostat       DeviceType = "thermostat_device"
	DeviceTypePanel            DeviceType = "primary_touch_link_device"
	DeviceTypeWirelessSensor   DeviceType = "wireless_sensor"
	DeviceTypeUnknown          DeviceType = ""
)

// ParseDeviceType maps a backend tag onto a known DeviceType, or DeviceTypeUnknown.
func ParseDeviceType(s string) DeviceType {
	switch t := DeviceType(s); t {
	case DeviceTypeBinarySwitch, DeviceTypeCamera, DeviceTypeDoorLock, DeviceTypeGarageDoor,
		DeviceTypeMultilevelSwitch, DeviceTypeThermostat, DeviceTypePanel, DeviceTypeWirelessSensor:
		return t
	default:
		return DeviceTypeUnknown
	}
}

func (d DeviceType) String() string {
	if d == DeviceTypeUnknown {
		return "unknown"
	}
	return string(d)
}

// GarageDoorState is the position of a garage door opener.
type GarageDoorState int

const (
	GarageDoorStateUnknown GarageDoorState = iota
	GarageDoorStateClosed
	GarageDoorStateClosing
	GarageDoorStateStopped
	GarageDoorStateOpening
	GarageDoorStateOpened
)

func (g GarageDoorState) String() string {
	switch g {
	case GarageDoorStateUnknown:
		return "Unknown"
	case GarageDoorStateClosed:
		return "Closed"
	case GarageDoorStateClosing:
		return "Closing"
	case GarageDoorStateStopped:
		return "Stopped"
	case GarageDoorStateOpening:
		return "Opening"
	case GarageDoorStateOpened:
		return "Opened"
	default:
		return fmt.Sprintf("Unknown GarageDoorState(%d)", int(g))
	}
}

// ZoneBypass is the bypass status of a sensor zone.
type ZoneBypass int

const (
	ZoneUnbypassed ZoneBypass = iota
	ZoneForceBypassed
	ZoneManuallyBypassed
)

func (z ZoneBypass) String() string {
	switch z {
	case ZoneUnbypassed:
		return "Unbypassed"
	case ZoneForceBypassed:
		return "Force Bypassed"
	case ZoneManuallyBypassed:
		return "Manually Bypassed"
	default:
		return fmt.Sprintf("Unknown ZoneBypass(%d)", int(z))
	}
}

// EquipmentType is the broad class of a wireless sensor.
type EquipmentType int

const (
	EquipmentTypeUnknown     EquipmentType = 0
	EquipmentTypeContact     EquipmentType = 1
	EquipmentTypeMotion      EquipmentType = 2
	EquipmentTypeFreeze      EquipmentType = 6
	EquipmentTypeWater       EquipmentType = 8
	EquipmentTypeTemperature EquipmentType = 10
	EquipmentTypeEmergency   EquipmentType = 11
)

func ParseEquipmentType(v int) EquipmentType {
	switch t := EquipmentType(v); t {
	case EquipmentTypeContact, EquipmentTypeMotion, EquipmentTypeFreeze, EquipmentTypeWater,
		EquipmentTypeTemperature, EquipmentTypeEmergency:
		return t
	default:
		return EquipmentTypeUnknown
	}
}

func (e EquipmentType) String() string {
	switch e {
	case EquipmentTypeContact:
		return "Contact"
	case EquipmentTypeMotion:
		return "Motion"
	case EquipmentTypeFreeze:
		return "Freeze"
	case EquipmentTypeWater:
		return "Water"
	case EquipmentTypeTemperature:
		return "Temperature"
	case EquipmentTypeEmergency:
		return "Emergency"
	default:
		return "Unknown"
	}
}

// SensorType is the zone type programmed for a wireless sensor.
type SensorType int

const (
	SensorTypeUnknown              SensorType = -1
	SensorTypeUnused               SensorType = 0
	SensorTypeExitEntry1           SensorType = 1
	SensorTypeExitEntry2           SensorType = 2
	SensorTypePerimeter            SensorType = 3
	SensorTypeInteriorFollower     SensorType = 4
	SensorTypeDayZone              SensorType = 5
	SensorTypeSilentAlarm          SensorType = 6
	SensorTypeAudibleAlarm         SensorType = 7
	SensorTypeAuxiliaryAlarm       SensorType = 8
	SensorTypeFire                 SensorType = 9
	SensorTypeInteriorWithDelay    SensorType = 10
	SensorTypeCarbonMonoxide       SensorType = 14
	SensorTypeFireWithVerification SensorType = 16
	SensorTypeNoResponse           SensorType = 23
	SensorTypeSilentBurglary       SensorType = 24
	SensorTypeRepeater             SensorType = 25
)

var sensorTypeNames = map[SensorType]string{
	SensorTypeUnused:               "Unused",
	SensorTypeExitEntry1:           "Exit/Entry 1",
	SensorTypeExitEntry2:           "Exit/Entry 2",
	SensorTypePerimeter:            "Perimeter",
	SensorTypeInteriorFollower:     "Interior Follower",
	SensorTypeDayZone:              "Day Zone",
	SensorTypeSilentAlarm:          "Silent Alarm",
	SensorTypeAudibleAlarm:         "Audible Alarm",
	SensorTypeAuxiliaryAlarm:       "Auxiliary Alarm",
	SensorTypeFire:                 "Fire",
	SensorTypeInteriorWithDelay:    "Interior With Delay",
	SensorTypeCarbonMonoxide:       "Carbon Monoxide",
	SensorTypeFireWithVerification: "Fire With Verification",
	SensorTypeNoResponse:           "No Response",
	SensorTypeSilentBurglary:       "Silent Burglary",
	SensorTypeRepeater:             "Repeater",
}

func ParseSensorType(v int) SensorType {
	if _, ok := sensorTypeNames[SensorType(v)]; ok {
		return SensorType(v)
	}
	return SensorTypeUnknown
}

func (s SensorType) String() string {
	if name, ok := sensorTypeNames[s]; ok {
		return name
	}
	return "Unknown"
}

// FanMode is a thermostat fan mode.
type FanMode int

const (
	FanModeUnknown  FanMode = -1
	FanModeAutoLow  FanMode = 0
	FanModeOnLow    FanMode = 1
	FanModeAutoHigh FanMode = 2
	FanModeOnHigh   FanMode = 3
	FanModeTimer15  FanMode = 99
	FanModeTimer30  FanMode = 100
	FanModeTimer60  FanMode = 101
	FanModeTimer45  FanMode = 102
	FanModeTimer120 FanMode = 103
	FanModeTimer240 FanMode = 104
	FanModeTimer480 FanMode = 105
	FanModeTimer960 FanMode = 106
	FanModeTimer720 FanMode = 107
)

var fanModeNames = map[FanMode]string{
	FanModeAutoLow:  "Auto Low",
	FanModeOnLow:    "On Low",
	FanModeAutoHigh: "Auto High",
	FanModeOnHigh:   "On High",
	FanModeTimer15:  "Timer 15",
	FanModeTimer30:  "Timer 30",
	FanModeTimer45:  "Timer 45",
	FanModeTimer60:  "Timer 60",
	FanModeTimer120: "Timer 120",
	FanModeTimer240: "Timer 240",
	FanModeTimer480: "Timer 480",
	FanModeTimer720: "Timer 720",
	FanModeTimer960: "Timer 960",
}

func ParseFanMode(v int) FanMode {
	if _, ok := fanModeNames[FanMode(v)]; ok {
		return FanMode(v)
	}
	return FanModeUnknown
}

func (f FanMode) String() string {
	if name, ok := fanModeNames[f]; ok {
		return name
	}
	return "Unknown"
}

// HoldMode is a thermostat schedule hold mode.
type HoldMode int

const (
	HoldModeBySchedule HoldMode = iota
	HoldModeUntilNext
	HoldModeTwoHours
	HoldModePermanent
)

func (h HoldMode) String() string {
	switch h {
	case HoldModeBySchedule:
		return "By Schedule"
	case HoldModeUntilNext:
		return "Until Next"
	case HoldModeTwoHours:
		return "Two Hours"
	case HoldModePermanent:
		return "Permanent"
	default:
		return fmt.Sprintf("Unknown HoldMode(%d)", int(h))
	}
}

// OperatingMode is a thermostat operating mode.
type OperatingMode int

const (
	OperatingModeOff            OperatingMode = 0
	OperatingModeHeat           OperatingMode = 1
	OperatingModeCool           OperatingMode = 2
	OperatingModeAuto           OperatingMode = 3
	OperatingModeEmergencyHeat  OperatingMode = 4
	OperatingModeResume         OperatingMode = 5
	OperatingModeFanOnly        OperatingMode = 6
	OperatingModeFurnace        OperatingMode = 7
	OperatingModeDryAir         OperatingMode = 8
	OperatingModeMoistAir       OperatingMode = 9
	OperatingModeAutoChangeover OperatingMode = 10
	OperatingModeEnergySaveHeat OperatingMode = 11
	OperatingModeEnergySaveCool OperatingMode = 12
	OperatingModeAway           OperatingMode = 13
	OperatingModeEco            OperatingMode = 100
)

var operatingModeNames = map[OperatingMode]string{
	OperatingModeOff:            "Off",
	OperatingModeHeat:           "Heat",
	OperatingModeCool:           "Cool",
	OperatingModeAuto:           "Auto",
	OperatingModeEmergencyHeat:  "Emergency Heat",
	OperatingModeResume:         "Resume",
	OperatingModeFanOnly:        "Fan Only",
	OperatingModeFurnace:        "Furnace",
	OperatingModeDryAir:         "Dry Air",
	OperatingModeMoistAir:       "Moist Air",
	OperatingModeAutoChangeover: "Auto Changeover",
	OperatingModeEnergySaveHeat: "Energy Save Heat",
	OperatingModeEnergySaveCool: "Energy Save Cool",
	OperatingModeAway:           "Away",
	OperatingModeEco:            "Eco",
}

func (o OperatingMode) String() string {
	if name, ok := operatingModeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Unknown OperatingMode(%d)", int(o))
}

// OperatingState is what a thermostat is currently doing.
type OperatingState int

const (
	OperatingStateIdle OperatingState = iota
	OperatingStateHeating
	OperatingStateCooling
)

func (o OperatingState) String() string {
	switch o {
	case OperatingStateIdle:
		return "Idle"
	case OperatingStateHeating:
		return "Heating"
	case OperatingStateCooling:
		return "Cooling"
	default:
		return fmt.Sprintf("Unknown OperatingState(%d)", int(o))
	}
}

// PanelCredentials are the local login for a panel's RTSP streams.
type PanelCredentials struct {
	Name     string `json:"n"`
	Password string `json:"pswd"`
}
