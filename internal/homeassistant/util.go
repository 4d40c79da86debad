package homeassistant

import (
	"strings"

	"github.com/daemonp/vivint2mqtt/internal/devices"
	"github.com/daemonp/vivint2mqtt/internal/types"
)

var equipmentClasses = map[types.EquipmentType]string{
	types.EquipmentTypeContact:     "opening",
	types.EquipmentTypeMotion:      "motion",
	types.EquipmentTypeFreeze:      "cold",
	types.EquipmentTypeWater:       "moisture",
	types.EquipmentTypeTemperature: "heat",
	types.EquipmentTypeEmergency:   "safety",
}

func getDeviceClass(sensor *devices.WirelessSensor) string {
	switch sensor.SensorType() {
	case types.SensorTypeFire, types.SensorTypeFireWithVerification:
		return "smoke"
	case types.SensorTypeCarbonMonoxide:
		return "carbon_monoxide"
	}

	// Try to guess the device class based on the sensor name
	name := strings.ToLower(sensor.Name())
	switch {
	case strings.Contains(name, "door"):
		return "door"
	case strings.Contains(name, "window"):
		return "window"
	case strings.Contains(name, "garage"):
		return "garage_door"
	case strings.Contains(name, "glass"):
		return "vibration"
	}

	if class, ok := equipmentClasses[sensor.EquipmentType()]; ok {
		return class
	}

	// Default to motion if we can't determine a more specific type
	return "motion"
}
