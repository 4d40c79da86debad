package devices

import (
	"github.com/daemonp/vivint2mqtt/internal/types"
)

// Constructor builds a device variant around an already constructed Base.
type Constructor func(b *Base) Device

// Resolve maps a device type to the constructor of its variant. Unknown
// types resolve to the Unknown variant.
func Resolve(t types.DeviceType) Constructor {
	switch t {
	case types.DeviceTypeBinarySwitch:
		return func(b *Base) Device { return &BinarySwitch{Switch{Base: b}} }
	case types.DeviceTypeMultilevelSwitch:
		return func(b *Base) Device { return &MultilevelSwitch{Switch{Base: b}} }
	case types.DeviceTypeCamera:
		return func(b *Base) Device { return &Camera{Base: b} }
	case types.DeviceTypeDoorLock:
		return func(b *Base) Device { return &DoorLock{Base: b, Bypassable: Bypassable{e: b.Entity}} }
	case types.DeviceTypeGarageDoor:
		return func(b *Base) Device { return &GarageDoor{Base: b} }
	case types.DeviceTypeThermostat:
		return func(b *Base) Device { return &Thermostat{Base: b} }
	case types.DeviceTypePanel:
		return func(b *Base) Device { return &Generic{Base: b} }
	case types.DeviceTypeWirelessSensor:
		return func(b *Base) Device { return &WirelessSensor{Base: b, Bypassable: Bypassable{e: b.Entity}} }
	default:
		return func(b *Base) Device { return &Unknown{Base: b} }
	}
}

// New builds the device described by data. It never fails: a type tag that
// is missing or unknown yields an Unknown device. Construction does no I/O.
func New(data map[string]any, owner Owner, env Env) Device {
	b := newBase(data, owner, env)
	b.variant = b.Type()
	d := Resolve(b.variant)(b)
	b.SetSource(d)
	return d
}

// Find returns the device with the given id from list.
func Find(list []Device, id int) (Device, bool) {
	for _, d := range list {
		if d.ID() == id {
			return d, true
		}
	}
	return nil, false
}
