package devices

import (
	"context"
	"math"

	"github.com/daemonp/vivint2mqtt/internal/types"
)

// Thermostat attribute keys.
const (
	AttrActualType         = "act"
	AttrCoolSetPoint       = "csp"
	AttrCurrentTemperature = "val"
	AttrFanMode            = "fm"
	AttrFanState           = "fs"
	AttrHeatSetPoint       = "hsp"
	AttrHoldMode           = "hm"
	AttrHumidity           = "hmdt"
	AttrMaximumTemperature = "maxt"
	AttrMinimumTemperature = "mint"
	AttrOperatingMode      = "om"
	AttrOperatingState     = "os"
)

const nestThermostat = "pod_nest_thermostat_device"

type Thermostat struct {
	*Base
}

func (t *Thermostat) isNest() bool {
	return t.String(AttrActualType) == nestThermostat
}

func (t *Thermostat) Manufacturer() string {
	if t.isNest() {
		return "Google"
	}
	return t.Base.Manufacturer()
}

func (t *Thermostat) Model() string {
	if t.isNest() {
		return "Nest"
	}
	return t.Base.Model()
}

// BatteryLevel is only known when the thermostat reports one.
func (t *Thermostat) BatteryLevel() (int, bool) {
	return t.IntOK(AttrBatteryLevel)
}

func (t *Thermostat) LowBattery() (bool, bool) {
	v, ok := t.Get(AttrLowBattery)
	if !ok || v == nil {
		return false, false
	}
	return t.Bool(AttrLowBattery), true
}

func (t *Thermostat) CoolSetPoint() (float64, bool) {
	return t.Float(AttrCoolSetPoint)
}

func (t *Thermostat) HeatSetPoint() (float64, bool) {
	return t.Float(AttrHeatSetPoint)
}

func (t *Thermostat) Temperature() (float64, bool) {
	return t.Float(AttrCurrentTemperature)
}

func (t *Thermostat) MaximumTemperature() (float64, bool) {
	return t.Float(AttrMaximumTemperature)
}

func (t *Thermostat) MinimumTemperature() (float64, bool) {
	return t.Float(AttrMinimumTemperature)
}

func (t *Thermostat) Humidity() (int, bool) {
	return t.IntOK(AttrHumidity)
}

func (t *Thermostat) FanMode() types.FanMode {
	n, ok := t.IntOK(AttrFanMode)
	if !ok {
		return types.FanModeUnknown
	}
	return types.ParseFanMode(n)
}

func (t *Thermostat) HoldMode() types.HoldMode {
	return types.HoldMode(t.Int(AttrHoldMode))
}

func (t *Thermostat) OperatingMode() types.OperatingMode {
	return types.OperatingMode(t.Int(AttrOperatingMode))
}

func (t *Thermostat) OperatingState() types.OperatingState {
	return types.OperatingState(t.Int(AttrOperatingState))
}

func (t *Thermostat) IsFanOn() bool {
	return t.Int(AttrFanState) == 1
}

func (t *Thermostat) IsOn() bool {
	return t.OperatingState() != types.OperatingStateIdle
}

// SetState sends the given thermostat attributes, e.g. {"csp": 22.5}.
func (t *Thermostat) SetState(ctx context.Context, opts map[string]any) error {
	err := t.commands().SetThermostatState(ctx, t.owner.PanelID, t.owner.PartitionID, t.ID(), opts)
	return t.wrap("set thermostat state", err)
}

// CelsiusToFahrenheit rounds half to even.
func CelsiusToFahrenheit(celsius float64) int {
	return int(math.RoundToEven(celsius*1.8 + 32))
}
