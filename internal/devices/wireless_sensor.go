package devices

import (
	"context"

	"github.com/daemonp/vivint2mqtt/internal/types"
)

// Wireless sensor attribute keys.
const (
	AttrEquipmentCode         = "ec"
	AttrEquipmentType         = "eqt"
	AttrSensorFirmwareVersion = "sensor_firmware_version"
	AttrSensorType            = "set"
)

type WirelessSensor struct {
	*Base
	Bypassable
}

// Model is the equipment code name, e.g. "PIR2_MOTION".
func (w *WirelessSensor) Model() string {
	return w.EquipmentCode().String()
}

func (w *WirelessSensor) SoftwareVersion() string {
	return w.String(AttrSensorFirmwareVersion)
}

func (w *WirelessSensor) EquipmentCode() types.EquipmentCode {
	n, ok := w.IntOK(AttrEquipmentCode)
	if !ok {
		return types.EquipmentCodeUnknown
	}
	return types.ParseEquipmentCode(n)
}

func (w *WirelessSensor) EquipmentType() types.EquipmentType {
	return types.ParseEquipmentType(w.Int(AttrEquipmentType))
}

func (w *WirelessSensor) SensorType() types.SensorType {
	n, ok := w.IntOK(AttrSensorType)
	if !ok {
		return types.SensorTypeUnknown
	}
	return types.ParseSensorType(n)
}

func (w *WirelessSensor) IsOn() bool {
	return w.Bool(AttrState)
}

// IsValid is false until the sensor reports a serial number, a real
// equipment code and a sensor type other than unused.
func (w *WirelessSensor) IsValid() bool {
	return w.SerialNumber() != "" &&
		w.EquipmentCode() != types.EquipmentCodeOther &&
		w.SensorType() != types.SensorTypeUnused
}

// NeedsParent reports whether this sensor is a hidden sub-device of another
// device with the same serial number.
func (w *WirelessSensor) NeedsParent() bool {
	return w.Bool(AttrHidden) && !w.IsSubdevice()
}

func (w *WirelessSensor) SetBypass(ctx context.Context, bypass bool) error {
	err := w.commands().SetSensorBypass(ctx, w.owner.PanelID, w.owner.PartitionID, w.ID(), bypass)
	return w.wrap("set sensor bypass", err)
}

func (w *WirelessSensor) Bypass(ctx context.Context) error {
	return w.SetBypass(ctx, true)
}

func (w *WirelessSensor) Unbypass(ctx context.Context) error {
	return w.SetBypass(ctx, false)
}
