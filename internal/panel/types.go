package panel

import (
	"context"

	"github.com/daemonp/vivint2mqtt/internal/devices"
	"github.com/daemonp/vivint2mqtt/internal/types"
)

// Raw attribute keys of a panel partition.
const (
	AttrDevices      = "d"
	AttrMACAddress   = "pmac"
	AttrPanelID      = "panid"
	AttrPartitionID  = "parid"
	AttrState        = "s"
	AttrUnregistered = "ureg"
	attrPanelType    = "pant"
)

// Push message keys.
const (
	MsgData      = "da"
	MsgOperation = "op"
	MsgType      = "t"
)

// Events emitted by a panel. The device is carried under "device".
const (
	EventDeviceDiscovered = "device_discovered"
	EventDeviceDeleted    = "device_deleted"
)

// Operation is the change a push fragment describes.
type Operation string

const (
	OpCreate    Operation = "c"
	OpUpdate    Operation = "u"
	OpDelete    Operation = "d"
	OpUpdateAll Operation = "ua"
)

// ParseOperation treats an absent or unrecognised tag as an update.
func ParseOperation(s string) Operation {
	switch op := Operation(s); op {
	case OpCreate, OpDelete, OpUpdateAll:
		return op
	default:
		return OpUpdate
	}
}

// Unregistered is what a panel remembers about a device the backend has
// detached.
type Unregistered struct {
	Name string
	Type types.DeviceType
}

// API is the part of the cloud client a panel uses.
type API interface {
	devices.Commander
	GetDeviceData(ctx context.Context, panelID, deviceID int) (map[string]any, error)
	SetAlarmState(ctx context.Context, panelID, partitionID int, state types.ArmedState) error
	TriggerAlarm(ctx context.Context, panelID, partitionID int) error
	RebootPanel(ctx context.Context, panelID int) error
	GetPanelCredentials(ctx context.Context, panelID int) (types.PanelCredentials, error)
	GetSystemUpdate(ctx context.Context, panelID int) (map[string]any, error)
	UpdatePanelSoftware(ctx context.Context, panelID int) error
}
