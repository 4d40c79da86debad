package devices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/daemonp/vivint2mqtt/internal/entity"
	"github.com/daemonp/vivint2mqtt/internal/log"
	"github.com/daemonp/vivint2mqtt/internal/types"
	"github.com/daemonp/vivint2mqtt/internal/zwave"
)

// Raw attribute keys shared by all devices.
const (
	AttrBatteryLevel       = "bl"
	AttrBypassed           = "b"
	AttrCapability         = "ca"
	AttrCapabilityCategory = "caca"
	AttrSoftwareVersion    = "csv"
	AttrFirmwareVersion    = "fwv"
	AttrHidden             = "hidden"
	AttrID                 = "_id"
	AttrLowBattery         = "lb"
	AttrName               = "n"
	AttrOnline             = "ol"
	AttrPanelID            = "panid"
	AttrSerialNumber       = "ser"
	AttrSerialNumber32     = "ser32"
	AttrState              = "s"
	AttrTamper             = "ta"
	AttrType               = "t"
	AttrZWaveProductData   = "zpd"
	AttrManufacturerID     = "manid"
	AttrProductTypeID      = "prtid"
	AttrProductID          = "prid"
)

var (
	ErrInvalidLevel = errors.New("devices: level must be between 0 and 100")
	ErrNoState      = errors.New("devices: either on or level must be provided")
)

// Commander executes device commands against the cloud. Identifiers are
// supplied by the device from its Owner.
type Commander interface {
	SetLockState(ctx context.Context, panelID, partitionID, deviceID int, locked bool) error
	SetSwitchState(ctx context.Context, panelID, partitionID, deviceID int, on *bool, level *int) error
	SetGarageDoorState(ctx context.Context, panelID, partitionID, deviceID int, state types.GarageDoorState) error
	SetSensorBypass(ctx context.Context, panelID, partitionID, deviceID int, bypass bool) error
	SetThermostatState(ctx context.Context, panelID, partitionID, deviceID int, opts map[string]any) error
	RequestCameraThumbnail(ctx context.Context, panelID, partitionID, deviceID int) error
	GetCameraThumbnailURL(ctx context.Context, panelID, partitionID, deviceID int, timestamp int64) (string, error)
	SetCameraPrivacyMode(ctx context.Context, panelID, deviceID int, on bool) error
	SetCameraDeterMode(ctx context.Context, panelID, deviceID int, on bool) error
	SetCameraAsDoorbellChimeExtender(ctx context.Context, panelID, deviceID int, on bool) error
	RebootCamera(ctx context.Context, panelID, deviceID int, deviceType string) error
}

// Owner identifies the panel partition a device belongs to. It is set once
// at construction.
type Owner struct {
	PanelID     int
	PartitionID int
	Commands    Commander
	// Credentials returns the panel's RTSP login. Cameras use it to build
	// stream URLs.
	Credentials func(ctx context.Context) (types.PanelCredentials, error)
}

// Env carries the process-wide collaborators devices need.
type Env struct {
	Log        *log.Logger
	Dispatcher *entity.Dispatcher
	Hardware   *zwave.Table
}

// Device is the behaviour shared by every variant.
type Device interface {
	ID() int
	Name() string
	Type() types.DeviceType
	// Variant is the type the device was constructed as. It can lag Type
	// when a later payload retags the device.
	Variant() types.DeviceType
	RawType() string
	PanelID() int
	Owner() Owner

	Data() map[string]any
	Update(delta map[string]any, override bool)
	HandlePushMessage(msg map[string]any)
	On(name string, fn entity.Listener) func()
	IsValid() bool

	Manufacturer() string
	Model() string
	SerialNumber() string
	SoftwareVersion() string
	HasBattery() bool
	BatteryLevel() (int, bool)
	LowBattery() (low bool, known bool)
	Capabilities() map[types.CapabilityCategoryType][]types.CapabilityType

	ParentID() (int, bool)
	IsSubdevice() bool
	SetParent(id int)
}

// Base implements Device for the generic case. Variants embed it.
type Base struct {
	*entity.Entity

	owner    Owner
	hardware *zwave.Table
	log      *log.Logger
	caps     map[types.CapabilityCategoryType][]types.CapabilityType
	variant  types.DeviceType

	mu           sync.Mutex
	hwResolved   bool
	manufacturer string
	model        string
	parentID     int
	hasParent    bool
}

func newBase(data map[string]any, owner Owner, env Env) *Base {
	e := entity.New(data)
	e.SetDispatcher(env.Dispatcher)
	e.SetLogger(env.Log)
	b := &Base{
		Entity:   e,
		owner:    owner,
		hardware: env.Hardware,
		log:      log.OrNop(env.Log),
	}
	b.caps = parseCapabilities(e.Get(AttrCapabilityCategory))
	return b
}

func parseCapabilities(v any, ok bool) map[types.CapabilityCategoryType][]types.CapabilityType {
	if !ok || v == nil {
		return nil
	}
	caps := make(map[types.CapabilityCategoryType][]types.CapabilityType)
	for _, category := range entity.AsList(v) {
		n, _ := entity.AsInt(category[AttrType])
		cat := types.ParseCapabilityCategory(n)
		list, _ := category[AttrCapability].([]any)
		out := make([]types.CapabilityType, 0, len(list))
		for _, c := range list {
			if id, ok := entity.AsInt(c); ok {
				out = append(out, types.ParseCapability(id))
			}
		}
		caps[cat] = out
	}
	return caps
}

func (b *Base) ID() int {
	return b.Int(AttrID)
}

func (b *Base) Name() string {
	return b.String(AttrName)
}

func (b *Base) RawType() string {
	return b.String(AttrType)
}

func (b *Base) Type() types.DeviceType {
	return types.ParseDeviceType(b.RawType())
}

func (b *Base) Variant() types.DeviceType {
	return b.variant
}

// PanelID is the panel id reported in the device's own data, falling back
// to the owner's.
func (b *Base) PanelID() int {
	if id, ok := b.IntOK(AttrPanelID); ok {
		return id
	}
	return b.owner.PanelID
}

func (b *Base) Owner() Owner {
	return b.owner
}

// HandlePushMessage merges a push fragment into the device's data.
func (b *Base) HandlePushMessage(msg map[string]any) {
	b.Update(msg, false)
}

func (b *Base) IsValid() bool {
	return true
}

func (b *Base) Manufacturer() string {
	b.resolveHardware()
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.manufacturer
}

func (b *Base) Model() string {
	b.resolveHardware()
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.model
}

// resolveHardware fills manufacturer and model from the Z-Wave table the
// first time the device reports Z-Wave product data.
func (b *Base) resolveHardware() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hwResolved || !b.Has(AttrZWaveProductData) {
		return
	}
	info := b.hardware.Lookup(b.Int(AttrManufacturerID), b.Int(AttrProductTypeID), b.Int(AttrProductID))
	b.manufacturer = info.ManufacturerOrUnknown()
	b.model = info.Model()
	b.hwResolved = true
}

// SerialNumber prefers the 32 bit serial when present.
func (b *Base) SerialNumber() string {
	if s := b.String(AttrSerialNumber32); s != "" {
		return s
	}
	return b.String(AttrSerialNumber)
}

// SoftwareVersion is the current software version, or the firmware version
// segments joined with dots.
func (b *Base) SoftwareVersion() string {
	if v, ok := b.Get(AttrSoftwareVersion); ok && v != nil {
		return fmt.Sprint(v)
	}
	v, ok := b.Get(AttrFirmwareVersion)
	if !ok || v == nil {
		return ""
	}
	var parts []string
	outer, _ := v.([]any)
	for _, seg := range outer {
		inner, _ := seg.([]any)
		for _, n := range inner {
			if s := entity.AsString(n); s != "" {
				parts = append(parts, s)
			} else {
				parts = append(parts, fmt.Sprint(n))
			}
		}
	}
	return strings.Join(parts, ".")
}

func (b *Base) HasBattery() bool {
	return b.Has(AttrBatteryLevel) || b.Has(AttrLowBattery)
}

// BatteryLevel returns the reported level, or 0/100 derived from the low
// battery flag when no level is reported.
func (b *Base) BatteryLevel() (int, bool) {
	if !b.HasBattery() {
		return 0, false
	}
	if v, ok := b.Get(AttrBatteryLevel); ok && v != nil && v != "" {
		if n, ok := entity.AsInt(v); ok {
			return n, true
		}
	}
	if low, _ := b.LowBattery(); low {
		return 0, true
	}
	return 100, true
}

func (b *Base) LowBattery() (bool, bool) {
	if !b.HasBattery() {
		return false, false
	}
	return b.Bool(AttrLowBattery), true
}

// Capabilities returns the capabilities parsed at construction, or nil when
// the device reported none.
func (b *Base) Capabilities() map[types.CapabilityCategoryType][]types.CapabilityType {
	return b.caps
}

// HasCapability reports whether c is listed under any category.
func (b *Base) HasCapability(c types.CapabilityType) bool {
	for _, list := range b.caps {
		for _, have := range list {
			if have == c {
				return true
			}
		}
	}
	return false
}

func (b *Base) ParentID() (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parentID, b.hasParent
}

func (b *Base) IsSubdevice() bool {
	_, ok := b.ParentID()
	return ok
}

// SetParent records the device this one is a hidden sub-device of. Only the
// first call has effect.
func (b *Base) SetParent(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hasParent {
		return
	}
	b.parentID = id
	b.hasParent = true
}

// commands returns the owner's executor. A device without one was built
// outside a panel, which is a programming error.
func (b *Base) commands() Commander {
	if b.owner.Commands == nil {
		panic(fmt.Sprintf("devices: device %d has no command executor", b.ID()))
	}
	return b.owner.Commands
}

func (b *Base) emit(name string, data map[string]any) {
	b.Emit(entity.Event{Name: name, Data: data, Source: b.Source()})
}

func (b *Base) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s device %d on panel %d/%d: %w", op, b.ID(), b.owner.PanelID, b.owner.PartitionID, err)
}

// Generic is a device with no type specific behaviour, such as the panel
// itself.
type Generic struct {
	*Base
}

// Unknown represents a device whose type tag is not recognised.
type Unknown struct {
	*Base
}
