package panel

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"sync"
	"time"

	"github.com/daemonp/vivint2mqtt/internal/devices"
	"github.com/daemonp/vivint2mqtt/internal/entity"
	"github.com/daemonp/vivint2mqtt/internal/log"
	"github.com/daemonp/vivint2mqtt/internal/metrics"
	"github.com/daemonp/vivint2mqtt/internal/types"
)

// DefaultValidityTimeout bounds how long a newly created device may stay
// invalid before the panel gives up on it.
const DefaultValidityTimeout = 2 * time.Minute

type Options struct {
	// SystemName supplies the panel's display name.
	SystemName      func() string
	ValidityTimeout time.Duration
}

// Panel is one partition of a physical alarm panel and the devices attached
// to it.
type Panel struct {
	*entity.Entity

	api             API
	env             devices.Env
	log             *log.Logger
	systemName      func() string
	validityTimeout time.Duration

	// write serializes every path that mutates the device graph.
	write sync.Mutex

	mu           sync.RWMutex
	devices      []devices.Device
	unregistered map[int]Unregistered
	// unannounced holds created devices not yet announced as discovered.
	unannounced  map[int]struct{}
	changed      chan struct{}
	credentials  *types.PanelCredentials

	wg sync.WaitGroup
}

// New builds a panel from its bulk payload.
func New(data map[string]any, api API, env devices.Env, opts Options) *Panel {
	p := &Panel{
		Entity:          entity.New(nil),
		api:             api,
		env:             env,
		systemName:      opts.SystemName,
		validityTimeout: opts.ValidityTimeout,
		unregistered:    make(map[int]Unregistered),
		unannounced:     make(map[int]struct{}),
		changed:         make(chan struct{}),
	}
	if p.validityTimeout <= 0 {
		p.validityTimeout = DefaultValidityTimeout
	}
	p.SetSource(p)
	p.SetDispatcher(env.Dispatcher)
	p.SetLogger(env.Log)

	data = cloneBulk(data)
	p.Modify(func(raw map[string]any) { maps.Copy(raw, data) })
	p.log = log.OrNop(env.Log).With("panel", fmt.Sprintf("%d/%d", p.ID(), p.PartitionID()))

	p.write.Lock()
	p.reconcile(entity.AsList(data[AttrDevices]))
	p.replaceUnregistered(data)
	p.write.Unlock()
	return p
}

func (p *Panel) ID() int {
	return p.Int(AttrPanelID)
}

func (p *Panel) PartitionID() int {
	return p.Int(AttrPartitionID)
}

// Name is the name of the system the panel belongs to.
func (p *Panel) Name() string {
	if p.systemName == nil {
		return ""
	}
	return p.systemName()
}

func (p *Panel) Manufacturer() string {
	return "Vivint"
}

// Model is "Sky Control" for the touch screen panel, otherwise "Smart Hub".
func (p *Panel) Model() string {
	if d, ok := p.physicalPanel(); ok {
		if n, _ := entity.AsInt(d.Data()[attrPanelType]); n == 1 {
			return "Sky Control"
		}
	}
	return "Smart Hub"
}

func (p *Panel) SoftwareVersion() string {
	if d, ok := p.physicalPanel(); ok {
		return d.SoftwareVersion()
	}
	return ""
}

func (p *Panel) MACAddress() string {
	return p.String(AttrMACAddress)
}

// physicalPanel is the device entry describing the panel hardware.
func (p *Panel) physicalPanel() (devices.Device, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, d := range p.devices {
		if d.Type() == types.DeviceTypePanel {
			return d, true
		}
	}
	return nil, false
}

func (p *Panel) State() types.ArmedState {
	return types.ArmedState(p.Int(AttrState))
}

func (p *Panel) IsDisarmed() bool {
	return p.State() == types.ArmedStateDisarmed
}

func (p *Panel) IsArmedAway() bool {
	return p.State() == types.ArmedStateArmedAway
}

func (p *Panel) IsArmedStay() bool {
	return p.State() == types.ArmedStateArmedStay
}

// Devices returns the live devices, restricted to the given types if any.
func (p *Panel) Devices(filter ...types.DeviceType) []devices.Device {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(filter) == 0 {
		return append([]devices.Device(nil), p.devices...)
	}
	var out []devices.Device
	for _, d := range p.devices {
		for _, t := range filter {
			if d.Type() == t {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

func (p *Panel) Device(id int) (devices.Device, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return devices.Find(p.devices, id)
}

// UnregisteredDevices returns a copy of the unregistered device memo.
func (p *Panel) UnregisteredDevices() map[int]Unregistered {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.unregistered)
}

// Wait blocks until background work started by push messages has finished.
func (p *Panel) Wait() {
	p.wg.Wait()
}

func (p *Panel) owner() devices.Owner {
	o := devices.Owner{
		PanelID:     p.ID(),
		PartitionID: p.PartitionID(),
		Credentials: p.PanelCredentials,
	}
	if p.api != nil {
		o.Commands = p.api
	}
	return o
}

func (p *Panel) requireAPI() API {
	if p.api == nil {
		panic(fmt.Sprintf("panel: %d/%d has no api client", p.ID(), p.PartitionID()))
	}
	return p.api
}

func (p *Panel) SetArmedState(ctx context.Context, state types.ArmedState) error {
	p.log.Debug("setting %s to %s", p.Name(), state)
	if err := p.requireAPI().SetAlarmState(ctx, p.ID(), p.PartitionID(), state); err != nil {
		return fmt.Errorf("set armed state %s on panel %d/%d: %w", state, p.ID(), p.PartitionID(), err)
	}
	return nil
}

func (p *Panel) Disarm(ctx context.Context) error {
	return p.SetArmedState(ctx, types.ArmedStateDisarmed)
}

func (p *Panel) ArmStay(ctx context.Context) error {
	return p.SetArmedState(ctx, types.ArmedStateArmedStay)
}

func (p *Panel) ArmAway(ctx context.Context) error {
	return p.SetArmedState(ctx, types.ArmedStateArmedAway)
}

func (p *Panel) TriggerAlarm(ctx context.Context) error {
	if err := p.requireAPI().TriggerAlarm(ctx, p.ID(), p.PartitionID()); err != nil {
		return fmt.Errorf("trigger alarm on panel %d/%d: %w", p.ID(), p.PartitionID(), err)
	}
	return nil
}

func (p *Panel) Reboot(ctx context.Context) error {
	if err := p.requireAPI().RebootPanel(ctx, p.ID()); err != nil {
		return fmt.Errorf("reboot panel %d: %w", p.ID(), err)
	}
	return nil
}

// SoftwareUpdate returns the panel's pending software update details.
func (p *Panel) SoftwareUpdate(ctx context.Context) (map[string]any, error) {
	info, err := p.requireAPI().GetSystemUpdate(ctx, p.ID())
	if err != nil {
		return nil, fmt.Errorf("get software update for panel %d: %w", p.ID(), err)
	}
	return info, nil
}

func (p *Panel) UpdateSoftware(ctx context.Context) error {
	if err := p.requireAPI().UpdatePanelSoftware(ctx, p.ID()); err != nil {
		return fmt.Errorf("update software on panel %d: %w", p.ID(), err)
	}
	return nil
}

// PanelCredentials returns the panel's RTSP login, fetching it once.
func (p *Panel) PanelCredentials(ctx context.Context) (types.PanelCredentials, error) {
	p.mu.RLock()
	cached := p.credentials
	p.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}

	creds, err := p.requireAPI().GetPanelCredentials(ctx, p.ID())
	if err != nil {
		return types.PanelCredentials{}, fmt.Errorf("get credentials for panel %d: %w", p.ID(), err)
	}
	p.mu.Lock()
	p.credentials = &creds
	p.mu.Unlock()
	return creds, nil
}

func (p *Panel) recordDeviceCount() {
	p.mu.RLock()
	n := len(p.devices)
	p.mu.RUnlock()
	metrics.Devices.WithLabelValues(strconv.Itoa(p.ID())).Set(float64(n))
}
