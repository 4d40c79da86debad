package panel

import (
	"context"
	"maps"
	"time"

	"github.com/daemonp/vivint2mqtt/internal/devices"
	"github.com/daemonp/vivint2mqtt/internal/entity"
	"github.com/daemonp/vivint2mqtt/internal/metrics"
	"github.com/daemonp/vivint2mqtt/internal/types"
)

// parentSeeker is implemented by devices that may be hidden sub-devices.
type parentSeeker interface {
	NeedsParent() bool
}

// Refresh reconciles the panel with a payload. Without newDevice the payload
// is a complete snapshot that replaces the panel's own data. With newDevice
// it only carries device fragments, which are folded into the panel's raw
// device list first.
func (p *Panel) Refresh(data map[string]any, newDevice bool) {
	p.write.Lock()
	defer p.write.Unlock()
	p.refresh(data, newDevice)
}

func (p *Panel) refresh(data map[string]any, newDevice bool) {
	data = cloneBulk(data)
	frags := entity.AsList(data[AttrDevices])
	if newDevice {
		p.Modify(func(raw map[string]any) {
			raw[AttrDevices] = upsertRaw(raw[AttrDevices], frags...)
		})
	} else {
		p.Update(data, true)
	}

	p.reconcile(frags)
	p.replaceUnregistered(data)
	p.notify()
	p.recordDeviceCount()
}

// reconcile overrides existing devices with their fragment and constructs
// the rest. Callers hold p.write.
func (p *Panel) reconcile(frags []map[string]any) {
	type pending struct {
		dev  devices.Device
		data map[string]any
	}
	var updates []pending

	owner := p.owner()
	p.mu.Lock()
	for _, frag := range frags {
		id, ok := entity.AsInt(frag[devices.AttrID])
		if !ok {
			p.log.Debug("skipping device without id: %v", frag)
			continue
		}
		if i := indexOf(p.devices, id); i >= 0 {
			d := p.devices[i]
			if p.retagged(d, frag) {
				p.log.Debug("rebuilding device %d as %s", id, types.ParseDeviceType(entity.AsString(frag[devices.AttrType])))
				p.devices[i] = devices.New(frag, owner, p.env)
				continue
			}
			updates = append(updates, pending{dev: d, data: frag})
			continue
		}
		p.devices = append(p.devices, devices.New(frag, owner, p.env))
	}
	p.mu.Unlock()

	// Updates emit, so they run without holding the collection lock.
	for _, u := range updates {
		u.dev.Update(u.data, true)
	}
	p.linkParents()
}

// retagged reports whether frag gives a device that has not been announced
// yet a type other than the one it was built as. Callers hold p.mu.
func (p *Panel) retagged(d devices.Device, frag map[string]any) bool {
	if _, ok := p.unannounced[d.ID()]; !ok {
		return false
	}
	tag := entity.AsString(frag[devices.AttrType])
	return tag != "" && types.ParseDeviceType(tag) != d.Variant()
}

func indexOf(list []devices.Device, id int) int {
	for i, d := range list {
		if d.ID() == id {
			return i
		}
	}
	return -1
}

// linkParents points hidden sub-devices at the device sharing their serial.
func (p *Panel) linkParents() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, d := range p.devices {
		seeker, ok := d.(parentSeeker)
		if !ok || !seeker.NeedsParent() {
			continue
		}
		serial := d.SerialNumber()
		if serial == "" {
			continue
		}
		for _, other := range p.devices {
			if other.ID() != d.ID() && other.SerialNumber() == serial {
				d.SetParent(other.ID())
				break
			}
		}
	}
}

func (p *Panel) replaceUnregistered(data map[string]any) {
	list := entity.AsList(data[AttrUnregistered])
	if len(list) == 0 {
		return
	}
	memo := make(map[int]Unregistered, len(list))
	for _, u := range list {
		id, ok := entity.AsInt(u[devices.AttrID])
		if !ok {
			continue
		}
		memo[id] = Unregistered{
			Name: entity.AsString(u[devices.AttrName]),
			Type: types.ParseDeviceType(entity.AsString(u[devices.AttrType])),
		}
	}
	p.mu.Lock()
	p.unregistered = memo
	p.mu.Unlock()
}

// notify wakes everything waiting on a change to the device graph.
func (p *Panel) notify() {
	p.mu.Lock()
	close(p.changed)
	p.changed = make(chan struct{})
	p.mu.Unlock()
}

// HandlePushMessage applies an account_partition push message. Malformed
// messages and fragments are logged and dropped. ctx bounds the background
// work started for created devices.
func (p *Panel) HandlePushMessage(ctx context.Context, msg map[string]any) {
	data, _ := entity.AsMap(msg[MsgData])
	if len(data) == 0 {
		p.log.Debug("ignoring message without data: %v", msg)
		metrics.RecordPush("account_partition", metrics.OutcomeDropped)
		return
	}

	frags := entity.AsList(data[AttrDevices])
	if len(frags) == 0 {
		p.write.Lock()
		p.Update(data, false)
		p.write.Unlock()
		metrics.RecordPush("account_partition", metrics.OutcomeRouted)
		return
	}

	msgOp := entity.AsString(msg[MsgOperation])
	for _, frag := range frags {
		id, ok := entity.AsInt(frag[devices.AttrID])
		if !ok || id == 0 {
			p.log.Debug("ignoring device fragment without id: %v", frag)
			metrics.RecordPush("account_partition", metrics.OutcomeDropped)
			continue
		}

		op := msgOp
		if fragOp := entity.AsString(frag[MsgOperation]); fragOp != "" {
			op = fragOp
		}
		frag = maps.Clone(frag)
		delete(frag, MsgOperation)

		switch ParseOperation(op) {
		case OpCreate:
			p.handleCreate(ctx, id, frag)
		case OpDelete:
			p.handleDelete(id)
		default:
			p.handleUpdate(id, frag)
		}
	}
}

func (p *Panel) handleCreate(ctx context.Context, id int, frag map[string]any) {
	p.write.Lock()
	p.mu.Lock()
	delete(p.unregistered, id)
	if _, known := devices.Find(p.devices, id); !known {
		p.unannounced[id] = struct{}{}
	}
	p.mu.Unlock()
	p.refresh(map[string]any{AttrDevices: []any{frag}}, true)
	p.write.Unlock()

	metrics.RecordPush("account_partition", metrics.OutcomeRouted)
	p.wg.Add(1)
	go p.awaitNewDevice(ctx, id)
}

func (p *Panel) handleUpdate(id int, frag map[string]any) {
	p.write.Lock()
	defer p.write.Unlock()

	d, ok := p.Device(id)
	if !ok {
		p.log.Debug("ignoring message for device %d (device not found)", id)
		metrics.RecordPush("account_partition", metrics.OutcomeDropped)
		return
	}

	d.HandlePushMessage(frag)
	p.Modify(func(raw map[string]any) {
		raw[AttrDevices] = mergeRaw(raw[AttrDevices], frag)
	})
	p.linkParents()
	p.notify()
	metrics.RecordPush("account_partition", metrics.OutcomeRouted)
}

func (p *Panel) handleDelete(id int) {
	p.write.Lock()

	p.mu.Lock()
	var removed devices.Device
	for i, d := range p.devices {
		if d.ID() == id {
			removed = d
			p.devices = append(p.devices[:i:i], p.devices[i+1:]...)
			break
		}
	}
	if removed == nil {
		p.mu.Unlock()
		p.write.Unlock()
		p.log.Debug("ignoring delete for device %d (device not found)", id)
		metrics.RecordPush("account_partition", metrics.OutcomeDropped)
		return
	}
	p.unregistered[id] = Unregistered{Name: removed.Name(), Type: removed.Type()}
	p.mu.Unlock()

	p.Modify(func(raw map[string]any) {
		raw[AttrDevices] = removeRaw(raw[AttrDevices], id)
	})
	p.notify()
	p.recordDeviceCount()
	p.Emit(entity.Event{Name: EventDeviceDeleted, Data: map[string]any{"device": removed}, Source: p})
	p.write.Unlock()

	metrics.DevicesDeleted.Inc()
	metrics.RecordPush("account_partition", metrics.OutcomeRouted)
}

// awaitNewDevice waits for a created device to become valid, then folds in
// its canonical payload and announces it. The wait ends early if the device
// is unregistered or removed, and gives up after the validity timeout.
func (p *Panel) awaitNewDevice(ctx context.Context, id int) {
	defer p.wg.Done()
	defer p.announced(id)

	timer := time.NewTimer(p.validityTimeout)
	defer timer.Stop()

	for {
		p.mu.RLock()
		_, gone := p.unregistered[id]
		d, found := devices.Find(p.devices, id)
		changed := p.changed
		p.mu.RUnlock()

		if gone || !found {
			p.log.Debug("device %d went away before becoming valid", id)
			return
		}
		if d.IsValid() {
			break
		}

		select {
		case <-changed:
		case <-timer.C:
			p.log.Warn("device %d did not become valid within %s, dropping it", id, p.validityTimeout)
			p.prune(id)
			return
		case <-ctx.Done():
			return
		}
	}

	resp, err := p.requireAPI().GetDeviceData(ctx, p.ID(), id)
	if err != nil {
		p.log.Error("error getting new device data for device %d: %v", id, err)
		return
	}
	system, _ := entity.AsMap(resp["system"])
	partitions := entity.AsList(system["par"])
	if len(partitions) == 0 {
		p.log.Error("device data for device %d has no partition", id)
		return
	}

	p.write.Lock()
	p.mu.RLock()
	_, gone := p.unregistered[id]
	p.mu.RUnlock()
	if gone {
		p.write.Unlock()
		p.log.Debug("device %d was unregistered while fetching its data", id)
		return
	}
	p.refresh(partitions[0], true)
	p.announced(id)
	d, found := p.Device(id)
	if found {
		p.Emit(entity.Event{Name: EventDeviceDiscovered, Data: map[string]any{"device": d}, Source: p})
	}
	p.write.Unlock()

	if found {
		metrics.DevicesDiscovered.Inc()
	}
}

// announced stops treating id as a freshly created device.
func (p *Panel) announced(id int) {
	p.mu.Lock()
	delete(p.unannounced, id)
	p.mu.Unlock()
}

// prune drops a device that never became valid, along with its raw entry.
// It is not remembered as unregistered because it was never announced.
func (p *Panel) prune(id int) {
	p.write.Lock()
	defer p.write.Unlock()

	p.mu.Lock()
	for i, d := range p.devices {
		if d.ID() == id {
			p.devices = append(p.devices[:i:i], p.devices[i+1:]...)
			break
		}
	}
	p.mu.Unlock()

	p.Modify(func(raw map[string]any) {
		raw[AttrDevices] = removeRaw(raw[AttrDevices], id)
	})
	p.notify()
	p.recordDeviceCount()
}
