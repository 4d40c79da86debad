package devices

import "context"

type DoorLock struct {
	*Base
	Bypassable
}

func (d *DoorLock) IsLocked() bool {
	return d.Bool(AttrState)
}

func (d *DoorLock) IsOnline() bool {
	return d.Bool(AttrOnline)
}

func (d *DoorLock) SetState(ctx context.Context, locked bool) error {
	err := d.commands().SetLockState(ctx, d.owner.PanelID, d.owner.PartitionID, d.ID(), locked)
	return d.wrap("set lock state", err)
}

func (d *DoorLock) Lock(ctx context.Context) error {
	return d.SetState(ctx, true)
}

func (d *DoorLock) Unlock(ctx context.Context) error {
	return d.SetState(ctx, false)
}
