package devices

import (
	"context"

	"github.com/daemonp/vivint2mqtt/internal/types"
)

type GarageDoor struct {
	*Base
}

func (g *GarageDoor) State() types.GarageDoorState {
	return types.GarageDoorState(g.Int(AttrState))
}

// IsClosed reports whether the door is closed. known is false while the
// opener reports an unknown position.
func (g *GarageDoor) IsClosed() (closed bool, known bool) {
	state := g.State()
	if state == types.GarageDoorStateUnknown {
		return false, false
	}
	return state == types.GarageDoorStateClosed, true
}

func (g *GarageDoor) IsClosing() bool {
	return g.State() == types.GarageDoorStateClosing
}

func (g *GarageDoor) IsOpening() bool {
	return g.State() == types.GarageDoorStateOpening
}

func (g *GarageDoor) IsOnline() bool {
	return g.Bool(AttrOnline)
}

func (g *GarageDoor) SetState(ctx context.Context, state types.GarageDoorState) error {
	err := g.commands().SetGarageDoorState(ctx, g.owner.PanelID, g.owner.PartitionID, g.ID(), state)
	return g.wrap("set garage door state", err)
}

func (g *GarageDoor) Open(ctx context.Context) error {
	return g.SetState(ctx, types.GarageDoorStateOpening)
}

func (g *GarageDoor) Close(ctx context.Context) error {
	return g.SetState(ctx, types.GarageDoorStateClosing)
}
