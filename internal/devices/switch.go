package devices

import "context"

const AttrValue = "val"

// Switch is the behaviour shared by binary and multilevel switches.
type Switch struct {
	*Base
}

func (s *Switch) IsOn() bool {
	return s.Bool(AttrState)
}

// Level is between 0 and 100.
func (s *Switch) Level() int {
	return s.Int(AttrValue)
}

func (s *Switch) IsOnline() bool {
	return s.Bool(AttrOnline)
}

// SetState sends either an on/off state or a level. One of them must be set.
func (s *Switch) SetState(ctx context.Context, on *bool, level *int) error {
	if on == nil && level == nil {
		return ErrNoState
	}
	if level != nil && (*level < 0 || *level > 100) {
		return ErrInvalidLevel
	}
	err := s.commands().SetSwitchState(ctx, s.owner.PanelID, s.owner.PartitionID, s.ID(), on, level)
	return s.wrap("set switch state", err)
}

func (s *Switch) TurnOn(ctx context.Context) error {
	on := true
	return s.SetState(ctx, &on, nil)
}

func (s *Switch) TurnOff(ctx context.Context) error {
	on := false
	return s.SetState(ctx, &on, nil)
}

type BinarySwitch struct {
	Switch
}

type MultilevelSwitch struct {
	Switch
}

func (s *MultilevelSwitch) SetLevel(ctx context.Context, level int) error {
	return s.SetState(ctx, nil, &level)
}
