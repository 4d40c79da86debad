package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/daemonp/vivint2mqtt/internal/devices"
	"github.com/daemonp/vivint2mqtt/internal/panel"
	"github.com/daemonp/vivint2mqtt/internal/util"
)

var (
	ErrUnknownTarget  = errors.New("mqtt: no panel or device for topic")
	ErrUnknownCommand = errors.New("mqtt: unknown command")
	ErrNotCommandable = errors.New("mqtt: device accepts no commands")
)

// Command payloads.
const (
	CmdDisarm     = "disarm"
	CmdArmStay    = "arm_stay"
	CmdArmAway    = "arm_away"
	CmdTrigger    = "trigger"
	CmdReboot     = "reboot"
	CmdLock       = "lock"
	CmdUnlock     = "unlock"
	CmdOn         = "on"
	CmdOff        = "off"
	CmdOpen       = "open"
	CmdClose      = "close"
	CmdBypass     = "bypass"
	CmdUnbypass   = "unbypass"
	CmdPrivacyOn  = "privacy_on"
	CmdPrivacyOff = "privacy_off"
	CmdDeterOn    = "deter_on"
	CmdDeterOff   = "deter_off"
	CmdChimeOn    = "chime_on"
	CmdChimeOff   = "chime_off"
	CmdThumbnail  = "thumbnail"
)

func unknown(cmd string, valid ...string) error {
	return fmt.Errorf("%w %q, expected %s", ErrUnknownCommand, cmd, util.JoinWithOr(valid))
}

func normalizeCommand(payload []byte) string {
	return strings.ToLower(strings.TrimSpace(string(payload)))
}

func (m *MQTT) findPanel(panelID, partitionID int) (*panel.Panel, bool) {
	for _, p := range m.source.Panels() {
		if p.ID() == panelID && p.PartitionID() == partitionID {
			return p, true
		}
	}
	return nil, false
}

// Execute runs the command carried by payload against the panel or device
// the topic addresses.
func (m *MQTT) Execute(ctx context.Context, topic string, payload []byte) error {
	target, ok := m.topics.parseCommand(topic)
	if !ok {
		return fmt.Errorf("%w %s", ErrUnknownTarget, topic)
	}
	p, ok := m.findPanel(target.PanelID, target.PartitionID)
	if !ok {
		return fmt.Errorf("%w %s", ErrUnknownTarget, topic)
	}
	if target.DeviceID == 0 {
		return panelCommand(ctx, p, normalizeCommand(payload))
	}
	d, ok := p.Device(target.DeviceID)
	if !ok {
		return fmt.Errorf("%w %s", ErrUnknownTarget, topic)
	}
	return deviceCommand(ctx, d, payload)
}

func panelCommand(ctx context.Context, p *panel.Panel, cmd string) error {
	switch cmd {
	case CmdDisarm:
		return p.Disarm(ctx)
	case CmdArmStay, "arm_home":
		return p.ArmStay(ctx)
	case CmdArmAway:
		return p.ArmAway(ctx)
	case CmdTrigger:
		return p.TriggerAlarm(ctx)
	case CmdReboot:
		return p.Reboot(ctx)
	default:
		return unknown(cmd, CmdDisarm, CmdArmStay, CmdArmAway, CmdTrigger, CmdReboot)
	}
}

func deviceCommand(ctx context.Context, d devices.Device, payload []byte) error {
	cmd := normalizeCommand(payload)

	switch v := d.(type) {
	case *devices.DoorLock:
		switch cmd {
		case CmdLock:
			return v.Lock(ctx)
		case CmdUnlock:
			return v.Unlock(ctx)
		}
		return unknown(cmd, CmdLock, CmdUnlock)

	case *devices.BinarySwitch:
		switch cmd {
		case CmdOn:
			return v.TurnOn(ctx)
		case CmdOff:
			return v.TurnOff(ctx)
		}
		return unknown(cmd, CmdOn, CmdOff)

	case *devices.MultilevelSwitch:
		switch cmd {
		case CmdOn:
			return v.TurnOn(ctx)
		case CmdOff:
			return v.TurnOff(ctx)
		}
		level, err := strconv.Atoi(cmd)
		if err != nil {
			return unknown(cmd, CmdOn, CmdOff, "a level from 0 to 100")
		}
		return v.SetLevel(ctx, level)

	case *devices.GarageDoor:
		switch cmd {
		case CmdOpen:
			return v.Open(ctx)
		case CmdClose:
			return v.Close(ctx)
		}
		return unknown(cmd, CmdOpen, CmdClose)

	case *devices.WirelessSensor:
		switch cmd {
		case CmdBypass:
			return v.Bypass(ctx)
		case CmdUnbypass:
			return v.Unbypass(ctx)
		}
		return unknown(cmd, CmdBypass, CmdUnbypass)

	case *devices.Thermostat:
		var opts map[string]any
		if err := json.Unmarshal(payload, &opts); err != nil || len(opts) == 0 {
			return fmt.Errorf("%w: thermostat expects a JSON object of attributes", ErrUnknownCommand)
		}
		return v.SetState(ctx, opts)

	case *devices.Camera:
		switch cmd {
		case CmdPrivacyOn, CmdPrivacyOff:
			return v.SetPrivacyMode(ctx, cmd == CmdPrivacyOn)
		case CmdDeterOn, CmdDeterOff:
			return v.SetDeterMode(ctx, cmd == CmdDeterOn)
		case CmdChimeOn, CmdChimeOff:
			return v.SetAsDoorbellChimeExtender(ctx, cmd == CmdChimeOn)
		case CmdReboot:
			return v.Reboot(ctx)
		case CmdThumbnail:
			return v.RequestThumbnail(ctx)
		}
		return unknown(cmd, CmdPrivacyOn, CmdPrivacyOff, CmdDeterOn, CmdDeterOff, CmdChimeOn, CmdChimeOff, CmdReboot, CmdThumbnail)
	}

	return fmt.Errorf("%w: %s %d", ErrNotCommandable, d.Type(), d.ID())
}
