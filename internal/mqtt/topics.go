package mqtt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/daemonp/vivint2mqtt/internal/devices"
	"github.com/daemonp/vivint2mqtt/internal/panel"
)

const commandSuffix = "set"

type Topics struct {
	prefix string
}

func NewTopics(prefix string) *Topics {
	return &Topics{prefix: prefix}
}

func (t *Topics) Status() string {
	return fmt.Sprintf("%s/status", t.prefix)
}

// Panel is the state topic of a panel partition.
func (t *Topics) Panel(p *panel.Panel) string {
	return fmt.Sprintf("%s/%d/%d", t.prefix, p.ID(), p.PartitionID())
}

func (t *Topics) PanelCommand(p *panel.Panel) string {
	return t.Panel(p) + "/" + commandSuffix
}

// Device is the state topic of a device, nested under its partition.
func (t *Topics) Device(d devices.Device) string {
	o := d.Owner()
	return fmt.Sprintf("%s/%d/%d/%d", t.prefix, o.PanelID, o.PartitionID, d.ID())
}

func (t *Topics) DeviceCommand(d devices.Device) string {
	return t.Device(d) + "/" + commandSuffix
}

// CommandFilters are the subscriptions covering every command topic.
func (t *Topics) CommandFilters() []string {
	return []string{
		fmt.Sprintf("%s/+/+/%s", t.prefix, commandSuffix),
		fmt.Sprintf("%s/+/+/+/%s", t.prefix, commandSuffix),
	}
}

// commandTarget identifies what a command topic addresses. DeviceID is zero
// for panel commands.
type commandTarget struct {
	PanelID     int
	PartitionID int
	DeviceID    int
}

func (t *Topics) parseCommand(topic string) (commandTarget, bool) {
	rest, ok := strings.CutPrefix(topic, t.prefix+"/")
	if !ok {
		return commandTarget{}, false
	}
	parts := strings.Split(rest, "/")
	if len(parts) < 3 || len(parts) > 4 || parts[len(parts)-1] != commandSuffix {
		return commandTarget{}, false
	}

	ids := make([]int, 0, 3)
	for _, s := range parts[:len(parts)-1] {
		n, err := strconv.Atoi(s)
		if err != nil {
			return commandTarget{}, false
		}
		ids = append(ids, n)
	}

	target := commandTarget{PanelID: ids[0], PartitionID: ids[1]}
	if len(ids) == 3 {
		target.DeviceID = ids[2]
	}
	return target, true
}
