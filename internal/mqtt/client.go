package mqtt

import "github.com/daemonp/vivint2mqtt/internal/panel"

// MQTTClient is what discovery publishers need from the bridge.
type MQTTClient interface {
	GetPrefix() string
	Topics() *Topics
	Publish(topic string, payload interface{}, retain bool)
}

// Source lists the panel partitions the bridge mirrors.
type Source interface {
	Panels() []*panel.Panel
}

// SourceFunc adapts a function to Source.
type SourceFunc func() []*panel.Panel

func (f SourceFunc) Panels() []*panel.Panel {
	return f()
}
