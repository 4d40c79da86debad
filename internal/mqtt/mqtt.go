package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"

	"github.com/daemonp/vivint2mqtt/internal/config"
	"github.com/daemonp/vivint2mqtt/internal/devices"
	"github.com/daemonp/vivint2mqtt/internal/entity"
	"github.com/daemonp/vivint2mqtt/internal/log"
	"github.com/daemonp/vivint2mqtt/internal/panel"
)

const (
	offlinePayload = "offline"
	onlinePayload  = "online"

	commandTimeout = 30 * time.Second
)

var cameraEvents = []string{
	devices.EventDoorbellDing,
	devices.EventMotionDetected,
	devices.EventThumbnailReady,
	devices.EventVideoReady,
}

// MQTT mirrors panel and device state to the broker and turns messages on
// command topics into cloud commands.
type MQTT struct {
	config *config.MQTTConfig
	source Source
	log    *log.Logger
	topics *Topics

	mu      sync.Mutex
	client  mqtt.Client
	ctx     context.Context
	watched map[*panel.Panel]*watch

	// OnPanel and OnDevice, when set, are called as each partition or
	// device starts being mirrored, including devices discovered later.
	OnPanel  func(p *panel.Panel)
	OnDevice func(p *panel.Panel, d devices.Device)

	// OnDeviceRemoved is called once a deleted device stops being mirrored.
	OnDeviceRemoved func(p *panel.Panel, d devices.Device)
}

type watch struct {
	unsubs  []func()
	devices map[devices.Device][]func()
}

func NewMQTT(cfg *config.MQTTConfig, source Source, logger *log.Logger) *MQTT {
	return &MQTT{
		config:  cfg,
		source:  source,
		log:     log.OrNop(logger),
		topics:  NewTopics(cfg.Prefix),
		ctx:     context.Background(),
		watched: make(map[*panel.Panel]*watch),
	}
}

func (m *MQTT) GetPrefix() string {
	return m.config.Prefix
}

func (m *MQTT) Topics() *Topics {
	return m.topics
}

// Connect dials the broker. ctx bounds the commands the bridge runs on
// behalf of command topics.
func (m *MQTT) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(BrokerURL(m.config.Host, m.config.Port))
	opts.SetClientID(m.config.ClientID)
	opts.SetUsername(m.config.Username)
	opts.SetPassword(m.config.Password)
	opts.SetCleanSession(m.config.Clean)
	opts.SetKeepAlive(time.Duration(m.config.Keepalive) * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(false)
	opts.SetOnConnectHandler(m.onConnect)
	opts.SetConnectionLostHandler(m.onDisconnect)

	opts.SetWill(m.topics.Status(), offlinePayload, byte(m.config.QOS), true)

	client := mqtt.NewClient(opts)
	m.mu.Lock()
	m.client = client
	m.ctx = ctx
	m.mu.Unlock()

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %v", token.Error())
	}

	m.log.Info("Connected to MQTT broker: %s", BrokerURL(m.config.Host, m.config.Port))
	return nil
}

func (m *MQTT) onConnect(client mqtt.Client) {
	m.log.Info("MQTT connection established")
	m.publish(m.topics.Status(), onlinePayload, true)
	m.subscribeTopics(client)
	m.Sync()
	m.PublishAll()
}

func (m *MQTT) onDisconnect(client mqtt.Client, err error) {
	m.log.Error("MQTT connection lost: %v", err)
}

func (m *MQTT) subscribeTopics(client mqtt.Client) {
	for _, topic := range m.topics.CommandFilters() {
		token := client.Subscribe(topic, byte(m.config.QOS), m.handleMessage)
		if token.Wait() && token.Error() != nil {
			m.log.Error("Failed to subscribe to topic %s: %v", topic, token.Error())
		} else {
			m.log.Debug("Subscribed to topic: %s", topic)
		}
	}
}

func (m *MQTT) handleMessage(client mqtt.Client, msg mqtt.Message) {
	topic := msg.Topic()
	m.log.Debug("Received message on topic %s: %s", topic, msg.Payload())

	m.mu.Lock()
	parent := m.ctx
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, commandTimeout)
	defer cancel()
	if err := m.Execute(ctx, topic, msg.Payload()); err != nil {
		m.log.Error("Command on %s failed: %v", topic, err)
	}
}

// Sync starts mirroring every partition and device the source knows about
// that is not mirrored yet. Devices a refresh added to an already mirrored
// partition are published as they are picked up. It is safe to call after
// each refresh.
func (m *MQTT) Sync() {
	for _, p := range m.source.Panels() {
		if m.watchPanel(p) {
			continue
		}
		for _, d := range p.Devices() {
			if m.watchDevice(p, d) {
				m.PublishDevice(d)
			}
		}
	}
}

// watchPanel reports whether p was newly mirrored.
func (m *MQTT) watchPanel(p *panel.Panel) bool {
	m.mu.Lock()
	if _, ok := m.watched[p]; ok {
		m.mu.Unlock()
		return false
	}
	w := &watch{devices: make(map[devices.Device][]func())}
	m.watched[p] = w
	m.mu.Unlock()

	unsubs := []func(){
		p.On(entity.EventUpdate, func(entity.Event) { m.PublishPanel(p) }),
		p.On(panel.EventDeviceDiscovered, func(ev entity.Event) {
			if d, ok := ev.Data["device"].(devices.Device); ok {
				m.watchDevice(p, d)
				m.PublishDevice(d)
			}
		}),
		p.On(panel.EventDeviceDeleted, func(ev entity.Event) {
			if d, ok := ev.Data["device"].(devices.Device); ok {
				m.unwatchDevice(p, d)
			}
		}),
	}
	m.mu.Lock()
	w.unsubs = unsubs
	m.mu.Unlock()

	if m.OnPanel != nil {
		m.OnPanel(p)
	}
	for _, d := range p.Devices() {
		m.watchDevice(p, d)
	}
	m.log.Debug("Mirroring panel %d/%d", p.ID(), p.PartitionID())
	return true
}

// watchDevice reports whether d was newly mirrored.
func (m *MQTT) watchDevice(p *panel.Panel, d devices.Device) bool {
	m.mu.Lock()
	w, ok := m.watched[p]
	if !ok {
		m.mu.Unlock()
		return false
	}
	if _, ok := w.devices[d]; ok {
		m.mu.Unlock()
		return false
	}
	unsubs := []func(){d.On(entity.EventUpdate, func(entity.Event) { m.PublishDevice(d) })}
	if _, ok := d.(*devices.Camera); ok {
		for _, name := range cameraEvents {
			unsubs = append(unsubs, d.On(name, func(ev entity.Event) { m.publishEvent(d, ev.Name) }))
		}
	}
	w.devices[d] = unsubs
	m.mu.Unlock()

	if m.OnDevice != nil {
		m.OnDevice(p, d)
	}
	return true
}

func (m *MQTT) unwatchDevice(p *panel.Panel, d devices.Device) {
	m.mu.Lock()
	w, ok := m.watched[p]
	var unsubs []func()
	if ok {
		unsubs = w.devices[d]
		delete(w.devices, d)
	}
	m.mu.Unlock()

	for _, off := range unsubs {
		off()
	}
	// An empty retained message clears the device's last state.
	m.publish(m.topics.Device(d), "", true)
	if m.OnDeviceRemoved != nil {
		m.OnDeviceRemoved(p, d)
	}
}

// PublishAll publishes the current state of every mirrored partition and
// device.
func (m *MQTT) PublishAll() {
	for _, p := range m.source.Panels() {
		m.PublishPanel(p)
		for _, d := range p.Devices() {
			m.PublishDevice(d)
		}
	}
}

func (m *MQTT) PublishPanel(p *panel.Panel) {
	m.publish(m.topics.Panel(p), panelState(p), m.config.Retain)
}

func (m *MQTT) PublishDevice(d devices.Device) {
	m.publish(m.topics.Device(d), deviceState(d), m.config.Retain)
}

func (m *MQTT) publishEvent(d devices.Device, name string) {
	event := map[string]interface{}{
		"event":  name,
		"device": d.ID(),
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	m.publish(m.topics.Device(d)+"/event", event, false)
}

// Publish sends payload to topic. Strings and byte slices go out verbatim,
// anything else is encoded as JSON.
func (m *MQTT) Publish(topic string, payload interface{}, retain bool) {
	m.publish(topic, payload, retain)
}

func (m *MQTT) publish(topic string, message interface{}, retain bool) {
	var payload []byte
	switch v := message.(type) {
	case string:
		payload = []byte(v)
	case []byte:
		payload = v
	default:
		var err error
		payload, err = json.Marshal(message)
		if err != nil {
			m.log.Error("Failed to marshal message for topic %s: %v", topic, err)
			return
		}
	}

	m.mu.Lock()
	client := m.client
	m.mu.Unlock()
	if client == nil {
		m.log.Debug("Not connected, dropping message for topic: %s", topic)
		return
	}

	token := client.Publish(topic, byte(m.config.QOS), retain, payload)
	if token.Wait() && token.Error() != nil {
		m.log.Error("Failed to publish message to topic %s: %v", topic, token.Error())
	} else {
		m.log.Debug("Published message to topic: %s", topic)
	}
}

// Close stops mirroring and disconnects, announcing the bridge offline.
func (m *MQTT) Close() {
	m.mu.Lock()
	watched := m.watched
	m.watched = make(map[*panel.Panel]*watch)
	client := m.client
	m.mu.Unlock()

	for _, w := range watched {
		for _, off := range w.unsubs {
			off()
		}
		for _, unsubs := range w.devices {
			for _, off := range unsubs {
				off()
			}
		}
	}

	if client != nil && client.IsConnected() {
		m.publish(m.topics.Status(), offlinePayload, true)
		client.Disconnect(250)
	}
}
