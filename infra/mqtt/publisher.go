package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	coremqtt "github.com/kilianp07/octoslots/core/mqtt"
	"github.com/kilianp07/octoslots/core/state"
	"github.com/kilianp07/octoslots/infra/logger"
	"github.com/kilianp07/octoslots/internal/eventbus"
)

type haDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

type haAvailability struct {
	Topic string `json:"topic"`
}

type haConfig struct {
	Name                string           `json:"name"`
	UniqueID            string           `json:"unique_id"`
	StateTopic          string           `json:"state_topic"`
	JSONAttributesTopic string           `json:"json_attributes_topic,omitempty"`
	Availability        []haAvailability `json:"availability"`
	AvailabilityMode    string           `json:"availability_mode"`
	PayloadOn           string           `json:"payload_on,omitempty"`
	PayloadOff          string           `json:"payload_off,omitempty"`
	DeviceClass         string           `json:"device_class,omitempty"`
	Unit                string           `json:"unit_of_measurement,omitempty"`
	Icon                string           `json:"icon,omitempty"`
	Device              haDevice         `json:"device"`
}

// StatePublisher renders derived trees as Home Assistant MQTT entities.
// Discovery configs are sent once per device and again after a Home
// Assistant restart.
type StatePublisher struct {
	pub coremqtt.Publisher
	cfg Config
	log logger.Logger

	mu        sync.Mutex
	node      string
	announced map[string]bool
	last      *state.State
}

func NewStatePublisher(pub coremqtt.Publisher, cfg Config, log logger.Logger) *StatePublisher {
	return &StatePublisher{pub: pub, cfg: cfg, log: log, announced: make(map[string]bool)}
}

// PublishState publishes discovery, availability and state for the account,
// every device in st and the departed devices.
func (p *StatePublisher) PublishState(st state.State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = &st

	node := "octoslots"
	if st.Account.ID != "" {
		node += "_" + slug(st.Account.ID)
	}
	if node != p.node {
		p.node = node
		p.announced = make(map[string]bool)
	}

	var errs []error
	errs = append(errs, p.publishScope(accountScope(st.Account)))
	for _, d := range st.Devices {
		errs = append(errs, p.publishScope(deviceScope(d)))
	}
	for _, id := range st.Departed {
		errs = append(errs, p.publish(p.availabilityTopic(deviceSlug(id)), payloadOffline, true))
	}
	return errors.Join(errs...)
}

// Reannounce forgets which devices were announced and republishes the last
// state.
func (p *StatePublisher) Reannounce() {
	p.mu.Lock()
	p.announced = make(map[string]bool)
	last := p.last
	p.mu.Unlock()
	if last == nil {
		return
	}
	if err := p.PublishState(*last); err != nil {
		p.log.Errorf("re-announce: %v", err)
	}
}

// Start publishes every state received on bus until ctx is done.
func (p *StatePublisher) Start(ctx context.Context, bus *eventbus.TypedBus[state.State]) {
	ch := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case st, ok := <-ch:
				if !ok {
					return
				}
				if err := p.PublishState(st); err != nil {
					p.log.Errorf("publish state: %v", err)
				}
			}
		}
	}()
}

func (p *StatePublisher) publishScope(s scope) error {
	if !p.announced[s.slug] {
		if err := p.announce(s); err != nil {
			return fmt.Errorf("announce %s: %w", s.slug, err)
		}
		p.announced[s.slug] = true
	}
	if !s.available {
		return p.publish(p.availabilityTopic(s.slug), payloadOffline, true)
	}
	if err := p.publish(p.availabilityTopic(s.slug), payloadOnline, true); err != nil {
		return err
	}
	var errs []error
	for _, e := range entities {
		errs = append(errs, p.publish(p.stateTopic(s.slug, e.key), e.value(s), true))
		if e.attributes == nil {
			continue
		}
		b, err := json.Marshal(e.attributes(s))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		errs = append(errs, p.publishBytes(p.attributesTopic(s.slug, e.key), b, true))
	}
	return errors.Join(errs...)
}

func (p *StatePublisher) announce(s scope) error {
	dev := haDevice{
		Identifiers:  []string{p.deviceIdentifier(s.slug)},
		Name:         s.name,
		Manufacturer: "Octopus Energy",
		Model:        s.model,
	}
	if s.parent != "" {
		dev.ViaDevice = p.deviceIdentifier(s.parent)
	}
	for _, e := range entities {
		cfg := haConfig{
			Name:       e.name,
			UniqueID:   fmt.Sprintf("%s_%s_%s", p.node, s.slug, e.key),
			StateTopic: p.stateTopic(s.slug, e.key),
			Availability: []haAvailability{
				{Topic: p.cfg.StatusTopic()},
				{Topic: p.availabilityTopic(s.slug)},
			},
			AvailabilityMode: "all",
			DeviceClass:      e.deviceClass,
			Unit:             e.unit,
			Icon:             e.icon,
			Device:           dev,
		}
		if e.component == componentBinarySensor {
			cfg.PayloadOn, cfg.PayloadOff = payloadOn, payloadOff
		}
		if e.attributes != nil {
			cfg.JSONAttributesTopic = p.attributesTopic(s.slug, e.key)
		}
		b, err := json.Marshal(cfg)
		if err != nil {
			return err
		}
		if err := p.publishBytes(p.discoveryTopic(e.component, s.slug, e.key), b, true); err != nil {
			return err
		}
	}
	return nil
}

func (p *StatePublisher) publish(topic, payload string, retained bool) error {
	return p.publishBytes(topic, []byte(payload), retained)
}

func (p *StatePublisher) publishBytes(topic string, payload []byte, retained bool) error {
	return p.pub.Publish(topic, payload, retained)
}

func (p *StatePublisher) deviceIdentifier(scopeSlug string) string {
	return p.node + "_" + scopeSlug
}

func (p *StatePublisher) discoveryTopic(component, scopeSlug, key string) string {
	return fmt.Sprintf("%s/%s/%s/%s_%s/config", p.cfg.DiscoveryPrefix, component, p.node, scopeSlug, key)
}

func (p *StatePublisher) stateTopic(scopeSlug, key string) string {
	return fmt.Sprintf("%s/%s/%s", p.cfg.BaseTopic, scopeSlug, key)
}

func (p *StatePublisher) attributesTopic(scopeSlug, key string) string {
	return p.stateTopic(scopeSlug, key) + "/attributes"
}

func (p *StatePublisher) availabilityTopic(scopeSlug string) string {
	return fmt.Sprintf("%s/%s/availability", p.cfg.BaseTopic, scopeSlug)
}

// MockPublisher records published messages for tests.
type MockPublisher struct {
	mu       sync.Mutex
	Messages map[string]string
	Retained map[string]bool
	Order    []string
	FailOn   map[string]bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Messages: make(map[string]string),
		Retained: make(map[string]bool),
		FailOn:   make(map[string]bool),
	}
}

func (m *MockPublisher) Publish(topic string, payload []byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailOn[topic] {
		return fmt.Errorf("publish failed")
	}
	m.Messages[topic] = string(payload)
	m.Retained[topic] = retained
	m.Order = append(m.Order, topic)
	return nil
}

// Get returns the last payload published on topic.
func (m *MockPublisher) Get(topic string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Messages[topic]
	return v, ok
}

// Count returns how many messages were published on topic.
func (m *MockPublisher) Count(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.Order {
		if t == topic {
			n++
		}
	}
	return n
}
