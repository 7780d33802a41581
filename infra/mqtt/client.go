package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coremqtt "github.com/kilianp07/octoslots/core/mqtt"
	"github.com/kilianp07/octoslots/core/monitoring"
	"github.com/kilianp07/octoslots/infra/logger"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
)

// Config defines the connection parameters for the Paho MQTT client and the
// Home Assistant topic layout. An empty Broker disables MQTT.
type Config struct {
	Broker          string      `json:"broker"`
	ClientID        string      `json:"client_id"`
	Username        string      `json:"username"`
	Password        string      `json:"password"`
	UseTLS          bool        `json:"use_tls"`
	ClientCert      string      `json:"client_cert"`
	ClientKey       string      `json:"client_key"`
	CABundle        string      `json:"ca_bundle"`
	AuthMethod      string      `json:"auth_method"`
	QoS             byte        `json:"qos"`
	DiscoveryPrefix string      `json:"discovery_prefix"`
	BaseTopic       string      `json:"base_topic"`
	MaxRetries      int         `json:"max_retries"`
	BackoffMS       int         `json:"backoff_ms"`
	TLSConfig       *tls.Config `json:"-"`
}

func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "octoslots"
	}
	if c.DiscoveryPrefix == "" {
		c.DiscoveryPrefix = "homeassistant"
	}
	if c.BaseTopic == "" {
		c.BaseTopic = "octoslots"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 100
	}
}

func (c Config) Validate() error {
	if c.Broker == "" {
		return nil
	}
	if c.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2")
	}
	if strings.ContainsAny(c.BaseTopic, "+#") || strings.ContainsAny(c.DiscoveryPrefix, "+#") {
		return fmt.Errorf("topics must not contain wildcards")
	}
	switch c.AuthMethod {
	case "", "username_password", "tls", "both":
	default:
		return fmt.Errorf("unknown auth_method %q", c.AuthMethod)
	}
	return nil
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool { return c.Broker != "" }

// StatusTopic is the bridge availability topic carrying the last will.
func (c Config) StatusTopic() string { return c.BaseTopic + "/status" }

// BirthTopic is where Home Assistant announces it has (re)started.
func (c Config) BirthTopic() string { return c.DiscoveryPrefix + "/status" }

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient implements core/mqtt.Publisher using Eclipse Paho.
type PahoClient struct {
	cli         pahoClient
	qos         byte
	statusTopic string
	birthTopic  string
	maxRetries  int
	backoff     time.Duration
	logger      logger.Logger

	mu      sync.Mutex
	onBirth []func()
}

var _ coremqtt.Publisher = (*PahoClient)(nil)

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker, announces the bridge as online
// and listens for Home Assistant birth messages.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	logger := logger.New("mqtt_client")
	pc := &PahoClient{
		qos:         cfg.QoS,
		statusTopic: cfg.StatusTopic(),
		birthTopic:  cfg.BirthTopic(),
		maxRetries:  cfg.MaxRetries,
		backoff:     time.Duration(cfg.BackoffMS) * time.Millisecond,
		logger:      logger,
	}

	opts.OnConnect = func(c paho.Client) {
		logger.Infof("MQTT connected")
		if token := c.Publish(pc.statusTopic, pc.qos, true, payloadOnline); token.Wait() && token.Error() != nil {
			logger.Errorf("status publish error: %v", token.Error())
		}
		if token := c.Subscribe(pc.birthTopic, pc.qos, pc.onBirthMessage); token.Wait() && token.Error() != nil {
			logger.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logger.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		logger.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config. The client id gets
// a random suffix so several instances can share a broker.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	clientID := fmt.Sprintf("%s-%s", cfg.ClientID, uuid.NewString()[:8])
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(clientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	opts.SetWill(cfg.StatusTopic(), payloadOffline, cfg.QoS, true)
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires ca_bundle")
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("no certificates in %s", c.CABundle)
	}
	cfg := &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	if c.ClientCert != "" || c.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load cert: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// OnBirth registers f to run whenever Home Assistant reports it is online.
func (p *PahoClient) OnBirth(f func()) {
	p.mu.Lock()
	p.onBirth = append(p.onBirth, f)
	p.mu.Unlock()
}

func (p *PahoClient) onBirthMessage(_ paho.Client, msg paho.Message) {
	if string(msg.Payload()) != payloadOnline {
		return
	}
	p.logger.Infof("home assistant online, re-announcing entities")
	p.mu.Lock()
	handlers := append([]func(){}, p.onBirth...)
	p.mu.Unlock()
	for _, f := range handlers {
		f()
	}
}

// Publish sends payload to topic, retrying with exponential backoff.
func (p *PahoClient) Publish(topic string, payload []byte, retained bool) error {
	if p.cli == nil {
		return coremqtt.ErrNotConnected
	}
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.qos, retained, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return nil
		}
		p.logger.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	monitoring.CaptureException(publishErr, map[string]string{"module": "mqtt", "topic": topic})
	return publishErr
}

// Disconnect marks the bridge offline and closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		token := p.cli.Publish(p.statusTopic, p.qos, true, payloadOffline)
		token.WaitTimeout(time.Second)
		p.cli.Disconnect(250)
	}
}
