// internal/mqtt/mqtt.go
package mqtt

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// ClientAPI is the minimal surface area the mirror needs.
// It enables unit testing without requiring a live broker.
type ClientAPI interface {
	Subscribe(topic string, cb Handler) error
	Unsubscribe(topic string) error
	Publish(topic string, payload []byte) error
	PublishWith(topic string, payload []byte, retain bool) error
}

// Message is re-exported type for handlers
type Message = mqtt.Message

// Handler is handler signature
type Handler = mqtt.MessageHandler

type Config struct {
	BrokerURL string
	Timeout   time.Duration

	// ClientPrefix is joined with a random suffix to form the client id.
	ClientPrefix string

	// OnConnect runs after every (re)connect, once routes are subscribed.
	OnConnect func()
}

// Client wraps one paho connection and re-subscribes its routes on reconnect.
type Client struct {
	cli     mqtt.Client
	log     *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	routes map[string]Handler
}

// New connects to the broker in cfg.BrokerURL (mqtt, tcp, ssl, tls, ws, wss).
func New(cfg Config, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	server, u, err := brokerServer(cfg.BrokerURL)
	if err != nil {
		return nil, err
	}
	if cfg.ClientPrefix == "" {
		cfg.ClientPrefix = "printer-mirror"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := &Client{log: log, timeout: cfg.Timeout, routes: make(map[string]Handler)}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(server)
	opts.SetClientID(cfg.ClientPrefix + "-" + uuid.NewString()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetCleanSession(true)
	opts.OnConnect = func(mqtt.Client) {
		log.Info("mqtt connected", "broker", u.Host)
		c.resubscribe()
		if cfg.OnConnect != nil {
			cfg.OnConnect()
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) { log.Error("mqtt connection lost", "error", err) }
	if u.User != nil {
		pw, _ := u.User.Password()
		opts.SetUsername(u.User.Username())
		opts.SetPassword(pw)
	}
	if u.Scheme == "ssl" || u.Scheme == "tls" || u.Scheme == "wss" {
		// printers present self-signed certificates
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true})
	}

	c.cli = mqtt.NewClient(opts)
	t := c.cli.Connect()
	if !t.WaitTimeout(cfg.Timeout) {
		log.Warn("mqtt connect pending, retrying in background", "broker", u.Host)
		return c, nil
	}
	if err := t.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", u.Host, err)
	}
	return c, nil
}

// brokerServer maps a broker url onto the paho server string.
func brokerServer(brokerURL string) (string, *url.URL, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return "", nil, fmt.Errorf("mqtt: broker url: %w", err)
	}
	if u.Host == "" {
		return "", nil, errors.New("mqtt: broker url has no host")
	}
	switch u.Scheme {
	case "mqtt", "tcp":
		return "tcp://" + u.Host, u, nil
	case "ssl", "tls":
		return "ssl://" + u.Host, u, nil
	case "ws", "wss":
		return u.Scheme + "://" + u.Host + u.Path, u, nil
	}
	return "", nil, fmt.Errorf("mqtt: unsupported scheme %q", u.Scheme)
}

// Subscribe registers cb for topic. The route survives reconnects.
func (c *Client) Subscribe(topic string, cb Handler) error {
	c.mu.Lock()
	c.routes[topic] = cb
	c.mu.Unlock()

	if !c.cli.IsConnectionOpen() {
		// subscribed by OnConnect
		return nil
	}
	return c.subscribe(topic, cb)
}

func (c *Client) subscribe(topic string, cb Handler) error {
	t := c.cli.Subscribe(topic, 0, cb)
	if err := c.wait(t); err != nil {
		return fmt.Errorf("mqtt: subscribe %s: %w", topic, err)
	}
	c.log.Info("mqtt subscribed", "topic", topic)
	return nil
}

func (c *Client) resubscribe() {
	c.mu.Lock()
	routes := make(map[string]Handler, len(c.routes))
	for k, v := range c.routes {
		routes[k] = v
	}
	c.mu.Unlock()

	for topic, cb := range routes {
		if err := c.subscribe(topic, cb); err != nil {
			c.log.Error("mqtt resubscribe failed", "topic", topic, "error", err)
		}
	}
}

func (c *Client) Unsubscribe(topic string) error {
	c.mu.Lock()
	delete(c.routes, topic)
	c.mu.Unlock()

	t := c.cli.Unsubscribe(topic)
	if err := c.wait(t); err != nil {
		return fmt.Errorf("mqtt: unsubscribe %s: %w", topic, err)
	}
	c.log.Info("mqtt unsubscribed", "topic", topic)
	return nil
}

func (c *Client) Publish(topic string, payload []byte) error {
	return c.PublishWith(topic, payload, false)
}

func (c *Client) PublishWith(topic string, payload []byte, retain bool) error {
	t := c.cli.Publish(topic, 0, retain, payload)
	if err := c.wait(t); err != nil {
		return fmt.Errorf("mqtt: publish %s: %w", topic, err)
	}
	return nil
}

func (c *Client) wait(t mqtt.Token) error {
	if !t.WaitTimeout(c.timeout) {
		return errors.New("timeout")
	}
	return t.Error()
}

// Close disconnects, allowing 250ms for in-flight work.
func (c *Client) Close() {
	c.cli.Disconnect(250)
}
