// Package messaging publishes operational events to Kafka or MQTT.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"mosync/config"
)

// backend is one transport. Publish must be safe for concurrent use.
type backend interface {
	Connect(ctx context.Context) error
	Publish(ctx context.Context, topic, key string, data []byte) error
	IsConnected() bool
	Close() error
}

// Envelope wraps every published event.
type Envelope struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload into a fresh envelope.
func NewEnvelope(eventType string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Envelope{
		ID:        uuid.New(),
		Type:      eventType,
		Source:    "mosync",
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}, nil
}

// Client publishes to the configured backend. With no backend configured
// every publish is dropped silently.
type Client struct {
	mu      sync.RWMutex
	cfg     config.MessagingConfig
	backend backend
}

func NewClient(cfg *config.MessagingConfig) *Client {
	c := &Client{cfg: *cfg}
	c.backend = newBackend(cfg)
	return c
}

func newBackend(cfg *config.MessagingConfig) backend {
	switch cfg.Backend {
	case "kafka":
		return newKafkaBackend(cfg.Kafka)
	case "mqtt":
		return newMQTTBackend(cfg.MQTT)
	default:
		return nil
	}
}

func (c *Client) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend != nil
}

func (c *Client) Connect() error {
	c.mu.RLock()
	b := c.backend
	c.mu.RUnlock()
	if b == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return b.Connect(ctx)
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend != nil && c.backend.IsConnected()
}

// Publish sends data on topic. Keyed backends partition by key.
func (c *Client) Publish(ctx context.Context, topic, key string, data []byte) error {
	c.mu.RLock()
	b := c.backend
	c.mu.RUnlock()
	if b == nil {
		return nil
	}
	return b.Publish(ctx, topic, key, data)
}

// PublishEnvelope publishes env to the events topic keyed by its type.
func (c *Client) PublishEnvelope(ctx context.Context, env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.mu.RLock()
	topic := c.cfg.EventsTopic
	c.mu.RUnlock()
	return c.Publish(ctx, topic, env.Type, data)
}

// Reconfigure closes the current backend and connects a new one.
func (c *Client) Reconfigure(cfg *config.MessagingConfig) error {
	c.mu.Lock()
	old := c.backend
	c.cfg = *cfg
	c.backend = newBackend(cfg)
	c.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			log.Printf("messaging: close previous backend: %v", err)
		}
	}
	return c.Connect()
}

func (c *Client) Close() error {
	c.mu.Lock()
	b := c.backend
	c.backend = nil
	c.mu.Unlock()
	if b == nil {
		return nil
	}
	return b.Close()
}
