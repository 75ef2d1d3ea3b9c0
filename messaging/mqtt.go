package messaging

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"mosync/config"
)

const mqttQoS = 1

type mqttBackend struct {
	client mqtt.Client
}

func newMQTTBackend(cfg config.MQTTConfig) *mqttBackend {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	return &mqttBackend{client: mqtt.NewClient(opts)}
}

func (m *mqttBackend) Connect(ctx context.Context) error {
	return wait(ctx, m.client.Connect(), "connect")
}

// Publish ignores key; MQTT has no partitioning.
func (m *mqttBackend) Publish(ctx context.Context, topic, _ string, data []byte) error {
	return wait(ctx, m.client.Publish(topic, mqttQoS, false, data), "publish "+topic)
}

func (m *mqttBackend) IsConnected() bool { return m.client.IsConnectionOpen() }

func (m *mqttBackend) Close() error {
	m.client.Disconnect(250)
	return nil
}

func wait(ctx context.Context, tok mqtt.Token, op string) error {
	select {
	case <-tok.Done():
	case <-ctx.Done():
		return fmt.Errorf("mqtt %s: %w", op, ctx.Err())
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt %s: %w", op, err)
	}
	return nil
}
