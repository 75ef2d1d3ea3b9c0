package messaging

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mosync/config"
)

func TestDisabledClientDropsEvents(t *testing.T) {
	c := NewClient(&config.MessagingConfig{EventsTopic: "mosync.events"})
	assert.False(t, c.Enabled())
	require.NoError(t, c.Connect())
	assert.False(t, c.IsConnected())

	env, err := NewEnvelope("job.completed", map[string]int{"updated": 3})
	require.NoError(t, err)
	assert.NoError(t, c.PublishEnvelope(context.Background(), env))
	assert.NoError(t, c.Close())
}

func TestBackendSelection(t *testing.T) {
	c := NewClient(&config.MessagingConfig{Backend: "kafka", Kafka: config.KafkaConfig{Brokers: []string{"127.0.0.1:1"}}})
	_, ok := c.backend.(*kafkaBackend)
	assert.True(t, ok)
	assert.False(t, c.IsConnected())

	c = NewClient(&config.MessagingConfig{Backend: "mqtt", MQTT: config.MQTTConfig{Broker: "tcp://127.0.0.1:1", ClientID: "t"}})
	_, ok = c.backend.(*mqttBackend)
	assert.True(t, ok)
}

type memBackend struct {
	topics []string
	keys   []string
	data   [][]byte
}

func (m *memBackend) Connect(context.Context) error { return nil }
func (m *memBackend) Publish(_ context.Context, topic, key string, data []byte) error {
	m.topics = append(m.topics, topic)
	m.keys = append(m.keys, key)
	m.data = append(m.data, data)
	return nil
}
func (m *memBackend) IsConnected() bool { return true }
func (m *memBackend) Close() error      { return nil }

func TestPublishEnvelope(t *testing.T) {
	mem := &memBackend{}
	c := &Client{cfg: config.MessagingConfig{EventsTopic: "mosync.events"}, backend: mem}

	env, err := NewEnvelope("breaker.state_changed", map[string]string{"to": "OPEN"})
	require.NoError(t, err)
	require.NoError(t, c.PublishEnvelope(context.Background(), env))

	require.Len(t, mem.data, 1)
	assert.Equal(t, "mosync.events", mem.topics[0])
	assert.Equal(t, "breaker.state_changed", mem.keys[0])

	var got Envelope
	require.NoError(t, json.Unmarshal(mem.data[0], &got))
	assert.Equal(t, env.ID, got.ID)
	assert.JSONEq(t, `{"to":"OPEN"}`, string(got.Payload))
}
