package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/segmentio/kafka-go"

	"mosync/config"
)

type kafkaBackend struct {
	brokers   []string
	writer    *kafka.Writer
	connected atomic.Bool
}

func newKafkaBackend(cfg config.KafkaConfig) *kafkaBackend {
	return &kafkaBackend{
		brokers: cfg.Brokers,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

// Connect dials the first reachable broker to verify the cluster is up.
func (k *kafkaBackend) Connect(ctx context.Context) error {
	if len(k.brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}
	var lastErr error
	for _, b := range k.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", b)
		if err != nil {
			lastErr = err
			continue
		}
		conn.Close()
		k.connected.Store(true)
		return nil
	}
	return fmt.Errorf("kafka: %w", lastErr)
}

func (k *kafkaBackend) Publish(ctx context.Context, topic, key string, data []byte) error {
	err := k.writer.WriteMessages(ctx, kafka.Message{Topic: topic, Key: []byte(key), Value: data})
	k.connected.Store(err == nil)
	if err != nil {
		return fmt.Errorf("kafka publish %s: %w", topic, err)
	}
	return nil
}

func (k *kafkaBackend) IsConnected() bool { return k.connected.Load() }

func (k *kafkaBackend) Close() error {
	k.connected.Store(false)
	return k.writer.Close()
}
