package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-venues/internal/logger"

	"github.com/segmentio/kafka-go"
)

// Envelope is the JSON body of every domain event.
type Envelope struct {
	Type       string    `json:"type"`
	EntityID   string    `json:"entity_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

type Producer struct {
	Writer *kafka.Writer
	prefix string
	log    *logger.Logger
}

// NewProducer returns a producer that routes each message by its topic.
func NewProducer(brokers []string, prefix string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return &Producer{Writer: writer, prefix: prefix, log: log}
}

// Publish sends one domain event keyed by entity id.
func (p *Producer) Publish(ctx context.Context, topic, key string, data any) error {
	body, err := json.Marshal(Envelope{
		Type:       topic,
		EntityID:   key,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}

	full := TopicName(p.prefix, topic)
	p.log.LogKafka("PUBLISH", full, key)

	return p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: full,
		Key:   []byte(key),
		Value: body,
	})
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// Disabled stands in for the producer when KAFKA_ENABLED is false.
type Disabled struct {
	Log *logger.Logger
}

func (d Disabled) Publish(_ context.Context, topic, key string, _ any) error {
	d.Log.Debug("KAFKA", fmt.Sprintf("disabled, dropping %s for %s", topic, key))
	return nil
}
