package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/aristath/playground/internal/config"
)

// Publisher emits events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, module string, data EventData) error
	Close() error
}

// NewPublisher returns a Kafka publisher when brokers are configured and a
// log-only publisher otherwise.
func NewPublisher(cfg config.EventsConfig, log zerolog.Logger) (Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return NewLogPublisher(log), nil
	}
	return NewKafkaPublisher(cfg.Brokers, cfg.Topic, log)
}

// LogPublisher writes events to the log only.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher creates a log-only publisher
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{
		log: log.With().Str("service", "events").Logger(),
	}
}

// Publish logs the event
func (p *LogPublisher) Publish(_ context.Context, module string, data EventData) error {
	event := NewEvent(module, data)
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	p.log.Info().
		Str("event_type", string(event.Type)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")
	return nil
}

// Close is a no-op
func (p *LogPublisher) Close() error { return nil }

// KafkaPublisher writes JSON events to a Kafka topic, keyed by event type.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      zerolog.Logger
}

// NewKafkaPublisher connects a synchronous producer to the brokers.
func NewKafkaPublisher(brokers []string, topic string, log zerolog.Logger) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	cfg.Version = sarama.V2_8_0_0

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return newKafkaPublisher(producer, topic, log), nil
}

func newKafkaPublisher(producer sarama.SyncProducer, topic string, log zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		log:      log.With().Str("service", "events").Str("topic", topic).Logger(),
	}
}

// Publish sends the event and waits for the broker acknowledgement.
func (p *KafkaPublisher) Publish(ctx context.Context, module string, data EventData) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	event := NewEvent(module, data)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.Type),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("module"), Value: []byte(module)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.log.Debug().
		Str("event_type", string(event.Type)).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("Event published")
	return nil
}

// Close flushes and closes the producer
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
