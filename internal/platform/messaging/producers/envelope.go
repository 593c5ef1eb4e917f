package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/erp-ledger-engine/internal/config"
)

type EnvelopeMessageProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewEnvelopeMessageProducer creates the sync worker's envelope producer
// and ensures the topic exists. Writes are synchronous with full acks:
// the outbox poller only marks a message processed once the broker has
// taken it.
func NewEnvelopeMessageProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*EnvelopeMessageProducer, error) {
	if cfg.EnvelopeTopic == "" {
		return nil, fmt.Errorf("kafka envelope topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for envelope producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.EnvelopeTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure envelope topic %s exists for envelope producer: %w", cfg.EnvelopeTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.EnvelopeTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write envelope messages", "topic", cfg.EnvelopeTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote envelope messages", "topic", cfg.EnvelopeTopic, "count", len(messages))
			}
		},
	}

	return &EnvelopeMessageProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.EnvelopeTopic,
	}, nil
}

func (p *EnvelopeMessageProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message value for envelope producer: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message via envelope producer",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s via envelope producer: %w", p.topic, err)
	}

	p.logger.Debug("Published message via envelope producer",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *EnvelopeMessageProducer) Close() error {
	p.logger.Info("Closing envelope Kafka message producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close envelope kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
