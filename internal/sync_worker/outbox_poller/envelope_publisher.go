package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/erp-ledger-engine/internal/domain/outbox"
	"github.com/erp-ledger-engine/internal/domain/shared"
	"github.com/erp-ledger-engine/internal/platform/metrics"
)

// EnvelopeProducer is the Kafka surface the publisher writes through.
type EnvelopeProducer interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// EnvelopePublisher pushes one outbox message to the sync topic
type EnvelopePublisher interface {
	PublishEnvelope(ctx context.Context, message *outbox.Message) error
}

// EnvelopePublisherImpl implements EnvelopePublisher
type EnvelopePublisherImpl struct {
	outboxRepo outbox.Repository
	producer   EnvelopeProducer
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewEnvelopePublisher creates a new publisher
func NewEnvelopePublisher(
	outboxRepo outbox.Repository,
	producer EnvelopeProducer,
	m *metrics.Metrics,
	logger *slog.Logger,
) EnvelopePublisher {
	return &EnvelopePublisherImpl{
		outboxRepo: outboxRepo,
		producer:   producer,
		metrics:    m,
		logger:     logger,
	}
}

// PublishEnvelope publishes a committed mutation envelope to the sync
// topic and marks the outbox row processed. Messages are keyed by org
// so every peer sees an org's envelopes in commit order.
func (p *EnvelopePublisherImpl) PublishEnvelope(ctx context.Context, message *outbox.Message) error {
	envelope, err := message.GetEnvelope()
	if err != nil {
		return fmt.Errorf("unmarshal envelope for outbox %d failed: %w", message.ID, err)
	}

	if err := p.producer.Publish(ctx, envelope.OrgID, envelope); err != nil {
		return fmt.Errorf("publish envelope %s for outbox %d failed: %w", envelope.MutationID, message.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		// The broker has the envelope; the next poll will retry the
		// publish and the topic dedupes on mutation_id downstream.
		p.logger.Error("Envelope published but failed to mark outbox message as PROCESSED",
			"outbox_id", message.ID, "mutation_id", message.MutationID, "error", err,
		)
		return fmt.Errorf("published envelope %s, but failed to mark outbox %d as PROCESSED: %w", envelope.MutationID, message.ID, err)
	}

	p.metrics.OutboxPublished.Inc()
	p.logger.Info("Published outbox envelope",
		"outbox_id", message.ID, "mutation_id", message.MutationID, "org_id", envelope.OrgID, "lamport", envelope.Lamport,
	)
	return nil
}
