package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/erp-ledger-engine/internal/config"
	"github.com/erp-ledger-engine/internal/domain/outbox"
	"github.com/erp-ledger-engine/internal/domain/shared"
	"github.com/erp-ledger-engine/internal/platform/metrics"
)

// DeadLetterProducer receives envelopes that exhausted their publish
// retries. A nil producer disables dead-lettering.
type DeadLetterProducer interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
}

// Poller drains pending outbox messages to the sync topic
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        EnvelopePublisher
	dlq              DeadLetterProducer
	metrics          *metrics.Metrics
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher EnvelopePublisher,
	dlq DeadLetterProducer,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		dlq:              dlq,
		metrics:          m,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting Outbox Poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox Poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			p.logger.Debug("Outbox Poller tick: processing pending messages")
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		p.logger.Debug("No pending outbox messages found.")
		return nil
	}

	p.logger.Info("Fetched pending outbox messages", "count", len(messages))

	for _, msg := range messages {
		if err := p.publisher.PublishEnvelope(ctx, msg); err != nil {
			p.logger.Error("Failed to publish outbox message",
				"outbox_id", msg.ID, "mutation_id", msg.MutationID, "current_attempts", msg.Attempts, "error", err,
			)

			if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
				p.logger.Error("Failed to increment attempts for outbox message", "outbox_id", msg.ID, "error", errInc)
				// Continue to next message if increment fails
				continue
			}

			if msg.Attempts+1 >= p.maxRetryAttempts {
				p.deadLetter(ctx, msg, err)
			}
			continue
		}
	}
	return nil
}

// deadLetter parks a message that exhausted its retries. The envelope
// stays in the outbox table as FAILED_TO_PUBLISH so operators can
// replay it after fixing the broker.
func (p *Poller) deadLetter(ctx context.Context, msg *outbox.Message, cause error) {
	p.logger.Warn("Max retry attempts reached for outbox message, marking as FAILED_TO_PUBLISH",
		"outbox_id", msg.ID, "mutation_id", msg.MutationID, "attempts_made", msg.Attempts+1,
	)

	if p.dlq != nil {
		if errDLQ := p.dlq.PublishToDLQ(ctx, msg.OrgID, msg.Payload, cause.Error()); errDLQ != nil {
			p.logger.Error("Failed to publish outbox message to DLQ", "outbox_id", msg.ID, "error", errDLQ)
		}
	}

	if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); errUpdate != nil {
		p.logger.Error("Failed to update outbox status to FAILED_TO_PUBLISH after max retries", "outbox_id", msg.ID, "error", errUpdate)
		return
	}
	p.metrics.OutboxFailed.Inc()
}
