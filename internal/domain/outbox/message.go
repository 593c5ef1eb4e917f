package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/erp-ledger-engine/internal/domain/audit"
	"github.com/erp-ledger-engine/internal/domain/shared"
)

// Message stores a committed mutation envelope for reliable publishing
// to downstream sync peers.
type Message struct {
	ID            int64               `json:"id"`
	MutationID    uuid.UUID           `json:"mutation_id"`
	OrgID         string              `json:"org_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(envelope *audit.MutationEnvelope) (*Message, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}

	return &Message{
		MutationID: envelope.MutationID,
		OrgID:      envelope.OrgID,
		Payload:    payload,
		Status:     shared.OutboxStatusPending,
		Attempts:   0,
		CreatedAt:  time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetEnvelope extracts the mutation envelope from the payload
func (m *Message) GetEnvelope() (*audit.MutationEnvelope, error) {
	var envelope audit.MutationEnvelope
	if err := json.Unmarshal(m.Payload, &envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}
