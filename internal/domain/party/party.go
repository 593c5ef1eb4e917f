package party

import (
	"time"

	"github.com/erp-ledger-engine/internal/domain/shared"
)

// Party is a counterparty: customer, supplier, employee or other.
type Party struct {
	PartyID   string           `json:"party_id"`
	OrgID     string           `json:"org_id"`
	Name      string           `json:"name"`
	Kind      shared.PartyKind `json:"kind"`
	TaxID     string           `json:"tax_id,omitempty"`
	Email     string           `json:"email,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// CreatePartyRequest carries the fields needed to register a party.
type CreatePartyRequest struct {
	Name  string           `json:"name"`
	Kind  shared.PartyKind `json:"kind"`
	TaxID string           `json:"tax_id,omitempty"`
	Email string           `json:"email,omitempty"`
}

// Validate checks field-level party constraints.
func (r *CreatePartyRequest) Validate() error {
	if r.Name == "" {
		return shared.NewValidationError("party name is required")
	}
	if _, err := shared.ParsePartyKind(string(r.Kind)); err != nil {
		return shared.NewValidationError("kind: %v", err)
	}
	return nil
}
