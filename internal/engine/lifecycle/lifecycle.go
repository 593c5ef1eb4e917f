// Package lifecycle holds the transaction status machine and the role
// table gating each transition. Both are pure lookups; all persistence
// and precondition checks live with the caller.
package lifecycle

import (
	"github.com/erp-ledger-engine/internal/domain/shared"
)

type edge struct {
	from, to shared.TxStatus
}

// transitions maps each legal edge to the roles allowed to take it.
// Drafts cannot be voided: an unwanted draft simply never advances.
var transitions = map[edge][]shared.Role{
	{shared.TxStatusDraft, shared.TxStatusProposed}:    {shared.RoleOwnerAdmin, shared.RoleManager, shared.RoleFinance},
	{shared.TxStatusProposed, shared.TxStatusApproved}: {shared.RoleOwnerAdmin, shared.RoleManager},
	{shared.TxStatusApproved, shared.TxStatusPosted}:   {shared.RoleOwnerAdmin, shared.RoleManager},
	{shared.TxStatusProposed, shared.TxStatusVoid}:     {shared.RoleOwnerAdmin, shared.RoleManager},
	{shared.TxStatusApproved, shared.TxStatusVoid}:     {shared.RoleOwnerAdmin, shared.RoleManager},
}

// createRoles may open a new draft transaction.
var createRoles = []shared.Role{shared.RoleOwnerAdmin, shared.RoleManager, shared.RoleFinance}

// CanCreate reports whether the role may open a draft.
func CanCreate(role shared.Role) bool {
	return contains(createRoles, role)
}

// AuthorizeCreate returns a permission error unless the role may open
// a draft.
func AuthorizeCreate(role shared.Role) error {
	if !CanCreate(role) {
		return shared.NewPermissionDenied("role %s cannot create transactions", role)
	}
	return nil
}

// Allowed reports whether the edge exists and the role may take it.
func Allowed(from, to shared.TxStatus, role shared.Role) bool {
	roles, ok := transitions[edge{from, to}]
	return ok && contains(roles, role)
}

// Authorize validates a transition attempt. A missing edge is an
// invalid-state error; an existing edge taken by the wrong role is a
// permission error.
func Authorize(from, to shared.TxStatus, role shared.Role) error {
	roles, ok := transitions[edge{from, to}]
	if !ok {
		if from.Terminal() {
			return shared.NewInvalidState("transaction is %s and cannot change", from)
		}
		return shared.NewInvalidState("transition %s -> %s is not permitted", from, to)
	}
	if !contains(roles, role) {
		return shared.NewPermissionDenied("role %s cannot transition %s -> %s", role, from, to)
	}
	return nil
}

func contains(roles []shared.Role, role shared.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
