package shared

import "fmt"

// TxType defines the business document kinds the engine understands
type TxType string

const (
	TxTypeInvoiceOut   TxType = "invoice_out"
	TxTypeInvoiceIn    TxType = "invoice_in"
	TxTypePaymentIn    TxType = "payment_in"
	TxTypePaymentOut   TxType = "payment_out"
	TxTypeStockReceipt TxType = "stock_receipt"
	TxTypeStockIssue   TxType = "stock_issue"
	TxTypeStockAdjust  TxType = "stock_adjust"
	TxTypeJournal      TxType = "journal"
	TxTypeCreditNote   TxType = "credit_note"
	TxTypeDebitNote    TxType = "debit_note"
)

// ParseTxType validates and converts a raw string into a TxType
func ParseTxType(raw string) (TxType, error) {
	switch t := TxType(raw); t {
	case TxTypeInvoiceOut, TxTypeInvoiceIn, TxTypePaymentIn, TxTypePaymentOut,
		TxTypeStockReceipt, TxTypeStockIssue, TxTypeStockAdjust,
		TxTypeJournal, TxTypeCreditNote, TxTypeDebitNote:
		return t, nil
	default:
		return "", fmt.Errorf("unknown tx_type %q", raw)
	}
}

// TxStatus defines transaction lifecycle states
type TxStatus string

const (
	TxStatusDraft    TxStatus = "draft"
	TxStatusProposed TxStatus = "proposed"
	TxStatusApproved TxStatus = "approved"
	TxStatusPosted   TxStatus = "posted"
	TxStatusVoid     TxStatus = "void"
)

// ParseTxStatus validates and converts a raw string into a TxStatus
func ParseTxStatus(raw string) (TxStatus, error) {
	switch s := TxStatus(raw); s {
	case TxStatusDraft, TxStatusProposed, TxStatusApproved, TxStatusPosted, TxStatusVoid:
		return s, nil
	default:
		return "", fmt.Errorf("unknown tx_status %q", raw)
	}
}

// Terminal reports whether no further transition can leave the status
func (s TxStatus) Terminal() bool {
	return s == TxStatusPosted || s == TxStatusVoid
}

// Role defines who is acting on the ledger
type Role string

const (
	RoleOwnerAdmin Role = "owner_admin"
	RoleManager    Role = "manager"
	RoleFinance    Role = "finance"
	RoleStaff      Role = "staff"
	RoleAuditor    Role = "auditor"
	RoleEngine     Role = "engine"
)

// ParseRole validates and converts a raw string into a Role
func ParseRole(raw string) (Role, error) {
	switch r := Role(raw); r {
	case RoleOwnerAdmin, RoleManager, RoleFinance, RoleStaff, RoleAuditor, RoleEngine:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// InventoryEffect declares the direction a transaction line moves stock
type InventoryEffect string

const (
	InventoryEffectNone     InventoryEffect = "none"
	InventoryEffectIncrease InventoryEffect = "increase"
	InventoryEffectDecrease InventoryEffect = "decrease"
)

// ParseInventoryEffect validates and converts a raw string into an InventoryEffect
func ParseInventoryEffect(raw string) (InventoryEffect, error) {
	switch e := InventoryEffect(raw); e {
	case InventoryEffectNone, InventoryEffectIncrease, InventoryEffectDecrease:
		return e, nil
	default:
		return "", fmt.Errorf("unknown inventory_effect %q", raw)
	}
}

// ExpectedSign returns the sign every quantity delta under the effect must carry:
// +1 for increase, -1 for decrease, 0 when no movement is allowed at all.
func (e InventoryEffect) ExpectedSign() int {
	switch e {
	case InventoryEffectIncrease:
		return 1
	case InventoryEffectDecrease:
		return -1
	default:
		return 0
	}
}

// PostingSide marks which column of a journal line carries the amount
type PostingSide string

const (
	PostingSideDebit  PostingSide = "debit"
	PostingSideCredit PostingSide = "credit"
)

// NormalBalance defines which side grows an account
type NormalBalance string

const (
	NormalBalanceDebit  NormalBalance = "debit"
	NormalBalanceCredit NormalBalance = "credit"
)

// AccountType classifies chart-of-accounts entries
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

// PartyKind classifies counterparties
type PartyKind string

const (
	PartyKindCustomer PartyKind = "customer"
	PartyKindSupplier PartyKind = "supplier"
	PartyKindEmployee PartyKind = "employee"
	PartyKindOther    PartyKind = "other"
)

// ParsePartyKind validates and converts a raw string into a PartyKind
func ParsePartyKind(raw string) (PartyKind, error) {
	switch k := PartyKind(raw); k {
	case PartyKindCustomer, PartyKindSupplier, PartyKindEmployee, PartyKindOther:
		return k, nil
	default:
		return "", fmt.Errorf("unknown party kind %q", raw)
	}
}

// OutboxStatus defines envelope publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// ActorContext identifies the caller of every engine operation
type ActorContext struct {
	Pubkey  string `json:"pubkey"`
	Role    Role   `json:"role"`
	OrgID   string `json:"org_id"`
	Lamport uint64 `json:"lamport"`
}
