// Package postings derives balanced double-entry rows from transaction
// lines. Generation is deterministic given the same inputs; nothing in
// here touches storage.
package postings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp-ledger-engine/internal/domain/ledger"
	"github.com/erp-ledger-engine/internal/domain/shared"
	"github.com/erp-ledger-engine/internal/domain/transaction"
)

// Tolerance is the permitted absolute debit/credit delta after
// two-decimal rounding.
var Tolerance = decimal.NewFromFloat(0.01)

// AccountMap resolves the symbolic accounts the templates post to.
// The identifiers are stable symbolic names, independent of the numeric
// chart-of-accounts codes, and can be overridden per deployment.
type AccountMap struct {
	Receivable    string
	Payable       string
	Revenue       string
	Expense       string
	Bank          string
	Inventory     string
	COGS          string
	TaxPayable    string
	TaxReceivable string
	GRNI          string
	AdjustGain    string
	AdjustLoss    string
}

// DefaultAccountMap returns the symbolic account names used by the
// bundled chart-of-accounts templates.
func DefaultAccountMap() AccountMap {
	return AccountMap{
		Receivable:    "accounts_receivable",
		Payable:       "accounts_payable",
		Revenue:       "revenue",
		Expense:       "expense",
		Bank:          "bank",
		Inventory:     "inventory_asset",
		COGS:          "cogs",
		TaxPayable:    "tax_payable",
		TaxReceivable: "tax_receivable",
		GRNI:          "goods_received_not_invoiced",
		AdjustGain:    "stock_adjustment_gain",
		AdjustLoss:    "stock_adjustment_loss",
	}
}

// Generator turns transaction lines into draft postings.
type Generator struct {
	accounts AccountMap
}

func NewGenerator(accounts AccountMap) *Generator {
	return &Generator{accounts: accounts}
}

// Generate builds the draft postings for a transaction. hasMoves tells
// the revenue-side templates whether goods physically shipped, which
// switches on cost-of-goods relief for outbound invoices and flips
// purchases between expense and inventory.
func (g *Generator) Generate(hdr *transaction.TxHeader, lines []transaction.TxLine, hasMoves bool) ([]ledger.Posting, error) {
	net, tax := lineTotals(lines)
	gross := net.Add(tax)

	b := &builder{hdr: hdr}
	a := g.accounts

	switch hdr.TxType {
	case shared.TxTypeInvoiceOut:
		b.debit(a.Receivable, gross, "AR - invoice out")
		b.credit(a.Revenue, net, "revenue - invoice out")
		if tax.IsPositive() {
			b.credit(a.TaxPayable, tax, "tax payable")
		}
		if hasMoves {
			if cogs := estimateCOGS(lines); cogs.IsPositive() {
				b.debit(a.COGS, cogs, "cost of goods shipped")
				b.credit(a.Inventory, cogs, "inventory relief - shipped")
			}
		}

	case shared.TxTypeInvoiceIn:
		purchaseAccount := a.Expense
		if hasMoves {
			purchaseAccount = a.Inventory
		}
		b.debit(purchaseAccount, net, "purchase - invoice in")
		if tax.IsPositive() {
			b.debit(a.TaxReceivable, tax, "input tax credit")
		}
		b.credit(a.Payable, gross, "AP - invoice in")

	case shared.TxTypePaymentIn:
		b.debit(a.Bank, gross, "payment received")
		b.credit(a.Receivable, gross, "AR settlement")

	case shared.TxTypePaymentOut:
		b.debit(a.Payable, gross, "AP payment")
		b.credit(a.Bank, gross, "bank payment")

	case shared.TxTypeStockReceipt:
		b.debit(a.Inventory, net, "stock received")
		b.credit(a.GRNI, net, "goods received not invoiced")

	case shared.TxTypeStockIssue:
		b.debit(a.COGS, net, "stock issued")
		b.credit(a.Inventory, net, "inventory relief")

	case shared.TxTypeStockAdjust:
		// Lines declare direction through their inventory effect:
		// increases write stock up against a gain account, decreases
		// write it down against a loss account.
		up, down := adjustTotals(lines)
		if up.IsPositive() {
			b.debit(a.Inventory, up, "stock adjustment (increase)")
			b.credit(a.AdjustGain, up, "adjustment gain")
		}
		if down.IsPositive() {
			b.debit(a.AdjustLoss, down, "adjustment loss")
			b.credit(a.Inventory, down, "stock adjustment (decrease)")
		}

	case shared.TxTypeJournal:
		// Manual entries: each line names its own account and side.
		for i := range lines {
			line := &lines[i]
			if line.AccountID == "" {
				return nil, shared.NewValidationError("journal line %s has no account_id", line.LineID)
			}
			amount := line.Net()
			if line.Side == shared.PostingSideCredit {
				b.credit(line.AccountID, amount, line.Description)
			} else {
				b.debit(line.AccountID, amount, line.Description)
			}
		}

	case shared.TxTypeCreditNote:
		b.credit(a.Receivable, gross, "AR credit")
		b.debit(a.Revenue, net, "revenue reversal")
		if tax.IsPositive() {
			b.debit(a.TaxPayable, tax, "tax return")
		}

	case shared.TxTypeDebitNote:
		purchaseAccount := a.Expense
		if hasMoves {
			purchaseAccount = a.Inventory
		}
		b.credit(purchaseAccount, net, "debit note reversal")
		b.debit(a.Payable, gross, "AP debit note")

	default:
		return nil, shared.NewValidationError("no posting template for tx_type %s", hdr.TxType)
	}

	postings := b.aggregate()
	if err := ValidateBalance(postings); err != nil {
		return nil, err
	}
	return postings, nil
}

// ValidateBalance checks that total debits equal total credits within
// Tolerance.
func ValidateBalance(rows []ledger.Posting) error {
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for i := range rows {
		totalDebit = totalDebit.Add(rows[i].Debit)
		totalCredit = totalCredit.Add(rows[i].Credit)
	}
	delta := totalDebit.Sub(totalCredit).Abs()
	if delta.GreaterThan(Tolerance) {
		return shared.NewBalanceFail("debits %s != credits %s (delta %s)", totalDebit, totalCredit, delta)
	}
	return nil
}

// builder accumulates one-sided rows and aggregates them per account
// and side, so a multi-line invoice produces a single row per account.
type builder struct {
	hdr  *transaction.TxHeader
	rows []ledger.Posting
}

func (b *builder) debit(account string, amount decimal.Decimal, desc string) {
	b.add(account, amount, decimal.Zero, desc)
}

func (b *builder) credit(account string, amount decimal.Decimal, desc string) {
	b.add(account, decimal.Zero, amount, desc)
}

func (b *builder) add(account string, debit, credit decimal.Decimal, desc string) {
	b.rows = append(b.rows, ledger.Posting{
		PostingID:   uuid.NewString(),
		TxID:        b.hdr.TxID,
		OrgID:       b.hdr.OrgID,
		AccountID:   account,
		Debit:       debit.Round(2),
		Credit:      credit.Round(2),
		Currency:    b.hdr.Currency,
		Description: desc,
		Status:      ledger.PostingStatusDraft,
		GeneratedBy: ledger.GeneratedByEngine,
		CreatedAt:   time.Now().UTC(),
	})
}

// aggregate merges rows with the same account and side, preserving
// first-appearance order.
func (b *builder) aggregate() []ledger.Posting {
	type key struct {
		account string
		debit   bool
	}
	index := make(map[key]int)
	var out []ledger.Posting
	for i := range b.rows {
		row := b.rows[i]
		k := key{account: row.AccountID, debit: row.Credit.IsZero()}
		if j, ok := index[k]; ok {
			out[j].Debit = out[j].Debit.Add(row.Debit)
			out[j].Credit = out[j].Credit.Add(row.Credit)
			continue
		}
		index[k] = len(out)
		out = append(out, row)
	}
	return out
}

func lineTotals(lines []transaction.TxLine) (net, tax decimal.Decimal) {
	net = decimal.Zero
	tax = decimal.Zero
	for i := range lines {
		net = net.Add(lines[i].Net())
		tax = tax.Add(lines[i].Tax())
	}
	return net, tax
}

// estimateCOGS values shipped goods at their invoiced amount. A
// weighted-average valuation engine can replace this without touching
// the templates.
func estimateCOGS(lines []transaction.TxLine) decimal.Decimal {
	total := decimal.Zero
	for i := range lines {
		if lines[i].InventoryEffect == shared.InventoryEffectDecrease {
			total = total.Add(lines[i].Net())
		}
	}
	return total
}

func adjustTotals(lines []transaction.TxLine) (up, down decimal.Decimal) {
	up = decimal.Zero
	down = decimal.Zero
	for i := range lines {
		switch lines[i].InventoryEffect {
		case shared.InventoryEffectDecrease:
			down = down.Add(lines[i].Net())
		default:
			up = up.Add(lines[i].Net())
		}
	}
	return up, down
}
