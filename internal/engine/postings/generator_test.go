package postings

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp-ledger-engine/internal/domain/ledger"
	"github.com/erp-ledger-engine/internal/domain/shared"
	"github.com/erp-ledger-engine/internal/domain/transaction"
)

func header(txType shared.TxType) *transaction.TxHeader {
	return &transaction.TxHeader{
		TxID:     "tx1",
		OrgID:    "org1",
		TxType:   txType,
		Status:   shared.TxStatusProposed,
		Currency: "AUD",
	}
}

func line(qty, price, taxRate string, effect shared.InventoryEffect) transaction.TxLine {
	return transaction.TxLine{
		LineID:          "line1",
		TxID:            "tx1",
		ItemID:          "item1",
		Qty:             decimal.RequireFromString(qty),
		UnitPrice:       decimal.RequireFromString(price),
		TaxRate:         decimal.RequireFromString(taxRate),
		InventoryEffect: effect,
	}
}

func find(t *testing.T, rows []ledger.Posting, account string) ledger.Posting {
	t.Helper()
	for _, row := range rows {
		if row.AccountID == account {
			return row
		}
	}
	t.Fatalf("no posting for account %s", account)
	return ledger.Posting{}
}

func assertBalanced(t *testing.T, rows []ledger.Posting) {
	t.Helper()
	assert.NoError(t, ValidateBalance(rows))
}

func TestGenerateInvoiceOut(t *testing.T) {
	gen := NewGenerator(DefaultAccountMap())

	t.Run("without shipment", func(t *testing.T) {
		rows, err := gen.Generate(header(shared.TxTypeInvoiceOut),
			[]transaction.TxLine{line("10", "99.99", "0.10", shared.InventoryEffectDecrease)}, false)
		require.NoError(t, err)

		ar := find(t, rows, "accounts_receivable")
		assert.True(t, ar.Debit.Equal(decimal.RequireFromString("1099.89")), "AR debit %s", ar.Debit)
		assert.True(t, ar.Credit.IsZero())

		rev := find(t, rows, "revenue")
		assert.True(t, rev.Credit.Equal(decimal.RequireFromString("999.90")), "revenue credit %s", rev.Credit)

		tax := find(t, rows, "tax_payable")
		assert.True(t, tax.Credit.Equal(decimal.RequireFromString("99.99")), "tax credit %s", tax.Credit)

		assert.Len(t, rows, 3)
		assertBalanced(t, rows)
	})

	t.Run("with shipment adds cost relief", func(t *testing.T) {
		rows, err := gen.Generate(header(shared.TxTypeInvoiceOut),
			[]transaction.TxLine{line("10", "100", "0.10", shared.InventoryEffectDecrease)}, true)
		require.NoError(t, err)

		cogs := find(t, rows, "cogs")
		assert.True(t, cogs.Debit.Equal(decimal.RequireFromString("1000")))
		inv := find(t, rows, "inventory_asset")
		assert.True(t, inv.Credit.Equal(decimal.RequireFromString("1000")))
		assertBalanced(t, rows)
	})

	t.Run("zero tax omits the tax row", func(t *testing.T) {
		rows, err := gen.Generate(header(shared.TxTypeInvoiceOut),
			[]transaction.TxLine{line("1", "50", "0", shared.InventoryEffectNone)}, false)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
		assertBalanced(t, rows)
	})

	t.Run("stamps provenance on every row", func(t *testing.T) {
		rows, err := gen.Generate(header(shared.TxTypeInvoiceOut),
			[]transaction.TxLine{line("1", "50", "0.10", shared.InventoryEffectNone)}, false)
		require.NoError(t, err)
		for _, row := range rows {
			assert.Equal(t, ledger.GeneratedByEngine, row.GeneratedBy)
			assert.Equal(t, ledger.PostingStatusDraft, row.Status)
			assert.Equal(t, "AUD", row.Currency)
			assert.False(t, row.Debit.IsPositive() && row.Credit.IsPositive(), "row must be one-sided")
		}
	})
}

func TestGenerateInvoiceIn(t *testing.T) {
	gen := NewGenerator(DefaultAccountMap())

	t.Run("expense purchase without goods", func(t *testing.T) {
		rows, err := gen.Generate(header(shared.TxTypeInvoiceIn),
			[]transaction.TxLine{line("2", "100", "0.10", shared.InventoryEffectNone)}, false)
		require.NoError(t, err)

		assert.True(t, find(t, rows, "expense").Debit.Equal(decimal.RequireFromString("200")))
		assert.True(t, find(t, rows, "tax_receivable").Debit.Equal(decimal.RequireFromString("20")))
		assert.True(t, find(t, rows, "accounts_payable").Credit.Equal(decimal.RequireFromString("220")))
		assertBalanced(t, rows)
	})

	t.Run("inventory purchase with goods", func(t *testing.T) {
		rows, err := gen.Generate(header(shared.TxTypeInvoiceIn),
			[]transaction.TxLine{line("2", "100", "0", shared.InventoryEffectIncrease)}, true)
		require.NoError(t, err)
		assert.True(t, find(t, rows, "inventory_asset").Debit.Equal(decimal.RequireFromString("200")))
		assertBalanced(t, rows)
	})
}

func TestGeneratePayments(t *testing.T) {
	gen := NewGenerator(DefaultAccountMap())

	t.Run("payment_in moves bank against receivable", func(t *testing.T) {
		rows, err := gen.Generate(header(shared.TxTypePaymentIn),
			[]transaction.TxLine{line("1", "500", "0", shared.InventoryEffectNone)}, false)
		require.NoError(t, err)
		assert.True(t, find(t, rows, "bank").Debit.Equal(decimal.RequireFromString("500")))
		assert.True(t, find(t, rows, "accounts_receivable").Credit.Equal(decimal.RequireFromString("500")))
		assertBalanced(t, rows)
	})

	t.Run("payment_out moves payable against bank", func(t *testing.T) {
		rows, err := gen.Generate(header(shared.TxTypePaymentOut),
			[]transaction.TxLine{line("1", "300", "0", shared.InventoryEffectNone)}, false)
		require.NoError(t, err)
		assert.True(t, find(t, rows, "accounts_payable").Debit.Equal(decimal.RequireFromString("300")))
		assert.True(t, find(t, rows, "bank").Credit.Equal(decimal.RequireFromString("300")))
		assertBalanced(t, rows)
	})
}

func TestGenerateStockTemplates(t *testing.T) {
	gen := NewGenerator(DefaultAccountMap())

	t.Run("stock_receipt accrues against GRNI", func(t *testing.T) {
		rows, err := gen.Generate(header(shared.TxTypeStockReceipt),
			[]transaction.TxLine{line("5", "20", "0", shared.InventoryEffectIncrease)}, true)
		require.NoError(t, err)
		assert.True(t, find(t, rows, "inventory_asset").Debit.Equal(decimal.RequireFromString("100")))
		assert.True(t, find(t, rows, "goods_received_not_invoiced").Credit.Equal(decimal.RequireFromString("100")))
		assertBalanced(t, rows)
	})

	t.Run("stock_issue relieves inventory into cost", func(t *testing.T) {
		rows, err := gen.Generate(header(shared.TxTypeStockIssue),
			[]transaction.TxLine{line("5", "20", "0", shared.InventoryEffectDecrease)}, true)
		require.NoError(t, err)
		assert.True(t, find(t, rows, "cogs").Debit.Equal(decimal.RequireFromString("100")))
		assert.True(t, find(t, rows, "inventory_asset").Credit.Equal(decimal.RequireFromString("100")))
		assertBalanced(t, rows)
	})

	t.Run("stock_adjust splits gains and losses per line effect", func(t *testing.T) {
		up := line("1", "40", "0", shared.InventoryEffectIncrease)
		down := line("1", "15", "0", shared.InventoryEffectDecrease)
		down.LineID = "line2"

		rows, err := gen.Generate(header(shared.TxTypeStockAdjust), []transaction.TxLine{up, down}, true)
		require.NoError(t, err)

		assert.True(t, find(t, rows, "stock_adjustment_gain").Credit.Equal(decimal.RequireFromString("40")))
		assert.True(t, find(t, rows, "stock_adjustment_loss").Debit.Equal(decimal.RequireFromString("15")))
		assertBalanced(t, rows)
	})
}

func TestGenerateJournal(t *testing.T) {
	gen := NewGenerator(DefaultAccountMap())

	t.Run("lines post to their own accounts and sides", func(t *testing.T) {
		dr := line("1", "250", "0", shared.InventoryEffectNone)
		dr.AccountID = "bank"
		dr.Side = shared.PostingSideDebit
		cr := line("1", "250", "0", shared.InventoryEffectNone)
		cr.LineID = "line2"
		cr.AccountID = "equity_opening"
		cr.Side = shared.PostingSideCredit

		rows, err := gen.Generate(header(shared.TxTypeJournal), []transaction.TxLine{dr, cr}, false)
		require.NoError(t, err)
		assert.True(t, find(t, rows, "bank").Debit.Equal(decimal.RequireFromString("250")))
		assert.True(t, find(t, rows, "equity_opening").Credit.Equal(decimal.RequireFromString("250")))
		assertBalanced(t, rows)
	})

	t.Run("line without account is rejected", func(t *testing.T) {
		bad := line("1", "250", "0", shared.InventoryEffectNone)
		_, err := gen.Generate(header(shared.TxTypeJournal), []transaction.TxLine{bad}, false)
		assert.Equal(t, shared.CodeValidation, shared.CodeOf(err))
	})

	t.Run("unbalanced journal fails", func(t *testing.T) {
		dr := line("1", "250", "0", shared.InventoryEffectNone)
		dr.AccountID = "bank"
		dr.Side = shared.PostingSideDebit
		cr := line("1", "200", "0", shared.InventoryEffectNone)
		cr.LineID = "line2"
		cr.AccountID = "equity_opening"
		cr.Side = shared.PostingSideCredit

		_, err := gen.Generate(header(shared.TxTypeJournal), []transaction.TxLine{dr, cr}, false)
		assert.Equal(t, shared.CodeBalanceFail, shared.CodeOf(err))
	})
}

func TestGenerateNotes(t *testing.T) {
	gen := NewGenerator(DefaultAccountMap())

	t.Run("credit_note mirrors invoice_out", func(t *testing.T) {
		rows, err := gen.Generate(header(shared.TxTypeCreditNote),
			[]transaction.TxLine{line("1", "100", "0.10", shared.InventoryEffectNone)}, false)
		require.NoError(t, err)
		assert.True(t, find(t, rows, "accounts_receivable").Credit.Equal(decimal.RequireFromString("110")))
		assert.True(t, find(t, rows, "revenue").Debit.Equal(decimal.RequireFromString("100")))
		assert.True(t, find(t, rows, "tax_payable").Debit.Equal(decimal.RequireFromString("10")))
		assertBalanced(t, rows)
	})

	t.Run("debit_note mirrors invoice_in", func(t *testing.T) {
		rows, err := gen.Generate(header(shared.TxTypeDebitNote),
			[]transaction.TxLine{line("1", "100", "0", shared.InventoryEffectNone)}, false)
		require.NoError(t, err)
		assert.True(t, find(t, rows, "expense").Credit.Equal(decimal.RequireFromString("100")))
		assert.True(t, find(t, rows, "accounts_payable").Debit.Equal(decimal.RequireFromString("100")))
		assertBalanced(t, rows)
	})
}

func TestAggregation(t *testing.T) {
	gen := NewGenerator(DefaultAccountMap())

	l1 := line("1", "100", "0.10", shared.InventoryEffectNone)
	l2 := line("2", "50", "0.10", shared.InventoryEffectNone)
	l2.LineID = "line2"

	rows, err := gen.Generate(header(shared.TxTypeInvoiceOut), []transaction.TxLine{l1, l2}, false)
	require.NoError(t, err)

	// Two lines collapse into one revenue row and one AR row.
	assert.Len(t, rows, 3)
	assert.True(t, find(t, rows, "revenue").Credit.Equal(decimal.RequireFromString("200")))
	assert.True(t, find(t, rows, "accounts_receivable").Debit.Equal(decimal.RequireFromString("220")))
}

func TestValidateBalance(t *testing.T) {
	t.Run("rejects deltas above tolerance", func(t *testing.T) {
		rows := []ledger.Posting{
			{AccountID: "bank", Debit: decimal.RequireFromString("100"), Credit: decimal.Zero},
			{AccountID: "revenue", Debit: decimal.Zero, Credit: decimal.RequireFromString("80")},
		}
		err := ValidateBalance(rows)
		assert.Equal(t, shared.CodeBalanceFail, shared.CodeOf(err))
	})

	t.Run("accepts deltas within tolerance", func(t *testing.T) {
		rows := []ledger.Posting{
			{AccountID: "bank", Debit: decimal.RequireFromString("100.00"), Credit: decimal.Zero},
			{AccountID: "revenue", Debit: decimal.Zero, Credit: decimal.RequireFromString("99.99")},
		}
		assert.NoError(t, ValidateBalance(rows))
	})

	t.Run("empty set balances trivially", func(t *testing.T) {
		assert.NoError(t, ValidateBalance(nil))
	})
}
