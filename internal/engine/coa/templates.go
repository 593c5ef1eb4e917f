// Package coa bundles the seedable chart-of-accounts templates. A
// template is a list of accounts; seeding turns them into account
// fragments through the normal commit path.
package coa

import (
	"fmt"

	"github.com/erp-ledger-engine/internal/domain/ledger"
	"github.com/erp-ledger-engine/internal/domain/shared"
)

// Template names accepted by the seed operation.
const (
	TemplateGeneralSmeAuGst      = "general_sme_au_gst"
	TemplateServicesLowInventory = "services_low_inventory"
	TemplateProductManufacturing = "product_manufacturing"
)

type entry struct {
	code    string
	name    string
	acctTyp shared.AccountType
	normal  shared.NormalBalance
}

var templates = map[string][]entry{
	TemplateGeneralSmeAuGst: {
		{"1000", "Cash & Bank", shared.AccountTypeAsset, shared.NormalBalanceDebit},
		{"1100", "Accounts Receivable", shared.AccountTypeAsset, shared.NormalBalanceDebit},
		{"1200", "GST Input Tax Credit", shared.AccountTypeAsset, shared.NormalBalanceDebit},
		{"1300", "Inventory Asset", shared.AccountTypeAsset, shared.NormalBalanceDebit},
		{"2000", "Accounts Payable", shared.AccountTypeLiability, shared.NormalBalanceCredit},
		{"2100", "GST Tax Payable", shared.AccountTypeLiability, shared.NormalBalanceCredit},
		{"2200", "PAYG Withholding Payable", shared.AccountTypeLiability, shared.NormalBalanceCredit},
		{"2300", "Goods Received Not Invoiced", shared.AccountTypeLiability, shared.NormalBalanceCredit},
		{"3000", "Owner's Equity", shared.AccountTypeEquity, shared.NormalBalanceCredit},
		{"4000", "Revenue", shared.AccountTypeIncome, shared.NormalBalanceCredit},
		{"5000", "Cost of Goods Sold", shared.AccountTypeExpense, shared.NormalBalanceDebit},
		{"5100", "Wages & Salaries", shared.AccountTypeExpense, shared.NormalBalanceDebit},
		{"5200", "Rent", shared.AccountTypeExpense, shared.NormalBalanceDebit},
		{"5300", "Utilities", shared.AccountTypeExpense, shared.NormalBalanceDebit},
		{"5400", "Stock Adjustment Gain", shared.AccountTypeIncome, shared.NormalBalanceCredit},
		{"5401", "Stock Adjustment Loss", shared.AccountTypeExpense, shared.NormalBalanceDebit},
		{"5900", "General Expense", shared.AccountTypeExpense, shared.NormalBalanceDebit},
	},
	TemplateServicesLowInventory: {
		{"1000", "Cash & Bank", shared.AccountTypeAsset, shared.NormalBalanceDebit},
		{"1100", "Accounts Receivable", shared.AccountTypeAsset, shared.NormalBalanceDebit},
		{"1200", "GST Input Tax Credit", shared.AccountTypeAsset, shared.NormalBalanceDebit},
		{"2000", "Accounts Payable", shared.AccountTypeLiability, shared.NormalBalanceCredit},
		{"2100", "GST Tax Payable", shared.AccountTypeLiability, shared.NormalBalanceCredit},
		{"3000", "Owner's Equity", shared.AccountTypeEquity, shared.NormalBalanceCredit},
		{"4000", "Service Revenue", shared.AccountTypeIncome, shared.NormalBalanceCredit},
		{"4100", "Consulting Revenue", shared.AccountTypeIncome, shared.NormalBalanceCredit},
		{"5000", "Cost of Services", shared.AccountTypeExpense, shared.NormalBalanceDebit},
		{"5100", "Wages & Salaries", shared.AccountTypeExpense, shared.NormalBalanceDebit},
		{"5200", "Subcontractors", shared.AccountTypeExpense, shared.NormalBalanceDebit},
		{"5300", "Software & Tools", shared.AccountTypeExpense, shared.NormalBalanceDebit},
		{"5900", "General Expense", shared.AccountTypeExpense, shared.NormalBalanceDebit},
	},
	TemplateProductManufacturing: {
		{"1000", "Cash & Bank", shared.AccountTypeAsset, shared.NormalBalanceDebit},
		{"1100", "Accounts Receivable", shared.AccountTypeAsset, shared.NormalBalanceDebit},
		{"1200", "GST Input Tax Credit", shared.AccountTypeAsset, shared.NormalBalanceDebit},
		{"1300", "Raw Materials Inventory", shared.AccountTypeAsset, shared.NormalBalanceDebit},
		{"1310", "Work in Progress", shared.AccountTypeAsset, shared.NormalBalanceDebit},
		{"1320", "Finished Goods", shared.AccountTypeAsset, shared.NormalBalanceDebit},
		{"2000", "Accounts Payable", shared.AccountTypeLiability, shared.NormalBalanceCredit},
		{"2100", "GST Tax Payable", shared.AccountTypeLiability, shared.NormalBalanceCredit},
		{"2200", "PAYG Withholding Payable", shared.AccountTypeLiability, shared.NormalBalanceCredit},
		{"2300", "Goods Received Not Invoiced", shared.AccountTypeLiability, shared.NormalBalanceCredit},
		{"3000", "Owner's Equity", shared.AccountTypeEquity, shared.NormalBalanceCredit},
		{"4000", "Product Revenue", shared.AccountTypeIncome, shared.NormalBalanceCredit},
		{"5000", "Direct Materials (COGS)", shared.AccountTypeExpense, shared.NormalBalanceDebit},
		{"5100", "Direct Labour (COGS)", shared.AccountTypeExpense, shared.NormalBalanceDebit},
		{"5200", "Manufacturing Overhead", shared.AccountTypeExpense, shared.NormalBalanceDebit},
		{"5300", "Wages & Salaries", shared.AccountTypeExpense, shared.NormalBalanceDebit},
		{"5400", "Stock Adjustment Gain", shared.AccountTypeIncome, shared.NormalBalanceCredit},
		{"5401", "Stock Adjustment Loss", shared.AccountTypeExpense, shared.NormalBalanceDebit},
		{"5900", "General Expense", shared.AccountTypeExpense, shared.NormalBalanceDebit},
	},
}

// Names lists the available template names.
func Names() []string {
	return []string{
		TemplateGeneralSmeAuGst,
		TemplateServicesLowInventory,
		TemplateProductManufacturing,
	}
}

// Accounts materializes a template for an org. Unknown names are a
// validation error.
func Accounts(template, orgID string) ([]ledger.Account, error) {
	entries, ok := templates[template]
	if !ok {
		return nil, shared.NewValidationError("unknown chart-of-accounts template %q", template)
	}
	out := make([]ledger.Account, 0, len(entries))
	for _, e := range entries {
		out = append(out, ledger.Account{
			Code:          e.code,
			Name:          e.name,
			Type:          e.acctTyp,
			NormalBalance: e.normal,
			OrgID:         orgID,
		})
	}
	return out, nil
}

// MustAccounts is Accounts for the bundled names; it panics on a typo
// in a constant.
func MustAccounts(template, orgID string) []ledger.Account {
	accounts, err := Accounts(template, orgID)
	if err != nil {
		panic(fmt.Sprintf("coa: %v", err))
	}
	return accounts
}
