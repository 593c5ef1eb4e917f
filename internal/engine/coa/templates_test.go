package coa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp-ledger-engine/internal/domain/ledger"
	"github.com/erp-ledger-engine/internal/domain/shared"
)

func TestAccounts(t *testing.T) {
	t.Run("every bundled template materializes", func(t *testing.T) {
		for _, name := range Names() {
			accounts, err := Accounts(name, "org1")
			require.NoError(t, err, name)
			assert.NotEmpty(t, accounts, name)
			for _, a := range accounts {
				assert.Equal(t, "org1", a.OrgID)
				assert.NotEmpty(t, a.Code)
				assert.NotEmpty(t, a.Name)
			}
		}
	})

	t.Run("codes are unique within a template", func(t *testing.T) {
		accounts := MustAccounts(TemplateGeneralSmeAuGst, "org1")
		seen := make(map[string]bool)
		for _, a := range accounts {
			assert.False(t, seen[a.Code], "duplicate code %s", a.Code)
			seen[a.Code] = true
		}
	})

	t.Run("normal balance follows account type", func(t *testing.T) {
		for _, a := range MustAccounts(TemplateProductManufacturing, "org1") {
			switch a.Type {
			case shared.AccountTypeAsset, shared.AccountTypeExpense:
				assert.Equal(t, shared.NormalBalanceDebit, a.NormalBalance, a.Code)
			default:
				assert.Equal(t, shared.NormalBalanceCredit, a.NormalBalance, a.Code)
			}
		}
	})

	t.Run("revenue accounts carry the income type", func(t *testing.T) {
		var revenue *ledger.Account
		for _, a := range MustAccounts(TemplateGeneralSmeAuGst, "org1") {
			if a.Code == "4000" {
				cp := a
				revenue = &cp
				break
			}
		}
		require.NotNil(t, revenue)
		assert.Equal(t, shared.AccountTypeIncome, revenue.Type)
		assert.Equal(t, "income", string(revenue.Type))
	})

	t.Run("unknown template is a validation error", func(t *testing.T) {
		_, err := Accounts("nope", "org1")
		assert.Equal(t, shared.CodeValidation, shared.CodeOf(err))
	})
}
