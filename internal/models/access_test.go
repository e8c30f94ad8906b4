package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAccessSpecification(t *testing.T) {
	t.Run("dedicated accounts carries references", func(t *testing.T) {
		accounts := []AccountReference{{IBAN: "DE73459340345034563141"}}
		balances := []AccountReference{{IBAN: "DE02100100109307118603", Currency: "EUR"}}
		access := &AccountAccess{Accounts: &accounts, Balances: &balances}

		spec := NewAccessSpecification(PermissionDedicatedAccounts, access)
		assert.Equal(t, PermissionDedicatedAccounts, spec.Permission)
		assert.Equal(t, accounts, spec.Accounts)
		assert.Equal(t, balances, spec.Balances)
		assert.Empty(t, spec.Transactions)
	})

	t.Run("special variants carry no references", func(t *testing.T) {
		accounts := []AccountReference{{IBAN: "DE73459340345034563141"}}
		access := &AccountAccess{Accounts: &accounts, AllPsd2: AllAccounts}

		spec := NewAccessSpecification(PermissionAllPSD2, access)
		assert.Equal(t, PermissionAllPSD2, spec.Permission)
		assert.Empty(t, spec.Accounts)
	})
}

func TestAccessSpecification_PersistedReferences(t *testing.T) {
	t.Run("deduplicates across access methods", func(t *testing.T) {
		shared := AccountReference{IBAN: "DE73459340345034563141"}
		accounts := []AccountReference{shared, {BBAN: "BARC12345612345678"}}
		transactions := []AccountReference{shared}
		access := &AccountAccess{Accounts: &accounts, Transactions: &transactions}

		spec := NewAccessSpecification(PermissionDedicatedAccounts, access)
		assert.Equal(t, []string{
			"iban:DE73459340345034563141",
			"bban:BARC12345612345678",
		}, spec.PersistedReferences())
	})

	t.Run("empty for non-dedicated variants", func(t *testing.T) {
		spec := NewAccessSpecification(PermissionBankOffered, &AccountAccess{})
		assert.Empty(t, spec.PersistedReferences())
	})
}
