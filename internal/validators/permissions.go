package validators

import (
	"fmt"

	"github.com/wso2/openbanking-berlin/internal/config"
	"github.com/wso2/openbanking-berlin/internal/errors"
	"github.com/wso2/openbanking-berlin/internal/models"
)

// ResolvePermission derives the single permission variant expressed by an
// access object. Exactly one variant must be derivable; conflicting or empty
// access objects produce FORMAT_ERROR.
func ResolvePermission(access *models.AccountAccess, berlinCfg *config.BerlinConfig) (models.PermissionVariant, *errors.Error) {
	if access == nil {
		return "", errors.FormatError("Mandatory field access is missing in the request")
	}

	if !access.HasMethodArrays() {
		if access.AdditionalInformation != nil {
			return "", errors.FormatError(
				"additionalInformation is only applicable together with at least one of accounts, balances or transactions")
		}
		return resolveSpecialPermission(access)
	}

	// Method-keyed arrays present: special permission keys are illegal here.
	if access.SpecialPermissionCount() != 0 {
		return "", errors.FormatError(
			"allPsd2 and availableAccounts permissions cannot be combined with accounts, balances or transactions")
	}

	provided := access.ProvidedAccessTypes()
	empty := access.EmptyAccessMethodArrays()
	if provided > empty && empty != 0 {
		return "", errors.FormatError(
			"accounts, balances and transactions arrays must be all empty or all non-empty")
	}

	if provided == empty {
		return models.PermissionBankOffered, nil
	}

	for _, ref := range access.DedicatedReferences() {
		if err := ValidateAccountReference(&ref, berlinCfg); err != nil {
			return "", err
		}
	}
	return models.PermissionDedicatedAccounts, nil
}

// resolveSpecialPermission handles the allPsd2 / availableAccounts /
// availableAccountsWithBalance branch. Exactly one of the three keys may be
// set and its value must be one of the two legal sentinels.
func resolveSpecialPermission(access *models.AccountAccess) (models.PermissionVariant, *errors.Error) {
	if access.SpecialPermissionCount() == 0 {
		return "", errors.FormatError("No valid permission is attached in the access object")
	}
	if access.SpecialPermissionCount() > 1 {
		return "", errors.FormatError(
			"Only one of allPsd2, availableAccounts and availableAccountsWithBalance may be set")
	}

	switch {
	case access.AllPsd2 != "":
		if err := validateSpecialValue("allPsd2", access.AllPsd2); err != nil {
			return "", err
		}
		return models.PermissionAllPSD2, nil
	case access.AvailableAccounts != "":
		if err := validateSpecialValue("availableAccounts", access.AvailableAccounts); err != nil {
			return "", err
		}
		return models.PermissionAvailableAccounts, nil
	default:
		if err := validateSpecialValue("availableAccountsWithBalance", access.AvailableAccountsWithBalance); err != nil {
			return "", err
		}
		return models.PermissionAvailableAccountsWithBalances, nil
	}
}

func validateSpecialValue(key, value string) *errors.Error {
	if value != models.AllAccounts && value != models.AllAccountsWithOwnerName {
		return errors.FormatError(fmt.Sprintf(
			"%s must be set to either allAccounts or allAccountsWithOwnerName", key))
	}
	return nil
}

// ValidateAccountReference checks a single Berlin account reference: exactly
// one identifier key, the identifier type must be in the configured set, and
// the value must be non-blank.
func ValidateAccountReference(ref *models.AccountReference, berlinCfg *config.BerlinConfig) *errors.Error {
	if ref == nil {
		return errors.FormatError("Account reference is missing in the request")
	}

	count := ref.IdentifierCount()
	if count == 0 {
		return errors.FormatError("Account reference does not contain any account identifier")
	}
	if count > 1 {
		return errors.FormatError("Account reference must contain exactly one account identifier")
	}

	refType := ref.IdentifierType()
	if !berlinCfg.IsAccountReferenceTypeSupported(refType) {
		return errors.FormatError(fmt.Sprintf("Account reference type %s is not supported", refType))
	}
	return nil
}
