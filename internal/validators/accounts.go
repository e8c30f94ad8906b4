package validators

import (
	"fmt"
	"time"

	"github.com/wso2/openbanking-berlin/internal/config"
	"github.com/wso2/openbanking-berlin/internal/errors"
	"github.com/wso2/openbanking-berlin/internal/models"
)

// AccountInitiationResult carries the outcome of a successful account consent
// payload validation: the resolved permission and the normalized validUntil
// date. Returning the permission here (instead of stashing it in shared
// state) keeps the validator a pure function.
type AccountInitiationResult struct {
	Permission models.PermissionVariant
	ValidUntil time.Time
}

// ValidateAccountInitiation validates the body of POST /consents.
// Mandatory fields are checked first, fail-fast; semantic checks follow.
func ValidateAccountInitiation(payload *models.AccountConsentPayload, berlinCfg *config.BerlinConfig) (*AccountInitiationResult, *errors.Error) {
	if payload == nil {
		return nil, errors.FormatError("Request body is missing")
	}
	if payload.Access == nil {
		return nil, errors.FormatError("Mandatory field access is missing in the request")
	}
	if payload.RecurringIndicator == nil {
		return nil, errors.FormatError("Mandatory field recurringIndicator is missing in the request")
	}
	if payload.ValidUntil == "" {
		return nil, errors.FormatError("Mandatory field validUntil is missing in the request")
	}
	if payload.FrequencyPerDay == nil {
		return nil, errors.FormatError("Mandatory field frequencyPerDay is missing in the request")
	}
	if payload.CombinedServiceIndicator == nil {
		return nil, errors.FormatError("Mandatory field combinedServiceIndicator is missing in the request")
	}

	if *payload.CombinedServiceIndicator {
		return nil, errors.New(errors.CodeSessionsNotSupported, "Combined service indicator is not supported")
	}

	frequency := *payload.FrequencyPerDay
	if frequency < 1 {
		return nil, errors.FormatError("frequencyPerDay must be greater than or equal to 1")
	}
	if !*payload.RecurringIndicator && frequency != 1 {
		return nil, errors.FormatError("frequencyPerDay must be 1 for one-off consents")
	}
	if *payload.RecurringIndicator && frequency < berlinCfg.FrequencyPerDayMin {
		return nil, errors.FormatError(fmt.Sprintf(
			"frequencyPerDay must be at least %d for recurring consents", berlinCfg.FrequencyPerDayMin))
	}

	validUntil, err := GetValidatedValidUntil(payload.ValidUntil,
		berlinCfg.ValidUntilDateCapEnabled, berlinCfg.ValidUntilDays)
	if err != nil {
		return nil, err
	}

	permission, err := ResolvePermission(payload.Access, berlinCfg)
	if err != nil {
		return nil, err
	}

	return &AccountInitiationResult{
		Permission: permission,
		ValidUntil: validUntil,
	}, nil
}
