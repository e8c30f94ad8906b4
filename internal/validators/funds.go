package validators

import (
	"github.com/wso2/openbanking-berlin/internal/config"
	"github.com/wso2/openbanking-berlin/internal/errors"
	"github.com/wso2/openbanking-berlin/internal/models"
)

// ValidateFundsConfirmation validates the body of
// POST /consents/confirmation-of-funds.
func ValidateFundsConfirmation(payload *models.FundsConfirmationPayload, berlinCfg *config.BerlinConfig) *errors.Error {
	if payload == nil {
		return errors.FormatError("Request body is missing")
	}
	if payload.Account == nil {
		return errors.FormatError("Mandatory field account is missing in the request")
	}
	if err := ValidateAccountReference(payload.Account, berlinCfg); err != nil {
		return err
	}

	if payload.CardExpiryDate != "" {
		if _, err := ValidateFutureDateField("cardExpiryDate", payload.CardExpiryDate); err != nil {
			return err
		}
	}
	return nil
}
