package validators

import (
	"strconv"

	"github.com/wso2/openbanking-berlin/internal/config"
	"github.com/wso2/openbanking-berlin/internal/errors"
	"github.com/wso2/openbanking-berlin/internal/models"
)

// ValidateSinglePayment validates a single payment initiation body. The same
// rules apply to each element of a bulk payment.
func ValidateSinglePayment(payload *models.PaymentPayload, berlinCfg *config.BerlinConfig) *errors.Error {
	if payload == nil {
		return errors.FormatError("Request body is missing")
	}
	if err := validateInstructedAmount(payload.InstructedAmount); err != nil {
		return err
	}
	if payload.DebtorAccount == nil {
		return errors.FormatError("Mandatory field debtorAccount is missing in the request")
	}
	if err := ValidateAccountReference(payload.DebtorAccount, berlinCfg); err != nil {
		return err
	}
	if payload.CreditorName == "" {
		return errors.FormatError("Mandatory field creditorName is missing in the request")
	}
	if payload.CreditorAccount == nil {
		return errors.FormatError("Mandatory field creditorAccount is missing in the request")
	}
	if err := ValidateAccountReference(payload.CreditorAccount, berlinCfg); err != nil {
		return err
	}
	if payload.RemittanceInformationUnstructured == "" {
		return errors.FormatError("Mandatory field remittanceInformationUnstructured is missing in the request")
	}
	return nil
}

func validateInstructedAmount(amount *models.Amount) *errors.Error {
	if amount == nil {
		return errors.FormatError("Mandatory field instructedAmount is missing in the request")
	}
	if amount.Currency == "" {
		return errors.FormatError("Mandatory field currency is missing in instructedAmount")
	}
	if amount.Amount == "" {
		return errors.FormatError("Mandatory field amount is missing in instructedAmount")
	}
	if _, err := strconv.ParseFloat(amount.Amount, 64); err != nil {
		return errors.FormatError("Amount in instructedAmount is not a valid number")
	}
	return nil
}

// ValidatePeriodicPayment validates a periodic payment initiation body: the
// single-payment rules plus start date, frequency whitelist, execution rule
// and end date ordering.
func ValidatePeriodicPayment(payload *models.PeriodicPaymentPayload, berlinCfg *config.BerlinConfig) *errors.Error {
	if payload == nil {
		return errors.FormatError("Request body is missing")
	}
	if err := ValidateSinglePayment(&payload.PaymentPayload, berlinCfg); err != nil {
		return err
	}

	if payload.StartDate == "" {
		return errors.FormatError("Mandatory field startDate is missing in the request")
	}
	startDate, err := ValidateFutureDateField("startDate", payload.StartDate)
	if err != nil {
		return err
	}

	if payload.Frequency == "" {
		return errors.FormatError("Mandatory field frequency is missing in the request")
	}
	if !models.PeriodicFrequencies[payload.Frequency] {
		return errors.FormatError("frequency is not a supported periodic payment frequency")
	}

	if payload.ExecutionRule == "" {
		return errors.FormatError("Mandatory field executionRule is missing in the request")
	}
	if payload.ExecutionRule != models.ExecutionRulePreceding && payload.ExecutionRule != models.ExecutionRuleFollowing {
		return errors.FormatError("executionRule must be either preceding or following")
	}

	if payload.EndDate != "" {
		endDate, err := ParseDateField("endDate", payload.EndDate)
		if err != nil {
			return err
		}
		if endDate.Before(startDate) {
			return errors.TimestampInvalid("endDate must not be before startDate")
		}
	}
	return nil
}

// ValidateBulkPayment validates a bulk payment initiation body: a future
// requested execution date, a non-empty payments array and each element as a
// single payment.
func ValidateBulkPayment(payload *models.BulkPaymentPayload, berlinCfg *config.BerlinConfig) *errors.Error {
	if payload == nil {
		return errors.FormatError("Request body is missing")
	}
	if payload.RequestedExecutionDate == "" {
		return errors.FormatError("Mandatory field requestedExecutionDate is missing in the request")
	}
	if _, err := ValidateFutureDateField("requestedExecutionDate", payload.RequestedExecutionDate); err != nil {
		return err
	}

	if payload.DebtorAccount == nil {
		return errors.FormatError("Mandatory field debtorAccount is missing in the request")
	}
	if err := ValidateAccountReference(payload.DebtorAccount, berlinCfg); err != nil {
		return err
	}

	if len(payload.Payments) == 0 {
		return errors.FormatError("Mandatory field payments is missing or empty in the request")
	}
	for i := range payload.Payments {
		element := payload.Payments[i]
		// Bulk elements inherit the batch debtor account when omitted.
		if element.DebtorAccount == nil {
			element.DebtorAccount = payload.DebtorAccount
		}
		if err := ValidateSinglePayment(&element, berlinCfg); err != nil {
			return err
		}
	}
	return nil
}
