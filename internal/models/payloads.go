package models

// Amount is the Berlin instructedAmount object.
type Amount struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

// AccountConsentPayload is the body of POST /consents.
// Pointer fields distinguish absent keys from zero values during mandatory
// field validation.
type AccountConsentPayload struct {
	Access                   *AccountAccess `json:"access"`
	RecurringIndicator       *bool          `json:"recurringIndicator"`
	ValidUntil               string         `json:"validUntil"`
	FrequencyPerDay          *int           `json:"frequencyPerDay"`
	CombinedServiceIndicator *bool          `json:"combinedServiceIndicator"`
}

// PaymentPayload is the body of a single payment initiation, and the element
// shape of a bulk payment's payments array.
type PaymentPayload struct {
	EndToEndIdentification            string            `json:"endToEndIdentification,omitempty"`
	InstructedAmount                  *Amount           `json:"instructedAmount"`
	DebtorAccount                     *AccountReference `json:"debtorAccount"`
	CreditorName                      string            `json:"creditorName"`
	CreditorAccount                   *AccountReference `json:"creditorAccount"`
	CreditorAgent                     string            `json:"creditorAgent,omitempty"`
	RemittanceInformationUnstructured string            `json:"remittanceInformationUnstructured"`
}

// PeriodicPaymentPayload is the body of a periodic payment initiation.
type PeriodicPaymentPayload struct {
	PaymentPayload
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate,omitempty"`
	ExecutionRule  string `json:"executionRule"`
	Frequency      string `json:"frequency"`
	DayOfExecution string `json:"dayOfExecution,omitempty"`
}

// BulkPaymentPayload is the body of a bulk payment initiation.
type BulkPaymentPayload struct {
	BatchBookingPreferred  *bool             `json:"batchBookingPreferred,omitempty"`
	RequestedExecutionDate string            `json:"requestedExecutionDate"`
	DebtorAccount          *AccountReference `json:"debtorAccount"`
	Payments               []PaymentPayload  `json:"payments"`
}

// FundsConfirmationPayload is the body of POST /consents/confirmation-of-funds.
type FundsConfirmationPayload struct {
	Account         *AccountReference `json:"account"`
	CardNumber      string            `json:"cardNumber,omitempty"`
	CardExpiryDate  string            `json:"cardExpiryDate,omitempty"`
	CardInformation string            `json:"cardInformation,omitempty"`
}

// PeriodicFrequencies is the whitelist of legal periodic payment frequencies.
var PeriodicFrequencies = map[string]bool{
	"Daily":           true,
	"Weekly":          true,
	"EveryTwoWeeks":   true,
	"Monthly":         true,
	"EveryTwoMonths":  true,
	"Quarterly":       true,
	"SemiAnnual":      true,
	"Annual":          true,
	"MonthlyVariable": true,
}

// Execution rules for periodic payments.
const (
	ExecutionRulePreceding = "preceding"
	ExecutionRuleFollowing = "following"
)
