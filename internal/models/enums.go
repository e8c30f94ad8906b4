package models

// ConsentType identifies the Berlin consent service a request belongs to.
type ConsentType string

// Consent types, matching the path segments of the NextGenPSD2 API.
const (
	ConsentTypeAccounts         ConsentType = "accounts"
	ConsentTypePayments         ConsentType = "payments"
	ConsentTypeBulkPayments     ConsentType = "bulk-payments"
	ConsentTypePeriodicPayments ConsentType = "periodic-payments"
	ConsentTypeFunds            ConsentType = "funds-confirmations"
)

var consentTypeByValue = map[string]ConsentType{
	string(ConsentTypeAccounts):         ConsentTypeAccounts,
	string(ConsentTypePayments):         ConsentTypePayments,
	string(ConsentTypeBulkPayments):     ConsentTypeBulkPayments,
	string(ConsentTypePeriodicPayments): ConsentTypePeriodicPayments,
	string(ConsentTypeFunds):            ConsentTypeFunds,
}

// ConsentTypeFromValue resolves a wire value to a ConsentType.
func ConsentTypeFromValue(value string) (ConsentType, bool) {
	t, ok := consentTypeByValue[value]
	return t, ok
}

// IsPaymentService reports whether the type is one of the payment services.
func (t ConsentType) IsPaymentService() bool {
	return t == ConsentTypePayments || t == ConsentTypeBulkPayments || t == ConsentTypePeriodicPayments
}

// ConsentStatus is the lifecycle status of an account or funds-confirmation
// consent.
type ConsentStatus string

// Consent statuses per NextGenPSD2.
const (
	ConsentReceived            ConsentStatus = "received"
	ConsentRejected            ConsentStatus = "rejected"
	ConsentValid               ConsentStatus = "valid"
	ConsentRevokedByPSU        ConsentStatus = "revokedByPsu"
	ConsentExpired             ConsentStatus = "expired"
	ConsentTerminatedByTPP     ConsentStatus = "terminatedByTpp"
	ConsentPartiallyAuthorised ConsentStatus = "partiallyAuthorised"
)

var consentStatusByValue = map[string]ConsentStatus{
	string(ConsentReceived):            ConsentReceived,
	string(ConsentRejected):            ConsentRejected,
	string(ConsentValid):               ConsentValid,
	string(ConsentRevokedByPSU):        ConsentRevokedByPSU,
	string(ConsentExpired):             ConsentExpired,
	string(ConsentTerminatedByTPP):     ConsentTerminatedByTPP,
	string(ConsentPartiallyAuthorised): ConsentPartiallyAuthorised,
}

// consentTransitions is the legal consent status transition table.
// RECEIVED is the only creation state; terminal states have no entries.
var consentTransitions = map[ConsentStatus][]ConsentStatus{
	ConsentReceived: {
		ConsentPartiallyAuthorised, ConsentValid, ConsentRejected,
	},
	ConsentPartiallyAuthorised: {
		ConsentValid, ConsentRejected, ConsentRevokedByPSU, ConsentTerminatedByTPP, ConsentExpired,
	},
	ConsentValid: {
		ConsentRevokedByPSU, ConsentTerminatedByTPP, ConsentExpired,
	},
}

// ConsentStatusFromValue resolves a wire value to a ConsentStatus.
func ConsentStatusFromValue(value string) (ConsentStatus, bool) {
	s, ok := consentStatusByValue[value]
	return s, ok
}

// IsTerminal reports whether the status permits no further transition.
func (s ConsentStatus) IsTerminal() bool {
	switch s {
	case ConsentRejected, ConsentRevokedByPSU, ConsentTerminatedByTPP, ConsentExpired:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving to next is a legal lifecycle step.
func (s ConsentStatus) CanTransitionTo(next ConsentStatus) bool {
	for _, allowed := range consentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransactionStatus is the ISO 20022 style status of a payment resource.
type TransactionStatus string

// Transaction statuses per NextGenPSD2.
const (
	TransactionReceived            TransactionStatus = "RCVD"
	TransactionPending             TransactionStatus = "PDNG"
	TransactionAcceptedTechnical   TransactionStatus = "ACTC"
	TransactionAcceptedCustomer    TransactionStatus = "ACCP"
	TransactionAcceptedWithChange  TransactionStatus = "ACWC"
	TransactionAcceptedWithPosting TransactionStatus = "ACWP"
	TransactionAcceptedSettlement  TransactionStatus = "ACSP"
	TransactionSettlementCompleted TransactionStatus = "ACSC"
	TransactionRejected            TransactionStatus = "RJCT"
	TransactionCancelled           TransactionStatus = "CANC"
	TransactionRevokedByPSU        TransactionStatus = "REVOKED"
	TransactionPartiallyAuthorised TransactionStatus = "PATC"
)

var transactionStatusByValue = map[string]TransactionStatus{
	string(TransactionReceived):            TransactionReceived,
	string(TransactionPending):             TransactionPending,
	string(TransactionAcceptedTechnical):   TransactionAcceptedTechnical,
	string(TransactionAcceptedCustomer):    TransactionAcceptedCustomer,
	string(TransactionAcceptedWithChange):  TransactionAcceptedWithChange,
	string(TransactionAcceptedWithPosting): TransactionAcceptedWithPosting,
	string(TransactionAcceptedSettlement):  TransactionAcceptedSettlement,
	string(TransactionSettlementCompleted): TransactionSettlementCompleted,
	string(TransactionRejected):            TransactionRejected,
	string(TransactionCancelled):           TransactionCancelled,
	string(TransactionRevokedByPSU):        TransactionRevokedByPSU,
	string(TransactionPartiallyAuthorised): TransactionPartiallyAuthorised,
}

// TransactionStatusFromValue resolves a wire value to a TransactionStatus.
func TransactionStatusFromValue(value string) (TransactionStatus, bool) {
	s, ok := transactionStatusByValue[value]
	return s, ok
}

// IsTerminal reports whether the payment status permits no further transition.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionSettlementCompleted, TransactionRejected, TransactionCancelled, TransactionRevokedByPSU:
		return true
	}
	return false
}

// IsAccepted reports whether the payment may be submitted against, i.e. it has
// reached an ACCP-class state.
func (s TransactionStatus) IsAccepted() bool {
	switch s {
	case TransactionAcceptedTechnical, TransactionAcceptedCustomer,
		TransactionAcceptedWithChange, TransactionAcceptedWithPosting,
		TransactionAcceptedSettlement, TransactionSettlementCompleted:
		return true
	}
	return false
}

// ScaStatus is the SCA status of an authorisation sub-resource.
type ScaStatus string

// Authorisation SCA statuses.
const (
	ScaReceived         ScaStatus = "received"
	ScaPsuIdentified    ScaStatus = "psuIdentified"
	ScaPsuAuthenticated ScaStatus = "psuAuthenticated"
	ScaMethodSelected   ScaStatus = "scaMethodSelected"
	ScaStarted          ScaStatus = "started"
	ScaFinalised        ScaStatus = "finalised"
	ScaFailed           ScaStatus = "failed"
	ScaExempted         ScaStatus = "exempted"
	ScaUnconfirmed      ScaStatus = "unconfirmed"
)

var scaStatusByValue = map[string]ScaStatus{
	string(ScaReceived):         ScaReceived,
	string(ScaPsuIdentified):    ScaPsuIdentified,
	string(ScaPsuAuthenticated): ScaPsuAuthenticated,
	string(ScaMethodSelected):   ScaMethodSelected,
	string(ScaStarted):          ScaStarted,
	string(ScaFinalised):        ScaFinalised,
	string(ScaFailed):           ScaFailed,
	string(ScaExempted):         ScaExempted,
	string(ScaUnconfirmed):      ScaUnconfirmed,
}

// scaTransitions is the legal SCA status transition table.
var scaTransitions = map[ScaStatus][]ScaStatus{
	ScaReceived: {
		ScaPsuIdentified, ScaPsuAuthenticated, ScaFailed, ScaExempted,
	},
	ScaPsuIdentified: {
		ScaPsuAuthenticated, ScaFailed,
	},
	ScaPsuAuthenticated: {
		ScaMethodSelected, ScaFailed, ScaExempted,
	},
	ScaMethodSelected: {
		ScaStarted, ScaFinalised, ScaFailed,
	},
	ScaStarted: {
		ScaFinalised, ScaFailed, ScaExempted, ScaUnconfirmed,
	},
	ScaUnconfirmed: {
		ScaFinalised, ScaFailed,
	},
}

// ScaStatusFromValue resolves a wire value to a ScaStatus.
func ScaStatusFromValue(value string) (ScaStatus, bool) {
	s, ok := scaStatusByValue[value]
	return s, ok
}

// IsFinal reports whether the SCA status is one of the end states.
func (s ScaStatus) IsFinal() bool {
	switch s {
	case ScaFinalised, ScaFailed, ScaExempted:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving to next is a legal SCA step.
func (s ScaStatus) CanTransitionTo(next ScaStatus) bool {
	for _, allowed := range scaTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AuthType distinguishes authorisation sub-resources created for initiation
// from those created for cancellation.
type AuthType string

// Authorisation resource types.
const (
	AuthTypeAuthorisation AuthType = "AUTHORISATION"
	AuthTypeCancellation  AuthType = "CANCELLATION"
)

// PermissionVariant is the access-permission class derived from a consent
// request's access object. Exactly one variant is derivable from any valid
// access object.
type PermissionVariant string

// Permission variants.
const (
	PermissionAllPSD2                       PermissionVariant = "ALL_PSD2"
	PermissionAvailableAccounts             PermissionVariant = "AVAILABLE_ACCOUNTS"
	PermissionAvailableAccountsWithBalances PermissionVariant = "AVAILABLE_ACCOUNTS_WITH_BALANCES"
	PermissionBankOffered                   PermissionVariant = "BANK_OFFERED"
	PermissionDedicatedAccounts             PermissionVariant = "DEDICATED_ACCOUNTS"
)

// ScaApproachName names the SCA approaches this layer understands.
const (
	ScaApproachRedirect  = "REDIRECT"
	ScaApproachDecoupled = "DECOUPLED"
)
