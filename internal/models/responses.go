package models

import "github.com/wso2/openbanking-berlin/internal/config"

// Href wraps a single HATEOAS link target.
type Href struct {
	Href string `json:"href"`
}

// Links is the Berlin `_links` object. Only the links applicable to the
// chosen flow are set.
type Links struct {
	Self                                                *Href `json:"self,omitempty"`
	Status                                              *Href `json:"status,omitempty"`
	ScaOAuth                                            *Href `json:"scaOAuth,omitempty"`
	ScaStatus                                           *Href `json:"scaStatus,omitempty"`
	SelectAuthenticationMethod                          *Href `json:"selectAuthenticationMethod,omitempty"`
	StartAuthorisation                                  *Href `json:"startAuthorisation,omitempty"`
	StartAuthorisationWithPsuIdentification             *Href `json:"startAuthorisationWithPsuIdentification,omitempty"`
	StartAuthorisationWithAuthenticationMethodSelection *Href `json:"startAuthorisationWithAuthenticationMethodSelection,omitempty"`
}

// ScaMethodResponse is the wire shape of an authentication method offered to
// the PSU.
type ScaMethodResponse struct {
	AuthenticationType     string `json:"authenticationType"`
	AuthenticationMethodID string `json:"authenticationMethodId"`
	Name                   string `json:"name,omitempty"`
	Explanation            string `json:"explanation,omitempty"`
	AuthenticationVersion  string `json:"authenticationVersion,omitempty"`
}

// NewScaMethodResponse maps a configured SCA method to its wire shape.
func NewScaMethodResponse(method config.ScaMethod) ScaMethodResponse {
	return ScaMethodResponse{
		AuthenticationType:     method.Type,
		AuthenticationMethodID: method.ID,
		Name:                   method.Name,
		Explanation:            method.Description,
		AuthenticationVersion:  method.Version,
	}
}

// ConsentInitiationResponse is the body returned by POST /consents and
// POST /consents/confirmation-of-funds. StatusCode carries the originally
// returned HTTP status on idempotent replays and is never serialized.
type ConsentInitiationResponse struct {
	ConsentStatus   ConsentStatus       `json:"consentStatus"`
	ConsentID       string              `json:"consentId"`
	ChosenScaMethod *ScaMethodResponse  `json:"chosenScaMethod,omitempty"`
	ScaMethods      []ScaMethodResponse `json:"scaMethods,omitempty"`
	Links           *Links              `json:"_links"`
	StatusCode      int                 `json:"-"`
}

// PaymentInitiationResponse is the body returned by payment initiation.
type PaymentInitiationResponse struct {
	TransactionStatus TransactionStatus   `json:"transactionStatus"`
	PaymentID         string              `json:"paymentId"`
	ChosenScaMethod   *ScaMethodResponse  `json:"chosenScaMethod,omitempty"`
	ScaMethods        []ScaMethodResponse `json:"scaMethods,omitempty"`
	Links             *Links              `json:"_links"`
	StatusCode        int                 `json:"-"`
}

// AuthorisationResponse is the body returned by explicit start-authorisation.
type AuthorisationResponse struct {
	ScaStatus       ScaStatus           `json:"scaStatus"`
	AuthorisationID string              `json:"authorisationId"`
	ChosenScaMethod *ScaMethodResponse  `json:"chosenScaMethod,omitempty"`
	ScaMethods      []ScaMethodResponse `json:"scaMethods,omitempty"`
	Links           *Links              `json:"_links"`
	StatusCode      int                 `json:"-"`
}

// AuthorisationListResponse is the body of GET .../authorisations.
type AuthorisationListResponse struct {
	AuthorisationIDs []string `json:"authorisationIds"`
}

// ScaStatusResponse is the body of GET .../authorisations/{authorisationId}.
type ScaStatusResponse struct {
	ScaStatus ScaStatus `json:"scaStatus"`
}

// ConsentRetrievalResponse is the body of GET /consents/{consentId}: the
// consent content as initially submitted plus the current status.
type ConsentRetrievalResponse struct {
	Access                   *AccountAccess `json:"access,omitempty"`
	RecurringIndicator       *bool          `json:"recurringIndicator,omitempty"`
	ValidUntil               string         `json:"validUntil,omitempty"`
	FrequencyPerDay          *int           `json:"frequencyPerDay,omitempty"`
	CombinedServiceIndicator *bool          `json:"combinedServiceIndicator,omitempty"`
	ConsentStatus            ConsentStatus  `json:"consentStatus"`
}

// FundsConsentRetrievalResponse is the body of
// GET /consents/confirmation-of-funds/{consentId}.
type FundsConsentRetrievalResponse struct {
	Account         *AccountReference `json:"account,omitempty"`
	CardNumber      string            `json:"cardNumber,omitempty"`
	CardExpiryDate  string            `json:"cardExpiryDate,omitempty"`
	CardInformation string            `json:"cardInformation,omitempty"`
	ConsentStatus   ConsentStatus     `json:"consentStatus"`
}

// ConsentStatusResponse is the body of GET /consents/{consentId}/status.
type ConsentStatusResponse struct {
	ConsentStatus ConsentStatus `json:"consentStatus"`
}

// TransactionStatusResponse is the body of GET {payment}/.../status.
type TransactionStatusResponse struct {
	TransactionStatus TransactionStatus `json:"transactionStatus"`
}
