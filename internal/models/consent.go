package models

import (
	"encoding/json"
	"time"

	"github.com/wso2/openbanking-berlin/pkg/utils"
)

// consentExpiryGraceDays is the number of days after the last status update
// that must also have elapsed before a validUntil-passed consent is treated
// as expired.
const consentExpiryGraceDays = 90

// ConsentResource is the consent engine's persisted consent DTO, as returned
// by its CRUD API.
type ConsentResource struct {
	ConsentID          string          `json:"consentId"`
	ClientID           string          `json:"clientId"`
	ConsentType        string          `json:"consentType"`
	CurrentStatus      string          `json:"currentStatus"`
	Receipt            json.RawMessage `json:"receipt,omitempty"`
	ValidityPeriod     int64           `json:"validityPeriod,omitempty"`
	RecurringIndicator bool            `json:"recurringIndicator"`
	Frequency          int             `json:"consentFrequency,omitempty"`
	CreatedTime        int64           `json:"createdTime"`
	UpdatedTime        int64           `json:"updatedTime"`
}

// DetailedConsentResource is a ConsentResource plus its attributes,
// authorisation resources, and account mappings.
type DetailedConsentResource struct {
	ConsentResource
	Attributes     map[string]string       `json:"consentAttributes,omitempty"`
	Authorizations []AuthorizationResource `json:"authorizationResources,omitempty"`
	MappedAccounts []string                `json:"consentMappedResources,omitempty"`
}

// AuthorizationResource is the engine's authorisation sub-resource DTO.
type AuthorizationResource struct {
	AuthorizationID string `json:"authorizationId"`
	ConsentID       string `json:"consentId"`
	AuthType        string `json:"authorizationType"`
	Status          string `json:"authorizationStatus"`
	UserID          string `json:"userId,omitempty"`
	UpdatedTime     int64  `json:"updatedTime"`
}

// ConsentStatusValue resolves the resource's current status against the
// consent status enum.
func (c *ConsentResource) ConsentStatusValue() (ConsentStatus, bool) {
	return ConsentStatusFromValue(c.CurrentStatus)
}

// TransactionStatusValue resolves the resource's current status against the
// payment transaction status enum.
func (c *ConsentResource) TransactionStatusValue() (TransactionStatus, bool) {
	return TransactionStatusFromValue(c.CurrentStatus)
}

// IsExpired reports whether the consent has expired. Expiry requires BOTH the
// validUntil date to be reached and more than 90 days to have elapsed since
// the last status update. The double condition follows the upstream source;
// it reads either as a 90-day grace period on top of validUntil or as two
// conflated expiry policies, and is kept as-is pending regulatory
// confirmation.
func (c *ConsentResource) IsExpired() bool {
	if c.ValidityPeriod == 0 {
		return false
	}
	now := time.Now()
	validUntilReached := now.After(utils.MillisToTime(c.ValidityPeriod))
	graceElapsed := now.After(utils.MillisToTime(c.UpdatedTime).AddDate(0, 0, consentExpiryGraceDays))
	return validUntilReached && graceElapsed
}

// ScaStatusValue resolves the authorisation's status against the SCA status
// enum.
func (a *AuthorizationResource) ScaStatusValue() (ScaStatus, bool) {
	return ScaStatusFromValue(a.Status)
}

// BelongsTo reports whether the authorisation is owned by the given user.
// An authorisation without an owning user yet matches any user.
func (a *AuthorizationResource) BelongsTo(userID string) bool {
	return a.UserID == "" || a.UserID == userID
}
