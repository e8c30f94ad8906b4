// Package validators holds the stateless Berlin Group request validators.
// Each validator returns a typed *errors.Error on the first violated
// invariant; the gin layer performs the final HTTP mapping.
package validators

import (
	"fmt"
	"strings"

	"github.com/wso2/openbanking-berlin/internal/errors"
	"github.com/wso2/openbanking-berlin/pkg/utils"
)

// Berlin request header names.
const (
	HeaderXRequestID               = "X-Request-ID"
	HeaderPSUID                    = "PSU-ID"
	HeaderPSUIPAddress             = "PSU-IP-Address"
	HeaderPSUCorporateID           = "PSU-Corporate-ID"
	HeaderTPPRedirectPreferred     = "TPP-Redirect-Preferred"
	HeaderTPPExplicitAuthPreferred = "TPP-Explicit-Authorisation-Preferred"
	HeaderTPPRedirectURI           = "TPP-Redirect-URI"
	HeaderConsentID                = "Consent-ID"
	HeaderDate                     = "Date"
	HeaderDigest                   = "Digest"
	HeaderSignature                = "Signature"
	HeaderTPPSignatureCert         = "TPP-Signature-Certificate"
)

// ValidateXRequestID checks that X-Request-ID is present and a well-formed
// UUID.
func ValidateXRequestID(headers *utils.HeaderMap) *errors.Error {
	if err := ValidateMandatoryHeader(headers, HeaderXRequestID); err != nil {
		return err
	}
	if !utils.IsValidUUID(headers.Get(HeaderXRequestID)) {
		return errors.FormatError("Invalid X-Request-ID header. Needs to be in UUID format")
	}
	return nil
}

// ValidateMandatoryHeader checks presence of a single mandatory header.
func ValidateMandatoryHeader(headers *utils.HeaderMap, name string) *errors.Error {
	if !headers.Has(name) {
		return errors.FormatError(fmt.Sprintf("%s header is missing in the request", name))
	}
	return nil
}

// ParseBooleanHeader parses an optional boolean header. Returns nil when the
// header is absent and an error when the value is neither "true" nor "false".
func ParseBooleanHeader(headers *utils.HeaderMap, name string) (*bool, *errors.Error) {
	value := headers.Get(name)
	if value == "" {
		return nil, nil
	}
	switch strings.ToLower(value) {
	case "true":
		b := true
		return &b, nil
	case "false":
		b := false
		return &b, nil
	}
	return nil, errors.FormatError(fmt.Sprintf("Invalid %s header. Needs to be a boolean", name))
}

// IsExplicitAuthorisation reports whether the TPP requested the explicit
// start-authorisation flow. Absent header means implicit.
func IsExplicitAuthorisation(headers *utils.HeaderMap) (bool, *errors.Error) {
	explicit, err := ParseBooleanHeader(headers, HeaderTPPExplicitAuthPreferred)
	if err != nil {
		return false, err
	}
	return explicit != nil && *explicit, nil
}
