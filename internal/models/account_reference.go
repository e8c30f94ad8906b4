package models

import (
	"fmt"
	"strings"
)

// Account reference identifier types defined by NextGenPSD2. The subset a
// deployment accepts is configured.
const (
	RefTypeIBAN      = "iban"
	RefTypeBBAN      = "bban"
	RefTypePAN       = "pan"
	RefTypeMaskedPan = "maskedPan"
	RefTypeMSISDN    = "msisdn"
)

// AccountReference is a single Berlin account reference. Exactly one
// identifier field must be set; currency is optional.
type AccountReference struct {
	IBAN      string `json:"iban,omitempty"`
	BBAN      string `json:"bban,omitempty"`
	PAN       string `json:"pan,omitempty"`
	MaskedPan string `json:"maskedPan,omitempty"`
	MSISDN    string `json:"msisdn,omitempty"`
	Currency  string `json:"currency,omitempty"`
}

// identifiers returns the identifier type/value pairs present on the
// reference, in a fixed order.
func (r *AccountReference) identifiers() [][2]string {
	var present [][2]string
	for _, pair := range [][2]string{
		{RefTypeIBAN, r.IBAN},
		{RefTypeBBAN, r.BBAN},
		{RefTypePAN, r.PAN},
		{RefTypeMaskedPan, r.MaskedPan},
		{RefTypeMSISDN, r.MSISDN},
	} {
		if pair[1] != "" {
			present = append(present, pair)
		}
	}
	return present
}

// IdentifierType returns the wire name of the single identifier set on the
// reference, or "" when none or several are set.
func (r *AccountReference) IdentifierType() string {
	present := r.identifiers()
	if len(present) != 1 {
		return ""
	}
	return present[0][0]
}

// IdentifierValue returns the value of the single identifier set on the
// reference, or "" when none or several are set.
func (r *AccountReference) IdentifierValue() string {
	present := r.identifiers()
	if len(present) != 1 {
		return ""
	}
	return present[0][1]
}

// IdentifierCount returns how many identifier fields carry a value.
func (r *AccountReference) IdentifierCount() int {
	return len(r.identifiers())
}

// Persist encodes the reference in the colon-delimited form
// "<type>:<value>[:<currency>]" used by the consent engine's mapping store.
func (r *AccountReference) Persist() string {
	refType := r.IdentifierType()
	if refType == "" {
		return ""
	}
	persisted := refType + ":" + r.IdentifierValue()
	if r.Currency != "" {
		persisted += ":" + r.Currency
	}
	return persisted
}

// ParseAccountReference decodes the colon-delimited persisted form back into
// an AccountReference.
func ParseAccountReference(persisted string) (*AccountReference, error) {
	parts := strings.SplitN(persisted, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("malformed account reference: %q", persisted)
	}

	ref := &AccountReference{}
	switch parts[0] {
	case RefTypeIBAN:
		ref.IBAN = parts[1]
	case RefTypeBBAN:
		ref.BBAN = parts[1]
	case RefTypePAN:
		ref.PAN = parts[1]
	case RefTypeMaskedPan:
		ref.MaskedPan = parts[1]
	case RefTypeMSISDN:
		ref.MSISDN = parts[1]
	default:
		return nil, fmt.Errorf("unknown account reference type: %q", parts[0])
	}

	if len(parts) == 3 {
		ref.Currency = parts[2]
	}
	return ref, nil
}
