// Package errors defines the Berlin Group error taxonomy used across the
// extension layer. Validators return *Error values; the gateway middleware
// performs the final mapping to the NextGenPSD2 tppMessages response shape.
package errors

import "net/http"

// Category is the Berlin Group TPP message category.
type Category string

// Message categories. This layer only ever emits ERROR.
const (
	CategoryError   Category = "ERROR"
	CategoryWarning Category = "WARNING"
)

// Code is a Berlin Group TPP message code.
type Code string

// TPP message codes emitted by this layer.
const (
	CodeFormatError            Code = "FORMAT_ERROR"
	CodeTimestampInvalid       Code = "TIMESTAMP_INVALID"
	CodeParameterNotConsistent Code = "PARAMETER_NOT_CONSISTENT"
	CodeResourceUnknown        Code = "RESOURCE_UNKNOWN"
	CodeConsentUnknown         Code = "CONSENT_UNKNOWN"
	CodeConsentInvalid         Code = "CONSENT_INVALID"
	CodeConsentExpired         Code = "CONSENT_EXPIRED"
	CodeCertificateMissing     Code = "CERTIFICATE_MISSING"
	CodeCertificateInvalid     Code = "CERTIFICATE_INVALID"
	CodeCertificateExpired     Code = "CERTIFICATE_EXPIRED"
	CodeCertificateRevoked     Code = "CERTIFICATE_REVOKED"
	CodeSignatureMissing       Code = "SIGNATURE_MISSING"
	CodeSignatureInvalid       Code = "SIGNATURE_INVALID"
	CodeSessionsNotSupported   Code = "SESSIONS_NOT_SUPPORTED"
	CodeCancellationInvalid    Code = "CANCELLATION_INVALID"
	CodeStatusInvalid          Code = "STATUS_INVALID"
	CodeExecutionDateInvalid   Code = "EXECUTION_DATE_INVALID"
	CodeProductUnknown         Code = "PRODUCT_UNKNOWN"
	CodeServiceInvalid         Code = "SERVICE_INVALID"
	CodeInternalServerError    Code = "INTERNAL_SERVER_ERROR"
)

// statusByCode maps every code to its HTTP status once, at package
// initialization, instead of scanning per lookup.
var statusByCode = map[Code]int{
	CodeFormatError:            http.StatusBadRequest,
	CodeTimestampInvalid:       http.StatusBadRequest,
	CodeParameterNotConsistent: http.StatusBadRequest,
	CodeResourceUnknown:        http.StatusNotFound,
	CodeConsentUnknown:         http.StatusForbidden,
	CodeConsentInvalid:         http.StatusUnauthorized,
	CodeConsentExpired:         http.StatusUnauthorized,
	CodeCertificateMissing:     http.StatusUnauthorized,
	CodeCertificateInvalid:     http.StatusUnauthorized,
	CodeCertificateExpired:     http.StatusUnauthorized,
	CodeCertificateRevoked:     http.StatusUnauthorized,
	CodeSignatureMissing:       http.StatusUnauthorized,
	CodeSignatureInvalid:       http.StatusUnauthorized,
	CodeSessionsNotSupported:   http.StatusBadRequest,
	CodeCancellationInvalid:    http.StatusMethodNotAllowed,
	CodeStatusInvalid:          http.StatusConflict,
	CodeExecutionDateInvalid:   http.StatusBadRequest,
	CodeProductUnknown:         http.StatusNotFound,
	CodeServiceInvalid:         http.StatusBadRequest,
	CodeInternalServerError:    http.StatusInternalServerError,
}

// Error is a Berlin Group business error. It satisfies the error interface so
// it can flow through ordinary Go error returns.
type Error struct {
	Category   Category `json:"category"`
	Code       Code     `json:"code"`
	Text       string   `json:"text"`
	HTTPStatus int      `json:"-"`
}

// Error returns the human readable text of the TPP message.
func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Text
}

// New creates an ERROR-category error for the given code. The HTTP status is
// resolved from the code's configured mapping.
func New(code Code, text string) *Error {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusBadRequest
	}
	return &Error{
		Category:   CategoryError,
		Code:       code,
		Text:       text,
		HTTPStatus: status,
	}
}

// FormatError is shorthand for the most common validator failure.
func FormatError(text string) *Error {
	return New(CodeFormatError, text)
}

// TimestampInvalid is shorthand for semantically out-of-range dates.
func TimestampInvalid(text string) *Error {
	return New(CodeTimestampInvalid, text)
}

// TPPMessage is a single entry of the Berlin Group error response body.
type TPPMessage struct {
	Category Category `json:"category"`
	Code     Code     `json:"code"`
	Text     string   `json:"text"`
}

// Response is the NextGenPSD2 error response body.
type Response struct {
	TPPMessages []TPPMessage `json:"tppMessages"`
}

// ToResponse converts a single error into the Berlin response shape. The
// validators fail fast, so there is never more than one active message.
func (e *Error) ToResponse() *Response {
	return &Response{
		TPPMessages: []TPPMessage{
			{Category: e.Category, Code: e.Code, Text: e.Text},
		},
	}
}
