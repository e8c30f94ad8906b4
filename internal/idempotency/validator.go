// Package idempotency detects replayed Berlin requests through the
// X-Request-ID attributes stored against consents in the consent engine.
package idempotency

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wso2/openbanking-berlin/internal/engine"
	"github.com/wso2/openbanking-berlin/internal/errors"
	"github.com/wso2/openbanking-berlin/pkg/utils"
)

// Attribute keys under which the prior request is recorded. Authorisation
// creation and cancellation-authorisation paths get distinct keys because
// multiple authorisation sub-resources can exist per consent, each with
// independent idempotency tracking.
const (
	AttributeXRequestID         = "X_REQUEST_ID"
	AttributeExplicitAuthXReqID = "EXPLICIT_AUTH_X_REQUEST_ID"
	AttributeAuthCancelXReqID   = "AUTH_CANCEL_X_REQUEST_ID"

	suffixCreatedTime = "_CREATED_TIME"
	suffixPayload     = "_PAYLOAD"
	suffixResponse    = "_RESPONSE"
	suffixStatus      = "_RESPONSE_STATUS"
)

// Request is the context the validator needs from an inbound call.
type Request struct {
	XRequestID string
	Path       string
	// ConsentID is empty on initiation paths; replay detection then searches
	// the engine by attribute value.
	ConsentID string
	Payload   []byte
}

// Result reports a detected valid replay together with the stored response
// to return in place of re-processing.
type Result struct {
	IsIdempotent   bool
	StoredResponse json.RawMessage
	StoredStatus   int
	ConsentID      string
}

// Validator checks inbound requests against stored idempotency records.
type Validator struct {
	engineClient engine.Client
	allowedTime  time.Duration
	logger       *logrus.Logger
}

// NewValidator creates an idempotency validator.
func NewValidator(engineClient engine.Client, allowedTime time.Duration, logger *logrus.Logger) *Validator {
	return &Validator{
		engineClient: engineClient,
		allowedTime:  allowedTime,
		logger:       logger,
	}
}

// AttributeKeyForPath resolves the idempotency attribute key for a resource
// path category.
func AttributeKeyForPath(path string) string {
	switch {
	case strings.Contains(path, "cancellation-authorisations"):
		return AttributeAuthCancelXReqID
	case strings.Contains(path, "authorisations"):
		return AttributeExplicitAuthXReqID
	default:
		return AttributeXRequestID
	}
}

// Validate checks whether the request replays an earlier one. A replay with
// matching payload inside the allowed window yields the stored response; a
// replay with a different payload is rejected as fraudulent X-Request-ID
// reuse; a record older than the window is ignored and the request proceeds
// as new.
func (v *Validator) Validate(ctx context.Context, request *Request) (*Result, *errors.Error) {
	attributeKey := AttributeKeyForPath(request.Path)

	attributes, consentID, found, err := v.lookupAttributes(ctx, attributeKey, request)
	if err != nil {
		return nil, err
	}
	if !found || attributes[attributeKey] != request.XRequestID {
		return &Result{IsIdempotent: false}, nil
	}

	createdMillis, parseErr := strconv.ParseInt(attributes[attributeKey+suffixCreatedTime], 10, 64)
	if parseErr != nil {
		v.logger.WithField("consentID", consentID).Warn("Idempotency record has no parsable created time")
		return &Result{IsIdempotent: false}, nil
	}
	if time.Since(utils.MillisToTime(createdMillis)) > v.allowedTime {
		return &Result{IsIdempotent: false}, nil
	}

	if normalizePayload(request.Payload) != attributes[attributeKey+suffixPayload] {
		return nil, errors.FormatError("Payloads are not similar. Hence this is not a valid idempotent request")
	}

	status := 201
	if s, parseErr := strconv.Atoi(attributes[attributeKey+suffixStatus]); parseErr == nil {
		status = s
	}

	v.logger.WithFields(logrus.Fields{
		"consentID":  consentID,
		"xRequestID": request.XRequestID,
	}).Debug("Valid idempotent replay detected")

	return &Result{
		IsIdempotent:   true,
		StoredResponse: json.RawMessage(attributes[attributeKey+suffixResponse]),
		StoredStatus:   status,
		ConsentID:      consentID,
	}, nil
}

// Record stores the idempotency attributes for a processed request so later
// replays can be answered from them.
func (v *Validator) Record(ctx context.Context, consentID string, request *Request, response []byte, status int) error {
	attributeKey := AttributeKeyForPath(request.Path)
	attributes := map[string]string{
		attributeKey:                     request.XRequestID,
		attributeKey + suffixCreatedTime: strconv.FormatInt(utils.GetCurrentTimeMillis(), 10),
		attributeKey + suffixPayload:     normalizePayload(request.Payload),
		attributeKey + suffixResponse:    string(response),
		attributeKey + suffixStatus:      strconv.Itoa(status),
	}
	return v.engineClient.StoreConsentAttributes(ctx, consentID, attributes)
}

// lookupAttributes finds the attribute map that may hold a matching
// idempotency record: by consent ID on sub-resource paths, by attribute
// search on initiation paths.
func (v *Validator) lookupAttributes(ctx context.Context, attributeKey string, request *Request) (map[string]string, string, bool, *errors.Error) {
	if request.ConsentID != "" {
		attributes, err := v.engineClient.GetConsentAttributes(ctx, request.ConsentID)
		if err != nil {
			if err == engine.ErrNotFound {
				return nil, "", false, nil
			}
			v.logger.WithError(err).Error("Failed to load consent attributes for idempotency check")
			return nil, "", false, errors.New(errors.CodeInternalServerError, "Failed to check request idempotency")
		}
		return attributes, request.ConsentID, len(attributes) > 0, nil
	}

	consents, err := v.engineClient.SearchConsentsByAttribute(ctx, attributeKey, request.XRequestID)
	if err != nil {
		v.logger.WithError(err).Error("Failed to search consents for idempotency check")
		return nil, "", false, errors.New(errors.CodeInternalServerError, "Failed to check request idempotency")
	}
	if len(consents) == 0 {
		return nil, "", false, nil
	}
	return consents[0].Attributes, consents[0].ConsentID, true, nil
}

// normalizePayload produces a canonical form of a JSON payload so that
// semantically identical bodies compare equal. Go's map marshalling sorts
// keys, which gives a stable form.
func normalizePayload(payload []byte) string {
	if len(payload) == 0 {
		return "{}"
	}
	var decoded interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return string(payload)
	}
	normalized, err := json.Marshal(decoded)
	if err != nil {
		return string(payload)
	}
	return string(normalized)
}
