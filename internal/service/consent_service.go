// Package service orchestrates the Berlin flows: payload validation, SCA
// decisions, idempotency handling and calls to the consent persistence
// engine.
package service

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/wso2/openbanking-berlin/internal/config"
	"github.com/wso2/openbanking-berlin/internal/engine"
	"github.com/wso2/openbanking-berlin/internal/errors"
	"github.com/wso2/openbanking-berlin/internal/idempotency"
	"github.com/wso2/openbanking-berlin/internal/models"
	"github.com/wso2/openbanking-berlin/internal/sca"
	"github.com/wso2/openbanking-berlin/internal/validators"
	"github.com/wso2/openbanking-berlin/pkg/utils"
)

// InitiationContext carries the request-scoped inputs of an initiation call.
type InitiationContext struct {
	Headers *utils.HeaderMap
	Body    []byte
	Path    string
	PSUID   string
}

// ConsentService handles the account-information consent flows.
type ConsentService struct {
	engineClient engine.Client
	berlinCfg    *config.BerlinConfig
	selector     *sca.Selector
	idempotency  *idempotency.Validator
	logger       *logrus.Logger
}

// NewConsentService creates a consent service instance.
func NewConsentService(
	engineClient engine.Client,
	berlinCfg *config.BerlinConfig,
	selector *sca.Selector,
	idempotencyValidator *idempotency.Validator,
	logger *logrus.Logger,
) *ConsentService {
	return &ConsentService{
		engineClient: engineClient,
		berlinCfg:    berlinCfg,
		selector:     selector,
		idempotency:  idempotencyValidator,
		logger:       logger,
	}
}

// CreateAccountConsent processes POST /consents: payload validation,
// permission resolution, SCA decision, engine persistence and link
// construction. Replays inside the idempotency window return the stored
// response unchanged.
func (s *ConsentService) CreateAccountConsent(ctx context.Context, initiation *InitiationContext) (*models.ConsentInitiationResponse, *errors.Error) {
	if err := validators.ValidateXRequestID(initiation.Headers); err != nil {
		return nil, err
	}

	replay, err := s.checkReplay(ctx, initiation)
	if err != nil {
		return nil, err
	}
	if replay != nil {
		return replay, nil
	}

	var payload models.AccountConsentPayload
	if jsonErr := json.Unmarshal(initiation.Body, &payload); jsonErr != nil {
		return nil, errors.FormatError("Request body is not parsable JSON")
	}

	result, err := validators.ValidateAccountInitiation(&payload, s.berlinCfg)
	if err != nil {
		return nil, err
	}

	redirectPreferred, err := validators.ParseBooleanHeader(initiation.Headers, validators.HeaderTPPRedirectPreferred)
	if err != nil {
		return nil, err
	}
	explicit, err := validators.IsExplicitAuthorisation(initiation.Headers)
	if err != nil {
		return nil, err
	}

	decision, err := s.selector.Decide(redirectPreferred, true)
	if err != nil {
		return nil, err
	}

	accessSpec := models.NewAccessSpecification(result.Permission, payload.Access)
	createRequest := &engine.CreateConsentRequest{
		ConsentType:        string(models.ConsentTypeAccounts),
		CurrentStatus:      string(models.ConsentReceived),
		Receipt:            initiation.Body,
		ValidityPeriod:     utils.TimeToMillis(result.ValidUntil),
		RecurringIndicator: payload.RecurringIndicator != nil && *payload.RecurringIndicator,
		Frequency:          *payload.FrequencyPerDay,
		Attributes: map[string]string{
			"Permission": string(result.Permission),
			"ApiVersion": s.berlinCfg.APIVersion(string(models.ConsentTypeAccounts)),
		},
		MappedResources: accessSpec.PersistedReferences(),
	}
	// Implicit flow auto-creates exactly one authorisation resource.
	if !explicit {
		createRequest.Authorizations = []models.AuthorizationResource{{
			AuthType: string(models.AuthTypeAuthorisation),
			Status:   string(models.ScaReceived),
			UserID:   initiation.PSUID,
		}}
	}

	created, engineErr := s.engineClient.CreateAuthorizableConsent(ctx, createRequest)
	if engineErr != nil {
		s.logger.WithError(engineErr).Error("Failed to create account consent in consent engine")
		return nil, errors.New(errors.CodeInternalServerError, "Failed to create consent")
	}

	authorisationID := ""
	if !explicit && len(created.Authorizations) > 0 {
		authorisationID = created.Authorizations[0].AuthorizationID
	}

	links := sca.BuildLinks(&sca.LinksInput{
		ResourcePath:          initiation.Path,
		ResourceID:            created.ConsentID,
		AuthorisationID:       authorisationID,
		Explicit:              explicit,
		Decision:              decision,
		OAuthMetadataEndpoint: s.berlinCfg.OAuthMetadataEndpoint,
	})

	response := &models.ConsentInitiationResponse{
		ConsentStatus: models.ConsentReceived,
		ConsentID:     created.ConsentID,
		Links:         links,
	}
	s.attachScaMethods(response, decision)

	s.recordReplay(ctx, created.ConsentID, initiation, response)
	return response, nil
}

// GetConsent processes GET /consents/{consentId}: the stored receipt plus
// the current status, after type and expiry gating.
func (s *ConsentService) GetConsent(ctx context.Context, consentID string) (*models.ConsentRetrievalResponse, *errors.Error) {
	consent, err := s.loadConsent(ctx, consentID)
	if err != nil {
		return nil, err
	}

	var payload models.AccountConsentPayload
	if jsonErr := json.Unmarshal(consent.Receipt, &payload); jsonErr != nil {
		s.logger.WithError(jsonErr).WithField("consentID", consentID).Error("Stored consent receipt is not parsable")
		return nil, errors.New(errors.CodeInternalServerError, "Stored consent could not be read")
	}

	status, _ := consent.ConsentStatusValue()
	return &models.ConsentRetrievalResponse{
		Access:                   payload.Access,
		RecurringIndicator:       payload.RecurringIndicator,
		ValidUntil:               utils.FormatISODate(utils.MillisToTime(consent.ValidityPeriod)),
		FrequencyPerDay:          payload.FrequencyPerDay,
		CombinedServiceIndicator: payload.CombinedServiceIndicator,
		ConsentStatus:            status,
	}, nil
}

// GetConsentStatus processes GET /consents/{consentId}/status. Status-only
// retrieval does not need attributes or authorisations, so the light consent
// lookup is enough.
func (s *ConsentService) GetConsentStatus(ctx context.Context, consentID string) (*models.ConsentStatusResponse, *errors.Error) {
	consent, engineErr := s.engineClient.GetConsent(ctx, consentID)
	if engineErr != nil {
		if engineErr == engine.ErrNotFound {
			return nil, errors.New(errors.CodeConsentUnknown, "Matching consent resource could not be found")
		}
		s.logger.WithError(engineErr).Error("Failed to retrieve consent from consent engine")
		return nil, errors.New(errors.CodeInternalServerError, "Failed to retrieve consent")
	}
	if err := s.gateConsent(ctx, consent); err != nil {
		return nil, err
	}
	status, _ := consent.ConsentStatusValue()
	return &models.ConsentStatusResponse{ConsentStatus: status}, nil
}

// DeleteConsent processes DELETE /consents/{consentId}: TPP-side
// termination. Terminal consents cannot be terminated again.
func (s *ConsentService) DeleteConsent(ctx context.Context, consentID string) *errors.Error {
	consent, err := s.loadConsent(ctx, consentID)
	if err != nil {
		return err
	}

	status, _ := consent.ConsentStatusValue()
	if status.IsTerminal() {
		return errors.New(errors.CodeStatusInvalid, "Consent is already in a terminal status")
	}

	if engineErr := s.engineClient.UpdateConsentStatus(ctx, consentID, string(models.ConsentTerminatedByTPP)); engineErr != nil {
		s.logger.WithError(engineErr).Error("Failed to terminate consent")
		return errors.New(errors.CodeInternalServerError, "Failed to terminate consent")
	}
	failOpenAuthorisations(ctx, s.engineClient, s.logger, consent)
	return nil
}

// loadConsent fetches an accounts consent and applies the shared retrieval
// gates: existence, type match and expiry.
func (s *ConsentService) loadConsent(ctx context.Context, consentID string) (*models.DetailedConsentResource, *errors.Error) {
	consent, engineErr := s.engineClient.GetDetailedConsent(ctx, consentID)
	if engineErr != nil {
		if engineErr == engine.ErrNotFound {
			return nil, errors.New(errors.CodeConsentUnknown, "Matching consent resource could not be found")
		}
		s.logger.WithError(engineErr).Error("Failed to retrieve consent from consent engine")
		return nil, errors.New(errors.CodeInternalServerError, "Failed to retrieve consent")
	}

	if err := s.gateConsent(ctx, &consent.ConsentResource); err != nil {
		return nil, err
	}
	return consent, nil
}

// gateConsent applies the type and expiry gates shared by all accounts
// consent retrievals. An expired consent is marked as such before rejecting.
func (s *ConsentService) gateConsent(ctx context.Context, consent *models.ConsentResource) *errors.Error {
	if consent.ConsentType != string(models.ConsentTypeAccounts) {
		return errors.New(errors.CodeConsentInvalid, "Consent is not an account information consent")
	}

	if consent.IsExpired() {
		if updateErr := s.engineClient.UpdateConsentStatus(ctx, consent.ConsentID, string(models.ConsentExpired)); updateErr != nil {
			s.logger.WithError(updateErr).Warn("Failed to mark consent as expired")
		}
		return errors.New(errors.CodeConsentExpired, "Consent is expired")
	}
	return nil
}

// checkReplay returns the stored response when the initiation is a valid
// idempotent replay.
func (s *ConsentService) checkReplay(ctx context.Context, initiation *InitiationContext) (*models.ConsentInitiationResponse, *errors.Error) {
	result, err := s.idempotency.Validate(ctx, &idempotency.Request{
		XRequestID: initiation.Headers.Get(validators.HeaderXRequestID),
		Path:       initiation.Path,
		Payload:    initiation.Body,
	})
	if err != nil {
		return nil, err
	}
	if !result.IsIdempotent {
		return nil, nil
	}

	var stored models.ConsentInitiationResponse
	if jsonErr := json.Unmarshal(result.StoredResponse, &stored); jsonErr != nil {
		s.logger.WithError(jsonErr).Warn("Stored idempotent response is not parsable, processing as new request")
		return nil, nil
	}
	stored.StatusCode = result.StoredStatus
	return &stored, nil
}

// recordReplay stores the response for later idempotent replays. Failures
// only log; the consent itself was created.
func (s *ConsentService) recordReplay(ctx context.Context, consentID string, initiation *InitiationContext, response interface{}) {
	serialized, jsonErr := json.Marshal(response)
	if jsonErr != nil {
		s.logger.WithError(jsonErr).Warn("Failed to serialize response for idempotency record")
		return
	}
	request := &idempotency.Request{
		XRequestID: initiation.Headers.Get(validators.HeaderXRequestID),
		Path:       initiation.Path,
		ConsentID:  consentID,
		Payload:    initiation.Body,
	}
	if recordErr := s.idempotency.Record(ctx, consentID, request, serialized, 201); recordErr != nil {
		s.logger.WithError(recordErr).Warn("Failed to store idempotency record")
	}
}

// attachScaMethods sets chosenScaMethod or scaMethods on an initiation
// response according to the SCA decision.
func (s *ConsentService) attachScaMethods(response *models.ConsentInitiationResponse, decision *sca.Decision) {
	if chosen := decision.ChosenMethod(); chosen != nil {
		method := models.NewScaMethodResponse(*chosen)
		response.ChosenScaMethod = &method
		return
	}
	for _, method := range decision.Methods {
		response.ScaMethods = append(response.ScaMethods, models.NewScaMethodResponse(method))
	}
}
