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
)

// FundsService handles the confirmation-of-funds consent flows.
type FundsService struct {
	engineClient engine.Client
	berlinCfg    *config.BerlinConfig
	selector     *sca.Selector
	idempotency  *idempotency.Validator
	logger       *logrus.Logger
}

// NewFundsService creates a funds-confirmation service instance.
func NewFundsService(
	engineClient engine.Client,
	berlinCfg *config.BerlinConfig,
	selector *sca.Selector,
	idempotencyValidator *idempotency.Validator,
	logger *logrus.Logger,
) *FundsService {
	return &FundsService{
		engineClient: engineClient,
		berlinCfg:    berlinCfg,
		selector:     selector,
		idempotency:  idempotencyValidator,
		logger:       logger,
	}
}

// CreateFundsConsent processes POST /consents/confirmation-of-funds.
func (s *FundsService) CreateFundsConsent(ctx context.Context, initiation *InitiationContext) (*models.ConsentInitiationResponse, *errors.Error) {
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

	var payload models.FundsConfirmationPayload
	if jsonErr := json.Unmarshal(initiation.Body, &payload); jsonErr != nil {
		return nil, errors.FormatError("Request body is not parsable JSON")
	}
	if err := validators.ValidateFundsConfirmation(&payload, s.berlinCfg); err != nil {
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

	createRequest := &engine.CreateConsentRequest{
		ConsentType:        string(models.ConsentTypeFunds),
		CurrentStatus:      string(models.ConsentReceived),
		Receipt:            initiation.Body,
		RecurringIndicator: true,
		Attributes: map[string]string{
			"ApiVersion": s.berlinCfg.APIVersion(string(models.ConsentTypeFunds)),
		},
	}
	if !explicit {
		createRequest.Authorizations = []models.AuthorizationResource{{
			AuthType: string(models.AuthTypeAuthorisation),
			Status:   string(models.ScaReceived),
			UserID:   initiation.PSUID,
		}}
	}

	created, engineErr := s.engineClient.CreateAuthorizableConsent(ctx, createRequest)
	if engineErr != nil {
		s.logger.WithError(engineErr).Error("Failed to create funds confirmation consent in consent engine")
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
	if chosen := decision.ChosenMethod(); chosen != nil {
		method := models.NewScaMethodResponse(*chosen)
		response.ChosenScaMethod = &method
	} else {
		for _, method := range decision.Methods {
			response.ScaMethods = append(response.ScaMethods, models.NewScaMethodResponse(method))
		}
	}

	s.recordReplay(ctx, created.ConsentID, initiation, response)
	return response, nil
}

// GetFundsConsent processes GET /consents/confirmation-of-funds/{consentId}.
func (s *FundsService) GetFundsConsent(ctx context.Context, consentID string) (*models.FundsConsentRetrievalResponse, *errors.Error) {
	consent, err := s.loadConsent(ctx, consentID)
	if err != nil {
		return nil, err
	}

	var payload models.FundsConfirmationPayload
	if jsonErr := json.Unmarshal(consent.Receipt, &payload); jsonErr != nil {
		s.logger.WithError(jsonErr).WithField("consentID", consentID).Error("Stored consent receipt is not parsable")
		return nil, errors.New(errors.CodeInternalServerError, "Stored consent could not be read")
	}

	status, _ := consent.ConsentStatusValue()
	return &models.FundsConsentRetrievalResponse{
		Account:         payload.Account,
		CardNumber:      payload.CardNumber,
		CardExpiryDate:  payload.CardExpiryDate,
		CardInformation: payload.CardInformation,
		ConsentStatus:   status,
	}, nil
}

// GetFundsConsentStatus processes
// GET /consents/confirmation-of-funds/{consentId}/status. Status-only
// retrieval uses the light consent lookup.
func (s *FundsService) GetFundsConsentStatus(ctx context.Context, consentID string) (*models.ConsentStatusResponse, *errors.Error) {
	consent, engineErr := s.engineClient.GetConsent(ctx, consentID)
	if engineErr != nil {
		if engineErr == engine.ErrNotFound {
			return nil, errors.New(errors.CodeConsentUnknown, "Matching consent resource could not be found")
		}
		s.logger.WithError(engineErr).Error("Failed to retrieve consent from consent engine")
		return nil, errors.New(errors.CodeInternalServerError, "Failed to retrieve consent")
	}
	if consent.ConsentType != string(models.ConsentTypeFunds) {
		return nil, errors.New(errors.CodeConsentInvalid, "Consent is not a confirmation of funds consent")
	}
	status, _ := consent.ConsentStatusValue()
	return &models.ConsentStatusResponse{ConsentStatus: status}, nil
}

// DeleteFundsConsent processes
// DELETE /consents/confirmation-of-funds/{consentId}.
func (s *FundsService) DeleteFundsConsent(ctx context.Context, consentID string) *errors.Error {
	consent, err := s.loadConsent(ctx, consentID)
	if err != nil {
		return err
	}

	status, _ := consent.ConsentStatusValue()
	if status.IsTerminal() {
		return errors.New(errors.CodeStatusInvalid, "Consent is already in a terminal status")
	}

	if engineErr := s.engineClient.UpdateConsentStatus(ctx, consentID, string(models.ConsentTerminatedByTPP)); engineErr != nil {
		s.logger.WithError(engineErr).Error("Failed to terminate funds confirmation consent")
		return errors.New(errors.CodeInternalServerError, "Failed to terminate consent")
	}
	failOpenAuthorisations(ctx, s.engineClient, s.logger, consent)
	return nil
}

// loadConsent fetches a funds-confirmation consent and applies existence and
// type gates. Funds consents carry no validUntil so no expiry gate applies.
func (s *FundsService) loadConsent(ctx context.Context, consentID string) (*models.DetailedConsentResource, *errors.Error) {
	consent, engineErr := s.engineClient.GetDetailedConsent(ctx, consentID)
	if engineErr != nil {
		if engineErr == engine.ErrNotFound {
			return nil, errors.New(errors.CodeConsentUnknown, "Matching consent resource could not be found")
		}
		s.logger.WithError(engineErr).Error("Failed to retrieve consent from consent engine")
		return nil, errors.New(errors.CodeInternalServerError, "Failed to retrieve consent")
	}
	if consent.ConsentType != string(models.ConsentTypeFunds) {
		return nil, errors.New(errors.CodeConsentInvalid, "Consent is not a confirmation of funds consent")
	}
	return consent, nil
}

// checkReplay returns the stored response when the initiation is a valid
// idempotent replay.
func (s *FundsService) checkReplay(ctx context.Context, initiation *InitiationContext) (*models.ConsentInitiationResponse, *errors.Error) {
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

// recordReplay stores the response for later idempotent replays.
func (s *FundsService) recordReplay(ctx context.Context, consentID string, initiation *InitiationContext, response interface{}) {
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
