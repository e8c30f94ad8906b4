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

// AuthorizationService handles the explicit authorisation sub-resource flows
// shared by consents and payments, including cancellation authorisations.
type AuthorizationService struct {
	engineClient engine.Client
	berlinCfg    *config.BerlinConfig
	selector     *sca.Selector
	idempotency  *idempotency.Validator
	logger       *logrus.Logger
}

// NewAuthorizationService creates an authorization service instance.
func NewAuthorizationService(
	engineClient engine.Client,
	berlinCfg *config.BerlinConfig,
	selector *sca.Selector,
	idempotencyValidator *idempotency.Validator,
	logger *logrus.Logger,
) *AuthorizationService {
	return &AuthorizationService{
		engineClient: engineClient,
		berlinCfg:    berlinCfg,
		selector:     selector,
		idempotency:  idempotencyValidator,
		logger:       logger,
	}
}

// StartAuthorisation processes POST .../authorisations and
// POST .../cancellation-authorisations: it creates an authorisation
// sub-resource for an existing consent or payment.
func (s *AuthorizationService) StartAuthorisation(ctx context.Context, consentType models.ConsentType, resourceID string, initiation *InitiationContext, cancellation bool) (*models.AuthorisationResponse, *errors.Error) {
	if err := validators.ValidateXRequestID(initiation.Headers); err != nil {
		return nil, err
	}
	if cancellation && !consentType.IsPaymentService() {
		return nil, errors.New(errors.CodeCancellationInvalid, "Cancellation authorisations only apply to payments")
	}

	resource, err := s.loadResource(ctx, consentType, resourceID)
	if err != nil {
		return nil, err
	}
	if err := s.validateAuthorisable(resource, consentType, cancellation); err != nil {
		return nil, err
	}

	replay, err := s.checkReplay(ctx, resourceID, initiation)
	if err != nil {
		return nil, err
	}
	if replay != nil {
		return replay, nil
	}

	redirectPreferred, err := validators.ParseBooleanHeader(initiation.Headers, validators.HeaderTPPRedirectPreferred)
	if err != nil {
		return nil, err
	}
	decision, err := s.selector.Decide(redirectPreferred, true)
	if err != nil {
		return nil, err
	}

	authType := models.AuthTypeAuthorisation
	if cancellation {
		authType = models.AuthTypeCancellation
	}
	created, engineErr := s.engineClient.CreateConsentAuthorization(ctx, &models.AuthorizationResource{
		ConsentID: resourceID,
		AuthType:  string(authType),
		Status:    string(models.ScaReceived),
		UserID:    initiation.PSUID,
	})
	if engineErr != nil {
		s.logger.WithError(engineErr).WithField("resourceID", resourceID).Error("Failed to create authorisation resource")
		return nil, errors.New(errors.CodeInternalServerError, "Failed to create authorisation")
	}

	links := sca.BuildAuthorisationLinks(initiation.Path, created.AuthorizationID, s.berlinCfg.OAuthMetadataEndpoint, decision)

	response := &models.AuthorisationResponse{
		ScaStatus:       models.ScaReceived,
		AuthorisationID: created.AuthorizationID,
		Links:           links,
	}
	if chosen := decision.ChosenMethod(); chosen != nil {
		method := models.NewScaMethodResponse(*chosen)
		response.ChosenScaMethod = &method
	} else {
		for _, method := range decision.Methods {
			response.ScaMethods = append(response.ScaMethods, models.NewScaMethodResponse(method))
		}
	}

	s.recordReplay(ctx, resourceID, initiation, response)
	return response, nil
}

// ListAuthorisations processes GET .../authorisations and
// GET .../cancellation-authorisations.
func (s *AuthorizationService) ListAuthorisations(ctx context.Context, consentType models.ConsentType, resourceID string, cancellation bool) (*models.AuthorisationListResponse, *errors.Error) {
	if _, err := s.loadResource(ctx, consentType, resourceID); err != nil {
		return nil, err
	}

	authorizations, engineErr := s.engineClient.SearchAuthorizations(ctx, resourceID)
	if engineErr != nil {
		s.logger.WithError(engineErr).Error("Failed to list authorisation resources")
		return nil, errors.New(errors.CodeInternalServerError, "Failed to list authorisations")
	}

	wantedType := models.AuthTypeAuthorisation
	if cancellation {
		wantedType = models.AuthTypeCancellation
	}
	ids := make([]string, 0, len(authorizations))
	for _, authorization := range authorizations {
		if authorization.AuthType == string(wantedType) {
			ids = append(ids, authorization.AuthorizationID)
		}
	}
	return &models.AuthorisationListResponse{AuthorisationIDs: ids}, nil
}

// ScaStatusResult is the outcome of an SCA status retrieval. IsError marks a
// user mismatch; the caller renders it without failing the request.
type ScaStatusResult struct {
	Response *models.ScaStatusResponse
	IsError  bool
}

// GetScaStatus processes GET .../authorisations/{authorisationId}. A
// requesting user that does not own the authorisation flags the result
// instead of failing, so callers can degrade the response.
func (s *AuthorizationService) GetScaStatus(ctx context.Context, consentType models.ConsentType, resourceID, authorisationID, userID string) (*ScaStatusResult, *errors.Error) {
	if _, err := s.loadResource(ctx, consentType, resourceID); err != nil {
		return nil, err
	}

	authorization, engineErr := s.engineClient.GetAuthorization(ctx, authorisationID)
	if engineErr != nil {
		if engineErr == engine.ErrNotFound {
			return nil, errors.New(errors.CodeResourceUnknown, "Matching authorisation resource could not be found")
		}
		s.logger.WithError(engineErr).Error("Failed to retrieve authorisation resource")
		return nil, errors.New(errors.CodeInternalServerError, "Failed to retrieve authorisation")
	}
	if authorization.ConsentID != resourceID {
		return nil, errors.New(errors.CodeResourceUnknown, "Authorisation does not belong to the given resource")
	}

	result := &ScaStatusResult{}
	if userID != "" && !authorization.BelongsTo(userID) {
		s.logger.WithFields(logrus.Fields{
			"authorisationID": authorisationID,
			"userID":          userID,
		}).Warn("SCA status requested by a user that does not own the authorisation")
		result.IsError = true
	}

	status, ok := authorization.ScaStatusValue()
	if !ok {
		s.logger.WithField("status", authorization.Status).Error("Authorisation carries an unknown SCA status")
		return nil, errors.New(errors.CodeInternalServerError, "Authorisation status could not be read")
	}
	result.Response = &models.ScaStatusResponse{ScaStatus: status}
	return result, nil
}

// loadResource fetches the parent consent or payment of an authorisation
// flow and checks the type matches the request path.
func (s *AuthorizationService) loadResource(ctx context.Context, consentType models.ConsentType, resourceID string) (*models.DetailedConsentResource, *errors.Error) {
	resource, engineErr := s.engineClient.GetDetailedConsent(ctx, resourceID)
	if engineErr != nil {
		if engineErr == engine.ErrNotFound {
			return nil, errors.New(errors.CodeResourceUnknown, "Matching resource could not be found")
		}
		s.logger.WithError(engineErr).Error("Failed to retrieve resource from consent engine")
		return nil, errors.New(errors.CodeInternalServerError, "Failed to retrieve resource")
	}
	if resource.ConsentType != string(consentType) {
		return nil, errors.New(errors.CodeServiceInvalid, "Resource does not belong to the requested service")
	}
	return resource, nil
}

// failOpenAuthorisations moves the still-open authorisation sub-resources of
// a terminated consent or payment to failed. Finalised authorisations are
// left untouched; engine failures only log, the parent termination already
// succeeded.
func failOpenAuthorisations(ctx context.Context, client engine.Client, logger *logrus.Logger, resource *models.DetailedConsentResource) {
	for _, authorization := range resource.Authorizations {
		status, ok := authorization.ScaStatusValue()
		if !ok || !status.CanTransitionTo(models.ScaFailed) {
			continue
		}
		if err := client.UpdateAuthorizationStatus(ctx, authorization.AuthorizationID, string(models.ScaFailed)); err != nil {
			logger.WithError(err).WithField("authorisationID", authorization.AuthorizationID).Warn("Failed to fail open authorisation")
		}
	}
}

// validateAuthorisable checks the parent resource's status admits a new
// authorisation of the requested kind.
func (s *AuthorizationService) validateAuthorisable(resource *models.DetailedConsentResource, consentType models.ConsentType, cancellation bool) *errors.Error {
	if consentType.IsPaymentService() {
		status, ok := resource.TransactionStatusValue()
		if !ok {
			return errors.New(errors.CodeInternalServerError, "Payment status could not be read")
		}
		if status.IsTerminal() {
			return errors.New(errors.CodeStatusInvalid, "Payment is already in a terminal status")
		}
		if !cancellation && status != models.TransactionReceived && status != models.TransactionPartiallyAuthorised {
			return errors.New(errors.CodeStatusInvalid, "Payment can no longer be authorised")
		}
		return nil
	}

	status, ok := resource.ConsentStatusValue()
	if !ok {
		return errors.New(errors.CodeInternalServerError, "Consent status could not be read")
	}
	if status.IsTerminal() {
		return errors.New(errors.CodeStatusInvalid, "Consent is already in a terminal status")
	}
	if status != models.ConsentReceived && status != models.ConsentPartiallyAuthorised {
		return errors.New(errors.CodeStatusInvalid, "Consent can no longer be authorised")
	}
	return nil
}

// checkReplay returns the stored response when the start-authorisation call
// is a valid idempotent replay.
func (s *AuthorizationService) checkReplay(ctx context.Context, resourceID string, initiation *InitiationContext) (*models.AuthorisationResponse, *errors.Error) {
	result, err := s.idempotency.Validate(ctx, &idempotency.Request{
		XRequestID: initiation.Headers.Get(validators.HeaderXRequestID),
		Path:       initiation.Path,
		ConsentID:  resourceID,
		Payload:    initiation.Body,
	})
	if err != nil {
		return nil, err
	}
	if !result.IsIdempotent {
		return nil, nil
	}

	var stored models.AuthorisationResponse
	if jsonErr := json.Unmarshal(result.StoredResponse, &stored); jsonErr != nil {
		s.logger.WithError(jsonErr).Warn("Stored idempotent response is not parsable, processing as new request")
		return nil, nil
	}
	stored.StatusCode = result.StoredStatus
	return &stored, nil
}

// recordReplay stores the response for later idempotent replays.
func (s *AuthorizationService) recordReplay(ctx context.Context, resourceID string, initiation *InitiationContext, response interface{}) {
	serialized, jsonErr := json.Marshal(response)
	if jsonErr != nil {
		s.logger.WithError(jsonErr).Warn("Failed to serialize response for idempotency record")
		return
	}
	request := &idempotency.Request{
		XRequestID: initiation.Headers.Get(validators.HeaderXRequestID),
		Path:       initiation.Path,
		ConsentID:  resourceID,
		Payload:    initiation.Body,
	}
	if recordErr := s.idempotency.Record(ctx, resourceID, request, serialized, 201); recordErr != nil {
		s.logger.WithError(recordErr).Warn("Failed to store idempotency record")
	}
}
