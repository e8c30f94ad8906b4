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

// PaymentService handles the payment-initiation flows for single, bulk and
// periodic payments.
type PaymentService struct {
	engineClient engine.Client
	berlinCfg    *config.BerlinConfig
	selector     *sca.Selector
	idempotency  *idempotency.Validator
	logger       *logrus.Logger
}

// NewPaymentService creates a payment service instance.
func NewPaymentService(
	engineClient engine.Client,
	berlinCfg *config.BerlinConfig,
	selector *sca.Selector,
	idempotencyValidator *idempotency.Validator,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		engineClient: engineClient,
		berlinCfg:    berlinCfg,
		selector:     selector,
		idempotency:  idempotencyValidator,
		logger:       logger,
	}
}

// CreatePayment processes payment initiation for the given payment service
// and product. The payload shape and validation rules depend on the service;
// the persistence and SCA handling are shared.
func (s *PaymentService) CreatePayment(ctx context.Context, service models.ConsentType, product string, initiation *InitiationContext) (*models.PaymentInitiationResponse, *errors.Error) {
	if err := validators.ValidateXRequestID(initiation.Headers); err != nil {
		return nil, err
	}
	if err := s.validateProduct(product); err != nil {
		return nil, err
	}

	replay, err := s.checkReplay(ctx, initiation)
	if err != nil {
		return nil, err
	}
	if replay != nil {
		return replay, nil
	}

	if err := s.validatePayload(service, initiation.Body); err != nil {
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
		ConsentType:   string(service),
		CurrentStatus: string(models.TransactionReceived),
		Receipt:       initiation.Body,
		Attributes: map[string]string{
			"PaymentProduct": product,
			"ApiVersion":     s.berlinCfg.APIVersion(string(service)),
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
		s.logger.WithError(engineErr).WithField("service", service).Error("Failed to create payment in consent engine")
		return nil, errors.New(errors.CodeInternalServerError, "Failed to create payment")
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

	response := &models.PaymentInitiationResponse{
		TransactionStatus: models.TransactionReceived,
		PaymentID:         created.ConsentID,
		Links:             links,
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

// GetPayment processes GET /{payment-service}/{payment-product}/{paymentId}:
// the stored initiation payload with the current transaction status added.
func (s *PaymentService) GetPayment(ctx context.Context, service models.ConsentType, product, paymentID string) (map[string]interface{}, *errors.Error) {
	payment, err := s.loadPayment(ctx, service, product, paymentID)
	if err != nil {
		return nil, err
	}

	var body map[string]interface{}
	if jsonErr := json.Unmarshal(payment.Receipt, &body); jsonErr != nil {
		s.logger.WithError(jsonErr).WithField("paymentID", paymentID).Error("Stored payment receipt is not parsable")
		return nil, errors.New(errors.CodeInternalServerError, "Stored payment could not be read")
	}
	body["transactionStatus"] = payment.CurrentStatus
	return body, nil
}

// GetPaymentStatus processes GET .../{paymentId}/status.
func (s *PaymentService) GetPaymentStatus(ctx context.Context, service models.ConsentType, product, paymentID string) (*models.TransactionStatusResponse, *errors.Error) {
	payment, err := s.loadPayment(ctx, service, product, paymentID)
	if err != nil {
		return nil, err
	}
	status, _ := payment.TransactionStatusValue()
	return &models.TransactionStatusResponse{TransactionStatus: status}, nil
}

// CancelPayment processes DELETE .../{paymentId}. Payments already settled or
// in a terminal status cannot be cancelled.
func (s *PaymentService) CancelPayment(ctx context.Context, service models.ConsentType, product, paymentID string) *errors.Error {
	payment, err := s.loadPayment(ctx, service, product, paymentID)
	if err != nil {
		return err
	}

	status, _ := payment.TransactionStatusValue()
	if status == models.TransactionSettlementCompleted {
		return errors.New(errors.CodeCancellationInvalid, "Settled payments cannot be cancelled")
	}
	if status.IsTerminal() {
		return errors.New(errors.CodeStatusInvalid, "Payment is already in a terminal status")
	}

	if engineErr := s.engineClient.UpdateConsentStatus(ctx, paymentID, string(models.TransactionCancelled)); engineErr != nil {
		s.logger.WithError(engineErr).Error("Failed to cancel payment")
		return errors.New(errors.CodeInternalServerError, "Failed to cancel payment")
	}
	failOpenAuthorisations(ctx, s.engineClient, s.logger, payment)
	return nil
}

// loadPayment fetches a payment resource and applies the shared gates:
// existence, payment service match and product match.
func (s *PaymentService) loadPayment(ctx context.Context, service models.ConsentType, product, paymentID string) (*models.DetailedConsentResource, *errors.Error) {
	if err := s.validateProduct(product); err != nil {
		return nil, err
	}

	payment, engineErr := s.engineClient.GetDetailedConsent(ctx, paymentID)
	if engineErr != nil {
		if engineErr == engine.ErrNotFound {
			return nil, errors.New(errors.CodeResourceUnknown, "Matching payment resource could not be found")
		}
		s.logger.WithError(engineErr).Error("Failed to retrieve payment from consent engine")
		return nil, errors.New(errors.CodeInternalServerError, "Failed to retrieve payment")
	}

	if payment.ConsentType != string(service) {
		return nil, errors.New(errors.CodeServiceInvalid, "Resource does not belong to the requested payment service")
	}
	if stored := payment.Attributes["PaymentProduct"]; stored != "" && stored != product {
		return nil, errors.New(errors.CodeProductUnknown, "Resource does not belong to the requested payment product")
	}
	return payment, nil
}

// validatePayload dispatches payload validation by payment service.
func (s *PaymentService) validatePayload(service models.ConsentType, body []byte) *errors.Error {
	switch service {
	case models.ConsentTypePayments:
		var payload models.PaymentPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return errors.FormatError("Request body is not parsable JSON")
		}
		return validators.ValidateSinglePayment(&payload, s.berlinCfg)
	case models.ConsentTypePeriodicPayments:
		var payload models.PeriodicPaymentPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return errors.FormatError("Request body is not parsable JSON")
		}
		return validators.ValidatePeriodicPayment(&payload, s.berlinCfg)
	case models.ConsentTypeBulkPayments:
		var payload models.BulkPaymentPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return errors.FormatError("Request body is not parsable JSON")
		}
		return validators.ValidateBulkPayment(&payload, s.berlinCfg)
	default:
		return errors.New(errors.CodeServiceInvalid, "Unsupported payment service")
	}
}

// validateProduct checks the payment product against the configured
// whitelist.
func (s *PaymentService) validateProduct(product string) *errors.Error {
	if !s.berlinCfg.IsPaymentProductSupported(product) {
		return errors.New(errors.CodeProductUnknown, "Payment product is not supported")
	}
	return nil
}

// checkReplay returns the stored response when the initiation is a valid
// idempotent replay.
func (s *PaymentService) checkReplay(ctx context.Context, initiation *InitiationContext) (*models.PaymentInitiationResponse, *errors.Error) {
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

	var stored models.PaymentInitiationResponse
	if jsonErr := json.Unmarshal(result.StoredResponse, &stored); jsonErr != nil {
		s.logger.WithError(jsonErr).Warn("Stored idempotent response is not parsable, processing as new request")
		return nil, nil
	}
	stored.StatusCode = result.StoredStatus
	return &stored, nil
}

// recordReplay stores the response for later idempotent replays.
func (s *PaymentService) recordReplay(ctx context.Context, paymentID string, initiation *InitiationContext, response interface{}) {
	serialized, jsonErr := json.Marshal(response)
	if jsonErr != nil {
		s.logger.WithError(jsonErr).Warn("Failed to serialize response for idempotency record")
		return
	}
	request := &idempotency.Request{
		XRequestID: initiation.Headers.Get(validators.HeaderXRequestID),
		Path:       initiation.Path,
		ConsentID:  paymentID,
		Payload:    initiation.Body,
	}
	if recordErr := s.idempotency.Record(ctx, paymentID, request, serialized, 201); recordErr != nil {
		s.logger.WithError(recordErr).Warn("Failed to store idempotency record")
	}
}
