package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wso2/openbanking-berlin/internal/engine"
	"github.com/wso2/openbanking-berlin/internal/engine/mocks"
	"github.com/wso2/openbanking-berlin/internal/errors"
	"github.com/wso2/openbanking-berlin/internal/idempotency"
	"github.com/wso2/openbanking-berlin/internal/models"
	"github.com/wso2/openbanking-berlin/internal/sca"
	"github.com/wso2/openbanking-berlin/pkg/utils"
)

func newAuthorizationService(engineMock *mocks.MockClient) *AuthorizationService {
	cfg := serviceBerlinConfig()
	logger := testLogger()
	return NewAuthorizationService(
		engineMock,
		cfg,
		sca.NewSelector(cfg),
		idempotency.NewValidator(engineMock, cfg.IdempotencyAllowedTime, logger),
		logger,
	)
}

func authorisationInitiationContext(path string) *InitiationContext {
	return &InitiationContext{
		Headers: utils.NewHeaderMapFromPairs(map[string]string{
			"X-Request-ID": testXRequestID,
			"PSU-ID":       "psu@wso2.com",
		}),
		Path:  path,
		PSUID: "psu@wso2.com",
	}
}

func TestStartAuthorisation_Consent(t *testing.T) {
	engineMock := new(mocks.MockClient)
	svc := newAuthorizationService(engineMock)

	consent := activeAccountConsent()
	consent.CurrentStatus = "received"
	engineMock.On("GetDetailedConsent", mock.Anything, testConsentID).Return(consent, nil)
	engineMock.On("GetConsentAttributes", mock.Anything, testConsentID).Return(map[string]string{}, nil)
	engineMock.On("CreateConsentAuthorization", mock.Anything, mock.MatchedBy(func(authorization *models.AuthorizationResource) bool {
		return authorization.ConsentID == testConsentID &&
			authorization.AuthType == "AUTHORISATION" &&
			authorization.Status == "received"
	})).Return(&models.AuthorizationResource{
		AuthorizationID: testAuthID,
		ConsentID:       testConsentID,
		AuthType:        "AUTHORISATION",
		Status:          "received",
	}, nil)
	engineMock.On("StoreConsentAttributes", mock.Anything, testConsentID, mock.Anything).Return(nil)

	path := "/v1/consents/" + testConsentID + "/authorisations"
	response, err := svc.StartAuthorisation(context.Background(), models.ConsentTypeAccounts, testConsentID,
		authorisationInitiationContext(path), false)
	require.Nil(t, err)
	assert.Equal(t, models.ScaReceived, response.ScaStatus)
	assert.Equal(t, testAuthID, response.AuthorisationID)
	require.NotNil(t, response.Links)
	require.NotNil(t, response.Links.ScaStatus)
	assert.Equal(t, path+"/"+testAuthID, response.Links.ScaStatus.Href)

	engineMock.AssertExpectations(t)
}

func TestStartAuthorisation_CancellationOnConsentRejected(t *testing.T) {
	svc := newAuthorizationService(new(mocks.MockClient))

	_, err := svc.StartAuthorisation(context.Background(), models.ConsentTypeAccounts, testConsentID,
		authorisationInitiationContext("/v1/consents/"+testConsentID+"/cancellation-authorisations"), true)
	require.NotNil(t, err)
	assert.Equal(t, errors.CodeCancellationInvalid, err.Code)
}

func TestStartAuthorisation_PaymentGates(t *testing.T) {
	t.Run("settled payment cannot start authorisation", func(t *testing.T) {
		engineMock := new(mocks.MockClient)
		svc := newAuthorizationService(engineMock)

		engineMock.On("GetDetailedConsent", mock.Anything, testPaymentID).
			Return(storedPayment(models.ConsentTypePayments, "ACSC"), nil)

		_, err := svc.StartAuthorisation(context.Background(), models.ConsentTypePayments, testPaymentID,
			authorisationInitiationContext("/v1/payments/"+sepaProduct+"/"+testPaymentID+"/authorisations"), false)
		require.NotNil(t, err)
		assert.Equal(t, errors.CodeStatusInvalid, err.Code)
	})

	t.Run("cancellation authorisation on received payment", func(t *testing.T) {
		engineMock := new(mocks.MockClient)
		svc := newAuthorizationService(engineMock)

		engineMock.On("GetDetailedConsent", mock.Anything, testPaymentID).
			Return(storedPayment(models.ConsentTypePayments, "RCVD"), nil)
		engineMock.On("GetConsentAttributes", mock.Anything, testPaymentID).Return(map[string]string{}, nil)
		engineMock.On("CreateConsentAuthorization", mock.Anything, mock.MatchedBy(func(authorization *models.AuthorizationResource) bool {
			return authorization.AuthType == "CANCELLATION"
		})).Return(&models.AuthorizationResource{
			AuthorizationID: testAuthID,
			ConsentID:       testPaymentID,
			AuthType:        "CANCELLATION",
			Status:          "received",
		}, nil)
		engineMock.On("StoreConsentAttributes", mock.Anything, testPaymentID, mock.Anything).Return(nil)

		path := "/v1/payments/" + sepaProduct + "/" + testPaymentID + "/cancellation-authorisations"
		response, err := svc.StartAuthorisation(context.Background(), models.ConsentTypePayments, testPaymentID,
			authorisationInitiationContext(path), true)
		require.Nil(t, err)
		assert.Equal(t, testAuthID, response.AuthorisationID)
	})
}

func TestListAuthorisations_FiltersByType(t *testing.T) {
	engineMock := new(mocks.MockClient)
	svc := newAuthorizationService(engineMock)

	engineMock.On("GetDetailedConsent", mock.Anything, testPaymentID).
		Return(storedPayment(models.ConsentTypePayments, "RCVD"), nil)
	engineMock.On("SearchAuthorizations", mock.Anything, testPaymentID).
		Return([]models.AuthorizationResource{
			{AuthorizationID: "auth-1", AuthType: "AUTHORISATION"},
			{AuthorizationID: "auth-2", AuthType: "CANCELLATION"},
			{AuthorizationID: "auth-3", AuthType: "AUTHORISATION"},
		}, nil)

	response, err := svc.ListAuthorisations(context.Background(), models.ConsentTypePayments, testPaymentID, false)
	require.Nil(t, err)
	assert.Equal(t, []string{"auth-1", "auth-3"}, response.AuthorisationIDs)

	cancellations, err := svc.ListAuthorisations(context.Background(), models.ConsentTypePayments, testPaymentID, true)
	require.Nil(t, err)
	assert.Equal(t, []string{"auth-2"}, cancellations.AuthorisationIDs)
}

func TestGetScaStatus(t *testing.T) {
	t.Run("returns current sca status", func(t *testing.T) {
		engineMock := new(mocks.MockClient)
		svc := newAuthorizationService(engineMock)

		engineMock.On("GetDetailedConsent", mock.Anything, testConsentID).Return(activeAccountConsent(), nil)
		engineMock.On("GetAuthorization", mock.Anything, testAuthID).
			Return(&models.AuthorizationResource{
				AuthorizationID: testAuthID,
				ConsentID:       testConsentID,
				UserID:          "psu@wso2.com",
				Status:          "finalised",
			}, nil)

		result, err := svc.GetScaStatus(context.Background(), models.ConsentTypeAccounts, testConsentID, testAuthID, "psu@wso2.com")
		require.Nil(t, err)
		assert.False(t, result.IsError)
		assert.Equal(t, models.ScaFinalised, result.Response.ScaStatus)
	})

	t.Run("foreign user flags the result", func(t *testing.T) {
		engineMock := new(mocks.MockClient)
		svc := newAuthorizationService(engineMock)

		engineMock.On("GetDetailedConsent", mock.Anything, testConsentID).Return(activeAccountConsent(), nil)
		engineMock.On("GetAuthorization", mock.Anything, testAuthID).
			Return(&models.AuthorizationResource{
				AuthorizationID: testAuthID,
				ConsentID:       testConsentID,
				UserID:          "psu@wso2.com",
				Status:          "received",
			}, nil)

		result, err := svc.GetScaStatus(context.Background(), models.ConsentTypeAccounts, testConsentID, testAuthID, "other@wso2.com")
		require.Nil(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("authorisation of another resource is unknown", func(t *testing.T) {
		engineMock := new(mocks.MockClient)
		svc := newAuthorizationService(engineMock)

		engineMock.On("GetDetailedConsent", mock.Anything, testConsentID).Return(activeAccountConsent(), nil)
		engineMock.On("GetAuthorization", mock.Anything, testAuthID).
			Return(&models.AuthorizationResource{
				AuthorizationID: testAuthID,
				ConsentID:       "c9f8d6a1-0000-0000-0000-000000000000",
				Status:          "received",
			}, nil)

		_, err := svc.GetScaStatus(context.Background(), models.ConsentTypeAccounts, testConsentID, testAuthID, "")
		require.NotNil(t, err)
		assert.Equal(t, errors.CodeResourceUnknown, err.Code)
	})
}

func TestStartAuthorisation_UnknownResource(t *testing.T) {
	engineMock := new(mocks.MockClient)
	svc := newAuthorizationService(engineMock)

	engineMock.On("GetDetailedConsent", mock.Anything, testConsentID).Return(nil, engine.ErrNotFound)

	_, err := svc.StartAuthorisation(context.Background(), models.ConsentTypeAccounts, testConsentID,
		authorisationInitiationContext("/v1/consents/"+testConsentID+"/authorisations"), false)
	require.NotNil(t, err)
	assert.Equal(t, errors.CodeResourceUnknown, err.Code)
}
