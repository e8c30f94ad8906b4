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

const validFundsDoc = `{"account":{"iban":"DE73459340345034563141"},` +
	`"cardNumber":"12345678901234","cardInformation":"MyMerchant Loyalty Card"}`

func newFundsService(engineMock *mocks.MockClient) *FundsService {
	cfg := serviceBerlinConfig()
	logger := testLogger()
	return NewFundsService(
		engineMock,
		cfg,
		sca.NewSelector(cfg),
		idempotency.NewValidator(engineMock, cfg.IdempotencyAllowedTime, logger),
		logger,
	)
}

func fundsInitiationContext(body string) *InitiationContext {
	return &InitiationContext{
		Headers: utils.NewHeaderMapFromPairs(map[string]string{
			"X-Request-ID": testXRequestID,
			"PSU-ID":       "psu@wso2.com",
		}),
		Body:  []byte(body),
		Path:  "/v2/consents/confirmation-of-funds",
		PSUID: "psu@wso2.com",
	}
}

func storedFundsConsent(status string) *models.DetailedConsentResource {
	return &models.DetailedConsentResource{
		ConsentResource: models.ConsentResource{
			ConsentID:     testConsentID,
			ConsentType:   "funds-confirmations",
			CurrentStatus: status,
			Receipt:       []byte(validFundsDoc),
		},
	}
}

func TestCreateFundsConsent_Success(t *testing.T) {
	engineMock := new(mocks.MockClient)
	svc := newFundsService(engineMock)

	engineMock.On("SearchConsentsByAttribute", mock.Anything, idempotency.AttributeXRequestID, testXRequestID).
		Return([]models.DetailedConsentResource{}, nil)
	engineMock.On("CreateAuthorizableConsent", mock.Anything, mock.MatchedBy(func(request *engine.CreateConsentRequest) bool {
		return request.ConsentType == "funds-confirmations" &&
			request.CurrentStatus == "received" &&
			request.RecurringIndicator &&
			request.Attributes["ApiVersion"] == "v2" &&
			request.ValidityPeriod == 0
	})).Return(&models.DetailedConsentResource{
		ConsentResource: models.ConsentResource{ConsentID: testConsentID},
		Authorizations: []models.AuthorizationResource{
			{AuthorizationID: testAuthID, AuthType: "AUTHORISATION", Status: "received"},
		},
	}, nil)
	engineMock.On("StoreConsentAttributes", mock.Anything, testConsentID, mock.Anything).Return(nil)

	response, err := svc.CreateFundsConsent(context.Background(), fundsInitiationContext(validFundsDoc))
	require.Nil(t, err)
	assert.Equal(t, models.ConsentReceived, response.ConsentStatus)
	assert.Equal(t, testConsentID, response.ConsentID)
	require.NotNil(t, response.Links)
	assert.Equal(t, "/v2/consents/confirmation-of-funds/"+testConsentID, response.Links.Self.Href)

	engineMock.AssertExpectations(t)
}

func TestCreateFundsConsent_MissingAccount(t *testing.T) {
	engineMock := new(mocks.MockClient)
	svc := newFundsService(engineMock)

	engineMock.On("SearchConsentsByAttribute", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.DetailedConsentResource{}, nil)

	_, err := svc.CreateFundsConsent(context.Background(),
		fundsInitiationContext(`{"cardNumber":"12345678901234"}`))
	require.NotNil(t, err)
	assert.Equal(t, errors.CodeFormatError, err.Code)

	engineMock.AssertNotCalled(t, "CreateAuthorizableConsent", mock.Anything, mock.Anything)
}

func TestGetFundsConsent(t *testing.T) {
	engineMock := new(mocks.MockClient)
	svc := newFundsService(engineMock)

	engineMock.On("GetDetailedConsent", mock.Anything, testConsentID).
		Return(storedFundsConsent("valid"), nil)

	response, err := svc.GetFundsConsent(context.Background(), testConsentID)
	require.Nil(t, err)
	assert.Equal(t, models.ConsentValid, response.ConsentStatus)
	require.NotNil(t, response.Account)
	assert.Equal(t, "12345678901234", response.CardNumber)
	assert.Equal(t, "MyMerchant Loyalty Card", response.CardInformation)
}

func TestGetFundsConsent_WrongType(t *testing.T) {
	engineMock := new(mocks.MockClient)
	svc := newFundsService(engineMock)

	consent := storedFundsConsent("valid")
	consent.ConsentType = "accounts"
	engineMock.On("GetDetailedConsent", mock.Anything, testConsentID).Return(consent, nil)

	_, err := svc.GetFundsConsent(context.Background(), testConsentID)
	require.NotNil(t, err)
	assert.Equal(t, errors.CodeConsentInvalid, err.Code)
}

func TestDeleteFundsConsent(t *testing.T) {
	t.Run("active consent is terminated", func(t *testing.T) {
		engineMock := new(mocks.MockClient)
		svc := newFundsService(engineMock)

		engineMock.On("GetDetailedConsent", mock.Anything, testConsentID).
			Return(storedFundsConsent("valid"), nil)
		engineMock.On("UpdateConsentStatus", mock.Anything, testConsentID, "terminatedByTpp").Return(nil)

		assert.Nil(t, svc.DeleteFundsConsent(context.Background(), testConsentID))
		engineMock.AssertExpectations(t)
	})

	t.Run("terminal consent is rejected", func(t *testing.T) {
		engineMock := new(mocks.MockClient)
		svc := newFundsService(engineMock)

		engineMock.On("GetDetailedConsent", mock.Anything, testConsentID).
			Return(storedFundsConsent("revokedByPsu"), nil)

		err := svc.DeleteFundsConsent(context.Background(), testConsentID)
		require.NotNil(t, err)
		assert.Equal(t, errors.CodeStatusInvalid, err.Code)
	})
}

func TestGetFundsConsentStatus(t *testing.T) {
	engineMock := new(mocks.MockClient)
	svc := newFundsService(engineMock)

	consent := storedFundsConsent("valid").ConsentResource
	engineMock.On("GetConsent", mock.Anything, testConsentID).Return(&consent, nil)

	response, err := svc.GetFundsConsentStatus(context.Background(), testConsentID)
	require.Nil(t, err)
	assert.Equal(t, models.ConsentValid, response.ConsentStatus)

	engineMock.AssertNotCalled(t, "GetDetailedConsent", mock.Anything, mock.Anything)
}

func TestGetFundsConsentStatus_Unknown(t *testing.T) {
	engineMock := new(mocks.MockClient)
	svc := newFundsService(engineMock)

	engineMock.On("GetConsent", mock.Anything, testConsentID).Return(nil, engine.ErrNotFound)

	_, err := svc.GetFundsConsentStatus(context.Background(), testConsentID)
	require.NotNil(t, err)
	assert.Equal(t, errors.CodeConsentUnknown, err.Code)
}
