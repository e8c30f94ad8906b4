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

const (
	testPaymentID   = "936e9471-7e5f-4c8f-a1a9-2f5b63d8a76b"
	sepaProduct     = "sepa-credit-transfers"
	validPaymentDoc = `{"instructedAmount":{"currency":"EUR","amount":"123.50"},` +
		`"debtorAccount":{"iban":"DE40100100103307118608"},"creditorName":"Merchant123",` +
		`"creditorAccount":{"iban":"DE02100100109307118603"},` +
		`"remittanceInformationUnstructured":"Ref Number Merchant"}`
)

func newPaymentService(engineMock *mocks.MockClient) *PaymentService {
	cfg := serviceBerlinConfig()
	logger := testLogger()
	return NewPaymentService(
		engineMock,
		cfg,
		sca.NewSelector(cfg),
		idempotency.NewValidator(engineMock, cfg.IdempotencyAllowedTime, logger),
		logger,
	)
}

func paymentInitiationContext(body string) *InitiationContext {
	return &InitiationContext{
		Headers: utils.NewHeaderMapFromPairs(map[string]string{
			"X-Request-ID": testXRequestID,
			"PSU-ID":       "psu@wso2.com",
		}),
		Body:  []byte(body),
		Path:  "/v1/payments/" + sepaProduct,
		PSUID: "psu@wso2.com",
	}
}

func storedPayment(service models.ConsentType, status string) *models.DetailedConsentResource {
	return &models.DetailedConsentResource{
		ConsentResource: models.ConsentResource{
			ConsentID:     testPaymentID,
			ConsentType:   string(service),
			CurrentStatus: status,
			Receipt:       []byte(validPaymentDoc),
		},
		Attributes: map[string]string{"PaymentProduct": sepaProduct},
	}
}

func TestCreatePayment_Success(t *testing.T) {
	engineMock := new(mocks.MockClient)
	svc := newPaymentService(engineMock)

	engineMock.On("SearchConsentsByAttribute", mock.Anything, idempotency.AttributeXRequestID, testXRequestID).
		Return([]models.DetailedConsentResource{}, nil)
	engineMock.On("CreateAuthorizableConsent", mock.Anything, mock.MatchedBy(func(request *engine.CreateConsentRequest) bool {
		return request.ConsentType == "payments" &&
			request.CurrentStatus == "RCVD" &&
			request.Attributes["PaymentProduct"] == sepaProduct &&
			request.Attributes["ApiVersion"] == "v1" &&
			len(request.Authorizations) == 1
	})).Return(&models.DetailedConsentResource{
		ConsentResource: models.ConsentResource{ConsentID: testPaymentID},
		Authorizations: []models.AuthorizationResource{
			{AuthorizationID: testAuthID, AuthType: "AUTHORISATION", Status: "received"},
		},
	}, nil)
	engineMock.On("StoreConsentAttributes", mock.Anything, testPaymentID, mock.Anything).Return(nil)

	response, err := svc.CreatePayment(context.Background(), models.ConsentTypePayments, sepaProduct,
		paymentInitiationContext(validPaymentDoc))
	require.Nil(t, err)
	assert.Equal(t, models.TransactionReceived, response.TransactionStatus)
	assert.Equal(t, testPaymentID, response.PaymentID)
	require.NotNil(t, response.Links)
	assert.Equal(t, "/v1/payments/"+sepaProduct+"/"+testPaymentID, response.Links.Self.Href)

	engineMock.AssertExpectations(t)
}

func TestCreatePayment_UnsupportedProduct(t *testing.T) {
	svc := newPaymentService(new(mocks.MockClient))

	_, err := svc.CreatePayment(context.Background(), models.ConsentTypePayments, "target-2-payments",
		paymentInitiationContext(validPaymentDoc))
	require.NotNil(t, err)
	assert.Equal(t, errors.CodeProductUnknown, err.Code)
}

func TestCreatePayment_InvalidPayload(t *testing.T) {
	engineMock := new(mocks.MockClient)
	svc := newPaymentService(engineMock)

	engineMock.On("SearchConsentsByAttribute", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.DetailedConsentResource{}, nil)

	_, err := svc.CreatePayment(context.Background(), models.ConsentTypePayments, sepaProduct,
		paymentInitiationContext(`{"creditorName":"Merchant123"}`))
	require.NotNil(t, err)
	assert.Equal(t, errors.CodeFormatError, err.Code)

	engineMock.AssertNotCalled(t, "CreateAuthorizableConsent", mock.Anything, mock.Anything)
}

func TestGetPayment_AddsTransactionStatus(t *testing.T) {
	engineMock := new(mocks.MockClient)
	svc := newPaymentService(engineMock)

	engineMock.On("GetDetailedConsent", mock.Anything, testPaymentID).
		Return(storedPayment(models.ConsentTypePayments, "RCVD"), nil)

	body, err := svc.GetPayment(context.Background(), models.ConsentTypePayments, sepaProduct, testPaymentID)
	require.Nil(t, err)
	assert.Equal(t, "RCVD", body["transactionStatus"])
	assert.Equal(t, "Merchant123", body["creditorName"])
}

func TestGetPayment_Gates(t *testing.T) {
	t.Run("wrong payment service", func(t *testing.T) {
		engineMock := new(mocks.MockClient)
		svc := newPaymentService(engineMock)

		engineMock.On("GetDetailedConsent", mock.Anything, testPaymentID).
			Return(storedPayment(models.ConsentTypeBulkPayments, "RCVD"), nil)

		_, err := svc.GetPayment(context.Background(), models.ConsentTypePayments, sepaProduct, testPaymentID)
		require.NotNil(t, err)
		assert.Equal(t, errors.CodeServiceInvalid, err.Code)
	})

	t.Run("wrong payment product", func(t *testing.T) {
		engineMock := new(mocks.MockClient)
		svc := newPaymentService(engineMock)

		payment := storedPayment(models.ConsentTypePayments, "RCVD")
		payment.Attributes["PaymentProduct"] = "instant-sepa-credit-transfers"
		engineMock.On("GetDetailedConsent", mock.Anything, testPaymentID).Return(payment, nil)

		_, err := svc.GetPayment(context.Background(), models.ConsentTypePayments, sepaProduct, testPaymentID)
		require.NotNil(t, err)
		assert.Equal(t, errors.CodeProductUnknown, err.Code)
	})

	t.Run("unknown payment", func(t *testing.T) {
		engineMock := new(mocks.MockClient)
		svc := newPaymentService(engineMock)

		engineMock.On("GetDetailedConsent", mock.Anything, testPaymentID).Return(nil, engine.ErrNotFound)

		_, err := svc.GetPayment(context.Background(), models.ConsentTypePayments, sepaProduct, testPaymentID)
		require.NotNil(t, err)
		assert.Equal(t, errors.CodeResourceUnknown, err.Code)
	})
}

func TestGetPaymentStatus(t *testing.T) {
	engineMock := new(mocks.MockClient)
	svc := newPaymentService(engineMock)

	engineMock.On("GetDetailedConsent", mock.Anything, testPaymentID).
		Return(storedPayment(models.ConsentTypePayments, "ACSC"), nil)

	response, err := svc.GetPaymentStatus(context.Background(), models.ConsentTypePayments, sepaProduct, testPaymentID)
	require.Nil(t, err)
	assert.Equal(t, models.TransactionSettlementCompleted, response.TransactionStatus)
}

func TestCancelPayment(t *testing.T) {
	t.Run("received payment is cancelled", func(t *testing.T) {
		engineMock := new(mocks.MockClient)
		svc := newPaymentService(engineMock)

		engineMock.On("GetDetailedConsent", mock.Anything, testPaymentID).
			Return(storedPayment(models.ConsentTypePayments, "RCVD"), nil)
		engineMock.On("UpdateConsentStatus", mock.Anything, testPaymentID, "CANC").Return(nil)

		assert.Nil(t, svc.CancelPayment(context.Background(), models.ConsentTypePayments, sepaProduct, testPaymentID))
		engineMock.AssertExpectations(t)
	})

	t.Run("open cancellation window fails open authorisations", func(t *testing.T) {
		engineMock := new(mocks.MockClient)
		svc := newPaymentService(engineMock)

		payment := storedPayment(models.ConsentTypePayments, "RCVD")
		payment.Authorizations = []models.AuthorizationResource{
			{AuthorizationID: testAuthID, AuthType: "AUTHORISATION", Status: "psuAuthenticated"},
		}
		engineMock.On("GetDetailedConsent", mock.Anything, testPaymentID).Return(payment, nil)
		engineMock.On("UpdateConsentStatus", mock.Anything, testPaymentID, "CANC").Return(nil)
		engineMock.On("UpdateAuthorizationStatus", mock.Anything, testAuthID, "failed").Return(nil)

		assert.Nil(t, svc.CancelPayment(context.Background(), models.ConsentTypePayments, sepaProduct, testPaymentID))
		engineMock.AssertExpectations(t)
	})

	t.Run("settled payment cannot be cancelled", func(t *testing.T) {
		engineMock := new(mocks.MockClient)
		svc := newPaymentService(engineMock)

		engineMock.On("GetDetailedConsent", mock.Anything, testPaymentID).
			Return(storedPayment(models.ConsentTypePayments, "ACSC"), nil)

		err := svc.CancelPayment(context.Background(), models.ConsentTypePayments, sepaProduct, testPaymentID)
		require.NotNil(t, err)
		assert.Equal(t, errors.CodeCancellationInvalid, err.Code)
	})

	t.Run("terminal payment cannot be cancelled again", func(t *testing.T) {
		engineMock := new(mocks.MockClient)
		svc := newPaymentService(engineMock)

		engineMock.On("GetDetailedConsent", mock.Anything, testPaymentID).
			Return(storedPayment(models.ConsentTypePayments, "CANC"), nil)

		err := svc.CancelPayment(context.Background(), models.ConsentTypePayments, sepaProduct, testPaymentID)
		require.NotNil(t, err)
		assert.Equal(t, errors.CodeStatusInvalid, err.Code)

		engineMock.AssertNotCalled(t, "UpdateConsentStatus", mock.Anything, mock.Anything, mock.Anything)
	})
}
