package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wso2/openbanking-berlin/internal/config"
	"github.com/wso2/openbanking-berlin/internal/engine/mocks"
	"github.com/wso2/openbanking-berlin/internal/idempotency"
	"github.com/wso2/openbanking-berlin/internal/models"
	"github.com/wso2/openbanking-berlin/internal/sca"
	"github.com/wso2/openbanking-berlin/internal/service"
	"github.com/wso2/openbanking-berlin/pkg/utils"
)

const (
	routerConsentID  = "0ba972a9-08cd-4cd9-b29f-6b2b17c4e730"
	routerAuthID     = "5a15ed75-3a83-4e92-a3ef-8a3a06f35c8a"
	routerXRequestID = "1b91e649-3d06-4e16-ada7-bf5af2136b44"
	consentBody      = `{"access":{"allPsd2":"allAccounts"},"recurringIndicator":true,` +
		`"validUntil":"2030-06-15","frequencyPerDay":4,"combinedServiceIndicator":false}`
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Hostname: "localhost", Port: 8080},
		Berlin: config.BerlinConfig{
			SupportedAccountReferenceTypes: []string{"iban", "bban"},
			SupportedScaApproaches: []config.ScaApproach{
				{Name: "REDIRECT", Default: true},
			},
			SupportedScaMethods: []config.ScaMethod{
				{ID: "sms-otp", Type: "SMS_OTP", Name: "SMS OTP on Mobile", MappedApproach: "REDIRECT"},
			},
			FrequencyPerDayMin:       4,
			IdempotencyAllowedTime:   24 * time.Hour,
			SupportedPaymentProducts: []string{"sepa-credit-transfers"},
			APIVersions: map[string]string{
				"accounts":            "v1",
				"payments":            "v1",
				"funds-confirmations": "v2",
			},
			OAuthMetadataEndpoint: "https://bank.example/.well-known/openid-configuration",
		},
		Signature: config.SignatureConfig{Enabled: false},
	}
}

// newTestRouter wires the full route tree over a mocked consent engine.
// Signature validation stays disabled so requests need no TPP certificate.
func newTestRouter(engineMock *mocks.MockClient) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	selector := sca.NewSelector(&cfg.Berlin)
	idempotencyValidator := idempotency.NewValidator(engineMock, cfg.Berlin.IdempotencyAllowedTime, logger)

	services := &Services{
		Consent:       service.NewConsentService(engineMock, &cfg.Berlin, selector, idempotencyValidator, logger),
		Payment:       service.NewPaymentService(engineMock, &cfg.Berlin, selector, idempotencyValidator, logger),
		Funds:         service.NewFundsService(engineMock, &cfg.Berlin, selector, idempotencyValidator, logger),
		Authorization: service.NewAuthorizationService(engineMock, &cfg.Berlin, selector, idempotencyValidator, logger),
	}
	return SetupRouter(cfg, services, nil, logger)
}

func performRequest(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestHealthEndpoint(t *testing.T) {
	recorder := performRequest(newTestRouter(new(mocks.MockClient)), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestCreateConsentEndpoint(t *testing.T) {
	engineMock := new(mocks.MockClient)
	router := newTestRouter(engineMock)

	engineMock.On("SearchConsentsByAttribute", mock.Anything, idempotency.AttributeXRequestID, routerXRequestID).
		Return([]models.DetailedConsentResource{}, nil)
	engineMock.On("CreateAuthorizableConsent", mock.Anything, mock.Anything).
		Return(&models.DetailedConsentResource{
			ConsentResource: models.ConsentResource{ConsentID: routerConsentID},
			Authorizations: []models.AuthorizationResource{
				{AuthorizationID: routerAuthID, AuthType: "AUTHORISATION", Status: "received"},
			},
		}, nil)
	engineMock.On("StoreConsentAttributes", mock.Anything, routerConsentID, mock.Anything).Return(nil)

	recorder := performRequest(router, http.MethodPost, "/v1/consents", consentBody, map[string]string{
		"X-Request-ID": routerXRequestID,
		"PSU-ID":       "psu@wso2.com",
	})

	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, "/v1/consents/"+routerConsentID, recorder.Header().Get("Location"))

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "received", response["consentStatus"])
	assert.Equal(t, routerConsentID, response["consentId"])
	assert.Contains(t, response, "_links")
}

func TestCreateConsentEndpoint_MissingXRequestID(t *testing.T) {
	recorder := performRequest(newTestRouter(new(mocks.MockClient)),
		http.MethodPost, "/v1/consents", consentBody, nil)

	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var response map[string][]map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.Len(t, response["tppMessages"], 1)
	assert.Equal(t, "FORMAT_ERROR", response["tppMessages"][0]["code"])
}

func TestGetConsentStatusEndpoint(t *testing.T) {
	engineMock := new(mocks.MockClient)
	router := newTestRouter(engineMock)

	engineMock.On("GetConsent", mock.Anything, routerConsentID).
		Return(&models.ConsentResource{
			ConsentID:      routerConsentID,
			ConsentType:    "accounts",
			CurrentStatus:  "valid",
			ValidityPeriod: utils.TimeToMillis(time.Now().AddDate(0, 0, 30)),
			UpdatedTime:    utils.TimeToMillis(time.Now()),
		}, nil)

	recorder := performRequest(router, http.MethodGet, "/v1/consents/"+routerConsentID+"/status", "", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"consentStatus":"valid"`)
}

func TestGetConsentEndpoint_MalformedID(t *testing.T) {
	recorder := performRequest(newTestRouter(new(mocks.MockClient)),
		http.MethodGet, "/v1/consents/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCreatePaymentEndpoint(t *testing.T) {
	engineMock := new(mocks.MockClient)
	router := newTestRouter(engineMock)

	paymentBody := `{"instructedAmount":{"currency":"EUR","amount":"123.50"},` +
		`"debtorAccount":{"iban":"DE40100100103307118608"},"creditorName":"Merchant123",` +
		`"creditorAccount":{"iban":"DE02100100109307118603"},` +
		`"remittanceInformationUnstructured":"Ref Number Merchant"}`

	engineMock.On("SearchConsentsByAttribute", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.DetailedConsentResource{}, nil)
	engineMock.On("CreateAuthorizableConsent", mock.Anything, mock.Anything).
		Return(&models.DetailedConsentResource{
			ConsentResource: models.ConsentResource{ConsentID: routerConsentID},
			Authorizations: []models.AuthorizationResource{
				{AuthorizationID: routerAuthID, AuthType: "AUTHORISATION", Status: "received"},
			},
		}, nil)
	engineMock.On("StoreConsentAttributes", mock.Anything, routerConsentID, mock.Anything).Return(nil)

	recorder := performRequest(router, http.MethodPost, "/v1/payments/sepa-credit-transfers", paymentBody,
		map[string]string{"X-Request-ID": routerXRequestID})

	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"transactionStatus":"RCVD"`)
}

func TestCreatePaymentEndpoint_UnknownProduct(t *testing.T) {
	recorder := performRequest(newTestRouter(new(mocks.MockClient)),
		http.MethodPost, "/v1/payments/target-2-payments", "{}",
		map[string]string{"X-Request-ID": routerXRequestID})
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestFundsConsentStatusEndpoint(t *testing.T) {
	engineMock := new(mocks.MockClient)
	router := newTestRouter(engineMock)

	engineMock.On("GetConsent", mock.Anything, routerConsentID).
		Return(&models.ConsentResource{
			ConsentID:     routerConsentID,
			ConsentType:   "funds-confirmations",
			CurrentStatus: "valid",
		}, nil)

	recorder := performRequest(router, http.MethodGet,
		"/v2/consents/confirmation-of-funds/"+routerConsentID+"/status", "", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"consentStatus":"valid"`)
}

func TestListAuthorisationsEndpoint(t *testing.T) {
	engineMock := new(mocks.MockClient)
	router := newTestRouter(engineMock)

	engineMock.On("GetDetailedConsent", mock.Anything, routerConsentID).
		Return(&models.DetailedConsentResource{
			ConsentResource: models.ConsentResource{
				ConsentID:      routerConsentID,
				ConsentType:    "accounts",
				CurrentStatus:  "received",
				Receipt:        []byte(consentBody),
				ValidityPeriod: utils.TimeToMillis(time.Now().AddDate(0, 0, 30)),
				UpdatedTime:    utils.TimeToMillis(time.Now()),
			},
		}, nil)
	engineMock.On("SearchAuthorizations", mock.Anything, routerConsentID).
		Return([]models.AuthorizationResource{
			{AuthorizationID: routerAuthID, AuthType: "AUTHORISATION", Status: "received"},
		}, nil)

	recorder := performRequest(router, http.MethodGet,
		"/v1/consents/"+routerConsentID+"/authorisations", "", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), routerAuthID)
}

func TestDeleteConsentEndpoint(t *testing.T) {
	engineMock := new(mocks.MockClient)
	router := newTestRouter(engineMock)

	engineMock.On("GetDetailedConsent", mock.Anything, routerConsentID).
		Return(&models.DetailedConsentResource{
			ConsentResource: models.ConsentResource{
				ConsentID:      routerConsentID,
				ConsentType:    "accounts",
				CurrentStatus:  "valid",
				Receipt:        []byte(consentBody),
				ValidityPeriod: utils.TimeToMillis(time.Now().AddDate(0, 0, 30)),
				UpdatedTime:    utils.TimeToMillis(time.Now()),
			},
		}, nil)
	engineMock.On("UpdateConsentStatus", mock.Anything, routerConsentID, "terminatedByTpp").Return(nil)

	recorder := performRequest(router, http.MethodDelete, "/v1/consents/"+routerConsentID, "", nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	engineMock.AssertExpectations(t)
}
