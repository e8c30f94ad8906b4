package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/wso2/openbanking-berlin/internal/engine"
	"github.com/wso2/openbanking-berlin/internal/models"
)

// MockClient is a mock implementation of engine.Client
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateAuthorizableConsent(ctx context.Context, request *engine.CreateConsentRequest) (*models.DetailedConsentResource, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DetailedConsentResource), args.Error(1)
}

func (m *MockClient) GetConsent(ctx context.Context, consentID string) (*models.ConsentResource, error) {
	args := m.Called(ctx, consentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConsentResource), args.Error(1)
}

func (m *MockClient) GetDetailedConsent(ctx context.Context, consentID string) (*models.DetailedConsentResource, error) {
	args := m.Called(ctx, consentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DetailedConsentResource), args.Error(1)
}

func (m *MockClient) UpdateConsentStatus(ctx context.Context, consentID, status string) error {
	args := m.Called(ctx, consentID, status)
	return args.Error(0)
}

func (m *MockClient) SearchAuthorizations(ctx context.Context, consentID string) ([]models.AuthorizationResource, error) {
	args := m.Called(ctx, consentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuthorizationResource), args.Error(1)
}

func (m *MockClient) GetAuthorization(ctx context.Context, authorizationID string) (*models.AuthorizationResource, error) {
	args := m.Called(ctx, authorizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthorizationResource), args.Error(1)
}

func (m *MockClient) CreateConsentAuthorization(ctx context.Context, authorization *models.AuthorizationResource) (*models.AuthorizationResource, error) {
	args := m.Called(ctx, authorization)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuthorizationResource), args.Error(1)
}

func (m *MockClient) UpdateAuthorizationStatus(ctx context.Context, authorizationID, status string) error {
	args := m.Called(ctx, authorizationID, status)
	return args.Error(0)
}

func (m *MockClient) StoreConsentAttributes(ctx context.Context, consentID string, attributes map[string]string) error {
	args := m.Called(ctx, consentID, attributes)
	return args.Error(0)
}

func (m *MockClient) GetConsentAttributes(ctx context.Context, consentID string) (map[string]string, error) {
	args := m.Called(ctx, consentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockClient) SearchConsentsByAttribute(ctx context.Context, key, value string) ([]models.DetailedConsentResource, error) {
	args := m.Called(ctx, key, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DetailedConsentResource), args.Error(1)
}
