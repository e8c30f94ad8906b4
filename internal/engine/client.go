// Package engine is the narrow CRUD client for the separately hosted consent
// persistence engine. The engine is an opaque storage collaborator; no
// business rules live behind this interface.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wso2/openbanking-berlin/internal/config"
	"github.com/wso2/openbanking-berlin/internal/models"
)

// CreateConsentRequest is the payload for creating an authorizable consent.
// Authorizations listed here are created atomically with the consent (the
// implicit-flow auto-created authorisation rides along).
type CreateConsentRequest struct {
	ClientID           string                         `json:"clientId"`
	ConsentType        string                         `json:"consentType"`
	CurrentStatus      string                         `json:"currentStatus"`
	Receipt            json.RawMessage                `json:"receipt,omitempty"`
	ValidityPeriod     int64                          `json:"validityPeriod,omitempty"`
	RecurringIndicator bool                           `json:"recurringIndicator"`
	Frequency          int                            `json:"consentFrequency,omitempty"`
	Attributes         map[string]string              `json:"consentAttributes,omitempty"`
	Authorizations     []models.AuthorizationResource `json:"authorizationResources,omitempty"`
	MappedResources    []string                       `json:"consentMappedResources,omitempty"`
}

// Client is the consent engine CRUD surface used by this layer.
type Client interface {
	CreateAuthorizableConsent(ctx context.Context, request *CreateConsentRequest) (*models.DetailedConsentResource, error)
	GetConsent(ctx context.Context, consentID string) (*models.ConsentResource, error)
	GetDetailedConsent(ctx context.Context, consentID string) (*models.DetailedConsentResource, error)
	UpdateConsentStatus(ctx context.Context, consentID, status string) error
	SearchAuthorizations(ctx context.Context, consentID string) ([]models.AuthorizationResource, error)
	GetAuthorization(ctx context.Context, authorizationID string) (*models.AuthorizationResource, error)
	CreateConsentAuthorization(ctx context.Context, authorization *models.AuthorizationResource) (*models.AuthorizationResource, error)
	UpdateAuthorizationStatus(ctx context.Context, authorizationID, status string) error
	StoreConsentAttributes(ctx context.Context, consentID string, attributes map[string]string) error
	GetConsentAttributes(ctx context.Context, consentID string) (map[string]string, error)
	SearchConsentsByAttribute(ctx context.Context, key, value string) ([]models.DetailedConsentResource, error)
}

// HTTPClient talks to the consent engine over its REST API.
type HTTPClient struct {
	httpClient *http.Client
	config     *config.ConsentEngineConfig
	logger     *logrus.Logger
}

// NewHTTPClient creates a consent engine client instance.
func NewHTTPClient(cfg *config.ConsentEngineConfig, logger *logrus.Logger) *HTTPClient {
	timeout := 30 * time.Second
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}

	return &HTTPClient{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		config: cfg,
		logger: logger,
	}
}

// call executes a JSON request against the engine and decodes the response
// into out when out is non-nil.
func (c *HTTPClient) call(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	url := c.config.BaseURL + path

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.OrgID != "" {
		req.Header.Set("org-id", c.config.OrgID)
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		c.logger.WithError(err).WithField("duration", duration).Error("Consent engine call failed")
		return fmt.Errorf("consent engine call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"method":     method,
		"url":        url,
		"statusCode": resp.StatusCode,
		"duration":   duration,
	}).Debug("Consent engine response received")

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("consent engine returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

// ErrNotFound is returned when the engine has no resource for the given ID.
var ErrNotFound = fmt.Errorf("resource not found in consent engine")

// CreateAuthorizableConsent creates a consent together with its initial
// authorisation resources and attributes.
func (c *HTTPClient) CreateAuthorizableConsent(ctx context.Context, request *CreateConsentRequest) (*models.DetailedConsentResource, error) {
	var created models.DetailedConsentResource
	if err := c.call(ctx, http.MethodPost, "/consents", request, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetConsent retrieves a consent without attributes or authorisations.
func (c *HTTPClient) GetConsent(ctx context.Context, consentID string) (*models.ConsentResource, error) {
	var consent models.ConsentResource
	if err := c.call(ctx, http.MethodGet, "/consents/"+consentID, nil, &consent); err != nil {
		return nil, err
	}
	return &consent, nil
}

// GetDetailedConsent retrieves a consent with attributes, authorisations and
// account mappings.
func (c *HTTPClient) GetDetailedConsent(ctx context.Context, consentID string) (*models.DetailedConsentResource, error) {
	var consent models.DetailedConsentResource
	if err := c.call(ctx, http.MethodGet, "/consents/"+consentID+"?detailed=true", nil, &consent); err != nil {
		return nil, err
	}
	return &consent, nil
}

// UpdateConsentStatus moves a consent to a new lifecycle status.
func (c *HTTPClient) UpdateConsentStatus(ctx context.Context, consentID, status string) error {
	body := map[string]string{"status": status}
	return c.call(ctx, http.MethodPut, "/consents/"+consentID+"/status", body, nil)
}

// SearchAuthorizations lists the authorisation resources of a consent.
func (c *HTTPClient) SearchAuthorizations(ctx context.Context, consentID string) ([]models.AuthorizationResource, error) {
	var authorizations []models.AuthorizationResource
	if err := c.call(ctx, http.MethodGet, "/consents/"+consentID+"/authorizations", nil, &authorizations); err != nil {
		return nil, err
	}
	return authorizations, nil
}

// GetAuthorization retrieves a single authorisation resource by ID.
func (c *HTTPClient) GetAuthorization(ctx context.Context, authorizationID string) (*models.AuthorizationResource, error) {
	var authorization models.AuthorizationResource
	if err := c.call(ctx, http.MethodGet, "/authorizations/"+authorizationID, nil, &authorization); err != nil {
		return nil, err
	}
	return &authorization, nil
}

// CreateConsentAuthorization creates an authorisation sub-resource for an
// existing consent.
func (c *HTTPClient) CreateConsentAuthorization(ctx context.Context, authorization *models.AuthorizationResource) (*models.AuthorizationResource, error) {
	var created models.AuthorizationResource
	path := "/consents/" + authorization.ConsentID + "/authorizations"
	if err := c.call(ctx, http.MethodPost, path, authorization, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateAuthorizationStatus moves an authorisation to a new SCA status.
func (c *HTTPClient) UpdateAuthorizationStatus(ctx context.Context, authorizationID, status string) error {
	body := map[string]string{"status": status}
	return c.call(ctx, http.MethodPut, "/authorizations/"+authorizationID+"/status", body, nil)
}

// StoreConsentAttributes persists attributes against a consent.
func (c *HTTPClient) StoreConsentAttributes(ctx context.Context, consentID string, attributes map[string]string) error {
	return c.call(ctx, http.MethodPost, "/consents/"+consentID+"/attributes", attributes, nil)
}

// GetConsentAttributes retrieves the attribute map of a consent.
func (c *HTTPClient) GetConsentAttributes(ctx context.Context, consentID string) (map[string]string, error) {
	attributes := make(map[string]string)
	if err := c.call(ctx, http.MethodGet, "/consents/"+consentID+"/attributes", nil, &attributes); err != nil {
		return nil, err
	}
	return attributes, nil
}

// SearchConsentsByAttribute finds consents carrying the given attribute
// key/value pair. Used for idempotency lookups on initiation paths where no
// consent ID exists yet.
func (c *HTTPClient) SearchConsentsByAttribute(ctx context.Context, key, value string) ([]models.DetailedConsentResource, error) {
	var consents []models.DetailedConsentResource
	path := "/consents/search?attributeKey=" + url.QueryEscape(key) + "&attributeValue=" + url.QueryEscape(value)
	if err := c.call(ctx, http.MethodGet, path, nil, &consents); err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return consents, nil
}
