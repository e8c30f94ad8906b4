package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wso2/openbanking-berlin/internal/errors"
	"github.com/wso2/openbanking-berlin/internal/service"
	"github.com/wso2/openbanking-berlin/pkg/utils"
)

// ConsentHandler handles the account information consent endpoints.
type ConsentHandler struct {
	consentService *service.ConsentService
}

// NewConsentHandler creates a consent handler instance.
func NewConsentHandler(consentService *service.ConsentService) *ConsentHandler {
	return &ConsentHandler{consentService: consentService}
}

// CreateConsent handles POST /consents.
func (h *ConsentHandler) CreateConsent(c *gin.Context) {
	initiation, err := readInitiationContext(c)
	if err != nil {
		SendError(c, err)
		return
	}

	response, err := h.consentService.CreateAccountConsent(c.Request.Context(), initiation)
	if err != nil {
		SendError(c, err)
		return
	}
	created(c, response.ConsentID, response.StatusCode, response)
}

// GetConsent handles GET /consents/:consentId.
func (h *ConsentHandler) GetConsent(c *gin.Context) {
	consentID, err := pathConsentID(c)
	if err != nil {
		SendError(c, err)
		return
	}

	response, err := h.consentService.GetConsent(c.Request.Context(), consentID)
	if err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetConsentStatus handles GET /consents/:consentId/status.
func (h *ConsentHandler) GetConsentStatus(c *gin.Context) {
	consentID, err := pathConsentID(c)
	if err != nil {
		SendError(c, err)
		return
	}

	response, err := h.consentService.GetConsentStatus(c.Request.Context(), consentID)
	if err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// DeleteConsent handles DELETE /consents/:consentId.
func (h *ConsentHandler) DeleteConsent(c *gin.Context) {
	consentID, err := pathConsentID(c)
	if err != nil {
		SendError(c, err)
		return
	}

	if err := h.consentService.DeleteConsent(c.Request.Context(), consentID); err != nil {
		SendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// pathConsentID reads and shape-checks the consentId path parameter.
func pathConsentID(c *gin.Context) (string, *errors.Error) {
	consentID := c.Param("consentId")
	if consentID == "" {
		return "", errors.New(errors.CodeResourceUnknown, "Consent ID missing in the request path")
	}
	if !utils.IsValidUUID(consentID) {
		return "", errors.New(errors.CodeResourceUnknown, "Consent ID in the request path is not in UUID format")
	}
	return consentID, nil
}
