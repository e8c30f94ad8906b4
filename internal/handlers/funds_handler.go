package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wso2/openbanking-berlin/internal/service"
)

// FundsHandler handles the confirmation-of-funds consent endpoints.
type FundsHandler struct {
	fundsService *service.FundsService
}

// NewFundsHandler creates a funds-confirmation handler instance.
func NewFundsHandler(fundsService *service.FundsService) *FundsHandler {
	return &FundsHandler{fundsService: fundsService}
}

// CreateFundsConsent handles POST /consents/confirmation-of-funds.
func (h *FundsHandler) CreateFundsConsent(c *gin.Context) {
	initiation, err := readInitiationContext(c)
	if err != nil {
		SendError(c, err)
		return
	}

	response, err := h.fundsService.CreateFundsConsent(c.Request.Context(), initiation)
	if err != nil {
		SendError(c, err)
		return
	}
	created(c, response.ConsentID, response.StatusCode, response)
}

// GetFundsConsent handles GET /consents/confirmation-of-funds/:consentId.
func (h *FundsHandler) GetFundsConsent(c *gin.Context) {
	consentID, err := pathConsentID(c)
	if err != nil {
		SendError(c, err)
		return
	}

	response, err := h.fundsService.GetFundsConsent(c.Request.Context(), consentID)
	if err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetFundsConsentStatus handles
// GET /consents/confirmation-of-funds/:consentId/status.
func (h *FundsHandler) GetFundsConsentStatus(c *gin.Context) {
	consentID, err := pathConsentID(c)
	if err != nil {
		SendError(c, err)
		return
	}

	response, err := h.fundsService.GetFundsConsentStatus(c.Request.Context(), consentID)
	if err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// DeleteFundsConsent handles
// DELETE /consents/confirmation-of-funds/:consentId.
func (h *FundsHandler) DeleteFundsConsent(c *gin.Context) {
	consentID, err := pathConsentID(c)
	if err != nil {
		SendError(c, err)
		return
	}

	if err := h.fundsService.DeleteFundsConsent(c.Request.Context(), consentID); err != nil {
		SendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
