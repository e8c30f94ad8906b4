package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wso2/openbanking-berlin/internal/errors"
	"github.com/wso2/openbanking-berlin/internal/models"
	"github.com/wso2/openbanking-berlin/internal/service"
	"github.com/wso2/openbanking-berlin/pkg/utils"
)

// PaymentHandler handles the payment initiation endpoints of all three
// payment services.
type PaymentHandler struct {
	paymentService *service.PaymentService
	consentType    models.ConsentType
}

// NewPaymentHandler creates a payment handler bound to one payment service.
func NewPaymentHandler(paymentService *service.PaymentService, consentType models.ConsentType) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		consentType:    consentType,
	}
}

// CreatePayment handles POST /{payment-service}/:paymentProduct.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	initiation, err := readInitiationContext(c)
	if err != nil {
		SendError(c, err)
		return
	}

	response, err := h.paymentService.CreatePayment(c.Request.Context(), h.consentType, c.Param("paymentProduct"), initiation)
	if err != nil {
		SendError(c, err)
		return
	}
	created(c, response.PaymentID, response.StatusCode, response)
}

// GetPayment handles GET /{payment-service}/:paymentProduct/:paymentId.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	paymentID, err := pathPaymentID(c)
	if err != nil {
		SendError(c, err)
		return
	}

	response, err := h.paymentService.GetPayment(c.Request.Context(), h.consentType, c.Param("paymentProduct"), paymentID)
	if err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetPaymentStatus handles
// GET /{payment-service}/:paymentProduct/:paymentId/status.
func (h *PaymentHandler) GetPaymentStatus(c *gin.Context) {
	paymentID, err := pathPaymentID(c)
	if err != nil {
		SendError(c, err)
		return
	}

	response, err := h.paymentService.GetPaymentStatus(c.Request.Context(), h.consentType, c.Param("paymentProduct"), paymentID)
	if err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// CancelPayment handles DELETE /{payment-service}/:paymentProduct/:paymentId.
func (h *PaymentHandler) CancelPayment(c *gin.Context) {
	paymentID, err := pathPaymentID(c)
	if err != nil {
		SendError(c, err)
		return
	}

	if err := h.paymentService.CancelPayment(c.Request.Context(), h.consentType, c.Param("paymentProduct"), paymentID); err != nil {
		SendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// pathPaymentID reads and shape-checks the paymentId path parameter.
func pathPaymentID(c *gin.Context) (string, *errors.Error) {
	paymentID := c.Param("paymentId")
	if paymentID == "" {
		return "", errors.New(errors.CodeResourceUnknown, "Payment ID missing in the request path")
	}
	if !utils.IsValidUUID(paymentID) {
		return "", errors.New(errors.CodeResourceUnknown, "Payment ID in the request path is not in UUID format")
	}
	return paymentID, nil
}
