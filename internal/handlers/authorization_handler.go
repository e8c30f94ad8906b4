package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wso2/openbanking-berlin/internal/errors"
	"github.com/wso2/openbanking-berlin/internal/models"
	"github.com/wso2/openbanking-berlin/internal/service"
	"github.com/wso2/openbanking-berlin/internal/validators"
	"github.com/wso2/openbanking-berlin/pkg/utils"
)

// AuthorizationHandler handles the explicit authorisation endpoints of a
// single parent resource kind.
type AuthorizationHandler struct {
	authorizationService *service.AuthorizationService
	consentType          models.ConsentType
	resourceParam        string
	cancellation         bool
}

// NewAuthorizationHandler creates an authorisation handler bound to one
// parent resource kind.
func NewAuthorizationHandler(authorizationService *service.AuthorizationService, consentType models.ConsentType, resourceParam string, cancellation bool) *AuthorizationHandler {
	return &AuthorizationHandler{
		authorizationService: authorizationService,
		consentType:          consentType,
		resourceParam:        resourceParam,
		cancellation:         cancellation,
	}
}

// StartAuthorisation handles POST .../authorisations and
// POST .../cancellation-authorisations.
func (h *AuthorizationHandler) StartAuthorisation(c *gin.Context) {
	resourceID, err := h.pathResourceID(c)
	if err != nil {
		SendError(c, err)
		return
	}

	initiation, err := readInitiationContext(c)
	if err != nil {
		SendError(c, err)
		return
	}

	response, err := h.authorizationService.StartAuthorisation(c.Request.Context(), h.consentType, resourceID, initiation, h.cancellation)
	if err != nil {
		SendError(c, err)
		return
	}
	created(c, response.AuthorisationID, response.StatusCode, response)
}

// ListAuthorisations handles GET .../authorisations and
// GET .../cancellation-authorisations.
func (h *AuthorizationHandler) ListAuthorisations(c *gin.Context) {
	resourceID, err := h.pathResourceID(c)
	if err != nil {
		SendError(c, err)
		return
	}

	response, err := h.authorizationService.ListAuthorisations(c.Request.Context(), h.consentType, resourceID, h.cancellation)
	if err != nil {
		SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetScaStatus handles GET .../authorisations/:authorisationId. A user
// mismatch degrades the response to the failed status instead of erroring,
// matching the gateway behaviour downstream systems rely on.
func (h *AuthorizationHandler) GetScaStatus(c *gin.Context) {
	resourceID, err := h.pathResourceID(c)
	if err != nil {
		SendError(c, err)
		return
	}

	authorisationID := c.Param("authorisationId")
	if !utils.IsValidUUID(authorisationID) {
		SendError(c, errors.New(errors.CodeResourceUnknown, "Authorisation ID in the request path is not in UUID format"))
		return
	}

	userID := utils.NewHeaderMap(c.Request.Header).Get(validators.HeaderPSUID)
	result, err := h.authorizationService.GetScaStatus(c.Request.Context(), h.consentType, resourceID, authorisationID, userID)
	if err != nil {
		SendError(c, err)
		return
	}

	if result.IsError {
		c.JSON(http.StatusOK, &models.ScaStatusResponse{ScaStatus: models.ScaFailed})
		return
	}
	c.JSON(http.StatusOK, result.Response)
}

// pathResourceID reads and shape-checks the parent resource path parameter.
func (h *AuthorizationHandler) pathResourceID(c *gin.Context) (string, *errors.Error) {
	resourceID := c.Param(h.resourceParam)
	if resourceID == "" {
		return "", errors.New(errors.CodeResourceUnknown, "Resource ID missing in the request path")
	}
	if !utils.IsValidUUID(resourceID) {
		return "", errors.New(errors.CodeResourceUnknown, "Resource ID in the request path is not in UUID format")
	}
	return resourceID, nil
}
