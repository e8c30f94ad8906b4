// Package handlers holds the gin handlers for the Berlin Group API surface.
// Handlers stay thin: request plumbing here, business rules in the services.
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wso2/openbanking-berlin/internal/errors"
	"github.com/wso2/openbanking-berlin/internal/service"
	"github.com/wso2/openbanking-berlin/internal/validators"
	"github.com/wso2/openbanking-berlin/pkg/utils"
)

// SendError renders a Berlin tppMessages error response.
func SendError(c *gin.Context, err *errors.Error) {
	c.JSON(err.HTTPStatus, err.ToResponse())
}

// readInitiationContext collects the request-scoped inputs an initiation
// service call needs: headers, raw body and path.
func readInitiationContext(c *gin.Context) (*service.InitiationContext, *errors.Error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, errors.FormatError("Request body could not be read")
	}

	headers := utils.NewHeaderMap(c.Request.Header)
	return &service.InitiationContext{
		Headers: headers,
		Body:    body,
		Path:    c.Request.URL.Path,
		PSUID:   headers.Get(validators.HeaderPSUID),
	}, nil
}

// setLocationHeader sets the Location header of a created resource.
func setLocationHeader(c *gin.Context, resourceID string) {
	c.Header("Location", c.Request.URL.Path+"/"+resourceID)
}

// created renders an initiation response with a Location header. A zero
// statusCode means a fresh creation; idempotent replays carry the originally
// returned status instead.
func created(c *gin.Context, resourceID string, statusCode int, body interface{}) {
	if statusCode == 0 {
		statusCode = http.StatusCreated
	}
	setLocationHeader(c, resourceID)
	c.JSON(statusCode, body)
}
