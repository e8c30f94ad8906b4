// Package middleware holds the gin middleware applied in front of the Berlin
// handlers.
package middleware

import (
	"bytes"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wso2/openbanking-berlin/internal/config"
	"github.com/wso2/openbanking-berlin/internal/errors"
	"github.com/wso2/openbanking-berlin/internal/signature"
	"github.com/wso2/openbanking-berlin/pkg/utils"
)

// SignatureValidation verifies the request signature, digest and signing
// certificate before any handler runs. The body is restored afterwards so
// handlers can read it again.
func SignatureValidation(cfg *config.SignatureConfig, executor *signature.Executor, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			abortWithError(c, errors.FormatError("Request body could not be read"))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if validationErr := executor.Validate(utils.NewHeaderMap(c.Request.Header), body); validationErr != nil {
			logger.WithFields(logrus.Fields{
				"path": c.Request.URL.Path,
				"code": validationErr.Code,
			}).Info("Request signature validation failed")
			abortWithError(c, validationErr)
			return
		}
		c.Next()
	}
}

// RequestLogging logs one line per request in the structured format used
// across the service.
func RequestLogging(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"statusCode": c.Writer.Status(),
			"clientIP":   c.ClientIP(),
		}).Info("Request processed")
	}
}

// abortWithError stops the chain and renders a Berlin tppMessages error.
func abortWithError(c *gin.Context, err *errors.Error) {
	c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
}
