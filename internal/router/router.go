// Package router wires the Berlin Group API routes to their handlers.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wso2/openbanking-berlin/internal/config"
	"github.com/wso2/openbanking-berlin/internal/handlers"
	"github.com/wso2/openbanking-berlin/internal/middleware"
	"github.com/wso2/openbanking-berlin/internal/models"
	"github.com/wso2/openbanking-berlin/internal/service"
	"github.com/wso2/openbanking-berlin/internal/signature"
)

// Services bundles the service instances the router depends on.
type Services struct {
	Consent       *service.ConsentService
	Payment       *service.PaymentService
	Funds         *service.FundsService
	Authorization *service.AuthorizationService
}

// SetupRouter configures the NextGenPSD2 API routes. Account information and
// payment services live under /v1; the confirmation of funds service is a v2
// API.
func SetupRouter(cfg *config.Config, services *Services, executor *signature.Executor, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging(logger))
	router.Use(middleware.SignatureValidation(&cfg.Signature, executor, logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	consentHandler := handlers.NewConsentHandler(services.Consent)
	fundsHandler := handlers.NewFundsHandler(services.Funds)

	consentAuthHandler := handlers.NewAuthorizationHandler(services.Authorization, models.ConsentTypeAccounts, "consentId", false)
	fundsAuthHandler := handlers.NewAuthorizationHandler(services.Authorization, models.ConsentTypeFunds, "consentId", false)

	v1 := router.Group("/v1")
	{
		consents := v1.Group("/consents")
		{
			consents.POST("", consentHandler.CreateConsent)
			consents.GET("/:consentId", consentHandler.GetConsent)
			consents.GET("/:consentId/status", consentHandler.GetConsentStatus)
			consents.DELETE("/:consentId", consentHandler.DeleteConsent)

			consents.POST("/:consentId/authorisations", consentAuthHandler.StartAuthorisation)
			consents.GET("/:consentId/authorisations", consentAuthHandler.ListAuthorisations)
			consents.GET("/:consentId/authorisations/:authorisationId", consentAuthHandler.GetScaStatus)
		}

		registerPaymentRoutes(v1, "/payments", services, models.ConsentTypePayments)
		registerPaymentRoutes(v1, "/bulk-payments", services, models.ConsentTypeBulkPayments)
		registerPaymentRoutes(v1, "/periodic-payments", services, models.ConsentTypePeriodicPayments)
	}

	v2 := router.Group("/v2")
	{
		funds := v2.Group("/consents/confirmation-of-funds")
		{
			funds.POST("", fundsHandler.CreateFundsConsent)
			funds.GET("/:consentId", fundsHandler.GetFundsConsent)
			funds.GET("/:consentId/status", fundsHandler.GetFundsConsentStatus)
			funds.DELETE("/:consentId", fundsHandler.DeleteFundsConsent)

			funds.POST("/:consentId/authorisations", fundsAuthHandler.StartAuthorisation)
			funds.GET("/:consentId/authorisations", fundsAuthHandler.ListAuthorisations)
			funds.GET("/:consentId/authorisations/:authorisationId", fundsAuthHandler.GetScaStatus)
		}
	}

	return router
}

// registerPaymentRoutes wires one payment service's routes. All three payment
// services share the same shape, parameterized by consent type.
func registerPaymentRoutes(group *gin.RouterGroup, prefix string, services *Services, consentType models.ConsentType) {
	paymentHandler := handlers.NewPaymentHandler(services.Payment, consentType)
	authHandler := handlers.NewAuthorizationHandler(services.Authorization, consentType, "paymentId", false)
	cancelAuthHandler := handlers.NewAuthorizationHandler(services.Authorization, consentType, "paymentId", true)

	payments := group.Group(prefix)
	{
		payments.POST("/:paymentProduct", paymentHandler.CreatePayment)
		payments.GET("/:paymentProduct/:paymentId", paymentHandler.GetPayment)
		payments.GET("/:paymentProduct/:paymentId/status", paymentHandler.GetPaymentStatus)
		payments.DELETE("/:paymentProduct/:paymentId", paymentHandler.CancelPayment)

		payments.POST("/:paymentProduct/:paymentId/authorisations", authHandler.StartAuthorisation)
		payments.GET("/:paymentProduct/:paymentId/authorisations", authHandler.ListAuthorisations)
		payments.GET("/:paymentProduct/:paymentId/authorisations/:authorisationId", authHandler.GetScaStatus)

		payments.POST("/:paymentProduct/:paymentId/cancellation-authorisations", cancelAuthHandler.StartAuthorisation)
		payments.GET("/:paymentProduct/:paymentId/cancellation-authorisations", cancelAuthHandler.ListAuthorisations)
		payments.GET("/:paymentProduct/:paymentId/cancellation-authorisations/:authorisationId", cancelAuthHandler.GetScaStatus)
	}
}
