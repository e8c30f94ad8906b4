package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wso2/openbanking-berlin/internal/config"
	"github.com/wso2/openbanking-berlin/internal/engine"
	"github.com/wso2/openbanking-berlin/internal/idempotency"
	"github.com/wso2/openbanking-berlin/internal/router"
	"github.com/wso2/openbanking-berlin/internal/sca"
	"github.com/wso2/openbanking-berlin/internal/service"
	"github.com/wso2/openbanking-berlin/internal/signature"
)

// Version information (set by build script)
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	logger.WithFields(logrus.Fields{
		"version":    version,
		"build_date": buildDate,
	}).Info("Starting Open Banking Berlin extension server...")

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	logger.WithField("log_level", logger.GetLevel().String()).Info("Configuration loaded successfully")

	// Signature validation needs the issuer trust store; without signature
	// validation the executor stays nil and the middleware passes through.
	var executor *signature.Executor
	if cfg.Signature.Enabled {
		trustStore, err := signature.LoadTrustStore(cfg.Signature.TrustStorePath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to load signature trust store")
		}
		executor = signature.NewExecutor(&cfg.Signature, trustStore, logger)
		logger.WithField("trust_store", cfg.Signature.TrustStorePath).Info("Signature validation enabled")
	}

	engineClient := engine.NewHTTPClient(&cfg.ConsentEngine, logger)
	logger.WithField("base_url", cfg.ConsentEngine.BaseURL).Info("Consent engine client initialized")

	selector := sca.NewSelector(&cfg.Berlin)
	idempotencyValidator := idempotency.NewValidator(engineClient, cfg.Berlin.IdempotencyAllowedTime, logger)

	services := &router.Services{
		Consent:       service.NewConsentService(engineClient, &cfg.Berlin, selector, idempotencyValidator, logger),
		Payment:       service.NewPaymentService(engineClient, &cfg.Berlin, selector, idempotencyValidator, logger),
		Funds:         service.NewFundsService(engineClient, &cfg.Berlin, selector, idempotencyValidator, logger),
		Authorization: service.NewAuthorizationService(engineClient, &cfg.Berlin, selector, idempotencyValidator, logger),
	}

	logger.Info("Services initialized successfully")

	ginRouter := router.SetupRouter(cfg, services, executor, logger)

	serverAddr := cfg.Server.GetServerAddress()
	server := &http.Server{
		Addr:           serverAddr,
		Handler:        ginRouter,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		logger.WithField("addr", serverAddr).Info("Starting HTTP server...")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited gracefully")
}
