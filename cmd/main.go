package main

import (
	"context"
	"fmt"
	"log"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"lumiscan/internal/caching"
	"lumiscan/internal/config"
	"lumiscan/internal/handlers"
	"lumiscan/internal/jobs/background"
	"lumiscan/internal/middleware"
	"lumiscan/internal/repositories"
	"lumiscan/internal/services"
	"lumiscan/pkg/database"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Database connection pool
	pool, err := database.NewPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// MinIO service for analysis images
	minioSvc, err := services.NewMinioService(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("Failed to initialize MinIO service: %v", err)
	}
	if err := minioSvc.EnsureBucketExists(context.Background(), cfg.MinioBucket); err != nil {
		log.Printf("WARN: failed to ensure MinIO bucket %q: %v", cfg.MinioBucket, err)
	}

	// Cache service
	cacheSvc := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	// Repositories
	profileRepo := repositories.NewProfileRepo(pool)
	planRepo := repositories.NewPlanRepo(pool)
	subscriptionRepo := repositories.NewSubscriptionRepo(pool)
	paymentRepo := repositories.NewPaymentRepo(pool)
	usageRepo := repositories.NewUsageRepo(pool)
	analysisRepo := repositories.NewAnalysisRepo(pool)

	// Services
	profileSvc := services.NewProfileService(profileRepo)
	planSvc := services.NewPlanService(planRepo, subscriptionRepo, cacheSvc)
	subscriptionSvc := services.NewSubscriptionService(subscriptionRepo, planRepo)
	entitlementSvc := services.NewEntitlementService(subscriptionRepo)
	paymentSvc := services.NewPaymentService(paymentRepo, subscriptionRepo)
	analysisSvc := services.NewAnalysisService(analysisRepo, entitlementSvc, minioSvc, cfg.MinioBucket)

	// Authentication
	authenticator, err := middleware.NewAuthenticator(cfg.JWKSURL, cfg.JWTSecret)
	if err != nil {
		log.Fatalf("Failed to initialize authenticator: %v", err)
	}

	// Handlers
	profileHandlers := handlers.NewProfileHandlers(profileSvc)
	planHandlers := handlers.NewPlanHandlers(planSvc)
	subscriptionHandlers := handlers.NewSubscriptionHandlers(subscriptionSvc, entitlementSvc)
	entitlementHandlers := handlers.NewEntitlementHandlers(entitlementSvc)
	analysisHandlers := handlers.NewAnalysisHandlers(analysisSvc, cacheSvc)
	paymentHandlers := handlers.NewPaymentHandlers(paymentSvc)
	webhookHandlers := handlers.NewWebhookHandlers(paymentSvc, cfg.WebhookSecret)
	adminHandlers := handlers.NewAdminHandlers(subscriptionRepo, paymentRepo, usageRepo, planSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc)

	// Background jobs
	scheduler := background.NewJobScheduler(subscriptionRepo, paymentRepo)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start job scheduler: %v", err)
	}
	defer scheduler.Stop()

	// Create Echo instance
	e := echo.New()

	// Global middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)

	// API routes
	v1 := e.Group("/v1")

	// Public routes
	v1.GET("/plans", planHandlers.ListPlans)
	v1.POST("/webhooks/billing", webhookHandlers.BillingWebhook)

	// Authenticated routes (caller identity injected into every query)
	protected := v1.Group("")
	protected.Use(authenticator.Middleware())

	protected.GET("/me", profileHandlers.GetMe)
	protected.PUT("/me", profileHandlers.UpdateMe)
	protected.DELETE("/me", profileHandlers.DeleteMe)

	protected.GET("/entitlement", entitlementHandlers.CheckEntitlement)

	protected.GET("/subscriptions", subscriptionHandlers.ListSubscriptions)
	protected.POST("/subscriptions", subscriptionHandlers.CreateSubscription)
	protected.GET("/subscriptions/current", subscriptionHandlers.GetMySubscription)
	protected.GET("/subscriptions/:id", subscriptionHandlers.GetSubscriptionByID)
	protected.PUT("/subscriptions/:id/activate", subscriptionHandlers.ActivateSubscription)
	protected.DELETE("/subscriptions/:id/cancel", subscriptionHandlers.CancelSubscription)
	protected.PUT("/subscriptions/:id/pause", subscriptionHandlers.PauseSubscription)
	protected.PUT("/subscriptions/:id/resume", subscriptionHandlers.ResumeSubscription)
	protected.PUT("/subscriptions/:id/plan", subscriptionHandlers.ChangePlan)

	protected.POST("/analyses", analysisHandlers.CreateAnalysis)
	protected.GET("/analyses", analysisHandlers.ListAnalyses)
	protected.GET("/analyses/:id", analysisHandlers.GetAnalysis)
	protected.DELETE("/analyses/:id", analysisHandlers.DeleteAnalysis)

	protected.GET("/payments", paymentHandlers.ListTransactions)
	protected.GET("/payments/:id", paymentHandlers.GetTransaction)

	// Operator routes (privileged bypass, guarded by pre-shared key)
	admin := v1.Group("/admin")
	admin.Use(middleware.OperatorMiddleware(cfg.OperatorKey))
	admin.GET("/subscriptions", adminHandlers.ListAllSubscriptions)
	admin.GET("/users/:id/subscriptions", adminHandlers.GetUserSubscriptions)
	admin.GET("/payments", adminHandlers.ListAllTransactions)
	admin.GET("/usage", adminHandlers.ListAllUsage)
	admin.POST("/usage/reset", adminHandlers.TriggerUsageReset)
	admin.POST("/plans", adminHandlers.CreatePlan)
	admin.PUT("/plans/:id", adminHandlers.UpdatePlan)
	admin.DELETE("/plans/:id", adminHandlers.DeletePlan)

	log.Printf("🚀 Lumiscan server v%s starting on port %d", version, cfg.Port)

	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", cfg.Port)))
}
