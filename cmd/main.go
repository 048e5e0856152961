package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"sakan/internal/caching"
	"sakan/internal/handlers"
	"sakan/internal/jobs"
	"sakan/internal/jobs/background"
	"sakan/internal/middleware"
	"sakan/internal/models"
	"sakan/internal/repositories"
	"sakan/internal/services"
	"sakan/pkg/database"
)

const version = "1.0.0"

func main() {
	// Database connection
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}
	pool, err := database.NewPool(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Payment provider configuration. An empty webhook secret makes the
	// webhook endpoint refuse all deliveries with a 500.
	stripeAPIKey := os.Getenv("STRIPE_SECRET_KEY")
	stripeWebhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if stripeWebhookSecret == "" {
		log.Printf("WARNING: STRIPE_WEBHOOK_SECRET is not set; webhook deliveries will be rejected")
	}

	// Auth provider configuration
	jwksURL := os.Getenv("AUTH_JWKS_URL")
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwksURL == "" && jwtSecret == "" {
		log.Fatal("Either AUTH_JWKS_URL or JWT_SECRET must be set")
	}

	// Redis configuration. One client serves the cache service and the
	// health checks. redis:// and rediss:// URLs are accepted as host:port.
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisAddr = strings.TrimPrefix(strings.TrimPrefix(redisAddr, "redis://"), "rediss://")
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			redisDB = db
		}
	}
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr, Password: redisPassword, DB: redisDB})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Printf("WARNING: Redis ping failed on initialization: %v (address: %s)", err, redisAddr)
	}

	// MinIO configuration (billing event archive)
	minioEndpoint := os.Getenv("MINIO_ENDPOINT")
	if minioEndpoint == "" {
		minioEndpoint = "localhost:9000"
	}
	minioAccessKey := os.Getenv("MINIO_ACCESS_KEY")
	if minioAccessKey == "" {
		minioAccessKey = "minioadmin"
	}
	minioSecretKey := os.Getenv("MINIO_SECRET_KEY")
	if minioSecretKey == "" {
		minioSecretKey = "minioadmin"
	}
	minioUseSSL := os.Getenv("MINIO_USE_SSL") == "true"

	archiveSvc, err := services.NewMinioStorageService(minioEndpoint, minioAccessKey, minioSecretKey, minioUseSSL)
	if err != nil {
		log.Printf("WARNING: event archive unavailable: %v", err)
		archiveSvc = nil
	}

	// Repositories
	subscriptionRepo := repositories.NewSubscriptionRepo(pool)
	accessCodeRepo := repositories.NewAccessCodeRepo(pool)
	deletionRequestRepo := repositories.NewDeletionRequestRepo(pool)
	profileRepo := repositories.NewProfileRepo(pool)
	transferRepo := repositories.NewTransferRepo(pool)

	// Cache
	cacheSvc := caching.NewRedisCacheService(redisClient)

	// Services
	stripeSvc := services.NewStripeService(stripeAPIKey, stripeWebhookSecret)
	billingSvc := services.NewBillingService(stripeSvc, subscriptionRepo, profileRepo, cacheSvc, archiveSvc, stripeWebhookSecret)
	codeSvc := services.NewAccessCodeService(accessCodeRepo, cacheSvc)
	notifier := services.NewLogNotificationService()
	successionSvc := services.NewSuccessionService(profileRepo, deletionRequestRepo, transferRepo, codeSvc, notifier)

	// Middleware
	authMiddleware, err := middleware.NewAuthMiddleware(jwksURL, jwtSecret)
	if err != nil {
		log.Fatalf("Failed to initialize auth middleware: %v", err)
	}
	rbacMiddleware := middleware.NewRBACMiddleware(profileRepo)

	// Handlers
	webhookHandlers := handlers.NewWebhookHandlers(billingSvc)
	subscriptionHandlers := handlers.NewSubscriptionHandlers(billingSvc)
	accessCodeHandlers := handlers.NewAccessCodeHandlers(codeSvc, cacheSvc)
	successionHandlers := handlers.NewSuccessionHandlers(successionSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, redisClient)

	// Background jobs
	expiryAlertSvc := jobs.NewPlanExpiryAlertService(subscriptionRepo, profileRepo, notifier)
	scheduler, err := background.NewJobScheduler(expiryAlertSvc)
	if err != nil {
		log.Fatalf("Failed to create job scheduler: %v", err)
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Printf("Scheduler shutdown error: %v", err)
		}
	}()

	e := echo.New()
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Pre(echoMiddleware.RemoveTrailingSlash())

	// Public surface
	e.POST("/webhooks/stripe", webhookHandlers.StripeWebhook)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/detailed", healthHandlers.DetailedHealthCheck)
	e.GET("/v1/billing/plans", subscriptionHandlers.GetPlans)

	// Authenticated surface
	v1 := e.Group("/v1", authMiddleware.Authenticate())
	v1.GET("/billing/subscription", subscriptionHandlers.GetMySubscription)
	v1.POST("/codes/validate", accessCodeHandlers.ValidateCode)
	v1.POST("/codes/cancel", accessCodeHandlers.CancelCode)
	v1.GET("/codes/:code/status", accessCodeHandlers.CodeStatus)
	v1.POST("/succession/initiate", successionHandlers.InitiateSuccession, rbacMiddleware.RequireRole(models.RoleSyndic))
	v1.POST("/succession/redeem", successionHandlers.RedeemSuccession)

	admin := v1.Group("/admin", rbacMiddleware.RequireRole(models.RoleAdmin))
	admin.GET("/deletion-requests", successionHandlers.ListDeletionRequests)
	admin.POST("/deletion-requests/:id/approve", successionHandlers.ApproveDeletionRequest)
	admin.PUT("/deletion-requests/:id/reject", successionHandlers.RejectDeletionRequest)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("sakan %s listening on :%s", version, port)
	if err := e.Start(":" + port); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
