package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gametriol/InductionMainPage2k25/config"
	"github.com/gametriol/InductionMainPage2k25/internal/handlers"
	"github.com/gametriol/InductionMainPage2k25/internal/middleware"
	"github.com/gametriol/InductionMainPage2k25/internal/services"
	"github.com/gametriol/InductionMainPage2k25/internal/validation"
	"github.com/gametriol/InductionMainPage2k25/pkg/httpclient"
	"github.com/gametriol/InductionMainPage2k25/pkg/logger"
	"github.com/gametriol/InductionMainPage2k25/pkg/metrics"
	"github.com/gametriol/InductionMainPage2k25/pkg/profiling"
	"github.com/gametriol/InductionMainPage2k25/pkg/tracing"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	jsonBodyLimit = 100 * 1024
	// Larger than the 1MB image rule so oversized files reach the validator
	imageBodyLimit = 2 * 1024 * 1024
)

// registerFormRoutes registers the form schema and session routes on the v1 group
func registerFormRoutes(
	group *gin.RouterGroup,
	forms services.FormServiceInterface,
	generalRateLimiter, submitRateLimiter *middleware.RateLimiter,
	formHandler *handlers.FormHandler,
	sessionHandler *handlers.SessionHandler,
) {
	group.GET("/form", generalRateLimiter.Middleware(), formHandler.GetForm)
	group.POST("/validate", generalRateLimiter.Middleware(), middleware.BodySizeLimitMiddleware(jsonBodyLimit), formHandler.ValidateField)
	group.POST("/sessions", submitRateLimiter.Middleware(), sessionHandler.Create)

	session := group.Group("/sessions/:id")
	session.Use(generalRateLimiter.Middleware(), middleware.FormSessionMiddleware(forms))

	session.GET("", sessionHandler.Get)
	session.DELETE("", sessionHandler.Abandon)
	session.PATCH("/fields", middleware.BodySizeLimitMiddleware(jsonBodyLimit), sessionHandler.UpdateField)
	session.PUT("/image", middleware.BodySizeLimitMiddleware(imageBodyLimit), sessionHandler.SetImage)
	session.DELETE("/image", sessionHandler.ClearImage)
	session.POST("/sign-in", middleware.BodySizeLimitMiddleware(jsonBodyLimit), sessionHandler.SignIn)
	session.POST("/submit", submitRateLimiter.Middleware(), sessionHandler.Submit)
	session.POST("/reset", sessionHandler.Reset)
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting induction API",
		zap.String("version", cfg.Observability.ServiceVersion),
		zap.String("environment", cfg.Server.AppEnv),
	)

	tracerShutdown, err := tracing.InitTracer(tracing.Settings{
		Endpoint:    cfg.Observability.ExporterEndpoint,
		ServiceName: cfg.Observability.ServiceName,
		Namespace:   cfg.Observability.ServiceNamespace,
		Version:     cfg.Observability.ServiceVersion,
		InstanceID:  cfg.Observability.ServiceInstanceID,
		Environment: cfg.Server.AppEnv,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tracerShutdown(ctx); shutdownErr != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(shutdownErr))
		}
	}()

	stopProfiler, err := profiling.Start(cfg.Profiling, cfg.Observability, cfg.Server.AppEnv)
	if err != nil {
		logger.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer stopProfiler()

	metrics.RecordInfrastructureMetrics()

	// Background work (rate limiter cleanup) stops with this context
	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	// One client for both outbound steps; each step also carries its own deadline
	httpClient := httpclient.NewStandardClient(cfg.Submission.StepTimeout)

	formService := services.NewFormServiceFromConfig(cfg, validation.MustNew(), httpClient)

	healthHandler := handlers.NewHealthHandler(formService.ActiveSessions)
	formHandler := handlers.NewFormHandler(formService)
	sessionHandler := handlers.NewSessionHandler(formService)

	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Observability.ServiceName))
	router.Use(middleware.ObservabilityMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	allowedOrigins := cfg.Server.AllowedOrigins
	if cfg.IsDevelopment() {
		allowedOrigins = append(allowedOrigins, "http://localhost:5173", "http://127.0.0.1:5173")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "traceparent", "tracestate"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	generalRateLimiter := middleware.NewRateLimiter(appCtx, 50, 100) // 50 req/sec, burst of 100 (typing triggers field edits)
	submitRateLimiter := middleware.NewRateLimiter(appCtx, 0.2, 5)   // 1 req/5s, burst of 5

	api := router.Group("/api")
	api.GET("/healthcheck", generalRateLimiter.Middleware(), healthHandler.Healthcheck)
	api.GET("/metrics", generalRateLimiter.Middleware(), gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	registerFormRoutes(v1, formService, generalRateLimiter, submitRateLimiter, formHandler, sessionHandler)

	// Submit holds the request for up to two outbound steps
	writeTimeout := 2*cfg.Submission.StepTimeout + 10*time.Second

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("Server started",
			zap.String("port", cfg.Server.Port),
			zap.Bool("sign_in_required", cfg.IdentityGateEnabled()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
