package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-gocardless/app/controller"
	"github.com/vibast-solutions/ms-go-gocardless/app/gocardless"
	"github.com/vibast-solutions/ms-go-gocardless/app/metrics"
	gatewaymiddleware "github.com/vibast-solutions/ms-go-gocardless/app/middleware"
	"github.com/vibast-solutions/ms-go-gocardless/app/repository"
	"github.com/vibast-solutions/ms-go-gocardless/app/service"
	"github.com/vibast-solutions/ms-go-gocardless/app/types"
	"github.com/vibast-solutions/ms-go-gocardless/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server for the GoCardless gateway.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	app := mustCreateGatewayService()
	defer app.cleanup()
	cfg := app.cfg

	gatewayController := controller.NewGatewayController(app.service)

	authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
	}
	defer authGRPCClient.Close()

	internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
	echoInternalAuthMiddleware := authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)

	limiterStore, err := limiterredis.NewStoreWithOptions(app.redis, limiter.StoreOptions{Prefix: cfg.App.ServiceName + ":ratelimit"})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize rate limiter store")
	}
	publicLimiter, err := gatewaymiddleware.NewLimiter(limiterStore, cfg.RateLimit.Public)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid public rate limit")
	}

	e := setupHTTPServer(gatewayController, echoInternalAuthMiddleware, publicMiddleware(publicLimiter, cfg.HTTP.PublicBodyLimit), cfg.App.ServiceName)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

// publicMiddleware guards the unauthenticated routes: bodies are capped before
// the rate limiter and handlers see them.
func publicMiddleware(publicLimiter *limiter.Limiter, bodyLimit string) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		echomiddleware.BodyLimit(bodyLimit),
		gatewaymiddleware.RateLimit(publicLimiter, logrus.WithField("module", "rate-limit")),
	}
}

func setupHTTPServer(
	gatewayController *controller.GatewayController,
	internalAuthMiddleware *authmiddleware.EchoInternalAuthMiddleware,
	public []echo.MiddlewareFunc,
	appServiceName string,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())

	e.GET("/health", gatewayController.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Reached by GoCardless and by the payer's browser; no internal credentials.
	e.POST("/webhooks/gocardless", gatewayController.HandleWebhook, public...)
	e.GET("/flows/complete", gatewayController.CompleteFlow, public...)

	internal := []echo.MiddlewareFunc{requireRequestID(), internalAuthMiddleware.RequireInternalAccess(appServiceName)}
	e.POST("/flows", gatewayController.StartFlow, internal...)
	e.POST("/webhooks/validate", gatewayController.ValidateWebhook, internal...)

	transactions := e.Group("/transactions", internal...)
	transactions.GET("/success", gatewayController.Success)
	transactions.POST("/:id/refund", gatewayController.Refund)
	transactions.POST("/:id/void", gatewayController.Void)
	transactions.POST("/:id/capture", gatewayController.Capture)

	mandates := e.Group("/mandates", internal...)
	mandates.POST("/:id/cancel", gatewayController.CancelMandate)
	mandates.POST("/:id/reinstate", gatewayController.ReinstateMandate)

	return e
}

func requireRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

type gatewayApp struct {
	cfg     *config.Config
	service *service.GatewayService
	redis   *redis.Client
	cleanup func()
}

func mustCreateGatewayService() *gatewayApp {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	if err := cfg.GoCardless.Validate(); err != nil {
		logrus.WithError(err).Fatal("Invalid GoCardless configuration")
	}

	db := mustOpenDatabase(cfg)

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Invalid Redis URL")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		_ = db.Close()
		_ = redisClient.Close()
		logrus.WithError(err).Fatal("Failed to ping Redis")
	}

	recorder := metrics.NewRecorder(cfg.App.MetricsNamespace, prometheus.DefaultRegisterer)

	client := gocardless.NewClient(gocardless.Config{
		AccessToken: cfg.GoCardless.AccessToken,
		Environment: gocardless.EnvironmentFromDevMode(cfg.GoCardless.DevMode),
		HTTPTimeout: cfg.GoCardless.HTTPTimeout,
		Observer:    recorder.ObserveProviderRequest,
	})

	gatewayService := service.NewGatewayService(
		client,
		repository.NewFlowSessionRepository(redisClient, cfg.GoCardless.FlowTTL),
		repository.NewWebhookReceiptRepository(db),
		cfg.GoCardless,
		cfg.Jobs,
		recorder,
	)

	cleanup := func() {
		if err := redisClient.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close Redis client")
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return &gatewayApp{cfg: cfg, service: gatewayService, redis: redisClient, cleanup: cleanup}
}

func mustOpenDatabase(cfg *config.Config) *sql.DB {
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	return db
}
