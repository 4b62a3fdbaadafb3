package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stocklane/inventory_backend/config"
	"github.com/stocklane/inventory_backend/handlers"
	"github.com/stocklane/inventory_backend/middlewares"
	"github.com/stocklane/inventory_backend/models"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("stocklane-inventory")

type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"message": "route not found"})
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so the platform considers the revision healthy.
	// Until the DB is ready, app endpoints return 503.
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(func(c *gin.Context) {
		// Always allow the startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	// Liveness for callers that expect a body; gated on DB readiness above.
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	corsConfig := cors.DefaultConfig()
	// In production, require an explicit allowlist via CORS_ALLOWED_ORIGINS
	// (comma-separated). In non-production, allow all.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "X-Correlation-Id")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", "X-Correlation-Id")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// Optional rate limiting.
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := redis.NewClient(&redis.Options{Addr: os.Getenv("REDIS_ADDRESS")})
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(tracingMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	registerRoutes(r)
	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations as
	// a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	setupStockNotifier(logger)

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

func registerRoutes(r *gin.Engine) {
	api := r.Group("/api")

	api.POST("/auth/register", handlers.Register)
	api.POST("/auth/login", handlers.Login)

	authed := api.Group("")
	authed.Use(middlewares.AuthMiddleware())

	// Catalog. Reads are open to any authenticated user; writes are
	// management only.
	authed.GET("/products", handlers.GetProducts)
	authed.POST("/products", middlewares.RequireManagement(), handlers.CreateProduct)
	authed.PUT("/products/:id", middlewares.RequireManagement(), handlers.UpdateProduct)
	authed.DELETE("/products/:id", middlewares.RequireManagement(), handlers.DeleteProduct)
	authed.POST("/products/:id/variants", middlewares.RequireManagement(), handlers.CreateVariant)

	authed.GET("/variants", handlers.GetVariants)
	authed.PUT("/variants/:id", middlewares.RequireManagement(), handlers.UpdateVariant)
	authed.DELETE("/variants/:id", middlewares.RequireManagement(), handlers.DeleteVariant)
	authed.POST("/variants/:id/adjust-stock", middlewares.RequireManagement(), handlers.AdjustStock)
	authed.GET("/variants/:id/ledger", handlers.GetStockLedger)

	authed.GET("/suppliers", handlers.GetSuppliers)
	authed.POST("/suppliers", middlewares.RequireManagement(), handlers.CreateSupplier)
	authed.PUT("/suppliers/:id", middlewares.RequireManagement(), handlers.UpdateSupplier)
	authed.DELETE("/suppliers/:id", middlewares.RequireManagement(), handlers.DeleteSupplier)

	// Sales orders. Staff can place, fulfill and cancel.
	authed.GET("/orders", handlers.GetOrders)
	authed.GET("/orders/:id", handlers.GetOrder)
	authed.POST("/orders", handlers.CreateOrder)
	authed.PATCH("/orders/:id/fulfill", handlers.FulfillOrder)
	authed.PATCH("/orders/:id/cancel", handlers.CancelOrder)

	// Purchase orders. Creation and confirmation are management decisions;
	// receiving happens at the dock, so any authenticated user may record it.
	authed.GET("/purchase-orders", handlers.GetPurchaseOrders)
	authed.GET("/purchase-orders/:id", handlers.GetPurchaseOrder)
	authed.POST("/purchase-orders", middlewares.RequireManagement(), handlers.CreatePurchaseOrder)
	authed.PATCH("/purchase-orders/:id/confirm", middlewares.RequireManagement(), handlers.ConfirmPurchaseOrder)
	authed.PATCH("/purchase-orders/:id/receive", handlers.ReceivePurchaseOrder)

	authed.GET("/dashboard/summary", handlers.GetDashboardSummary)
	authed.GET("/dashboard/movement.xlsx", handlers.ExportStockMovement)

	authed.GET("/users", middlewares.RequireManagement(), handlers.GetUsers)
	authed.PATCH("/users/:id/role", middlewares.RequireRole(models.RoleOwner), handlers.UpdateUserRole)
}

// setupStockNotifier wires the post-commit stock event sink. Pub/Sub when a
// topic is configured, structured logging otherwise.
func setupStockNotifier(logger *logrus.Logger) {
	if os.Getenv("STOCK_EVENTS_TOPIC") == "" {
		models.SetStockNotifier(models.LogStockNotifier{})
		logger.WithFields(logrus.Fields{"field": "notifier"}).Info("STOCK_EVENTS_TOPIC not set; stock events go to the log")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := config.GetPubSubClient(ctx)
	if err != nil {
		models.SetStockNotifier(models.LogStockNotifier{})
		logger.WithFields(logrus.Fields{"field": "notifier"}).Warn("pubsub unavailable; stock events go to the log: " + err.Error())
		return
	}
	if _, err := config.CreateTopicIfNotExists(client, os.Getenv("STOCK_EVENTS_TOPIC")); err != nil {
		models.SetStockNotifier(models.LogStockNotifier{})
		logger.WithFields(logrus.Fields{"field": "notifier"}).Warn("topic setup failed; stock events go to the log: " + err.Error())
		return
	}
	models.SetStockNotifier(models.PubSubStockNotifier{})
}

// tracingMiddleware opens one span per request so handler work and the
// otelgorm query spans share a trace.
func tracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+c.Request.URL.Path)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// customErrorLogger logs only requests that accumulated gin errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// RateLimitMiddleware applies a fixed-window per-IP limit backed by Redis.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := "ratelimit:" + c.ClientIP()

	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"message": fmt.Sprintf("rate limit exceeded. try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
