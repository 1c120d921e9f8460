package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"qrattend/internal/auth"
	"qrattend/internal/config"
	"qrattend/internal/events"
	"qrattend/internal/handler"
	"qrattend/internal/httpmiddleware"
	"qrattend/internal/identity"
	"qrattend/internal/ledger"
	"qrattend/internal/ojt"
	"qrattend/internal/queue"
	"qrattend/internal/scan"
	"qrattend/internal/store"
	"qrattend/internal/students"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	caps, err := store.DetectCapabilities(context.Background(), db.Client)
	if err != nil {
		log.Printf("warning: capability probe failed, assuming full schema: %v", err)
		caps.NotifiedFlags = true
	}
	if !caps.NotifiedFlags {
		log.Println("schema has no notified-flag columns, confirmations will repeat on re-scans")
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "qrattend:notifications")
	}

	resolver := identity.NewResolver(identity.NewPostgresDirectory(db.Client))
	led := ledger.New(ledger.NewPostgresStore(db.Client, caps))
	eventRepo := events.NewRepository(db.Client)
	studentRepo := students.NewRepository(db.Client)
	ojtRepo := ojt.NewRepository(db.Client)
	scans := scan.NewService(resolver, eventRepo, led, q, cfg.ScanTimeout)
	h := handler.New(cfg, scans, studentRepo, eventRepo, ojtRepo)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/auth/login", h.Login)

	v1 := r.Group("/v1", auth.SecretaryAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	v1.POST("/scans", h.Scan)

	v1.POST("/students", h.EnrollStudent)
	v1.GET("/students", h.ListStudents)
	v1.GET("/students/:id", h.GetStudent)
	v1.PUT("/students/:id", h.UpdateStudent)
	v1.DELETE("/students/:id", h.DeleteStudent)

	v1.POST("/events", h.CreateEvent)
	v1.GET("/events", h.ListEvents)
	v1.GET("/events/:id", h.GetEvent)
	v1.PUT("/events/:id", h.UpdateEvent)
	v1.DELETE("/events/:id", h.DeleteEvent)
	v1.GET("/events/:id/attendance", h.EventAttendance)

	v1.POST("/ojt/logs", h.SaveOJTLog)
	v1.GET("/ojt/logs", h.ListOJTLogs)
	v1.POST("/ojt/journals", h.SaveJournal)
	v1.GET("/ojt/journals", h.ListJournals)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
