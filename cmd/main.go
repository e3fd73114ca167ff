package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fybs47/Library/internal/auth/middleware"
	"github.com/fybs47/Library/internal/auth/policy"
	"github.com/fybs47/Library/internal/auth/service"
	"github.com/fybs47/Library/internal/cache"
	"github.com/fybs47/Library/internal/config"
	"github.com/fybs47/Library/internal/handlers"
	"github.com/fybs47/Library/internal/logger"
	loggerMiddleware "github.com/fybs47/Library/internal/logger/middleware"
	"github.com/fybs47/Library/internal/metrics"
	"github.com/fybs47/Library/internal/middlewares"
	"github.com/fybs47/Library/internal/models"
	"github.com/fybs47/Library/internal/repositories"
	"github.com/fybs47/Library/internal/services"
	"github.com/fybs47/Library/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// maxJSONBodySize caps every non-multipart request body
	maxJSONBodySize = 1 << 20
	// multipartOverhead leaves room for form boundaries and headers around a cover upload
	multipartOverhead = 1 << 20
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting Library API")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	bookCache, closeCache := newBookCache(cfg)
	defer closeCache()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.NewMetrics(registry)

	// Initialize JWT token generator
	tokenGenerator := service.NewTokenGenerator(service.JWTOptions{
		Secret:             cfg.JWT.Secret,
		Issuer:             cfg.JWT.Issuer,
		Audience:           cfg.JWT.Audience,
		AccessTokenExpiry:  cfg.JWT.AccessTokenExpiry,
		RefreshTokenExpiry: cfg.JWT.RefreshTokenExpiry,
	})
	coverStorage := storage.NewLocalStorage(cfg.Media.BasePath)
	permissions := policy.DefaultTable()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db, logger.Logger)
	authorRepo := repositories.NewAuthorRepository(db, logger.Logger)
	bookRepo := repositories.NewBookRepository(db, logger.Logger)

	// Initialize services
	tokenService := services.NewTokenService(userRepo, tokenGenerator, logger.Logger)
	authService := services.NewAuthService(userRepo, tokenService, service.NewPasswordHasher(bcrypt.DefaultCost), appMetrics, logger.Logger)
	bookService := services.NewBookService(bookRepo, authorRepo, bookCache, coverStorage, logger.Logger, cfg.Media.BaseURL, cfg.Media.MaxUploadSize)
	authorService := services.NewAuthorService(authorRepo, bookRepo, logger.Logger, cfg.Media.BaseURL)
	userService := services.NewUserService(userRepo, logger.Logger)

	if cfg.Admin.Username != "" {
		if err := seedAdmin(authService, cfg.Admin); err != nil {
			logger.Logger.Fatal("Failed to create admin account", zap.Error(err))
		}
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, cfg.JWT.RefreshTokenExpiry, logger.Logger)
	bookHandler := handlers.NewBookHandler(bookService, permissions, logger.Logger)
	authorHandler := handlers.NewAuthorHandler(authorService, permissions, logger.Logger)
	userHandler := handlers.NewUserHandler(userService, permissions, logger.Logger)
	coverHandler := handlers.NewCoverHandler(coverStorage, logger.Logger)

	// Register, login and refresh must work without a valid access token
	authMiddleware := middleware.AuthMiddleware(tokenGenerator,
		"/api/auth/register",
		"/api/auth/login",
		"/api/auth/refresh",
	)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middlewares.RequestIDMiddleware)
	r.Use(loggerMiddleware.LoggerMiddleware(logger.Logger))
	// Metrics wraps Recovery so that recovered panics are counted as 500s
	r.Use(appMetrics.Middleware)
	r.Use(middlewares.RecoveryMiddleware(logger.Logger))
	r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
	r.Use(middlewares.RequestSizeLimitMiddleware(middlewares.BodyLimits{
		JSON:      maxJSONBodySize,
		Multipart: cfg.Media.MaxUploadSize + multipartOverhead,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", appMetrics.Handler())
	coverHandler.RegisterRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		authHandler.RegisterRoutes(r)
		bookHandler.RegisterRoutes(r)
		authorHandler.RegisterRoutes(r)
		userHandler.RegisterRoutes(r)
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// adminSeeder creates the bootstrap admin account
type adminSeeder interface {
	EnsureAdmin(ctx context.Context, req *models.RegisterRequest) (bool, error)
}

// seedAdmin creates the configured admin account unless the username is already taken
func seedAdmin(seeder adminSeeder, admin config.AdminConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := seeder.EnsureAdmin(ctx, &models.RegisterRequest{
		Username: admin.Username,
		Email:    admin.Email,
		Password: admin.Password,
	})
	return err
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// newBookCache uses Redis when it is configured and reachable, the in-process LRU otherwise
func newBookCache(cfg *config.Config) (services.BookCache, func()) {
	if cfg.Redis.Host != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := client.Ping(ctx).Err()
		if err == nil {
			logger.Logger.Info("Using Redis book cache", zap.String("addr", cfg.RedisAddr()))
			return cache.NewRedisBookCache(client, cfg.Cache.TTL, logger.Logger), func() { client.Close() }
		}
		logger.Logger.Warn("Redis is unreachable, falling back to in-memory book cache", zap.Error(err))
		client.Close()
	}

	return cache.NewMemoryBookCache(cfg.Cache.Size, cfg.Cache.TTL), func() {}
}
