package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roster/roster/internal/config"
	"github.com/roster/roster/internal/health"
	"github.com/roster/roster/internal/postgres"
	"github.com/roster/roster/internal/users"
)

// AppState holds all application services
type AppState struct {
	DB          *bun.DB
	Logger      *zap.Logger
	Config      *config.Config
	UserService users.UserService
	Health      *health.Manager
}

func main() {
	config.Load()

	logger := initLogger()
	logger.Info("Configuration loaded")

	as, err := newAppState(logger)
	if err != nil {
		logger.Fatal("Failed to initialize application state", zap.Error(err))
	}

	ctx := context.Background()
	if err := users.CreateTables(ctx, as.DB); err != nil {
		logger.Fatal("Failed to create tables", zap.Error(err))
	}
	if err := users.CreateIndexes(ctx, as.DB); err != nil {
		logger.Fatal("Failed to create indexes", zap.Error(err))
	}

	if err := as.Health.StartupHealthCheck(ctx); err != nil {
		logger.Fatal("Startup health check failed", zap.Error(err))
	}

	router := setupRouter(as)

	addr := fmt.Sprintf("%s:%d", config.Http().Host, config.Http().Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	done := setupSignalHandler(as, server, logger)

	logger.Info("Starting Roster server", zap.String("address", addr))

	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	<-done
	logger.Info("Server shutdown complete")
}

// newAppState creates and initializes the application state
func newAppState(logger *zap.Logger) (*AppState, error) {
	pgConfig := config.Postgres()

	logger.Info("Database configuration",
		zap.String("host", pgConfig.Host),
		zap.Int("port", pgConfig.Port),
		zap.String("database", pgConfig.Database),
		zap.String("user", pgConfig.User))

	db := postgres.NewDB(pgConfig.DSN(), pgConfig.MaxOpenConnections)

	userStore := users.NewPostgresStore(db)
	userService := users.NewService(userStore, logger)

	healthManager := health.NewManager(logger)
	healthManager.AddChecker(health.NewConfigChecker(config.Get()))
	healthManager.AddChecker(health.NewDatabaseChecker(db))

	return &AppState{
		DB:          db,
		Logger:      logger,
		Config:      config.Get(),
		UserService: userService,
		Health:      healthManager,
	}, nil
}

func initLogger() *zap.Logger {
	logConfig := config.Logger()

	var zapConfig zap.Config
	if logConfig.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	switch logConfig.Level {
	case "debug":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapConfig.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	return logger
}

// RequestIDMiddleware tags every request with an id for log correlation
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func setupRouter(as *AppState) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(cors.Default())
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())

	router.GET("/health", func(c *gin.Context) {
		ctx := c.Request.Context()

		results := as.Health.RuntimeHealthCheck(ctx)
		services := gin.H{}
		healthy := true
		for name, err := range results {
			if err != nil {
				healthy = false
				services[name] = "unhealthy"
			} else {
				services[name] = "healthy"
			}
		}

		status := http.StatusOK
		statusText := "healthy"
		if !healthy {
			status = http.StatusServiceUnavailable
			statusText = "unhealthy"
		}

		c.JSON(status, gin.H{
			"status":    statusText,
			"timestamp": time.Now().Format(time.RFC3339),
			"services":  services,
		})
	})

	api := router.Group("/api/v1")
	userHandlers := users.NewUserHandlers(as.UserService, as.Logger)
	userHandlers.RegisterRoutes(api)

	return router
}

func setupSignalHandler(as *AppState, server *http.Server, logger *zap.Logger) chan struct{} {
	done := make(chan struct{}, 1)

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signalCh

		logger.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Error during server shutdown", zap.Error(err))
		}

		if err := as.DB.Close(); err != nil {
			logger.Error("Error closing database", zap.Error(err))
		}

		done <- struct{}{}
	}()

	return done
}
