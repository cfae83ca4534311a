package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"remoteeye/internal/core/ports"
	"remoteeye/internal/core/services"
	httphandlers "remoteeye/internal/handlers/http"
	backupinfra "remoteeye/internal/infrastructure/backup"
	distributedinfra "remoteeye/internal/infrastructure/distributed"
	"remoteeye/internal/infrastructure/middleware"
	"remoteeye/internal/infrastructure/monitoring"
	"remoteeye/internal/infrastructure/relay"
	repositories "remoteeye/internal/infrastructure/repositories"
	"remoteeye/pkg/backup"
	"remoteeye/pkg/config"
	"remoteeye/pkg/distributed"
	"remoteeye/pkg/logger"
	"remoteeye/pkg/tracing"
	"remoteeye/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "1.0.0"

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/remoteeye/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	// Initialize logger
	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}

	// Initialize tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Initialize repository factory
	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	defer repoFactory.Close()

	// Initialize repositories
	deviceRepo := repoFactory.CreateDeviceRepository()
	commandRepo := repoFactory.CreateCommandRepository()
	pairingRepo := repoFactory.CreatePairingCodeRepository()
	recordingRepo := repoFactory.CreateRecordingRepository()

	// Initialize monitoring
	collector := monitoring.NewPrometheusCollector()

	// Initialize relay layer
	registry := relay.NewRegistry(collector, log)
	mediaRouter := relay.NewMediaRouter(registry, collector, log)

	// Initialize services
	commandService := services.NewCommandService(
		commandRepo,
		registry,
		cfg.Commands.PendingTTL,
		cfg.Commands.SweepInterval,
		collector,
		log,
	)
	// Presence events go straight to local controllers; with Redis enabled
	// they are also mirrored to controllers on other relay instances.
	var broadcaster ports.ControllerBroadcaster = registry
	var presenceBus *distributedinfra.PresenceBus
	if client := repoFactory.RedisClient(); client != nil {
		presenceBus = distributedinfra.NewPresenceBus(client, uuid.New().String(), registry, log)
		broadcaster = presenceBus
	}

	presenceService := services.NewPresenceService(deviceRepo, broadcaster, commandService, log)
	authService := services.NewAuthService(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
		cfg.Auth.PairingCodeTTL,
		deviceRepo,
		pairingRepo,
	)
	deviceService := services.NewDeviceService(deviceRepo, log)
	recordingService := services.NewRecordingService(recordingRepo, deviceRepo)

	// Initialize WebSocket server
	wsServer := relay.NewWebSocketServer(
		authService,
		presenceService,
		commandService,
		registry,
		mediaRouter,
		collector,
		cfg,
		log,
	)

	// Health checker probes the stores behind /ready
	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddRepositoryCheck(deviceRepo, 2*time.Second)
	if client := repoFactory.RedisClient(); client != nil {
		healthChecker.AddRedisCheck(client, 2*time.Second)
	}

	// Initialize HTTP handlers
	authHandler := httphandlers.NewAuthHandler(authService)
	deviceHandler := httphandlers.NewDeviceHandler(deviceService, commandService, authService)
	recordingHandler := httphandlers.NewRecordingHandler(recordingService, authService)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	authHandler.SetupRoutes(router)
	deviceHandler.SetupRoutes(router)
	recordingHandler.SetupRoutes(router)

	// WebSocket endpoint for device and controller sessions
	router.GET("/ws", func(c *gin.Context) {
		wsServer.HandleWebSocket(c.Writer, c.Request)
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    utils.FormatDuration(time.Since(startTime)),
		})
	})

	// Readiness endpoint backed by dependency probes
	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := healthChecker.CheckAll(ctx)
		if status.Status != "healthy" {
			c.JSON(503, status)
			return
		}
		c.JSON(200, status)
	})

	// Prometheus metrics endpoint
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())

	if presenceBus != nil {
		go func() {
			if err := presenceBus.Run(bgCtx); err != nil && bgCtx.Err() == nil {
				log.Errorw("presence bus stopped", "error", err)
			}
		}()
	}

	// Background sweeper expires stale pending commands. With Redis enabled,
	// a distributed lock keeps one instance sweeping at a time.
	go func() {
		client := repoFactory.RedisClient()
		if client == nil {
			commandService.Run(bgCtx)
			return
		}

		lock := distributed.NewDistributedLock(client, "remoteeye:locks:command-sweeper", 30*time.Second)
		for {
			acquired, err := lock.TryLock(bgCtx)
			if err != nil {
				log.Warnw("command sweeper lock attempt failed", "error", err)
			}
			if acquired {
				defer lock.Unlock(context.Background())
				commandService.Run(bgCtx)
				return
			}

			select {
			case <-bgCtx.Done():
				return
			case <-time.After(15 * time.Second):
			}
		}
	}()

	// Scheduled snapshots of the device registry and recording index
	if cfg.Backup.Enabled {
		storage, err := backup.NewFileStorage(cfg.Backup.Dir)
		if err != nil {
			log.Fatalw("failed to initialize backup storage", "error", err)
		}
		snapshots := backup.NewService(storage, version)

		if cfg.Backup.RestoreOnStart != "" {
			restoreService := backupinfra.NewRestoreService(snapshots, deviceRepo, recordingRepo, log)
			if err := restoreService.RestoreFromBackup(bgCtx, cfg.Backup.RestoreOnStart, backupinfra.DefaultRestoreOptions()); err != nil {
				log.Fatalw("failed to restore from snapshot",
					"snapshot", cfg.Backup.RestoreOnStart,
					"error", err,
				)
			}
		}

		scheduler := backupinfra.NewScheduler(snapshots, deviceRepo, recordingRepo, backupinfra.Config{
			Interval:      cfg.Backup.Interval,
			RetentionDays: cfg.Backup.RetentionDays,
		}, log)
		go scheduler.Start(bgCtx)
	}

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting RemoteEye relay server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for shutdown signals or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down RemoteEye relay server...")

	bgCancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Shutdown HTTP server gracefully
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	// Drop any sessions that survived the HTTP shutdown
	registry.CloseAll()

	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Errorw("Error shutting down tracer provider", "error", err)
		}
	}

	// Close repository factory
	if err := repoFactory.Close(); err != nil {
		log.Errorw("Error closing repository factory", "error", err)
	}

	log.Info("RemoteEye relay server stopped")
}
