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

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"secureshare/config"
	"secureshare/controllers"
	"secureshare/database"
	"secureshare/middleware"
	"secureshare/repository"
	"secureshare/routes"
	"secureshare/services"
	"secureshare/storage"
	"secureshare/utils"
)

// Application represents the main application structure
type Application struct {
	config      *config.Config
	logger      *logrus.Logger
	dbManager   *database.Manager
	blobs       storage.BlobStore
	fileService *services.FileService
	sweeper     *services.Sweeper
	rateLimiter *middleware.RateLimiter
	router      *gin.Engine
	server      *http.Server
}

// NewApplication connects the stores and assembles services, router and
// server. Nothing is listening yet.
func NewApplication(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Application, error) {
	app := &Application{config: cfg, logger: logger}

	if err := app.initializeDatabase(ctx); err != nil {
		app.closeResources()
		return nil, fmt.Errorf("database initialization failed: %w", err)
	}

	repo, err := app.newRepository()
	if err != nil {
		app.closeResources()
		return nil, err
	}

	blobs, err := storage.NewBlobStore(storage.Options{
		Backend:    cfg.BlobBackend,
		LocalPath:  cfg.UploadPath,
		BucketName: cfg.GridFSBucket,
		S3: storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
		},
	}, app.database())
	if err != nil {
		app.closeResources()
		return nil, fmt.Errorf("storage initialization failed: %w", err)
	}
	app.blobs = blobs

	app.fileService = services.NewFileService(repo, blobs, utils.NewPasswordHasher(cfg.BcryptCost), services.Options{
		MaxFileSize:       cfg.MaxUploadSize,
		AllowedExtensions: cfg.AllowedExtTypes,
		DefaultTTLHours:   cfg.DefaultTTLHours,
		MaxTTLHours:       cfg.MaxTTLHours,
		ReadRetryAttempts: cfg.ReadRetryAttempts,
	}, logger)

	if cfg.SweepSchedule != "" {
		sweeper, err := services.NewSweeper(app.fileService, cfg.SweepSchedule, logger)
		if err != nil {
			app.closeResources()
			return nil, err
		}
		app.sweeper = sweeper
	}

	app.router = app.setupRouter()
	app.server = &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           app.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// initializeDatabase connects to MongoDB when either store lives there.
func (app *Application) initializeDatabase(ctx context.Context) error {
	cfg := app.config
	if cfg.MetadataDriver != "mongo" && cfg.BlobBackend != storage.BackendGridFS {
		app.logger.Info("MongoDB not required by the configured drivers")
		return nil
	}

	app.dbManager = database.NewManager(database.DefaultConfig(cfg.MongoURI, cfg.DBName), app.logger)
	if err := app.dbManager.Connect(ctx); err != nil {
		return err
	}

	if cfg.MetadataDriver == "mongo" {
		if err := app.dbManager.RunMigrations(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (app *Application) newRepository() (repository.FileRepository, error) {
	switch app.config.MetadataDriver {
	case "mongo":
		return repository.NewMongoFileRepository(database.NewCollections(app.dbManager).Files()), nil
	case "memory":
		app.logger.Warn("Using in-memory metadata store; records are lost on restart")
		return repository.NewMemoryFileRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported metadata driver: %s", app.config.MetadataDriver)
	}
}

func (app *Application) database() *mongo.Database {
	if app.dbManager == nil {
		return nil
	}
	return app.dbManager.GetDatabase()
}

func (app *Application) setupRouter() *gin.Engine {
	cfg := app.config

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Trust proxies for proper client IP detection
	if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
		app.logger.WithError(err).Warn("Failed to set trusted proxies")
	}

	if cfg.RateLimitEnabled {
		app.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPM, cfg.RateLimitBurst)
	}

	checks := map[string]controllers.HealthChecker{"storage": app.blobs}
	if app.dbManager != nil {
		checks["database"] = app.dbManager
	}

	routes.SetupRoutes(router, routes.Dependencies{
		Files:          controllers.NewFileController(app.fileService, cfg.MaxUploadSize, cfg.HideUnavailable, app.logger),
		Health:         controllers.NewHealthController(cfg.AppName, cfg.AppVersion, cfg.Environment, app.blobs.GetProviderInfo(), checks),
		Tokens:         utils.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL),
		RateLimiter:    app.rateLimiter,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         app.logger,
	})

	return router
}

// Start runs the sweeper and the HTTP server until SIGINT or SIGTERM.
func (app *Application) Start() error {
	app.logStartupInfo()

	if app.sweeper != nil {
		app.sweeper.Start()
	}

	serverErr := make(chan error, 1)
	go func() {
		app.logger.WithField("addr", app.server.Addr).Info("Server starting")
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case sig := <-quit:
		app.logger.WithField("signal", sig.String()).Info("Shutdown signal received")
	case err, ok := <-serverErr:
		if ok {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	}

	app.shutdown()
	return runErr
}

// shutdown gracefully shuts down the application
func (app *Application) shutdown() {
	app.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.WithError(err).Error("Server forced to shutdown")
	}

	app.closeResources()
	app.logger.Info("Server shutdown complete")
}

// closeResources stops background work and closes the database.
func (app *Application) closeResources() {
	if app.sweeper != nil {
		app.sweeper.Stop()
	}
	if app.rateLimiter != nil {
		app.rateLimiter.Stop()
	}
	if app.dbManager != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.dbManager.Close(ctx); err != nil {
			app.logger.WithError(err).Error("Error closing database")
		}
	}
}

func (app *Application) logStartupInfo() {
	cfg := app.config
	provider := app.blobs.GetProviderInfo()
	app.logger.WithFields(logrus.Fields{
		"version":         cfg.AppVersion,
		"environment":     cfg.Environment,
		"metadata_driver": cfg.MetadataDriver,
		"blob_backend":    cfg.BlobBackend,
		"blob_provider":   provider.Name,
		"blob_endpoint":   provider.Endpoint,
		"max_upload":      utils.FormatFileSize(cfg.MaxUploadSize),
		"sweep_schedule":  cfg.SweepSchedule,
		"rate_limiting":   cfg.RateLimitEnabled,
	}).Infof("Starting %s", cfg.AppName)
}

// openExpiryJob connects only the metadata store for a one-shot sweep.
// The returned func closes the connection.
func openExpiryJob(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*services.ExpiryJob, func(), error) {
	if cfg.MetadataDriver != "mongo" {
		return nil, nil, fmt.Errorf("sweep needs a persistent metadata store, METADATA_DRIVER=%s keeps records in process memory", cfg.MetadataDriver)
	}

	dbManager := database.NewManager(database.DefaultConfig(cfg.MongoURI, cfg.DBName), logger)
	if err := dbManager.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("database initialization failed: %w", err)
	}

	closeDB := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := dbManager.Close(closeCtx); err != nil {
			logger.WithError(err).Error("Error closing database")
		}
	}

	repo := repository.NewMongoFileRepository(database.NewCollections(dbManager).Files())
	return services.NewExpiryJob(repo, logger), closeDB, nil
}
