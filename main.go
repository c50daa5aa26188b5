package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sairanjith101/acme-importer/apperrors"
	"github.com/sairanjith101/acme-importer/controllers"
	"github.com/sairanjith101/acme-importer/database"
	"github.com/sairanjith101/acme-importer/logger"
	"github.com/sairanjith101/acme-importer/models"
	"github.com/sairanjith101/acme-importer/progress"
	"github.com/sairanjith101/acme-importer/queue"
	"github.com/sairanjith101/acme-importer/repository"
	"github.com/sairanjith101/acme-importer/routes"
	"github.com/sairanjith101/acme-importer/services"
)

func main() {
	// Load .env file (optional, falls back to system env)
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	logger.Initialize(cfg.Env)
	defer zap.L().Sync()

	// --- 1. Backing stores ---

	db, err := database.ConnectPostgres(zap.L(),
		&models.Product{},
		&models.StagingProduct{},
		&models.Webhook{},
	)
	if err != nil {
		zap.L().Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}

	rdb := database.NewRedisClient()

	// --- 2. Dependency injection ---

	productRepo := repository.NewProductRepository(db)
	stagingRepo := repository.NewStagingRepository(db)
	webhookRepo := repository.NewWebhookRepository(db)

	progressStore := progress.NewRedisStore(rdb)
	jobQueue := queue.New(rdb)

	dispatcher := services.NewDispatcher(webhookRepo, jobQueue)
	importer := services.NewImporter(stagingRepo, productRepo, progressStore, dispatcher)
	deleter := services.NewDeleter(productRepo, progressStore)
	delivery := services.NewDeliveryWorker(webhookRepo, progressStore, jobQueue)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	worker := queue.NewWorker(jobQueue, cfg.WorkerConcurrency)
	services.RegisterHandlers(worker, importer, deleter, delivery)
	worker.Start(workerCtx)

	validator := controllers.NewRequestValidator()
	productController := controllers.NewProductController(productRepo, dispatcher, validator)
	importController := controllers.NewImportController(jobQueue, progressStore, validator, cfg.UploadStorageDir)
	deleteController := controllers.NewBulkDeleteController(jobQueue, progressStore)
	webhookController := controllers.NewWebhookController(webhookRepo, dispatcher, progressStore, validator)

	// --- 3. HTTP server ---

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger())
	r.Use(apperrors.ErrorMiddleware())

	routes.RegisterRoutes(r, productController, importController, deleteController, webhookController)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		zap.L().Info("Importer service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// --- 4. Graceful shutdown ---

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down importer service...")

	stopWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Fatal("Server forced to shutdown", zap.Error(err))
	}

	if err := rdb.Close(); err != nil {
		zap.L().Error("Failed to close Redis", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	zap.L().Info("Importer service stopped gracefully")
}
