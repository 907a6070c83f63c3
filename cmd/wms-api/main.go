package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/wms-imagery/api/swagger"
	"github.com/noah-isme/wms-imagery/internal/handler"
	internalmiddleware "github.com/noah-isme/wms-imagery/internal/middleware"
	"github.com/noah-isme/wms-imagery/internal/models"
	"github.com/noah-isme/wms-imagery/internal/repository"
	"github.com/noah-isme/wms-imagery/internal/service"
	"github.com/noah-isme/wms-imagery/pkg/cache"
	"github.com/noah-isme/wms-imagery/pkg/config"
	"github.com/noah-isme/wms-imagery/pkg/database"
	"github.com/noah-isme/wms-imagery/pkg/interval"
	"github.com/noah-isme/wms-imagery/pkg/logger"
	corsmiddleware "github.com/noah-isme/wms-imagery/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/wms-imagery/pkg/middleware/requestid"
	"github.com/noah-isme/wms-imagery/pkg/storage"
	"github.com/noah-isme/wms-imagery/pkg/wms"
)

// @title WMS Imagery API
// @version 0.1.0
// @description Enumerates half-hour WMS slots and downloads satellite tiles
// @BasePath /
// @schemes http

type runStore interface {
	Save(ctx context.Context, run *models.Run) error
	Get(ctx context.Context, id string) (*models.Run, error)
}

type fetchRecorder interface {
	Create(ctx context.Context, record *models.FetchRecord) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := storage.NewLocalStorage(cfg.WMS.OutputDir)
	if err != nil {
		logr.Fatal("failed to prepare output directory", zap.Error(err))
	}
	urls, err := wms.NewURLBuilder(cfg.WMS.BaseURLTemplate, cfg.WMS.QueryParams)
	if err != nil {
		logr.Fatal("invalid WMS url template", zap.Error(err))
	}
	client := wms.NewClient(cfg.WMS.Timeout, cfg.WMS.UserAgent)
	metricsSvc := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	var runs runStore = repository.NewMemoryRunRepository()
	if cfg.RunCache.Enabled {
		redisClient, err := cache.NewRedis(context.Background(), cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
		runs = repository.NewCachedRunRepository(cacheRepo, cfg.RunCache.TTL)
		checks["redis"] = cacheRepo.Ping
	}

	var records fetchRecorder
	var recordHandler *handler.RecordHandler
	if cfg.Ledger.Enabled {
		db, err := database.NewPostgres(context.Background(), cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer db.Close() //nolint:errcheck
		ledger := repository.NewFetchRecordRepository(db)
		if err := ledger.EnsureSchema(context.Background()); err != nil {
			logr.Fatal("failed to prepare fetch ledger", zap.Error(err))
		}
		records = ledger
		recordHandler = handler.NewRecordHandler(service.NewRecordService(ledger))
		checks["postgres"] = postgresCheck(db)
	}

	downloadSvc := service.NewDownloadService(client, store, urls, runs, records, interval.SystemClock{}, metricsSvc, logr, service.DownloadServiceConfig{
		Workers:  cfg.WMS.Workers,
		Location: cfg.WMS.Location,
	})
	manifestSvc := service.NewManifestService(store, logr, nil, nil)

	secret := signingSecret(cfg.Storage.SignedURLSecret, logr)
	tileSvc := service.NewTileService(storage.NewSignedURLSigner(secret, cfg.Storage.SignedURLTTL), store, service.TileConfig{APIPrefix: cfg.APIPrefix})

	downloadHandler := handler.NewDownloadHandler(downloadSvc, tileSvc, manifestSvc, cfg.APIPrefix)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/intervals", downloadHandler.Intervals)
	api.POST("/downloads", downloadHandler.Create)
	api.GET("/downloads/:id", downloadHandler.Get)
	api.GET("/downloads/:id/manifest", downloadHandler.Manifest)
	if recordHandler != nil {
		api.GET("/downloads/:id/records", recordHandler.List)
	}
	api.GET("/tiles/:token", downloadHandler.Tile)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "output_dir", store.BaseDir(), "workers", cfg.WMS.Workers)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
	if err := downloadSvc.Wait(ctx); err != nil {
		logr.Warn("download runs still in flight at exit", zap.Error(err))
	}
	logr.Info("server stopped")
}

// signingSecret falls back to a per-process secret; links issued with it
// stop verifying after a restart.
func signingSecret(configured string, logr *zap.Logger) string {
	if configured != "" {
		return configured
	}
	logr.Warn("TILES_SIGNED_URL_SECRET not set, using an ephemeral secret")
	return uuid.NewString()
}

func postgresCheck(db *sqlx.DB) handler.ReadinessCheck {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}
