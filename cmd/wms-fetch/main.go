package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/noah-isme/wms-imagery/internal/models"
	"github.com/noah-isme/wms-imagery/internal/repository"
	"github.com/noah-isme/wms-imagery/internal/service"
	"github.com/noah-isme/wms-imagery/pkg/config"
	"github.com/noah-isme/wms-imagery/pkg/database"
	"github.com/noah-isme/wms-imagery/pkg/interval"
	"github.com/noah-isme/wms-imagery/pkg/logger"
	"github.com/noah-isme/wms-imagery/pkg/storage"
	"github.com/noah-isme/wms-imagery/pkg/wms"
)

type fetchRecorder interface {
	Create(ctx context.Context, record *models.FetchRecord) error
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}

	logr, err := logger.NewConsole(cfg)
	if err != nil {
		log.Printf("failed to init logger: %v", err)
		return 1
	}
	defer logr.Sync() //nolint:errcheck

	store, err := storage.NewLocalStorage(cfg.WMS.OutputDir)
	if err != nil {
		logr.Error("failed to prepare output directory", zap.Error(err))
		return 1
	}
	urls, err := wms.NewURLBuilder(cfg.WMS.BaseURLTemplate, cfg.WMS.QueryParams)
	if err != nil {
		logr.Error("invalid WMS url template", zap.Error(err))
		return 1
	}

	var records fetchRecorder
	if cfg.Ledger.Enabled {
		db, err := database.NewPostgres(context.Background(), cfg.Database)
		if err != nil {
			logr.Error("failed to connect postgres", zap.Error(err))
			return 1
		}
		defer db.Close() //nolint:errcheck
		ledger := repository.NewFetchRecordRepository(db)
		if err := ledger.EnsureSchema(context.Background()); err != nil {
			logr.Error("failed to prepare fetch ledger", zap.Error(err))
			return 1
		}
		records = ledger
	}

	downloads := service.NewDownloadService(
		wms.NewClient(cfg.WMS.Timeout, cfg.WMS.UserAgent),
		store,
		urls,
		nil,
		records,
		interval.SystemClock{},
		service.NewMetricsService(),
		logr,
		service.DownloadServiceConfig{Workers: cfg.WMS.Workers, Location: cfg.WMS.Location},
	)

	a := &app{downloads: downloads, manifestPath: store.Path}
	if cfg.WMS.ManifestFormat != "" {
		format, ok := models.ParseManifestFormat(cfg.WMS.ManifestFormat)
		if !ok {
			logr.Error("unsupported WMS_MANIFEST_FORMAT", zap.String("format", cfg.WMS.ManifestFormat))
			return 1
		}
		a.manifests = service.NewManifestService(store, logr, nil, nil)
		a.manifestFormat = format
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.run(ctx, os.Args[1:], os.Stdin, os.Stdout)
}
