package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/socialreel-backend/internal/clients/embed"
	"github.com/yungbote/socialreel-backend/internal/data/db"
	mediarepo "github.com/yungbote/socialreel-backend/internal/data/repos/media"
	apphttp "github.com/yungbote/socialreel-backend/internal/http"
	httpH "github.com/yungbote/socialreel-backend/internal/http/handlers"
	"github.com/yungbote/socialreel-backend/internal/montage"
	"github.com/yungbote/socialreel-backend/internal/platform/gcp"
	"github.com/yungbote/socialreel-backend/internal/platform/localmedia"
	"github.com/yungbote/socialreel-backend/internal/platform/logger"
)

type App struct {
	Log          *logger.Logger
	DB           *gorm.DB
	Server       *apphttp.Server
	Router       *gin.Engine
	Cfg          Config
	Orchestrator *montage.Orchestrator
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig()

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	itemRepo := mediarepo.NewItemRepo(theDB, log)

	bucket, err := gcp.NewBucketService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init bucket service: %w", err)
	}

	backend := localmedia.New(log)
	if err := backend.AssertReady(context.Background()); err != nil {
		log.Sync()
		return nil, fmt.Errorf("check local media tooling: %w", err)
	}

	embedClient, err := embed.NewClient(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init embed client: %w", err)
	}

	if err := os.MkdirAll(cfg.WorkRoot, 0o755); err != nil {
		log.Sync()
		return nil, fmt.Errorf("create work root: %w", err)
	}

	embedder := montage.NewFrameEmbedder(log, backend, embedClient)
	composer := montage.NewComposer(log, backend)
	reconciler := montage.NewReconciler(log, itemRepo, bucket, backend, embedder, composer, cfg.WorkRoot)
	orchestrator := montage.NewOrchestrator(log, reconciler, itemRepo)

	server := apphttp.NewServer(apphttp.RouterConfig{
		Log:            log,
		ServiceName:    cfg.ServiceName,
		APIBearerToken: cfg.APIBearerToken,
		HealthHandler:  httpH.NewHealthHandler(),
		MontageHandler: httpH.NewMontageHandler(orchestrator),
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Router:       server.Engine,
		Cfg:          cfg,
		Orchestrator: orchestrator,
	}, nil
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Starting HTTP server", "addr", a.Cfg.ListenAddr)
	return a.Server.Run(a.Cfg.ListenAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
