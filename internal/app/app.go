package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/estrella-backend/internal/data/db"
	"github.com/yungbote/estrella-backend/internal/http"
	"github.com/yungbote/estrella-backend/internal/observability"
	"github.com/yungbote/estrella-backend/internal/pkg/logger"
	"github.com/yungbote/estrella-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	SSEHub   *realtime.SSEHub
	Metrics  *observability.Metrics

	dbService    *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
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
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	metrics := observability.Init(log)

	dbService, err := db.Open(log, db.Options{
		Driver:           cfg.DBDriver,
		PostgresHost:     cfg.PostgresHost,
		PostgresPort:     cfg.PostgresPort,
		PostgresUser:     cfg.PostgresUser,
		PostgresPassword: cfg.PostgresPassword,
		PostgresName:     cfg.PostgresName,
		PostgresSSLMode:  cfg.PostgresSSLMode,
		SQLitePath:       cfg.SQLitePath,
	})
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := dbService.DB()
	if cfg.CatalogSeed {
		if _, err := db.SeedCatalog(context.Background(), theDB, log); err != nil {
			_ = dbService.Close()
			log.Sync()
			return nil, err
		}
	}

	reposet := wireRepos(theDB, log)

	clientset, err := wireClients(log, cfg, reposet)
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	ssehub := realtime.NewSSEHub(log)

	serviceset, err := wireServices(theDB, log, cfg, reposet, clientset)
	if err != nil {
		clientset.Close()
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}
	if err := serviceset.Auth.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
		clientset.Close()
		_ = dbService.Close()
		log.Sync()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	handlerset := wireHandlers(log, theDB, serviceset, clientset, ssehub)
	middleware := wireMiddleware(log, serviceset)
	router := wireRouter(log, cfg, handlerset, middleware, metrics)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clientset,
		Services:     serviceset,
		SSEHub:       ssehub,
		Metrics:      metrics,
		dbService:    dbService,
		otelShutdown: otelShutdown,
	}, nil
}

// Start subscribes the hub to the bus, primes the catalog and launches the
// background loops. A failed catalog load is not fatal: reads report
// catalog_unavailable until an admin write or ?refresh=true reloads it.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Clients.SSEBus.StartForwarder(ctx, func(m realtime.SSEMessage) {
			a.SSEHub.Broadcast(m)
			a.Services.CatalogCache.HandleMessage(ctx, m)
		})
	})
	g.Go(func() error {
		if err := a.Services.CatalogCache.Refresh(gctx); err != nil {
			a.Log.Warn("Initial catalog load failed", "error", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("start SSE forwarder: %w", err)
	}

	go a.sweepSessions(ctx)

	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	a.Metrics.StartDBCollector(ctx, a.Log, a.DB)
	if a.Clients.Redis != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
	}
	return nil
}

func (a *App) sweepSessions(ctx context.Context) {
	interval := a.Cfg.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := a.Services.Checkout.Sweep(ctx, now); n > 0 {
				a.Log.Debug("Swept idle checkout sessions", "count", n)
			}
		}
	}
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return http.NewServer(a.Log, a.Router).Run(ctx, ":"+a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
