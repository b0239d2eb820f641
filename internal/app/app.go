package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/bigocean-backend/internal/data/db"
	apphttp "github.com/yungbote/bigocean-backend/internal/http"
	"github.com/yungbote/bigocean-backend/internal/observability"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
	"github.com/yungbote/bigocean-backend/internal/services"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics
	Server   *apphttp.Server

	shutdownOTel func(context.Context) error
}

func newLogger(cfg Config) (*logger.Logger, error) {
	log, err := logger.NewWithLevel(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

func New(ctx context.Context, cfg Config) (*App, error) {
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.LogMode == "prod" || cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownOTel := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.Init(cfg.MetricsEnabled)

	clients, err := wireClients(log, cfg, metrics)
	if err != nil {
		log.Sync()
		return nil, err
	}
	if err := clients.DB.AutoMigrateAll(); err != nil {
		clients.Close(log)
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	reposet := wireRepos(clients.DB.DB(), log)
	serviceset, err := wireServices(clients.DB.DB(), log, cfg, clients, reposet, metrics)
	if err != nil {
		clients.Close(log)
		log.Sync()
		return nil, err
	}

	return &App{
		Log:          log,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Metrics:      metrics,
		Server:       wireServer(log, cfg, clients, serviceset, metrics),
		shutdownOTel: shutdownOTel,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then waits for background analyses to drain.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)
	a.Metrics.StartRedisCollector(gctx, a.Log, a.Clients.Redis, 15*time.Second)

	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTPAddr)
		return a.Server.Run(gctx, a.Cfg.HTTPAddr, a.Cfg.ShutdownTimeout)
	})
	err := g.Wait()
	a.Log.Info("waiting for background analyses")
	a.Services.Assessment.Wait()
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close(a.Log)
	if a.shutdownOTel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.shutdownOTel(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	a.Log.Sync()
}

// Migrate creates or updates the assessment tables without starting the server.
func Migrate(cfg Config) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()
	svc, err := db.Open(log, cfg.DB)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer svc.Close()
	if err := svc.AutoMigrateAll(); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	log.Info("migrations applied", "driver", svc.Driver())
	return nil
}

// IssueToken signs an access token for local testing against the API.
func IssueToken(cfg Config, subject string, ttl time.Duration) (string, error) {
	userID, err := uuid.Parse(subject)
	if err != nil {
		return "", fmt.Errorf("subject must be a user uuid: %w", err)
	}
	auth, err := services.NewAuthService(logger.NewNop(), cfg.JWTSecretKey)
	if err != nil {
		return "", err
	}
	return auth.IssueAccessToken(userID, ttl)
}
