package app

import (
	"context"
	"fmt"
	"time"

	httpserver "github.com/yungbote/learnhub-backend/internal/http"
	"github.com/yungbote/learnhub-backend/internal/observability"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics
	Server   *httpserver.Server

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// New loads configuration from the environment (and app.env in configDir)
// and wires every component. Nothing runs until Start.
func New(ctx context.Context, configDir string) (*App, error) {
	cfg, err := LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.LogMode,
	})
	metrics := observability.Init(log)

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	reposet := wireRepos(clients.Postgres.DB(), log)
	serviceset, err := wireServices(log, cfg, clients, reposet, metrics)
	if err != nil {
		clients.Close()
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
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches background work: metric collectors, the dedicated metrics
// listener and the reconciliation schedule.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.Metrics != nil {
		a.Metrics.StartPostgresCollector(ctx, a.Log, "primary", a.Clients.Postgres.DB())
		if a.Clients.Postgres.SplitRoles() {
			a.Metrics.StartPostgresCollector(ctx, a.Log, "privileged", a.Clients.Postgres.Privileged())
		}
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
		}
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	}
	if err := a.Services.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start reconcile scheduler: %w", err)
	}
	return nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("Server listening", "addr", addr)
	return a.Server.Run(ctx, addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
		select {
		case <-a.Services.Scheduler.Done():
		case <-time.After(30 * time.Second):
			a.Log.Warn("reconcile scheduler did not stop in time")
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	a.Clients.Close()
	a.Log.Sync()
}
