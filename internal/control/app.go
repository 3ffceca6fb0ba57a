package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vietddude/sessionguard/internal/core/config"
	"github.com/vietddude/sessionguard/internal/core/domain"
	"github.com/vietddude/sessionguard/internal/infra/auth"
	"github.com/vietddude/sessionguard/internal/infra/cache"
	redisclient "github.com/vietddude/sessionguard/internal/infra/redis"
	"github.com/vietddude/sessionguard/internal/infra/resilience"
	"github.com/vietddude/sessionguard/internal/infra/resilience/classify"
	"github.com/vietddude/sessionguard/internal/infra/resilience/session"
	"github.com/vietddude/sessionguard/internal/infra/storage/memory"
	"github.com/vietddude/sessionguard/internal/infra/storage/postgres"
	"github.com/vietddude/sessionguard/internal/infra/transport"
	"github.com/vietddude/sessionguard/internal/monitoring/health"
)

// App owns the resilient client and everything it was built from.
type App struct {
	cfg          *config.AppConfig
	Client       *resilience.Client
	Store        domain.CredentialStore
	Cache        *cache.IdentityCache
	Events       *session.Broadcaster
	healthMon    *health.Monitor
	healthServer *health.Server
	grpc         *transport.GRPCTransport
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger
}

// NewApp builds the client stack described by cfg.
func NewApp(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{cfg: cfg, Events: session.NewBroadcaster(), log: logger}

	// 1. Credential store
	notifiers := []session.Notifier{a.Events}
	checks := map[string]health.Check{}

	switch cfg.Credentials.Backend {
	case config.BackendRedis:
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		a.redisClient = rc
		a.Store = rc.Credentials()
		notifiers = append(notifiers, rc.Publisher())
		checks["redis"] = rc.Ping
		logger.Info("Using redis credential store", "session", cfg.Redis.Session)

	case config.BackendPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		a.Store = postgres.NewCredentialRepo(db, cfg.Credentials.Session)
		checks["database"] = db.Health
		logger.Info("Using postgres credential store", "session", cfg.Credentials.Session)

	default:
		a.Store = memory.NewCredentialStore()
		logger.Info("Using in-memory credential store")
	}

	// 2. Identity cache
	identity, err := cache.NewIdentityCache(cfg.Cache.Size)
	if err != nil {
		a.closeBackends()
		return nil, fmt.Errorf("failed to init cache: %w", err)
	}
	a.Cache = identity

	// 3. Transports
	retry := cfg.Retry.TransportRetry()
	var graphQL transport.Transport
	if cfg.Endpoint.URL != "" {
		graphQL = transport.NewRetrying(
			transport.NewHTTPTransport(cfg.Endpoint.URL, a.Store, cfg.Endpoint.Timeout), retry, logger)
	}
	var grpcT transport.Transport
	if cfg.GRPC.Target != "" {
		g, err := transport.DialGRPC(cfg.GRPC.Target, a.Store)
		if err != nil {
			a.closeBackends()
			return nil, err
		}
		a.grpc = g
		grpcT = transport.NewRetrying(g, retry, logger)
	}

	// 4. Recovery
	classifierCfg, err := cfg.Classifier.Build(cfg.Endpoint.RefreshOperation)
	if err != nil {
		a.closeBackends()
		return nil, err
	}

	a.Client = resilience.New(resilience.Options{
		Transport:      transport.NewCached(transport.NewMux(graphQL, grpcT), identity),
		Store:          a.Store,
		Endpoint:       auth.NewRefreshClient(cfg.Endpoint.RefreshURL, cfg.Endpoint.RefreshOperation, cfg.Endpoint.Timeout),
		Classifier:     classify.New(classifierCfg),
		Caches:         []session.CacheResetter{identity},
		Notifiers:      notifiers,
		RefreshTimeout: cfg.Recovery.RefreshTimeout,
		Logger:         logger,
	})

	// 5. Health
	a.healthMon = health.NewMonitor(a.Client)
	for name, check := range checks {
		a.healthMon.AddCheck(name, check)
	}
	a.healthServer = health.NewServer(a.healthMon, cfg.Server.Port)

	return a, nil
}

// Start serves health and metrics and logs session-ended events until ctx ends.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}

	events, cancel := a.Events.Subscribe(4)
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				a.log.Warn("Session ended, login required", "reason", ev.Reason)
			}
		}
	}()

	a.log.Info("Health server listening", "port", a.cfg.Server.Port)
	return nil
}

// Stop shuts the health server down and closes backends.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping sessionguard...")
	a.closeBackends()
	return a.healthServer.Stop(ctx)
}

// Close releases backends without touching the health server.
func (a *App) Close() {
	a.closeBackends()
}

func (a *App) closeBackends() {
	if a.grpc != nil {
		if err := a.grpc.Close(); err != nil {
			a.log.Warn("Failed to close gRPC connection", "error", err)
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
}
