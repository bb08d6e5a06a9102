package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/triage"
	"github.com/aretw0/triage/internal/config"
	"github.com/aretw0/triage/pkg/adapters/agents"
	"github.com/aretw0/triage/pkg/adapters/file"
	"github.com/aretw0/triage/pkg/adapters/memory"
	"github.com/aretw0/triage/pkg/adapters/postgres"
	"github.com/aretw0/triage/pkg/adapters/process"
	"github.com/aretw0/triage/pkg/adapters/redis"
	"github.com/aretw0/triage/pkg/audit"
	"github.com/aretw0/triage/pkg/formulary"
	"github.com/aretw0/triage/pkg/observability"
	"github.com/aretw0/triage/pkg/orchestrator"
	"github.com/aretw0/triage/pkg/persistence/middleware"
	"github.com/aretw0/triage/pkg/ports"
	"github.com/aretw0/triage/pkg/submission"
)

// LockPrefix namespaces distributed submission locks in Redis.
const LockPrefix = "triage:lock:"

// Postgres pool bounds.
const (
	postgresMaxConns = 10
	postgresMinConns = 1
)

// App is the wired service with the resources it owns.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Service *triage.Service
	Metrics *observability.Metrics

	closers []func() error
}

// NewApp builds the service from cfg. The caller must Close the App.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}
	if cfg.Metrics.Enabled {
		app.Metrics = observability.NewMetrics()
	}

	set, err := loadFormulary(ctx, cfg.Formulary)
	if err != nil {
		return nil, err
	}

	var svcOpts []triage.Option
	store, checks, locker, err := app.openStore(ctx, cfg.Store)
	if err != nil {
		app.Close()
		return nil, err
	}
	for name, check := range checks {
		svcOpts = append(svcOpts, triage.WithReadinessCheck(name, check))
	}

	if cfg.Store.EncryptionKey != "" {
		key, err := middleware.ParseKey(cfg.Store.EncryptionKey)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("store.encryption_key: %w", err)
		}
		store = middleware.Chain(store, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}

	agentOpts, err := agentOptions(set, cfg.Agents, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	hooks := observability.LogHooks(logger)
	if app.Metrics != nil {
		hooks = hooks.Merge(app.Metrics.Hooks())
	}
	orchOpts := append([]orchestrator.Option{
		orchestrator.WithConfig(cfg.Orchestrator),
		orchestrator.WithLogger(logger),
		orchestrator.WithLifecycleHooks(hooks),
	}, agentOpts...)
	orch := orchestrator.New(set, orchOpts...)

	subOpts := []submission.Option{submission.WithLogger(logger)}
	if locker != nil {
		subOpts = append(subOpts, submission.WithLocker(locker))
	}
	manager := submission.NewManager(orch, audit.NewRepository(store), subOpts...)

	svcOpts = append(svcOpts, triage.WithLogger(logger))
	app.Service = triage.New(set, manager, svcOpts...)

	logger.Info("service ready",
		"store", cfg.Store.Driver,
		"agents", cfg.Agents.Mode,
		"default_locale", set.DefaultLocale(),
		"encrypted", cfg.Store.EncryptionKey != "",
	)
	return app, nil
}

// MetricsHandler returns the Prometheus handler, or nil when metrics are off.
func (a *App) MetricsHandler() http.Handler {
	if a.Metrics == nil {
		return nil
	}
	return a.Metrics.Handler()
}

// Close releases every backend connection.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func loadFormulary(ctx context.Context, cfg config.FormularyConfig) (*formulary.Set, error) {
	set, err := formulary.Default()
	if err != nil {
		return nil, err
	}
	if cfg.Dir != "" {
		tables, err := formulary.LoadDir(ctx, cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("load formulary overrides: %w", err)
		}
		if set, err = set.WithOverrides(tables...); err != nil {
			return nil, fmt.Errorf("merge formulary overrides: %w", err)
		}
	}
	if cfg.DefaultLocale != "" {
		if set, err = set.WithDefaultLocale(cfg.DefaultLocale); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func (a *App) openStore(ctx context.Context, cfg config.StoreConfig) (ports.AuditStore, map[string]triage.ReadinessCheck, ports.DistributedLocker, error) {
	checks := make(map[string]triage.ReadinessCheck)

	switch cfg.Driver {
	case config.DriverFile:
		store := file.New(cfg.FileDir)
		checks["file"] = store.Ping
		return store, checks, nil, nil

	case config.DriverRedis:
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, client.Close)
		store := redis.NewFromClient(client, redis.WithPrefix(cfg.RedisPrefix), redis.WithTTL(cfg.RedisTTL))
		checks["redis"] = store.Ping

		var locker ports.DistributedLocker
		if cfg.DistributedLock {
			locker = redis.NewLocker(client, LockPrefix)
		}
		return store, checks, locker, nil

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN, postgresMaxConns, postgresMinConns)
		if err != nil {
			return nil, nil, nil, err
		}
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})
		var opts []postgres.Option
		if cfg.PostgresTable != "" {
			opts = append(opts, postgres.WithTable(cfg.PostgresTable))
		}
		store := postgres.New(pool, opts...)
		if err := store.Migrate(ctx); err != nil {
			return nil, nil, nil, err
		}
		checks["postgres"] = pool.Ping
		return store, checks, nil, nil
	}

	return memory.NewStore(), checks, nil, nil
}

func agentOptions(set *formulary.Set, cfg config.AgentsConfig, logger *slog.Logger) ([]orchestrator.Option, error) {
	switch cfg.Mode {
	case config.AgentsNone:
		return nil, nil

	case config.AgentsGateway:
		gw := agents.NewGateway(cfg.BaseURL,
			agents.WithAPIKey(cfg.APIKey),
			agents.WithModel(cfg.Model),
			agents.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
			agents.WithGatewayLogger(logger),
		)
		version := "gateway"
		if cfg.Model != "" {
			version += "/" + cfg.Model
		}
		c := agents.NewClient(gw, version)
		return []orchestrator.Option{
			orchestrator.WithReasoner(c),
			orchestrator.WithSafetyReviewer(c),
			orchestrator.WithSummarizer(c),
			orchestrator.WithVerifier(c),
			orchestrator.WithEvidenceSynthesizer(c),
		}, nil

	case config.AgentsProcess:
		registry, err := process.LoadAgents(cfg.ProcessConfig)
		if err != nil {
			return nil, fmt.Errorf("load agent processes: %w", err)
		}
		runner := process.NewRunner(process.WithRegistry(registry), process.WithLogger(logger))
		c := agents.NewClient(runner, "process")
		return processOptions(runner, c), nil
	}

	l := agents.NewLocal(set)
	return []orchestrator.Option{
		orchestrator.WithReasoner(l),
		orchestrator.WithSafetyReviewer(l),
		orchestrator.WithSummarizer(l),
		orchestrator.WithVerifier(l),
		orchestrator.WithEvidenceSynthesizer(l),
	}, nil
}

// processOptions wires only the roles that have a registered process. An
// unwired role degrades as not configured instead of being spawned and retried.
func processOptions(runner *process.Runner, c *agents.Client) []orchestrator.Option {
	var opts []orchestrator.Option
	if runner.Has(agents.RoleReasoner) {
		opts = append(opts, orchestrator.WithReasoner(c))
	}
	if runner.Has(agents.RoleSafetyReviewer) {
		opts = append(opts, orchestrator.WithSafetyReviewer(c))
	}
	if runner.Has(agents.RoleSummarizer) {
		opts = append(opts, orchestrator.WithSummarizer(c))
	}
	if runner.Has(agents.RoleVerifier) {
		opts = append(opts, orchestrator.WithVerifier(c))
	}
	if runner.Has(agents.RoleEvidence) {
		opts = append(opts, orchestrator.WithEvidenceSynthesizer(c))
	}
	return opts
}
