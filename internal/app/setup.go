package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/finsight/finsight-api/internal/cache"
	"github.com/finsight/finsight-api/internal/providers"
	"github.com/finsight/finsight-api/internal/research"
	"github.com/finsight/finsight-api/pkg/config"
	"github.com/finsight/finsight-api/pkg/healthprobe"
	"github.com/finsight/finsight-api/pkg/httpserver"
	"github.com/finsight/finsight-api/pkg/kvstore"
	"go.uber.org/zap"
)

// cacheDomains are the logical cache categories, one store table each.
var cacheDomains = []string{"fundamentals", "quotes", "macro", "assessments", "snapshots"}

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	stores, db, err := setupStores(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup stores: %w", err)
	}

	if db != nil {
		healthChecker.SetReadinessCheck(func(r *http.Request) error {
			return db.PingContext(r.Context())
		})
	}

	service := setupService(cfg, logger, stores)
	httpServer := setupHTTPServer(cfg, logger, healthChecker, service)

	// The memory driver shares one store across domains; close each store once.
	ordered := make([]kvstore.Store, 0, len(stores))
	seen := make(map[kvstore.Store]bool, len(stores))
	for _, domain := range cacheDomains {
		store := stores[domain]
		if seen[store] {
			continue
		}
		seen[store] = true
		ordered = append(ordered, store)
	}

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		service:       service,
		stores:        ordered,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// setupStores builds one durable store per cache domain on the configured
// driver. SQL drivers share one connection pool; the returned *sql.DB is nil
// for the memory driver.
func setupStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (map[string]kvstore.Store, *sql.DB, error) {
	stores := make(map[string]kvstore.Store, len(cacheDomains))

	switch cfg.StoreDriver {
	case "postgres":
		db, err := kvstore.OpenPostgres(&kvstore.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}

		for i, domain := range cacheDomains {
			store, err := kvstore.NewPostgresStore(db, cfg.TablePrefix+"_"+domain, logger)
			if err != nil {
				return nil, nil, fmt.Errorf("create store %s: %w", domain, err)
			}
			err = store.EnsureSchema(ctx)
			if err != nil {
				return nil, nil, fmt.Errorf("ensure schema %s: %w", domain, err)
			}
			if i == 0 {
				store.OwnDB()
			}
			stores[domain] = store
		}

		return stores, db, nil

	case "sqlite":
		db, err := kvstore.OpenSQLite(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}

		for i, domain := range cacheDomains {
			store, err := kvstore.NewSQLiteStore(db, cfg.TablePrefix+"_"+domain, logger)
			if err != nil {
				return nil, nil, fmt.Errorf("create store %s: %w", domain, err)
			}
			err = store.EnsureSchema(ctx)
			if err != nil {
				return nil, nil, fmt.Errorf("ensure schema %s: %w", domain, err)
			}
			if i == 0 {
				store.OwnDB()
			}
			stores[domain] = store
		}

		return stores, db, nil

	default:
		// Memory driver: cache keys carry category prefixes, so one shared
		// store serves every domain.
		memory, err := kvstore.NewMemoryStore(&kvstore.MemoryConfig{
			NumCounters: 100000,
			MaxCost:     10000,
			BufferItems: 64,
			Logger:      logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create memory store: %w", err)
		}

		for _, domain := range cacheDomains {
			stores[domain] = memory
		}

		return stores, nil, nil
	}
}

func setupService(cfg *config.Config, logger *zap.Logger, stores map[string]kvstore.Store) *research.Service {
	timeout := cfg.ProviderTimeout

	return research.New(&research.Config{
		Fundamentals: providers.NewFundamentalsClient(cfg.FundamentalsBaseURL, cfg.FundamentalsAPIKey, timeout, logger),
		Macro:        providers.NewMacroClient(cfg.MacroBaseURL, cfg.MacroAPIKey, timeout, logger),
		Sentiment:    providers.NewSentimentClient(cfg.SentimentBaseURL, timeout, logger),
		Markets:      providers.NewMarketsClient(cfg.MarketsBaseURL, timeout, logger),
		Assessment:   providers.NewAssessmentClient(cfg.AssessmentBaseURL, cfg.AssessmentAPIKey, cfg.AssessmentModel, timeout, logger),

		FundamentalsCache: cache.New(stores["fundamentals"], logger),
		QuotesCache:       cache.New(stores["quotes"], logger),
		MacroCache:        cache.New(stores["macro"], logger),
		AssessmentCache:   cache.New(stores["assessments"], logger),
		SnapshotCache:     cache.New(stores["snapshots"], logger),

		TTL:    cfg.TTL,
		Logger: logger,
	})
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	service *research.Service,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Research:      service,
	})
}

// Service exposes the research service, used by the one-shot CLI commands.
func (a *App) Service() *research.Service {
	return a.service
}
