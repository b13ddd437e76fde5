package commands

import (
	"context"
	"fmt"

	"github.com/quantlab/fairval/internal/analysis"
	"github.com/quantlab/fairval/internal/fetch"
	"github.com/quantlab/fairval/internal/fmp"
	"github.com/quantlab/fairval/internal/selection"
	"github.com/quantlab/fairval/internal/settings"
	"github.com/quantlab/fairval/internal/store"
	"github.com/quantlab/fairval/internal/valuation"
	"github.com/quantlab/fairval/pkg/config"
	"github.com/quantlab/fairval/pkg/database"
	"github.com/quantlab/fairval/pkg/httputil"
	"github.com/quantlab/fairval/pkg/logger"
	"github.com/quantlab/fairval/pkg/redis"
)

// app bundles the wired components every command works with.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	redis    *redis.Client
	repo     *store.Repository
	settings *settings.Store
	fmp      *fmp.Client
	fetcher  *fetch.Fetcher
	engine   *valuation.Engine
	analyzer *analysis.Analyzer
	selector *selection.Selector
}

// newApp loads config and wires the full component stack. Configuration
// problems (missing credential, unreachable database) fail here, before
// any command logic runs.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := store.EnsureSchema(ctx, db.Pool); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	sett, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load sector settings: %w", err)
	}

	rds, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	httpClient := httputil.New(log)
	if rds.Enabled() {
		limiter := redis.NewRateLimiter(rds, "ratelimit")
		httpClient = httpClient.WithRateLimiter(limiter, redis.FMPRateLimit)
	}

	fmpClient := fmp.NewClient(cfg.FMP, httpClient, log)
	repo := store.NewRepository(db.Pool)
	fetcher := fetch.New(repo, fmpClient, cfg.Cache.TTL, log)
	engine := valuation.NewEngine(valuation.DefaultConfig(), sett, log)

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		redis:    rds,
		repo:     repo,
		settings: sett,
		fmp:      fmpClient,
		fetcher:  fetcher,
		engine:   engine,
		analyzer: analysis.New(fetcher, engine, repo, log),
		selector: selection.New(repo, fmpClient, log),
	}, nil
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
