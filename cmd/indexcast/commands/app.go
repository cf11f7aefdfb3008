package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/indexcast/internal/contracts"
	"github.com/wonny/indexcast/internal/external/yahoo"
	"github.com/wonny/indexcast/internal/forecast"
	"github.com/wonny/indexcast/internal/history"
	"github.com/wonny/indexcast/internal/modelconfig"
	"github.com/wonny/indexcast/pkg/config"
	"github.com/wonny/indexcast/pkg/database"
	"github.com/wonny/indexcast/pkg/httputil"
	"github.com/wonny/indexcast/pkg/logger"
	"github.com/wonny/indexcast/pkg/metrics"
	"github.com/wonny/indexcast/pkg/redis"
)

// app 커맨드 공통 의존성
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	metrics  *metrics.Recorder
	redis    *redis.Client
	db       *database.DB // nil: DATABASE_URL 미설정
	runs     *forecast.Repository
	history  *history.CachedProvider
	pipeline *forecast.Pipeline
	service  *forecast.Service
	symbol   string
}

// newApp loads config and wires every component; Postgres and Redis are optional
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
		symbol:  cfg.Forecast.Symbol,
	}
	if symbol != "" {
		a.symbol = symbol
	}
	a.symbol = contracts.CanonicalSymbol(a.symbol)

	// 3. Model config
	path := cfg.Forecast.ModelPath
	if modelPath != "" {
		path = modelPath
	}
	model, err := modelconfig.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load model config: %w", err)
	}

	// 4. Redis (optional)
	a.redis, err = redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		a.redis = redis.Disabled()
	}
	cache := redis.NewCache(a.redis, "indexcast")
	limiter := redis.NewRateLimiter(a.redis, "indexcast")

	// 5. Database (optional)
	var store history.BarStore
	a.db, err = database.New(cfg)
	switch {
	case errors.Is(err, database.ErrDisabled):
		log.Info("DATABASE_URL not set, history store and archive disabled")
	case err != nil:
		a.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	default:
		if err := a.db.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		store = history.NewRepository(a.db)
		a.runs = forecast.NewRepository(a.db)
		log.Info("Connected to database")
	}

	// 6. Yahoo client
	httpClient := httputil.NewWithTimeout(cfg, log, cfg.Yahoo.Timeout).
		WithUserAgent(cfg.Yahoo.UserAgent).
		WithThrottle(cfg.Yahoo.RequestsSec).
		WithRateLimiter(limiter, redis.YahooRateLimit)
	if cfg.Yahoo.MaxRetries > 0 {
		httpClient.WithRetry(cfg.Yahoo.MaxRetries, time.Second)
	} else {
		httpClient.DisableRetry()
	}
	yahooClient := yahoo.NewClient(httpClient, cfg.Yahoo, log)

	// 7. History provider
	a.history = history.NewCachedProvider(yahooClient, store, cache, log)

	// 8. Pipeline + service
	workers := cfg.Forecast.Parallelism
	if parallelism > 0 {
		workers = parallelism
	}
	a.pipeline, err = forecast.NewPipeline(a.history, forecast.Options{
		Model:        model,
		HistoryStart: cfg.HistoryStartDate(),
		Parallelism:  workers,
		Metrics:      a.metrics,
	}, log.Zerolog())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	opts := forecast.ServiceOptions{
		Cache:    cache,
		CacheTTL: cfg.Forecast.CacheTTL,
		Metrics:  a.metrics,
	}
	if a.runs != nil {
		opts.Runs = a.runs
	}
	a.service = forecast.NewService(a.pipeline, opts, log.Zerolog())

	log.WithFields(map[string]interface{}{
		"symbol":      a.symbol,
		"model_id":    model.Meta.ModelID,
		"config_hash": a.pipeline.ConfigHash(),
		"parallelism": workers,
	}).Info("Application initialized")

	return a, nil
}

// Close releases connections
func (a *app) Close() {
	a.db.Close()
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
}

// withTimeout 커맨드 실행 제한 시간
func withTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}
