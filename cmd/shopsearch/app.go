package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/config"
	dbRedis "github.com/kailas-cloud/shopsearch/internal/db/redis"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
	"github.com/kailas-cloud/shopsearch/internal/repository/resultcache"
	"github.com/kailas-cloud/shopsearch/internal/transport/searchapi"
	healthuc "github.com/kailas-cloud/shopsearch/internal/usecase/health"
	"github.com/kailas-cloud/shopsearch/internal/usecase/searchbar"
	"github.com/kailas-cloud/shopsearch/internal/usecase/session"
	"github.com/kailas-cloud/shopsearch/internal/usecase/store"
)

// resolveEnv returns the --env flag or $ENV.
func resolveEnv() string {
	if envName != "" {
		return envName
	}
	return config.GetEnv()
}

// loadConfig reads the config file. With --backend set, a missing file falls
// back to defaults so the CLI works without any config on disk.
func loadConfig(env string) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(env)
	}

	if err != nil {
		if backendURL == "" || configPath != "" {
			return config.Config{}, err
		}
		cfg = config.Config{}
		cfg.ApplyDefaults()
	}

	if backendURL != "" {
		cfg.Backend.BaseURL = backendURL
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// deps holds the search stack shared by the web server and the CLI.
type deps struct {
	backend  *searchapi.Client
	searcher store.Searcher
	// cache is nil when no cache server is configured.
	cache   *dbRedis.Store
	session session.Deps
}

// health returns a health service over the configured components.
func (d *deps) health() *healthuc.Service {
	// Pass a nil interface, not a typed nil pointer.
	var cache healthuc.CachePinger
	if d.cache != nil {
		cache = d.cache
	}
	return healthuc.New(d.backend, cache)
}

func (d *deps) close() {
	if d.cache != nil {
		d.cache.Close()
	}
}

// buildDeps assembles the decorator chain: API client -> result cache.
func buildDeps(ctx context.Context, cfg config.Config, logger *zap.Logger) (*deps, error) {
	d := &deps{
		backend: searchapi.New(searchapi.Config{
			BaseURL:         cfg.Backend.BaseURL,
			GraphQLPath:     cfg.Backend.GraphQLPath,
			ImageSearchPath: cfg.Backend.ImageSearchPath,
			HealthPath:      cfg.Backend.HealthPath,
			Timeout:         cfg.Backend.Timeout(),
			Logger:          logger,
		}),
	}
	d.searcher = d.backend

	if cfg.Cache.Enabled() {
		kv, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.Cache.Addrs,
			Username:   cfg.Cache.Username,
			Password:   cfg.Cache.Password,
			DB:         cfg.Cache.DB,
			Standalone: cfg.Cache.Standalone,
		})
		if err != nil {
			return nil, fmt.Errorf("create cache store: %w", err)
		}
		if err := kv.WaitForReady(ctx, cfg.Cache.ReadinessTimeoutDuration()); err != nil {
			kv.Close()
			return nil, errors.Join(errors.New("cache not ready"), err)
		}
		logger.Info("Connected to result cache", zap.Strings("addrs", cfg.Cache.Addrs))

		d.cache = kv
		d.searcher = resultcache.New(d.backend, kv, cfg.Cache.KeyPrefix, cfg.Cache.TTL(),
			metrics.ResultCacheTotal, logger)
	}

	d.session = session.Deps{
		Searcher: d.searcher,
		Logger:   logger,
		PageSize: cfg.Search.PageSize,
		Bar: searchbar.Config{
			DefaultTopN:  cfg.Search.DefaultTopN,
			TopNOptions:  cfg.Search.TopNOptions,
			QuickQueries: cfg.Search.QuickQueries,
		},
	}
	return d, nil
}
