package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/facet-api/facet/internal/api"
	"github.com/facet-api/facet/internal/cache"
	"github.com/facet-api/facet/internal/config"
	"github.com/facet-api/facet/internal/negotiate"
	"github.com/facet-api/facet/internal/query"
	"github.com/facet-api/facet/internal/schema"
	"github.com/facet-api/facet/internal/store/memstore"
	"github.com/facet-api/facet/internal/store/sqlstore"
	"github.com/facet-api/facet/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  "Load the schema and configuration, connect the store and cache, and serve the resource API until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFrom(configPath)
		if err != nil {
			return err
		}

		logger, err := buildLogger(cfg.LogLevel)
		if err != nil {
			return err
		}
		defer logger.Sync()

		reg, err := schema.LoadFile(cfg.Schema)
		if err != nil {
			return fmt.Errorf("failed to load schema: %w", err)
		}
		logger.Info("schema loaded",
			zap.String("path", cfg.Schema),
			zap.Strings("kinds", reg.List()),
		)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := buildStore(ctx, cfg, reg)
		if err != nil {
			return err
		}
		if closer, ok := store.(io.Closer); ok {
			defer closer.Close()
		}

		respCache, err := buildCache(cfg)
		if err != nil {
			return err
		}
		defer respCache.Close()

		svc := api.NewService(reg, store, respCache, logger, api.Config{
			BaseURL:      cfg.API.BaseURL,
			MaxDepth:     cfg.API.MaxDepth,
			DefaultLimit: cfg.API.DefaultLimit,
			MaxLimit:     cfg.API.MaxLimit,
			Links:        cfg.API.Links,
			CacheTTL:     cfg.Cache.TTL,
		})

		algorithms := make([]negotiate.Algorithm, 0, len(cfg.Server.Compression))
		for _, alg := range cfg.Server.Compression {
			algorithms = append(algorithms, negotiate.Algorithm(alg))
		}
		negotiator := negotiate.NewNegotiator(algorithms...)

		handler := web.NewHandler(svc, reg, negotiator, logger)
		router := web.NewRouter(handler, logger, nil, web.RouterConfig{
			BaseURL:     cfg.API.BaseURL,
			CORSOrigins: cfg.Server.CORSOrigins,
		})

		server := web.NewServer(router, logger, web.ServerConfig{
			Address:           cfg.Server.Address(),
			ReadTimeout:       cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       cfg.Server.IdleTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		})

		return server.Run(ctx)
	},
}

// buildLogger creates a production logger at the configured level
func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// buildStore connects the configured storage backend
func buildStore(ctx context.Context, cfg *config.Config, reg *schema.Registry) (query.MutableStore, error) {
	if cfg.Database.Driver == "memory" {
		return memstore.New(reg), nil
	}
	store, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.URL, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Database.Driver, err)
	}
	return store, nil
}

// buildCache connects the configured response cache backend
func buildCache(cfg *config.Config) (cache.Cache, error) {
	cacheCfg := cache.DefaultConfig()
	cacheCfg.DefaultTTL = cfg.Cache.TTL

	if cfg.Cache.Backend == "redis" {
		c, err := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Config:   cacheCfg,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return c, nil
	}
	return cache.NewMemoryWithConfig(cacheCfg), nil
}
