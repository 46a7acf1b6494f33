package commands

import (
	"context"
	"fmt"

	"github.com/dyluth/warren/internal/config"
	"github.com/dyluth/warren/internal/editor"
	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/internal/sqlstore"
	"github.com/dyluth/warren/pkg/world"
	"github.com/redis/go-redis/v9"
)

// openStore opens the world store selected by cfg.Store.Driver and checks
// that it is reachable.
func openStore(ctx context.Context, cfg *config.WarrenConfig) (editor.Store, error) {
	if cfg.Store.Driver == "sqlite" {
		store, err := sqlstore.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, printer.ErrorWithContext(
				"SQLite store unavailable",
				err.Error(),
				map[string]string{"Path": cfg.Store.SQLitePath},
				[]string{"Check that the directory exists and is writable"},
			)
		}
		return store, nil
	}
	return openRedis(ctx, cfg)
}

// openRedis connects to the Redis world of cfg.Instance.
func openRedis(ctx context.Context, cfg *config.WarrenConfig) (*world.Client, error) {
	redisOpts, err := redis.ParseURL(cfg.Store.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client, err := world.NewClient(redisOpts, cfg.Instance)
	if err != nil {
		return nil, fmt.Errorf("failed to create world client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", cfg.Store.RedisURL),
			map[string]string{"Instance": cfg.Instance},
			[]string{
				"Start Redis or point store.redis_url at a running server",
				"Use the SQLite store instead:\n  WARREN_STORE_DRIVER=sqlite WARREN_SQLITE_PATH=world.db",
			},
		)
	}
	return client, nil
}

// newService builds the editor service for cfg over store.
func newService(cfg *config.WarrenConfig, store editor.Store, opts editor.Options) (*editor.Service, error) {
	mode, err := editor.ParseMode(cfg.Graph.Mode)
	if err != nil {
		return nil, err
	}
	if opts.Mode == "" {
		opts.Mode = mode
	}
	return editor.New(store, opts), nil
}
