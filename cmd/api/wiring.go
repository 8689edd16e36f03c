package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/bryanwahyu/argus/internal/config"
	domain "github.com/bryanwahyu/argus/internal/domain/analysis"
	"github.com/bryanwahyu/argus/internal/infra/cache"
	"github.com/bryanwahyu/argus/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/argus/internal/infra/db/mysql"
	"github.com/bryanwahyu/argus/internal/infra/db/postgres"
	"github.com/bryanwahyu/argus/internal/infra/db/sqlite"
	"github.com/bryanwahyu/argus/internal/logging"
	"github.com/bryanwahyu/argus/internal/middleware"
)

// schemaRepository is a Repository that can create its own table.
type schemaRepository interface {
	domain.Repository
	EnsureSchema(ctx context.Context) error
}

// backend holds the opened store and everything that must be closed with it.
type backend struct {
	repo     domain.Repository
	checkers map[string]middleware.HealthChecker
	closers  []func() error
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(config.ResolvePath(configPath))
	if err != nil {
		return nil, nil, fmt.Errorf("config load error: %w", err)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openStore connects the configured database, creating its schema when migrate is set.
func openStore(ctx context.Context, cfg *config.Config, migrate bool) (schemaRepository, *sql.DB, error) {
	var (
		db   *sql.DB
		repo schemaRepository
		err  error
	)
	switch cfg.Database.Driver {
	case "memory":
		return nil, nil, nil
	case "sqlite":
		db, err = sqlite.Connect(ctx, cfg.Database.Path)
		if err == nil {
			repo = sqlite.NewAnalysisRepository(db)
		}
	case "mysql":
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err == nil {
			repo = mysqlp.NewAnalysisRepository(db)
		}
	case "postgres":
		db, err = postgres.Connect(ctx, cfg.PostgresDSN())
		if err == nil {
			repo = postgres.NewAnalysisRepository(db)
		}
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s connect error: %w", cfg.Database.Driver, err)
	}
	if migrate {
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	return repo, db, nil
}

// openBackend builds the repository chain: database, then the optional redis cache.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	b := &backend{checkers: map[string]middleware.HealthChecker{}}

	repo, db, err := openStore(ctx, cfg, cfg.Database.Driver == "sqlite")
	if err != nil {
		return nil, err
	}
	if repo == nil {
		logger.Warn("using in-memory store; records are lost on restart")
		b.repo = memory.NewAnalysisRepository()
	} else {
		b.repo = repo
		b.closers = append(b.closers, db.Close)
	}
	b.checkers["database"] = &middleware.StoreChecker{DB: db, Driver: cfg.Database.Driver}

	if cfg.Redis.Enabled {
		client, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			b.Close()
			return nil, err
		}
		kv := cache.NewRedisKV(client)
		b.closers = append(b.closers, client.Close)
		b.checkers["redis"] = kv
		b.repo = cache.NewCachedRepository(b.repo, kv, cfg.Redis.TTL, logger)
	}
	return b, nil
}
