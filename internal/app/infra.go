package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"weather-app/internal/config"
	"weather-app/internal/db"
	"weather-app/internal/logger"
	"weather-app/internal/redis"
	"weather-app/internal/session"
	"weather-app/internal/users"
)

// bigcacheCleanWindow is how often bigcache drops entries older than the TTL.
const bigcacheCleanWindow = time.Minute

type Infra struct {
	DB       *sql.DB
	Redis    *redis.Client
	Users    users.Store
	Sessions session.Store

	closers []func() error
}

// SetupInfra opens the credential and session stores selected by cfg.
func SetupInfra(ctx context.Context, cfg config.Config) (_ *Infra, err error) {
	infra := &Infra{}
	defer func() {
		if err != nil {
			_ = infra.Close()
		}
	}()

	if cfg.Store.Backend == config.StoreRedis || cfg.Session.Backend == config.SessionRedis {
		client, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		infra.Redis = client
		infra.closers = append(infra.closers, client.Close)

		logger.Info("redis ready", map[string]any{
			"addr": cfg.Redis.Addr,
		})
	}

	if err := infra.setupUsers(ctx, cfg); err != nil {
		return nil, err
	}
	if err := infra.setupSessions(cfg); err != nil {
		return nil, err
	}

	logger.Info("stores ready", map[string]any{
		"store":   cfg.Store.Backend,
		"session": cfg.Session.Backend,
	})

	return infra, nil
}

func (i *Infra) setupUsers(ctx context.Context, cfg config.Config) error {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		sqlDB, err := db.OpenPostgres(ctx, cfg.Database.DSN)
		if err != nil {
			return err
		}
		i.DB = sqlDB
		i.closers = append(i.closers, sqlDB.Close)
		i.Users = users.NewPostgresStore(sqlDB)

	case config.StoreSQLite:
		sqlDB, err := db.OpenSQLite(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return err
		}
		i.DB = sqlDB
		i.closers = append(i.closers, sqlDB.Close)
		i.Users = users.NewSQLiteStore(sqlDB)

	case config.StoreRedis:
		i.Users = users.NewRedisStore(i.Redis.Client)

	case config.StoreMemory:
		logger.Warn("memory credential store: users are lost on restart", nil)
		i.Users = users.NewMemoryStore()

	default:
		return fmt.Errorf("app: unknown store backend %q", cfg.Store.Backend)
	}
	return nil
}

func (i *Infra) setupSessions(cfg config.Config) error {
	switch cfg.Session.Backend {
	case config.SessionRedis:
		i.Sessions = session.NewRedisStore(i.Redis.Client)

	case config.SessionMemory:
		store := session.NewMemoryStore(cfg.Session.SweepInterval)
		i.closers = append(i.closers, store.Close)
		i.Sessions = store

	case config.SessionBigcache:
		store, err := session.NewBigcacheStore(cfg.Session.TTL, bigcacheCleanWindow, time.Now)
		if err != nil {
			return err
		}
		i.closers = append(i.closers, store.Close)
		i.Sessions = store

	default:
		return fmt.Errorf("app: unknown session backend %q", cfg.Session.Backend)
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (i *Infra) Close() error {
	var errs []error
	for n := len(i.closers) - 1; n >= 0; n-- {
		if err := i.closers[n](); err != nil {
			errs = append(errs, err)
		}
	}
	i.closers = nil
	return errors.Join(errs...)
}
