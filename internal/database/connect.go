// Package database opens the ledger database for the service and its tools.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"ms-marketplace/internal/config"
	"ms-marketplace/internal/logger"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	maxRetries = 5
	retryDelay = 2 * time.Second
)

// Open connects to PostgreSQL or SQLite, retrying while the server comes up.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	switch cfg.Driver {
	case "postgres":
		sqldb, err := connect(ctx, "postgres", cfg.DSN, log)
		if err != nil {
			return nil, err
		}
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
		sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
		log.Info("DATABASE", "✅ PostgreSQL connection successful")
		return bun.NewDB(sqldb, pgdialect.New()), nil

	case "sqlite":
		sqldb, err := connect(ctx, sqliteshim.ShimName, cfg.DSN, log)
		if err != nil {
			return nil, err
		}
		// one writer; also keeps ":memory:" databases shared
		sqldb.SetMaxOpenConns(1)
		log.Info("DATABASE", fmt.Sprintf("✅ SQLite database opened at %s", cfg.DSN))
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func connect(ctx context.Context, driver, dsn string, log *logger.Logger) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s DSN not set", driver)
	}

	var (
		sqldb *sql.DB
		err   error
	)
	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to %s (attempt %d/%d)", driver, i+1, maxRetries))
		sqldb, err = sql.Open(driver, dsn)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open %s: %v", driver, err))
		} else if err = sqldb.PingContext(ctx); err == nil {
			return sqldb, nil
		} else {
			log.Error("DATABASE", fmt.Sprintf("Failed to connect to %s: %v", driver, err))
			_ = sqldb.Close()
		}

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return nil, fmt.Errorf("failed to connect to %s after %d attempts: %w", driver, maxRetries, err)
}
