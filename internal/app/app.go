package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/maximillian1508/easyrent-backend/internal/config"
	"github.com/maximillian1508/easyrent-backend/internal/repositories"
	"github.com/maximillian1508/easyrent-backend/internal/repositories/memstore"
	"github.com/maximillian1508/easyrent-backend/internal/utils"
)

const (
	maxRetries     = 5
	connectTimeout = 5 * time.Second
	initialBackoff = 500 * time.Millisecond
)

type App struct {
	Config *config.Config
	// DB is nil when the in-memory store is selected.
	DB    *pgxpool.Pool
	Store repositories.Store
}

func NewApp(cfg *config.Config) (*App, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		utils.Logger.Warn("rental-service running on the in-memory store")
		return &App{Config: cfg, Store: memstore.New()}, nil
	}

	dbPool, err := ConnectWithRetry(cfg.DBUrl)
	if err != nil {
		return nil, err
	}
	return &App{
		Config: cfg,
		DB:     dbPool,
		Store:  repositories.NewPostgresStore(dbPool),
	}, nil
}

// ConnectWithRetry opens a pool, backing off exponentially between attempts.
func ConnectWithRetry(databaseURL string) (*pgxpool.Pool, error) {
	var (
		dbPool  *pgxpool.Pool
		err     error
		backoff = initialBackoff
	)

	for i := 1; i <= maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		dbPool, err = newDBPool(ctx, databaseURL)
		cancel()
		if err == nil {
			utils.Logger.Infof("rental-service connected to DB on attempt %d", i)
			return dbPool, nil
		}

		utils.Logger.WithError(err).Warnf(
			"Failed DB connect on attempt %d/%d. Retrying in %v...",
			i, maxRetries, backoff,
		)

		if i == maxRetries {
			break
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	return nil, fmt.Errorf("unable to connect after %d attempts: %w", maxRetries, err)
}

// Ping reports whether the backing store is reachable.
func (a *App) Ping(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Ping(ctx)
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		utils.Logger.Info("rental-service DB connection closed.")
	}
}

func newDBPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConnIdleTime = 2 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	return pgxpool.ConnectConfig(ctx, cfg)
}
