package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/bigocean-backend/internal/clients/redis"
	"github.com/yungbote/bigocean-backend/internal/data/db"
	"github.com/yungbote/bigocean-backend/internal/observability"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
	"github.com/yungbote/bigocean-backend/internal/platform/openai"
)

type Clients struct {
	DB     *db.Service
	Redis  *goredis.Client
	OpenAI openai.Client
}

func wireClients(log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	var out Clients

	dbService, err := db.Open(log, cfg.DB)
	if err != nil {
		return out, fmt.Errorf("init database: %w", err)
	}
	out.DB = dbService

	rdb, err := redis.NewClient(log, cfg.Redis)
	if err != nil {
		_ = dbService.Close()
		return out, fmt.Errorf("init redis: %w", err)
	}
	out.Redis = rdb

	oa, err := openai.NewClient(log, cfg.OpenAI, metrics)
	if err != nil {
		out.Close(log)
		return Clients{}, fmt.Errorf("init openai: %w", err)
	}
	out.OpenAI = oa
	return out, nil
}

func (c Clients) healthChecks() map[string]func(ctx context.Context) error {
	checks := map[string]func(ctx context.Context) error{}
	if c.DB != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := c.DB.DB().DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if c.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return c.Redis.Ping(ctx).Err()
		}
	}
	return checks
}

func (c Clients) Close(log *logger.Logger) {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn("redis close failed", "error", err)
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			log.Warn("database close failed", "error", err)
		}
	}
}
